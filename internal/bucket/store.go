// Package bucket implements the recursive disk-block builder and the
// fixed-size block store that the fetch engine reads from during search.
package bucket

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/vecdb/bbann/internal/kernel"
)

// Block is one fixed-size disk block: a run of vectors paired with their
// global IDs, padded to BlockSize bytes on write.
type Block[T kernel.Numeric] struct {
	Vectors   [][]T
	GlobalIDs []uint32
}

// EntrySize returns the on-disk size of one (vector, global id) record.
func EntrySize(dim, elemSize int) int {
	return dim*elemSize + 4
}

// Capacity returns how many entries fit in one block of blockSize bytes,
// after the 4-byte entry-count header.
func Capacity(blockSize, dim, elemSize int) int {
	return (blockSize - 4) / EntrySize(dim, elemSize)
}

// Writer appends fixed-size blocks to a single coarse-cluster file.
type Writer[T kernel.Numeric] struct {
	f         *os.File
	blockSize int
	dim       int
}

// NewWriter creates (truncating) the cluster file at path.
func NewWriter[T kernel.Numeric](path string, blockSize, dim int) (*Writer[T], error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("bucket: create %s: %w", path, err)
	}
	return &Writer[T]{f: f, blockSize: blockSize, dim: dim}, nil
}

// WriteBlock serializes one block: entry_num, then each (vector, global id)
// record, padded with zero bytes to BlockSize.
func (w *Writer[T]) WriteBlock(b Block[T]) error {
	if len(b.Vectors) != len(b.GlobalIDs) {
		return fmt.Errorf("bucket: block has %d vectors but %d ids", len(b.Vectors), len(b.GlobalIDs))
	}
	entrySize := EntrySize(w.dim, elemSizeOf[T]())
	written := 4 + len(b.Vectors)*entrySize
	if written > w.blockSize {
		return fmt.Errorf("bucket: block of %d entries (%d bytes) exceeds block size %d", len(b.Vectors), written, w.blockSize)
	}

	if err := binary.Write(w.f, binary.LittleEndian, uint32(len(b.Vectors))); err != nil {
		return fmt.Errorf("bucket: write entry count: %w", err)
	}
	for i, vec := range b.Vectors {
		if err := binary.Write(w.f, binary.LittleEndian, vec); err != nil {
			return fmt.Errorf("bucket: write vector %d: %w", i, err)
		}
		if err := binary.Write(w.f, binary.LittleEndian, b.GlobalIDs[i]); err != nil {
			return fmt.Errorf("bucket: write global id %d: %w", i, err)
		}
	}
	pad := w.blockSize - written
	if pad > 0 {
		if _, err := w.f.Write(make([]byte, pad)); err != nil {
			return fmt.Errorf("bucket: pad block: %w", err)
		}
	}
	return nil
}

// Close flushes and closes the underlying file.
func (w *Writer[T]) Close() error {
	return w.f.Close()
}

// Reader provides offset-indexed random access to blocks written by Writer.
// Search reads go through internal/fetch instead, which opens its own
// descriptors; Reader is used by tests. The build pipeline does not read
// blocks back through it.
type Reader[T kernel.Numeric] struct {
	f         *os.File
	blockSize int
	dim       int
}

// OpenReader opens an existing cluster file for block-indexed reads.
func OpenReader[T kernel.Numeric](path string, blockSize, dim int) (*Reader[T], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("bucket: open %s: %w", path, err)
	}
	return &Reader[T]{f: f, blockSize: blockSize, dim: dim}, nil
}

// NumBlocks returns how many fixed-size blocks the file holds.
func (r *Reader[T]) NumBlocks() (uint32, error) {
	stat, err := r.f.Stat()
	if err != nil {
		return 0, fmt.Errorf("bucket: stat: %w", err)
	}
	return uint32(stat.Size() / int64(r.blockSize)), nil
}

// ReadBlock reads the block at index bid.
func (r *Reader[T]) ReadBlock(bid uint32) (Block[T], error) {
	buf := make([]byte, r.blockSize)
	if _, err := r.f.ReadAt(buf, int64(bid)*int64(r.blockSize)); err != nil && err != io.EOF {
		return Block[T]{}, fmt.Errorf("bucket: read block %d: %w", bid, err)
	}
	return decodeBlock[T](buf, r.dim)
}

// DecodeBlockBytes decodes a raw block buffer read out-of-band (by the
// fetch engine's direct-I/O path rather than through Reader) into a
// float32 Block.
func DecodeBlockBytes(buf []byte, dim int) (Block[float32], error) {
	return decodeBlock[float32](buf, dim)
}

func decodeBlock[T kernel.Numeric](buf []byte, dim int) (Block[T], error) {
	if len(buf) < 4 {
		return Block[T]{}, fmt.Errorf("bucket: block shorter than header")
	}
	entryNum := binary.LittleEndian.Uint32(buf[:4])
	elemSize := elemSizeOf[T]()
	b := Block[T]{
		Vectors:   make([][]T, entryNum),
		GlobalIDs: make([]uint32, entryNum),
	}
	off := 4
	for i := 0; i < int(entryNum); i++ {
		vec := make([]T, dim)
		if err := decodeVector(buf[off:off+dim*elemSize], vec); err != nil {
			return Block[T]{}, err
		}
		off += dim * elemSize
		b.Vectors[i] = vec
		b.GlobalIDs[i] = binary.LittleEndian.Uint32(buf[off : off+4])
		off += 4
	}
	return b, nil
}

// Close closes the underlying file.
func (r *Reader[T]) Close() error {
	return r.f.Close()
}
