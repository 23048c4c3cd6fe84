// Package binfile reads and writes the header-prefixed vector file format
// shared by every stage of the build and search pipelines: a little-endian
// (n uint32, dim uint32) header followed by n*dim contiguous elements.
package binfile

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Header is the (n, dim) pair every vector file starts with.
type Header struct {
	N   uint32
	Dim uint32
}

// ReadHeader reads just the header, leaving the reader positioned at the
// start of the payload.
func ReadHeader(r io.Reader) (Header, error) {
	var h Header
	if err := binary.Read(r, binary.LittleEndian, &h.N); err != nil {
		return Header{}, fmt.Errorf("binfile: read n: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &h.Dim); err != nil {
		return Header{}, fmt.Errorf("binfile: read dim: %w", err)
	}
	return h, nil
}

// WriteHeader writes the (n, dim) header.
func WriteHeader(w io.Writer, h Header) error {
	if err := binary.Write(w, binary.LittleEndian, h.N); err != nil {
		return fmt.Errorf("binfile: write n: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, h.Dim); err != nil {
		return fmt.Errorf("binfile: write dim: %w", err)
	}
	return nil
}

// GetMetadata reads (n, dim) from the file at path without reading the payload.
func GetMetadata(path string) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, fmt.Errorf("binfile: open %s: %w", path, err)
	}
	defer f.Close()
	return ReadHeader(f)
}

// SetMetadata overwrites the (n, dim) header of an existing file in place,
// leaving the payload untouched.
func SetMetadata(path string, h Header) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("binfile: open %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("binfile: seek %s: %w", path, err)
	}
	return WriteHeader(f, h)
}

// ReadFloat32 reads an entire float32 vector file.
func ReadFloat32(path string) (Header, []float32, error) {
	return readAll[float32](path)
}

// ReadInt8 reads an entire int8 vector file.
func ReadInt8(path string) (Header, []int8, error) {
	return readAll[int8](path)
}

// ReadUint8 reads an entire uint8 vector file.
func ReadUint8(path string) (Header, []uint8, error) {
	return readAll[uint8](path)
}

// ReadUint32 reads an entire uint32 file (global-id lists, combine-id
// tables).
func ReadUint32(path string) (Header, []uint32, error) {
	return readAll[uint32](path)
}

func readAll[T any](path string) (Header, []T, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, nil, fmt.Errorf("binfile: open %s: %w", path, err)
	}
	defer f.Close()

	h, err := ReadHeader(f)
	if err != nil {
		return Header{}, nil, err
	}
	data := make([]T, int(h.N)*int(h.Dim))
	if len(data) > 0 {
		if err := binary.Read(f, binary.LittleEndian, data); err != nil {
			return Header{}, nil, fmt.Errorf("binfile: read payload %s: %w", path, err)
		}
	}
	return h, data, nil
}

// WriteFloat32 writes a complete float32 vector file.
func WriteFloat32(path string, n, dim uint32, data []float32) error {
	return writeAll(path, n, dim, data)
}

// WriteInt8 writes a complete int8 vector file.
func WriteInt8(path string, n, dim uint32, data []int8) error {
	return writeAll(path, n, dim, data)
}

// WriteUint8 writes a complete uint8 vector file.
func WriteUint8(path string, n, dim uint32, data []uint8) error {
	return writeAll(path, n, dim, data)
}

// WriteUint32 writes a complete uint32 file: a (n, dim) header (dim is 1
// for a flat id list) followed by n*dim little-endian uint32 values. Used
// for per-cluster global-id lists and the bucket combine-id table.
func WriteUint32(path string, n, dim uint32, data []uint32) error {
	return writeAll(path, n, dim, data)
}

func writeAll[T any](path string, n, dim uint32, data []T) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("binfile: create %s: %w", path, err)
	}
	defer f.Close()

	if err := WriteHeader(f, Header{N: n, Dim: dim}); err != nil {
		return err
	}
	if len(data) > 0 {
		if err := binary.Write(f, binary.LittleEndian, data); err != nil {
			return fmt.Errorf("binfile: write payload %s: %w", path, err)
		}
	}
	return nil
}

// Reader streams a vector file record by record without loading it whole,
// used by the reservoir sampler and the partition pass over corpora too
// large to fit in memory.
type Reader struct {
	f   *os.File
	Header
	elemSize int
}

// OpenReader opens path and reads its header, returning a streaming reader
// of fixed-size dim-element records. elemSize is the size in bytes of one
// element (4 for float32, 1 for int8/uint8).
func OpenReader(path string, elemSize int) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("binfile: open %s: %w", path, err)
	}
	h, err := ReadHeader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &Reader{f: f, Header: h, elemSize: elemSize}, nil
}

// ReadRecord reads the next dim-element record into buf, which must have
// length Dim*elemSize/sizeof(element) matching the caller's element type.
func (r *Reader) ReadRecord(buf any) error {
	return binary.Read(r.f, binary.LittleEndian, buf)
}

// Close releases the underlying file handle.
func (r *Reader) Close() error {
	return r.f.Close()
}
