package fetch

import "unsafe"

// directAlign is the alignment direct I/O requires on Linux: both the
// buffer address and the file offset/length must be a multiple of this.
const directAlign = 512

// alignedBuffer returns a byte slice of exactly size bytes, backed by a
// larger allocation so the returned slice's address is 512-byte aligned -
// the Go equivalent of the original's posix_memalign call.
func alignedBuffer(size int) []byte {
	buf := make([]byte, size+directAlign)
	addr := uintptr(unsafe.Pointer(&buf[0]))
	offset := (directAlign - int(addr%directAlign)) % directAlign
	return buf[offset : offset+size : offset+size]
}
