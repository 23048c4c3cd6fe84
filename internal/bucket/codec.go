package bucket

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/vecdb/bbann/internal/kernel"
)

// elemSizeOf returns the on-disk byte width of one element of T.
func elemSizeOf[T kernel.Numeric]() int {
	var zero T
	switch any(zero).(type) {
	case float32:
		return 4
	case int8, uint8:
		return 1
	default:
		return 0
	}
}

func decodeVector[T kernel.Numeric](raw []byte, dst []T) error {
	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, dst); err != nil {
		return fmt.Errorf("bucket: decode vector: %w", err)
	}
	return nil
}
