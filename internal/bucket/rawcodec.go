package bucket

import (
	"encoding/binary"
	"math"
)

func putFloat32(buf []byte, v float32) {
	binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
}

func getFloat32(buf []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf))
}

func putUint32(buf []byte, v uint32) {
	binary.LittleEndian.PutUint32(buf, v)
}

func getUint32(buf []byte) uint32 {
	return binary.LittleEndian.Uint32(buf)
}
