package bbann

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/vecdb/bbann/internal/kernel"
)

// buildMeta captures the build-time parameters spec.md documents as
// "binding for all subsequent operations against that index prefix":
// block size, K1, dim, metric, and the two SQ flags. Element type is not
// recorded, since blocks are always float32. The on-disk layout table has no
// slot for these, so they are persisted in a small sidecar file,
// <prefix>bbann-meta.bin, that Load reads instead of requiring the
// caller to replay the original build call's arguments.
type buildMeta struct {
	BlockSize   uint32
	K1          uint32
	Dim         uint32
	Metric      uint8
	VectorUseSQ uint8
	UseHnswSQ   uint8
}

func metaPath(prefix string) string {
	return prefix + "bbann-meta.bin"
}

func writeBuildMeta(prefix string, m buildMeta) error {
	f, err := os.Create(metaPath(prefix))
	if err != nil {
		return fmt.Errorf("bbann: create meta file: %w", err)
	}
	defer f.Close()
	return binary.Write(f, binary.LittleEndian, m)
}

func readBuildMeta(prefix string) (buildMeta, error) {
	f, err := os.Open(metaPath(prefix))
	if err != nil {
		return buildMeta{}, fmt.Errorf("bbann: open meta file: %w", err)
	}
	defer f.Close()
	var m buildMeta
	if err := binary.Read(f, binary.LittleEndian, &m); err != nil {
		return buildMeta{}, fmt.Errorf("bbann: decode meta file: %w", err)
	}
	return m, nil
}

func metricByte(m kernel.Metric) uint8 {
	if m == kernel.IP {
		return 1
	}
	return 0
}

func byteMetric(b uint8) kernel.Metric {
	if b == 1 {
		return kernel.IP
	}
	return kernel.L2
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
