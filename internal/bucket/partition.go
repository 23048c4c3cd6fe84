package bucket

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vecdb/bbann/internal/binfile"
	"github.com/vecdb/bbann/internal/kernel"
)

// Partition streams a vector file once, assigning every row to its
// nearest of the trained coarse centroids, and appends the row plus its
// global row index to a per-cluster scratch file named
// <prefix>cluster_<cid>.raw (a headerless run of fixed-size records
// consumed only by ReadRawCluster). prefix is concatenated directly with
// the filename, matching the index-prefix convention used throughout the
// on-disk layout: it may be a directory path ending in "/" or a directory
// path plus a shared filename stem.
//
// It returns the row count written to each cluster file, indexed by
// coarse cluster id.
func Partition(corpusPath string, centroids [][]float32, metric kernel.Metric, prefix string) ([]int, error) {
	if len(centroids) == 0 {
		return nil, fmt.Errorf("bucket: no centroids to partition against")
	}
	if dir := filepath.Dir(prefix); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("bucket: mkdir %s: %w", dir, err)
		}
	}

	r, err := binfile.OpenReader(corpusPath, 4)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	dim := int(r.Dim)
	k1 := len(centroids)

	tmpFiles := make([]*os.File, k1)
	counts := make([]int, k1)
	defer func() {
		for _, f := range tmpFiles {
			if f != nil {
				f.Close()
			}
		}
	}()

	row := make([]float32, dim)
	for gid := uint32(0); gid < r.N; gid++ {
		if err := r.ReadRecord(row); err != nil {
			return nil, fmt.Errorf("bucket: read row %d: %w", gid, err)
		}
		cid := nearestCentroid(row, centroids, metric)

		f := tmpFiles[cid]
		if f == nil {
			path := fmt.Sprintf("%scluster_%d.raw", prefix, cid)
			f, err = os.Create(path)
			if err != nil {
				return nil, fmt.Errorf("bucket: create %s: %w", path, err)
			}
			tmpFiles[cid] = f
		}
		if err := writeRawRecord(f, row, gid); err != nil {
			return nil, err
		}
		counts[cid]++
	}

	return counts, nil
}

func nearestCentroid(v []float32, centroids [][]float32, metric kernel.Metric) int {
	best, bestDist := 0, float32(0)
	for c, ct := range centroids {
		d := kernel.Distance(metric, v, ct)
		if c == 0 || d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// writeRawRecord appends (vector, global_id) to a per-cluster scratch file;
// this intermediate format is consumed only by ReadRawCluster and is never
// read by the search path.
func writeRawRecord(f *os.File, vec []float32, gid uint32) error {
	buf := make([]byte, len(vec)*4+4)
	for i, x := range vec {
		putFloat32(buf[i*4:], x)
	}
	putUint32(buf[len(vec)*4:], gid)
	_, err := f.Write(buf)
	if err != nil {
		return fmt.Errorf("bucket: write raw record: %w", err)
	}
	return nil
}

// ReadRawCluster loads a whole per-cluster scratch file written by
// Partition back into memory for the recursive builder. Coarse clusters
// are sized so one fits comfortably in memory even when the parent corpus
// does not.
func ReadRawCluster(path string, dim int) ([][]float32, []uint32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("bucket: read %s: %w", path, err)
	}
	recSize := dim*4 + 4
	if len(data)%recSize != 0 {
		return nil, nil, fmt.Errorf("bucket: %s size %d not a multiple of record size %d", path, len(data), recSize)
	}
	n := len(data) / recSize
	vectors := make([][]float32, n)
	ids := make([]uint32, n)
	for i := 0; i < n; i++ {
		rec := data[i*recSize : (i+1)*recSize]
		vec := make([]float32, dim)
		for d := 0; d < dim; d++ {
			vec[d] = getFloat32(rec[d*4:])
		}
		vectors[i] = vec
		ids[i] = getUint32(rec[dim*4:])
	}
	return vectors, ids, nil
}
