// Package sampler implements reservoir sampling (Algorithm R) over a
// vector file, used to draw the training subset for coarse K-means without
// loading the whole corpus into memory.
package sampler

import (
	"fmt"
	"math/rand"

	"github.com/vecdb/bbann/internal/binfile"
)

// ReservoirFloat32 draws sampleNum rows from the float32 vector file at
// path using single-pass reservoir sampling, returning them flattened and
// the corpus dimension. sampleNum must be <= the file's row count.
func ReservoirFloat32(path string, sampleNum int, seed int64) ([]float32, int, error) {
	r, err := binfile.OpenReader(path, 4)
	if err != nil {
		return nil, 0, err
	}
	defer r.Close()

	dim := int(r.Dim)
	total := int(r.N)
	if sampleNum > total {
		return nil, 0, fmt.Errorf("sampler: sample_num %d exceeds row count %d", sampleNum, total)
	}

	sample := make([]float32, sampleNum*dim)
	for i := 0; i < sampleNum; i++ {
		if err := r.ReadRecord(sample[i*dim : (i+1)*dim]); err != nil {
			return nil, 0, fmt.Errorf("sampler: fill reservoir row %d: %w", i, err)
		}
	}

	rng := rand.New(rand.NewSource(seed))
	tmp := make([]float32, dim)
	for i := sampleNum; i < total; i++ {
		if err := r.ReadRecord(tmp); err != nil {
			return nil, 0, fmt.Errorf("sampler: stream row %d: %w", i, err)
		}
		j := rng.Intn(i + 1)
		if j < sampleNum {
			copy(sample[j*dim:(j+1)*dim], tmp)
		}
	}

	return sample, dim, nil
}

// SampleCount returns the training sample size for a corpus of n rows given
// a sample rate in (0, 1], always keeping at least min rows (when the
// corpus has at least that many) so tiny corpora still train a usable
// coarse clustering.
func SampleCount(n int, rate float64, min int) int {
	count := int(float64(n) * rate)
	if count < min {
		count = min
	}
	if count > n {
		count = n
	}
	return count
}
