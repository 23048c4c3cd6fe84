package bbann

import (
	"fmt"
	"os"
	"time"

	"github.com/vecdb/bbann/internal/binfile"
	"github.com/vecdb/bbann/internal/bucket"
	"github.com/vecdb/bbann/internal/graph"
	"github.com/vecdb/bbann/internal/ids"
	"github.com/vecdb/bbann/internal/kernel"
	"github.com/vecdb/bbann/internal/kmeans"
	"github.com/vecdb/bbann/internal/quantization"
	"github.com/vecdb/bbann/internal/sampler"
	"github.com/vecdb/bbann/pkg/observability"
)

const elemSizeFloat32 = 4

// Build trains a coarse k-means codebook over a reservoir sample of
// dataFile, partitions the corpus into coarse clusters, recursively
// splits each cluster into fixed-size disk buckets, and assembles the
// proximity graph over bucket centroids. Every artifact is written under
// prefix following the naming convention in the package's on-disk layout
// (cluster-<c>-raw_data.bin, cluster-<c>-global_ids.bin,
// bucket-centroids.bin, cluster-combine_ids.bin, hnsw-index.bin).
//
// metrics may be nil; when set, build-phase durations and bucket/graph
// gauges are recorded on it.
func Build(dataFile, prefix string, opts BuildOptions, metrics *observability.Metrics) (*Stats, error) {
	if opts.K1 <= 0 {
		return nil, fmt.Errorf("bbann: K1 must be positive, got %d", opts.K1)
	}
	if opts.BlockSize <= 0 {
		return nil, fmt.Errorf("bbann: block size must be positive, got %d", opts.BlockSize)
	}

	header, err := binfile.GetMetadata(dataFile)
	if err != nil {
		return nil, fmt.Errorf("bbann: read corpus metadata: %w", err)
	}
	n, dim := int(header.N), int(header.Dim)
	if n == 0 || dim == 0 {
		return nil, fmt.Errorf("bbann: corpus %s is empty or malformed (n=%d, dim=%d)", dataFile, n, dim)
	}

	timed := func(phase string, fn func() error) error {
		start := time.Now()
		err := fn()
		if metrics != nil {
			metrics.RecordBuildPhase(phase, time.Since(start))
		}
		return err
	}

	var sq *quantization.ScalarQuantizer
	var centroids [][]float32
	var counts []int

	if err := timed("sample_and_train", func() error {
		sampleNum := sampler.SampleCount(n, opts.K1SampleRate, opts.K1)
		flat, sampleDim, err := sampler.ReservoirFloat32(dataFile, sampleNum, opts.Seed)
		if err != nil {
			return fmt.Errorf("sample corpus: %w", err)
		}
		if sampleDim != dim {
			return fmt.Errorf("bbann: sample dim %d != corpus dim %d", sampleDim, dim)
		}
		sampleVectors := unflatten(flat, dim)

		if opts.VectorUseSQ || opts.UseHnswSQ {
			sq = quantization.NewScalarQuantizer()
			if err := sq.Train(sampleVectors); err != nil {
				return fmt.Errorf("train scalar quantizer: %w", err)
			}
		}

		kmCfg := kmeans.DefaultConfig(opts.K1)
		kmCfg.Seed = opts.Seed
		kmCfg.NormalizeCentroids = opts.Metric == kernel.IP
		result, err := kmeans.Train(sampleVectors, kmCfg)
		if err != nil {
			return fmt.Errorf("train coarse centroids: %w", err)
		}
		centroids = result.Centroids
		return nil
	}); err != nil {
		return nil, err
	}

	if err := timed("partition", func() error {
		c, err := bucket.Partition(dataFile, centroids, opts.Metric, prefix)
		if err != nil {
			return fmt.Errorf("partition corpus: %w", err)
		}
		counts = c
		return nil
	}); err != nil {
		return nil, err
	}

	capacity := bucket.Capacity(opts.BlockSize, dim, elemSizeFloat32)
	if capacity < 1 {
		return nil, fmt.Errorf("bbann: block size %d too small for dim %d", opts.BlockSize, dim)
	}

	g := graph.New(graph.Config{M: opts.HnswM, EfConstruction: opts.HnswEfConstruction, Metric: opts.Metric, Seed: opts.Seed})
	var allCentroids []float32
	var combineIDs []uint32
	bstats := bucketStatsAccumulator{}
	totalVectors := 0

	if err := timed("bucket_build", func() error {
		for cid, count := range counts {
			if count == 0 {
				continue
			}
			rawPath := clusterScratchPath(prefix, cid)
			vectors, gids, err := bucket.ReadRawCluster(rawPath, dim)
			if err != nil {
				return fmt.Errorf("read scratch cluster %d: %w", cid, err)
			}
			if err := os.Remove(rawPath); err != nil {
				return fmt.Errorf("remove scratch cluster %d: %w", cid, err)
			}

			if err := binfile.WriteUint32(clusterGlobalIDsPath(prefix, cid), uint32(len(gids)), 1, gids); err != nil {
				return fmt.Errorf("write global ids for cluster %d: %w", cid, err)
			}

			if sq != nil && opts.VectorUseSQ {
				vectors = roundTripQuantize(sq, vectors)
			}

			leaves, err := bucket.Split(vectors, capacity, bucket.DefaultRecursiveConfig())
			if err != nil {
				return fmt.Errorf("split cluster %d: %w", cid, err)
			}

			blockPath := clusterBlockPath(prefix, cid)
			leafCentroids, err := bucket.WriteClusterBuckets(blockPath, uint32(cid), vectors, gids, leaves, opts.BlockSize, dim, opts.Metric)
			if err != nil {
				return fmt.Errorf("write buckets for cluster %d: %w", cid, err)
			}

			for bid, leaf := range leaves {
				members := make([][]float32, len(leaf))
				for i, idx := range leaf {
					v := vectors[idx]
					if sq != nil && opts.UseHnswSQ {
						v = roundTripQuantizeOne(sq, v)
					}
					members[i] = v
				}
				payload := leafCentroids[bid].Centroid
				if sq != nil && opts.UseHnswSQ {
					payload = roundTripQuantizeOne(sq, payload)
				}
				src := graph.CentroidSource{Cid: uint32(cid), Bid: uint32(bid), Centroid: payload, Members: members}
				if err := graph.BuildFromCentroids(g, []graph.CentroidSource{src}, opts.BucketSample); err != nil {
					return fmt.Errorf("insert bucket %d of cluster %d into graph: %w", bid, cid, err)
				}
				allCentroids = append(allCentroids, leafCentroids[bid].Centroid...)
				combineIDs = append(combineIDs, ids.ComposeBlock(uint32(cid), uint32(bid)))
				bstats.add(leafCentroids[bid].Size)
				totalVectors += leafCentroids[bid].Size
			}

			if metrics != nil {
				metrics.AddBuildVectors(count)
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if err := binfile.WriteFloat32(prefix+"bucket-centroids.bin", uint32(bstats.count), uint32(dim), allCentroids); err != nil {
		return nil, fmt.Errorf("write bucket centroids: %w", err)
	}
	if err := binfile.WriteUint32(prefix+"cluster-combine_ids.bin", uint32(len(combineIDs)), 1, combineIDs); err != nil {
		return nil, fmt.Errorf("write combine ids: %w", err)
	}

	if err := timed("graph_save", func() error {
		return g.Save(prefix + "hnsw-index.bin")
	}); err != nil {
		return nil, fmt.Errorf("save graph: %w", err)
	}

	meta := buildMeta{
		BlockSize:   uint32(opts.BlockSize),
		K1:          uint32(opts.K1),
		Dim:         uint32(dim),
		Metric:      metricByte(opts.Metric),
		VectorUseSQ: boolByte(opts.VectorUseSQ),
		UseHnswSQ:   boolByte(opts.UseHnswSQ),
	}
	if err := writeBuildMeta(prefix, meta); err != nil {
		return nil, err
	}

	if metrics != nil {
		metrics.UpdateBucketStats(bstats.count, bstats.avg(), float64(bstats.max), float64(bstats.min))
		metrics.UpdateGraphPoints(g.Size())
	}

	return &Stats{
		Clusters:      countNonEmpty(counts),
		Buckets:       bstats.count,
		Vectors:       totalVectors,
		GraphPoints:   g.Size(),
		BucketSizeAvg: bstats.avg(),
		BucketSizeMax: bstats.max,
		BucketSizeMin: bstats.min,
	}, nil
}

func clusterScratchPath(prefix string, cid int) string {
	return fmt.Sprintf("%scluster_%d.raw", prefix, cid)
}

func clusterBlockPath(prefix string, cid int) string {
	return fmt.Sprintf("%scluster-%d-raw_data.bin", prefix, cid)
}

func clusterGlobalIDsPath(prefix string, cid int) string {
	return fmt.Sprintf("%scluster-%d-global_ids.bin", prefix, cid)
}

func unflatten(flat []float32, dim int) [][]float32 {
	n := len(flat) / dim
	out := make([][]float32, n)
	for i := 0; i < n; i++ {
		out[i] = flat[i*dim : (i+1)*dim]
	}
	return out
}

func roundTripQuantize(sq *quantization.ScalarQuantizer, vectors [][]float32) [][]float32 {
	out := make([][]float32, len(vectors))
	for i, v := range vectors {
		out[i] = roundTripQuantizeOne(sq, v)
	}
	return out
}

func roundTripQuantizeOne(sq *quantization.ScalarQuantizer, v []float32) []float32 {
	return sq.Dequantize(sq.Quantize(v))
}

func countNonEmpty(counts []int) int {
	n := 0
	for _, c := range counts {
		if c > 0 {
			n++
		}
	}
	return n
}
