package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/vecdb/bbann/pkg/bbann"
	"github.com/vecdb/bbann/pkg/observability"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		showUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	switch command {
	case "build":
		handleBuild(os.Args[2:])
	case "search":
		handleSearch(os.Args[2:])
	case "range":
		handleRange(os.Args[2:])
	case "version":
		fmt.Printf("bbann-cli version %s\n", version)
	case "help", "-h", "--help":
		showUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		showUsage()
		os.Exit(1)
	}
}

func handleBuild(args []string) {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	var (
		dataFile     = fs.String("data", "", "path to the raw vector corpus file (required)")
		prefix       = fs.String("prefix", "", "output index path prefix (required)")
		metricFlag   = fs.String("metric", "L2", "distance metric: L2 or IP")
		k1           = fs.Int("k1", 256, "number of coarse clusters")
		blockSize    = fs.Int("block-size", 4096, "disk block size in bytes, a multiple of the page size")
		hnswM        = fs.Int("m", 32, "HNSW graph degree")
		hnswEf       = fs.Int("ef-construction", 500, "HNSW construction beam width")
		bucketSample = fs.Int("bucket-sample", 1, "extremal samples inserted per bucket, including the centroid")
		sampleRate   = fs.Float64("k1-sample-rate", 0.01, "fraction of the corpus reservoir-sampled to train K1 centroids")
		useSQ        = fs.Bool("vector-sq", false, "scalar-quantize stored bucket vectors")
		useHnswSQ    = fs.Bool("hnsw-sq", false, "scalar-quantize graph payload vectors")
	)
	fs.Parse(args)

	if *dataFile == "" || *prefix == "" {
		fmt.Println("Error: -data and -prefix are required")
		fs.Usage()
		os.Exit(1)
	}

	metric, err := bbann.ParseMetric(*metricFlag)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	opts := bbann.DefaultBuildOptions()
	opts.Metric = metric
	opts.K1 = *k1
	opts.BlockSize = *blockSize
	opts.HnswM = *hnswM
	opts.HnswEfConstruction = *hnswEf
	opts.BucketSample = *bucketSample
	opts.K1SampleRate = *sampleRate
	opts.VectorUseSQ = *useSQ
	opts.UseHnswSQ = *useHnswSQ

	metrics := observability.NewMetrics()

	start := time.Now()
	stats, err := bbann.Build(*dataFile, *prefix, opts, metrics)
	if err != nil {
		fmt.Printf("Build failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Build complete in %v\n", time.Since(start))
	fmt.Printf("  clusters:     %d\n", stats.Clusters)
	fmt.Printf("  buckets:      %d\n", stats.Buckets)
	fmt.Printf("  vectors:      %d\n", stats.Vectors)
	fmt.Printf("  graph points: %d\n", stats.GraphPoints)
	fmt.Printf("  bucket size:  avg=%.1f min=%d max=%d\n", stats.BucketSizeAvg, stats.BucketSizeMin, stats.BucketSizeMax)
}

func handleSearch(args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	var (
		prefix     = fs.String("prefix", "", "index path prefix produced by `build` (required)")
		metricFlag = fs.String("metric", "L2", "metric the index was built with")
		queryStr   = fs.String("query", "", "query vector as a JSON array, or an array of arrays for a batch (required)")
		topk       = fs.Int("k", 10, "number of results per query")
		nprobe     = fs.Int("nprobe", 16, "candidate buckets probed per query")
		ef         = fs.Int("ef", 64, "graph search beam width")
	)
	fs.Parse(args)

	if *prefix == "" || *queryStr == "" {
		fmt.Println("Error: -prefix and -query are required")
		fs.Usage()
		os.Exit(1)
	}

	queries, err := parseQueries(*queryStr)
	if err != nil {
		fmt.Printf("Error parsing query: %v\n", err)
		os.Exit(1)
	}

	metric, err := bbann.ParseMetric(*metricFlag)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	h, err := bbann.Load(*prefix, metric, bbann.LoadOptions{})
	if err != nil {
		fmt.Printf("Error loading index: %v\n", err)
		os.Exit(1)
	}
	defer h.Close()

	ids, dists, err := h.KNN(queries, *topk, *nprobe, *ef)
	if err != nil {
		fmt.Printf("Search failed: %v\n", err)
		os.Exit(1)
	}

	for i := range queries {
		fmt.Printf("query %d:\n", i)
		for j := range ids[i] {
			fmt.Printf("  %d: id=%d distance=%.6f\n", j, ids[i][j], dists[i][j])
		}
	}
}

func handleRange(args []string) {
	fs := flag.NewFlagSet("range", flag.ExitOnError)
	var (
		prefix       = fs.String("prefix", "", "index path prefix produced by `build` (required)")
		metricFlag   = fs.String("metric", "L2", "metric the index was built with")
		queryStr     = fs.String("query", "", "query vector as a JSON array, or an array of arrays for a batch (required)")
		radius       = fs.Float64("radius", 0, "search radius (required)")
		radiusFactor = fs.Float64("radius-factor", 1.0, "over-fetch factor applied to the radius")
		probeCount   = fs.Int("probe-count", 16, "candidate buckets probed per query")
		ef           = fs.Int("ef", 64, "graph search beam width")
	)
	fs.Parse(args)

	if *prefix == "" || *queryStr == "" {
		fmt.Println("Error: -prefix and -query are required")
		fs.Usage()
		os.Exit(1)
	}

	queries, err := parseQueries(*queryStr)
	if err != nil {
		fmt.Printf("Error parsing query: %v\n", err)
		os.Exit(1)
	}

	metric, err := bbann.ParseMetric(*metricFlag)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	h, err := bbann.Load(*prefix, metric, bbann.LoadOptions{})
	if err != nil {
		fmt.Printf("Error loading index: %v\n", err)
		os.Exit(1)
	}
	defer h.Close()

	ids, dists, limits, err := h.Range(queries, *radius, *radiusFactor, *probeCount, *ef)
	if err != nil {
		fmt.Printf("Range search failed: %v\n", err)
		os.Exit(1)
	}

	for i := range queries {
		fmt.Printf("query %d: %d matches\n", i, limits[i+1]-limits[i])
		for j := limits[i]; j < limits[i+1]; j++ {
			fmt.Printf("  id=%d distance=%.6f\n", ids[j], dists[j])
		}
	}
}

func parseQueries(s string) ([][]float32, error) {
	var batch [][]float32
	if err := json.Unmarshal([]byte(s), &batch); err == nil && len(batch) > 0 {
		return batch, nil
	}
	var single []float32
	if err := json.Unmarshal([]byte(s), &single); err != nil {
		return nil, err
	}
	return [][]float32{single}, nil
}

func showUsage() {
	fmt.Println(`bbann-cli - build and query a billion-scale disk-resident ANN index

Usage:
  bbann-cli <command> [options]

Commands:
  build     Build an index from a raw vector corpus
  search    Run top-k nearest-neighbor queries against a built index
  range     Run radius queries against a built index
  version   Show version
  help      Show this help message

Examples:

  # Build an index
  bbann-cli build -data corpus.bin -prefix /data/myindex/ -metric L2 -k1 256

  # Top-k search
  bbann-cli search -prefix /data/myindex/ -query '[0.1,0.2,0.3]' -k 10

  # Range search
  bbann-cli range -prefix /data/myindex/ -query '[0.1,0.2,0.3]' -radius 1.5`)
}
