// Package bbann is the top-level orchestrator for the billion-scale,
// disk-resident approximate nearest-neighbor index: it wires the coarse
// k-means trainer, the recursive bucket builder, the proximity graph, and
// the async fetch engine into the two public entry points, Build and
// Load, that the rest of the module (CLI, REST server) is built
// against.
package bbann

import (
	"fmt"

	"github.com/vecdb/bbann/internal/kernel"
	"github.com/vecdb/bbann/pkg/config"
)

// BuildOptions controls one call to Build. Zero value is not usable;
// start from DefaultBuildOptions or FromBuildConfig.
type BuildOptions struct {
	Metric kernel.Metric

	K1                 int
	K1SampleRate       float64
	BlockSize          int
	HnswM              int
	HnswEfConstruction int
	BucketSample       int
	Seed               int64

	VectorUseSQ bool
	UseHnswSQ   bool
}

// DefaultBuildOptions matches the original's documented defaults.
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{
		Metric:             kernel.L2,
		K1:                 256,
		K1SampleRate:       0.01,
		BlockSize:          4096,
		HnswM:              32,
		HnswEfConstruction: 500,
		BucketSample:       1,
		Seed:               42,
	}
}

// FromBuildConfig converts the env/flag-driven BuildConfig into
// BuildOptions, rejecting any unsupported metric name.
func FromBuildConfig(c config.BuildConfig) (BuildOptions, error) {
	metric, err := parseMetric(c.Metric)
	if err != nil {
		return BuildOptions{}, err
	}
	return BuildOptions{
		Metric:             metric,
		K1:                 c.K1,
		K1SampleRate:       c.K1SampleRate,
		BlockSize:          c.BlockSize,
		HnswM:              c.HnswM,
		HnswEfConstruction: c.HnswEfConstruction,
		BucketSample:       c.BucketSample,
		Seed:               42,
		VectorUseSQ:        c.VectorUseSQ,
		UseHnswSQ:          c.UseHnswSQ,
	}, nil
}

// ParseMetric parses a metric name ("L2" or "IP", case-insensitive) as
// used by CLI flags and environment configuration.
func ParseMetric(name string) (kernel.Metric, error) {
	return parseMetric(name)
}

func parseMetric(name string) (kernel.Metric, error) {
	switch name {
	case "L2", "l2", "":
		return kernel.L2, nil
	case "IP", "ip":
		return kernel.IP, nil
	default:
		return 0, fmt.Errorf("bbann: unsupported metric %q", name)
	}
}

// SearchOptions controls one call to KNN or Range.
type SearchOptions struct {
	NProbe                int
	EfSearch              int
	RadiusFactor          float64
	RangeSearchProbeCount int
}

// DefaultSearchOptions matches the original's documented defaults.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		NProbe:                16,
		EfSearch:              64,
		RadiusFactor:          1.0,
		RangeSearchProbeCount: 16,
	}
}

// FromSearchConfig converts the env/flag-driven SearchConfig into
// SearchOptions.
func FromSearchConfig(c config.SearchConfig) SearchOptions {
	probeCount := c.RangeSearchProbeCount
	if probeCount <= 0 {
		probeCount = c.NProbe
	}
	return SearchOptions{
		NProbe:                c.NProbe,
		EfSearch:              c.EfSearch,
		RadiusFactor:          c.RadiusFactor,
		RangeSearchProbeCount: probeCount,
	}
}
