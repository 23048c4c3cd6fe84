package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all bbann server configuration.
type Config struct {
	Server ServerConfig
	REST   RESTConfig
	Build  BuildConfig
	Search SearchConfig
}

// ServerConfig holds general server configuration; the REST listener
// itself is configured by RESTConfig.
type ServerConfig struct {
	Host            string        // Server host (default: "0.0.0.0")
	Port            int           // Server port (default: 50051)
	MaxConnections  int           // Max concurrent connections
	RequestTimeout  time.Duration // Request timeout
	ShutdownTimeout time.Duration // Graceful shutdown timeout
	EnableTLS       bool          // Enable TLS
	CertFile        string        // TLS certificate file
	KeyFile         string        // TLS key file
}

// RESTConfig holds the JSON-over-HTTP search server's configuration.
type RESTConfig struct {
	Host             string   // REST host (default: "0.0.0.0")
	Port             int      // REST port (default: 8080)
	CORSEnabled      bool     // Enable CORS headers
	CORSOrigins      []string // Allowed CORS origins ("*" for all)
	AuthEnabled      bool     // Require a bearer JWT on non-public paths
	JWTSecret        string   // HMAC secret for JWT validation
	PublicPaths      []string // Path prefixes exempt from auth
	AdminPaths       []string // Path prefixes requiring the admin role
	RateLimitEnabled bool     // Enable request rate limiting
	RateLimitPerSec  float64  // Sustained requests per second
	RateLimitBurst   int      // Burst allowance
	RateLimitPerIP   bool     // Rate limit per client IP
	RateLimitPerUser bool     // Rate limit per authenticated user
	RateLimitGlobal  bool     // Apply a single limit across all clients
}

// BuildConfig holds index-build configuration.
type BuildConfig struct {
	Metric         string  // "L2" or "IP"
	K1             int     // Number of coarse clusters (default: 256)
	BlockSize      int     // Disk block size in bytes, a multiple of the page size (default: 4096)
	HnswM          int     // Graph degree (default: 32)
	HnswEfConstruction int // Graph construction beam width (default: 500)
	BucketSample   int     // Extremal samples added per bucket, including the centroid (default: 1, no extremal samples)
	K1SampleRate   float64 // Fraction of the corpus reservoir-sampled to train K1 centroids (default: 0.01)
	VectorUseSQ    bool    // Scalar-quantize stored bucket vectors
	UseHnswSQ      bool    // Scalar-quantize graph payload vectors
	Dimensions     int     // Vector dimensions
}

// SearchConfig holds query-time defaults.
type SearchConfig struct {
	NProbe               int     // Candidate buckets probed per query (default: 16)
	EfSearch             int     // Graph search beam width (default: 64)
	DefaultTopK          int     // Default knn result count (default: 10)
	RadiusFactor         float64 // Over-fetch factor applied to range-search radius (default: 1.0)
	RangeSearchProbeCount int    // nprobe used for range search when not explicitly set (default: NProbe)
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            50051,
			MaxConnections:  1000,
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			EnableTLS:       false,
		},
		REST: RESTConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			CORSEnabled:     true,
			CORSOrigins:     []string{"*"},
			AuthEnabled:     false,
			PublicPaths:     []string{"/v1/health"},
			RateLimitEnabled: false,
			RateLimitPerSec: 100,
			RateLimitBurst:  200,
			RateLimitPerIP:  true,
		},
		Build: BuildConfig{
			Metric:             "L2",
			K1:                 256,
			BlockSize:          4096,
			HnswM:              32,
			HnswEfConstruction: 500,
			BucketSample:       1,
			K1SampleRate:       0.01,
			VectorUseSQ:        false,
			UseHnswSQ:          false,
			Dimensions:         768,
		},
		Search: SearchConfig{
			NProbe:                16,
			EfSearch:              64,
			DefaultTopK:           10,
			RadiusFactor:          1.0,
			RangeSearchProbeCount: 16,
		},
	}
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() *Config {
	cfg := Default()

	// Server configuration
	if host := os.Getenv("BBANN_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("BBANN_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if maxConn := os.Getenv("BBANN_MAX_CONNECTIONS"); maxConn != "" {
		if mc, err := strconv.Atoi(maxConn); err == nil {
			cfg.Server.MaxConnections = mc
		}
	}
	if timeout := os.Getenv("BBANN_REQUEST_TIMEOUT"); timeout != "" {
		if t, err := time.ParseDuration(timeout); err == nil {
			cfg.Server.RequestTimeout = t
		}
	}
	if enableTLS := os.Getenv("BBANN_ENABLE_TLS"); enableTLS == "true" {
		cfg.Server.EnableTLS = true
		cfg.Server.CertFile = os.Getenv("BBANN_TLS_CERT")
		cfg.Server.KeyFile = os.Getenv("BBANN_TLS_KEY")
	}

	// REST configuration
	if host := os.Getenv("BBANN_REST_HOST"); host != "" {
		cfg.REST.Host = host
	}
	if port := os.Getenv("BBANN_REST_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.REST.Port = p
		}
	}
	if cors := os.Getenv("BBANN_REST_CORS_ENABLED"); cors != "" {
		cfg.REST.CORSEnabled = cors == "true"
	}
	if origins := os.Getenv("BBANN_REST_CORS_ORIGINS"); origins != "" {
		cfg.REST.CORSOrigins = strings.Split(origins, ",")
	}
	if auth := os.Getenv("BBANN_REST_AUTH_ENABLED"); auth == "true" {
		cfg.REST.AuthEnabled = true
		cfg.REST.JWTSecret = os.Getenv("BBANN_REST_JWT_SECRET")
	}
	if rl := os.Getenv("BBANN_REST_RATE_LIMIT_ENABLED"); rl == "true" {
		cfg.REST.RateLimitEnabled = true
	}
	if rps := os.Getenv("BBANN_REST_RATE_LIMIT_PER_SEC"); rps != "" {
		if v, err := strconv.ParseFloat(rps, 64); err == nil {
			cfg.REST.RateLimitPerSec = v
		}
	}
	if burst := os.Getenv("BBANN_REST_RATE_LIMIT_BURST"); burst != "" {
		if v, err := strconv.Atoi(burst); err == nil {
			cfg.REST.RateLimitBurst = v
		}
	}

	// Build configuration
	if metric := os.Getenv("BBANN_METRIC"); metric != "" {
		cfg.Build.Metric = metric
	}
	if k1 := os.Getenv("BBANN_K1"); k1 != "" {
		if v, err := strconv.Atoi(k1); err == nil {
			cfg.Build.K1 = v
		}
	}
	if bs := os.Getenv("BBANN_BLOCK_SIZE"); bs != "" {
		if v, err := strconv.Atoi(bs); err == nil {
			cfg.Build.BlockSize = v
		}
	}
	if m := os.Getenv("BBANN_HNSW_M"); m != "" {
		if v, err := strconv.Atoi(m); err == nil {
			cfg.Build.HnswM = v
		}
	}
	if ef := os.Getenv("BBANN_HNSW_EF_CONSTRUCTION"); ef != "" {
		if v, err := strconv.Atoi(ef); err == nil {
			cfg.Build.HnswEfConstruction = v
		}
	}
	if sample := os.Getenv("BBANN_BUCKET_SAMPLE"); sample != "" {
		if v, err := strconv.Atoi(sample); err == nil {
			cfg.Build.BucketSample = v
		}
	}
	if rate := os.Getenv("BBANN_K1_SAMPLE_RATE"); rate != "" {
		if v, err := strconv.ParseFloat(rate, 64); err == nil {
			cfg.Build.K1SampleRate = v
		}
	}
	if sq := os.Getenv("BBANN_VECTOR_USE_SQ"); sq == "true" {
		cfg.Build.VectorUseSQ = true
	}
	if hsq := os.Getenv("BBANN_USE_HNSW_SQ"); hsq == "true" {
		cfg.Build.UseHnswSQ = true
	}
	if dims := os.Getenv("BBANN_DIMENSIONS"); dims != "" {
		if v, err := strconv.Atoi(dims); err == nil {
			cfg.Build.Dimensions = v
		}
	}

	// Search configuration
	if nprobe := os.Getenv("BBANN_NPROBE"); nprobe != "" {
		if v, err := strconv.Atoi(nprobe); err == nil {
			cfg.Search.NProbe = v
		}
	}
	if ef := os.Getenv("BBANN_EF_SEARCH"); ef != "" {
		if v, err := strconv.Atoi(ef); err == nil {
			cfg.Search.EfSearch = v
		}
	}
	if topk := os.Getenv("BBANN_DEFAULT_TOPK"); topk != "" {
		if v, err := strconv.Atoi(topk); err == nil {
			cfg.Search.DefaultTopK = v
		}
	}
	if rf := os.Getenv("BBANN_RADIUS_FACTOR"); rf != "" {
		if v, err := strconv.ParseFloat(rf, 64); err == nil {
			cfg.Search.RadiusFactor = v
		}
	}
	if rpc := os.Getenv("BBANN_RANGE_PROBE_COUNT"); rpc != "" {
		if v, err := strconv.Atoi(rpc); err == nil {
			cfg.Search.RangeSearchProbeCount = v
		}
	}

	return cfg
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.MaxConnections < 1 {
		return fmt.Errorf("invalid max connections: %d (must be > 0)", c.Server.MaxConnections)
	}
	if c.Server.EnableTLS {
		if c.Server.CertFile == "" || c.Server.KeyFile == "" {
			return fmt.Errorf("TLS enabled but cert or key file not specified")
		}
	}

	// REST validation
	if c.REST.Port < 1 || c.REST.Port > 65535 {
		return fmt.Errorf("invalid REST port: %d (must be 1-65535)", c.REST.Port)
	}
	if c.REST.AuthEnabled && c.REST.JWTSecret == "" {
		return fmt.Errorf("REST auth enabled but no JWT secret configured")
	}

	// Build validation
	if c.Build.Metric != "L2" && c.Build.Metric != "IP" {
		return fmt.Errorf("invalid metric: %q (must be L2 or IP)", c.Build.Metric)
	}
	if c.Build.K1 < 1 {
		return fmt.Errorf("invalid K1: %d (must be > 0)", c.Build.K1)
	}
	if c.Build.BlockSize < 4096 || c.Build.BlockSize%4096 != 0 {
		return fmt.Errorf("invalid block size: %d (must be a positive multiple of 4096)", c.Build.BlockSize)
	}
	if c.Build.HnswM < 2 || c.Build.HnswM > 100 {
		return fmt.Errorf("invalid HNSW M: %d (recommended: 32)", c.Build.HnswM)
	}
	if c.Build.HnswEfConstruction < 10 {
		return fmt.Errorf("invalid HNSW efConstruction: %d (must be >= 10)", c.Build.HnswEfConstruction)
	}
	if c.Build.K1SampleRate <= 0 || c.Build.K1SampleRate > 1 {
		return fmt.Errorf("invalid K1 sample rate: %f (must be in (0, 1])", c.Build.K1SampleRate)
	}
	if c.Build.Dimensions < 1 {
		return fmt.Errorf("invalid dimensions: %d (must be > 0)", c.Build.Dimensions)
	}

	// Search validation
	if c.Search.NProbe < 1 {
		return fmt.Errorf("invalid nProbe: %d (must be > 0)", c.Search.NProbe)
	}
	if c.Search.EfSearch < 1 {
		return fmt.Errorf("invalid efSearch: %d (must be > 0)", c.Search.EfSearch)
	}
	if c.Search.RadiusFactor <= 0 {
		return fmt.Errorf("invalid radius factor: %f (must be > 0)", c.Search.RadiusFactor)
	}

	return nil
}

// Address returns the server address (host:port).
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
