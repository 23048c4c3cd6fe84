package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/vecdb/bbann/pkg/api/rest"
	"github.com/vecdb/bbann/pkg/api/rest/middleware"
	"github.com/vecdb/bbann/pkg/bbann"
	"github.com/vecdb/bbann/pkg/config"
	"github.com/vecdb/bbann/pkg/observability"
)

var (
	version = "1.0.0"
	commit  = "dev"
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "show version and exit")
		showHelp    = flag.Bool("help", false, "show help and exit")
		prefix      = flag.String("prefix", "", "index path prefix produced by a prior build (required)")
		metricFlag  = flag.String("metric", "L2", "metric the index was built with (L2 or IP)")
		host        = flag.String("host", "", "REST host (overrides config/env)")
		port        = flag.Int("port", 0, "REST port (overrides config/env)")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("bbann-server version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}
	if *showHelp {
		showUsage()
		os.Exit(0)
	}
	if *prefix == "" {
		fmt.Println("Error: -prefix is required")
		showUsage()
		os.Exit(1)
	}

	cfg := config.LoadFromEnv()
	if *host != "" {
		cfg.REST.Host = *host
	}
	if *port > 0 {
		cfg.REST.Port = *port
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	metric, err := bbann.ParseMetric(*metricFlag)
	if err != nil {
		log.Fatalf("Invalid metric: %v", err)
	}

	metrics := observability.NewMetrics()

	log.Printf("Loading index from %s ...", *prefix)
	index, err := bbann.Load(*prefix, metric, bbann.LoadOptions{Metrics: metrics})
	if err != nil {
		log.Fatalf("Failed to load index: %v", err)
	}
	defer index.Close()

	info := index.Info()
	log.Printf("Loaded index: dim=%d metric=%s graph_points=%d", info.Dimensions, info.Metric, info.GraphPoints)

	restConfig := rest.Config{
		Host:        cfg.REST.Host,
		Port:        cfg.REST.Port,
		CORSEnabled: cfg.REST.CORSEnabled,
		CORSOrigins: cfg.REST.CORSOrigins,
		Auth: middleware.AuthConfig{
			Enabled:     cfg.REST.AuthEnabled,
			JWTSecret:   cfg.REST.JWTSecret,
			PublicPaths: cfg.REST.PublicPaths,
			AdminPaths:  cfg.REST.AdminPaths,
		},
		RateLimit: middleware.RateLimitConfig{
			Enabled:        cfg.REST.RateLimitEnabled,
			RequestsPerSec: cfg.REST.RateLimitPerSec,
			Burst:          cfg.REST.RateLimitBurst,
			PerIP:          cfg.REST.RateLimitPerIP,
			PerUser:        cfg.REST.RateLimitPerUser,
			GlobalLimit:    cfg.REST.RateLimitGlobal,
		},
		Search: bbann.SearchOptions{
			NProbe:                cfg.Search.NProbe,
			EfSearch:              cfg.Search.EfSearch,
			RadiusFactor:          cfg.Search.RadiusFactor,
			RangeSearchProbeCount: cfg.Search.RangeSearchProbeCount,
		},
	}

	server, err := rest.NewServer(restConfig, index)
	if err != nil {
		log.Fatalf("Failed to create REST server: %v", err)
	}

	errChan := make(chan error, 1)
	go func() {
		log.Printf("Serving %s at %s:%d", *prefix, cfg.REST.Host, cfg.REST.Port)
		if err := server.Start(); err != nil {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigChan:
		log.Printf("Received signal: %v", sig)
	case err := <-errChan:
		log.Printf("Server error: %v", err)
	}

	log.Println("Shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		log.Printf("Error stopping REST server: %v", err)
	}

	log.Println("Server stopped. Goodbye!")
}

func showUsage() {
	fmt.Println("bbann-server - serve a built billion-scale ANN index over HTTP")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  bbann-server -prefix PATH [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -help             Show this help message")
	fmt.Println("  -version          Show version information")
	fmt.Println("  -prefix PATH      Index path prefix produced by `bbann-cli build` (required)")
	fmt.Println("  -metric NAME      Metric the index was built with: L2 or IP (default: L2)")
	fmt.Println("  -host HOST        REST host (default: 0.0.0.0)")
	fmt.Println("  -port PORT        REST port (default: 8080)")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  BBANN_REST_HOST               REST host")
	fmt.Println("  BBANN_REST_PORT               REST port")
	fmt.Println("  BBANN_REST_CORS_ENABLED       Enable CORS (true/false)")
	fmt.Println("  BBANN_REST_AUTH_ENABLED       Require bearer JWT auth (true/false)")
	fmt.Println("  BBANN_REST_JWT_SECRET         JWT HMAC secret")
	fmt.Println("  BBANN_NPROBE                  Default candidate buckets probed per query")
	fmt.Println("  BBANN_EF_SEARCH               Default graph search beam width")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  bbann-server -prefix /data/myindex/ -metric L2 -port 8080")
}
