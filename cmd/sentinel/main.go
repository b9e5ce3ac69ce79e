package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/raaihank/lgpd-sentinel/internal/analysis"
	"github.com/raaihank/lgpd-sentinel/internal/cache"
	"github.com/raaihank/lgpd-sentinel/internal/categories"
	"github.com/raaihank/lgpd-sentinel/internal/config"
	"github.com/raaihank/lgpd-sentinel/internal/llm"
	"github.com/raaihank/lgpd-sentinel/internal/logger"
	"github.com/raaihank/lgpd-sentinel/internal/privacy"
	"github.com/raaihank/lgpd-sentinel/internal/server"
	"github.com/raaihank/lgpd-sentinel/internal/submissions"
	"go.uber.org/zap"
)

var (
	commit = "dev"
	date   = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
		healthCheck = flag.Bool("health-check", false, "Perform health check and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("LGPD-Sentinel %s (commit: %s, built: %s)\n", server.Version, commit, date)
		os.Exit(0)
	}

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if *healthCheck {
		performHealthCheck(cfg.Server.Port)
		return
	}

	loggerConfig := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}
	if cfg.Logging.File.Enabled {
		loggerConfig.File = &logger.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		}
	}

	log, err := logger.New(loggerConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting LGPD-Sentinel",
		zap.String("version", server.Version),
		zap.String("commit", commit),
		zap.String("build_date", date),
		zap.Int("port", cfg.Server.Port),
	)

	lib, err := privacy.LoadLibraryFile(cfg.Privacy.PatternsFile)
	if err != nil {
		log.Fatal("Failed to load PII pattern catalog", zap.Error(err))
	}

	catalog, err := categories.LoadFile(cfg.Storage.CategoriesFile, log)
	if err != nil {
		log.Warn("Category catalog unreadable, using built-in categories", zap.Error(err))
		catalog = categories.Default()
	}

	store := config.NewSystemStore(cfg.Storage.SystemConfigFile)
	if _, err := store.Load(); err != nil {
		log.Warn("System config unreadable, defaults apply until it is fixed", zap.Error(err))
	}

	submissionLog, err := submissions.Open(cfg.Storage.SubmissionsFile, log)
	if err != nil {
		log.Fatal("Failed to open submission log", zap.Error(err))
	}

	transport := llm.TransportFromConfig(cfg.LLM, llm.Options{Logger: log.WithComponent("llm")})
	opts := []analysis.Option{analysis.WithLogger(log)}

	var verdictCache *cache.VerdictCache
	if cfg.Cache.Enabled {
		verdictCache, err = cache.NewVerdictCache(cfg.Cache, log)
		if err != nil {
			log.Warn("Verdict cache unavailable, continuing without it", zap.Error(err))
		} else {
			defer verdictCache.Close()
			opts = append(opts, analysis.WithCache(verdictCache))
		}
	}

	analyzer := analysis.NewAnalyzer(
		privacy.NewDetector(lib, log.WithComponent("privacy")),
		catalog,
		analysis.EnvBackends(transport),
		opts...,
	)

	deps := server.Deps{
		Service:     analysis.NewService(analyzer, store, log),
		Store:       store,
		Submissions: submissionLog,
		Catalog:     catalog,
	}
	if verdictCache != nil {
		deps.Cache = verdictCache
	}

	srv, err := server.New(cfg, deps, log)
	if err != nil {
		log.Fatal("Failed to create server", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv.Run(ctx)

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.Int("port", cfg.Server.Port))
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil {
			log.Error("Server error", zap.Error(err))
		}
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		// Give outstanding requests 30 seconds to complete
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Stop(shutdownCtx); err != nil {
			log.Error("Failed to shutdown server gracefully", zap.Error(err))
			os.Exit(1)
		}

		log.Info("Server shutdown complete")
	}
}

// performHealthCheck performs a health check against the running server
func performHealthCheck(port int) {
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	resp, err := client.Get(fmt.Sprintf("http://localhost:%d/health", port))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Health check failed: HTTP %d\n", resp.StatusCode)
		os.Exit(1)
	}

	fmt.Println("Health check passed")
	os.Exit(0)
}
