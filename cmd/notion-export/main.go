package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Sternrassler/notion-export/internal/config"
	"github.com/Sternrassler/notion-export/internal/output"
	"github.com/Sternrassler/notion-export/pkg/client"
	"github.com/Sternrassler/notion-export/pkg/export"
	"github.com/Sternrassler/notion-export/pkg/logging"
	"github.com/Sternrassler/notion-export/pkg/metrics"
	"github.com/redis/go-redis/v9"
)

// Exit codes.
const (
	exitOK       = 0
	exitFailure  = 1
	exitConfig   = 2
	exitNotFound = 3
	exitAuth     = 4
)

type options struct {
	configPath   string
	targetID     string
	outputDir    string
	refreshCache bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", strings.TrimSpace(os.Getenv("NOTION_EXPORT_CONFIG")), "path to YAML config file")
	flag.StringVar(&opts.targetID, "target", "", "database or page id to export (overrides config)")
	flag.StringVar(&opts.outputDir, "out", "", "output directory (overrides config)")
	flag.BoolVar(&opts.refreshCache, "refresh-cache", false, "drop cached Notion responses before exporting")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, opts))
}

// run performs one export and returns the process exit code.
func run(ctx context.Context, opts options) int {
	cfg, err := config.Load(opts.configPath, func(c *config.Config) {
		if opts.targetID != "" {
			c.TargetID = opts.targetID
		}
		if opts.outputDir != "" {
			c.OutputDir = opts.outputDir
		}
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "notion-export: %v\n", err)
		return exitConfig
	}

	logging.Setup(cfg.Log)
	logger := logging.NewLogger("main")

	if cfg.MetricsAddr != "" {
		metricsCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := metrics.Serve(metricsCtx, cfg.MetricsAddr); err != nil {
				logger.Warn().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	clientCfg := cfg.Client()
	if cfg.RedisURL != "" {
		rdb, err := connectRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("Redis unavailable, continuing without cache")
		} else {
			defer rdb.Close()
			clientCfg.Redis = rdb
			logger.Info().Str("redis", cfg.RedisURL).Msg("Connected to Redis")
		}
	}

	notion, err := client.New(clientCfg)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create Notion client")
		return exitConfig
	}
	defer notion.Close()

	if opts.refreshCache {
		if _, err := notion.PurgeCache(ctx); err != nil {
			logger.Warn().Err(err).Msg("Failed to purge response cache")
		}
	}

	sessionCfg := cfg.Session()
	sessionCfg.OnProgress = func(p export.Progress) {
		logger.Info().Int("fetched", p.Fetched).Int("kept", p.Kept).Msg("Export progress")
	}
	session, err := export.NewSession(notion, sessionCfg)
	if err != nil {
		logger.Error().Err(err).Msg("Invalid export settings")
		return exitConfig
	}

	start := time.Now()
	res, err := session.Run(ctx, cfg.TargetID)
	if err != nil {
		logger.Error().Err(err).Str("target_id", cfg.TargetID).Msg("Export failed")
		return exitCode(err)
	}

	sum, err := output.NewWriter(cfg.OutputDir, session).Write(res)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to write export")
		return exitFailure
	}

	logger.Info().
		Str("kind", res.Kind.String()).
		Int("categories", sum.Categories).
		Int("pages", sum.Pages).
		Int("sections", sum.Sections).
		Dur("duration", time.Since(start)).
		Msg("Export finished")
	return exitOK
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, export.ErrNotFound):
		return exitNotFound
	case client.IsAuth(err):
		return exitAuth
	default:
		return exitFailure
	}
}

// connectRedis accepts a redis:// URL or a bare host:port.
func connectRedis(ctx context.Context, raw string) (*redis.Client, error) {
	var opts *redis.Options
	if strings.Contains(raw, "://") {
		parsed, err := redis.ParseURL(raw)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: raw}
	}

	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}
