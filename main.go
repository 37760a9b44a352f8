// go_pod — podcast transcript search server.
//
// Serves a web API for searching a transcript corpus (search, segment
// batches, audio, CSV and clip export) and exposes the same corpus over
// MCP: transcript_search, segment_context, export_results.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-mcpserver"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_pod/internal/engine"
	"github.com/anatolykoptev/go_pod/internal/podserver"
	"github.com/anatolykoptev/go_pod/internal/webapi"
)

var (
	version  = "dev"
	mcpPort  = env.Str("MCP_PORT", "8891")
	httpAddr = env.Str("HTTP_ADDR", ":8890")
)

func main() {
	search, err := initEngine()
	if err != nil {
		slog.Error("engine init failed", slog.Any("error", err))
		return
	}

	slog.Info("starting go_pod",
		slog.String("http_addr", httpAddr),
		slog.String("mcp_port", mcpPort),
	)

	srv := &http.Server{
		Addr:         httpAddr,
		Handler:      webapi.New(search).Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 600 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("web server failed", slog.Any("error", err))
		}
	}()

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go_pod",
		Version: version,
	}, nil)

	podserver.RegisterTools(server, search)
	slog.Info("tools registered", slog.Int("count", 3))

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "go_pod",
		Version:      version,
		Port:         mcpPort,
		WriteTimeout: 600 * time.Second,
		Metrics:      engine.FormatMetrics,
	}); err != nil {
		slog.Error("server failed", slog.Any("error", err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func initEngine() (*engine.SearchService, error) {
	c := engine.Config{
		DataDir:              env.Str("DATA_DIR", "./data"),
		AudioDir:             env.Str("AUDIO_DIR", "./audio"),
		DatabaseURL:          env.Str("DATABASE_URL", ""),
		SQLitePath:           env.Str("SQLITE_PATH", "matches.db"),
		PageSize:             env.Int("PAGE_SIZE", 100),
		SnippetSize:          env.Int("SNIPPET_SIZE", 60),
		CacheMaxEntries:      env.Int("CACHE_MAX_ENTRIES", 1000),
		CacheCleanupInterval: env.Duration("CACHE_CLEANUP_INTERVAL", 300*time.Second),
		FFmpegPath:           env.Str("FFMPEG_PATH", "ffmpeg"),
		ClipBitrate:          env.Str("CLIP_BITRATE", "64k"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
		},
	}
	engine.Init(c)

	cacheTTL := env.Duration("CACHE_TTL", 15*time.Minute)
	engine.InitCache(env.Str("REDIS_URL", ""), cacheTTL, c.CacheMaxEntries, c.CacheCleanupInterval)

	corpus := engine.NewCorpus(engine.Cfg.DataDir)
	indexes := engine.NewIndexManager(corpus)

	ctx := context.Background()
	idx, err := indexes.Get(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("index built", slog.Int("episodes", len(idx.Episodes)))

	var store engine.MatchStore
	if c.DatabaseURL != "" {
		pg, err := engine.ConnectPostgresStore(ctx, c.DatabaseURL)
		if err != nil {
			slog.Warn("postgres store init failed, falling back to sqlite", slog.Any("error", err))
		} else {
			store = pg
		}
	}
	if store == nil {
		lite, err := engine.OpenSQLiteStore(c.SQLitePath)
		if err != nil {
			slog.Warn("match store init failed, running without prefilter", slog.Any("error", err))
		} else {
			store = lite
		}
	}
	if store != nil {
		if err := store.Rebuild(ctx, idx); err != nil {
			slog.Warn("match store rebuild failed", slog.Any("error", err))
		}
	}

	return engine.NewSearchService(indexes, store), nil
}
