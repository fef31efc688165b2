// Package main provides the download-portraits binary, which fetches monster
// thumbnails for every monster asset a server lists.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/padetl/internal/config"
	"github.com/cory-johannsen/padetl/internal/observability"
	"github.com/cory-johannsen/padetl/internal/portraits"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "", "path to configuration file (optional)")
	server := flag.String("server", "", "game server, e.g. NA or JP")
	manifest := flag.String("manifest", "", "asset manifest: URL or file holding a JSON array of asset URLs")
	outputDir := flag.String("output-dir", "", "directory the image folders are created in")
	flag.Parse()

	if *server == "" || *manifest == "" || *outputDir == "" {
		log.Fatalf("usage: download-portraits -server <NA|JP> -manifest <url|file> -output-dir <dir>")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, "download-portraits")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	if _, err := cfg.Server(*server); err != nil {
		logger.Fatal("resolving server", zap.Error(err))
	}

	hc := &http.Client{Timeout: cfg.HTTP.Timeout}
	assets, err := portraits.ManifestSource{Location: *manifest, HTTP: hc}.Assets(ctx)
	if err != nil {
		logger.Fatal("loading asset manifest", zap.Error(err))
	}

	d := portraits.NewDownloader(portraits.Options{
		OutputDir:        *outputDir,
		Server:           *server,
		GamewithTemplate: cfg.Portraits.GamewithTemplate,
		PDXTemplate:      cfg.Portraits.PDXTemplate,
		Delay:            cfg.HTTP.RequestDelay,
		HTTP:             hc,
		Logger:           logger,
	})
	stats, err := d.Run(ctx, assets)
	if err != nil {
		logger.Fatal("portrait download aborted", zap.Error(err), zap.Int("corrected", stats.Corrected))
	}
	logger.Info("done", zap.Duration("elapsed", time.Since(start).Round(time.Millisecond)))
}
