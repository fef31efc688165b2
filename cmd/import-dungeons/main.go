// Package main provides the import-dungeons binary, which decodes a pulled
// dungeon data file and writes the catalog to files and/or the database.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/padetl/internal/config"
	"github.com/cory-johannsen/padetl/internal/dungeon"
	"github.com/cory-johannsen/padetl/internal/importer"
	"github.com/cory-johannsen/padetl/internal/observability"
	"github.com/cory-johannsen/padetl/internal/storage/postgres"
)

type options struct {
	input      string
	output     string
	format     string
	perDungeon bool
	store      bool
	server     string
}

func main() {
	configPath := flag.String("config", "", "path to configuration file (optional)")
	var opts options
	flag.StringVar(&opts.input, "input", dungeon.FileName, "pulled dungeon data file")
	flag.StringVar(&opts.output, "output", "", "directory decoded dungeons are written to")
	flag.StringVar(&opts.format, "format", importer.FormatJSON, "output format: json or yaml")
	flag.BoolVar(&opts.perDungeon, "per-dungeon", false, "write one file per dungeon")
	flag.BoolVar(&opts.store, "store", false, "store the catalog in the database")
	flag.StringVar(&opts.server, "server", "", "server the file was pulled from (required with -store)")
	flag.Parse()

	if opts.output == "" && !opts.store {
		fmt.Fprintln(os.Stderr, "usage: import-dungeons -input <file> [-output <dir> -format json|yaml [-per-dungeon]] [-store -server <NA|JP>]")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, "import-dungeons")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	if err := run(ctx, cfg, opts, logger); err != nil {
		logger.Fatal("import failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, opts options, logger *zap.Logger) error {
	start := time.Now()

	sinks, cleanup, err := buildSinks(ctx, cfg, opts, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	decoder := dungeon.NewDecoder(dungeon.DefaultTables(), logger)
	res, err := importer.New(importer.NewFileSource(opts.input, decoder), logger, sinks...).Run(ctx)
	if err != nil {
		return err
	}
	logger.Info("import complete",
		zap.Int("dungeons", res.Dungeons),
		zap.Int("floors", res.Floors),
		zap.Strings("sinks", res.Sinks),
		zap.Duration("elapsed", time.Since(start).Round(time.Millisecond)),
	)
	return nil
}

func buildSinks(ctx context.Context, cfg config.Config, opts options, logger *zap.Logger) ([]importer.Sink, func(), error) {
	var sinks []importer.Sink
	cleanup := func() {}

	if opts.output != "" {
		fs, err := importer.NewFileSink(opts.output, opts.format, opts.perDungeon, logger)
		if err != nil {
			return nil, cleanup, err
		}
		sinks = append(sinks, fs)
	}

	if opts.store {
		if opts.server == "" {
			return nil, cleanup, errors.New("-server is required with -store")
		}
		if _, err := cfg.Server(opts.server); err != nil {
			return nil, cleanup, err
		}
		pool, err := postgres.NewPool(ctx, cfg.Database, logger)
		if err != nil {
			return nil, cleanup, fmt.Errorf("connecting to database: %w", err)
		}
		cleanup = pool.Close
		repo := postgres.NewDungeonRepository(pool.DB())
		sinks = append(sinks, importer.NewStoreSink(repo, strings.ToUpper(opts.server), logger))
	}
	return sinks, cleanup, nil
}
