// Package main provides the pull-data binary, which logs into a game server
// and downloads the raw API data documents for one account.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/padetl/internal/config"
	"github.com/cory-johannsen/padetl/internal/observability"
	"github.com/cory-johannsen/padetl/internal/padapi"
	"github.com/cory-johannsen/padetl/internal/scripting"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "", "path to configuration file (optional)")
	server := flag.String("server", "", "game server, e.g. NA or JP")
	userUUID := flag.String("user-uuid", "", "account UUID (default: account.uuid from config)")
	userIntID := flag.String("user-intid", "", "account code (default: account.intid from config)")
	onlyBonus := flag.Bool("only-bonus", false, "only pull bonus data")
	outputDir := flag.String("output-dir", "", "directory the data files are written to")
	keygenScript := flag.String("keygen-script", "", "Lua key generator script (default: keygen.script from config)")
	flag.Parse()

	if *server == "" || *outputDir == "" {
		log.Fatalf("usage: pull-data -server <NA|JP> -output-dir <dir> [-user-uuid <uuid> -user-intid <id>] [-only-bonus]")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, "pull-data")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	account := padapi.Account{UUID: firstNonEmpty(*userUUID, cfg.Account.UUID), IntID: firstNonEmpty(*userIntID, cfg.Account.IntID)}
	if account.UUID == "" || account.IntID == "" {
		logger.Fatal("account uuid and intid are required (flags, PADETL_ACCOUNT_UUID/PADETL_ACCOUNT_INTID, or config)")
	}

	srvCfg, err := cfg.Server(*server)
	if err != nil {
		logger.Fatal("resolving server", zap.Error(err))
	}

	hc := &http.Client{Timeout: cfg.HTTP.Timeout}
	base, err := padapi.FetchBaseInfo(ctx, hc, srvCfg.BaseURL)
	if err != nil {
		logger.Fatal("fetching server base info", zap.Error(err))
	}
	logger.Info("server resolved",
		zap.String("server", strings.ToUpper(*server)),
		zap.String("endpoint", base.Base),
		zap.String("version", base.Version),
	)

	kg, err := scripting.LoadKeyGenerator(firstNonEmpty(*keygenScript, cfg.Keygen.Script), cfg.Keygen.InstructionLimit, logger)
	if err != nil {
		logger.Fatal("loading key generator", zap.Error(err))
	}
	defer kg.Close()

	client, err := padapi.NewClient(padapi.Options{
		Server:    *server,
		APIName:   srvCfg.APIName,
		Base:      base,
		UserAgent: cfg.HTTP.UserAgent,
		Keygen:    kg,
		HTTP:      hc,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal("creating api client", zap.Error(err))
	}

	written, err := padapi.NewPuller(client, account, *outputDir, logger).Run(ctx, *onlyBonus)
	if err != nil {
		logger.Fatal("pull failed", zap.Error(err), zap.Strings("written", written))
	}
	logger.Info("pull complete",
		zap.Int("files", len(written)),
		zap.Duration("elapsed", time.Since(start).Round(time.Millisecond)),
	)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
