package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ternarybob/arbor"

	"github.com/bessradar/bessradar/internal/app"
	"github.com/bessradar/bessradar/internal/common"
)

var (
	configPath  = flag.String("config", "", "Configuration file path (TOML)")
	crawlMode   = flag.String("mode", "", "Crawl mode: fast or deep (overrides config)")
	stateFilter = flag.String("state", "", "Only crawl municipalities in this state (overrides config)")
	exportPath  = flag.String("export", "", "Write the project register workbook to this path after the run")
	exportOnly  = flag.Bool("export-only", false, "Skip crawling, only export from the existing store")
	showVersion = flag.Bool("version", false, "Print version information")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("bessradar version %s\n", common.GetVersion())
		os.Exit(0)
	}

	// Startup order: config file -> env -> CLI flags -> logger.
	path := *configPath
	if path == "" {
		if _, err := os.Stat("bessradar.toml"); err == nil {
			path = "bessradar.toml"
		} else if _, err := os.Stat("deployments/local/bessradar.toml"); err == nil {
			path = "deployments/local/bessradar.toml"
		}
	}

	cfg, err := common.LoadConfig(path)
	if err != nil {
		arbor.NewLogger().Fatal().Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}
	if *crawlMode != "" {
		cfg.Mode = *crawlMode
	}
	if *stateFilter != "" {
		cfg.State = *stateFilter
	}

	logger := common.InitLogger(cfg)
	logger.Info().
		Str("version", common.GetVersion()).
		Str("config", path).
		Str("mode", cfg.Mode).
		Msg("Starting bessradar")

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
		os.Exit(1)
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !*exportOnly {
		if cfg.Schedule.Enabled && cfg.Schedule.Cron != "" {
			err = application.RunScheduled(ctx)
		} else {
			_, err = application.RunCrawl(ctx)
		}
		if err != nil && ctx.Err() == nil {
			logger.Fatal().Err(err).Msg("Crawl run failed")
			os.Exit(1)
		}
		if ctx.Err() != nil {
			logger.Info().Msg("Interrupt signal received, shutting down")
		}
	}

	if *exportPath != "" {
		if err := application.Export(*exportPath); err != nil {
			logger.Fatal().Err(err).Msg("Export failed")
			os.Exit(1)
		}
	}

	logger.Info().Msg("Done")
}
