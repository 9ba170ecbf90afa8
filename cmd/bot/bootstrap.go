package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"salgsmester/internal/broker/brokerobs"
	"salgsmester/internal/broker/nordnet"
	"salgsmester/internal/broker/paper"
	"salgsmester/internal/engine"
	"salgsmester/internal/engine/engineobs"
	"salgsmester/internal/interfaces"
	"salgsmester/internal/logger"
	"salgsmester/internal/metrics"
	"salgsmester/internal/report"
	"salgsmester/internal/report/reportobs"
	"salgsmester/internal/scheduler"
	"salgsmester/internal/store"
	"salgsmester/internal/strategy"
	"salgsmester/internal/trace"
	"salgsmester/internal/tradelog"
)

// application is everything one process needs to run cycles.
type application struct {
	cfg     *store.Config
	metrics *metrics.Metrics
	engine  interfaces.Engine
	job     *scheduler.CycleJob
}

// initializeSystem initializes logger and tracer
func initializeSystem() error {
	// Load environment variables
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := trace.Init(version); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}
	return nil
}

func buildApp(ctx context.Context, cmd *cobra.Command, opts *options) (*application, error) {
	cfg, err := loadConfig(ctx, opts.configPath)
	if err != nil {
		return nil, err
	}
	opts.apply(cmd, cfg)

	brk, err := initializeBroker(ctx, cfg, opts.dryRun)
	if err != nil {
		return nil, err
	}

	mx := metrics.New()
	eng := initializeEngine(cfg, brk, mx)

	rep, err := initializeReporter(cfg)
	if err != nil {
		return nil, err
	}

	return &application{
		cfg:     cfg,
		metrics: mx,
		engine:  eng,
		job: &scheduler.CycleJob{
			Engine:        eng,
			Reporter:      rep,
			Metrics:       mx,
			RetentionDays: cfg.Report.RetentionDays,
		},
	}, nil
}

// loadConfig loads and returns the configuration
func loadConfig(ctx context.Context, path string) (*store.Config, error) {
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err)
		return nil, err
	}
	return cfg, nil
}

// apply lets command line flags override the report channel and force a dry run.
func (o *options) apply(cmd *cobra.Command, cfg *store.Config) {
	if o.reportEmail != "" {
		cfg.Report.EmailRecipient = o.reportEmail
	}
	if o.reportSender != "" {
		cfg.Report.EmailSender = o.reportSender
	}
	if o.smtpHost != "" {
		cfg.Report.SMTPHost = o.smtpHost
	}
	if cmd.Flags().Changed("smtp-port") {
		cfg.Report.SMTPPort = o.smtpPort
	}
	if o.dryRun {
		cfg.Mode = store.ModeDryRun
	}
}

// initializeBroker picks the brokerage by data source and wraps it with observability.
// A dry run never logs in; a live run must authenticate before the first cycle.
func initializeBroker(ctx context.Context, cfg *store.Config, dryRun bool) (interfaces.Broker, error) {
	var brk interfaces.Broker

	switch cfg.DataSource {
	case store.DataSourceStatic:
		pb, err := paper.Load(cfg.SnapshotFile, cfg.Fees)
		if err != nil {
			return nil, fmt.Errorf("load snapshot: %w", err)
		}
		logger.Info(ctx, "Using STATIC snapshot data", "file", cfg.SnapshotFile)
		brk = pb
	default:
		if cfg.Mode == store.ModeLive {
			if err := cfg.RequireCredentials(); err != nil {
				return nil, err
			}
		}
		brk = nordnet.New(nordnet.Params{
			Mode:        cfg.Mode,
			BaseURL:     cfg.BaseURL,
			Timeout:     cfg.RequestTimeout(),
			Credentials: cfg.Credentials,
			Fees:        cfg.Fees,
		})
		logger.Info(ctx, "Using LIVE data from Nordnet", "base_url", cfg.BaseURL)
	}

	if cfg.Mode == store.ModeDryRun {
		logger.Warn(ctx, "Running in DRY_RUN mode - orders will be simulated")
	}

	// Wrap with observability middleware
	brk = brokerobs.Wrap(brk)

	if !dryRun {
		if err := brk.Authenticate(ctx); err != nil {
			return nil, fmt.Errorf("authenticate: %w", err)
		}
	}
	return brk, nil
}

// initializeEngine initializes and returns the portfolio manager with observability
func initializeEngine(cfg *store.Config, brk interfaces.Broker, mx *metrics.Metrics) interfaces.Engine {
	strat := strategy.NewMomentum(cfg.Targets(), cfg.Fees, cfg.Strategy.MaxPerSector)

	eng := engine.New(
		engine.Options{Fees: cfg.Fees, SellNetOfFees: cfg.Strategy.SellNetOfFees},
		brk,
		strat,
		engine.WithMetrics(mx),
		engine.WithTradeLog(tradelog.New(tradelog.WithJournal(cfg.DataDirectory))),
	)

	return engineobs.Wrap(eng)
}

func initializeReporter(cfg *store.Config) (interfaces.Reporter, error) {
	rep, err := report.NewReporter(cfg.DataDirectory, report.Channel{
		Recipient: cfg.Report.EmailRecipient,
		Sender:    cfg.Report.EmailSender,
		Host:      cfg.Report.SMTPHost,
		Port:      cfg.Report.SMTPPort,
		Username:  cfg.Report.SMTPUsername,
		Password:  cfg.Report.SMTPPassword,
	})
	if err != nil {
		return nil, err
	}
	return reportobs.Wrap(rep), nil
}
