package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"salgsmester/internal/logger"
	"salgsmester/internal/scheduler"
	"salgsmester/internal/server"
	"salgsmester/internal/trace"
)

var version = "dev"

// options carries the flags shared by run and schedule.
type options struct {
	configPath   string
	reportEmail  string
	reportSender string
	smtpHost     string
	smtpPort     int
	dryRun       bool
}

func main() {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "salgsmester",
		Short:         "Automatisert handelsrammeverk for Nordnet",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initializeSystem()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "config.yaml", "Path to YAML config (optional)")
	pf.StringVar(&opts.reportEmail, "report-email", "", "E-postadresse som skal motta ukentlig rapport")
	pf.StringVar(&opts.reportSender, "report-sender", "", "E-postadresse som skal stå som avsender av rapporten")
	pf.StringVar(&opts.smtpHost, "smtp-host", "", "SMTP-vert for e-postutsendelse")
	pf.IntVar(&opts.smtpPort, "smtp-port", 587, "SMTP-port")
	pf.BoolVar(&opts.dryRun, "dry-run", false, "Loggfør beslutninger uten å sende ordre til Nordnet")

	rootCmd.AddCommand(runCmd(opts))
	rootCmd.AddCommand(scheduleCmd(opts))
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.ExecuteContext(context.Background())
	shutdown()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("salgsmester version %s\n", version)
		},
	}
}

func runCmd(opts *options) *cobra.Command {
	var metricsFile string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one trading cycle and deliver the weekly report",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			app, err := buildApp(ctx, cmd, opts)
			if err != nil {
				return err
			}
			app.job.MetricsFile = metricsFile

			res, err := app.job.Execute(ctx)
			if res != nil {
				if res.Portfolio != nil {
					fmt.Println("Porteføljeverdi:", strconv.FormatFloat(res.Portfolio.TotalValue(), 'f', 2, 64))
				}
				fmt.Println("Beslutning:", res.Decision.Reason)
				if res.Execution.Attempted > 0 || res.Execution.Skipped > 0 {
					fmt.Printf("Handler: %d av %d gjennomført, %d hoppet over\n",
						res.Execution.Completed, res.Execution.Attempted, res.Execution.Skipped)
				}
			}
			return err
		},
	}

	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile after the cycle")
	return cmd
}

func scheduleCmd(opts *options) *cobra.Command {
	var (
		cronExpr string
		listen   string
		runNow   bool
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run cycles on a cron schedule and serve the status API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := buildApp(ctx, cmd, opts)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("cron") {
				app.cfg.Schedule.Cron = cronExpr
			}
			if cmd.Flags().Changed("listen") {
				app.cfg.Schedule.Listen = listen
			}

			sched := scheduler.New(ctx)
			if err := sched.AddJob(app.cfg.Schedule.Cron, app.job); err != nil {
				return err
			}

			srv := server.New(server.Config{
				Addr:    app.cfg.Schedule.Listen,
				Engine:  app.engine,
				Metrics: app.metrics,
				Trigger: app.job.Execute,
			})
			srvErr := make(chan error, 1)
			go func() { srvErr <- srv.Start() }()

			if runNow {
				if err := sched.RunNow(app.job); err != nil {
					logger.ErrorWithErr(ctx, "Initial cycle failed", err)
				}
			}
			sched.Start()

			select {
			case <-ctx.Done():
				logger.Info(ctx, "Shutting down...")
			case err = <-srvErr:
				if err != nil {
					logger.ErrorWithErr(ctx, "HTTP server stopped", err)
				}
			}

			sched.Stop()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if serr := srv.Shutdown(shutdownCtx); serr != nil {
				logger.Warn(shutdownCtx, "HTTP server shutdown failed", "error", serr)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&cronExpr, "cron", "0 30 9 * * MON-FRI", "Cron expression with seconds field")
	cmd.Flags().StringVar(&listen, "listen", ":9090", "Status API listen address")
	cmd.Flags().BoolVar(&runNow, "run-now", false, "Run one cycle immediately before waiting for the schedule")
	return cmd
}

func shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = trace.Shutdown(ctx)
	_ = logger.Sync()
}
