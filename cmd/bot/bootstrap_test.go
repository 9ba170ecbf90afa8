package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salgsmester/internal/report"
	"salgsmester/internal/scheduler"
	"salgsmester/internal/store"
)

const snapshot = `
cash: 10000
instruments:
  - symbol: EQNR
    name: Equinor
    last_price: 300
    daily_change_pct: 0.01
    weekly_change_pct: 0.03
    volatility: 0.1
    sector: energy
  - symbol: DNB
    name: DNB Bank
    last_price: 200
    daily_change_pct: 0.005
    weekly_change_pct: 0.02
    volatility: 0.05
    sector: finance
  - symbol: NHY
    name: Norsk Hydro
    last_price: 66
    volatility: 0.3
    sector: materials
positions:
  - symbol: NHY
    quantity: 10
    entry_price: 60
    entry_time: 2024-02-01T10:00:00Z
`

func staticConfig(t *testing.T) *store.Config {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(snapshot), 0o644))

	cfg := store.Default()
	cfg.Mode = store.ModeDryRun
	cfg.DataSource = store.DataSourceStatic
	cfg.SnapshotFile = path
	cfg.DataDirectory = filepath.Join(dir, "data")
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestStaticCycleEndToEnd(t *testing.T) {
	ctx := context.Background()
	cfg := staticConfig(t)

	brk, err := initializeBroker(ctx, cfg, true)
	require.NoError(t, err)
	rep, err := initializeReporter(cfg)
	require.NoError(t, err)
	job := &scheduler.CycleJob{Engine: initializeEngine(cfg, brk, nil), Reporter: rep}

	res, err := job.Execute(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"NHY"}, res.Decision.SellSymbols)
	assert.Len(t, res.Decision.BuyCandidates, 2, "NHY is above the risk ceiling")
	assert.Equal(t, 3, res.Execution.Completed)
	assert.False(t, res.Execution.Partial())

	body, err := os.ReadFile(filepath.Join(cfg.DataDirectory, report.DefaultReport))
	require.NoError(t, err)
	text := string(body)
	assert.Contains(t, text, "SELL NHY x10")
	assert.Contains(t, text, "BUY EQNR x17")
	assert.Contains(t, text, "BUY DNB x26")
	assert.Less(t, strings.Index(text, "SELL NHY"), strings.Index(text, "BUY"))

	_, err = os.Stat(filepath.Join(cfg.DataDirectory, report.DefaultCSV))
	assert.NoError(t, err)
	journals, err := filepath.Glob(filepath.Join(cfg.DataDirectory, "trades", "*.txt"))
	require.NoError(t, err)
	assert.Len(t, journals, 1)
}

func TestLiveBrokerRequiresCredentials(t *testing.T) {
	cfg := store.Default()
	_, err := initializeBroker(context.Background(), cfg, false)
	assert.True(t, errors.Is(err, store.ErrMissingCredentials))
}

func TestFlagsOverrideConfig(t *testing.T) {
	opts := &options{}
	cmd := &cobra.Command{Use: "run"}
	cmd.Flags().StringVar(&opts.reportEmail, "report-email", "", "")
	cmd.Flags().IntVar(&opts.smtpPort, "smtp-port", 587, "")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "")
	require.NoError(t, cmd.ParseFlags([]string{"--report-email", "ola@example.com", "--smtp-port", "2525", "--dry-run"}))

	cfg := store.Default()
	cfg.Report.SMTPHost = "smtp.example.com"
	opts.apply(cmd, cfg)

	assert.Equal(t, "ola@example.com", cfg.Report.EmailRecipient)
	assert.Equal(t, "smtp.example.com", cfg.Report.SMTPHost, "unset flags keep config")
	assert.Equal(t, 2525, cfg.Report.SMTPPort)
	assert.Equal(t, store.ModeDryRun, cfg.Mode)
}

func TestSmtpPortDefaultDoesNotOverrideConfig(t *testing.T) {
	opts := &options{smtpPort: 587}
	cmd := &cobra.Command{Use: "run"}
	cmd.Flags().IntVar(&opts.smtpPort, "smtp-port", 587, "")
	require.NoError(t, cmd.ParseFlags(nil))

	cfg := store.Default()
	cfg.Report.SMTPPort = 465
	opts.apply(cmd, cfg)
	assert.Equal(t, 465, cfg.Report.SMTPPort)
}
