// Package report renders the weekly trade report and delivers it to disk and e-mail.
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"salgsmester/internal/interfaces"
	"salgsmester/internal/types"
)

const (
	Header        = "Ukentlig rapport"
	headerRule    = "================"
	NoTrades      = "Ingen handler denne uken."
	DefaultReport = "weekly_report.txt"
	DefaultCSV    = "weekly_summary.csv"
)

// Render formats entries in order, one line each, under the report header.
func Render(entries []types.TradeLogEntry) string {
	lines := []string{Header, headerRule, ""}
	if len(entries) == 0 {
		lines = append(lines, NoTrades)
	}
	for _, e := range entries {
		lines = append(lines, FormatEntry(e))
	}
	return strings.Join(lines, "\n")
}

// FormatEntry renders one trade as "<time> <ACTION> <symbol> x<qty> til <price> NOK - <note>".
func FormatEntry(e types.TradeLogEntry) string {
	return fmt.Sprintf("%s %s %s x%s til %.2f NOK - %s",
		e.Timestamp.Format("2006-01-02 15:04"),
		e.Action,
		e.Symbol,
		strconv.FormatFloat(e.Quantity, 'f', -1, 64),
		e.Price,
		e.Note,
	)
}

// Channel configures e-mail delivery. Delivery is skipped unless Recipient, Sender and Host are set.
type Channel struct {
	Recipient string
	Sender    string
	Host      string
	Port      int
	Username  string
	Password  string
}

func (c Channel) complete() bool {
	return c.Recipient != "" && c.Sender != "" && c.Host != ""
}

type Reporter struct {
	dir     string
	channel Channel
	send    sendFunc
}

var _ interfaces.Reporter = (*Reporter)(nil)

// NewReporter writes into dir, creating it when missing.
func NewReporter(dir string, channel Channel) (*Reporter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}
	if channel.Port == 0 {
		channel.Port = 587
	}
	return &Reporter{dir: dir, channel: channel, send: sendSMTP}, nil
}

func (r *Reporter) Dir() string {
	return r.dir
}

// WriteToFile writes text to <dir>/<name>, DefaultReport when name is empty.
func (r *Reporter) WriteToFile(text, name string) (string, error) {
	if name == "" {
		name = DefaultReport
	}
	path := filepath.Join(r.dir, name)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// SendEmail delivers text over SMTP with STARTTLS. Returns nil without sending when the channel is incomplete.
func (r *Reporter) SendEmail(ctx context.Context, text string) error {
	if !r.channel.complete() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := buildMessage(r.channel, "Salgsmester - ukentlig rapport", text)
	if err := r.send(r.channel, msg); err != nil {
		return fmt.Errorf("send report to %s: %w", r.channel.Recipient, err)
	}
	return nil
}
