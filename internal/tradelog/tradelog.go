// Package tradelog keeps the trades executed during a process run.
package tradelog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"salgsmester/internal/types"
)

// Log is append-only. Entries are copied in and out so callers can never modify a recorded trade.
type Log struct {
	mu      sync.Mutex
	entries []types.TradeLogEntry
	journal string
}

type Option func(*Log)

// WithJournal also writes every entry as a JSON line to <dir>/trades/<date>.txt.
// The journal is an audit trail only; it is never read back.
func WithJournal(dir string) Option {
	return func(l *Log) {
		l.journal = dir
	}
}

func New(opts ...Option) *Log {
	l := &Log{}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append records e. A journal write failure is returned but the entry is kept in memory.
func (l *Log) Append(e types.TradeLogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
	if l.journal == "" {
		return nil
	}
	return l.writeJournal(e)
}

// Entries returns a copy of the log in append order.
func (l *Log) Entries() []types.TradeLogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]types.TradeLogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func JournalPath(dir string, e types.TradeLogEntry) string {
	return filepath.Join(dir, "trades", e.Timestamp.Format("2006-01-02")+".txt")
}

func (l *Log) writeJournal(e types.TradeLogEntry) error {
	p := JournalPath(l.journal, e)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(f, string(b))
	return err
}
