package report

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salgsmester/internal/types"
)

var at = time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)

func sampleEntries() []types.TradeLogEntry {
	return []types.TradeLogEntry{
		{Timestamp: at, Action: types.SideSell, Symbol: "EQNR", Quantity: 10, Price: 315.5, Note: "Måloppnåelse utløste salg"},
		{Timestamp: at.Add(time.Minute), Action: types.SideBuy, Symbol: "NHY", Quantity: 5, Price: 60, Note: "Strategivalg basert på forventet vekst"},
		{Timestamp: at.Add(2 * time.Minute), Action: types.SideBuy, Symbol: "EQNR", Quantity: 2, Price: 300, Note: "Strategivalg basert på forventet vekst"},
	}
}

func TestRenderEmpty(t *testing.T) {
	assert.Equal(t, "Ukentlig rapport\n================\n\nIngen handler denne uken.", Render(nil))
}

func TestRenderLines(t *testing.T) {
	entries := sampleEntries()
	text := Render(entries)
	lines := strings.Split(text, "\n")

	require.Len(t, lines, 3+len(entries))
	assert.Equal(t, Header, lines[0])
	assert.Equal(t, "2024-03-04 09:30 SELL EQNR x10 til 315.50 NOK - Måloppnåelse utløste salg", lines[3])
	assert.Equal(t, "2024-03-04 09:31 BUY NHY x5 til 60.00 NOK - Strategivalg basert på forventet vekst", lines[4])
	assert.NotContains(t, text, NoTrades)

	for i, e := range entries {
		line := lines[3+i]
		assert.Equal(t, 1, strings.Count(line, " "+e.Action+" "), "action once in line %d", i)
		assert.Equal(t, 1, strings.Count(line, " "+e.Symbol+" "), "symbol once in line %d", i)
	}
}

func TestFormatEntryFractionalQuantity(t *testing.T) {
	e := types.TradeLogEntry{Timestamp: at, Action: types.SideSell, Symbol: "X", Quantity: 2.5, Price: 1, Note: "n"}
	assert.Contains(t, FormatEntry(e), " x2.5 til 1.00 NOK")
}

func TestWriteToFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	r, err := NewReporter(dir, Channel{})
	require.NoError(t, err)

	path, err := r.WriteToFile("hei", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, DefaultReport), path)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hei", string(b))
}

func TestWriteSummaryCSV(t *testing.T) {
	r, err := NewReporter(t.TempDir(), Channel{})
	require.NoError(t, err)

	path, err := r.WriteSummaryCSV(sampleEntries(), "")
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 4)
	assert.Equal(t, "symbol", rows[0][0])
	assert.Equal(t, []string{"EQNR", "2", "300.0000", "10", "315.5000", "31.00", "600.00", "3155.00"}, rows[1])
	assert.Equal(t, []string{"NHY", "5", "60.0000", "0", "0.0000", "0.00", "300.00", "0.00"}, rows[2])
	assert.Equal(t, "TOTAL", rows[3][0])
	assert.Equal(t, "31.00", rows[3][5])
}

func TestWriteSummaryCSVNoEntries(t *testing.T) {
	r, err := NewReporter(t.TempDir(), Channel{})
	require.NoError(t, err)

	path, err := r.WriteSummaryCSV(nil, "")
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestSendEmailSkipsIncompleteChannel(t *testing.T) {
	for _, ch := range []Channel{
		{},
		{Recipient: "to@example.com", Sender: "from@example.com"},
		{Recipient: "to@example.com", Host: "smtp.example.com"},
		{Sender: "from@example.com", Host: "smtp.example.com"},
	} {
		r, err := NewReporter(t.TempDir(), ch)
		require.NoError(t, err)
		r.send = func(Channel, []byte) error {
			t.Fatalf("send called for incomplete channel %+v", ch)
			return nil
		}
		assert.NoError(t, r.SendEmail(context.Background(), "text"))
	}
}

func TestSendEmail(t *testing.T) {
	ch := Channel{Recipient: "to@example.com", Sender: "from@example.com", Host: "smtp.example.com"}
	r, err := NewReporter(t.TempDir(), ch)
	require.NoError(t, err)

	var got Channel
	var msg string
	r.send = func(c Channel, b []byte) error {
		got, msg = c, string(b)
		return nil
	}

	require.NoError(t, r.SendEmail(context.Background(), "linje 1\nlinje 2"))
	assert.Equal(t, 587, got.Port)
	assert.Contains(t, msg, "To: to@example.com\r\n")
	assert.Contains(t, msg, "linje 1\r\nlinje 2")

	r.send = func(Channel, []byte) error { return errors.New("connection refused") }
	err = r.SendEmail(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "to@example.com")
}

func TestCompressOlder(t *testing.T) {
	dir := t.TempDir()
	r, err := NewReporter(dir, Channel{})
	require.NoError(t, err)

	oldPath, err := r.WriteToFile("gammel", "old.txt")
	require.NoError(t, err)
	newPath, err := r.WriteToFile("ny", "new.txt")
	require.NoError(t, err)

	old := time.Now().AddDate(0, 0, -10)
	require.NoError(t, os.Chtimes(oldPath, old, old))

	require.NoError(t, r.CompressOlder(7))

	_, err = os.Stat(oldPath)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(oldPath + ".gz")
	assert.NoError(t, err)
	_, err = os.Stat(newPath)
	assert.NoError(t, err)
}
