package interfaces

import (
	"context"

	"salgsmester/internal/types"
)

// Reporter delivers the weekly report.
type Reporter interface {
	WriteToFile(text, name string) (path string, err error)
	WriteSummaryCSV(entries []types.TradeLogEntry, name string) (path string, err error)
	SendEmail(ctx context.Context, text string) error
	CompressOlder(days int) error
}
