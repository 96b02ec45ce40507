// Package notify decouples accountant notification delivery from the ledger
// write path. A Dispatcher buffers notifications and hands them to a
// pluggable Sink; ingestion never waits on delivery.
package notify

import (
	"context"
	"log/slog"

	"bookkeep/internal/core"
	applog "bookkeep/internal/log"
)

// Sink delivers one notification to the accountant-facing channel. The
// interface stays swappable for real delivery (email, push, in-app feed)
// without touching the engine.
type Sink interface {
	Notify(ctx context.Context, n core.Notification) error
}

// LogSink is the placeholder delivery channel: it records that the accountant
// would be notified and nothing else. Dashboards discover new entries by
// polling the pending queue.
type LogSink struct{}

func (LogSink) Notify(ctx context.Context, n core.Notification) error {
	slog.InfoContext(ctx, "Notifying accountant of new ledger entry",
		applog.FieldComponent, applog.ComponentNotify,
		applog.FieldCompany, n.Entry.CompanyName,
		applog.FieldStore, n.Entry.StoreName,
		applog.FieldEntryDate, n.Entry.Date,
		applog.FieldSeq, n.Seq)
	return nil
}
