package ledger

import (
	"context"

	"bookkeep/internal/core"
)

// Record is one journaled append, replayed at startup.
type Record struct {
	Seq      uint64
	Entry    core.LedgerEntry
	Reviewed bool
}

// Journal is the optional durable backing store behind the engine. The engine
// writes through it before touching in-memory state, so durable mode never
// acknowledges an entry it could lose. Implementations own their timeout and
// retry policy; the engine just propagates their errors.
type Journal interface {
	// AppendEntry persists an entry under its per-company sequence number.
	AppendEntry(ctx context.Context, seq uint64, entry core.LedgerEntry) error

	// MarkReviewed persists the review of all of a company's notifications
	// with seq <= through.
	MarkReviewed(ctx context.Context, companyName string, through uint64) error

	// Replay returns every journaled record in append order.
	Replay(ctx context.Context) ([]Record, error)

	Close() error
}
