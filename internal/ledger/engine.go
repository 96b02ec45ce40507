// Package ledger implements the in-process ledger and notification engine:
// per-company append-only entry logs, the pending-review notification queue,
// and on-demand aggregation over both.
//
// All state is kept in memory behind per-company locks. Durability is
// optional and provided by a Journal; without one the engine is explicitly
// ephemeral and a process restart loses everything.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"bookkeep/internal/core"
	applog "bookkeep/internal/log"
)

// Publisher receives every notification produced by an append. Implementations
// must not block; delivery is best-effort and decoupled from the write path.
type Publisher interface {
	Publish(n core.Notification)
}

// companyState is the unit of locking. Operations on different companies
// never contend; operations on the same company serialize on its lock, which
// is what makes the append's store+queue effects atomic for readers and keeps
// MarkReviewed from racing concurrent appends.
type companyState struct {
	mu      sync.RWMutex
	entries []core.LedgerEntry
	pending []core.Notification
	nextSeq uint64
}

// Engine owns the shared mutable ledger state. The zero value is not usable;
// construct with NewEngine.
type Engine struct {
	mu        sync.RWMutex
	companies map[string]*companyState
	order     []string // companies in first-seen order

	journal   Journal
	publisher Publisher
	strict    bool
}

// NewEngine creates an engine. journal may be nil (ephemeral mode) and
// publisher may be nil (no notification delivery). With strict enabled,
// AddEntry rejects entries failing core.LedgerEntry.Validate.
func NewEngine(journal Journal, publisher Publisher, strict bool) *Engine {
	return &Engine{
		companies: make(map[string]*companyState),
		journal:   journal,
		publisher: publisher,
		strict:    strict,
	}
}

func (e *Engine) lookup(company string) *companyState {
	e.mu.RLock()
	st := e.companies[company]
	e.mu.RUnlock()
	return st
}

func (e *Engine) stateFor(company string) *companyState {
	if st := e.lookup(company); st != nil {
		return st
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok := e.companies[company]; ok {
		return st
	}
	st := &companyState{}
	e.companies[company] = st
	e.order = append(e.order, company)
	return st
}

// AddEntry appends an entry to its company's log, enqueues the matching
// notification, and hands it to the publisher. The log append and the enqueue
// happen under the company's write lock, so no reader can observe one without
// the other. When a journal is configured it is written first; a journal
// failure leaves the in-memory state untouched.
func (e *Engine) AddEntry(ctx context.Context, entry core.LedgerEntry) error {
	if e.strict {
		if err := entry.Validate(); err != nil {
			return err
		}
	}
	entry.Items = entry.CloneItems()

	st := e.stateFor(entry.CompanyName)
	st.mu.Lock()
	seq := st.nextSeq + 1
	if e.journal != nil {
		if err := e.journal.AppendEntry(ctx, seq, entry); err != nil {
			st.mu.Unlock()
			return fmt.Errorf("journal append: %w", err)
		}
	}
	st.nextSeq = seq
	n := core.Notification{Seq: seq, Entry: entry}
	st.entries = append(st.entries, entry)
	st.pending = append(st.pending, n)
	total, pending := len(st.entries), len(st.pending)
	st.mu.Unlock()

	// Fire-and-forget: the publisher buffers and must never stall ingestion.
	if e.publisher != nil {
		e.publisher.Publish(n)
	}

	slog.DebugContext(ctx, "Ledger entry appended",
		applog.FieldComponent, applog.ComponentLedger,
		applog.FieldCompany, entry.CompanyName,
		applog.FieldStore, entry.StoreName,
		applog.FieldSeq, seq,
		applog.FieldEntries, total,
		applog.FieldPending, pending)
	return nil
}

// GetEntries returns the full history for a company in insertion order.
// Unknown companies yield an empty sequence, never an error.
func (e *Engine) GetEntries(company string) []core.LedgerEntry {
	st := e.lookup(company)
	if st == nil {
		return nil
	}
	st.mu.RLock()
	defer st.mu.RUnlock()
	return cloneEntries(st.entries)
}

// GetPendingEntries returns the unreviewed entries for a company in
// insertion order.
func (e *Engine) GetPendingEntries(company string) []core.LedgerEntry {
	st := e.lookup(company)
	if st == nil {
		return nil
	}
	st.mu.RLock()
	defer st.mu.RUnlock()
	entries := make([]core.LedgerEntry, len(st.pending))
	for i, n := range st.pending {
		entries[i] = n.Entry
		entries[i].Items = n.Entry.CloneItems()
	}
	return entries
}

// GetPendingNotifications is the sequence-carrying form of GetPendingEntries,
// for reviewers that acknowledge via MarkReviewedThrough.
func (e *Engine) GetPendingNotifications(company string) []core.Notification {
	st := e.lookup(company)
	if st == nil {
		return nil
	}
	st.mu.RLock()
	defer st.mu.RUnlock()
	pending := make([]core.Notification, len(st.pending))
	for i, n := range st.pending {
		pending[i] = n
		pending[i].Entry.Items = n.Entry.CloneItems()
	}
	return pending
}

// MarkReviewed clears the company's pending queue up to the latest sequence
// assigned at call time. Appends serialized after the clear keep their
// notifications; none of them can be silently discarded.
func (e *Engine) MarkReviewed(ctx context.Context, company string) error {
	st := e.lookup(company)
	if st == nil {
		return nil
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return e.clearThroughLocked(ctx, company, st, st.nextSeq)
}

// MarkReviewedThrough clears only notifications with seq <= through, the
// snapshot acknowledgement for reviewers that report the highest sequence
// they rendered. through == 0 is a no-op.
func (e *Engine) MarkReviewedThrough(ctx context.Context, company string, through uint64) error {
	if through == 0 {
		return nil
	}
	st := e.lookup(company)
	if st == nil {
		return nil
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return e.clearThroughLocked(ctx, company, st, through)
}

func (e *Engine) clearThroughLocked(ctx context.Context, company string, st *companyState, through uint64) error {
	if len(st.pending) == 0 {
		return nil
	}
	if e.journal != nil {
		if err := e.journal.MarkReviewed(ctx, company, through); err != nil {
			return fmt.Errorf("journal review: %w", err)
		}
	}
	var kept []core.Notification
	for _, n := range st.pending {
		if n.Seq > through {
			kept = append(kept, n)
		}
	}
	cleared := len(st.pending) - len(kept)
	st.pending = kept

	slog.InfoContext(ctx, "Pending entries reviewed",
		applog.FieldComponent, applog.ComponentLedger,
		applog.FieldCompany, company,
		applog.FieldSeq, through,
		"cleared", cleared,
		applog.FieldPending, len(kept))
	return nil
}

// ListCompanies returns every company with at least one entry, in the order
// each company first appeared.
func (e *Engine) ListCompanies() []string {
	e.mu.RLock()
	order := make([]string, len(e.order))
	copy(order, e.order)
	states := make([]*companyState, len(order))
	for i, name := range order {
		states[i] = e.companies[name]
	}
	e.mu.RUnlock()

	companies := make([]string, 0, len(order))
	for i, st := range states {
		st.mu.RLock()
		n := len(st.entries)
		st.mu.RUnlock()
		if n > 0 {
			companies = append(companies, order[i])
		}
	}
	return companies
}

// Snapshot returns a company's entries and pending notifications from a
// single lock acquisition, so the two views are mutually consistent.
func (e *Engine) Snapshot(company string) ([]core.LedgerEntry, []core.Notification) {
	st := e.lookup(company)
	if st == nil {
		return nil, nil
	}
	st.mu.RLock()
	defer st.mu.RUnlock()
	pending := make([]core.Notification, len(st.pending))
	copy(pending, st.pending)
	return cloneEntries(st.entries), pending
}

// Restore rebuilds engine state from journal records, in journal order.
// It neither journals nor publishes; it is meant for startup replay before
// the engine is shared.
func (e *Engine) Restore(records []Record) {
	for _, rec := range records {
		st := e.stateFor(rec.Entry.CompanyName)
		st.mu.Lock()
		if rec.Seq > st.nextSeq {
			st.nextSeq = rec.Seq
		}
		st.entries = append(st.entries, rec.Entry)
		if !rec.Reviewed {
			st.pending = append(st.pending, core.Notification{Seq: rec.Seq, Entry: rec.Entry})
		}
		st.mu.Unlock()
	}
}

func cloneEntries(entries []core.LedgerEntry) []core.LedgerEntry {
	if len(entries) == 0 {
		return nil
	}
	out := make([]core.LedgerEntry, len(entries))
	for i, entry := range entries {
		out[i] = entry
		out[i].Items = entry.CloneItems()
	}
	return out
}
