// Package services wires the ledger engine to its collaborators and owns
// their lifecycle.
package services

import (
	"context"
	"fmt"

	"bookkeep/internal/amqp"
	"bookkeep/internal/core"
	"bookkeep/internal/ledger"
	"bookkeep/internal/notify"
)

// LedgerService is the composition root the HTTP layer talks to. It exposes
// the engine's operation set and closes the dispatcher, broker client, and
// journal in the right order on shutdown.
type LedgerService struct {
	engine     *ledger.Engine
	journal    ledger.Journal
	dispatcher *notify.Dispatcher
	amqpClient *amqp.Client
}

func NewLedgerService(engine *ledger.Engine, journal ledger.Journal, dispatcher *notify.Dispatcher, amqpClient *amqp.Client) *LedgerService {
	return &LedgerService{
		engine:     engine,
		journal:    journal,
		dispatcher: dispatcher,
		amqpClient: amqpClient,
	}
}

// AddEntry is the sole creation path for ledger entries; the ingestion
// pipeline calls it once per processed document.
func (s *LedgerService) AddEntry(ctx context.Context, entry core.LedgerEntry) error {
	return s.engine.AddEntry(ctx, entry)
}

func (s *LedgerService) GetEntries(companyName string) []core.LedgerEntry {
	return s.engine.GetEntries(companyName)
}

func (s *LedgerService) GetPendingEntries(companyName string) []core.LedgerEntry {
	return s.engine.GetPendingEntries(companyName)
}

func (s *LedgerService) GetPendingNotifications(companyName string) []core.Notification {
	return s.engine.GetPendingNotifications(companyName)
}

func (s *LedgerService) MarkReviewed(ctx context.Context, companyName string) error {
	return s.engine.MarkReviewed(ctx, companyName)
}

func (s *LedgerService) MarkReviewedThrough(ctx context.Context, companyName string, through uint64) error {
	return s.engine.MarkReviewedThrough(ctx, companyName, through)
}

func (s *LedgerService) CalculateTotals(companyName string) core.TotalsReport {
	return s.engine.CalculateTotals(companyName)
}

func (s *LedgerService) GetAccountantSummary() []core.CompanySummary {
	return s.engine.GetAccountantSummary()
}

func (s *LedgerService) ListCompanies() []string {
	return s.engine.ListCompanies()
}

// Close shuts down collaborators: dispatcher first so buffered notifications
// drain through the broker client before it closes.
func (s *LedgerService) Close() error {
	var errs []error

	if s.dispatcher != nil {
		s.dispatcher.Close()
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			errs = append(errs, fmt.Errorf("journal: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %v", errs)
	}
	return nil
}
