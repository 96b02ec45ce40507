package core

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// DefaultCategory buckets items that carry no category during aggregation.
	// The raw item keeps its empty category; the default applies only to totals.
	DefaultCategory = "other"

	// NoActivity is the last-activity sentinel for a company without entries.
	NoActivity = "No activity"
)

type (
	// LedgerItem is a single line on a receipt or statement. Price is the raw
	// formatted string produced by extraction ("$" plus a 2-decimal number);
	// it is parsed only at aggregation time so a malformed price never blocks
	// ingestion.
	LedgerItem struct {
		Name     string `json:"name"`
		Price    string `json:"price"`
		Category string `json:"category,omitempty"`
	}

	// LedgerEntry is one recorded transaction for a company. Entries are
	// immutable once appended; corrections require a new entry. CompanyName is
	// the tenant key, compared exactly and case-sensitively. Date is carried
	// as an unvalidated "YYYY-MM-DD" string from the extraction pipeline.
	LedgerEntry struct {
		CompanyName string       `json:"companyName"`
		Date        string       `json:"date"`
		StoreName   string       `json:"storeName"`
		Total       Money        `json:"total"`
		Items       []LedgerItem `json:"items"`
	}

	// Notification is an entry pending accountant review. Seq increases
	// monotonically per company, so reviewers can acknowledge exactly the
	// notifications they have seen.
	Notification struct {
		Seq   uint64      `json:"seq"`
		Entry LedgerEntry `json:"entry"`
	}

	// CompanySummary is one dashboard row per company.
	CompanySummary struct {
		CompanyName  string `json:"companyName"`
		TotalEntries int    `json:"totalEntries"`
		NewEntries   int    `json:"newEntries"`
		LastActivity string `json:"lastActivity"`
		TotalAmount  Money  `json:"totalAmount"`
	}

	// TotalsReport holds on-demand aggregation results. GrandTotal sums entry
	// totals; TotalByCategory sums parsed item prices. The two are computed
	// from different fields and are not guaranteed to agree.
	TotalsReport struct {
		TotalByCategory map[string]Money `json:"totalByCategory"`
		GrandTotal      Money            `json:"grandTotal"`
		SkippedItems    int              `json:"skippedItems,omitempty"`
	}
)

var (
	ErrInvalidEntry  = errors.New("invalid ledger entry")
	ErrEmptyCompany  = errors.New("empty company name")
	ErrEmptyStore    = errors.New("empty store name")
	ErrNegativeTotal = errors.New("negative total")
)

// Validate checks the strict-mode constraints on an entry. The engine only
// calls it when strict validation is enabled; the default contract accepts
// anything, matching the observed ingestion behavior.
func (e LedgerEntry) Validate() error {
	if strings.TrimSpace(e.CompanyName) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEntry, ErrEmptyCompany)
	}
	if strings.TrimSpace(e.StoreName) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEntry, ErrEmptyStore)
	}
	if e.Total.Cents < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidEntry, ErrNegativeTotal)
	}
	return nil
}

// CloneItems returns a copy of the item slice so stored entries cannot be
// mutated through a caller-held slice.
func (e LedgerEntry) CloneItems() []LedgerItem {
	if e.Items == nil {
		return nil
	}
	items := make([]LedgerItem, len(e.Items))
	copy(items, e.Items)
	return items
}
