package ledger

import (
	"log/slog"

	"bookkeep/internal/core"
	applog "bookkeep/internal/log"
)

// Totals aggregates an entry sequence into a report.
//
// The grand total sums entry totals; category buckets sum parsed item prices
// with uncategorized items falling into core.DefaultCategory. The two figures
// come from different fields and may legitimately disagree. Items whose price
// fails to parse are skipped, counted on the report, and logged at debug
// level; they are never an error for the caller.
func Totals(entries []core.LedgerEntry) core.TotalsReport {
	report := core.TotalsReport{TotalByCategory: make(map[string]core.Money)}
	for _, entry := range entries {
		report.GrandTotal.Cents += entry.Total.Cents
		for _, item := range entry.Items {
			cents, err := core.ParsePriceToCents(item.Price)
			if err != nil {
				report.SkippedItems++
				slog.Debug("Skipping item with unparseable price",
					applog.FieldComponent, applog.ComponentLedger,
					applog.FieldCompany, entry.CompanyName,
					"item", item.Name,
					"price", item.Price)
				continue
			}
			category := item.Category
			if category == "" {
				category = core.DefaultCategory
			}
			bucket := report.TotalByCategory[category]
			bucket.Cents += cents
			report.TotalByCategory[category] = bucket
		}
	}
	return report
}

// CalculateTotals aggregates a company's entries. Unknown companies yield a
// zero report with an empty category map.
func (e *Engine) CalculateTotals(company string) core.TotalsReport {
	return Totals(e.GetEntries(company))
}
