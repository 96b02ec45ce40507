package ledger

import "bookkeep/internal/core"

// GetAccountantSummary projects one dashboard row per company, in the order
// companies first appeared. LastActivity is the date of the most recently
// appended entry, not the chronologically latest one; entries are never
// re-sorted by date.
func (e *Engine) GetAccountantSummary() []core.CompanySummary {
	e.mu.RLock()
	order := make([]string, len(e.order))
	copy(order, e.order)
	states := make([]*companyState, len(order))
	for i, name := range order {
		states[i] = e.companies[name]
	}
	e.mu.RUnlock()

	summaries := make([]core.CompanySummary, 0, len(order))
	for i, st := range states {
		st.mu.RLock()
		if len(st.entries) == 0 {
			st.mu.RUnlock()
			continue
		}
		summaries = append(summaries, summaryRow(order[i], st.entries, len(st.pending)))
		st.mu.RUnlock()
	}
	return summaries
}

func summaryRow(company string, entries []core.LedgerEntry, pending int) core.CompanySummary {
	row := core.CompanySummary{
		CompanyName:  company,
		TotalEntries: len(entries),
		NewEntries:   pending,
		LastActivity: core.NoActivity,
	}
	for _, entry := range entries {
		row.TotalAmount.Cents += entry.Total.Cents
	}
	if len(entries) > 0 {
		row.LastActivity = entries[len(entries)-1].Date
	}
	return row
}
