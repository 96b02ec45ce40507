package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"bookkeep/internal/core"
	applog "bookkeep/internal/log"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response",
			applog.FieldComponent, applog.ComponentHTTP,
			applog.FieldError, err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

type addEntryRequest struct {
	CompanyName string          `json:"companyName"`
	Date        string          `json:"date"`
	StoreName   string          `json:"storeName"`
	Total       json.RawMessage `json:"total"`
	Items       []itemRequest   `json:"items"`
}

type itemRequest struct {
	Name     string `json:"name"`
	Price    string `json:"price"`
	Category string `json:"category"`
}

type addEntryResponse struct {
	Status string `json:"status"`
}

// handleAddEntry ingests one ledger entry. The total accepts either a JSON
// number in dollars or a price string like "$42.50".
func (s *Server) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	var req addEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var total core.Money
	if len(req.Total) > 0 {
		if err := total.UnmarshalJSON(req.Total); err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid total: "+err.Error())
			return
		}
	}

	items := make([]core.LedgerItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, core.LedgerItem{
			Name:     it.Name,
			Price:    it.Price,
			Category: it.Category,
		})
	}

	entry := core.LedgerEntry{
		CompanyName: req.CompanyName,
		Date:        req.Date,
		StoreName:   req.StoreName,
		Total:       total,
		Items:       items,
	}

	if err := s.svc.AddEntry(r.Context(), entry); err != nil {
		if errors.Is(err, core.ErrInvalidEntry) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "Failed to add ledger entry",
			applog.FieldComponent, applog.ComponentHTTP,
			applog.FieldCompany, req.CompanyName,
			applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, "failed to record entry")
		return
	}

	s.summaryCache.Delete("summary")
	s.totalsCache.Delete(req.CompanyName)

	writeJSON(w, http.StatusCreated, addEntryResponse{Status: "recorded"})
}

func (s *Server) handleListCompanies(w http.ResponseWriter, r *http.Request) {
	companies := s.svc.ListCompanies()
	if companies == nil {
		companies = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"companies": companies})
}

func (s *Server) handleGetEntries(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	entries := s.svc.GetEntries(name)
	if entries == nil {
		entries = []core.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, map[string][]core.LedgerEntry{"entries": entries})
}

type pendingResponse struct {
	Notifications []core.Notification `json:"notifications"`
	LastSeq       uint64              `json:"lastSeq"`
}

// handleGetPending returns the unreviewed notifications for a company along
// with the highest sequence number in the batch, which the caller passes back
// as through_seq when acknowledging.
func (s *Server) handleGetPending(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	notifications := s.svc.GetPendingNotifications(name)
	if notifications == nil {
		notifications = []core.Notification{}
	}

	var lastSeq uint64
	for _, n := range notifications {
		if n.Seq > lastSeq {
			lastSeq = n.Seq
		}
	}

	writeJSON(w, http.StatusOK, pendingResponse{Notifications: notifications, LastSeq: lastSeq})
}

type markReviewedRequest struct {
	ThroughSeq uint64 `json:"through_seq"`
}

// handleMarkReviewed acknowledges pending notifications. With a through_seq
// from a prior pending read it only clears that batch, so entries appended
// since the read stay queued; without one it clears everything pending now.
func (s *Server) handleMarkReviewed(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var req markReviewedRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	var err error
	if req.ThroughSeq > 0 {
		err = s.svc.MarkReviewedThrough(r.Context(), name, req.ThroughSeq)
	} else {
		err = s.svc.MarkReviewed(r.Context(), name)
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to mark entries reviewed",
			applog.FieldComponent, applog.ComponentHTTP,
			applog.FieldCompany, name,
			applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, "failed to mark reviewed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "reviewed"})
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	if report, ok := s.totalsCache.Get(name); ok {
		writeJSON(w, http.StatusOK, report)
		return
	}

	report := s.svc.CalculateTotals(name)
	s.totalsCache.Set(name, report)
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if summary, ok := s.summaryCache.Get("summary"); ok {
		writeJSON(w, http.StatusOK, map[string][]core.CompanySummary{"summary": summary})
		return
	}

	summary := s.svc.GetAccountantSummary()
	if summary == nil {
		summary = []core.CompanySummary{}
	}
	s.summaryCache.Set("summary", summary)
	writeJSON(w, http.StatusOK, map[string][]core.CompanySummary{"summary": summary})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ready",
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
	})
}
