package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bookkeep/internal/core"
	"bookkeep/internal/ledger"
	"bookkeep/internal/services"
)

func newTestServer(t *testing.T, strict bool) *Server {
	t.Helper()
	engine := ledger.NewEngine(nil, nil, strict)
	svc := services.NewLedgerService(engine, nil, nil, nil)
	s := NewServer("127.0.0.1:0", svc, 50*time.Millisecond)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func entryBody(company, store, date string, total string) string {
	return fmt.Sprintf(`{
		"companyName": %q,
		"date": %q,
		"storeName": %q,
		"total": %s,
		"items": [
			{"name": "Paper", "price": "$10.00", "category": "office"},
			{"name": "Coffee", "price": "$5.00"}
		]
	}`, company, date, store, total)
}

func TestServer_AddEntryAndReadBack(t *testing.T) {
	s := newTestServer(t, false)

	rec := doRequest(s, http.MethodPost, "/entries", entryBody("Acme Corp", "Staples", "2024-01-15", "42.50"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(s, http.MethodGet, "/companies/Acme%20Corp/entries", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Entries []core.LedgerEntry `json:"entries"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(resp.Entries))
	}
	if resp.Entries[0].StoreName != "Staples" {
		t.Fatalf("expected store Staples, got %q", resp.Entries[0].StoreName)
	}
	if resp.Entries[0].Total.Cents != 4250 {
		t.Fatalf("expected total 4250 cents, got %d", resp.Entries[0].Total.Cents)
	}
	if len(resp.Entries[0].Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(resp.Entries[0].Items))
	}
}

func TestServer_AddEntryStringTotal(t *testing.T) {
	s := newTestServer(t, false)

	rec := doRequest(s, http.MethodPost, "/entries", entryBody("Acme", "Store", "2024-01-15", `"$19.99"`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(s, http.MethodGet, "/companies/Acme/entries", "")
	var resp struct {
		Entries []core.LedgerEntry `json:"entries"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Entries[0].Total.Cents != 1999 {
		t.Fatalf("expected 1999 cents, got %d", resp.Entries[0].Total.Cents)
	}
}

func TestServer_AddEntryInvalidJSON(t *testing.T) {
	s := newTestServer(t, false)

	rec := doRequest(s, http.MethodPost, "/entries", `{"companyName": `)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestServer_AddEntryStrictValidation(t *testing.T) {
	s := newTestServer(t, true)

	rec := doRequest(s, http.MethodPost, "/entries", entryBody("", "Staples", "2024-01-15", "10.00"))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if !strings.Contains(resp.Error, "company") {
		t.Fatalf("expected company error, got %q", resp.Error)
	}
}

func TestServer_PendingAndReviewedFlow(t *testing.T) {
	s := newTestServer(t, false)

	for i := 1; i <= 3; i++ {
		date := fmt.Sprintf("2024-01-0%d", i)
		rec := doRequest(s, http.MethodPost, "/entries", entryBody("Acme", "Store", date, "10.00"))
		if rec.Code != http.StatusCreated {
			t.Fatalf("append %d: expected 201, got %d", i, rec.Code)
		}
	}

	rec := doRequest(s, http.MethodGet, "/companies/Acme/pending", "")
	var pending pendingResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &pending); err != nil {
		t.Fatalf("failed to decode pending: %v", err)
	}
	if len(pending.Notifications) != 3 {
		t.Fatalf("expected 3 pending, got %d", len(pending.Notifications))
	}
	if pending.LastSeq != 3 {
		t.Fatalf("expected lastSeq 3, got %d", pending.LastSeq)
	}

	// Acknowledge only the first two.
	rec = doRequest(s, http.MethodPost, "/companies/Acme/reviewed", `{"through_seq": 2}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = doRequest(s, http.MethodGet, "/companies/Acme/pending", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &pending); err != nil {
		t.Fatalf("failed to decode pending: %v", err)
	}
	if len(pending.Notifications) != 1 {
		t.Fatalf("expected 1 pending after partial ack, got %d", len(pending.Notifications))
	}
	if pending.Notifications[0].Seq != 3 {
		t.Fatalf("expected seq 3 to remain, got %d", pending.Notifications[0].Seq)
	}

	// Ack everything with an empty body.
	rec = doRequest(s, http.MethodPost, "/companies/Acme/reviewed", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = doRequest(s, http.MethodGet, "/companies/Acme/pending", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &pending); err != nil {
		t.Fatalf("failed to decode pending: %v", err)
	}
	if len(pending.Notifications) != 0 {
		t.Fatalf("expected empty pending, got %d", len(pending.Notifications))
	}
}

func TestServer_Totals(t *testing.T) {
	s := newTestServer(t, false)

	rec := doRequest(s, http.MethodPost, "/entries", entryBody("Acme", "Store", "2024-01-15", "15.00"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	rec = doRequest(s, http.MethodGet, "/companies/Acme/totals", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var report core.TotalsReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("failed to decode totals: %v", err)
	}
	if report.GrandTotal.Cents != 1500 {
		t.Fatalf("expected grand total 1500, got %d", report.GrandTotal.Cents)
	}
	if report.TotalByCategory["office"].Cents != 1000 {
		t.Fatalf("expected office 1000, got %d", report.TotalByCategory["office"].Cents)
	}
	if report.TotalByCategory[core.DefaultCategory].Cents != 500 {
		t.Fatalf("expected %s 500, got %d", core.DefaultCategory, report.TotalByCategory[core.DefaultCategory].Cents)
	}
}

func TestServer_SummaryReflectsNewEntries(t *testing.T) {
	s := newTestServer(t, false)

	// Prime the cache with an empty summary.
	rec := doRequest(s, http.MethodGet, "/summary", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = doRequest(s, http.MethodPost, "/entries", entryBody("Acme", "Store", "2024-01-15", "10.00"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	// Append invalidates the summary cache, so the new entry shows immediately.
	rec = doRequest(s, http.MethodGet, "/summary", "")
	var resp struct {
		Summary []core.CompanySummary `json:"summary"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode summary: %v", err)
	}
	if len(resp.Summary) != 1 {
		t.Fatalf("expected 1 summary row, got %d", len(resp.Summary))
	}
	row := resp.Summary[0]
	if row.CompanyName != "Acme" || row.TotalEntries != 1 || row.NewEntries != 1 {
		t.Fatalf("unexpected summary row: %+v", row)
	}
	if row.LastActivity != "2024-01-15" {
		t.Fatalf("expected lastActivity 2024-01-15, got %q", row.LastActivity)
	}
}

func TestServer_ListCompanies(t *testing.T) {
	s := newTestServer(t, false)

	doRequest(s, http.MethodPost, "/entries", entryBody("Beta", "Store", "2024-01-01", "1.00"))
	doRequest(s, http.MethodPost, "/entries", entryBody("Acme", "Store", "2024-01-02", "2.00"))

	rec := doRequest(s, http.MethodGet, "/companies", "")
	var resp struct {
		Companies []string `json:"companies"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode companies: %v", err)
	}
	if len(resp.Companies) != 2 || resp.Companies[0] != "Beta" || resp.Companies[1] != "Acme" {
		t.Fatalf("expected first-seen order [Beta Acme], got %v", resp.Companies)
	}
}

func TestServer_UnknownCompanyIsEmptyNotError(t *testing.T) {
	s := newTestServer(t, false)

	rec := doRequest(s, http.MethodGet, "/companies/Ghost/entries", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"entries":[]`) {
		t.Fatalf("expected empty entries array, got %s", rec.Body.String())
	}

	rec = doRequest(s, http.MethodPost, "/companies/Ghost/reviewed", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for unknown company review, got %d", rec.Code)
	}
}

func TestServer_SecurityHeaders(t *testing.T) {
	s := newTestServer(t, false)

	rec := doRequest(s, http.MethodGet, "/companies", "")
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected nosniff, got %q", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("expected DENY, got %q", got)
	}
}

func TestServer_RateLimitsWrites(t *testing.T) {
	s := newTestServer(t, false)

	var limited bool
	for i := 0; i < 70; i++ {
		req := httptest.NewRequest(http.MethodPost, "/entries", strings.NewReader(entryBody("Acme", "Store", "2024-01-01", "1.00")))
		req.Header.Set("X-Forwarded-For", "10.0.0.1")
		rec := httptest.NewRecorder()
		s.Handler.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			if got := rec.Header().Get("Retry-After"); got != "60" {
				t.Fatalf("expected Retry-After 60, got %q", got)
			}
			break
		}
	}
	if !limited {
		t.Fatal("expected rate limiting to trigger within 70 requests")
	}

	// Reads are never rate limited.
	req := httptest.NewRequest(http.MethodGet, "/companies", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.1")
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for read, got %d", rec.Code)
	}
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(t, false)

	rec := doRequest(s, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = doRequest(s, http.MethodGet, "/readyz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestLRUCache(t *testing.T) {
	cache := newLRUCache[string](2, time.Hour)

	cache.Set("a", "1")
	cache.Set("b", "2")
	cache.Set("c", "3")

	if _, ok := cache.Get("a"); ok {
		t.Fatal("expected oldest entry to be evicted")
	}
	if v, ok := cache.Get("c"); !ok || v != "3" {
		t.Fatalf("expected c=3, got %q ok=%v", v, ok)
	}

	cache.Delete("b")
	if _, ok := cache.Get("b"); ok {
		t.Fatal("expected deleted entry to be gone")
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	cache := newLRUCache[int](10, 10*time.Millisecond)
	cache.Set("k", 42)

	if v, ok := cache.Get("k"); !ok || v != 42 {
		t.Fatalf("expected fresh entry, got %d ok=%v", v, ok)
	}

	time.Sleep(20 * time.Millisecond)
	if _, ok := cache.Get("k"); ok {
		t.Fatal("expected entry to expire")
	}

	cache.Set("k", 1)
	time.Sleep(20 * time.Millisecond)
	if removed := cache.CleanExpired(); removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
}
