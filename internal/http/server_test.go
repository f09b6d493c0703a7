package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/services"
	"ledger/internal/storage"
)

type brokenStore struct{ storage.Store }

func (brokenStore) Save(context.Context, core.Document) error { return errors.New("read-only") }

func newTestServer(t *testing.T, store storage.Store) (*Server, *services.LedgerService) {
	t.Helper()
	logger := log.New(log.Config{Level: slog.LevelError, Output: io.Discard})
	now := func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.Local) }
	svc := services.NewLedgerService(context.Background(), store, services.WithLogger(logger), services.WithClock(now))
	return NewServer(":0", svc, logger, WithMetrics(true)), svc
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestHealthAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t, storage.NewMemoryStore(nil))
	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		rr := do(t, srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
	if rr := do(t, srv, http.MethodGet, "/nope", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown path status=%d", rr.Code)
	}
}

func TestListGroups(t *testing.T) {
	srv, _ := newTestServer(t, storage.NewMemoryStore(nil))
	rr := do(t, srv, http.MethodGet, "/api/groups", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	got := decode[struct {
		Groups []services.GroupInfo `json:"groups"`
	}](t, rr)
	if len(got.Groups) != 2 || got.Groups[0].ID != "group1" || got.Groups[1].ID != "group2" {
		t.Fatalf("groups = %+v", got.Groups)
	}

	if rr := do(t, srv, http.MethodGet, "/api/groups/group1", ""); rr.Code != http.StatusOK {
		t.Fatalf("get group status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/api/groups/ghost", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("missing group status=%d", rr.Code)
	}
}

func TestTransactionLifecycle(t *testing.T) {
	srv, _ := newTestServer(t, storage.NewMemoryStore(nil))

	rr := do(t, srv, http.MethodPost, "/api/groups/group1/transactions",
		`{"date":"2024-05-01","type":"expense","category":"meals","amount":15000,"description":"team lunch"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	tx := decode[core.Transaction](t, rr)
	if tx.ID == "" || tx.Timestamp != "2024-05-06 07:08:09" {
		t.Fatalf("unexpected transaction %+v", tx)
	}

	rr = do(t, srv, http.MethodPost, "/api/groups/group1/transactions",
		`{"type":"income","category":"membership_fee","amount":40000}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	if got := decode[core.Transaction](t, rr); got.Date != "2024-05-06" {
		t.Fatalf("date should default to today, got %q", got.Date)
	}

	rr = do(t, srv, http.MethodGet, "/api/groups/group1/transactions?type=expense", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("list status=%d", rr.Code)
	}
	listing := decode[services.Listing](t, rr)
	if listing.Summary.Balance != 25000 || listing.Summary.Count != 2 {
		t.Fatalf("summary = %+v", listing.Summary)
	}
	if len(listing.Transactions) != 1 || listing.Transactions[0].ID != tx.ID {
		t.Fatalf("filtered transactions = %+v", listing.Transactions)
	}

	if rr := do(t, srv, http.MethodDelete, "/api/groups/group1/transactions/"+tx.ID, ""); rr.Code != http.StatusOK {
		t.Fatalf("delete status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodDelete, "/api/groups/group1/transactions/"+tx.ID, ""); rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status=%d", rr.Code)
	}
}

func TestAddTransactionRejects(t *testing.T) {
	srv, _ := newTestServer(t, storage.NewMemoryStore(nil))
	tests := []struct {
		name   string
		body   string
		status int
		field  string
	}{
		{"malformed json", `{"type":`, http.StatusBadRequest, ""},
		{"unknown field", `{"type":"expense","category":"meals","amount":1,"colour":"red"}`, http.StatusBadRequest, ""},
		{"zero amount", `{"type":"expense","category":"meals","amount":0}`, http.StatusUnprocessableEntity, "amount"},
		{"missing category", `{"type":"expense","amount":10}`, http.StatusUnprocessableEntity, "category"},
		{"bad type", `{"type":"transfer","category":"meals","amount":10}`, http.StatusUnprocessableEntity, "type"},
		{"bad date", `{"date":"2024-13-01","type":"expense","category":"meals","amount":10}`, http.StatusUnprocessableEntity, "date"},
		{"blank category", `{"type":"expense","category":"   ","amount":10}`, http.StatusUnprocessableEntity, "category"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, "/api/groups/group1/transactions", tt.body)
			if rr.Code != tt.status {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tt.status, rr.Body.String())
			}
			if got := decode[errorBody](t, rr); got.Field != tt.field {
				t.Fatalf("field=%q want %q", got.Field, tt.field)
			}
		})
	}
}

func TestCategoryEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, storage.NewMemoryStore(nil))

	rr := do(t, srv, http.MethodPost, "/api/groups/group2/categories/expense", `{"name":"parking"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("add status=%d body=%s", rr.Code, rr.Body.String())
	}
	got := decode[categoriesResponse](t, rr)
	if got.Categories[len(got.Categories)-1] != "parking" {
		t.Fatalf("categories = %v", got.Categories)
	}

	if rr := do(t, srv, http.MethodPost, "/api/groups/group2/categories/expense", `{"name":"parking"}`); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("duplicate status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodPost, "/api/groups/group2/categories/transfer", `{"name":"x"}`); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad type status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodDelete, "/api/groups/group2/categories/expense/parking", ""); rr.Code != http.StatusOK {
		t.Fatalf("remove status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodDelete, "/api/groups/group2/categories/expense/parking", ""); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("remove missing status=%d", rr.Code)
	}

	for _, name := range []struct{ name, path string }{
		{"50%off", "50%25off"},
		{"fuel/toll", "fuel%2Ftoll"},
		{"late fee", "late%20fee"},
	} {
		if rr := do(t, srv, http.MethodPost, "/api/groups/group1/categories/expense", `{"name":"`+name.name+`"}`); rr.Code != http.StatusCreated {
			t.Fatalf("add %q status=%d", name.name, rr.Code)
		}
		rr := do(t, srv, http.MethodDelete, "/api/groups/group1/categories/expense/"+name.path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("remove %q status=%d body=%s", name.name, rr.Code, rr.Body.String())
		}
		for _, c := range decode[categoriesResponse](t, rr).Categories {
			if c == name.name {
				t.Fatalf("%q still registered", name.name)
			}
		}
	}
}

func TestDescriptionStoredVerbatim(t *testing.T) {
	srv, _ := newTestServer(t, storage.NewMemoryStore(nil))
	rr := do(t, srv, http.MethodPost, "/api/groups/group1/transactions",
		`{"type":"expense","category":"meals","amount":5,"description":"  two coffees  "}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if got := decode[core.Transaction](t, rr).Description; got != "  two coffees  " {
		t.Fatalf("description = %q", got)
	}
}

func TestRenameGroup(t *testing.T) {
	srv, svc := newTestServer(t, storage.NewMemoryStore(nil))
	rr := do(t, srv, http.MethodPut, "/api/groups/group1/name", `{"name":"Summer camp"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if g, _ := svc.Group("group1"); g.Name != "Summer camp" {
		t.Fatalf("name = %q", g.Name)
	}
	if rr := do(t, srv, http.MethodPut, "/api/groups/group1/name", `{"name":""}`); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty name status=%d", rr.Code)
	}
}

func TestExportCSV(t *testing.T) {
	srv, _ := newTestServer(t, storage.NewMemoryStore(nil))
	do(t, srv, http.MethodPut, "/api/groups/group1/name", `{"name":"Club"}`)
	do(t, srv, http.MethodPost, "/api/groups/group1/transactions",
		`{"date":"2024-05-01","type":"expense","category":"meals","amount":15000}`)

	rr := do(t, srv, http.MethodGet, "/api/groups/group1/export.csv?order=oldest", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("content type %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); cd != "attachment; filename=Club_20240506.csv" {
		t.Fatalf("content disposition %q", cd)
	}
	body := rr.Body.String()
	if !strings.HasPrefix(body, "\ufeffdate,type,category,amount,description,timestamp\n") {
		t.Fatalf("unexpected header: %q", body)
	}
	if !strings.Contains(body, "2024-05-01,expense,meals,15000,,2024-05-06 07:08:09") {
		t.Fatalf("row missing: %q", body)
	}

	if rr := do(t, srv, http.MethodGet, "/api/groups/group1/export.csv?order=sideways", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad order status=%d", rr.Code)
	}
}

func TestResetRequiresConfirmation(t *testing.T) {
	srv, svc := newTestServer(t, storage.NewMemoryStore(nil))
	do(t, srv, http.MethodPost, "/api/groups/group1/transactions", `{"type":"expense","category":"meals","amount":5}`)

	if rr := do(t, srv, http.MethodPost, "/api/reset", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("unconfirmed reset status=%d", rr.Code)
	}
	if l, _ := svc.List("group1", services.ListOptions{}); l.Summary.Count != 1 {
		t.Fatalf("unconfirmed reset must not change data")
	}
	if rr := do(t, srv, http.MethodPost, "/api/reset?confirm=true", ""); rr.Code != http.StatusOK {
		t.Fatalf("reset status=%d", rr.Code)
	}
	if l, _ := svc.List("group1", services.ListOptions{}); l.Summary.Count != 0 {
		t.Fatalf("reset should clear transactions")
	}
}

func TestSaveFailureIs500(t *testing.T) {
	srv, _ := newTestServer(t, brokenStore{storage.NewMemoryStore(nil)})
	rr := do(t, srv, http.MethodPost, "/api/groups/group1/categories/income", `{"name":"grants"}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", rr.Code)
	}
	if got := decode[errorBody](t, rr); got.Error != "internal error" {
		t.Fatalf("error body leaked details: %+v", got)
	}
}
