package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukerupert/wedplan/internal/budget"
	"github.com/dukerupert/wedplan/internal/database"
	"github.com/dukerupert/wedplan/internal/push"
	"github.com/dukerupert/wedplan/internal/store"
	"github.com/dukerupert/wedplan/internal/timeline"
	ws "github.com/dukerupert/wedplan/internal/websocket"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	kv        *store.KVStore
	pushStore *store.PushStore
	timeline  *timeline.Service
	mux       *http.ServeMux
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := testLogger()
	hub := ws.NewHub(logger)
	kv := store.NewKVStore(db)
	ps := store.NewPushStore(db)
	reminders := push.NewReminders(ps, logger)
	tl := timeline.NewService(kv, timeline.DefaultCatalog(), reminders, timeline.Options{NotifyHour: 9}, logger)

	th := NewTimelineHandler(tl, hub, logger)
	bh := NewBudgetHandler(budget.NewService(kv, logger), hub, logger)
	ph := NewProfileHandler(kv, reminders, hub, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/timeline", th.Create)
	mux.HandleFunc("GET /api/timeline", th.Get)
	mux.HandleFunc("DELETE /api/timeline", th.Delete)
	mux.HandleFunc("GET /api/timeline/summary", th.Summary)
	mux.HandleFunc("POST /api/timeline/items/{id}/toggle", th.Toggle)
	mux.HandleFunc("PUT /api/timeline/items/{id}/date", th.UpdateDate)
	mux.HandleFunc("DELETE /api/timeline/items/{id}/date", th.ResetDate)
	mux.HandleFunc("DELETE /api/timeline/items/{id}", th.DeleteItem)
	mux.HandleFunc("POST /api/timeline/restore", th.Restore)
	mux.HandleFunc("GET /api/timeline.ics", th.ICS)
	mux.HandleFunc("GET /api/catalog", th.Catalog)
	mux.HandleFunc("GET /api/budget", bh.Get)
	mux.HandleFunc("PUT /api/budget/total", bh.SetTotal)
	mux.HandleFunc("POST /api/budget/items", bh.CreateItem)
	mux.HandleFunc("PUT /api/budget/items/{id}", bh.UpdateItem)
	mux.HandleFunc("DELETE /api/budget/items/{id}", bh.DeleteItem)
	mux.HandleFunc("GET /api/profile", ph.Get)
	mux.HandleFunc("PUT /api/profile", ph.Update)
	mux.HandleFunc("DELETE /api/data", ph.DeleteAll)

	return &testEnv{kv: kv, pushStore: ps, timeline: tl, mux: mux}
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}
