package handler

import (
	"net/http"
	"testing"

	"github.com/dukerupert/wedplan/internal/backup"
	"github.com/dukerupert/wedplan/internal/database"
	"github.com/dukerupert/wedplan/internal/store"
	ws "github.com/dukerupert/wedplan/internal/websocket"
)

type countingResync struct{ calls int }

func (c *countingResync) Resync() { c.calls++ }

func backupMux(t *testing.T) *http.ServeMux {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	m := backup.NewManager(backup.Config{}, store.NewKVStore(db), store.NewBackupStore(db), testLogger(), nil)
	h := NewBackupHandler(m, &countingResync{}, ws.NewHub(testLogger()), testLogger())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/backups", h.List)
	mux.HandleFunc("POST /api/backups", h.Create)
	mux.HandleFunc("POST /api/backups/{id}/restore", h.Restore)
	return mux
}

func TestBackupRoutesDisabled(t *testing.T) {
	mux := backupMux(t)

	rec := do(t, mux, "GET", "/api/backups", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status = %d", rec.Code)
	}
	body := decode[map[string]any](t, rec)
	if body["enabled"] != false {
		t.Errorf("enabled = %v", body["enabled"])
	}
	if list, ok := body["backups"].([]any); !ok || len(list) != 0 {
		t.Errorf("backups = %v", body["backups"])
	}

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{"POST", "/api/backups", `{"passphrase":"pw"}`, http.StatusServiceUnavailable},
		{"POST", "/api/backups", `{"passphrase":""}`, http.StatusBadRequest},
		{"POST", "/api/backups", `{`, http.StatusBadRequest},
		{"POST", "/api/backups/1/restore", `{"passphrase":"pw"}`, http.StatusServiceUnavailable},
		{"POST", "/api/backups/x/restore", `{"passphrase":"pw"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		if rec := do(t, mux, tt.method, tt.path, tt.body); rec.Code != tt.want {
			t.Errorf("%s %s %s: status = %d, want %d", tt.method, tt.path, tt.body, rec.Code, tt.want)
		}
	}
}
