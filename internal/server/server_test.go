package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dukerupert/wedplan/internal/config"
	"github.com/dukerupert/wedplan/internal/database"
	"github.com/dukerupert/wedplan/internal/timeline"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupServer(t *testing.T, mutate func(*config.Config)) (*Server, http.Handler) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := config.Default()
	cfg.Timezone = "UTC"
	if mutate != nil {
		mutate(cfg)
	}
	srv := New(db, cfg, timeline.DefaultCatalog(), testLogger())
	return srv, srv.Router()
}

func request(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
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

func TestHealth(t *testing.T) {
	_, h := setupServer(t, nil)
	rec := request(t, h, "GET", "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, `"ok"`) || !strings.Contains(body, `"ws_clients":0`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestMetricsExposesRequestHistogram(t *testing.T) {
	_, h := setupServer(t, nil)
	request(t, h, "GET", "/health", "")

	rec := request(t, h, "GET", "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "wedplan_http_request_duration_seconds") {
		t.Error("request histogram missing from /metrics")
	}
}

func TestVendorRoutes(t *testing.T) {
	_, h := setupServer(t, nil)

	for _, path := range []string{"/api/wedding-halls", "/api/studios", "/api/dress", "/api/makeup"} {
		rec := request(t, h, "GET", path+"?region=gangnam&limit=2", "")
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d", path, rec.Code)
			continue
		}
		var body struct {
			Success bool `json:"success"`
			Data    struct {
				Count int               `json:"count"`
				Items []json.RawMessage `json:"items"`
			} `json:"data"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("%s: decode: %v", path, err)
		}
		if !body.Success || body.Data.Count != len(body.Data.Items) || body.Data.Count > 2 {
			t.Errorf("%s: body = %+v", path, body)
		}
	}

	rec := request(t, h, "GET", "/api/studios", "")
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), `"success":false`) {
		t.Errorf("missing region: %d %s", rec.Code, rec.Body.String())
	}
}

func TestVendorRoutesRateLimited(t *testing.T) {
	_, h := setupServer(t, func(c *config.Config) { c.SearchPerMinute = 2 })

	for i := 0; i < 2; i++ {
		if rec := request(t, h, "GET", "/api/dress?region=seoul", ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, rec.Code)
		}
	}
	rec := request(t, h, "GET", "/api/dress?region=seoul", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}

	// Non-search routes are not limited.
	if rec := request(t, h, "GET", "/api/catalog", ""); rec.Code != http.StatusOK {
		t.Errorf("catalog status = %d", rec.Code)
	}
}

func TestTimelineThroughRouter(t *testing.T) {
	srv, h := setupServer(t, nil)

	rec := request(t, h, "POST", "/api/timeline", `{"wedding_date":"2030-12-31","start_date":"2030-01-01"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = request(t, h, "GET", "/api/timeline.ics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "BEGIN:VCALENDAR") {
		t.Errorf("ics: %d", rec.Code)
	}

	if _, err := srv.Timeline().Load(); err != nil {
		t.Errorf("timeline not persisted: %v", err)
	}

	rec = request(t, h, "DELETE", "/api/data", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete data status = %d", rec.Code)
	}
	if rec := request(t, h, "GET", "/api/timeline", ""); rec.Code != http.StatusNotFound {
		t.Errorf("after delete status = %d", rec.Code)
	}
}

func TestOptionalFeaturesDisabled(t *testing.T) {
	srv, h := setupServer(t, nil)

	if rec := request(t, h, "GET", "/api/push/vapid-key", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("vapid key status = %d", rec.Code)
	}
	if rec := request(t, h, "POST", "/api/backups", `{"passphrase":"pw"}`); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("backup status = %d", rec.Code)
	}
	if srv.BackupManager().Enabled() {
		t.Error("backups enabled without S3 config")
	}
}

func TestUnknownRoute(t *testing.T) {
	_, h := setupServer(t, nil)
	if rec := request(t, h, "GET", "/api/chores", ""); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
}
