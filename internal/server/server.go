package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dukerupert/wedplan/internal/backup"
	"github.com/dukerupert/wedplan/internal/budget"
	"github.com/dukerupert/wedplan/internal/config"
	"github.com/dukerupert/wedplan/internal/handler"
	"github.com/dukerupert/wedplan/internal/middleware"
	"github.com/dukerupert/wedplan/internal/push"
	"github.com/dukerupert/wedplan/internal/store"
	"github.com/dukerupert/wedplan/internal/timeline"
	"github.com/dukerupert/wedplan/internal/vendor"
	ws "github.com/dukerupert/wedplan/internal/websocket"
)

type Server struct {
	db          *sql.DB
	hub         *ws.Hub
	wsOrigins   []string
	timelineH   *handler.TimelineHandler
	budgetH     *handler.BudgetHandler
	profileH    *handler.ProfileHandler
	vendorH     *handler.VendorHandler
	pushH       *handler.PushHandler
	backupH     *handler.BackupHandler
	timelineSvc *timeline.Service
	vendorSvc   *vendor.Service
	pushStore   *store.PushStore
	dispatcher  *push.Dispatcher
	rateLimiter *middleware.RateLimiter
	backupMgr   *backup.Manager
	logger      *slog.Logger
}

func New(db *sql.DB, cfg *config.Config, catalog timeline.Catalog, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	kv := store.NewKVStore(db)
	pushSt := store.NewPushStore(db)
	backupStore := store.NewBackupStore(db)

	pushLogger := logger.With("component", "push")
	pushSvc := push.NewService(push.Config{
		VAPIDPublicKey:  cfg.Push.VAPIDPublicKey,
		VAPIDPrivateKey: cfg.Push.VAPIDPrivateKey,
		Subscriber:      cfg.Push.Subject,
	})
	reminders := push.NewReminders(pushSt, pushLogger)
	dispatcher := push.NewDispatcher(pushSvc, pushSt, pushLogger)

	timelineSvc := timeline.NewService(kv, catalog, reminders, timeline.Options{
		Location:   cfg.Location(),
		NotifyHour: cfg.NotifyHour,
	}, logger.With("component", "timeline"))

	backupMgr := backup.NewManager(backup.Config{
		S3: backup.S3Config{
			Endpoint:  cfg.Backup.S3.Endpoint,
			Bucket:    cfg.Backup.S3.Bucket,
			Region:    cfg.Backup.S3.Region,
			AccessKey: cfg.Backup.S3.AccessKey,
			SecretKey: cfg.Backup.S3.SecretKey,
		},
		Passphrase:    cfg.Backup.Passphrase,
		RetentionDays: cfg.Backup.RetentionDays,
	}, kv, backupStore, logger.With("component", "backup"), func(s backup.Status) {
		hub.Broadcast(ws.NewMessage(ws.EntityBackup, string(s.State), "", map[string]any{
			"in_progress": s.InProgress,
			"error":       s.Error,
		}))
	})

	vendorSvc := vendor.NewService(vendor.Config{
		APIKey:            cfg.KakaoAPIKey,
		RequestsPerSecond: cfg.SearchRPS,
	}, logger.With("component", "vendor"))

	return &Server{
		db:          db,
		hub:         hub,
		wsOrigins:   cfg.WSOrigins,
		timelineH:   handler.NewTimelineHandler(timelineSvc, hub, logger.With("component", "timeline_handler")),
		budgetH:     handler.NewBudgetHandler(budget.NewService(kv, logger.With("component", "budget")), hub, logger.With("component", "budget_handler")),
		profileH:    handler.NewProfileHandler(kv, reminders, hub, logger.With("component", "profile_handler")),
		vendorH:     handler.NewVendorHandler(vendorSvc, logger.With("component", "vendor_handler")),
		pushH:       handler.NewPushHandler(pushSt, pushSvc, dispatcher, hub, logger.With("component", "push_handler")),
		backupH:     handler.NewBackupHandler(backupMgr, timelineSvc, hub, logger.With("component", "backup_handler")),
		timelineSvc: timelineSvc,
		vendorSvc:   vendorSvc,
		pushStore:   pushSt,
		dispatcher:  dispatcher,
		rateLimiter: middleware.NewRateLimiter(cfg.SearchPerMinute, 10*time.Minute),
		backupMgr:   backupMgr,
		logger:      logger,
	}
}

// Vendors returns the vendor search service.
func (s *Server) Vendors() *vendor.Service {
	return s.vendorSvc
}

// Timeline returns the timeline service.
func (s *Server) Timeline() *timeline.Service {
	return s.timelineSvc
}

// Dispatcher returns the reminder dispatcher for the cron job.
func (s *Server) Dispatcher() *push.Dispatcher {
	return s.dispatcher
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupMgr
}

// Hub returns the websocket hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.Handle("GET /metrics", promhttp.Handler())

	s.registerVendorRoutes(mux)
	s.registerAPIRoutes(mux)

	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.wsOrigins, s.logger.With("component", "websocket")))

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		status = "unavailable"
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{"status": status, "ws_clients": s.hub.ClientCount()})
}

func (s *Server) rateLimited(h http.HandlerFunc) http.Handler {
	return middleware.RateLimit(s.rateLimiter, middleware.RealIP)(h)
}

func (s *Server) registerVendorRoutes(mux *http.ServeMux) {
	mux.Handle("GET /api/wedding-halls", s.rateLimited(s.vendorH.Category(vendor.WeddingHall)))
	mux.Handle("GET /api/studios", s.rateLimited(s.vendorH.Category(vendor.Studio)))
	mux.Handle("GET /api/dress", s.rateLimited(s.vendorH.Category(vendor.Dress)))
	mux.Handle("GET /api/makeup", s.rateLimited(s.vendorH.Category(vendor.Makeup)))
	mux.HandleFunc("GET /api/vendors", s.vendorH.Categories)
	mux.Handle("GET /api/vendors/{category}", s.rateLimited(s.vendorH.ByName))
}

func (s *Server) registerAPIRoutes(mux *http.ServeMux) {
	// Timeline
	mux.HandleFunc("POST /api/timeline", s.timelineH.Create)
	mux.HandleFunc("GET /api/timeline", s.timelineH.Get)
	mux.HandleFunc("DELETE /api/timeline", s.timelineH.Delete)
	mux.HandleFunc("GET /api/timeline/summary", s.timelineH.Summary)
	mux.HandleFunc("POST /api/timeline/items/{id}/toggle", s.timelineH.Toggle)
	mux.HandleFunc("PUT /api/timeline/items/{id}/date", s.timelineH.UpdateDate)
	mux.HandleFunc("DELETE /api/timeline/items/{id}/date", s.timelineH.ResetDate)
	mux.HandleFunc("DELETE /api/timeline/items/{id}", s.timelineH.DeleteItem)
	mux.HandleFunc("POST /api/timeline/restore", s.timelineH.Restore)
	mux.HandleFunc("GET /api/timeline.ics", s.timelineH.ICS)
	mux.HandleFunc("GET /api/catalog", s.timelineH.Catalog)

	// Budget
	mux.HandleFunc("GET /api/budget", s.budgetH.Get)
	mux.HandleFunc("GET /api/budget/categories", s.budgetH.Categories)
	mux.HandleFunc("PUT /api/budget/total", s.budgetH.SetTotal)
	mux.HandleFunc("POST /api/budget/items", s.budgetH.CreateItem)
	mux.HandleFunc("PUT /api/budget/items/{id}", s.budgetH.UpdateItem)
	mux.HandleFunc("DELETE /api/budget/items/{id}", s.budgetH.DeleteItem)

	// Profile
	mux.HandleFunc("GET /api/profile", s.profileH.Get)
	mux.HandleFunc("PUT /api/profile", s.profileH.Update)
	mux.HandleFunc("DELETE /api/data", s.profileH.DeleteAll)

	// Push notifications
	mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)
	mux.HandleFunc("GET /api/push/subscriptions", s.pushH.ListSubscriptions)
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
	mux.HandleFunc("POST /api/push/test", s.pushH.TestNotification)
	mux.HandleFunc("GET /api/notifications", s.pushH.Notifications)

	// Backups
	mux.HandleFunc("GET /api/backups", s.backupH.List)
	mux.HandleFunc("POST /api/backups", s.backupH.Create)
	mux.HandleFunc("POST /api/backups/{id}/restore", s.backupH.Restore)
}
