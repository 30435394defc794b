package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/dukerupert/wedplan/internal/config"
	"github.com/dukerupert/wedplan/internal/database"
	"github.com/dukerupert/wedplan/internal/jobs"
	"github.com/dukerupert/wedplan/internal/logging"
	"github.com/dukerupert/wedplan/internal/push"
	"github.com/dukerupert/wedplan/internal/server"
	"github.com/dukerupert/wedplan/internal/timeline"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "vapid" {
		pub, priv, err := push.GenerateVAPIDKeys()
		if err != nil {
			fmt.Fprintf(os.Stderr, "generate vapid keys: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("WEDPLAN_VAPID_PUBLIC_KEY=%s\nWEDPLAN_VAPID_PRIVATE_KEY=%s\n", pub, priv)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	catalog := timeline.DefaultCatalog()
	if cfg.CatalogPath != "" {
		catalog, err = timeline.LoadCatalog(cfg.CatalogPath)
		if err != nil {
			slog.Error("failed to load catalog", "path", cfg.CatalogPath, "error", err)
			os.Exit(1)
		}
		slog.Info("catalog loaded", "path", cfg.CatalogPath, "milestones", catalog.Len())
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	srv := server.New(db, cfg, catalog, logger)

	// Reminders are derived state; rebuild them in case the catalog or
	// notify hour changed since the last run.
	srv.Timeline().Resync()

	sched := jobs.New(cfg.Location(), logger.With("component", "jobs"))
	deps := jobs.Deps{
		Backups:     srv.BackupManager(),
		Limiter:     srv.RateLimiter(),
		VendorCache: srv.Vendors(),
		BackupCron:  cfg.Backup.Cron,
	}
	if cfg.Push.VAPIDPublicKey != "" {
		deps.Dispatcher = srv.Dispatcher()
	} else {
		slog.Warn("push notifications disabled, set WEDPLAN_VAPID_PUBLIC_KEY and WEDPLAN_VAPID_PRIVATE_KEY")
	}
	if err := jobs.Register(sched, deps); err != nil {
		slog.Error("failed to register jobs", "error", err)
		os.Exit(1)
	}
	sched.Start()

	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	if cfg.CatalogPath != "" {
		go func() {
			if err := timeline.WatchCatalog(watchCtx, cfg.CatalogPath, srv.Timeline(), logger.With("component", "catalog")); err != nil {
				slog.Warn("catalog watch stopped", "error", err)
			}
		}()
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("wedplan starting", "addr", httpServer.Addr, "vendor_search", cfg.KakaoAPIKey != "", "backups", srv.BackupManager().Enabled())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	stopWatch()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	sched.Stop(ctx)
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
