package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/wedplan/internal/backup"
	"github.com/dukerupert/wedplan/internal/model"
	ws "github.com/dukerupert/wedplan/internal/websocket"
)

const backupListLimit = 20

// Resyncer rebuilds derived state after the store is replaced.
type Resyncer interface {
	Resync()
}

type BackupHandler struct {
	manager *backup.Manager
	resync  Resyncer
	hub     *ws.Hub
	logger  *slog.Logger
}

func NewBackupHandler(m *backup.Manager, resync Resyncer, hub *ws.Hub, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{manager: m, resync: resync, hub: hub, logger: logger}
}

type passphraseRequest struct {
	Passphrase string `json:"passphrase"`
}

// List handles GET /api/backups
func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.manager.List(backupListLimit)
	if err != nil {
		h.logger.Error("list backups", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list backups")
		return
	}
	if list == nil {
		list = []model.Backup{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  h.manager.Status(),
		"enabled": h.manager.Enabled(),
		"backups": list,
	})
}

// Create handles POST /api/backups
func (h *BackupHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req passphraseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	b, err := h.manager.RunNow(r.Context(), req.Passphrase)
	if err != nil {
		h.writeManagerError(w, err)
		return
	}
	h.hub.Publish(ws.EntityBackup, "created", strconv.FormatInt(b.ID, 10))
	writeJSON(w, http.StatusCreated, b)
}

// Restore handles POST /api/backups/{id}/restore
func (h *BackupHandler) Restore(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req passphraseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	snap, err := h.manager.Restore(r.Context(), id, req.Passphrase)
	if err != nil {
		h.writeManagerError(w, err)
		return
	}
	if h.resync != nil {
		h.resync.Resync()
	}

	h.hub.Publish(ws.EntityBackup, "restored", r.PathValue("id"))
	h.hub.Publish(ws.EntityTimeline, "restored", "")
	h.hub.Publish(ws.EntityBudget, "updated", "")
	h.hub.Publish(ws.EntityProfile, "updated", "")
	writeJSON(w, http.StatusOK, map[string]any{
		"restored_keys": len(snap.Data),
		"created_at":    snap.CreatedAt,
	})
}

func (h *BackupHandler) writeManagerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, backup.ErrDisabled):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, backup.ErrPassphraseRequired), errors.Is(err, backup.ErrWrongPassphrase):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, backup.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, backup.ErrBusy), errors.Is(err, backup.ErrNotRestorable):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("backup request", "error", err)
		writeError(w, http.StatusInternalServerError, "backup failed")
	}
}
