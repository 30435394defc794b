package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/wedplan/internal/timeline"
	ws "github.com/dukerupert/wedplan/internal/websocket"
)

// Profile keys.
const (
	KeyNickname        = "nickname"
	KeyBackgroundImage = "background_image"
)

const maxNicknameLen = 20

// ProfileStore is the key-value store the profile lives in.
type ProfileStore interface {
	Get(key string, dst any) (bool, error)
	Set(key string, value any) error
	Remove(key string) error
	Clear() error
}

type ProfileHandler struct {
	store    ProfileStore
	notifier timeline.Notifier
	hub      *ws.Hub
	logger   *slog.Logger
}

func NewProfileHandler(store ProfileStore, notifier timeline.Notifier, hub *ws.Hub, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{store: store, notifier: notifier, hub: hub, logger: logger}
}

type profile struct {
	Nickname        string `json:"nickname"`
	BackgroundImage string `json:"background_image"`
}

// Get handles GET /api/profile. Unreadable values come back empty.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.load())
}

type updateProfileRequest struct {
	Nickname        *string `json:"nickname"`
	BackgroundImage *string `json:"background_image"`
}

// Update handles PUT /api/profile. Omitted fields are left alone; empty
// strings clear the value.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Nickname != nil {
		nick := strings.TrimSpace(*req.Nickname)
		if len([]rune(nick)) > maxNicknameLen {
			writeError(w, http.StatusBadRequest, "nickname is too long")
			return
		}
		h.put(KeyNickname, nick)
	}
	if req.BackgroundImage != nil {
		h.put(KeyBackgroundImage, *req.BackgroundImage)
	}

	h.hub.Publish(ws.EntityProfile, "updated", "")
	writeJSON(w, http.StatusOK, h.load())
}

// DeleteAll handles DELETE /api/data: every stored key and every pending
// reminder is removed.
func (h *ProfileHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Clear(); err != nil {
		h.logger.Error("clear data", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete data")
		return
	}
	if h.notifier != nil {
		if err := h.notifier.CancelAll(); err != nil {
			h.logger.Error("cancel reminders", "error", err)
		}
	}
	h.logger.Info("all user data deleted")
	h.hub.Publish(ws.EntityTimeline, "deleted", "")
	h.hub.Publish(ws.EntityProfile, "deleted", "")
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProfileHandler) load() profile {
	var p profile
	if _, err := h.store.Get(KeyNickname, &p.Nickname); err != nil {
		h.logger.Error("load nickname", "error", err)
		p.Nickname = ""
	}
	if _, err := h.store.Get(KeyBackgroundImage, &p.BackgroundImage); err != nil {
		h.logger.Error("load background image", "error", err)
		p.BackgroundImage = ""
	}
	return p
}

func (h *ProfileHandler) put(key, value string) {
	var err error
	if value == "" {
		err = h.store.Remove(key)
	} else {
		err = h.store.Set(key, value)
	}
	if err != nil {
		h.logger.Error("persist profile", "key", key, "error", err)
	}
}
