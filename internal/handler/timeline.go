package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/wedplan/internal/calendar"
	"github.com/dukerupert/wedplan/internal/timeline"
	ws "github.com/dukerupert/wedplan/internal/websocket"
)

type TimelineHandler struct {
	service *timeline.Service
	hub     *ws.Hub
	logger  *slog.Logger
}

func NewTimelineHandler(svc *timeline.Service, hub *ws.Hub, logger *slog.Logger) *TimelineHandler {
	return &TimelineHandler{service: svc, hub: hub, logger: logger}
}

type createTimelineRequest struct {
	WeddingDate string `json:"wedding_date"`
	StartDate   string `json:"start_date"`
}

// Create handles POST /api/timeline. start_date defaults to today.
func (h *TimelineHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTimelineRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	wedding, err := timeline.ParseDate(req.WeddingDate)
	if err != nil || wedding.IsZero() {
		writeError(w, http.StatusBadRequest, "wedding_date must be YYYY-MM-DD")
		return
	}
	start := h.service.Today()
	if req.StartDate != "" {
		if start, err = timeline.ParseDate(req.StartDate); err != nil {
			writeError(w, http.StatusBadRequest, "start_date must be YYYY-MM-DD")
			return
		}
	}

	tl, err := h.service.Create(wedding, start)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.hub.Publish(ws.EntityTimeline, "created", "")
	writeJSON(w, http.StatusCreated, tl)
}

// Get handles GET /api/timeline
func (h *TimelineHandler) Get(w http.ResponseWriter, r *http.Request) {
	tl, err := h.service.Load()
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tl)
}

// Delete handles DELETE /api/timeline
func (h *TimelineHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.service.Reset()
	h.hub.Publish(ws.EntityTimeline, "deleted", "")
	w.WriteHeader(http.StatusNoContent)
}

// Summary handles GET /api/timeline/summary
func (h *TimelineHandler) Summary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.service.Summary()
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// Toggle handles POST /api/timeline/items/{id}/toggle
func (h *TimelineHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	item, err := h.service.ToggleCompleted(id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.hub.Broadcast(ws.NewMessage(ws.EntityTimelineItem, "toggled", id, map[string]any{"completed": item.Completed}))
	writeJSON(w, http.StatusOK, item)
}

type updateDateRequest struct {
	Date string `json:"date"`
}

// UpdateDate handles PUT /api/timeline/items/{id}/date
func (h *TimelineHandler) UpdateDate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req updateDateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	date, err := timeline.ParseDate(req.Date)
	if err != nil || date.IsZero() {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	tl, err := h.service.UpdateItemDate(id, date)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.hub.Publish(ws.EntityTimelineItem, "rescheduled", id)
	writeJSON(w, http.StatusOK, tl)
}

// ResetDate handles DELETE /api/timeline/items/{id}/date
func (h *TimelineHandler) ResetDate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	tl, err := h.service.ResetItemDate(id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.hub.Publish(ws.EntityTimelineItem, "rescheduled", id)
	writeJSON(w, http.StatusOK, tl)
}

// DeleteItem handles DELETE /api/timeline/items/{id}
func (h *TimelineHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	tl, err := h.service.DeleteItem(id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.hub.Publish(ws.EntityTimelineItem, "deleted", id)
	writeJSON(w, http.StatusOK, tl)
}

// Restore handles POST /api/timeline/restore
func (h *TimelineHandler) Restore(w http.ResponseWriter, r *http.Request) {
	tl, err := h.service.RestoreItems()
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.hub.Publish(ws.EntityTimeline, "restored", "")
	writeJSON(w, http.StatusOK, tl)
}

// ICS handles GET /api/timeline.ics
func (h *TimelineHandler) ICS(w http.ResponseWriter, r *http.Request) {
	tl, err := h.service.Load()
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	body := calendar.Export(tl, "결혼 준비 타임라인", time.Now())

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="wedding-timeline.ics"`)
	w.Write([]byte(body))
}

// Catalog handles GET /api/catalog
func (h *TimelineHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Catalog().Templates())
}

func (h *TimelineHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, timeline.ErrNotFound):
		writeError(w, http.StatusNotFound, "no timeline yet")
	case errors.Is(err, timeline.ErrUnknownItem):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, timeline.ErrInvalidRange), errors.Is(err, timeline.ErrDateOutOfRange):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, timeline.ErrPinned):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("timeline request", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
