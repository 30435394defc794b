package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/wedplan/internal/budget"
	ws "github.com/dukerupert/wedplan/internal/websocket"
)

type BudgetHandler struct {
	service *budget.Service
	hub     *ws.Hub
	logger  *slog.Logger
}

func NewBudgetHandler(svc *budget.Service, hub *ws.Hub, logger *slog.Logger) *BudgetHandler {
	return &BudgetHandler{service: svc, hub: hub, logger: logger}
}

// Get handles GET /api/budget
func (h *BudgetHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Get())
}

// Categories handles GET /api/budget/categories
func (h *BudgetHandler) Categories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, budget.DefaultCategories)
}

type setTotalRequest struct {
	Total decimal.Decimal `json:"total"`
}

// SetTotal handles PUT /api/budget/total
func (h *BudgetHandler) SetTotal(w http.ResponseWriter, r *http.Request) {
	var req setTotalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	view, err := h.service.SetTotal(req.Total)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.hub.Publish(ws.EntityBudget, "updated", "")
	writeJSON(w, http.StatusOK, view)
}

// CreateItem handles POST /api/budget/items
func (h *BudgetHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var in budget.ItemInput
	if !decodeJSON(w, r, &in) {
		return
	}
	view, item, err := h.service.AddItem(in)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.hub.Publish(ws.EntityBudget, "created", item.ID)
	writeJSON(w, http.StatusCreated, view)
}

// UpdateItem handles PUT /api/budget/items/{id}
func (h *BudgetHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var in budget.ItemInput
	if !decodeJSON(w, r, &in) {
		return
	}
	view, err := h.service.UpdateItem(id, in)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.hub.Publish(ws.EntityBudget, "updated", id)
	writeJSON(w, http.StatusOK, view)
}

// DeleteItem handles DELETE /api/budget/items/{id}
func (h *BudgetHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	view, err := h.service.DeleteItem(id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.hub.Publish(ws.EntityBudget, "deleted", id)
	writeJSON(w, http.StatusOK, view)
}

func (h *BudgetHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, budget.ErrUnknownItem):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, budget.ErrInvalidAmount), errors.Is(err, budget.ErrInvalidItem):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("budget request", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
