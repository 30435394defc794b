package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dukerupert/wedplan/internal/vendor"
)

// Searcher finds vendors for a category and region.
type Searcher interface {
	Search(ctx context.Context, cat vendor.Category, region string, limit int) vendor.Result
}

type VendorHandler struct {
	search Searcher
	logger *slog.Logger
}

func NewVendorHandler(s Searcher, logger *slog.Logger) *VendorHandler {
	return &VendorHandler{search: s, logger: logger}
}

type vendorData struct {
	Category vendor.Category `json:"category"`
	Region   string          `json:"region"`
	Source   string          `json:"source"`
	Count    int             `json:"count"`
	Items    []vendor.Place  `json:"items"`
}

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Category returns the handler for one fixed category, e.g.
// GET /api/wedding-halls?region=&limit=
func (h *VendorHandler) Category(cat vendor.Category) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.serve(w, r, cat)
	}
}

// ByName handles GET /api/vendors/{category}
func (h *VendorHandler) ByName(w http.ResponseWriter, r *http.Request) {
	cat, err := vendor.ParseCategory(r.PathValue("category"))
	if errors.Is(err, vendor.ErrUnknownCategory) {
		writeJSON(w, http.StatusNotFound, envelope{Error: err.Error()})
		return
	}
	h.serve(w, r, cat)
}

// Categories handles GET /api/vendors
func (h *VendorHandler) Categories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: vendor.Categories})
}

func (h *VendorHandler) serve(w http.ResponseWriter, r *http.Request, cat vendor.Category) {
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("vendor search panicked", "category", cat, "panic", rec)
			writeJSON(w, http.StatusInternalServerError, envelope{Error: "vendor search failed"})
		}
	}()

	q := r.URL.Query()
	region := strings.TrimSpace(q.Get("region"))
	if region == "" {
		writeJSON(w, http.StatusBadRequest, envelope{Error: "region is required"})
		return
	}
	limit, _ := strconv.Atoi(q.Get("limit"))

	res := h.search.Search(r.Context(), cat, region, limit)
	items := res.Items
	if items == nil {
		items = []vendor.Place{}
	}
	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Data: vendorData{
			Category: res.Category,
			Region:   res.Region,
			Source:   res.Source,
			Count:    len(items),
			Items:    items,
		},
	})
}
