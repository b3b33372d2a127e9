package inventory

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stockdesk/stockdesk/internal/platform/httpx"
	"github.com/stockdesk/stockdesk/internal/shared"
)

// Handler wires HTTP endpoints for the stock ledger.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/history", h.handleHistory)
	r.Post("/entries", h.handleEntry)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseHistoryFilter(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rows, err := h.service.History(r.Context(), filter)
	if err != nil {
		h.logger.Error("stock history", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": rows})
}

func (h *Handler) handleEntry(w http.ResponseWriter, r *http.Request) {
	var in EntryInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.Validate(in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	in.Reference = RefRestock
	movement, err := h.service.PostEntry(r.Context(), in)
	if err != nil {
		h.logger.Warn("post stock entry", slog.Int64("product_id", in.ProductID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, movement)
}

// ParseHistoryFilter reads product_id, from, to and limit query parameters.
func ParseHistoryFilter(r *http.Request) (HistoryFilter, error) {
	var filter HistoryFilter
	productID, err := httpx.QueryInt64(r, "product_id")
	if err != nil {
		return filter, err
	}
	filter.ProductID = productID
	q := r.URL.Query()
	if raw := q.Get("from"); raw != "" {
		from, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, shared.Validationf("invalid from date %q", raw)
		}
		filter.From = from
	}
	if raw := q.Get("to"); raw != "" {
		to, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, shared.Validationf("invalid to date %q", raw)
		}
		filter.To = to.Add(24*time.Hour - time.Nanosecond)
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return filter, shared.Validationf("invalid limit %q", raw)
		}
		filter.Limit = limit
	}
	return filter, nil
}
