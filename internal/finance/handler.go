package finance

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stockdesk/stockdesk/internal/platform/httpx"
)

// Handler exposes financial entry endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers finance routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/categories", h.listCategories)
	r.Post("/categories", h.createCategory)
	r.Delete("/categories/{id}", h.deleteBy(h.service.DeleteCategory))

	r.Get("/expense-types", h.listExpenseTypes)
	r.Post("/expense-types", h.createExpenseType)
	r.Delete("/expense-types/{id}", h.deleteBy(h.service.DeleteExpenseType))

	r.Get("/incomes", h.listIncomes)
	r.Post("/incomes", h.createIncome)
	r.Delete("/incomes/{id}", h.deleteBy(h.service.DeleteIncome))

	r.Get("/expenses", h.listExpenses)
	r.Post("/expenses", h.createExpense)
	r.Delete("/expenses/{id}", h.deleteBy(h.service.DeleteExpense))

	r.Get("/entries", h.listEntries)
	r.Get("/entries/search", h.searchEntries)
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListCategories(r.Context())
	h.respondList(w, "list categories", out, err)
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if !h.decode(w, r, &req) {
		return
	}
	out, err := h.service.CreateCategory(r.Context(), req)
	h.respondCreated(w, "create category", out, err)
}

func (h *Handler) listExpenseTypes(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListExpenseTypes(r.Context())
	h.respondList(w, "list expense types", out, err)
}

func (h *Handler) createExpenseType(w http.ResponseWriter, r *http.Request) {
	var req ExpenseTypeRequest
	if !h.decode(w, r, &req) {
		return
	}
	out, err := h.service.CreateExpenseType(r.Context(), req)
	h.respondCreated(w, "create expense type", out, err)
}

func (h *Handler) listIncomes(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListIncomes(r.Context())
	h.respondList(w, "list incomes", out, err)
}

func (h *Handler) createIncome(w http.ResponseWriter, r *http.Request) {
	var req IncomeRequest
	if !h.decode(w, r, &req) {
		return
	}
	out, err := h.service.CreateIncome(r.Context(), req)
	h.respondCreated(w, "create income", out, err)
}

func (h *Handler) listExpenses(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListExpenses(r.Context())
	h.respondList(w, "list expenses", out, err)
}

func (h *Handler) createExpense(w http.ResponseWriter, r *http.Request) {
	var req ExpenseRequest
	if !h.decode(w, r, &req) {
		return
	}
	out, err := h.service.CreateExpense(r.Context(), req)
	h.respondCreated(w, "create expense", out, err)
}

func (h *Handler) listEntries(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListEntries(r.Context())
	h.respondList(w, "list entries", out, err)
}

func (h *Handler) searchEntries(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.Search(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		h.logger.Error("search entries", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) deleteBy(fn func(context.Context, int64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := httpx.URLParamInt64(r, "id")
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		if err := fn(r.Context(), id); err != nil {
			h.logger.Warn("delete finance record", slog.String("path", r.URL.Path), slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.RespondError(w, err)
		return false
	}
	if err := httpx.Validate(dst); err != nil {
		httpx.RespondError(w, err)
		return false
	}
	return true
}

func (h *Handler) respondList(w http.ResponseWriter, op string, data any, err error) {
	if err != nil {
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": data})
}

func (h *Handler) respondCreated(w http.ResponseWriter, op string, data any, err error) {
	if err != nil {
		h.logger.Warn(op, slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, data)
}
