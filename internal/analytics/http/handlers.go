package analytichttp

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/stockdesk/stockdesk/internal/analytics"
	"github.com/stockdesk/stockdesk/internal/platform/httpx"
	"github.com/stockdesk/stockdesk/internal/shared"
)

const requestTimeout = 5 * time.Second

// AnalyticsService defines the indicator and dashboard contract used by the
// handler.
type AnalyticsService interface {
	Scalar(ctx context.Context, name string, asOf time.Time) (analytics.Indicator, error)
	BreakEven(ctx context.Context, productID int64, asOf time.Time) (analytics.BreakEvenResult, error)
	IdleProducts(ctx context.Context, asOf time.Time) (analytics.IdleReport, error)
	ABCCurve(ctx context.Context, asOf time.Time) ([]analytics.ABCItem, error)
	Summary(ctx context.Context, asOf time.Time) (analytics.Summary, error)
	Invoicing(ctx context.Context, asOf time.Time) (analytics.Invoicing, error)
	TopSales(ctx context.Context) (analytics.TopSales, error)
	ExtraIncomes(ctx context.Context) (analytics.ExtraIncomes, error)
	BestSeller(ctx context.Context) (*analytics.BestSeller, error)
}

// Handler serves indicators and dashboard series.
type Handler struct {
	logger  *slog.Logger
	service AnalyticsService
	now     func() time.Time
}

// NewHandler constructs the analytics HTTP handler.
func NewHandler(logger *slog.Logger, service AnalyticsService) *Handler {
	return &Handler{logger: logger, service: service, now: time.Now}
}

// WithNow overrides the handler clock for testing.
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

// asOf reads the as_of date; the indicators then cover the whole day. Without
// it the reference time is now, truncated to the minute so repeated requests
// share cache entries.
func (h *Handler) asOf(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("as_of")
	if raw == "" {
		return h.now().UTC().Truncate(time.Minute), nil
	}
	day, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, shared.Validationf("as_of must be a date in YYYY-MM-DD format")
	}
	return day.Add(24*time.Hour - time.Second), nil
}

func (h *Handler) handleScalar(w http.ResponseWriter, r *http.Request) {
	serve(h, w, r, "indicator", func(ctx context.Context, asOf time.Time) (analytics.Indicator, error) {
		return h.service.Scalar(ctx, urlParam(r, "name"), asOf)
	})
}

func (h *Handler) handleBreakEven(w http.ResponseWriter, r *http.Request) {
	productID, err := httpx.URLParamInt64(r, "productID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	serve(h, w, r, "break-even", func(ctx context.Context, asOf time.Time) (analytics.BreakEvenResult, error) {
		return h.service.BreakEven(ctx, productID, asOf)
	})
}

func (h *Handler) handleIdle(w http.ResponseWriter, r *http.Request) {
	serve(h, w, r, "idle products", h.service.IdleProducts)
}

func (h *Handler) handleABC(w http.ResponseWriter, r *http.Request) {
	serve(h, w, r, "abc curve", h.service.ABCCurve)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	serve(h, w, r, "indicator summary", h.service.Summary)
}

func (h *Handler) handleInvoicing(w http.ResponseWriter, r *http.Request) {
	serve(h, w, r, "dashboard invoicing", h.service.Invoicing)
}

func (h *Handler) handleTopSales(w http.ResponseWriter, r *http.Request) {
	serve(h, w, r, "dashboard sales", func(ctx context.Context, _ time.Time) (analytics.TopSales, error) {
		return h.service.TopSales(ctx)
	})
}

func (h *Handler) handleExtraIncomes(w http.ResponseWriter, r *http.Request) {
	serve(h, w, r, "dashboard incomes", func(ctx context.Context, _ time.Time) (analytics.ExtraIncomes, error) {
		return h.service.ExtraIncomes(ctx)
	})
}

func (h *Handler) handleBestSeller(w http.ResponseWriter, r *http.Request) {
	serve(h, w, r, "dashboard best seller", func(ctx context.Context, _ time.Time) (*analytics.BestSeller, error) {
		return h.service.BestSeller(ctx)
	})
}

func serve[T any](h *Handler, w http.ResponseWriter, r *http.Request, op string, load func(context.Context, time.Time) (T, error)) {
	asOf, err := h.asOf(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	out, err := load(ctx, asOf)
	if err != nil {
		h.logger.Warn(op, slog.Time("as_of", asOf), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}
