package analytichttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/stockdesk/stockdesk/internal/platform/httpx"
)

// MountRoutes registers the indicator and dashboard endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(60, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "indicator rate limit exceeded")
		}),
	)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Get("/indicators", h.handleSummary)
		gr.Get("/indicators/idle-products", h.handleIdle)
		gr.Get("/indicators/abc-curve", h.handleABC)
		gr.Get("/indicators/break-even/{productID}", h.handleBreakEven)
		gr.Get("/indicators/{name}", h.handleScalar)
	})
	r.Get("/dashboard/invoicing", h.handleInvoicing)
	r.Get("/dashboard/sales", h.handleTopSales)
	r.Get("/dashboard/incomes", h.handleExtraIncomes)
	r.Get("/dashboard/best-seller", h.handleBestSeller)
}

func urlParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}
