package export

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockdesk/stockdesk/internal/catalog"
	"github.com/stockdesk/stockdesk/internal/finance"
	"github.com/stockdesk/stockdesk/internal/inventory"
	"github.com/stockdesk/stockdesk/internal/shared"
)

type stubHistory struct {
	filter inventory.HistoryFilter
	rows   []inventory.HistoryRow
}

func (s *stubHistory) History(ctx context.Context, filter inventory.HistoryFilter) ([]inventory.HistoryRow, error) {
	s.filter = filter
	return s.rows, nil
}

type stubProducts map[int64]catalog.Product

func (s stubProducts) Get(ctx context.Context, id int64) (catalog.Product, error) {
	p, ok := s[id]
	if !ok {
		return catalog.Product{}, shared.NotFoundf("product %d", id)
	}
	return p, nil
}

type stubFinance struct {
	entries []finance.Entry
}

func (s stubFinance) Report(ctx context.Context, filter finance.ReportFilter) (finance.Report, error) {
	if filter.EntryID == 0 {
		return finance.BuildReport(s.entries, filter, generatedAt), nil
	}
	for _, e := range s.entries {
		if e.ID == filter.EntryID {
			return finance.BuildReport([]finance.Entry{e}, filter, generatedAt), nil
		}
	}
	return finance.Report{}, shared.NotFoundf("entry %d", filter.EntryID)
}

type stubPDF struct {
	html string
}

func (s *stubPDF) RenderHTML(ctx context.Context, html string) ([]byte, error) {
	s.html = html
	return []byte("%PDF-1.7"), nil
}

func newTestRouter(pdf PDFRenderer) (http.Handler, *stubHistory) {
	history := &stubHistory{rows: []inventory.HistoryRow{
		{ID: 1, ProductID: 1, ProductName: "Caneta", Quantity: 10, Type: inventory.MovementEntry, UnitPrice: decimal.NewFromInt(2), Date: generatedAt},
	}}
	fin := stubFinance{entries: []finance.Entry{
		finance.IncomeEntry(finance.Income{ID: 4, Name: "Consultoria", Amount: decimal.NewFromInt(300), Date: generatedAt}),
	}}
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), history, stubProducts{1: {ID: 1, Name: "Caneta"}}, fin, pdf).
		WithNow(func() time.Time { return generatedAt })
	r := chi.NewRouter()
	r.Route("/reports", h.MountRoutes)
	return r, history
}

func TestProductHistoryCSV(t *testing.T) {
	router, history := newTestRouter(nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/reports/product-history?format=csv&product_id=1", nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "text/csv; charset=UTF-8", rr.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="historico-produtos-Caneta.csv"`, rr.Header().Get("Content-Disposition"))
	assert.Equal(t, int64(1), history.filter.ProductID)
	assert.Contains(t, rr.Body.String(), "R$ 2,00")
}

func TestProductHistoryErrors(t *testing.T) {
	router, _ := newTestRouter(nil)

	cases := map[string]int{
		"/reports/product-history":                         http.StatusBadRequest,
		"/reports/product-history?format=doc":              http.StatusBadRequest,
		"/reports/product-history?format=csv&product_id=x": http.StatusBadRequest,
		"/reports/product-history?format=csv&product_id=9": http.StatusNotFound,
		"/reports/product-history?format=pdf":              http.StatusServiceUnavailable,
	}
	for target, code := range cases {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, code, rr.Code, target)
	}
}

func TestProductHistoryPDF(t *testing.T) {
	pdf := &stubPDF{}
	router, _ := newTestRouter(pdf)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/reports/product-history?format=pdf", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="historico-produtos.pdf"`, rr.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.7", rr.Body.String())
	assert.Contains(t, pdf.html, "Filtro de Produto:</strong> Todos")
}

func TestFinancialEntriesJSON(t *testing.T) {
	router, _ := newTestRouter(nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/reports/financial-entries?format=json&entry_id=4", nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, `attachment; filename="lancamentos-financeiros-Consultoria.json"`, rr.Header().Get("Content-Disposition"))

	var body struct {
		Metadata map[string]any   `json:"metadata"`
		Data     []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "Relatório Financeiro", body.Metadata["report_name"])
	assert.Equal(t, "300", body.Metadata["total_receitas"])
	assert.Equal(t, "4", body.Metadata["filters"].(map[string]any)["entry_id"])
	require.Len(t, body.Data, 1)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/reports/financial-entries?format=xlsx&entry_id=8", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/reports/financial-entries?format=xlsx", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.HasSuffix(rr.Header().Get("Content-Disposition"), `lancamentos-financeiros.xlsx"`))
}
