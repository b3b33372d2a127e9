package sales

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockdesk/stockdesk/internal/catalog"
)

type stubSearch struct{ term string }

func (s *stubSearch) Search(ctx context.Context, term string) ([]catalog.SearchResult, error) {
	s.term = term
	return []catalog.SearchResult{{ID: 1, Name: "Caneta", Quantity: 10}}, nil
}

func newTestRouter(repo *memorySalesRepo, search ProductSearch) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(repo, search, repo.idem, nil, nil, nil, nil, logger)
	r := chi.NewRouter()
	r.Route("/sales", NewHandler(logger, svc).MountRoutes)
	return r
}

func TestHandlerCreateSale(t *testing.T) {
	repo := newMemorySalesRepo()
	router := newTestRouter(repo, nil)

	req := httptest.NewRequest(http.MethodPost, "/sales", strings.NewReader(`{"products":[{"product_id":1,"quantity":2}]}`))
	req.Header.Set("Idempotency-Key", "0d5b3c1f-7f4a-4d6e-9b0e-2c1a8f3e4d55")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var body struct {
		SaleID      int64  `json:"sale_id"`
		TotalAmount string `json:"total_amount"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, int64(1), body.SaleID)
	assert.Equal(t, "5", body.TotalAmount)
}

func TestHandlerInsufficientStock(t *testing.T) {
	router := newTestRouter(newMemorySalesRepo(), nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/sales", strings.NewReader(`{"products":[{"product_id":3,"quantity":3}]}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Not enough stock for product: Borracha. Available: 2")
}

func TestHandlerValidation(t *testing.T) {
	router := newTestRouter(newMemorySalesRepo(), nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/sales", strings.NewReader(`{"products":[{"product_id":1,"quantity":0}]}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "quantity is required")

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/sales", strings.NewReader(`{"products":[]}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandlerSearchProducts(t *testing.T) {
	search := &stubSearch{}
	router := newTestRouter(newMemorySalesRepo(), search)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/sales/search-products?search=can", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "can", search.term)
	assert.Contains(t, rr.Body.String(), "Caneta")
}
