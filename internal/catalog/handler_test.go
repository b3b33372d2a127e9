package catalog

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(svc *Service) http.Handler {
	r := chi.NewRouter()
	r.Route("/products", NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc).MountRoutes)
	return r
}

func TestHandlerCreateAndShow(t *testing.T) {
	router := newTestRouter(NewService(newMemoryRepo(), nil, nil, nil, nil))

	body := `{"name":"Caderno","price":"4.50","price_for_sale":9.9,"quantity":3}`
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var created Product
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, "Caderno", created.Name)
	assert.True(t, created.PriceForSale.Equal(dec("9.9")))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products/1/stock-alert", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Estoque baixo! Tem apenas 3 restantes.")
}

func TestHandlerValidationErrors(t *testing.T) {
	router := newTestRouter(NewService(newMemoryRepo(), nil, nil, nil, nil))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(`{"quantity":-2}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "name is required")

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products/abc", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products/77", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandlerUploadImage(t *testing.T) {
	repo := newMemoryRepo()
	images := &memoryImages{objects: map[string][]byte{}}
	router := newTestRouter(NewService(repo, images, nil, nil, nil))
	repo.products[1] = Product{ID: 1, Name: "Cola", Status: StatusActive}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("image", "cola.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG\r\n\x1a\n0000"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPut, "/products/1/image", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Len(t, images.objects, 1)
	assert.NotEmpty(t, repo.products[1].ImageKey)
}
