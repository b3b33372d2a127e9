package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockdesk/stockdesk/internal/shared"
)

func TestRespondErrorMapsSentinels(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{shared.NotFoundf("product 1"), http.StatusNotFound},
		{shared.Validationf("bad"), http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", shared.ErrInsufficientStock), http.StatusBadRequest},
		{shared.ErrIdempotencyConflict, http.StatusConflict},
		{fmt.Errorf("roi: %w", shared.ErrDivisionGuard), http.StatusUnprocessableEntity},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		RespondError(rr, tc.err)
		assert.Equal(t, tc.status, rr.Code, tc.err.Error())

		var problem ProblemDetail
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
		assert.Equal(t, tc.status, problem.Status)
	}
}

func TestRespondErrorHidesInternalDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, errors.New("dial tcp 10.0.0.1:5432"))
	assert.NotContains(t, rr.Body.String(), "10.0.0.1")
}

type sampleRequest struct {
	Name     string `json:"name" validate:"required"`
	Quantity int    `json:"quantity" validate:"min=1"`
}

func TestValidateUsesJSONNames(t *testing.T) {
	err := Validate(sampleRequest{Quantity: 0})
	require.ErrorIs(t, err, shared.ErrValidation)
	assert.Contains(t, err.Error(), "name is required")
	assert.Contains(t, err.Error(), "quantity must be at least 1")

	require.NoError(t, Validate(sampleRequest{Name: "Caneta", Quantity: 2}))
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x","extra":1}`))
	var body sampleRequest
	err := DecodeJSON(req, &body)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestURLParamInt64(t *testing.T) {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "42")
	req := httptest.NewRequest(http.MethodGet, "/products/42", nil)
	req = req.WithContext(contextWithRoute(req, rctx))

	id, err := URLParamInt64(req, "id")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	rctx.URLParams = chi.RouteParams{}
	rctx.URLParams.Add("id", "abc")
	_, err = URLParamInt64(req, "id")
	require.ErrorIs(t, err, shared.ErrValidation)
}

func contextWithRoute(r *http.Request, rctx *chi.Context) context.Context {
	return context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
}
