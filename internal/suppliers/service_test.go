package suppliers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockdesk/stockdesk/internal/shared"
)

type memoryRepo struct {
	suppliers map[int64]Supplier
	nextID    int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{suppliers: map[int64]Supplier{}}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Supplier, error) {
	s, ok := r.suppliers[id]
	if !ok {
		return Supplier{}, shared.NotFoundf("supplier %d", id)
	}
	return s, nil
}

func (r *memoryRepo) List(ctx context.Context) ([]Supplier, error) {
	out := []Supplier{}
	for id := int64(1); id <= r.nextID; id++ {
		if s, ok := r.suppliers[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (tx *memoryTx) GetForUpdate(ctx context.Context, id int64) (Supplier, error) {
	return tx.repo.Get(ctx, id)
}

func (tx *memoryTx) Insert(ctx context.Context, s Supplier) (Supplier, error) {
	tx.repo.nextID++
	s.ID = tx.repo.nextID
	tx.repo.suppliers[s.ID] = s
	return s, nil
}

func (tx *memoryTx) Update(ctx context.Context, s Supplier) (Supplier, error) {
	tx.repo.suppliers[s.ID] = s
	return s, nil
}

func TestCreateWithoutAddress(t *testing.T) {
	svc := NewService(newMemoryRepo())
	s, err := svc.Create(context.Background(), SupplierRequest{Name: " Papelaria Central ", Email: "Contato@Central.com"})
	require.NoError(t, err)
	assert.Equal(t, "Papelaria Central", s.Name)
	assert.Equal(t, "contato@central.com", s.Email)
	assert.Nil(t, s.Address)
}

func TestCreateWithAddress(t *testing.T) {
	svc := NewService(newMemoryRepo())
	s, err := svc.Create(context.Background(), SupplierRequest{Name: "Distribuidora", City: "Recife", State: "PE"})
	require.NoError(t, err)
	require.NotNil(t, s.Address)
	assert.Equal(t, "Recife", s.Address.City)
}

func TestUpdateMergesAddress(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()
	s, err := svc.Create(ctx, SupplierRequest{Name: "Distribuidora", Street: "Rua A", City: "Recife"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, s.ID, SupplierRequest{Name: "Distribuidora Norte", City: "Olinda"})
	require.NoError(t, err)
	assert.Equal(t, "Distribuidora Norte", updated.Name)
	require.NotNil(t, updated.Address)
	assert.Equal(t, "Rua A", updated.Address.Street)
	assert.Equal(t, "Olinda", updated.Address.City)

	bare, err := svc.Create(ctx, SupplierRequest{Name: "Sem endereco"})
	require.NoError(t, err)
	withAddr, err := svc.Update(ctx, bare.ID, SupplierRequest{Name: "Sem endereco", District: "Centro"})
	require.NoError(t, err)
	require.NotNil(t, withAddr.Address)
	assert.Equal(t, "Centro", withAddr.Address.District)
}

func TestUpdateUnknownSupplier(t *testing.T) {
	svc := NewService(newMemoryRepo())
	_, err := svc.Update(context.Background(), 9, SupplierRequest{Name: "X"})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCreateRequiresName(t *testing.T) {
	svc := NewService(newMemoryRepo())
	_, err := svc.Create(context.Background(), SupplierRequest{Name: "   "})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestHandlerRejectsInvalidEmail(t *testing.T) {
	r := chi.NewRouter()
	r.Route("/suppliers", NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), NewService(newMemoryRepo())).MountRoutes)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/suppliers", strings.NewReader(`{"name":"A","email":"nope"}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "email must be a valid email")

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/suppliers", strings.NewReader(`{"name":"A","phone":"8199990000"}`)))
	assert.Equal(t, http.StatusCreated, rr.Code)
}
