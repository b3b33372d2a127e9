package suppliers

import (
	"context"
	"fmt"
	"strings"

	"github.com/stockdesk/stockdesk/internal/shared"
)

// RepositoryPort abstracts supplier persistence.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Supplier, error)
	List(ctx context.Context) ([]Supplier, error)
}

// Service manages the supplier registry.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Create registers a supplier. The address row is only created when at least
// one address field is filled.
func (s *Service) Create(ctx context.Context, req SupplierRequest) (Supplier, error) {
	req = normalize(req)
	if req.Name == "" {
		return Supplier{}, shared.Validationf("name is required")
	}
	supplier := Supplier{Name: req.Name, CNPJ: req.CNPJ, Email: req.Email, Phone: req.Phone}
	if addr := req.address(); !addr.IsEmpty() {
		supplier.Address = &addr
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		created, err := tx.Insert(ctx, supplier)
		if err != nil {
			return fmt.Errorf("suppliers: insert: %w", err)
		}
		supplier = created
		return nil
	})
	if err != nil {
		return Supplier{}, err
	}
	return supplier, nil
}

// Update replaces the supplier fields and merges the address: empty address
// fields keep their stored values and a missing address is created on demand.
func (s *Service) Update(ctx context.Context, id int64, req SupplierRequest) (Supplier, error) {
	req = normalize(req)
	if req.Name == "" {
		return Supplier{}, shared.Validationf("name is required")
	}
	var supplier Supplier
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		current.Name = req.Name
		current.CNPJ = req.CNPJ
		current.Email = req.Email
		current.Phone = req.Phone
		current.Address = mergeAddress(current.Address, req.address())
		updated, err := tx.Update(ctx, current)
		if err != nil {
			return fmt.Errorf("suppliers: update: %w", err)
		}
		supplier = updated
		return nil
	})
	if err != nil {
		return Supplier{}, err
	}
	return supplier, nil
}

// Get loads one supplier.
func (s *Service) Get(ctx context.Context, id int64) (Supplier, error) {
	return s.repo.Get(ctx, id)
}

// List returns every supplier.
func (s *Service) List(ctx context.Context) ([]Supplier, error) {
	out, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("suppliers: list: %w", err)
	}
	return out, nil
}

func mergeAddress(current *Address, next Address) *Address {
	if current == nil {
		if next.IsEmpty() {
			return nil
		}
		return &next
	}
	merged := *current
	if next.Street != "" {
		merged.Street = next.Street
	}
	if next.City != "" {
		merged.City = next.City
	}
	if next.State != "" {
		merged.State = next.State
	}
	if next.PostalCode != "" {
		merged.PostalCode = next.PostalCode
	}
	if next.District != "" {
		merged.District = next.District
	}
	return &merged
}

func normalize(req SupplierRequest) SupplierRequest {
	req.Name = strings.TrimSpace(req.Name)
	req.CNPJ = strings.TrimSpace(req.CNPJ)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Phone = strings.TrimSpace(req.Phone)
	req.Street = strings.TrimSpace(req.Street)
	req.City = strings.TrimSpace(req.City)
	req.State = strings.TrimSpace(req.State)
	req.PostalCode = strings.TrimSpace(req.PostalCode)
	req.District = strings.TrimSpace(req.District)
	return req
}
