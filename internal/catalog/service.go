package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stockdesk/stockdesk/internal/inventory"
	"github.com/stockdesk/stockdesk/internal/platform/storage"
	"github.com/stockdesk/stockdesk/internal/shared"
)

// SearchLimit caps picker results.
const SearchLimit = 10

// RepositoryPort abstracts product persistence.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Product, error)
	List(ctx context.Context, filter ListFilter) ([]Product, int, error)
	Search(ctx context.Context, term string, limit int) ([]SearchResult, error)
	SetImage(ctx context.Context, id int64, key string) error
}

// ImageStore keeps product images.
type ImageStore interface {
	Put(ctx context.Context, key, contentType string, body io.ReadSeeker) error
	Delete(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string) (string, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// CachePort invalidates derived indicator caches.
type CachePort interface {
	Bump(ctx context.Context) error
}

// Service implements product catalog operations.
type Service struct {
	repo   RepositoryPort
	images ImageStore
	audit  AuditPort
	cache  CachePort
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds the catalog service. images may be nil when object
// storage is not configured.
func NewService(repo RepositoryPort, images ImageStore, audit AuditPort, cache CachePort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, images: images, audit: audit, cache: cache, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

var allowedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
}

// Create registers a product and records its opening stock in the ledger.
func (s *Service) Create(ctx context.Context, req CreateProductRequest) (Product, error) {
	if err := validatePrices(&req.Price, &req.PriceForSale); err != nil {
		return Product{}, err
	}
	product := Product{
		Name:         strings.TrimSpace(req.Name),
		Description:  strings.TrimSpace(req.Description),
		Price:        req.Price,
		PriceForSale: req.PriceForSale,
		Quantity:     req.Quantity,
		SupplierID:   req.SupplierID,
		Status:       StatusActive,
	}
	if product.Name == "" {
		return Product{}, shared.Validationf("name is required")
	}
	if product.Quantity < 0 {
		return Product{}, shared.Validationf("quantity must be at least 0")
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := checkSupplier(ctx, tx, product.SupplierID); err != nil {
			return err
		}
		created, err := tx.Insert(ctx, product)
		if err != nil {
			return fmt.Errorf("catalog: insert product: %w", err)
		}
		product = created
		if product.Quantity > 0 {
			if _, err := tx.InsertMovement(ctx, inventory.Movement{
				ProductID:     product.ID,
				Delta:         product.Quantity,
				UnitCost:      product.Price,
				UnitSalePrice: product.PriceForSale,
				Reference:     inventory.RefProductCreate,
				ReferenceID:   product.ID,
				CreatedAt:     s.now(),
			}); err != nil {
				return fmt.Errorf("catalog: opening movement: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return Product{}, err
	}
	s.afterWrite(ctx, "catalog:create", product)
	return product, nil
}

// Update patches a product. A quantity change appends a movement with the
// net delta valued at the prices in effect after the edit.
func (s *Service) Update(ctx context.Context, id int64, req UpdateProductRequest) (Product, error) {
	if err := validatePrices(req.Price, req.PriceForSale); err != nil {
		return Product{}, err
	}
	var product Product
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status == StatusRetired {
			return fmt.Errorf("%w: product %q is retired", shared.ErrConflict, current.Name)
		}
		next := applyUpdate(current, req)
		if next.Name == "" {
			return shared.Validationf("name is required")
		}
		if next.Quantity < 0 {
			return shared.Validationf("quantity must be at least 0")
		}
		if req.SupplierID != nil {
			if err := checkSupplier(ctx, tx, next.SupplierID); err != nil {
				return err
			}
		}
		updated, err := tx.Update(ctx, next)
		if err != nil {
			return fmt.Errorf("catalog: update product: %w", err)
		}
		if delta := updated.Quantity - current.Quantity; delta != 0 {
			if _, err := tx.InsertMovement(ctx, inventory.Movement{
				ProductID:     updated.ID,
				Delta:         delta,
				UnitCost:      updated.Price,
				UnitSalePrice: updated.PriceForSale,
				Reference:     inventory.RefProductEdit,
				ReferenceID:   updated.ID,
				CreatedAt:     s.now(),
			}); err != nil {
				return fmt.Errorf("catalog: edit movement: %w", err)
			}
		}
		product = updated
		return nil
	})
	if err != nil {
		return Product{}, err
	}
	s.afterWrite(ctx, "catalog:update", product)
	return product, nil
}

// Retire marks a product as no longer sellable. Products are never deleted
// because ledger rows and sale lines reference them.
func (s *Service) Retire(ctx context.Context, id int64) (Product, error) {
	var product Product
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status == StatusRetired {
			product = current
			return nil
		}
		current.Status = StatusRetired
		updated, err := tx.Update(ctx, current)
		if err != nil {
			return fmt.Errorf("catalog: retire product: %w", err)
		}
		product = updated
		return nil
	})
	if err != nil {
		return Product{}, err
	}
	s.afterWrite(ctx, "catalog:retire", product)
	return product, nil
}

// Get loads a product, resolving a temporary image URL when one is stored.
func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}
	s.resolveImage(ctx, &p)
	return p, nil
}

// List returns a page of products.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Product, shared.Pagination, error) {
	if filter.Status != "" && filter.Status != StatusActive && filter.Status != StatusRetired {
		return nil, shared.Pagination{}, shared.Validationf("unknown status %q", filter.Status)
	}
	products, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, fmt.Errorf("catalog: list products: %w", err)
	}
	return products, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// Search returns up to SearchLimit active products whose name matches term.
func (s *Service) Search(ctx context.Context, term string) ([]SearchResult, error) {
	results, err := s.repo.Search(ctx, strings.TrimSpace(term), SearchLimit)
	if err != nil {
		return nil, fmt.Errorf("catalog: search products: %w", err)
	}
	return results, nil
}

// StockAlert evaluates the low stock rule for one product.
func (s *Service) StockAlert(ctx context.Context, id int64) (*StockAlert, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return CheckLowStock(p), nil
}

// UploadImage stores a new product image and replaces the previous one.
func (s *Service) UploadImage(ctx context.Context, id int64, filename, contentType string, body io.ReadSeeker) (Product, error) {
	if s.images == nil {
		return Product{}, fmt.Errorf("%w: image storage is not configured", shared.ErrConflict)
	}
	if !allowedImageTypes[contentType] {
		return Product{}, shared.Validationf("unsupported image type %q", contentType)
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}
	key := storage.ObjectKey("products", id, filename)
	if err := s.images.Put(ctx, key, contentType, body); err != nil {
		return Product{}, err
	}
	if err := s.repo.SetImage(ctx, id, key); err != nil {
		_ = s.images.Delete(ctx, key)
		return Product{}, err
	}
	if current.ImageKey != "" {
		_ = s.images.Delete(ctx, current.ImageKey)
	}
	current.ImageKey = key
	s.resolveImage(ctx, &current)
	return current, nil
}

func (s *Service) resolveImage(ctx context.Context, p *Product) {
	if s.images == nil || p.ImageKey == "" {
		return
	}
	if url, err := s.images.PresignGet(ctx, p.ImageKey); err == nil {
		p.ImageURL = url
	}
}

func (s *Service) afterWrite(ctx context.Context, action string, p Product) {
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Action:   action,
			Entity:   "product",
			EntityID: fmt.Sprintf("%d", p.ID),
			Meta:     map[string]any{"quantity": p.Quantity, "status": string(p.Status)},
		})
	}
	if s.cache != nil {
		s.bumpCache(ctx)
	}
}

func applyUpdate(p Product, req UpdateProductRequest) Product {
	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		p.Description = strings.TrimSpace(*req.Description)
	}
	if req.Price != nil {
		p.Price = *req.Price
	}
	if req.PriceForSale != nil {
		p.PriceForSale = *req.PriceForSale
	}
	if req.Quantity != nil {
		p.Quantity = *req.Quantity
	}
	if req.SupplierID != nil {
		id := *req.SupplierID
		p.SupplierID = &id
	}
	return p
}

func validatePrices(price, priceForSale *decimal.Decimal) error {
	if price != nil && price.IsNegative() {
		return shared.Validationf("price must be at least 0")
	}
	if priceForSale != nil && priceForSale.IsNegative() {
		return shared.Validationf("price_for_sale must be at least 0")
	}
	return nil
}

func checkSupplier(ctx context.Context, tx TxRepository, supplierID *int64) error {
	if supplierID == nil {
		return nil
	}
	ok, err := tx.SupplierExists(ctx, *supplierID)
	if err != nil {
		return err
	}
	if !ok {
		return shared.Validationf("supplier %d does not exist", *supplierID)
	}
	return nil
}

func (s *Service) bumpCache(ctx context.Context) {
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("bump indicator cache", slog.Any("error", err))
	}
}
