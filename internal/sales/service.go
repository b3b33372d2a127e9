package sales

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stockdesk/stockdesk/internal/catalog"
	"github.com/stockdesk/stockdesk/internal/inventory"
	"github.com/stockdesk/stockdesk/internal/shared"
)

const (
	idempotencyModule = "sales"
	defaultHistory    = 200
	maxHistory        = 1000
)

// RepositoryPort abstracts sale persistence.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Sale, error)
	History(ctx context.Context, limit int) ([]HistoryRow, error)
}

// ProductSearch looks up sellable products for the sale screen.
type ProductSearch interface {
	Search(ctx context.Context, term string) ([]catalog.SearchResult, error)
}

// IdempotencyPort reserves Idempotency-Keys and resolves them to sales. The
// sale reference itself is written inside the sale transaction.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Lookup(ctx context.Context, key, module string) (string, error)
	Delete(ctx context.Context, key string) error
}

// AuditPort records committed sales.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// CachePort invalidates indicator caches.
type CachePort interface {
	Bump(ctx context.Context) error
}

// AlertPort enqueues low-stock notifications.
type AlertPort interface {
	NotifyLowStock(ctx context.Context, alert catalog.StockAlert) error
}

// MetricsPort observes committed sales.
type MetricsPort interface {
	RecordSale(lines int, amount float64)
	RecordLowStockAlert()
}

// Service runs the sale transaction.
type Service struct {
	repo     RepositoryPort
	products ProductSearch
	idem     IdempotencyPort
	audit    AuditPort
	cache    CachePort
	alerts   AlertPort
	metrics  MetricsPort
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs a sales service. Every port except repo may be nil.
func NewService(repo RepositoryPort, products ProductSearch, idem IdempotencyPort, audit AuditPort, cache CachePort, alerts AlertPort, metrics MetricsPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		products: products,
		idem:     idem,
		audit:    audit,
		cache:    cache,
		alerts:   alerts,
		metrics:  metrics,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateSale records a sale atomically: every line is validated against the
// locked products before stock is decremented, so a failing line leaves all
// products untouched. A repeated idempotency key returns the original sale.
func (s *Service) CreateSale(ctx context.Context, req CreateSaleRequest, idempotencyKey string) (Sale, error) {
	if len(req.Products) == 0 {
		return Sale{}, shared.Validationf("products is required")
	}
	key := strings.TrimSpace(idempotencyKey)
	if s.idem == nil {
		key = ""
	}
	if key != "" {
		if _, err := uuid.Parse(key); err != nil {
			return Sale{}, shared.Validationf("Idempotency-Key must be a UUID")
		}
		if err := s.idem.CheckAndInsert(ctx, key, idempotencyModule); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return s.replay(ctx, key)
			}
			return Sale{}, fmt.Errorf("sales: idempotency: %w", err)
		}
	}

	sale, draft, err := s.commit(ctx, req, key)
	if err != nil {
		if key != "" {
			if derr := s.idem.Delete(ctx, key); derr != nil {
				s.logger.Warn("release idempotency key", slog.String("key", key), slog.Any("error", derr))
			}
		}
		return Sale{}, err
	}
	s.afterCommit(ctx, sale, draft)
	return sale, nil
}

func (s *Service) commit(ctx context.Context, req CreateSaleRequest, key string) (Sale, Draft, error) {
	var sale Sale
	var draft Draft
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		products, err := tx.LockProducts(ctx, productIDs(req.Products))
		if err != nil {
			return fmt.Errorf("sales: lock products: %w", err)
		}
		draft, err = BuildDraft(req.Products, products)
		if err != nil {
			return err
		}
		now := s.now()
		sale, err = tx.InsertSale(ctx, Sale{CustomerID: req.CustomerID, TotalAmount: draft.Total, CreatedAt: now})
		if err != nil {
			return fmt.Errorf("sales: insert sale: %w", err)
		}
		sale.Lines = make([]SaleLine, 0, len(draft.Lines))
		for _, dl := range draft.Lines {
			if _, err := tx.AddQuantity(ctx, dl.Product.ID, -dl.Quantity); err != nil {
				return err
			}
			if _, err := tx.InsertMovement(ctx, inventory.Movement{
				ProductID:     dl.Product.ID,
				Delta:         -dl.Quantity,
				UnitCost:      dl.Product.Price,
				UnitSalePrice: dl.Product.PriceForSale,
				Reference:     inventory.RefSale,
				ReferenceID:   sale.ID,
				CreatedAt:     now,
			}); err != nil {
				return fmt.Errorf("sales: insert movement: %w", err)
			}
			line, err := tx.InsertLine(ctx, SaleLine{
				SaleID:      sale.ID,
				ProductID:   dl.Product.ID,
				ProductName: dl.Product.Name,
				Quantity:    dl.Quantity,
				UnitPrice:   dl.Product.PriceForSale,
				Subtotal:    dl.Subtotal,
			})
			if err != nil {
				return fmt.Errorf("sales: insert line: %w", err)
			}
			sale.Lines = append(sale.Lines, line)
		}
		sale.TotalAmount = draft.Total
		if err := tx.UpdateTotal(ctx, sale); err != nil {
			return err
		}
		if key == "" {
			return nil
		}
		if err := tx.CompleteIdempotency(ctx, key, idempotencyModule, strconv.FormatInt(sale.ID, 10)); err != nil {
			return fmt.Errorf("sales: complete idempotency key: %w", err)
		}
		return nil
	})
	if err != nil {
		return Sale{}, Draft{}, err
	}
	return sale, draft, nil
}

func (s *Service) replay(ctx context.Context, key string) (Sale, error) {
	ref, err := s.idem.Lookup(ctx, key, idempotencyModule)
	if err != nil {
		return Sale{}, fmt.Errorf("sales: idempotency lookup: %w", err)
	}
	if ref == "" {
		return Sale{}, shared.ErrIdempotencyConflict
	}
	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		return Sale{}, fmt.Errorf("sales: idempotency ref %q: %w", ref, err)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) afterCommit(ctx context.Context, sale Sale, draft Draft) {
	if s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditLog{
			Action:   "sales:create",
			Entity:   "sale",
			EntityID: strconv.FormatInt(sale.ID, 10),
			Meta: map[string]any{
				"lines":        len(sale.Lines),
				"total_amount": sale.TotalAmount.StringFixed(2),
			},
		}); err != nil {
			s.logger.Warn("audit sale", slog.Int64("sale_id", sale.ID), slog.Any("error", err))
		}
	}
	if s.cache != nil {
		if err := s.cache.Bump(ctx); err != nil {
			s.logger.Warn("bump indicator cache", slog.Any("error", err))
		}
	}
	if s.metrics != nil {
		s.metrics.RecordSale(len(sale.Lines), sale.TotalAmount.InexactFloat64())
	}
	for _, alert := range LowStockAlerts(draft) {
		if s.metrics != nil {
			s.metrics.RecordLowStockAlert()
		}
		if s.alerts == nil {
			continue
		}
		if err := s.alerts.NotifyLowStock(ctx, alert); err != nil {
			s.logger.Warn("enqueue low stock alert", slog.Int64("product_id", alert.ProductID), slog.Any("error", err))
		}
	}
}

// LowStockAlerts returns one alert per product left below the low-stock
// threshold, in first-sold order.
func LowStockAlerts(d Draft) []catalog.StockAlert {
	var alerts []catalog.StockAlert
	seen := make(map[int64]struct{}, len(d.Lines))
	for _, l := range d.Lines {
		if _, ok := seen[l.Product.ID]; ok {
			continue
		}
		seen[l.Product.ID] = struct{}{}
		alert := catalog.CheckLowStock(catalog.Product{ID: l.Product.ID, Name: l.Product.Name, Quantity: d.Remaining[l.Product.ID]})
		if alert != nil {
			alerts = append(alerts, *alert)
		}
	}
	return alerts
}

// Get loads one sale.
func (s *Service) Get(ctx context.Context, id int64) (Sale, error) {
	return s.repo.Get(ctx, id)
}

// SearchProducts returns the products matching term for the sale screen.
func (s *Service) SearchProducts(ctx context.Context, term string) ([]catalog.SearchResult, error) {
	if s.products == nil {
		return []catalog.SearchResult{}, nil
	}
	return s.products.Search(ctx, term)
}

// History returns sold lines newest first.
func (s *Service) History(ctx context.Context, limit int) ([]HistoryRow, error) {
	if limit <= 0 {
		limit = defaultHistory
	}
	if limit > maxHistory {
		limit = maxHistory
	}
	rows, err := s.repo.History(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("sales: history: %w", err)
	}
	return rows, nil
}
