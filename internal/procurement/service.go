package procurement

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/stockdesk/stockdesk/internal/inventory"
	"github.com/stockdesk/stockdesk/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (SupplierOrder, error)
	List(ctx context.Context, filter ListFilter) ([]SupplierOrder, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// CachePort invalidates indicator caches once stock changed.
type CachePort interface {
	Bump(ctx context.Context) error
}

// Service orchestrates supplier orders.
type Service struct {
	repo   RepositoryPort
	audit  AuditPort
	cache  CachePort
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs procurement service.
func NewService(repo RepositoryPort, audit AuditPort, cache CachePort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, cache: cache, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// CreateOrder places a pending order after checking supplier and product.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (SupplierOrder, error) {
	if req.Quantity < 1 {
		return SupplierOrder{}, shared.Validationf("quantity must be at least 1")
	}
	orderDate, err := parseDate("order_date", req.OrderDate)
	if err != nil {
		return SupplierOrder{}, err
	}
	var created SupplierOrder
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ok, err := tx.SupplierExists(ctx, req.SupplierID)
		if err != nil {
			return err
		}
		if !ok {
			return shared.NotFoundf("supplier %d", req.SupplierID)
		}
		product, err := tx.LockProduct(ctx, req.ProductID)
		if err != nil {
			return err
		}
		if product.Retired {
			return shared.Validationf("product %q is retired", product.Name)
		}
		created, err = tx.Insert(ctx, SupplierOrder{
			SupplierID: req.SupplierID,
			ProductID:  req.ProductID,
			Quantity:   req.Quantity,
			OrderDate:  orderDate,
		})
		return err
	})
	if err != nil {
		return SupplierOrder{}, err
	}
	s.record(ctx, "procurement:order:create", created)
	return created, nil
}

// Deliver receives an order: it stamps the delivery date and posts the stock
// entry in the same transaction.
func (s *Service) Deliver(ctx context.Context, id int64, req DeliverRequest) (SupplierOrder, error) {
	deliveredAt, err := parseDate("delivery_date", req.DeliveryDate)
	if err != nil {
		return SupplierOrder{}, err
	}
	var delivered SupplierOrder
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if order.Status == OrderDelivered {
			return fmt.Errorf("%w: %w", shared.ErrConflict, ErrAlreadyDelivered)
		}
		if deliveredAt.Before(order.OrderDate) {
			return shared.Validationf("delivery_date must not be before order_date")
		}
		if err := tx.MarkDelivered(ctx, id, deliveredAt); err != nil {
			return fmt.Errorf("procurement: mark delivered: %w", err)
		}
		if _, err := inventory.ApplyEntry(ctx, tx, inventory.EntryInput{
			ProductID:   order.ProductID,
			Quantity:    order.Quantity,
			Reference:   inventory.RefSupplierOrder,
			ReferenceID: order.ID,
		}, s.now()); err != nil {
			return err
		}
		order.DeliveryDate = &deliveredAt
		order.Status = OrderDelivered
		delivered = order
		return nil
	})
	if err != nil {
		return SupplierOrder{}, err
	}
	s.record(ctx, "procurement:order:deliver", delivered)
	if s.cache != nil {
		s.bumpCache(ctx)
	}
	return delivered, nil
}

// Get loads one order.
func (s *Service) Get(ctx context.Context, id int64) (SupplierOrder, error) {
	return s.repo.Get(ctx, id)
}

// List returns orders newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]SupplierOrder, error) {
	switch filter.Status {
	case "", OrderPending, OrderDelivered:
	default:
		return nil, shared.Validationf("status must be one of [pending delivered]")
	}
	out, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("procurement: list: %w", err)
	}
	return out, nil
}

func (s *Service) record(ctx context.Context, action string, o SupplierOrder) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   "supplier_order",
		EntityID: strconv.FormatInt(o.ID, 10),
		Meta: map[string]any{
			"supplier_id": o.SupplierID,
			"product_id":  o.ProductID,
			"quantity":    o.Quantity,
		},
	})
}

func parseDate(field, value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, shared.Validationf("%s must be a date in YYYY-MM-DD format", field)
	}
	return t, nil
}

func (s *Service) bumpCache(ctx context.Context) {
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("bump indicator cache", slog.Any("error", err))
	}
}
