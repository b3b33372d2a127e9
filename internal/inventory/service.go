package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/stockdesk/stockdesk/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	History(ctx context.Context, filter HistoryFilter) ([]MovementView, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// CachePort invalidates derived indicator caches after stock changes.
type CachePort interface {
	Bump(ctx context.Context) error
}

// Service coordinates ledger operations.
type Service struct {
	repo   RepositoryPort
	audit  AuditPort
	cache  CachePort
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, cache CachePort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, cache: cache, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// History returns the stock history newest first.
func (s *Service) History(ctx context.Context, filter HistoryFilter) ([]HistoryRow, error) {
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return nil, shared.Validationf("to must not be before from")
	}
	views, err := s.repo.History(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("inventory: history: %w", err)
	}
	return BuildHistory(views), nil
}

// PostEntry records a standalone restock entry.
func (s *Service) PostEntry(ctx context.Context, in EntryInput) (Movement, error) {
	if in.Quantity <= 0 {
		return Movement{}, fmt.Errorf("%w: %w", shared.ErrValidation, ErrInvalidQuantity)
	}
	var movement Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		m, err := ApplyEntry(ctx, tx, in, s.now())
		if err != nil {
			return err
		}
		movement = m
		return nil
	})
	if err != nil {
		return Movement{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Action:   "inventory:entry",
			Entity:   "stock_movement",
			EntityID: fmt.Sprintf("%d", movement.ID),
			Meta: map[string]any{
				"product_id": movement.ProductID,
				"quantity":   movement.Delta,
				"reference":  string(movement.Reference),
			},
		})
	}
	if s.cache != nil {
		s.bumpCache(ctx)
	}
	return movement, nil
}

func (s *Service) bumpCache(ctx context.Context) {
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("bump indicator cache", slog.Any("error", err))
	}
}
