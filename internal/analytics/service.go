package analytics

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/stockdesk/stockdesk/internal/shared"
)

// TopSalesLimit is the size of the top products chart.
const TopSalesLimit = 5

// loadTimeout bounds a shared indicator computation once it is detached from
// the caller that started it.
const loadTimeout = 30 * time.Second

// Repository exposes the aggregates the indicators are computed from.
type Repository interface {
	SalesTotal(ctx context.Context, asOf time.Time) (decimal.Decimal, error)
	ExpenseTotals(ctx context.Context, asOf time.Time) (ExpenseTotals, error)
	ProductPricing(ctx context.Context, productID int64, asOf time.Time) (ProductPricing, error)
	SalesWindow(ctx context.Context, from, to time.Time) (SalesWindow, error)
	StockSnapshot(ctx context.Context) (StockSnapshot, error)
	IdleProducts(ctx context.Context, from, to time.Time) ([]IdleProduct, error)
	SoldLines(ctx context.Context, asOf time.Time) ([]SoldLine, error)
	AverageLineQuantity(ctx context.Context, asOf time.Time) (decimal.Decimal, error)
	LeadDays(ctx context.Context, asOf time.Time) ([]int, error)
	MonthlyInvoicing(ctx context.Context, year int) ([]MonthAmount, int, error)
	TopProducts(ctx context.Context, limit int) ([]ProductRevenue, error)
	ExtraIncomes(ctx context.Context) (decimal.Decimal, error)
	BestSeller(ctx context.Context) (*BestSeller, error)
}

// Indicator is a single named value.
type Indicator struct {
	Name  string          `json:"name"`
	Value decimal.Decimal `json:"value"`
	AsOf  time.Time       `json:"as_of"`
}

// BreakEvenResult carries the break-even units with their inputs.
type BreakEvenResult struct {
	ProductPricing
	FixedCosts decimal.Decimal `json:"fixed_costs"`
	Units      decimal.Decimal `json:"break_even"`
	AsOf       time.Time       `json:"as_of"`
}

// SummaryValue is one indicator of the summary; Error holds the guard message
// when the indicator is undefined.
type SummaryValue struct {
	Value *decimal.Decimal `json:"value"`
	Error string           `json:"error,omitempty"`
}

// Summary groups the scalar indicators.
type Summary struct {
	AsOf       time.Time               `json:"as_of"`
	Indicators map[string]SummaryValue `json:"indicators"`
}

// Indicator names accepted by Scalar.
const (
	NameGrossProfit   = "gross-profit"
	NameNetProfit     = "net-profit"
	NameROI           = "roi"
	NameAverageTicket = "average-ticket"
	NameStockTurnover = "stock-turnover"
	NameStockCoverage = "stock-coverage"
	NameReorderPoint  = "reorder-point"
)

// ScalarNames lists the scalar indicators in display order.
var ScalarNames = []string{NameGrossProfit, NameNetProfit, NameROI, NameAverageTicket, NameStockTurnover, NameStockCoverage, NameReorderPoint}

// Service computes indicators through the versioned cache. Concurrent
// requests for the same key share one computation.
type Service struct {
	repo  Repository
	cache *Cache
	group singleflight.Group
}

// NewService wires a Repository with a Cache helper.
func NewService(repo Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

func fetch[T any](ctx context.Context, s *Service, parts []string, load func(context.Context) (T, error)) (T, error) {
	var zero T
	key, err := s.cache.BuildKey(ctx, parts...)
	if err != nil {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		s.cache.logger.Warn("indicator cache version", slog.Any("error", err))
		return load(ctx)
	}
	v, err, _ := s.group.Do(key, func() (any, error) {
		// Detached from the first caller: every waiter shares this result.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		var out T
		err := s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
			return load(ctx)
		})
		return out, err
	})
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

// Scalar computes one scalar indicator by name.
func (s *Service) Scalar(ctx context.Context, name string, asOf time.Time) (Indicator, error) {
	var compute func(context.Context, time.Time) (decimal.Decimal, error)
	switch name {
	case NameGrossProfit:
		compute = s.grossProfit
	case NameNetProfit:
		compute = s.netProfit
	case NameROI:
		compute = s.roi
	case NameAverageTicket:
		compute = s.averageTicket
	case NameStockTurnover:
		compute = s.stockTurnover
	case NameStockCoverage:
		compute = s.stockCoverage
	case NameReorderPoint:
		compute = s.reorderPoint
	default:
		return Indicator{}, shared.NotFoundf("indicator %q", name)
	}
	return fetch(ctx, s, indicatorKey(name, asOf), func(ctx context.Context) (Indicator, error) {
		v, err := compute(ctx, asOf)
		if err != nil {
			return Indicator{}, err
		}
		return Indicator{Name: name, Value: v, AsOf: asOf}, nil
	})
}

func (s *Service) grossProfit(ctx context.Context, asOf time.Time) (decimal.Decimal, error) {
	sales, exp, err := s.salesAndExpenses(ctx, asOf)
	if err != nil {
		return decimal.Zero, err
	}
	return GrossProfit(sales, exp), nil
}

func (s *Service) netProfit(ctx context.Context, asOf time.Time) (decimal.Decimal, error) {
	sales, exp, err := s.salesAndExpenses(ctx, asOf)
	if err != nil {
		return decimal.Zero, err
	}
	return NetProfit(sales, exp), nil
}

func (s *Service) roi(ctx context.Context, asOf time.Time) (decimal.Decimal, error) {
	sales, exp, err := s.salesAndExpenses(ctx, asOf)
	if err != nil {
		return decimal.Zero, err
	}
	return ROI(NetProfit(sales, exp), exp.Investment)
}

func (s *Service) averageTicket(ctx context.Context, asOf time.Time) (decimal.Decimal, error) {
	w, err := s.repo.SalesWindow(ctx, WindowStart(asOf), asOf)
	if err != nil {
		return decimal.Zero, err
	}
	return AverageTicket(w)
}

func (s *Service) stockTurnover(ctx context.Context, asOf time.Time) (decimal.Decimal, error) {
	var sales decimal.Decimal
	var snap StockSnapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { sales, err = s.repo.SalesTotal(gctx, asOf); return })
	g.Go(func() (err error) { snap, err = s.repo.StockSnapshot(gctx); return })
	if err := g.Wait(); err != nil {
		return decimal.Zero, err
	}
	return StockTurnover(sales, snap.Products), nil
}

func (s *Service) stockCoverage(ctx context.Context, asOf time.Time) (decimal.Decimal, error) {
	var w SalesWindow
	var snap StockSnapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { w, err = s.repo.SalesWindow(gctx, WindowStart(asOf), asOf); return })
	g.Go(func() (err error) { snap, err = s.repo.StockSnapshot(gctx); return })
	if err := g.Wait(); err != nil {
		return decimal.Zero, err
	}
	return StockCoverage(snap.OnHand, w.Quantity), nil
}

func (s *Service) reorderPoint(ctx context.Context, asOf time.Time) (decimal.Decimal, error) {
	var avg decimal.Decimal
	var lead []int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { avg, err = s.repo.AverageLineQuantity(gctx, asOf); return })
	g.Go(func() (err error) { lead, err = s.repo.LeadDays(gctx, asOf); return })
	if err := g.Wait(); err != nil {
		return decimal.Zero, err
	}
	return ReorderPoint(avg, lead), nil
}

func (s *Service) salesAndExpenses(ctx context.Context, asOf time.Time) (decimal.Decimal, ExpenseTotals, error) {
	var sales decimal.Decimal
	var exp ExpenseTotals
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { sales, err = s.repo.SalesTotal(gctx, asOf); return })
	g.Go(func() (err error) { exp, err = s.repo.ExpenseTotals(gctx, asOf); return })
	if err := g.Wait(); err != nil {
		return decimal.Zero, ExpenseTotals{}, err
	}
	return sales, exp, nil
}

// BreakEven computes the break-even units of a product.
func (s *Service) BreakEven(ctx context.Context, productID int64, asOf time.Time) (BreakEvenResult, error) {
	parts := indicatorKey("break-even", asOf, strconv.FormatInt(productID, 10))
	return fetch(ctx, s, parts, func(ctx context.Context) (BreakEvenResult, error) {
		var pricing ProductPricing
		var exp ExpenseTotals
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) { pricing, err = s.repo.ProductPricing(gctx, productID, asOf); return })
		g.Go(func() (err error) { exp, err = s.repo.ExpenseTotals(gctx, asOf); return })
		if err := g.Wait(); err != nil {
			return BreakEvenResult{}, err
		}
		units, err := BreakEven(exp.Fixed, pricing.UnitPrice, pricing.VariableCost)
		if err != nil {
			return BreakEvenResult{}, err
		}
		return BreakEvenResult{ProductPricing: pricing, FixedCosts: exp.Fixed, Units: units, AsOf: asOf}, nil
	})
}

// IdleProducts lists products without activity in the window ending at asOf.
func (s *Service) IdleProducts(ctx context.Context, asOf time.Time) (IdleReport, error) {
	return fetch(ctx, s, indicatorKey("idle-products", asOf), func(ctx context.Context) (IdleReport, error) {
		products, err := s.repo.IdleProducts(ctx, WindowStart(asOf), asOf)
		if err != nil {
			return IdleReport{}, err
		}
		return IdleReport{Products: products, Count: len(products)}, nil
	})
}

// ABCCurve classifies the sold products.
func (s *Service) ABCCurve(ctx context.Context, asOf time.Time) ([]ABCItem, error) {
	return fetch(ctx, s, indicatorKey("abc-curve", asOf), func(ctx context.Context) ([]ABCItem, error) {
		lines, err := s.repo.SoldLines(ctx, asOf)
		if err != nil {
			return nil, err
		}
		return ClassifyABC(lines), nil
	})
}

// Summary computes every scalar indicator concurrently. Guarded indicators
// carry their message instead of failing the summary.
func (s *Service) Summary(ctx context.Context, asOf time.Time) (Summary, error) {
	values := make([]SummaryValue, len(ScalarNames))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range ScalarNames {
		g.Go(func() error {
			ind, err := s.Scalar(gctx, name, asOf)
			if err != nil {
				var guard *GuardError
				if errors.As(err, &guard) {
					values[i] = SummaryValue{Error: guard.Message}
					return nil
				}
				return err
			}
			v := ind.Value
			values[i] = SummaryValue{Value: &v}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	out := Summary{AsOf: asOf, Indicators: make(map[string]SummaryValue, len(ScalarNames))}
	for i, name := range ScalarNames {
		out.Indicators[name] = values[i]
	}
	return out, nil
}

// Invoicing builds the yearly invoicing card for the year of asOf.
func (s *Service) Invoicing(ctx context.Context, asOf time.Time) (Invoicing, error) {
	year := asOf.Year()
	return fetch(ctx, s, []string{"stockdesk", "dashboard", "invoicing", strconv.Itoa(year)}, func(ctx context.Context) (Invoicing, error) {
		var months []MonthAmount
		var quantity int
		var snap StockSnapshot
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) { months, quantity, err = s.repo.MonthlyInvoicing(gctx, year); return })
		g.Go(func() (err error) { snap, err = s.repo.StockSnapshot(gctx); return })
		if err := g.Wait(); err != nil {
			return Invoicing{}, err
		}
		return BuildInvoicing(year, months, quantity, snap.Products), nil
	})
}

// TopSales returns the best products by revenue.
func (s *Service) TopSales(ctx context.Context) (TopSales, error) {
	return fetch(ctx, s, []string{"stockdesk", "dashboard", "top-sales"}, func(ctx context.Context) (TopSales, error) {
		rows, err := s.repo.TopProducts(ctx, TopSalesLimit)
		if err != nil {
			return TopSales{}, err
		}
		return BuildTopSales(rows), nil
	})
}

// ExtraIncomes sums the extra incomes.
func (s *Service) ExtraIncomes(ctx context.Context) (ExtraIncomes, error) {
	return fetch(ctx, s, []string{"stockdesk", "dashboard", "extra-incomes"}, func(ctx context.Context) (ExtraIncomes, error) {
		total, err := s.repo.ExtraIncomes(ctx)
		if err != nil {
			return ExtraIncomes{}, err
		}
		return ExtraIncomes{Total: total}, nil
	})
}

// BestSeller returns the most sold product of the latest sale's month, or nil
// without sales.
func (s *Service) BestSeller(ctx context.Context) (*BestSeller, error) {
	return fetch(ctx, s, []string{"stockdesk", "dashboard", "best-seller"}, s.repo.BestSeller)
}
