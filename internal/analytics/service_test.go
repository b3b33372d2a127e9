package analytics

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockdesk/stockdesk/internal/shared"
)

type mockRepo struct {
	mu         sync.Mutex
	sales      decimal.Decimal
	expenses   ExpenseTotals
	window     SalesWindow
	snapshot   StockSnapshot
	lines      []SoldLine
	avgLine    decimal.Decimal
	lead       []int
	pricing    map[int64]ProductPricing
	idle       []IdleProduct
	salesCalls int
	windowFrom time.Time
	// salesHook runs before SalesTotal returns.
	salesHook func(context.Context)
}

func (m *mockRepo) SalesTotal(ctx context.Context, asOf time.Time) (decimal.Decimal, error) {
	if m.salesHook != nil {
		m.salesHook(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.salesCalls++
	return m.sales, nil
}

func (m *mockRepo) ExpenseTotals(ctx context.Context, asOf time.Time) (ExpenseTotals, error) {
	return m.expenses, nil
}

func (m *mockRepo) ProductPricing(ctx context.Context, productID int64, asOf time.Time) (ProductPricing, error) {
	p, ok := m.pricing[productID]
	if !ok {
		return ProductPricing{}, shared.NotFoundf("product %d", productID)
	}
	return p, nil
}

func (m *mockRepo) SalesWindow(ctx context.Context, from, to time.Time) (SalesWindow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.windowFrom = from
	return m.window, nil
}

func (m *mockRepo) StockSnapshot(ctx context.Context) (StockSnapshot, error) {
	return m.snapshot, nil
}

func (m *mockRepo) IdleProducts(ctx context.Context, from, to time.Time) ([]IdleProduct, error) {
	return m.idle, nil
}

func (m *mockRepo) SoldLines(ctx context.Context, asOf time.Time) ([]SoldLine, error) {
	return m.lines, nil
}

func (m *mockRepo) AverageLineQuantity(ctx context.Context, asOf time.Time) (decimal.Decimal, error) {
	return m.avgLine, nil
}

func (m *mockRepo) LeadDays(ctx context.Context, asOf time.Time) ([]int, error) {
	return m.lead, nil
}

func (m *mockRepo) MonthlyInvoicing(ctx context.Context, year int) ([]MonthAmount, int, error) {
	return []MonthAmount{{Month: 2, Revenue: decimal.NewFromInt(50), Cost: decimal.NewFromInt(20)}}, 7, nil
}

func (m *mockRepo) TopProducts(ctx context.Context, limit int) ([]ProductRevenue, error) {
	return []ProductRevenue{{Name: "Caneta", Total: decimal.NewFromInt(40)}}, nil
}

func (m *mockRepo) ExtraIncomes(ctx context.Context) (decimal.Decimal, error) {
	return decimal.NewFromInt(15), nil
}

func (m *mockRepo) BestSeller(ctx context.Context) (*BestSeller, error) {
	return nil, nil
}

func newTestService(t *testing.T, repo Repository) (*Service, *Cache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewCache(client, time.Minute, nil)
	return NewService(repo, cache), cache
}

func seededRepo() *mockRepo {
	return &mockRepo{
		sales:    decimal.NewFromInt(1000),
		expenses: ExpenseTotals{Fixed: decimal.NewFromInt(300), Variable: decimal.NewFromInt(200), Investment: decimal.NewFromInt(250)},
		window:   SalesWindow{Total: decimal.NewFromInt(90), Count: 3, Quantity: 15},
		snapshot: StockSnapshot{Products: 4, OnHand: 20},
		avgLine:  decimal.NewFromInt(2),
		lead:     []int{3, 5},
		pricing: map[int64]ProductPricing{
			1: {ProductID: 1, Name: "Caneta", UnitPrice: decimal.NewFromInt(8), VariableCost: decimal.NewFromInt(2)},
			2: {ProductID: 2, Name: "Brinde", UnitPrice: decimal.NewFromInt(1), VariableCost: decimal.NewFromInt(3)},
		},
	}
}

func TestScalarIndicators(t *testing.T) {
	svc, _ := newTestService(t, seededRepo())
	ctx := context.Background()
	asOf := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

	cases := map[string]string{
		NameGrossProfit:   "800",
		NameNetProfit:     "500",
		NameROI:           "200",
		NameAverageTicket: "30",
		NameStockTurnover: "250",
		NameStockCoverage: "40",
		NameReorderPoint:  "8",
	}
	for name, want := range cases {
		ind, err := svc.Scalar(ctx, name, asOf)
		require.NoError(t, err, name)
		assert.Equal(t, want, ind.Value.String(), name)
		assert.Equal(t, name, ind.Name)
	}

	_, err := svc.Scalar(ctx, "velocity", asOf)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestScalarIsCachedUntilBump(t *testing.T) {
	repo := seededRepo()
	svc, cache := newTestService(t, repo)
	ctx := context.Background()
	asOf := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

	first, err := svc.Scalar(ctx, NameGrossProfit, asOf)
	require.NoError(t, err)
	second, err := svc.Scalar(ctx, NameGrossProfit, asOf)
	require.NoError(t, err)
	assert.True(t, first.Value.Equal(second.Value))
	assert.Equal(t, 1, repo.salesCalls)

	repo.sales = decimal.NewFromInt(2000)
	require.NoError(t, cache.Bump(ctx))
	third, err := svc.Scalar(ctx, NameGrossProfit, asOf)
	require.NoError(t, err)
	assert.Equal(t, "1800", third.Value.String())
	assert.Equal(t, 2, repo.salesCalls)
}

func TestWindowEndsAtAsOf(t *testing.T) {
	repo := seededRepo()
	svc, _ := newTestService(t, repo)
	asOf := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

	_, err := svc.Scalar(context.Background(), NameAverageTicket, asOf)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC), repo.windowFrom)
}

func TestBreakEvenAndGuards(t *testing.T) {
	repo := seededRepo()
	svc, _ := newTestService(t, repo)
	ctx := context.Background()
	asOf := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

	res, err := svc.BreakEven(ctx, 1, asOf)
	require.NoError(t, err)
	assert.Equal(t, "50", res.Units.String())
	assert.Equal(t, "Caneta", res.Name)

	_, err = svc.BreakEven(ctx, 2, asOf)
	require.ErrorIs(t, err, ErrNonPositiveMargin)

	_, err = svc.BreakEven(ctx, 9, asOf)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestSummaryReportsGuardMessages(t *testing.T) {
	repo := seededRepo()
	repo.expenses.Investment = decimal.Zero
	repo.window = SalesWindow{}
	svc, _ := newTestService(t, repo)

	summary, err := svc.Summary(context.Background(), time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, summary.Indicators, len(ScalarNames))
	assert.Nil(t, summary.Indicators[NameROI].Value)
	assert.Equal(t, ErrZeroInvestment.Message, summary.Indicators[NameROI].Error)
	assert.Equal(t, ErrNoSales.Message, summary.Indicators[NameAverageTicket].Error)
	require.NotNil(t, summary.Indicators[NameNetProfit].Value)
	assert.Equal(t, "500", summary.Indicators[NameNetProfit].Value.String())
}

func TestIndicatorQueriesAreIdempotent(t *testing.T) {
	repo := seededRepo()
	repo.lines = []SoldLine{
		{ProductID: 1, ProductName: "Caneta", CostPrice: decimal.NewFromInt(80), Quantity: 10},
		{ProductID: 2, ProductName: "Lápis", CostPrice: decimal.NewFromInt(15), Quantity: 10},
		{ProductID: 3, ProductName: "Borracha", CostPrice: decimal.NewFromInt(5), Quantity: 10},
	}
	svc, _ := newTestService(t, repo)
	ctx := context.Background()
	asOf := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

	first, err := svc.ABCCurve(ctx, asOf)
	require.NoError(t, err)
	second, err := svc.ABCCurve(ctx, asOf)
	require.NoError(t, err)
	require.Len(t, second, 3)
	for i := range first {
		assert.Equal(t, first[i].Class, second[i].Class)
		assert.True(t, first[i].Total.Equal(second[i].Total))
	}
	assert.Equal(t, []ABCClass{ClassA, ClassB, ClassC}, []ABCClass{second[0].Class, second[1].Class, second[2].Class})
}

func TestDashboard(t *testing.T) {
	svc, _ := newTestService(t, seededRepo())
	ctx := context.Background()

	inv, err := svc.Invoicing(ctx, time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 2024, inv.Year)
	assert.Equal(t, "50", inv.Values[1].String())
	assert.Equal(t, 7, inv.Quantity)
	assert.Equal(t, 4, inv.Products)

	top, err := svc.TopSales(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Caneta"}, top.Labels)

	extra, err := svc.ExtraIncomes(ctx)
	require.NoError(t, err)
	assert.Equal(t, "15", extra.Total.String())

	best, err := svc.BestSeller(ctx)
	require.NoError(t, err)
	assert.Nil(t, best)
}

func TestCacheListenForInvalidation(t *testing.T) {
	_, cache := newTestService(t, seededRepo())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := cache.Version(ctx)
	require.NoError(t, err)
	got := make(chan int64, 1)
	require.NoError(t, cache.ListenForInvalidation(ctx, func(ctx context.Context, v int64) { got <- v }))
	require.NoError(t, cache.Bump(ctx))

	select {
	case v := <-got:
		assert.Equal(t, int64(2), v)
	case <-time.After(2 * time.Second):
		t.Fatal("bump not observed")
	}
}

func TestScalarComputesWhenRedisIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	var logs bytes.Buffer
	cache := NewCache(client, time.Minute, slog.New(slog.NewTextHandler(&logs, nil)))
	repo := seededRepo()
	svc := NewService(repo, cache)
	mr.Close()

	ind, err := svc.Scalar(context.Background(), NameGrossProfit, time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "800", ind.Value.String())
	assert.Contains(t, logs.String(), "indicator cache version")
}

func TestFetchJSONFallsBackOnReadError(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	var logs bytes.Buffer
	cache := NewCache(client, time.Minute, slog.New(slog.NewTextHandler(&logs, nil)))
	mr.Close()

	var got int
	err := cache.FetchJSON(context.Background(), "stockdesk:indicators:x:1", &got, func(context.Context) (any, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Contains(t, logs.String(), "indicator cache read")
}

func TestSharedComputationSurvivesCallerCancel(t *testing.T) {
	repo := seededRepo()
	started := make(chan struct{})
	release := make(chan struct{})
	var loadErr error
	repo.salesHook = func(ctx context.Context) {
		close(started)
		<-release
		loadErr = ctx.Err()
	}
	svc, _ := newTestService(t, repo)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := svc.Scalar(ctx, NameGrossProfit, time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC))
		done <- err
	}()
	<-started
	cancel()
	close(release)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scalar did not return")
	}
	assert.NoError(t, loadErr)
}
