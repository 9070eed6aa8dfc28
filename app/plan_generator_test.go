package app

import (
	"testing"
	"time"

	models "kabu-analyzer/database/models_pkg"
	"kabu-analyzer/planner"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func planFixture() (*PlanGenerator, *fakePriceRepo, *fakeIndicatorRepo, *fakePlanRepo) {
	prices := newFakePriceRepo()
	indicators := newFakeIndicatorRepo()
	plans := &fakePlanRepo{}

	repos := Repositories{
		Stocks:       &fakeStockRepo{},
		Prices:       prices,
		Fundamentals: newFakeFundamentalRepo(),
		Indicators:   indicators,
		Signals:      newFakeSignalRepo(),
		Plans:        plans,
	}
	g := NewPlanGenerator(repos, planner.DefaultRates(), planner.DefaultTotalCapital)
	return g, prices, indicators, plans
}

func TestGenerateUserPlan(t *testing.T) {
	g, prices, indicators, plans := planFixture()
	date := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

	_, _ = prices.UpsertBars([]models.StockPrice{{StockID: 1, Date: date, Close: 1000, Volume: 10000}})
	_, _ = indicators.UpsertBatch([]models.TechnicalIndicator{{StockID: 1, Date: date, SMA25: fptr(900)}})

	plan, err := g.GenerateUserPlan(models.Stock{ID: 1, Code: "7203"}, 42)
	require.NoError(t, err)
	require.NotNil(t, plan)

	assert.Equal(t, 950.0, plan.EntryPrice)
	assert.Equal(t, 1045.0, plan.TargetPrice1)
	assert.Equal(t, 902.5, plan.StopLossPrice)
	assert.Equal(t, int64(100), plan.PositionSize)
	assert.Equal(t, 2.0, plan.RiskRewardRatio)
	assert.Equal(t, models.PlanStatusActive, plan.Status)
	assert.Equal(t, "buy", plan.PlanType)
	require.NotNil(t, plan.UserID)
	assert.Equal(t, int64(42), *plan.UserID)
	assert.Nil(t, plan.SignalID)

	require.Len(t, plans.all(), 1)
}

func TestGenerateUserPlanWithoutHistory(t *testing.T) {
	g, _, _, plans := planFixture()

	plan, err := g.GenerateUserPlan(models.Stock{ID: 1, Code: "7203"}, 42)
	require.NoError(t, err)
	assert.Nil(t, plan)
	assert.Empty(t, plans.all())
}

func TestGenerateUserPlanWithoutIndicator(t *testing.T) {
	g, prices, _, _ := planFixture()
	date := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	_, _ = prices.UpsertBars([]models.StockPrice{{StockID: 1, Date: date, Close: 1000, Volume: 10000}})

	plan, err := g.GenerateUserPlan(models.Stock{ID: 1, Code: "7203"}, 42)
	require.NoError(t, err)
	require.NotNil(t, plan)

	// no SMA available: entry falls back to the close
	assert.Equal(t, 1000.0, plan.EntryPrice)
}

func TestGenerateSystemPlan(t *testing.T) {
	g, prices, indicators, _ := planFixture()
	date := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

	_, _ = prices.UpsertBars([]models.StockPrice{{StockID: 1, Date: date, Close: 1000, Volume: 10000}})
	_, _ = indicators.UpsertBatch([]models.TechnicalIndicator{{StockID: 1, Date: date, SMA25: fptr(900)}})

	sig := models.Signal{ID: 7, StockID: 1, Date: date, SignalType: "buy", Score: 66.5}
	plan, err := g.GenerateSystemPlan(models.Stock{ID: 1, Code: "7203"}, sig)
	require.NoError(t, err)
	require.NotNil(t, plan)

	assert.Equal(t, "buy", plan.PlanType)
	require.NotNil(t, plan.SignalID)
	assert.Equal(t, int64(7), *plan.SignalID)
	assert.Nil(t, plan.UserID)
}
