package app

import (
	"fmt"
	"log"

	models "kabu-analyzer/database/models_pkg"
	"kabu-analyzer/helpers"
	"kabu-analyzer/planner"
)

// PlanGenerator turns the latest close and 25-day SMA into persisted trade
// plans. Two variants exist: user-requested plans (tied to an account) and
// system plans generated from buy signals during a pipeline run.
type PlanGenerator struct {
	prices       PriceRepository
	indicators   IndicatorRepository
	plans        PlanRepository
	rates        planner.Rates
	totalCapital float64
}

// NewPlanGenerator creates a new trade plan generator
func NewPlanGenerator(repos Repositories, rates planner.Rates, totalCapital float64) *PlanGenerator {
	return &PlanGenerator{
		prices:       repos.Prices,
		indicators:   repos.Indicators,
		plans:        repos.Plans,
		rates:        rates,
		totalCapital: totalCapital,
	}
}

// latestCloseAndSMA fetches the newest close and, when available, the newest
// 25-day SMA. A missing price bar means no plan can be built.
func (g *PlanGenerator) latestCloseAndSMA(stockID int64) (float64, *float64, bool, error) {
	price, err := g.prices.Latest(stockID)
	if err != nil {
		return 0, nil, false, err
	}
	if price == nil {
		return 0, nil, false, nil
	}

	var sma25 *float64
	indicator, err := g.indicators.Latest(stockID)
	if err != nil {
		return 0, nil, false, err
	}
	if indicator != nil {
		sma25 = indicator.SMA25
	}
	return price.Close, sma25, true, nil
}

// GenerateUserPlan builds and persists a plan requested by a user. Returns
// nil without error when the stock has no price history.
func (g *PlanGenerator) GenerateUserPlan(stock models.Stock, userID int64) (*models.TradePlan, error) {
	closePrice, sma25, ok, err := g.latestCloseAndSMA(stock.ID)
	if err != nil {
		return nil, fmt.Errorf("plan inputs for %s: %w", stock.Code, err)
	}
	if !ok {
		return nil, nil
	}

	result := planner.Calculate(closePrice, sma25, g.totalCapital, g.rates)
	plan := buildPlan(stock.ID, result, "buy")
	plan.UserID = &userID

	if err := g.plans.Create(plan); err != nil {
		return nil, fmt.Errorf("persist plan for %s: %w", stock.Code, err)
	}
	return plan, nil
}

// GenerateSystemPlan builds and persists a plan for a detected buy signal,
// with no owning user. Returns nil without error when the stock has no
// price history.
func (g *PlanGenerator) GenerateSystemPlan(stock models.Stock, sig models.Signal) (*models.TradePlan, error) {
	closePrice, sma25, ok, err := g.latestCloseAndSMA(stock.ID)
	if err != nil {
		return nil, fmt.Errorf("plan inputs for %s: %w", stock.Code, err)
	}
	if !ok {
		log.Printf("⚠️  No price data, skipping plan: %s", stock.Code)
		return nil, nil
	}

	result := planner.Calculate(closePrice, sma25, g.totalCapital, g.rates)
	plan := buildPlan(stock.ID, result, sig.SignalType)
	signalID := sig.ID
	plan.SignalID = &signalID

	if err := g.plans.Create(plan); err != nil {
		return nil, fmt.Errorf("persist plan for %s: %w", stock.Code, err)
	}
	log.Printf("📋 System trade plan: %s entry=%s size=%d (score: %.2f)",
		stock.Code, helpers.FormatJPY(plan.EntryPrice), plan.PositionSize, sig.Score)
	return plan, nil
}

func buildPlan(stockID int64, result planner.Plan, planType string) *models.TradePlan {
	return &models.TradePlan{
		StockID:         stockID,
		PlanType:        planType,
		EntryPrice:      result.EntryPrice,
		TargetPrice1:    result.TargetPrice1,
		TargetPrice2:    result.TargetPrice2,
		TargetPrice3:    result.TargetPrice3,
		StopLossPrice:   result.StopLossPrice,
		PositionSize:    result.PositionSize,
		RiskRewardRatio: result.RiskRewardRatio,
		Status:          models.PlanStatusActive,
	}
}
