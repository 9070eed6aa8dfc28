package app

import (
	"context"
	"time"

	models "kabu-analyzer/database/models_pkg"
	"kabu-analyzer/marketdata"
)

// Repository interfaces consumed by the pipeline. The gorm repositories in
// database/* satisfy them; tests substitute in-memory fakes.

// StockRepository reads and seeds the analysis universe.
type StockRepository interface {
	ActiveStocks() ([]models.Stock, error)
	ByID(id int64) (*models.Stock, error)
	Upsert(stock *models.Stock) error
}

// PriceRepository stores and reads daily bars.
type PriceRepository interface {
	UpsertBars(bars []models.StockPrice) (int, error)
	BarsAscending(stockID int64) ([]models.StockPrice, error)
	LatestAtOrBefore(stockID int64, date time.Time) (*models.StockPrice, error)
	Latest(stockID int64) (*models.StockPrice, error)
	CountBars() (int64, error)
}

// FundamentalRepository stores and reads fundamental snapshots.
type FundamentalRepository interface {
	Upsert(snapshot *models.FundamentalSnapshot) error
	LatestAtOrBefore(stockID int64, date time.Time) (*models.FundamentalSnapshot, error)
}

// IndicatorRepository stores and reads technical indicator snapshots.
type IndicatorRepository interface {
	UpsertBatch(snapshots []models.TechnicalIndicator) (int, error)
	LatestAtOrBefore(stockID int64, date time.Time) (*models.TechnicalIndicator, error)
	Latest(stockID int64) (*models.TechnicalIndicator, error)
}

// SignalRepository stores and reads detected signals.
type SignalRepository interface {
	SaveBatch(batch []models.Signal) error
	BuySignalsOn(date time.Time) ([]models.Signal, error)
}

// PlanRepository stores trade plans.
type PlanRepository interface {
	Create(plan *models.TradePlan) error
}

// MarketDataSource is the external price/fundamental gateway. Empty results
// are valid "no data" outcomes.
type MarketDataSource interface {
	DailyBars(ctx context.Context, symbol string, from, to time.Time) ([]marketdata.Bar, error)
	Fundamentals(ctx context.Context, symbol string) (map[string]float64, error)
}

// Repositories bundles the storage dependencies handed to the pipeline.
type Repositories struct {
	Stocks       StockRepository
	Prices       PriceRepository
	Fundamentals FundamentalRepository
	Indicators   IndicatorRepository
	Signals      SignalRepository
	Plans        PlanRepository
}
