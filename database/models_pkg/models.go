package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Stock represents one listed equity in the analysis universe.
// Only stocks with IsActive=true are processed by the pipeline; the flag is
// read-only during a run.
type Stock struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Code      string    `gorm:"size:10;uniqueIndex;not null" json:"code"` // ticker, e.g. 7203.T
	Name      string    `gorm:"size:100;not null" json:"name"`
	Sector    *string   `gorm:"size:50" json:"sector,omitempty"`
	Market    *string   `gorm:"size:20" json:"market,omitempty"`
	IsActive  bool      `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for Stock
func (Stock) TableName() string {
	return "stocks"
}

// StockPrice is one daily OHLCV bar. There is exactly one bar per
// (stock, date); refreshes upsert the same key with corrected values.
type StockPrice struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	StockID       int64     `gorm:"not null;uniqueIndex:uq_stock_prices_stock_date,priority:1" json:"stock_id"`
	Date          time.Time `gorm:"type:date;not null;uniqueIndex:uq_stock_prices_stock_date,priority:2" json:"date"`
	Open          float64   `gorm:"type:decimal(10,2);not null" json:"open"`
	High          float64   `gorm:"type:decimal(10,2);not null" json:"high"`
	Low           float64   `gorm:"type:decimal(10,2);not null" json:"low"`
	Close         float64   `gorm:"type:decimal(10,2);not null" json:"close"`
	Volume        int64     `gorm:"not null" json:"volume"`
	AdjustedClose float64   `gorm:"type:decimal(10,2);not null" json:"adjusted_close"`
}

// TableName specifies the table name for StockPrice
func (StockPrice) TableName() string {
	return "stock_prices"
}

// FundamentalSnapshot holds the valuation and profitability ratios fetched
// for a stock on a given date. Every ratio is independently optional -
// a missing ratio is nil, never zero.
type FundamentalSnapshot struct {
	ID              int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	StockID         int64     `gorm:"not null;uniqueIndex:uq_fundamentals_stock_date,priority:1" json:"stock_id"`
	Date            time.Time `gorm:"type:date;not null;uniqueIndex:uq_fundamentals_stock_date,priority:2" json:"date"`
	PER             *float64  `gorm:"type:decimal(10,2)" json:"per,omitempty"`
	PBR             *float64  `gorm:"type:decimal(10,2)" json:"pbr,omitempty"`
	DividendYield   *float64  `gorm:"type:decimal(5,2)" json:"dividend_yield,omitempty"` // percent
	ROE             *float64  `gorm:"type:decimal(5,2)" json:"roe,omitempty"`            // percent
	EPS             *float64  `gorm:"type:decimal(10,2)" json:"eps,omitempty"`
	BPS             *float64  `gorm:"type:decimal(10,2)" json:"bps,omitempty"`
	MarketCap       *int64    `json:"market_cap,omitempty"`
	Revenue         *int64    `json:"revenue,omitempty"`
	OperatingIncome *int64    `json:"operating_income,omitempty"`
}

// TableName specifies the table name for FundamentalSnapshot
func (FundamentalSnapshot) TableName() string {
	return "fundamental_snapshots"
}

// TechnicalIndicator is the computed indicator snapshot for one (stock, date).
// Fields whose lookback window has not filled yet are nil; recomputing the
// same history yields identical rows.
type TechnicalIndicator struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	StockID       int64     `gorm:"not null;uniqueIndex:uq_technical_indicators_stock_date,priority:1" json:"stock_id"`
	Date          time.Time `gorm:"type:date;not null;uniqueIndex:uq_technical_indicators_stock_date,priority:2" json:"date"`
	SMA5          *float64  `gorm:"column:sma_5;type:decimal(10,2)" json:"sma_5,omitempty"`
	SMA25         *float64  `gorm:"column:sma_25;type:decimal(10,2)" json:"sma_25,omitempty"`
	SMA75         *float64  `gorm:"column:sma_75;type:decimal(10,2)" json:"sma_75,omitempty"`
	SMA200        *float64  `gorm:"column:sma_200;type:decimal(10,2)" json:"sma_200,omitempty"`
	EMA12         *float64  `gorm:"column:ema_12;type:decimal(10,2)" json:"ema_12,omitempty"`
	EMA26         *float64  `gorm:"column:ema_26;type:decimal(10,2)" json:"ema_26,omitempty"`
	RSI14         *float64  `gorm:"column:rsi_14;type:decimal(10,2)" json:"rsi_14,omitempty"`
	MACDLine      *float64  `gorm:"column:macd_line;type:decimal(12,4)" json:"macd_line,omitempty"`
	MACDSignal    *float64  `gorm:"column:macd_signal;type:decimal(12,4)" json:"macd_signal,omitempty"`
	MACDHistogram *float64  `gorm:"column:macd_histogram;type:decimal(12,4)" json:"macd_histogram,omitempty"`
	BBUpper       *float64  `gorm:"column:bb_upper_2;type:decimal(10,2)" json:"bb_upper_2,omitempty"` // +2 sigma
	BBMiddle      *float64  `gorm:"column:bb_middle;type:decimal(10,2)" json:"bb_middle,omitempty"`
	BBLower       *float64  `gorm:"column:bb_lower_2;type:decimal(10,2)" json:"bb_lower_2,omitempty"` // -2 sigma
	VolumeSMA25   *int64    `gorm:"column:volume_sma_25" json:"volume_sma_25,omitempty"`
}

// TableName specifies the table name for TechnicalIndicator
func (TechnicalIndicator) TableName() string {
	return "technical_indicators"
}

// SignalReason is one human-readable contribution to a signal's score.
type SignalReason struct {
	Category string `json:"category"`
	Reason   string `json:"reason"`
}

// SignalReasons is stored as a JSONB column on the signal row.
type SignalReasons []SignalReason

// Value implements driver.Valuer for JSONB storage
func (r SignalReasons) Value() (driver.Value, error) {
	if r == nil {
		return nil, nil
	}
	return json.Marshal(r)
}

// Scan implements sql.Scanner for JSONB retrieval
func (r *SignalReasons) Scan(value interface{}) error {
	if value == nil {
		*r = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, r)
	case string:
		return json.Unmarshal([]byte(v), r)
	default:
		return fmt.Errorf("unsupported type for SignalReasons: %T", value)
	}
}

// Signal strength markers. A score at or above the strong-buy threshold is
// still a buy; the marker is informational.
const (
	SignalStrengthNormal = "normal"
	SignalStrengthStrong = "strong"
)

// Signal is a derived buy/sell classification for one (stock, date).
// At most one signal exists per key; a neutral score produces no row.
// Signals are fully re-derivable from stored prices and indicators, so
// deleting and recomputing them is always safe.
type Signal struct {
	ID               int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	StockID          int64         `gorm:"not null;uniqueIndex:uq_signals_stock_date,priority:1" json:"stock_id"`
	Date             time.Time     `gorm:"type:date;not null;uniqueIndex:uq_signals_stock_date,priority:2;index:ix_signals_date_type,priority:1" json:"date"`
	SignalType       string        `gorm:"size:10;not null;index:ix_signals_date_type,priority:2" json:"signal_type"` // buy, sell
	Strength         string        `gorm:"size:10;not null;default:normal" json:"strength"`
	Score            float64       `gorm:"type:decimal(5,2);not null" json:"score"`
	TechnicalScore   *float64      `gorm:"type:decimal(5,2)" json:"technical_score,omitempty"`
	FundamentalScore *float64      `gorm:"type:decimal(5,2)" json:"fundamental_score,omitempty"`
	Reasons          SignalReasons `gorm:"type:jsonb" json:"reasons,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
}

// TableName specifies the table name for Signal
func (Signal) TableName() string {
	return "signals"
}

// Trade plan lifecycle statuses. A plan is created active; execution and
// cancellation happen outside the pipeline.
const (
	PlanStatusActive    = "active"
	PlanStatusExecuted  = "executed"
	PlanStatusCancelled = "cancelled"
)

// TradePlan is a concrete entry/exit/sizing prescription. System-generated
// plans reference the originating signal and carry no user; user-requested
// plans carry a user and no signal.
type TradePlan struct {
	ID              int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	StockID         int64     `gorm:"not null;index" json:"stock_id"`
	UserID          *int64    `gorm:"index" json:"user_id,omitempty"`
	SignalID        *int64    `gorm:"index" json:"signal_id,omitempty"`
	PlanType        string    `gorm:"size:10;not null" json:"plan_type"` // buy, sell
	EntryPrice      float64   `gorm:"type:decimal(10,2);not null" json:"entry_price"`
	TargetPrice1    float64   `gorm:"type:decimal(10,2);not null" json:"target_price_1"`
	TargetPrice2    float64   `gorm:"type:decimal(10,2);not null" json:"target_price_2"`
	TargetPrice3    float64   `gorm:"type:decimal(10,2);not null" json:"target_price_3"`
	StopLossPrice   float64   `gorm:"type:decimal(10,2);not null" json:"stop_loss_price"`
	PositionSize    int64     `gorm:"not null" json:"position_size"` // shares
	RiskRewardRatio float64   `gorm:"type:decimal(6,2);not null" json:"risk_reward_ratio"`
	Status          string    `gorm:"size:10;not null;default:active" json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

// TableName specifies the table name for TradePlan
func (TradePlan) TableName() string {
	return "trade_plans"
}
