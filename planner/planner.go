// Package planner computes trade plan prices and sizing from the latest
// close and the mid-term moving average. Pure computation; persistence and
// signal lookup live in the app package.
package planner

import "kabu-analyzer/helpers"

// Default plan parameters.
var (
	DefaultTakeProfitRates  = [3]float64{0.10, 0.20, 0.30}
	DefaultStopLossRate     = 0.05
	DefaultMaxPositionRatio = 0.10
	DefaultTotalCapital     = 1_000_000.0
)

// lotSize is the share multiple positions are floored to. Position size
// never goes below one lot, even when one lot exceeds the nominal capital
// allocation for very expensive stocks.
const lotSize = 100

// Rates configures the profit-take, stop-loss and sizing parameters.
type Rates struct {
	TakeProfit       [3]float64 `yaml:"take_profit"`
	StopLoss         float64    `yaml:"stop_loss"`
	MaxPositionRatio float64    `yaml:"max_position_ratio"`
}

// DefaultRates returns the standard plan parameters.
func DefaultRates() Rates {
	return Rates{
		TakeProfit:       DefaultTakeProfitRates,
		StopLoss:         DefaultStopLossRate,
		MaxPositionRatio: DefaultMaxPositionRatio,
	}
}

// Plan is the computed entry/exit/sizing prescription.
type Plan struct {
	EntryPrice      float64
	TargetPrice1    float64
	TargetPrice2    float64
	TargetPrice3    float64
	StopLossPrice   float64
	PositionSize    int64
	RiskRewardRatio float64
}

// EntryPrice picks the recommended entry. When the 25-day SMA sits below the
// latest close the entry is the midpoint of the two, modeling a buy on the
// pullback; otherwise the close itself.
func EntryPrice(closePrice float64, sma25 *float64) float64 {
	if sma25 != nil && *sma25 < closePrice {
		return (closePrice + *sma25) / 2
	}
	return closePrice
}

// Calculate builds a plan from the latest close, the optional 25-day SMA and
// the capital constraint. The risk/reward ratio is 0 when the stop-loss sits
// at or above the entry; that is a degenerate rate configuration, not an
// error.
func Calculate(closePrice float64, sma25 *float64, totalCapital float64, r Rates) Plan {
	entry := EntryPrice(closePrice, sma25)

	target1 := entry * (1 + r.TakeProfit[0])
	target2 := entry * (1 + r.TakeProfit[1])
	target3 := entry * (1 + r.TakeProfit[2])
	stopLoss := entry * (1 - r.StopLoss)

	maxInvestment := totalCapital * r.MaxPositionRatio
	positionSize := int64(maxInvestment/entry) / lotSize * lotSize
	if positionSize < lotSize {
		positionSize = lotSize
	}

	risk := entry - stopLoss
	riskReward := 0.0
	if risk > 0 {
		riskReward = (target1 - entry) / risk
	}

	return Plan{
		EntryPrice:      helpers.RoundTo(entry, 2),
		TargetPrice1:    helpers.RoundTo(target1, 2),
		TargetPrice2:    helpers.RoundTo(target2, 2),
		TargetPrice3:    helpers.RoundTo(target3, 2),
		StopLossPrice:   helpers.RoundTo(stopLoss, 2),
		PositionSize:    positionSize,
		RiskRewardRatio: helpers.RoundTo(riskReward, 2),
	}
}
