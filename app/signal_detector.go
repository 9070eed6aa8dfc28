package app

import (
	"fmt"
	"log"
	"time"

	"kabu-analyzer/config"
	models "kabu-analyzer/database/models_pkg"
	"kabu-analyzer/scoring"
)

// SignalDetector classifies per-stock composite scores into buy/sell
// signals. Missing prerequisites (no bar, no indicator snapshot) produce no
// result rather than an error; only storage failures propagate.
type SignalDetector struct {
	stocks       StockRepository
	prices       PriceRepository
	fundamentals FundamentalRepository
	indicators   IndicatorRepository
	signals      SignalRepository
	weights      scoring.Weights
	thresholds   config.SignalThresholds
}

// NewSignalDetector creates a new signal detector
func NewSignalDetector(repos Repositories, weights scoring.Weights, thresholds config.SignalThresholds) *SignalDetector {
	return &SignalDetector{
		stocks:       repos.Stocks,
		prices:       repos.Prices,
		fundamentals: repos.Fundamentals,
		indicators:   repos.Indicators,
		signals:      repos.Signals,
		weights:      weights,
		thresholds:   thresholds,
	}
}

// Classify maps a total score onto a signal type and strength. The empty
// type means the score stayed in the neutral band and no record is written.
func (d *SignalDetector) Classify(score float64) (signalType, strength string) {
	switch {
	case score >= d.thresholds.Buy:
		strength = models.SignalStrengthNormal
		if score >= d.thresholds.StrongBuy {
			strength = models.SignalStrengthStrong
		}
		return "buy", strength
	case score <= d.thresholds.Sell:
		return "sell", models.SignalStrengthNormal
	default:
		return "", ""
	}
}

// Detect evaluates one stock for the target date. Returns nil without error
// when no price bar or no indicator snapshot exists at or before the date,
// or when the score is neutral. The most recent snapshot wins; slightly
// stale indicators and fundamentals are tolerated.
func (d *SignalDetector) Detect(stock models.Stock, targetDate time.Time) (*models.Signal, error) {
	indicator, err := d.indicators.LatestAtOrBefore(stock.ID, targetDate)
	if err != nil {
		return nil, fmt.Errorf("indicator lookup for %s: %w", stock.Code, err)
	}
	if indicator == nil {
		return nil, nil
	}

	fundamental, err := d.fundamentals.LatestAtOrBefore(stock.ID, targetDate)
	if err != nil {
		return nil, fmt.Errorf("fundamental lookup for %s: %w", stock.Code, err)
	}

	price, err := d.prices.LatestAtOrBefore(stock.ID, targetDate)
	if err != nil {
		return nil, fmt.Errorf("price lookup for %s: %w", stock.Code, err)
	}
	if price == nil {
		return nil, nil
	}

	result := scoring.Calculate(indicator, fundamental, price.Close, price.Volume, d.weights)

	signalType, strength := d.Classify(result.TotalScore)
	if signalType == "" {
		return nil, nil
	}

	techScore := result.TechnicalScore
	fundScore := result.FundamentalScore
	return &models.Signal{
		StockID:          stock.ID,
		Date:             targetDate,
		SignalType:       signalType,
		Strength:         strength,
		Score:            result.TotalScore,
		TechnicalScore:   &techScore,
		FundamentalScore: &fundScore,
		Reasons:          result.Reasons,
	}, nil
}

// DetectAll evaluates the whole active universe for the target date. One
// stock's failure is counted and recorded without aborting the batch; all
// detected signals are committed together at the end.
func (d *SignalDetector) DetectAll(targetDate time.Time) (StageOutcome, error) {
	var outcome StageOutcome

	stockList, err := d.stocks.ActiveStocks()
	if err != nil {
		return outcome, fmt.Errorf("failed to load universe: %w", err)
	}

	var batch []models.Signal
	for _, stock := range stockList {
		sig, err := d.Detect(stock, targetDate)
		if err != nil {
			outcome.ErrorCount++
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("%s: %v", stock.Code, err))
			log.Printf("⚠️  Signal detection error: %s: %v", stock.Code, err)
			continue
		}
		if sig != nil {
			outcome.SuccessCount++
			batch = append(batch, *sig)
			log.Printf("📈 Signal detected: %s - %s (score: %.2f)", stock.Code, sig.SignalType, sig.Score)
		}
	}

	if err := d.signals.SaveBatch(batch); err != nil {
		return outcome, fmt.Errorf("failed to commit signal batch: %w", err)
	}
	return outcome, nil
}
