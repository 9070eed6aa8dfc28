package app

import (
	"testing"
	"time"

	"kabu-analyzer/config"
	models "kabu-analyzer/database/models_pkg"
	"kabu-analyzer/scoring"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fptr(v float64) *float64 { return &v }
func iptr(v int64) *int64     { return &v }

func defaultThresholds() config.SignalThresholds {
	return config.SignalThresholds{Buy: 60, StrongBuy: 80, Sell: 40}
}

func detectorFixture() (*SignalDetector, *fakeStockRepo, *fakePriceRepo, *fakeFundamentalRepo, *fakeIndicatorRepo, *fakeSignalRepo) {
	stocks := &fakeStockRepo{}
	prices := newFakePriceRepo()
	fundamentals := newFakeFundamentalRepo()
	indicators := newFakeIndicatorRepo()
	signals := newFakeSignalRepo()

	repos := Repositories{
		Stocks:       stocks,
		Prices:       prices,
		Fundamentals: fundamentals,
		Indicators:   indicators,
		Signals:      signals,
		Plans:        &fakePlanRepo{},
	}
	d := NewSignalDetector(repos, scoring.DefaultWeights(), defaultThresholds())
	return d, stocks, prices, fundamentals, indicators, signals
}

func TestClassifyBoundaries(t *testing.T) {
	d, _, _, _, _, _ := detectorFixture()

	tests := []struct {
		score    float64
		sigType  string
		strength string
	}{
		{100, "buy", models.SignalStrengthStrong},
		{80, "buy", models.SignalStrengthStrong},
		{79.99, "buy", models.SignalStrengthNormal},
		{60, "buy", models.SignalStrengthNormal},
		{59.99, "", ""},
		{50, "", ""},
		{40.01, "", ""},
		{40, "sell", models.SignalStrengthNormal},
		{0, "sell", models.SignalStrengthNormal},
	}

	for _, tt := range tests {
		sigType, strength := d.Classify(tt.score)
		assert.Equal(t, tt.sigType, sigType, "score=%v", tt.score)
		assert.Equal(t, tt.strength, strength, "score=%v", tt.score)
	}
}

func TestDetectWithoutIndicator(t *testing.T) {
	d, _, prices, _, _, _ := detectorFixture()
	date := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	_, _ = prices.UpsertBars([]models.StockPrice{{StockID: 1, Date: date, Close: 1000, Volume: 10000}})

	sig, err := d.Detect(models.Stock{ID: 1, Code: "7203"}, date)
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestDetectWithoutPrice(t *testing.T) {
	d, _, _, _, indicators, _ := detectorFixture()
	date := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	_, _ = indicators.UpsertBatch([]models.TechnicalIndicator{{StockID: 1, Date: date, RSI14: fptr(25)}})

	sig, err := d.Detect(models.Stock{ID: 1, Code: "7203"}, date)
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestDetectNeutralScoreProducesNoSignal(t *testing.T) {
	d, _, prices, _, indicators, _ := detectorFixture()
	date := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

	// indicator snapshot with no populated values scores exactly 50
	_, _ = indicators.UpsertBatch([]models.TechnicalIndicator{{StockID: 1, Date: date}})
	_, _ = prices.UpsertBars([]models.StockPrice{{StockID: 1, Date: date, Close: 1000, Volume: 10000}})

	sig, err := d.Detect(models.Stock{ID: 1, Code: "7203"}, date)
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestDetectBuySignal(t *testing.T) {
	d, _, prices, fundamentals, indicators, _ := detectorFixture()
	date := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

	_, _ = indicators.UpsertBatch([]models.TechnicalIndicator{{
		StockID:       1,
		Date:          date,
		SMA5:          fptr(1050),
		SMA25:         fptr(1000),
		SMA75:         fptr(950),
		RSI14:         fptr(35),
		MACDLine:      fptr(5),
		MACDSignal:    fptr(3),
		MACDHistogram: fptr(2),
		BBLower:       fptr(900),
		BBMiddle:      fptr(1000),
		BBUpper:       fptr(1100),
		VolumeSMA25:   iptr(1000),
	}})
	_ = fundamentals.Upsert(&models.FundamentalSnapshot{
		StockID:       1,
		Date:          date,
		PER:           fptr(8),
		PBR:           fptr(0.8),
		DividendYield: fptr(4),
		ROE:           fptr(25),
	})
	_, _ = prices.UpsertBars([]models.StockPrice{{StockID: 1, Date: date, Close: 950, Volume: 2100}})

	sig, err := d.Detect(models.Stock{ID: 1, Code: "7203"}, date)
	require.NoError(t, err)
	require.NotNil(t, sig)

	assert.Equal(t, "buy", sig.SignalType)
	assert.Equal(t, models.SignalStrengthNormal, sig.Strength)
	assert.Equal(t, 79.0, sig.Score)
	require.NotNil(t, sig.TechnicalScore)
	require.NotNil(t, sig.FundamentalScore)
	assert.Equal(t, 76.67, *sig.TechnicalScore)
	assert.Equal(t, 82.5, *sig.FundamentalScore)
	assert.NotEmpty(t, sig.Reasons)
	assert.Equal(t, date, sig.Date)
}

func TestDetectToleratesStaleSnapshots(t *testing.T) {
	d, _, prices, _, indicators, _ := detectorFixture()
	target := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	stale := target.AddDate(0, 0, -3)

	// clearly oversold setup dated a few days back
	_, _ = indicators.UpsertBatch([]models.TechnicalIndicator{{
		StockID:     1,
		Date:        stale,
		SMA5:        fptr(1050),
		SMA25:       fptr(1000),
		SMA75:       fptr(950),
		RSI14:       fptr(25),
		MACDLine:    fptr(5),
		MACDSignal:  fptr(3),
		BBLower:     fptr(900),
		BBUpper:     fptr(1100),
		VolumeSMA25: iptr(1000),
	}})
	_, _ = prices.UpsertBars([]models.StockPrice{{StockID: 1, Date: stale, Close: 890, Volume: 2500}})

	sig, err := d.Detect(models.Stock{ID: 1, Code: "7203"}, target)
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, "buy", sig.SignalType)
}

func TestDetectAllIsolatesFailures(t *testing.T) {
	d, stocks, prices, _, indicators, signals := detectorFixture()
	date := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

	stocks.stocks = []models.Stock{
		{ID: 1, Code: "7203", IsActive: true},
		{ID: 2, Code: "9434", IsActive: true},
	}
	indicators.lookupErr = map[int64]error{1: assert.AnError}

	_, _ = indicators.UpsertBatch([]models.TechnicalIndicator{{
		StockID:     2,
		Date:        date,
		SMA5:        fptr(1050),
		SMA25:       fptr(1000),
		SMA75:       fptr(950),
		RSI14:       fptr(25),
		MACDLine:    fptr(5),
		MACDSignal:  fptr(3),
		BBLower:     fptr(900),
		BBUpper:     fptr(1100),
		VolumeSMA25: iptr(1000),
	}})
	_, _ = prices.UpsertBars([]models.StockPrice{{StockID: 2, Date: date, Close: 890, Volume: 2500}})

	outcome, err := d.DetectAll(date)
	require.NoError(t, err)

	assert.Equal(t, 1, outcome.ErrorCount)
	assert.Equal(t, 1, outcome.SuccessCount)
	require.Len(t, outcome.Errors, 1)
	assert.Contains(t, outcome.Errors[0], "7203")

	assert.Nil(t, signals.forStockOn(1, date))
	assert.NotNil(t, signals.forStockOn(2, date))
}
