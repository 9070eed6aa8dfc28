// Package technical computes indicator snapshots from an ordered daily bar
// series. The engine is a pure function of its input: no I/O, no error
// paths. Missing history shows up as nil fields, never as zeros.
package technical

import (
	"math"

	models "kabu-analyzer/database/models_pkg"
	"kabu-analyzer/helpers"
)

// MinBars is the minimum history required before any snapshot is produced.
// Below this the MACD slow EMA is meaningless and the engine returns nothing.
const MinBars = 26

// Indicator window parameters.
const (
	rsiLength       = 14
	macdFast        = 12
	macdSlow        = 26
	macdSignalSpan  = 9
	bollingerWindow = 20
	bollingerWidth  = 2.0
	volumeSMAWindow = 25
)

// Compute derives one indicator snapshot per input bar. Bars must be in
// ascending date order with one bar per date. Fewer than MinBars bars
// yields nil.
func Compute(bars []models.StockPrice) []models.TechnicalIndicator {
	if len(bars) < MinBars {
		return nil
	}

	n := len(bars)
	closes := make([]float64, n)
	volumes := make([]float64, n)
	for i, b := range bars {
		closes[i] = b.Close
		volumes[i] = float64(b.Volume)
	}

	sma5 := smaSeries(closes, 5)
	sma25 := smaSeries(closes, 25)
	sma75 := smaSeries(closes, 75)
	sma200 := smaSeries(closes, 200)

	ema12 := emaSeries(closes, macdFast)
	ema26 := emaSeries(closes, macdSlow)

	rsi := rsiSeries(closes, rsiLength)

	macdLine := make([]float64, n)
	for i := range macdLine {
		macdLine[i] = ema12[i] - ema26[i]
	}
	macdSignal := emaSeries(macdLine, macdSignalSpan)
	macdHistogram := make([]float64, n)
	for i := range macdHistogram {
		macdHistogram[i] = macdLine[i] - macdSignal[i]
	}

	bbUpper, bbMiddle, bbLower := bollingerSeries(closes, bollingerWindow, bollingerWidth)
	volumeSMA := smaSeries(volumes, volumeSMAWindow)

	snapshots := make([]models.TechnicalIndicator, n)
	for i, b := range bars {
		snapshots[i] = models.TechnicalIndicator{
			StockID:       b.StockID,
			Date:          b.Date,
			SMA5:          priceField(sma5[i]),
			SMA25:         priceField(sma25[i]),
			SMA75:         priceField(sma75[i]),
			SMA200:        priceField(sma200[i]),
			EMA12:         priceField(ema12[i]),
			EMA26:         priceField(ema26[i]),
			RSI14:         priceField(rsi[i]),
			MACDLine:      macdField(macdLine[i]),
			MACDSignal:    macdField(macdSignal[i]),
			MACDHistogram: macdField(macdHistogram[i]),
			BBUpper:       priceField(bbUpper[i]),
			BBMiddle:      priceField(bbMiddle[i]),
			BBLower:       priceField(bbLower[i]),
			VolumeSMA25:   volumeField(volumeSMA[i]),
		}
	}
	return snapshots
}

// priceField rounds to 2 decimals, NaN becomes nil
func priceField(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	rounded := helpers.RoundTo(v, 2)
	return &rounded
}

// macdField rounds to 4 decimals, NaN becomes nil
func macdField(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	rounded := helpers.RoundTo(v, 4)
	return &rounded
}

// volumeField truncates to whole shares, NaN becomes nil
func volumeField(v float64) *int64 {
	if math.IsNaN(v) {
		return nil
	}
	truncated := int64(v)
	return &truncated
}
