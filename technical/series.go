package technical

import "math"

// Series helpers operate on plain float64 slices and mark positions whose
// lookback window has not filled with NaN. The engine converts NaN to nil
// pointers when materializing snapshots.

// smaSeries computes the trailing simple moving average over a window.
func smaSeries(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	var sum float64
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// emaSeries computes the exponential moving average with alpha = 2/(span+1),
// seeded by the first value: ema(0) = v(0), ema(t) = a*v(t) + (1-a)*ema(t-1).
func emaSeries(values []float64, span int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	alpha := 2.0 / (float64(span) + 1.0)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// wilderMean computes the weighted moving average with alpha = 1/length over
// the full history (weights (1-a)^k), NaN until `length` observations have
// accumulated. This is how the average gain/loss series behind RSI is
// smoothed.
func wilderMean(values []float64, length int) []float64 {
	out := make([]float64, len(values))
	alpha := 1.0 / float64(length)
	decay := 1.0 - alpha

	var num, den float64
	for i, v := range values {
		num = v + decay*num
		den = 1 + decay*den
		if i >= length-1 {
			out[i] = num / den
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// rsiSeries computes RSI over closing prices. The first delta is treated as
// zero gain/zero loss. A zero average loss saturates RSI at 100 instead of
// dividing by zero.
func rsiSeries(closes []float64, length int) []float64 {
	gains := make([]float64, len(closes))
	losses := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gains[i] = delta
		} else {
			losses[i] = -delta
		}
	}

	avgGain := wilderMean(gains, length)
	avgLoss := wilderMean(losses, length)

	out := make([]float64, len(closes))
	for i := range closes {
		if math.IsNaN(avgGain[i]) || math.IsNaN(avgLoss[i]) {
			out[i] = math.NaN()
			continue
		}
		if avgLoss[i] == 0 {
			out[i] = 100.0
			continue
		}
		rs := avgGain[i] / avgLoss[i]
		out[i] = 100.0 - 100.0/(1.0+rs)
	}
	return out
}

// bollingerSeries computes volatility bands at +-width sample standard
// deviations around the rolling mean.
func bollingerSeries(closes []float64, window int, width float64) (upper, middle, lower []float64) {
	n := len(closes)
	upper = make([]float64, n)
	middle = smaSeries(closes, window)
	lower = make([]float64, n)

	for i := 0; i < n; i++ {
		if i < window-1 {
			upper[i] = math.NaN()
			lower[i] = math.NaN()
			continue
		}
		mean := middle[i]
		var sumSq float64
		for j := i - window + 1; j <= i; j++ {
			d := closes[j] - mean
			sumSq += d * d
		}
		std := math.Sqrt(sumSq / float64(window-1))
		upper[i] = mean + width*std
		lower[i] = mean - width*std
	}
	return upper, middle, lower
}
