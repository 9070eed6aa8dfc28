// Package scoring blends an indicator snapshot and an optional fundamental
// snapshot into a bounded composite score with attributed reasons. Pure
// computation: no I/O, no error paths.
package scoring

import (
	"fmt"

	models "kabu-analyzer/database/models_pkg"
	"kabu-analyzer/helpers"
)

// neutralScore is the fallback for any factor whose underlying data is
// missing. A fully blank snapshot therefore scores exactly 50.
const neutralScore = 50.0

// Weights holds the relative weight of each scoring factor. Factors with
// missing data still contribute their weight at the neutral score.
type Weights struct {
	SMACross      float64 `yaml:"sma_cross"`
	RSI           float64 `yaml:"rsi"`
	MACD          float64 `yaml:"macd"`
	Bollinger     float64 `yaml:"bollinger"`
	Volume        float64 `yaml:"volume"`
	PER           float64 `yaml:"per"`
	PBR           float64 `yaml:"pbr"`
	DividendYield float64 `yaml:"dividend_yield"`
	ROE           float64 `yaml:"roe"`
}

// DefaultWeights returns the standard factor weighting.
func DefaultWeights() Weights {
	return Weights{
		SMACross:      15,
		RSI:           10,
		MACD:          15,
		Bollinger:     10,
		Volume:        10,
		PER:           10,
		PBR:           10,
		DividendYield: 10,
		ROE:           10,
	}
}

// TechnicalWeight is the summed weight of the technical factor group.
func (w Weights) TechnicalWeight() float64 {
	return w.SMACross + w.RSI + w.MACD + w.Bollinger + w.Volume
}

// FundamentalWeight is the summed weight of the fundamental factor group.
func (w Weights) FundamentalWeight() float64 {
	return w.PER + w.PBR + w.DividendYield + w.ROE
}

// Result is the scoring outcome for one stock on one date.
type Result struct {
	TotalScore       float64
	TechnicalScore   float64
	FundamentalScore float64
	Reasons          []models.SignalReason
}

// factor is one evaluated scoring rule: a score in [0,100], an optional
// explanation, and the weight it carries in its group.
type factor struct {
	category string
	score    float64
	reason   string
	weight   float64
}

// neutralFactor is the single place the missing-data fallback lives.
func neutralFactor(category string, weight float64) factor {
	return factor{category: category, score: neutralScore, weight: weight}
}

func scoreSMACross(ind *models.TechnicalIndicator, weight float64) factor {
	if ind.SMA5 == nil || ind.SMA25 == nil {
		return neutralFactor("SMA", weight)
	}
	sma5, sma25 := *ind.SMA5, *ind.SMA25

	f := neutralFactor("SMA", weight)
	switch {
	case sma5 > sma25:
		f.score = 70
		f.reason = "short-term SMA above mid-term SMA"
		if ind.SMA75 != nil && sma25 > *ind.SMA75 {
			f.score = 90
			f.reason = "perfect order (SMA5 > SMA25 > SMA75)"
		}
	case sma5 < sma25:
		f.score = 30
		f.reason = "short-term SMA below mid-term SMA"
	}
	return f
}

func scoreRSI(ind *models.TechnicalIndicator, weight float64) factor {
	if ind.RSI14 == nil {
		return neutralFactor("RSI", weight)
	}
	rsi := *ind.RSI14

	f := neutralFactor("RSI", weight)
	switch {
	case rsi <= 30:
		f.score = 80
		f.reason = fmt.Sprintf("RSI=%.1f (oversold)", rsi)
	case rsi <= 40:
		f.score = 65
		f.reason = fmt.Sprintf("RSI=%.1f (approaching oversold)", rsi)
	case rsi >= 70:
		f.score = 20
		f.reason = fmt.Sprintf("RSI=%.1f (overbought)", rsi)
	case rsi >= 60:
		f.score = 40
		f.reason = fmt.Sprintf("RSI=%.1f (approaching overbought)", rsi)
	}
	return f
}

func scoreMACD(ind *models.TechnicalIndicator, weight float64) factor {
	if ind.MACDLine == nil || ind.MACDSignal == nil {
		return neutralFactor("MACD", weight)
	}
	line, signal := *ind.MACDLine, *ind.MACDSignal
	histogram := 0.0
	if ind.MACDHistogram != nil {
		histogram = *ind.MACDHistogram
	}

	f := neutralFactor("MACD", weight)
	if line > signal {
		f.score = 70
		f.reason = "MACD above signal line"
		if histogram > 0 {
			f.score = 80
			f.reason = "MACD above signal line with positive histogram"
		}
	} else {
		f.score = 30
		f.reason = "MACD below signal line"
	}
	return f
}

func scoreBollinger(ind *models.TechnicalIndicator, closePrice float64, weight float64) factor {
	if ind.BBLower == nil || ind.BBUpper == nil {
		return neutralFactor("Bollinger", weight)
	}
	lower, upper := *ind.BBLower, *ind.BBUpper
	middle := (lower + upper) / 2
	if ind.BBMiddle != nil {
		middle = *ind.BBMiddle
	}

	f := neutralFactor("Bollinger", weight)
	switch {
	case closePrice <= lower:
		f.score = 80
		f.reason = "price at lower Bollinger band (-2σ)"
	case closePrice <= middle:
		f.score = 60
		f.reason = "price below Bollinger middle band"
	case closePrice >= upper:
		f.score = 20
		f.reason = "price at upper Bollinger band (+2σ)"
	default:
		f.score = 40
	}
	return f
}

func scoreVolume(ind *models.TechnicalIndicator, currentVolume int64, weight float64) factor {
	if ind.VolumeSMA25 == nil || *ind.VolumeSMA25 == 0 {
		return neutralFactor("Volume", weight)
	}
	ratio := float64(currentVolume) / float64(*ind.VolumeSMA25)

	f := neutralFactor("Volume", weight)
	switch {
	case ratio >= 2.0:
		f.score = 80
		f.reason = fmt.Sprintf("volume at %.1fx the 25-day average (surging)", ratio)
	case ratio >= 1.5:
		f.score = 65
		f.reason = fmt.Sprintf("volume at %.1fx the 25-day average (rising)", ratio)
	case ratio <= 0.5:
		f.score = 30
		f.reason = fmt.Sprintf("volume at %.1fx the 25-day average (thin)", ratio)
	}
	return f
}

func scorePER(fund *models.FundamentalSnapshot, weight float64) factor {
	if fund == nil || fund.PER == nil {
		return neutralFactor("PER", weight)
	}
	per := *fund.PER

	f := neutralFactor("PER", weight)
	switch {
	case per <= 0:
		f.score = 20
		f.reason = fmt.Sprintf("PER=%.1f (loss-making)", per)
	case per <= 10:
		f.score = 90
		f.reason = fmt.Sprintf("PER=%.1f (undervalued)", per)
	case per <= 15:
		f.score = 70
		f.reason = fmt.Sprintf("PER=%.1f (fair to slightly undervalued)", per)
	case per <= 25:
		f.score = 50
	case per <= 40:
		f.score = 30
		f.reason = fmt.Sprintf("PER=%.1f (slightly overvalued)", per)
	default:
		f.score = 15
		f.reason = fmt.Sprintf("PER=%.1f (overvalued)", per)
	}
	return f
}

func scorePBR(fund *models.FundamentalSnapshot, weight float64) factor {
	if fund == nil || fund.PBR == nil {
		return neutralFactor("PBR", weight)
	}
	pbr := *fund.PBR

	f := neutralFactor("PBR", weight)
	switch {
	case pbr <= 0:
		f.score = 20
	case pbr <= 0.5:
		f.score = 90
		f.reason = fmt.Sprintf("PBR=%.2f (deeply undervalued)", pbr)
	case pbr <= 1.0:
		f.score = 75
		f.reason = fmt.Sprintf("PBR=%.2f (undervalued)", pbr)
	case pbr <= 2.0:
		f.score = 50
	default:
		f.score = 25
		f.reason = fmt.Sprintf("PBR=%.2f (overvalued)", pbr)
	}
	return f
}

func scoreDividendYield(fund *models.FundamentalSnapshot, weight float64) factor {
	if fund == nil || fund.DividendYield == nil {
		return neutralFactor("Dividend", weight)
	}
	dy := *fund.DividendYield

	f := neutralFactor("Dividend", weight)
	switch {
	case dy >= 5.0:
		f.score = 90
		f.reason = fmt.Sprintf("dividend yield=%.1f%% (high)", dy)
	case dy >= 3.0:
		f.score = 75
		f.reason = fmt.Sprintf("dividend yield=%.1f%% (attractive)", dy)
	case dy >= 2.0:
		f.score = 55
	case dy > 0:
		f.score = 40
	default:
		f.score = 30
	}
	return f
}

func scoreROE(fund *models.FundamentalSnapshot, weight float64) factor {
	if fund == nil || fund.ROE == nil {
		return neutralFactor("ROE", weight)
	}
	roe := *fund.ROE

	f := neutralFactor("ROE", weight)
	switch {
	case roe >= 20:
		f.score = 90
		f.reason = fmt.Sprintf("ROE=%.1f%% (highly efficient)", roe)
	case roe >= 10:
		f.score = 70
		f.reason = fmt.Sprintf("ROE=%.1f%% (efficient)", roe)
	case roe >= 5:
		f.score = 50
	case roe > 0:
		f.score = 30
	default:
		f.score = 15
		f.reason = fmt.Sprintf("ROE=%.1f%% (loss-making)", roe)
	}
	return f
}

// weightedMean aggregates a factor group, normalizing by the summed weights.
func weightedMean(factors []factor) float64 {
	var sum, weightSum float64
	for _, f := range factors {
		sum += f.score * f.weight
		weightSum += f.weight
	}
	if weightSum == 0 {
		return neutralScore
	}
	return sum / weightSum
}

// Calculate evaluates all nine factors and aggregates them into technical,
// fundamental and total scores, each bounded to [0,100]. Reasons are
// collected only from factors that produced an explanation, in fixed
// evaluation order.
func Calculate(ind *models.TechnicalIndicator, fund *models.FundamentalSnapshot, closePrice float64, currentVolume int64, w Weights) Result {
	technical := []factor{
		scoreSMACross(ind, w.SMACross),
		scoreRSI(ind, w.RSI),
		scoreMACD(ind, w.MACD),
		scoreBollinger(ind, closePrice, w.Bollinger),
		scoreVolume(ind, currentVolume, w.Volume),
	}
	fundamental := []factor{
		scorePER(fund, w.PER),
		scorePBR(fund, w.PBR),
		scoreDividendYield(fund, w.DividendYield),
		scoreROE(fund, w.ROE),
	}

	var reasons []models.SignalReason
	for _, f := range append(append([]factor{}, technical...), fundamental...) {
		if f.reason != "" {
			reasons = append(reasons, models.SignalReason{Category: f.category, Reason: f.reason})
		}
	}

	technicalScore := weightedMean(technical)
	fundamentalScore := weightedMean(fundamental)

	techWeight := w.TechnicalWeight()
	fundWeight := w.FundamentalWeight()
	totalScore := neutralScore
	if techWeight+fundWeight > 0 {
		totalScore = (technicalScore*techWeight + fundamentalScore*fundWeight) / (techWeight + fundWeight)
	}

	return Result{
		TotalScore:       helpers.RoundTo(totalScore, 2),
		TechnicalScore:   helpers.RoundTo(technicalScore, 2),
		FundamentalScore: helpers.RoundTo(fundamentalScore, 2),
		Reasons:          reasons,
	}
}
