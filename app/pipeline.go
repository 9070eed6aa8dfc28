package app

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"kabu-analyzer/cache"
	"kabu-analyzer/config"
	models "kabu-analyzer/database/models_pkg"
	"kabu-analyzer/helpers"
	"kabu-analyzer/technical"

	"golang.org/x/sync/errgroup"
)

// redis key the current run summary is published under for progress polling
const runSummaryKey = "pipeline:current_run"

// Pipeline sequences the analysis stages across the active universe:
// price refresh, fundamental refresh, indicator computation, signal
// detection, trade-plan generation. Stages commit independently in that
// fixed order; a failure inside one symbol never aborts its stage, and only
// an error escaping a whole stage aborts the run.
type Pipeline struct {
	cfg      config.PipelineConfig
	repos    Repositories
	source   MarketDataSource
	detector *SignalDetector
	planGen  *PlanGenerator
	redis    *cache.RedisClient
	cacheTTL time.Duration

	tracker runTracker
}

// NewPipeline creates a new pipeline orchestrator. redis may be nil; the
// run summary is then only available in-process.
func NewPipeline(
	cfg config.PipelineConfig,
	repos Repositories,
	source MarketDataSource,
	detector *SignalDetector,
	planGen *PlanGenerator,
	redis *cache.RedisClient,
	fundamentalCacheTTL time.Duration,
) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		repos:    repos,
		source:   source,
		detector: detector,
		planGen:  planGen,
		redis:    redis,
		cacheTTL: fundamentalCacheTTL,
	}
}

// Status returns the current run summary, or nil when no run has started.
// Safe to call concurrently with a running pipeline.
func (p *Pipeline) Status() *RunSummary {
	return p.tracker.Summary()
}

// Run executes the full pipeline for the target date (today when zero).
// Returns ErrAlreadyRunning when a run is already in flight.
func (p *Pipeline) Run(ctx context.Context, targetDate time.Time) (*RunSummary, error) {
	if err := p.tracker.begin(); err != nil {
		return nil, err
	}

	if targetDate.IsZero() {
		targetDate = time.Now().UTC()
	}
	targetDate = normalizeDate(targetDate)

	status := RunStatusCompleted
	defer func() {
		p.tracker.finish(status)
		p.publishSummary(ctx)
	}()

	log.Printf("🚀 Pipeline run started (target date: %s)", targetDate.Format("2006-01-02"))

	needsBackfill, err := p.needsBackfill()
	if err != nil {
		status = RunStatusFailed
		return p.tracker.Summary(), fmt.Errorf("backfill check: %w", err)
	}

	type stage struct {
		name string
		fn   func(context.Context) (StageOutcome, error)
	}
	var stages []stage
	if needsBackfill {
		stages = append(stages, stage{"historical backfill", p.backfillPrices})
	}
	stages = append(stages,
		stage{"price refresh", p.refreshRecentPrices},
		stage{"fundamental refresh", func(ctx context.Context) (StageOutcome, error) {
			return p.refreshFundamentals(ctx, targetDate)
		}},
		stage{"indicator computation", p.computeIndicators},
		stage{"signal detection", func(context.Context) (StageOutcome, error) {
			return p.detector.DetectAll(targetDate)
		}},
		stage{"trade plan generation", func(context.Context) (StageOutcome, error) {
			return p.generateSystemPlans(targetDate)
		}},
	)

	for _, s := range stages {
		outcome, err := p.runStage(ctx, s.name, s.fn)
		p.tracker.appendStage(StageResult{
			Name:         s.name,
			SuccessCount: outcome.SuccessCount,
			ErrorCount:   outcome.ErrorCount,
			Errors:       outcome.Errors,
		})
		p.publishSummary(ctx)
		if err != nil {
			status = RunStatusFailed
			log.Printf("❌ Pipeline failed in stage %q: %v", s.name, err)
			return p.tracker.Summary(), fmt.Errorf("stage %q: %w", s.name, err)
		}
	}

	log.Println("✅ Pipeline run completed")
	return p.tracker.Summary(), nil
}

// runStage executes one stage, converting a panic into a stage-level error
// so the run is marked failed instead of crashing the process.
func (p *Pipeline) runStage(ctx context.Context, name string, fn func(context.Context) (StageOutcome, error)) (outcome StageOutcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			outcome.ErrorCount++
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("panic: %v", r))
		}
	}()

	log.Printf("▶️  Stage: %s", name)
	outcome, err = fn(ctx)
	if err == nil {
		log.Printf("   %s done: success=%d errors=%d", name, outcome.SuccessCount, outcome.ErrorCount)
	}
	return outcome, err
}

// needsBackfill reports whether the total stored bar count is below the
// coverage threshold. Evaluated globally across all symbols; see
// config.PipelineConfig for the trade-off.
func (p *Pipeline) needsBackfill() (bool, error) {
	count, err := p.repos.Prices.CountBars()
	if err != nil {
		return false, err
	}
	threshold := int64(p.cfg.MinBarsPerStock) * int64(p.cfg.ExpectedUniverseSize)
	return count < threshold, nil
}

func (p *Pipeline) backfillPrices(ctx context.Context) (StageOutcome, error) {
	to := time.Now().UTC()
	from := to.AddDate(-p.cfg.BackfillYears, 0, 0)
	return p.refreshPrices(ctx, from, to)
}

func (p *Pipeline) refreshRecentPrices(ctx context.Context) (StageOutcome, error) {
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -p.cfg.PriceWindowDays)
	return p.refreshPrices(ctx, from, to)
}

// refreshPrices fetches and upserts bars for every active stock over the
// window. Symbols fan out to a bounded worker group; per-symbol failures are
// captured into the outcome without stopping the stage.
func (p *Pipeline) refreshPrices(ctx context.Context, from, to time.Time) (StageOutcome, error) {
	var outcome StageOutcome

	stockList, err := p.repos.Stocks.ActiveStocks()
	if err != nil {
		return outcome, fmt.Errorf("failed to load universe: %w", err)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.FetchWorkers)

	for _, stock := range stockList {
		stock := stock
		g.Go(func() error {
			count, err := p.refreshStockPrices(gctx, stock, from, to)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				outcome.ErrorCount++
				outcome.Errors = append(outcome.Errors, fmt.Sprintf("%s: %v", stock.Code, err))
				log.Printf("⚠️  Price refresh error: %s: %v", stock.Code, err)
				return nil
			}
			if count > 0 {
				outcome.SuccessCount++
			}
			return nil
		})
	}
	_ = g.Wait()
	return outcome, nil
}

func (p *Pipeline) refreshStockPrices(ctx context.Context, stock models.Stock, from, to time.Time) (int, error) {
	bars, err := p.source.DailyBars(ctx, stock.Code, from, to)
	if err != nil {
		return 0, err
	}
	if len(bars) == 0 {
		return 0, nil
	}

	rows := make([]models.StockPrice, len(bars))
	for i, b := range bars {
		rows[i] = models.StockPrice{
			StockID:       stock.ID,
			Date:          normalizeDate(b.Date),
			Open:          helpers.RoundTo(b.Open, 2),
			High:          helpers.RoundTo(b.High, 2),
			Low:           helpers.RoundTo(b.Low, 2),
			Close:         helpers.RoundTo(b.Close, 2),
			Volume:        b.Volume,
			AdjustedClose: helpers.RoundTo(b.AdjustedClose, 2),
		}
	}
	return p.repos.Prices.UpsertBars(rows)
}

// refreshFundamentals fetches the ratio map for every active stock and
// upserts a snapshot dated at the target date. Fetches are cached in redis
// between retried runs when a cache is available.
func (p *Pipeline) refreshFundamentals(ctx context.Context, targetDate time.Time) (StageOutcome, error) {
	var outcome StageOutcome

	stockList, err := p.repos.Stocks.ActiveStocks()
	if err != nil {
		return outcome, fmt.Errorf("failed to load universe: %w", err)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.FetchWorkers)

	for _, stock := range stockList {
		stock := stock
		g.Go(func() error {
			stored, err := p.refreshStockFundamentals(gctx, stock, targetDate)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				outcome.ErrorCount++
				outcome.Errors = append(outcome.Errors, fmt.Sprintf("%s: %v", stock.Code, err))
				log.Printf("⚠️  Fundamental refresh error: %s: %v", stock.Code, err)
				return nil
			}
			if stored {
				outcome.SuccessCount++
			}
			return nil
		})
	}
	_ = g.Wait()
	return outcome, nil
}

func (p *Pipeline) refreshStockFundamentals(ctx context.Context, stock models.Stock, targetDate time.Time) (bool, error) {
	cacheKey := fmt.Sprintf("fundamentals:%s", stock.Code)

	var ratios map[string]float64
	if p.redis != nil {
		if err := p.redis.Get(ctx, cacheKey, &ratios); err != nil && !cache.IsCacheMiss(err) {
			ratios = nil
		}
	}

	if ratios == nil {
		fetched, err := p.source.Fundamentals(ctx, stock.Code)
		if err != nil {
			return false, err
		}
		ratios = fetched
		if p.redis != nil && len(ratios) > 0 {
			_ = p.redis.Set(ctx, cacheKey, ratios, p.cacheTTL)
		}
	}

	if len(ratios) == 0 {
		return false, nil
	}

	snapshot := &models.FundamentalSnapshot{
		StockID:         stock.ID,
		Date:            targetDate,
		PER:             ratioField(ratios, "per"),
		PBR:             ratioField(ratios, "pbr"),
		DividendYield:   ratioField(ratios, "dividend_yield"),
		ROE:             ratioField(ratios, "roe"),
		EPS:             ratioField(ratios, "eps"),
		BPS:             ratioField(ratios, "bps"),
		MarketCap:       intField(ratios, "market_cap"),
		Revenue:         intField(ratios, "revenue"),
		OperatingIncome: intField(ratios, "operating_income"),
	}
	if err := p.repos.Fundamentals.Upsert(snapshot); err != nil {
		return false, err
	}
	return true, nil
}

// computeIndicators recomputes the full indicator series for every active
// stock with enough history. Stocks below the minimum are skipped without
// counting as errors.
func (p *Pipeline) computeIndicators(_ context.Context) (StageOutcome, error) {
	var outcome StageOutcome

	stockList, err := p.repos.Stocks.ActiveStocks()
	if err != nil {
		return outcome, fmt.Errorf("failed to load universe: %w", err)
	}

	for _, stock := range stockList {
		count, err := p.computeStockIndicators(stock)
		if err != nil {
			outcome.ErrorCount++
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("%s: %v", stock.Code, err))
			log.Printf("⚠️  Indicator computation error: %s: %v", stock.Code, err)
			continue
		}
		if count > 0 {
			outcome.SuccessCount++
		}
	}
	return outcome, nil
}

func (p *Pipeline) computeStockIndicators(stock models.Stock) (int, error) {
	bars, err := p.repos.Prices.BarsAscending(stock.ID)
	if err != nil {
		return 0, err
	}
	if len(bars) < technical.MinBars {
		log.Printf("ℹ️  Insufficient history for %s (%d bars)", stock.Code, len(bars))
		return 0, nil
	}

	snapshots := technical.Compute(bars)
	return p.repos.Indicators.UpsertBatch(snapshots)
}

// generateSystemPlans creates a system trade plan for every buy signal of
// the target date, strongest score first.
func (p *Pipeline) generateSystemPlans(targetDate time.Time) (StageOutcome, error) {
	var outcome StageOutcome

	buySignals, err := p.repos.Signals.BuySignalsOn(targetDate)
	if err != nil {
		return outcome, fmt.Errorf("failed to load buy signals: %w", err)
	}

	for _, sig := range buySignals {
		stock, err := p.repos.Stocks.ByID(sig.StockID)
		if err != nil {
			outcome.ErrorCount++
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("signal %d: %v", sig.ID, err))
			continue
		}
		if stock == nil {
			continue
		}

		plan, err := p.planGen.GenerateSystemPlan(*stock, sig)
		if err != nil {
			outcome.ErrorCount++
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("%s: %v", stock.Code, err))
			log.Printf("⚠️  Plan generation error: %s: %v", stock.Code, err)
			continue
		}
		if plan != nil {
			outcome.SuccessCount++
		}
	}
	return outcome, nil
}

// publishSummary mirrors the run summary to redis for external pollers.
// Best effort: a cache failure never affects the run.
func (p *Pipeline) publishSummary(ctx context.Context) {
	if p.redis == nil {
		return
	}
	if summary := p.tracker.Summary(); summary != nil {
		_ = p.redis.Set(ctx, runSummaryKey, summary, 24*time.Hour)
	}
}

// normalizeDate truncates a timestamp to its UTC calendar date.
func normalizeDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
