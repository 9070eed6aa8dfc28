package app

import (
	"context"
	"sort"
	"sync"
	"time"

	models "kabu-analyzer/database/models_pkg"
	"kabu-analyzer/marketdata"
)

// In-memory stand-ins for the database repositories and the market data
// gateway. All are safe for the pipeline's concurrent fetch stages.

func dateKey(t time.Time) string { return t.UTC().Format("2006-01-02") }

type fakeStockRepo struct {
	mu        sync.Mutex
	stocks    []models.Stock
	listErr   error
	upsertErr error
}

func (r *fakeStockRepo) ActiveStocks() ([]models.Stock, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.stocks, nil
}

func (r *fakeStockRepo) Upsert(stock *models.Stock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.upsertErr != nil {
		return r.upsertErr
	}
	for i := range r.stocks {
		if r.stocks[i].Code == stock.Code {
			stock.ID = r.stocks[i].ID
			r.stocks[i] = *stock
			return nil
		}
	}
	stock.ID = int64(len(r.stocks) + 1)
	r.stocks = append(r.stocks, *stock)
	return nil
}

func (r *fakeStockRepo) ByID(id int64) (*models.Stock, error) {
	for _, s := range r.stocks {
		if s.ID == id {
			stock := s
			return &stock, nil
		}
	}
	return nil, nil
}

type fakePriceRepo struct {
	mu      sync.Mutex
	bars    map[int64]map[string]models.StockPrice
	barsErr map[int64]error
}

func newFakePriceRepo() *fakePriceRepo {
	return &fakePriceRepo{bars: make(map[int64]map[string]models.StockPrice)}
}

func (r *fakePriceRepo) UpsertBars(bars []models.StockPrice) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range bars {
		if r.bars[b.StockID] == nil {
			r.bars[b.StockID] = make(map[string]models.StockPrice)
		}
		r.bars[b.StockID][dateKey(b.Date)] = b
	}
	return len(bars), nil
}

func (r *fakePriceRepo) sortedBars(stockID int64) []models.StockPrice {
	out := make([]models.StockPrice, 0, len(r.bars[stockID]))
	for _, b := range r.bars[stockID] {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func (r *fakePriceRepo) BarsAscending(stockID int64) ([]models.StockPrice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.barsErr[stockID]; err != nil {
		return nil, err
	}
	return r.sortedBars(stockID), nil
}

func (r *fakePriceRepo) LatestAtOrBefore(stockID int64, date time.Time) (*models.StockPrice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bars := r.sortedBars(stockID)
	for i := len(bars) - 1; i >= 0; i-- {
		if !bars[i].Date.After(date) {
			return &bars[i], nil
		}
	}
	return nil, nil
}

func (r *fakePriceRepo) Latest(stockID int64) (*models.StockPrice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bars := r.sortedBars(stockID)
	if len(bars) == 0 {
		return nil, nil
	}
	return &bars[len(bars)-1], nil
}

func (r *fakePriceRepo) CountBars() (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, m := range r.bars {
		n += int64(len(m))
	}
	return n, nil
}

type fakeFundamentalRepo struct {
	mu        sync.Mutex
	snapshots map[int64]map[string]models.FundamentalSnapshot
}

func newFakeFundamentalRepo() *fakeFundamentalRepo {
	return &fakeFundamentalRepo{snapshots: make(map[int64]map[string]models.FundamentalSnapshot)}
}

func (r *fakeFundamentalRepo) Upsert(snapshot *models.FundamentalSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.snapshots[snapshot.StockID] == nil {
		r.snapshots[snapshot.StockID] = make(map[string]models.FundamentalSnapshot)
	}
	r.snapshots[snapshot.StockID][dateKey(snapshot.Date)] = *snapshot
	return nil
}

func (r *fakeFundamentalRepo) LatestAtOrBefore(stockID int64, date time.Time) (*models.FundamentalSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *models.FundamentalSnapshot
	for _, s := range r.snapshots[stockID] {
		s := s
		if s.Date.After(date) {
			continue
		}
		if best == nil || s.Date.After(best.Date) {
			best = &s
		}
	}
	return best, nil
}

type fakeIndicatorRepo struct {
	mu        sync.Mutex
	snapshots map[int64]map[string]models.TechnicalIndicator
	lookupErr map[int64]error
}

func newFakeIndicatorRepo() *fakeIndicatorRepo {
	return &fakeIndicatorRepo{snapshots: make(map[int64]map[string]models.TechnicalIndicator)}
}

func (r *fakeIndicatorRepo) UpsertBatch(snapshots []models.TechnicalIndicator) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range snapshots {
		if r.snapshots[s.StockID] == nil {
			r.snapshots[s.StockID] = make(map[string]models.TechnicalIndicator)
		}
		r.snapshots[s.StockID][dateKey(s.Date)] = s
	}
	return len(snapshots), nil
}

func (r *fakeIndicatorRepo) rowCount(stockID int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snapshots[stockID])
}

func (r *fakeIndicatorRepo) latestBefore(stockID int64, date time.Time) *models.TechnicalIndicator {
	var best *models.TechnicalIndicator
	for _, s := range r.snapshots[stockID] {
		s := s
		if s.Date.After(date) {
			continue
		}
		if best == nil || s.Date.After(best.Date) {
			best = &s
		}
	}
	return best
}

func (r *fakeIndicatorRepo) LatestAtOrBefore(stockID int64, date time.Time) (*models.TechnicalIndicator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.lookupErr[stockID]; err != nil {
		return nil, err
	}
	return r.latestBefore(stockID, date), nil
}

func (r *fakeIndicatorRepo) Latest(stockID int64) (*models.TechnicalIndicator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.latestBefore(stockID, time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)), nil
}

type fakeSignalRepo struct {
	mu      sync.Mutex
	rows    map[int64]map[string]models.Signal
	nextID  int64
	saveErr error
}

func newFakeSignalRepo() *fakeSignalRepo {
	return &fakeSignalRepo{rows: make(map[int64]map[string]models.Signal)}
}

func (r *fakeSignalRepo) SaveBatch(batch []models.Signal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	for _, sig := range batch {
		if r.rows[sig.StockID] == nil {
			r.rows[sig.StockID] = make(map[string]models.Signal)
		}
		key := dateKey(sig.Date)
		if existing, ok := r.rows[sig.StockID][key]; ok {
			sig.ID = existing.ID
		} else {
			r.nextID++
			sig.ID = r.nextID
		}
		r.rows[sig.StockID][key] = sig
	}
	return nil
}

func (r *fakeSignalRepo) BuySignalsOn(date time.Time) ([]models.Signal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Signal
	for _, byDate := range r.rows {
		if sig, ok := byDate[dateKey(date)]; ok && sig.SignalType == "buy" {
			out = append(out, sig)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].StockID < out[j].StockID
	})
	return out, nil
}

func (r *fakeSignalRepo) forStockOn(stockID int64, date time.Time) *models.Signal {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sig, ok := r.rows[stockID][dateKey(date)]; ok {
		return &sig
	}
	return nil
}

func (r *fakeSignalRepo) totalRows() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, byDate := range r.rows {
		n += len(byDate)
	}
	return n
}

type fakePlanRepo struct {
	mu    sync.Mutex
	plans []models.TradePlan
}

func (r *fakePlanRepo) Create(plan *models.TradePlan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	plan.ID = int64(len(r.plans) + 1)
	r.plans = append(r.plans, *plan)
	return nil
}

func (r *fakePlanRepo) all() []models.TradePlan {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.TradePlan(nil), r.plans...)
}

// fakeSource serves preset bars and ratio maps per symbol. The optional gate
// makes DailyBars block so tests can observe an in-flight run.
type fakeSource struct {
	mu           sync.Mutex
	bars         map[string][]marketdata.Bar
	barsErr      map[string]error
	fundamentals map[string]map[string]float64
	fundErr      map[string]error
	fundCalls    map[string]int

	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		bars:         make(map[string][]marketdata.Bar),
		barsErr:      make(map[string]error),
		fundamentals: make(map[string]map[string]float64),
		fundErr:      make(map[string]error),
		fundCalls:    make(map[string]int),
	}
}

func (s *fakeSource) DailyBars(_ context.Context, symbol string, _, _ time.Time) ([]marketdata.Bar, error) {
	if s.started != nil {
		s.once.Do(func() { close(s.started) })
		<-s.release
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.barsErr[symbol]; err != nil {
		return nil, err
	}
	return s.bars[symbol], nil
}

func (s *fakeSource) Fundamentals(_ context.Context, symbol string) (map[string]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fundCalls[symbol]++
	if err := s.fundErr[symbol]; err != nil {
		return nil, err
	}
	return s.fundamentals[symbol], nil
}
