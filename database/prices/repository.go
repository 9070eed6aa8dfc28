package prices

import (
	"time"

	"kabu-analyzer/database"
	models "kabu-analyzer/database/models_pkg"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository handles database operations for daily price bars.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new prices repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// UpsertBars inserts or updates price bars keyed by (stock_id, date).
// Re-running a refresh for the same window is idempotent; corrected values
// from the source overwrite the stored row.
func (r *Repository) UpsertBars(bars []models.StockPrice) (int, error) {
	if len(bars) == 0 {
		return 0, nil
	}
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stock_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"open", "high", "low", "close", "volume", "adjusted_close"}),
	}).Create(&bars).Error
	if err != nil {
		return 0, database.WrapDBError("prices.UpsertBars", err)
	}
	return len(bars), nil
}

// BarsAscending returns the full bar history for a stock in ascending date
// order, the shape the indicator engine expects.
func (r *Repository) BarsAscending(stockID int64) ([]models.StockPrice, error) {
	var bars []models.StockPrice
	err := r.db.Where("stock_id = ?", stockID).Order("date ASC").Find(&bars).Error
	if err != nil {
		return nil, database.WrapDBError("prices.BarsAscending", err)
	}
	return bars, nil
}

// LatestAtOrBefore returns the most recent bar dated at or before the given
// date, or nil when the stock has no bar in that range.
func (r *Repository) LatestAtOrBefore(stockID int64, date time.Time) (*models.StockPrice, error) {
	var bar models.StockPrice
	err := r.db.Where("stock_id = ? AND date <= ?", stockID, date).
		Order("date DESC").First(&bar).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, database.WrapDBError("prices.LatestAtOrBefore", err)
	}
	return &bar, nil
}

// Latest returns the most recent bar for a stock, or nil when none exist.
func (r *Repository) Latest(stockID int64) (*models.StockPrice, error) {
	var bar models.StockPrice
	err := r.db.Where("stock_id = ?", stockID).Order("date DESC").First(&bar).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, database.WrapDBError("prices.Latest", err)
	}
	return &bar, nil
}

// CountBars returns the total number of stored bars across all stocks.
// The pipeline uses this to decide whether a historical backfill is needed.
func (r *Repository) CountBars() (int64, error) {
	var count int64
	if err := r.db.Model(&models.StockPrice{}).Count(&count).Error; err != nil {
		return 0, database.WrapDBError("prices.CountBars", err)
	}
	return count, nil
}
