package indicators

import (
	"time"

	"kabu-analyzer/database"
	models "kabu-analyzer/database/models_pkg"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository handles database operations for technical indicator snapshots.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new indicators repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// indicator value columns updated on conflict; the (stock_id, date) key
// itself is never rewritten.
var valueColumns = []string{
	"sma_5", "sma_25", "sma_75", "sma_200",
	"ema_12", "ema_26", "rsi_14",
	"macd_line", "macd_signal", "macd_histogram",
	"bb_upper_2", "bb_middle", "bb_lower_2",
	"volume_sma_25",
}

// UpsertBatch inserts or updates indicator snapshots keyed by
// (stock_id, date). Recomputation over a grown price history rewrites the
// whole series with identical values for unchanged dates.
func (r *Repository) UpsertBatch(snapshots []models.TechnicalIndicator) (int, error) {
	if len(snapshots) == 0 {
		return 0, nil
	}
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stock_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns(valueColumns),
	}).CreateInBatches(&snapshots, 500).Error
	if err != nil {
		return 0, database.WrapDBError("indicators.UpsertBatch", err)
	}
	return len(snapshots), nil
}

// LatestAtOrBefore returns the most recent snapshot dated at or before the
// given date, or nil when the stock has no computed indicators yet.
func (r *Repository) LatestAtOrBefore(stockID int64, date time.Time) (*models.TechnicalIndicator, error) {
	var snapshot models.TechnicalIndicator
	err := r.db.Where("stock_id = ? AND date <= ?", stockID, date).
		Order("date DESC").First(&snapshot).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, database.WrapDBError("indicators.LatestAtOrBefore", err)
	}
	return &snapshot, nil
}

// Latest returns the most recent snapshot for a stock, or nil when none exist.
func (r *Repository) Latest(stockID int64) (*models.TechnicalIndicator, error) {
	var snapshot models.TechnicalIndicator
	err := r.db.Where("stock_id = ?", stockID).Order("date DESC").First(&snapshot).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, database.WrapDBError("indicators.Latest", err)
	}
	return &snapshot, nil
}
