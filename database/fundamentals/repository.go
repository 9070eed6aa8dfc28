package fundamentals

import (
	"time"

	"kabu-analyzer/database"
	models "kabu-analyzer/database/models_pkg"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository handles database operations for fundamental snapshots.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new fundamentals repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Upsert inserts or updates a fundamental snapshot keyed by (stock_id, date).
func (r *Repository) Upsert(snapshot *models.FundamentalSnapshot) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "stock_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"per", "pbr", "dividend_yield", "roe", "eps", "bps",
			"market_cap", "revenue", "operating_income",
		}),
	}).Create(snapshot).Error
	if err != nil {
		return database.WrapDBError("fundamentals.Upsert", err)
	}
	return nil
}

// LatestAtOrBefore returns the most recent snapshot dated at or before the
// given date, or nil when none exists. The signal detector tolerates stale
// fundamentals, so "most recent wins" is the intended contract.
func (r *Repository) LatestAtOrBefore(stockID int64, date time.Time) (*models.FundamentalSnapshot, error) {
	var snapshot models.FundamentalSnapshot
	err := r.db.Where("stock_id = ? AND date <= ?", stockID, date).
		Order("date DESC").First(&snapshot).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, database.WrapDBError("fundamentals.LatestAtOrBefore", err)
	}
	return &snapshot, nil
}
