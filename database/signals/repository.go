package signals

import (
	"time"

	"kabu-analyzer/database"
	models "kabu-analyzer/database/models_pkg"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository handles database operations for buy/sell signals.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new signals repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// SaveBatch persists a detection batch in one transaction. Signals are
// upserted on (stock_id, date) so re-running detection for the same target
// date never produces duplicate rows.
func (r *Repository) SaveBatch(batch []models.Signal) error {
	if len(batch) == 0 {
		return nil
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "stock_id"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"signal_type", "strength", "score",
				"technical_score", "fundamental_score", "reasons",
			}),
		}).Create(&batch).Error
		if err != nil {
			return database.WrapDBError("signals.SaveBatch", err)
		}
		return nil
	})
}

// BuySignalsOn returns the buy signals detected for a date, strongest first.
// The pipeline generates system trade plans in this order.
func (r *Repository) BuySignalsOn(date time.Time) ([]models.Signal, error) {
	var sigs []models.Signal
	err := r.db.Where("date = ? AND signal_type = ?", date, "buy").
		Order("score DESC, stock_id ASC").Find(&sigs).Error
	if err != nil {
		return nil, database.WrapDBError("signals.BuySignalsOn", err)
	}
	return sigs, nil
}
