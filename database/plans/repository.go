package plans

import (
	"time"

	"kabu-analyzer/database"
	models "kabu-analyzer/database/models_pkg"

	"gorm.io/gorm"
)

// Repository handles database operations for trade plans.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new trade plans repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists a new trade plan. Plans are insert-only from the
// pipeline's side; status transitions happen elsewhere.
func (r *Repository) Create(plan *models.TradePlan) error {
	if err := r.db.Create(plan).Error; err != nil {
		return database.WrapDBError("plans.Create", err)
	}
	return nil
}

// ForStock returns plans for a stock, newest first.
func (r *Repository) ForStock(stockID int64, limit int) ([]models.TradePlan, error) {
	var result []models.TradePlan
	query := r.db.Where("stock_id = ?", stockID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&result).Error; err != nil {
		return nil, database.WrapDBError("plans.ForStock", err)
	}
	return result, nil
}

// ActiveSince returns active plans created at or after the given time.
func (r *Repository) ActiveSince(t time.Time) ([]models.TradePlan, error) {
	var result []models.TradePlan
	err := r.db.Where("status = ? AND created_at >= ?", models.PlanStatusActive, t).
		Order("created_at DESC").Find(&result).Error
	if err != nil {
		return nil, database.WrapDBError("plans.ActiveSince", err)
	}
	return result, nil
}

// UpdateStatus transitions a plan's lifecycle status. Updating a plan that
// does not exist is reported as a not-found error, not silently ignored.
func (r *Repository) UpdateStatus(planID int64, status string) error {
	result := r.db.Model(&models.TradePlan{}).Where("id = ?", planID).
		Update("status", status)
	if result.Error != nil {
		return database.WrapDBError("plans.UpdateStatus", result.Error)
	}
	if result.RowsAffected == 0 {
		return database.NewNotFoundError("trade plan", planID)
	}
	return nil
}
