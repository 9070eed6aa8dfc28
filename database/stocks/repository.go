package stocks

import (
	"kabu-analyzer/database"
	models "kabu-analyzer/database/models_pkg"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository handles database operations for the stock master.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new stocks repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ActiveStocks returns the analysis universe: all stocks flagged active,
// ordered by code for stable iteration.
func (r *Repository) ActiveStocks() ([]models.Stock, error) {
	var stocks []models.Stock
	if err := r.db.Where("is_active = ?", true).Order("code ASC").Find(&stocks).Error; err != nil {
		return nil, database.WrapDBError("stocks.ActiveStocks", err)
	}
	return stocks, nil
}

// ByID retrieves a stock by primary key. Returns nil when absent.
func (r *Repository) ByID(id int64) (*models.Stock, error) {
	var stock models.Stock
	err := r.db.First(&stock, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, database.WrapDBError("stocks.ByID", err)
	}
	return &stock, nil
}

// Upsert inserts or updates a stock master row keyed by code. Universe
// seeding replays the whole seed list on every start, so the conflict
// target is the ticker code rather than the surrogate id.
func (r *Repository) Upsert(stock *models.Stock) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "sector", "market", "is_active", "updated_at"}),
	}).Create(stock).Error
	if err != nil {
		return database.WrapDBError("stocks.Upsert", err)
	}
	return nil
}
