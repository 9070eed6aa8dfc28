// Package database provides database connection management for the
// kabu-analyzer pipeline.
//
// All time-series entities (prices, fundamentals, indicators, signals) are
// keyed by (stock_id, date) with unique constraints, and every write path
// uses ON CONFLICT upserts so replaying a day's computation is safe.
//
// Data models are defined in the models_pkg package to avoid circular
// import dependencies between the per-entity repositories.
package database

import (
	"fmt"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	models "kabu-analyzer/database/models_pkg"
)

// Database holds the GORM database connection and provides access to the
// underlying DB instance for the per-entity repositories.
type Database struct {
	db *gorm.DB
}

// DB returns the underlying GORM database instance.
func (d *Database) DB() *gorm.DB {
	return d.db
}

// Connect establishes database connection using GORM
func Connect(host string, port int, dbname, user, password string) (*Database, error) {
	dsn := fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=disable",
		host, port, dbname, user, password)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("✅ Database connection established")
	return &Database{db: db}, nil
}

// InitSchema migrates all pipeline tables.
func (d *Database) InitSchema() error {
	if err := d.db.AutoMigrate(
		&models.Stock{},
		&models.StockPrice{},
		&models.FundamentalSnapshot{},
		&models.TechnicalIndicator{},
		&models.Signal{},
		&models.TradePlan{},
	); err != nil {
		return fmt.Errorf("schema migration failed: %w", err)
	}
	return nil
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	log.Println("📡 Closing database connection...")
	return sqlDB.Close()
}
