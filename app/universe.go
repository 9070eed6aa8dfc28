package app

import (
	"fmt"
	"log"
	"os"

	models "kabu-analyzer/database/models_pkg"

	"gopkg.in/yaml.v3"
)

// universeEntry is one stock master row in the seed file.
type universeEntry struct {
	Code   string `yaml:"code"`
	Name   string `yaml:"name"`
	Sector string `yaml:"sector"`
	Market string `yaml:"market"`
}

type universeFile struct {
	Stocks []universeEntry `yaml:"stocks"`
}

// LoadUniverseFile parses the YAML stock master seed list. Every entry needs
// a ticker code; sector and market are optional.
func LoadUniverseFile(path string) ([]models.Stock, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read universe file %s: %w", path, err)
	}

	var file universeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse universe file %s: %w", path, err)
	}

	stocks := make([]models.Stock, 0, len(file.Stocks))
	for i, entry := range file.Stocks {
		if entry.Code == "" {
			return nil, fmt.Errorf("universe file %s: entry %d has no code", path, i)
		}
		stock := models.Stock{
			Code:     entry.Code,
			Name:     entry.Name,
			IsActive: true,
		}
		if entry.Sector != "" {
			sector := entry.Sector
			stock.Sector = &sector
		}
		if entry.Market != "" {
			market := entry.Market
			stock.Market = &market
		}
		stocks = append(stocks, stock)
	}
	return stocks, nil
}

// SeedUniverse upserts the seed list into the stock master. Replayed on
// every start: existing rows are refreshed by code, new codes are added.
func SeedUniverse(repo StockRepository, stocks []models.Stock) error {
	for i := range stocks {
		if err := repo.Upsert(&stocks[i]); err != nil {
			return fmt.Errorf("failed to seed stock %s: %w", stocks[i].Code, err)
		}
	}
	log.Printf("🌱 Stock universe seeded: %d stocks", len(stocks))
	return nil
}
