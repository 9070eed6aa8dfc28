package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kabu-analyzer/cache"
	"kabu-analyzer/config"
	"kabu-analyzer/database"
	dbfundamentals "kabu-analyzer/database/fundamentals"
	dbindicators "kabu-analyzer/database/indicators"
	dbplans "kabu-analyzer/database/plans"
	dbprices "kabu-analyzer/database/prices"
	dbsignals "kabu-analyzer/database/signals"
	dbstocks "kabu-analyzer/database/stocks"
	"kabu-analyzer/marketdata"

	"github.com/robfig/cron/v3"
)

// App represents the main application
type App struct {
	config   *config.Config
	db       *database.Database
	redis    *cache.RedisClient
	pipeline *Pipeline
}

// New creates a new application instance
func New(cfg *config.Config) *App {
	return &App{config: cfg}
}

// init connects storage and wires the pipeline components.
func (a *App) init() error {
	log.Println("🗄️  Connecting to database...")
	db, err := database.Connect(
		a.config.DatabaseHost,
		a.config.DatabasePort,
		a.config.DatabaseName,
		a.config.DatabaseUser,
		a.config.DatabasePassword,
	)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	a.db = db

	if err := a.db.InitSchema(); err != nil {
		return fmt.Errorf("schema initialization failed: %w", err)
	}

	log.Println("🧠 Connecting to Redis...")
	a.redis = cache.NewRedisClient(
		a.config.RedisHost,
		a.config.RedisPort,
		a.config.RedisPassword,
	)
	if a.redis == nil {
		log.Println("⚠️  Redis unavailable. Fundamental caching and summary publishing disabled.")
	}

	repos := Repositories{
		Stocks:       dbstocks.NewRepository(db.DB()),
		Prices:       dbprices.NewRepository(db.DB()),
		Fundamentals: dbfundamentals.NewRepository(db.DB()),
		Indicators:   dbindicators.NewRepository(db.DB()),
		Signals:      dbsignals.NewRepository(db.DB()),
		Plans:        dbplans.NewRepository(db.DB()),
	}

	if a.config.UniverseFile != "" {
		seed, err := LoadUniverseFile(a.config.UniverseFile)
		if err != nil {
			return fmt.Errorf("universe seeding failed: %w", err)
		}
		if err := SeedUniverse(repos.Stocks, seed); err != nil {
			return fmt.Errorf("universe seeding failed: %w", err)
		}
	}

	source := marketdata.NewClient(a.config.MarketData.BaseURL, a.config.MarketData.Timeout)

	detector := NewSignalDetector(repos, a.config.Analysis.Weights, a.config.Analysis.Thresholds)
	planGen := NewPlanGenerator(repos, a.config.Analysis.PlanRates, a.config.Analysis.TotalCapital)

	a.pipeline = NewPipeline(
		a.config.Pipeline,
		repos,
		source,
		detector,
		planGen,
		a.redis,
		a.config.MarketData.FundamentalCacheTTL,
	)
	return nil
}

// Pipeline exposes the orchestrator (for status queries by embedders).
func (a *App) Pipeline() *Pipeline {
	return a.pipeline
}

// RunOnce executes a single pipeline run for today and exits.
func (a *App) RunOnce(ctx context.Context) error {
	if err := a.init(); err != nil {
		return err
	}
	defer a.shutdown()

	_, err := a.pipeline.Run(ctx, time.Time{})
	return err
}

// Start runs the app as a daemon: the cron trigger fires pipeline runs until
// the process receives SIGINT/SIGTERM.
func (a *App) Start() error {
	if err := a.init(); err != nil {
		return err
	}
	defer a.shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.config.Pipeline.RunOnStart {
		go a.triggerRun(ctx)
	}

	var scheduler *cron.Cron
	if a.config.Pipeline.CronEnabled {
		scheduler = cron.New()
		if _, err := scheduler.AddFunc(a.config.Pipeline.CronSpec, func() {
			a.triggerRun(ctx)
		}); err != nil {
			return fmt.Errorf("invalid cron spec %q: %w", a.config.Pipeline.CronSpec, err)
		}
		scheduler.Start()
		log.Printf("⏰ Pipeline scheduled: %s", a.config.Pipeline.CronSpec)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 Shutting down...")

	if scheduler != nil {
		<-scheduler.Stop().Done()
	}
	return nil
}

// triggerRun starts a pipeline run, logging a skip when one is in flight.
func (a *App) triggerRun(ctx context.Context) {
	if _, err := a.pipeline.Run(ctx, time.Time{}); err != nil {
		if err == ErrAlreadyRunning {
			log.Println("ℹ️  Pipeline trigger skipped: already running")
			return
		}
		log.Printf("❌ Pipeline run failed: %v", err)
	}
}

func (a *App) shutdown() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}
