package store

import (
	"context"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ethpandaops/storebenchoor/pkg/config"
)

// Store provides persistence for benchmark runs and their results.
type Store interface {
	Start(ctx context.Context) error
	Stop() error

	CreateRun(ctx context.Context, run *Run) error
	FinishRun(ctx context.Context, id uint, status string) error
	AddResults(ctx context.Context, runID uint, results []*Result) error

	GetRun(ctx context.Context, id uint) (*Run, error)
	GetLatestRun(ctx context.Context) (*Run, error)
	GetRuns(ctx context.Context, limit int) ([]Run, error)
	GetRunResults(ctx context.Context, runID uint) ([]Result, error)
	GetProviderResults(ctx context.Context, provider string, limit int) ([]Result, error)
	GetProviderStats(ctx context.Context) ([]ProviderStats, error)

	DeleteRun(ctx context.Context, id uint) error
}

// Compile-time interface check.
var _ Store = (*store)(nil)

type store struct {
	log logrus.FieldLogger
	cfg *config.DatabaseConfig
	db  *gorm.DB
}

// NewStore creates a Store backed by the configured database driver.
func NewStore(log logrus.FieldLogger, cfg *config.DatabaseConfig) Store {
	return &store{
		log: log.WithField("component", "store"),
		cfg: cfg,
	}
}

// Start opens the database connection and runs migrations.
func (s *store) Start(ctx context.Context) error {
	var dialector gorm.Dialector

	gormCfg := &gorm.Config{
		Logger: logger.Discard,
	}

	switch s.cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(s.cfg.SQLite.Path)
	case "postgres":
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			s.cfg.Postgres.Host,
			s.cfg.Postgres.Port,
			s.cfg.Postgres.User,
			s.cfg.Postgres.Password,
			s.cfg.Postgres.Database,
			s.cfg.Postgres.SSLMode,
		)
		dialector = postgres.Open(dsn)
	default:
		return fmt.Errorf("unsupported database driver: %s", s.cfg.Driver)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	s.db = db

	if err := s.db.WithContext(ctx).AutoMigrate(
		&Run{},
		&Result{},
	); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	s.log.WithField("driver", s.cfg.Driver).Info("Database connected")

	return nil
}

// Stop closes the underlying database connection.
func (s *store) Stop() error {
	if s.db == nil {
		return nil
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("getting underlying db: %w", err)
	}

	return sqlDB.Close()
}

// CreateRun inserts a new run record and populates its ID.
func (s *store) CreateRun(ctx context.Context, run *Run) error {
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("creating run: %w", err)
	}

	return nil
}

// FinishRun updates the status of a run.
func (s *store) FinishRun(ctx context.Context, id uint, status string) error {
	if err := s.db.WithContext(ctx).
		Model(&Run{}).
		Where("id = ?", id).
		Update("status", status).Error; err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}

	return nil
}

// AddResults persists a batch of result cells for a run in one transaction.
func (s *store) AddResults(ctx context.Context, runID uint, results []*Result) error {
	if len(results) == 0 {
		return nil
	}

	for _, r := range results {
		r.RunID = runID
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.CreateInBatches(results, 100).Error; err != nil {
			return fmt.Errorf("inserting results: %w", err)
		}

		return nil
	})
}

// GetRun returns a run by ID.
func (s *store) GetRun(ctx context.Context, id uint) (*Run, error) {
	var run Run
	if err := s.db.WithContext(ctx).First(&run, id).Error; err != nil {
		return nil, fmt.Errorf("getting run %d: %w", id, err)
	}

	return &run, nil
}

// GetLatestRun returns the most recent run.
func (s *store) GetLatestRun(ctx context.Context) (*Run, error) {
	var run Run
	if err := s.db.WithContext(ctx).
		Order("timestamp DESC").
		First(&run).Error; err != nil {
		return nil, fmt.Errorf("getting latest run: %w", err)
	}

	return &run, nil
}

// GetRuns returns the most recent runs, newest first. A limit of zero
// returns all runs.
func (s *store) GetRuns(ctx context.Context, limit int) ([]Run, error) {
	q := s.db.WithContext(ctx).Order("timestamp DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var runs []Run
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}

	return runs, nil
}

// GetRunResults returns all result cells for a run in insertion order.
func (s *store) GetRunResults(ctx context.Context, runID uint) ([]Result, error) {
	var results []Result
	if err := s.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("listing run results: %w", err)
	}

	return results, nil
}

// GetProviderResults returns a provider's most recent result cells. A limit
// of zero returns all of them.
func (s *store) GetProviderResults(
	ctx context.Context, provider string, limit int,
) ([]Result, error) {
	q := s.db.WithContext(ctx).
		Where("provider = ?", provider).
		Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var results []Result
	if err := q.Find(&results).Error; err != nil {
		return nil, fmt.Errorf("listing provider results: %w", err)
	}

	return results, nil
}

// GetProviderStats aggregates each provider's history across all runs.
// Failed cells are excluded from the averages but counted as failures.
func (s *store) GetProviderStats(ctx context.Context) ([]ProviderStats, error) {
	var stats []ProviderStats
	if err := s.db.WithContext(ctx).
		Model(&Result{}).
		Select(
			"provider, " +
				"count(*) as cells, " +
				"avg(case when failed then null else throughput_mbps end) as avg_throughput_mbps, " +
				"avg(case when failed then null else avg_latency_ms end) as avg_latency_ms, " +
				"sum(failures) as total_failures",
		).
		Group("provider").
		Order("provider ASC").
		Scan(&stats).Error; err != nil {
		return nil, fmt.Errorf("aggregating provider stats: %w", err)
	}

	return stats, nil
}

// DeleteRun removes a run and all of its result cells.
func (s *store) DeleteRun(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ?", id).Delete(&Result{}).Error; err != nil {
			return fmt.Errorf("deleting run results: %w", err)
		}

		if err := tx.Delete(&Run{}, id).Error; err != nil {
			return fmt.Errorf("deleting run: %w", err)
		}

		return nil
	})
}
