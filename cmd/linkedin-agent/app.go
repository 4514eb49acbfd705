package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hairizuan-noorazman/linkedin-agent/agent"
	"github.com/hairizuan-noorazman/linkedin-agent/configstore"
	"github.com/hairizuan-noorazman/linkedin-agent/database"
	"github.com/hairizuan-noorazman/linkedin-agent/logger"
	"github.com/hairizuan-noorazman/linkedin-agent/optimizer"
	"github.com/hairizuan-noorazman/linkedin-agent/runhistory"
	"github.com/hairizuan-noorazman/linkedin-agent/storage"
	"gorm.io/gorm"
)

// app bundles the components every command needs.
type app struct {
	config    *Config
	logger    logger.Logger
	storage   storage.BlobStorage
	settings  *configstore.Store
	history   runhistory.Store
	optimizer *optimizer.Optimizer

	closers []func() error
}

// newApp loads the configuration and wires storage, the config store and the
// run history. name selects the log file under log.dir.
func newApp(ctx context.Context, name string) (*app, error) {
	cfg, err := LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	a := &app{config: cfg}

	// Initialize logger
	if cfg.Log.Dir != "" {
		fileLog, err := logger.NewFileLogger(cfg.Log.Level, filepath.Join(cfg.Log.Dir, name+".log"))
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		a.logger = fileLog
		a.closers = append(a.closers, fileLog.Close)
	} else {
		a.logger = logger.NewLogrusLogger(cfg.Log.Level)
	}

	// Initialize blob storage
	a.storage, err = storage.NewBlobStorage(storage.Config{
		Type:            cfg.Storage.Type,
		BaseDir:         cfg.Storage.BaseDir,
		S3Bucket:        cfg.Storage.S3Bucket,
		S3Region:        cfg.Storage.S3Region,
		S3PresignExpiry: cfg.Storage.S3PresignExpiry,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	a.settings = configstore.New(ctx, a.storage, cfg.Paths.Config, a.logger)

	// Initialize run history
	switch cfg.History.Backend {
	case "", "json":
		a.history = runhistory.NewJSONStore(a.storage, cfg.Paths.History, a.logger)
	case database.DriverSQLite, database.DriverMySQL:
		db, err := a.connect(cfg.History.Backend)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.history = runhistory.NewSQLStore(db, a.logger)
	default:
		a.Close()
		return nil, fmt.Errorf("unsupported history backend: %s", cfg.History.Backend)
	}

	a.optimizer = optimizer.New(a.settings, a.history, a.logger)

	a.logger.Debug(ctx, "application initialized", map[string]interface{}{
		"storage_type":    cfg.Storage.Type,
		"history_backend": cfg.History.Backend,
	})
	return a, nil
}

// connect opens the history database and applies pending migrations.
func (a *app) connect(driver string) (*gorm.DB, error) {
	db, err := database.Connect(databaseConfig(a.config, driver))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	a.closers = append(a.closers, sqlDB.Close)

	if err := database.RunMigrations(sqlDB, driver); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// agentConfig returns the run settings passed to the agent runner.
func (a *app) agentConfig() agent.Config {
	return agent.Config{
		TimeLimit:      a.config.Agent.TimeLimit,
		DebugDir:       a.config.Paths.DebugDir,
		DebugKeep:      a.config.Paths.DebugKeep,
		SelfProfileURL: a.config.Agent.SelfProfileURL,
	}
}

// Close releases the database connection and log file, in reverse order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func databaseConfig(cfg *Config, driver string) database.Config {
	return database.Config{
		Driver:       driver,
		Path:         cfg.Database.Path,
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Database,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	}
}
