// Package app assembles the configured tables, preset store and export
// service shared by the server and the CLI.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	sq "github.com/Masterminds/squirrel"

	"github.com/rpattn/tablekit/internal/config"
	"github.com/rpattn/tablekit/internal/db"
	"github.com/rpattn/tablekit/internal/export"
	"github.com/rpattn/tablekit/internal/presets"
	"github.com/rpattn/tablekit/internal/source/sqlsource"
	"github.com/rpattn/tablekit/internal/table"
	"github.com/rpattn/tablekit/internal/tabledef"
)

type App struct {
	Config  config.Config
	Tables  *table.Registry
	Presets *presets.Service
	Exports *export.Service

	logger *log.Logger
	sqlDB  *sql.DB
	conn   *db.Connection
}

type Option func(*App)

func WithLogger(logger *log.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

// New opens the database, loads every table definition in the configured
// directory and registers an engine per table.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	a := &App{Config: cfg, Tables: table.NewRegistry(), logger: log.Default()}
	for _, opt := range opts {
		opt(a)
	}

	sqlDB, conn, err := db.OpenSQL(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	a.sqlDB, a.conn = sqlDB, conn

	store, err := a.presetStore()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Presets = presets.NewService(store, presets.WithLogger(a.logger))
	a.Exports = export.NewService(
		export.WithDirectory(cfg.Export.Directory),
		export.WithPageSize(cfg.Export.PageSize),
		export.WithLogger(a.logger),
	)

	if err := a.loadTables(); err != nil {
		a.Close()
		return nil, err
	}
	a.logger.Printf("[app] registered %d tables from %s", len(a.Tables.Names()), cfg.Tables.Dir)
	return a, nil
}

func (a *App) presetStore() (presets.Store, error) {
	switch a.Config.Presets.Store {
	case config.PresetStorePostgres:
		if a.conn == nil {
			return nil, fmt.Errorf("preset store %q requires the %s driver", config.PresetStorePostgres, db.DriverPostgres)
		}
		return presets.NewPostgresStore(a.conn.Pool), nil
	case config.PresetStoreFile:
		return presets.NewFileStore(a.Config.Presets.Path), nil
	case config.PresetStoreMemory:
		return presets.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown preset store %q", a.Config.Presets.Store)
	}
}

func (a *App) loadTables() error {
	docs, err := tabledef.LoadDir(a.Config.Tables.Dir)
	if err != nil {
		return err
	}
	placeholder := sq.Dollar
	if a.Config.Database.IsSQLite() {
		placeholder = sq.Question
	}
	for _, doc := range docs {
		doc = doc.WithDefaults(a.Config.Tables.PerPage, a.Config.Tables.PageOptions)
		schema, err := doc.Schema()
		if err != nil {
			return err
		}
		src, err := sqlsource.New(a.sqlDB, schema, sqlsource.WithPlaceholder(placeholder), sqlsource.WithLogger(a.logger))
		if err != nil {
			return fmt.Errorf("table %s: %w", doc.Name, err)
		}
		def, err := doc.Definition(src)
		if err != nil {
			return err
		}
		engine := table.New(def, table.WithLogger(a.logger), table.WithPresets(a.Presets))
		if err := a.Tables.Register(engine); err != nil {
			return err
		}
	}
	return nil
}

// Engine returns the engine for name or an error naming the known tables.
func (a *App) Engine(name string) (*table.Engine, error) {
	engine, ok := a.Tables.Engine(name)
	if !ok {
		return nil, fmt.Errorf("unknown table %q (known: %v)", name, a.Tables.Names())
	}
	return engine, nil
}

// Close releases the database handles.
func (a *App) Close() {
	if a.sqlDB != nil {
		if err := a.sqlDB.Close(); err != nil {
			a.logger.Printf("[app] failed to close database: %v", err)
		}
	}
	if a.conn != nil {
		a.conn.Close()
	}
}
