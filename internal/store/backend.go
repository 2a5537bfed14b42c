package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/inkpress/apiserver/config"
	"github.com/inkpress/apiserver/internal/db"
	"gorm.io/gorm"
)

const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Backend owns the connection a set of collections is opened against.
type Backend struct {
	kind   string
	dir    string
	sqlite *gorm.DB
	pg     *sql.DB
}

func NewFileBackend(dir string) *Backend {
	return &Backend{kind: BackendFile, dir: dir}
}

func NewSQLiteBackend(gdb *gorm.DB) (*Backend, error) {
	if err := MigrateSQLite(gdb); err != nil {
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return &Backend{kind: BackendSQLite, sqlite: gdb}, nil
}

// NewPostgresBackend expects the schema to be migrated already.
func NewPostgresBackend(pg *sql.DB) *Backend {
	return &Backend{kind: BackendPostgres, pg: pg}
}

// OpenBackend connects the backend selected by cfg.Store.
func OpenBackend(ctx context.Context, cfg config.Config) (*Backend, error) {
	switch cfg.Store.Backend {
	case BackendFile:
		return NewFileBackend(cfg.Store.DataDir), nil
	case BackendSQLite:
		gdb, err := db.OpenSQLite(cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		return NewSQLiteBackend(gdb)
	case BackendPostgres:
		dsn := db.PostgresURL(cfg.Database)
		if err := db.Migrate(dsn); err != nil {
			return nil, err
		}
		pg, err := db.OpenURL(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return NewPostgresBackend(pg), nil
	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
	}
}

func (b *Backend) Kind() string {
	return b.kind
}

func (b *Backend) Close() error {
	switch {
	case b.pg != nil:
		return b.pg.Close()
	case b.sqlite != nil:
		sqlDB, err := b.sqlite.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

// Open returns the named collection on b.
func Open[T any, P RecordPtr[T]](b *Backend, name string) (Collection[T], error) {
	switch b.kind {
	case BackendFile:
		c, err := OpenFileCollection[T, P](b.dir, name)
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendSQLite:
		return NewSQLiteCollection[T, P](b.sqlite, name), nil
	case BackendPostgres:
		return NewPostgresCollection[T, P](b.pg, name), nil
	}
	return nil, fmt.Errorf("unsupported store backend %q", b.kind)
}
