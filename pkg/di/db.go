package di

import (
	"database/sql"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

// Supported database/sql driver names.
const (
	DriverPgx      = "pgx"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// DBConfig selects the relational store. An empty Driver means no database.
type DBConfig struct {
	Driver       string `mapstructure:"driver"`
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// Validate checks if the configuration values are valid.
func (c DBConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Driver, validation.In(DriverPgx, DriverPostgres, DriverSQLite)),
		validation.Field(&c.DSN, validation.When(c.Driver != "", validation.Required)),
		validation.Field(&c.MaxOpenConns, validation.Min(0)),
	)
}

// OpenDB opens cfg with the matching bun dialect. It returns nil, nil when no
// driver is configured.
func OpenDB(cfg DBConfig) (*bun.DB, error) {
	if cfg.Driver == "" {
		return nil, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var dialect schema.Dialect
	switch cfg.Driver {
	case DriverPgx, DriverPostgres:
		dialect = pgdialect.New()
	case DriverSQLite:
		dialect = sqlitedialect.New()
	}

	sqldb, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	if cfg.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	return bun.NewDB(sqldb, dialect), nil
}
