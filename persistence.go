package auth

import (
	"context"
	"database/sql"
	"strings"

	"github.com/goliatone/go-errors"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DefaultSQLiteDSN is a shared in-memory database
const DefaultSQLiteDSN = "file::memory:?cache=shared"

// DatabaseOptions select the store backend
type DatabaseOptions struct {
	Driver string `json:"driver" mapstructure:"driver"`
	DSN    string `json:"dsn" mapstructure:"dsn"`
}

// OpenDB opens a bun database for the configured driver
func OpenDB(opts DatabaseOptions) (*bun.DB, error) {
	driver := strings.ToLower(strings.TrimSpace(opts.Driver))
	if driver == "" {
		driver = DriverSQLite
	}

	switch driver {
	case DriverSQLite:
		dsn := opts.DSN
		if dsn == "" {
			dsn = DefaultSQLiteDSN
		}
		sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to open sqlite database")
		}
		// sqlite serializes writers, an in-memory database also only lives
		// as long as its single connection does
		sqldb.SetMaxOpenConns(1)
		return bun.NewDB(sqldb, sqlitedialect.New()), nil

	case DriverPostgres, "pg", "pgx":
		if opts.DSN == "" {
			return nil, errors.New("postgres dsn is required", errors.CategoryBadInput)
		}
		sqldb, err := sql.Open("pgx", opts.DSN)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to open postgres database")
		}
		return bun.NewDB(sqldb, pgdialect.New()), nil

	default:
		return nil, errors.New("unsupported database driver", errors.CategoryBadInput).
			WithMetadata(map[string]any{"driver": opts.Driver})
	}
}

// CreateSchema creates the users and flashcard_set tables when missing
func CreateSchema(ctx context.Context, db bun.IDB) error {
	if _, err := db.NewCreateTable().
		Model((*User)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to create users table")
	}

	if _, err := db.NewCreateTable().
		Model((*FlashcardSet)(nil)).
		IfNotExists().
		ForeignKey(`("user_id") REFERENCES "users" ("id") ON DELETE CASCADE`).
		Exec(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to create flashcard_set table")
	}

	if _, err := db.NewCreateIndex().
		Model((*FlashcardSet)(nil)).
		Index("flashcard_set_user_id_idx").
		Column("user_id").
		IfNotExists().
		Exec(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to create flashcard_set index")
	}

	return nil
}
