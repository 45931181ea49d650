package persist

import (
	"context"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SchemaTable keeps the archive's goose bookkeeping apart from any other
// schema sharing the database.
const SchemaTable = "outpost_schema_version"

// RunMigrations brings the run archive up to date and returns the schema
// version it ended on.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) (int64, error) {
	goose.SetLogger(goose.NopLogger())
	goose.SetBaseFS(migrations)
	goose.SetTableName(SchemaTable)
	if err := goose.SetDialect("postgres"); err != nil {
		return 0, fmt.Errorf("set dialect: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return 0, fmt.Errorf("migrate archive: %w", err)
	}
	v, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return 0, fmt.Errorf("archive schema version: %w", err)
	}
	return v, nil
}
