package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"stock-watch/src/helpers"
	"stock-watch/src/logger"
	"stock-watch/src/models"

	"github.com/lib/pq"
)

// -----------------------------------------------------------------------------

type PostgresDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

// NewPostgresDB keeps its tables in a schema named after the executable.
func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	if cfg.Storage.DBConnectionString == "" {
		return nil, fmt.Errorf("postgres storage needs db_connection_string")
	}

	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable name: %w", err)
	}
	name := filepath.Base(exe)
	name = strings.TrimSuffix(name, filepath.Ext(name))

	return &PostgresDB{
		Config: cfg,
		Schema: name,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) table(name string) string {
	return pq.QuoteIdentifier(d.Schema) + "." + pq.QuoteIdentifier(name)
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	if d.DB != nil {
		// retried after a partial failure
		d.DB.Close()
	}

	db, err := sql.Open("postgres", d.Config.Storage.DBConnectionString)
	if err != nil {
		return helpers.NewDatabaseError("open postgres", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return helpers.NewDatabaseError("ping postgres", err)
	}

	d.DB = db

	if _, err := d.DB.Exec(`CREATE SCHEMA IF NOT EXISTS ` + pq.QuoteIdentifier(d.Schema)); err != nil {
		return helpers.NewDatabaseError("create schema "+d.Schema, err)
	}

	if err := d.createTables(); err != nil {
		return err
	}

	d.Logger.Info("PostgresDB initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) createTables() error {
	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at BIGINT NOT NULL
		);`, d.table("accounts")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			symbol TEXT NOT NULL,
			name TEXT,
			price DOUBLE PRECISION,
			change DOUBLE PRECISION,
			percent_change DOUBLE PRECISION,
			volume TEXT,
			market_cap TEXT,
			chart_data TEXT,
			updated_at TEXT,
			fetched_at BIGINT NOT NULL,
			PRIMARY KEY (symbol, fetched_at)
		);`, d.table("snapshots")),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS snapshots_fetched_at_idx ON %s (fetched_at);`, d.table("snapshots")),
	}

	for _, stmt := range statements {
		if _, err := d.DB.Exec(stmt); err != nil {
			return helpers.NewDatabaseError("create postgres tables", err)
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) SaveSnapshots(ctx context.Context, snapshots []*models.MSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return helpers.NewDatabaseError("begin snapshot archive", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (symbol, fetched_at) DO NOTHING
	`, d.table("snapshots"), snapshotColumns))
	if err != nil {
		return helpers.NewDatabaseError("prepare snapshot archive", err)
	}
	defer stmt.Close()

	for _, s := range snapshots {
		if s == nil {
			continue
		}
		args, err := snapshotArgs(s)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return helpers.NewDatabaseError("archive "+s.Symbol, err)
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) LoadLatestSnapshots(ctx context.Context) ([]*models.MSnapshot, error) {
	rows, err := d.DB.QueryContext(ctx, fmt.Sprintf(`
		SELECT DISTINCT ON (symbol) %s FROM %s
		ORDER BY symbol, fetched_at DESC
	`, snapshotColumns, d.table("snapshots")))
	if err != nil {
		return nil, helpers.NewDatabaseError("load snapshots", err)
	}
	return collectSnapshots(rows)
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) CreateAccount(ctx context.Context, account *models.MAccount) error {
	res, err := d.DB.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, username, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (username) DO NOTHING
	`, d.table("accounts")), account.ID, account.Username, account.PasswordHash, account.CreatedAt.UTC().Unix())
	if err != nil {
		return helpers.NewDatabaseError("create account", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrAccountExists
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) GetAccount(ctx context.Context, username string) (*models.MAccount, error) {
	row := d.DB.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT id, username, password_hash, created_at FROM %s WHERE username = $1`, d.table("accounts")), username)
	return scanAccount(row)
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) CleanupOldData(ctx context.Context) error {
	cutoff := retentionCutoff(d.Config, time.Now())

	res, err := d.DB.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE fetched_at < $1`, d.table("snapshots")), cutoff)
	if err != nil {
		return helpers.NewDatabaseError("cleanup snapshots", err)
	}

	n, _ := res.RowsAffected()
	d.Logger.Info("Cleanup completed: removed %d archived snapshots", n)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
