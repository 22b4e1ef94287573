package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"stock-watch/src/helpers"
	"stock-watch/src/logger"
	"stock-watch/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type AsyncSQLiteDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewAsyncSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*AsyncSQLiteDB, error) {
	if cfg.Storage.DBPath == "" {
		return nil, fmt.Errorf("sqlite storage needs db_path")
	}
	return &AsyncSQLiteDB{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Initialize() error {
	if d.DB != nil {
		// retried after a partial failure
		d.DB.Close()
	}

	db, err := sql.Open("sqlite", d.Config.Storage.DBPath)
	if err != nil {
		return helpers.NewDatabaseError("open sqlite", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return helpers.NewDatabaseError("ping sqlite", err)
	}

	// one writer at a time; modernc serialises anyway and this avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)
	d.DB = db

	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	if err := d.createTables(); err != nil {
		return err
	}

	d.Logger.Info("SQLite initialized at %s", d.Config.Storage.DBPath)
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) createTables() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			symbol TEXT NOT NULL,
			name TEXT,
			price REAL,
			change REAL,
			percent_change REAL,
			volume TEXT,
			market_cap TEXT,
			chart_data TEXT,
			updated_at TEXT,
			fetched_at INTEGER NOT NULL,
			PRIMARY KEY (symbol, fetched_at)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_fetched_at ON snapshots (fetched_at);`,
	}

	for _, stmt := range statements {
		if _, err := d.DB.Exec(stmt); err != nil {
			return helpers.NewDatabaseError("create sqlite tables", err)
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) SaveSnapshots(ctx context.Context, snapshots []*models.MSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return helpers.NewDatabaseError("begin snapshot archive", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO snapshots (`+snapshotColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (symbol, fetched_at) DO NOTHING
	`)
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

func (d *AsyncSQLiteDB) LoadLatestSnapshots(ctx context.Context) ([]*models.MSnapshot, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT `+snapshotColumns+` FROM snapshots s
		WHERE fetched_at = (SELECT MAX(fetched_at) FROM snapshots WHERE symbol = s.symbol)
		ORDER BY symbol
	`)
	if err != nil {
		return nil, helpers.NewDatabaseError("load snapshots", err)
	}
	return collectSnapshots(rows)
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) CreateAccount(ctx context.Context, account *models.MAccount) error {
	res, err := d.DB.ExecContext(ctx, `
		INSERT INTO accounts (id, username, password_hash, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (username) DO NOTHING
	`, account.ID, account.Username, account.PasswordHash, account.CreatedAt.UTC().Unix())
	if err != nil {
		return helpers.NewDatabaseError("create account", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrAccountExists
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) GetAccount(ctx context.Context, username string) (*models.MAccount, error) {
	row := d.DB.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM accounts WHERE username = ?`, username)
	return scanAccount(row)
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) CleanupOldData(ctx context.Context) error {
	cutoff := retentionCutoff(d.Config, time.Now())

	res, err := d.DB.ExecContext(ctx, "DELETE FROM snapshots WHERE fetched_at < ?", cutoff)
	if err != nil {
		return helpers.NewDatabaseError("cleanup snapshots", err)
	}

	n, _ := res.RowsAffected()
	d.Logger.Info("Cleanup completed: removed %d archived snapshots", n)
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
