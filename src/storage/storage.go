package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"stock-watch/src/helpers"
	"stock-watch/src/interfaces"
	"stock-watch/src/logger"
	"stock-watch/src/models"
)

var (
	ErrAccountExists   = errors.New("username already exists")
	ErrAccountNotFound = errors.New("account not found")
)

// -----------------------------------------------------------------------------

// NewDatabase picks the back end named by storage.db_type.
func NewDatabase(cfg *models.MConfig, log *logger.Logger) (interfaces.IDatabase, error) {
	switch cfg.Storage.DBType {
	case "", "memory":
		return NewMemoryDB(cfg, log), nil
	case "sqlite":
		return NewAsyncSQLiteDB(cfg, log)
	case "postgres":
		return NewPostgresDB(cfg, log)
	default:
		return nil, fmt.Errorf("unsupported db_type %q", cfg.Storage.DBType)
	}
}

// -----------------------------------------------------------------------------

// retentionCutoff is the fetched_at (unix ms) below which rows are dropped.
func retentionCutoff(cfg *models.MConfig, now time.Time) int64 {
	days := cfg.Storage.RetentionDays
	if days <= 0 {
		days = 7
	}
	return now.UTC().AddDate(0, 0, -days).UnixMilli()
}

// -----------------------------------------------------------------------------

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const snapshotColumns = "symbol, name, price, change, percent_change, volume, market_cap, chart_data, updated_at, fetched_at"

func snapshotArgs(s *models.MSnapshot) ([]any, error) {
	chart, err := json.Marshal(s.ChartData)
	if err != nil {
		return nil, err
	}
	return []any{
		s.Symbol, s.Name, s.Price, s.Change, s.PercentChange,
		s.Volume, s.MarketCap, string(chart), s.UpdatedAt, s.FetchedAt.UTC().UnixMilli(),
	}, nil
}

func scanSnapshot(row rowScanner) (*models.MSnapshot, error) {
	var s models.MSnapshot
	var chart string
	var fetchedAt int64
	if err := row.Scan(&s.Symbol, &s.Name, &s.Price, &s.Change, &s.PercentChange,
		&s.Volume, &s.MarketCap, &chart, &s.UpdatedAt, &fetchedAt); err != nil {
		return nil, err
	}
	if chart != "" {
		if err := json.Unmarshal([]byte(chart), &s.ChartData); err != nil {
			return nil, fmt.Errorf("chart_data for %s: %w", s.Symbol, err)
		}
	}
	s.FetchedAt = time.UnixMilli(fetchedAt).UTC()
	return &s, nil
}

func scanAccount(row rowScanner) (*models.MAccount, error) {
	var a models.MAccount
	var created int64
	err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, helpers.NewDatabaseError("get account", err)
	}
	a.CreatedAt = time.Unix(created, 0).UTC()
	return &a, nil
}

// -----------------------------------------------------------------------------

func collectSnapshots(rows *sql.Rows) ([]*models.MSnapshot, error) {
	defer rows.Close()

	var out []*models.MSnapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
