package interfaces

import (
	"context"

	"stock-watch/src/models"
)

// -----------------------------------------------------------------------------
// IDatabase defines the contract for storage operations.
// -----------------------------------------------------------------------------

type IDatabase interface {

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// SaveSnapshots archives the snapshots written by one refresh pass.
	SaveSnapshots(ctx context.Context, snapshots []*models.MSnapshot) error

	// -----------------------------------------------------------------------------

	// LoadLatestSnapshots returns the newest archived snapshot per symbol,
	// used to warm the cache at startup.
	LoadLatestSnapshots(ctx context.Context) ([]*models.MSnapshot, error)

	// -----------------------------------------------------------------------------

	// CreateAccount stores a new account; duplicate usernames are rejected
	// with storage.ErrAccountExists.
	CreateAccount(ctx context.Context, account *models.MAccount) error

	// -----------------------------------------------------------------------------

	// GetAccount looks an account up by username; storage.ErrAccountNotFound
	// when absent.
	GetAccount(ctx context.Context, username string) (*models.MAccount, error)

	// -----------------------------------------------------------------------------

	// CleanupOldData removes archived snapshots older than the retention policy.
	CleanupOldData(ctx context.Context) error

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}

// -----------------------------------------------------------------------------
// ISnapshotMirror publishes snapshots to an external key-value store.
// -----------------------------------------------------------------------------

type ISnapshotMirror interface {
	Publish(ctx context.Context, snapshots []*models.MSnapshot) error
	Close() error
}
