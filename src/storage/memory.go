package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"stock-watch/src/logger"
	"stock-watch/src/models"
)

// MemoryDB keeps accounts and the latest archived snapshot per symbol in
// process memory. Everything is lost on restart.
type MemoryDB struct {
	Config    *models.MConfig
	Logger    *logger.Logger
	mu        sync.RWMutex
	accounts  map[string]*models.MAccount
	snapshots map[string]*models.MSnapshot
}

// -----------------------------------------------------------------------------

func NewMemoryDB(cfg *models.MConfig, log *logger.Logger) *MemoryDB {
	return &MemoryDB{
		Config:    cfg,
		Logger:    log,
		accounts:  make(map[string]*models.MAccount),
		snapshots: make(map[string]*models.MSnapshot),
	}
}

// -----------------------------------------------------------------------------

func (d *MemoryDB) Initialize() error {
	d.Logger.Info("Using in-memory storage; accounts do not survive a restart")
	return nil
}

// -----------------------------------------------------------------------------

func (d *MemoryDB) SaveSnapshots(_ context.Context, snapshots []*models.MSnapshot) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range snapshots {
		if s != nil {
			d.snapshots[s.Symbol] = s
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *MemoryDB) LoadLatestSnapshots(_ context.Context) ([]*models.MSnapshot, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]*models.MSnapshot, 0, len(d.snapshots))
	for _, s := range d.snapshots {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

// -----------------------------------------------------------------------------

func (d *MemoryDB) CreateAccount(_ context.Context, account *models.MAccount) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.accounts[account.Username]; ok {
		return ErrAccountExists
	}
	copied := *account
	d.accounts[account.Username] = &copied
	return nil
}

// -----------------------------------------------------------------------------

func (d *MemoryDB) GetAccount(_ context.Context, username string) (*models.MAccount, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	a, ok := d.accounts[username]
	if !ok {
		return nil, ErrAccountNotFound
	}
	copied := *a
	return &copied, nil
}

// -----------------------------------------------------------------------------

func (d *MemoryDB) CleanupOldData(_ context.Context) error {
	cutoff := retentionCutoff(d.Config, time.Now())

	d.mu.Lock()
	defer d.mu.Unlock()
	for sym, s := range d.snapshots {
		if s.FetchedAt.UnixMilli() < cutoff {
			delete(d.snapshots, sym)
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *MemoryDB) Close() error {
	return nil
}
