package storage

import (
	"context"
	"encoding/json"
	"time"

	"stock-watch/src/helpers"
	"stock-watch/src/interfaces"
	"stock-watch/src/logger"
	"stock-watch/src/models"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "stock:"
	channelPrefix = "prices."
)

var _ interfaces.ISnapshotMirror = (*RedisMirror)(nil)

// RedisMirror writes each refreshed snapshot to stock:<SYMBOL> and publishes
// it on prices.<SYMBOL> so other processes can follow the dashboard.
type RedisMirror struct {
	client *redis.Client
	ttl    time.Duration
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

// NewRedisMirror returns nil when no redis_addr is configured.
func NewRedisMirror(cfg *models.MConfig, log *logger.Logger) *RedisMirror {
	if cfg.Storage.RedisAddr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Storage.RedisAddr,
		Password: cfg.Storage.RedisPassword,
		DB:       cfg.Storage.RedisDB,
	})

	// keys outlive a few missed passes, then expire with a stopped dashboard
	ttl := time.Duration(cfg.DataSource.UpdateIntervalSeconds) * time.Second * 10
	return NewRedisMirrorFromClient(client, ttl, log)
}

func NewRedisMirrorFromClient(client *redis.Client, ttl time.Duration, log *logger.Logger) *RedisMirror {
	return &RedisMirror{client: client, ttl: ttl, Logger: log}
}

// -----------------------------------------------------------------------------

// Ping checks connectivity at startup.
func (r *RedisMirror) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return helpers.NewDatabaseError("ping redis", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (r *RedisMirror) Publish(ctx context.Context, snapshots []*models.MSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	pipe := r.client.Pipeline()
	for _, s := range snapshots {
		if s == nil {
			continue
		}
		payload, err := json.Marshal(s)
		if err != nil {
			return err
		}
		pipe.Set(ctx, keyPrefix+s.Symbol, payload, r.ttl)
		pipe.Publish(ctx, channelPrefix+s.Symbol, payload)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return helpers.NewDatabaseError("mirror snapshots", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

// Latest reads mirrored snapshots back (MGET); missing symbols are skipped.
func (r *RedisMirror) Latest(ctx context.Context, symbols []string) ([]*models.MSnapshot, error) {
	if len(symbols) == 0 {
		return nil, nil
	}

	keys := make([]string, len(symbols))
	for i, sym := range symbols {
		keys[i] = keyPrefix + sym
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, helpers.NewDatabaseError("read mirror", err)
	}

	var out []*models.MSnapshot
	for _, v := range values {
		payload, ok := v.(string)
		if !ok || payload == "" {
			continue
		}
		var s models.MSnapshot
		if err := json.Unmarshal([]byte(payload), &s); err != nil {
			r.Logger.Warning("Skipping unreadable mirrored snapshot: %v", err)
			continue
		}
		out = append(out, &s)
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func (r *RedisMirror) Close() error {
	return r.client.Close()
}
