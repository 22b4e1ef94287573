package main

import (
	"context"
	"time"

	"stock-watch/src/data_source/yahoo"
	"stock-watch/src/fetcher"
	"stock-watch/src/helpers"
	"stock-watch/src/interfaces"
	"stock-watch/src/logger"
	"stock-watch/src/models"
	"stock-watch/src/network"
	"stock-watch/src/storage"
)

// -----------------------------------------------------------------------------

// setupDatabase retries Initialize so a database that is still starting up
// (typical for postgres in compose) does not abort the process.
func setupDatabase(ctx context.Context, cfg *models.MConfig, log *logger.Logger) (interfaces.IDatabase, error) {
	db, err := storage.NewDatabase(cfg, log)
	if err != nil {
		return nil, err
	}
	if err := helpers.RetryWithBackoff(ctx, 3, time.Second, db.Initialize); err != nil {
		db.Close()
		return nil, err
	}
	log.Info("Using %s storage", cfg.Storage.DBType)
	return db, nil
}

// -----------------------------------------------------------------------------

// setupMirror returns nil when Redis is not configured or not reachable;
// the dashboard runs fine without it.
func setupMirror(ctx context.Context, cfg *models.MConfig, log *logger.Logger) *storage.RedisMirror {
	mirror := storage.NewRedisMirror(cfg, log)
	if mirror == nil {
		return nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := mirror.Ping(pingCtx); err != nil {
		log.Warning("Redis mirror disabled: %v", err)
		mirror.Close()
		return nil
	}

	log.Info("Mirroring snapshots to redis at %s", cfg.Storage.RedisAddr)
	return mirror
}

// -----------------------------------------------------------------------------

func setupFetcher(cfg *models.MConfig, log *logger.Logger) *fetcher.StockFetcher {
	var netMgr interfaces.INetworkManager = network.NewAsyncNetworkManager(cfg, log.Named("network"))
	var provider interfaces.IMarketDataProvider = yahoo.NewYahooFinanceSource(netMgr, log.Named("yahoo"))
	return fetcher.NewStockFetcher(cfg, provider, log.Named("fetcher"))
}
