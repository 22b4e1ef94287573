package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"stock-watch/src/cache"
	"stock-watch/src/config"
	"stock-watch/src/dashboard"
	datasource "stock-watch/src/data_source"
	"stock-watch/src/grpc_control"
	"stock-watch/src/helpers"
	"stock-watch/src/logger"
	"stock-watch/src/server"
	"stock-watch/src/utils"
)

// -----------------------------------------------------------------------------

func main() {

	// 1. Parse command line flags
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	saveConfig := flag.String("save-config", "", "write the effective config (defaults applied) to this path and exit")
	flag.Parse()

	// 2. Load config
	conf, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *saveConfig != "" {
		if err := conf.Save(*saveConfig); err != nil {
			fmt.Printf("Error saving config: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// 3. Setup logger
	appLogger := logger.NewLogger(conf.MConfig, conf.Name)
	defer appLogger.Sync()

	if limit, ok := helpers.RecommendedMemoryLimitMB(); ok {
		debug.SetMemoryLimit(int64(limit) << 20)
		appLogger.Info("Memory limit set to %d MB", limit)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Storage
	db, err := setupDatabase(ctx, conf.MConfig, appLogger.Named("storage"))
	if err != nil {
		appLogger.Critical("Failed to init db: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	mirror := setupMirror(ctx, conf.MConfig, appLogger.Named("redis"))
	if mirror != nil {
		defer mirror.Close()
	}

	// 5. Data pipeline
	stockFetcher := setupFetcher(conf.MConfig, appLogger)
	stockCache := cache.NewStockCache()

	control := grpc_control.NewControlService(conf.MConfig, appLogger.Named("grpc"))

	dash := dashboard.NewDashboard(conf.MConfig, stockCache, stockFetcher, db, appLogger.Named("dashboard"))
	srv := server.NewDashboardServer(conf.MConfig, dash, appLogger.Named("server"))
	srv.Markets = utils.NewMarketScheduler(conf.DataSource.DefaultSymbols, appLogger.Named("markets"))

	refresher := datasource.NewRefresher(conf.MConfig, stockFetcher, stockCache, appLogger.Named("refresher"))
	refresher.DB = db
	if mirror != nil {
		refresher.Mirror = mirror
	}
	refresher.Broadcaster = srv
	refresher.Health = control
	srv.Refresher = refresher

	if n := refresher.Warm(ctx); n == 0 {
		appLogger.Info("No archived snapshots, waiting for the first refresh pass")
	}

	// 6. Start everything
	if err := refresher.Start(ctx); err != nil {
		appLogger.Critical("Failed to start refresher: %v", err)
		os.Exit(1)
	}
	errs := startServers(conf.MConfig, srv, control, appLogger)

	select {
	case <-ctx.Done():
		appLogger.Info("Shutting down...")
	case err := <-errs:
		appLogger.Error("Server failed: %v", err)
	}

	// 7. Shutdown, reverse order
	if err := srv.Stop(); err != nil {
		appLogger.Error("HTTP shutdown: %v", err)
	}
	control.Stop()
	if err := refresher.Stop(); err != nil {
		appLogger.Error("Refresher shutdown: %v", err)
	}
	appLogger.Info("Bye")
}
