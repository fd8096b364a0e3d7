package main

import (
	"context"
	"time"

	"request-monitor/src/config"
	"request-monitor/src/grpc_control"
	"request-monitor/src/interfaces"
	"request-monitor/src/logger"
	"request-monitor/src/server"
	"request-monitor/src/utils"

	"golang.org/x/sync/errgroup"
)

const cleanupInterval = 24 * time.Hour

// -----------------------------------------------------------------------------

// runServers orchestrates the startup of all server components and blocks
// until ctx is cancelled or one of them fails.
func runServers(
	ctx context.Context,
	conf *config.Config,
	db interfaces.IDatabase,
	renderer interfaces.IPageRenderer,
	history *utils.RenderHistory,
	appLogger *logger.Logger,
) error {
	scheduler := utils.NewRefreshScheduler(conf.Refresh, appLogger.Named("RefreshScheduler"))

	srv, err := server.NewDashboardServer(conf.MConfig, renderer, db, history, scheduler, appLogger.Named("DashboardServer"))
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	// 1. Dashboard HTTP server
	g.Go(func() error {
		return srv.Start(ctx)
	})

	// 2. gRPC health server
	if conf.GrpcPort != 0 {
		g.Go(func() error {
			grpcLogger := appLogger.Named("ControlService")
			svc := grpc_control.NewControlService(db, grpcLogger)
			return grpc_control.Serve(ctx, conf.GrpcHost, conf.GrpcPort, svc, grpcLogger)
		})
	}

	// 3. Retention cleanup
	g.Go(func() error {
		runCleanup(ctx, db, appLogger)
		return nil
	})

	appLogger.Info("%s started", conf.Name)
	err = g.Wait()
	appLogger.Info("Shutdown complete.")
	return err
}

// -----------------------------------------------------------------------------

// runCleanup applies the retention policy at startup and then once a day.
func runCleanup(ctx context.Context, db interfaces.IDatabase, appLogger *logger.Logger) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		if err := db.CleanupOldData(ctx); err != nil {
			appLogger.Warning("Retention cleanup failed: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
