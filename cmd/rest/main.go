package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"rl-recommender-be/internal/bootstrap"
	"rl-recommender-be/internal/config"
	"rl-recommender-be/internal/model"
	"rl-recommender-be/internal/server"
	"rl-recommender-be/internal/tracer"
	"rl-recommender-be/pkg/database"

	"golang.org/x/sync/errgroup"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Tracer
	shutdownTracer := tracer.InitTracer(cfg.Tracing)
	defer shutdownTracer(context.Background())

	// 3. Initialize Database
	gormDB, err := database.NewGormDB(cfg.Database.Connection, database.Options{})
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}
	// Postgres schemas are owned by cmd/migrate; a local sqlite file is migrated in place.
	if !database.IsPostgres(cfg.Database.Connection) {
		if err := gormDB.AutoMigrate(model.All()...); err != nil {
			log.Panicf("Unable to migrate sqlite database: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 4. Bootstrap Dependencies (Container)
	container, err := bootstrap.NewContainer(ctx, gormDB, cfg, bootstrap.Options{})
	if err != nil {
		log.Panicf("Unable to bootstrap: %v", err)
	}

	// 5. Start Background Services
	if err := container.StartBackground(ctx); err != nil {
		log.Panicf("Unable to start background services: %v", err)
	}

	// 6. Initialize Server
	srv := server.New(cfg, container)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Run)
	g.Go(func() error {
		<-gctx.Done()
		return srv.Shutdown()
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("Server stopped: %v", err)
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := container.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown incomplete: %v", err)
	}
	log.Println("Server exited")
}
