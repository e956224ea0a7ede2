package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/unitwatch/inventory-backend/config"
	"github.com/unitwatch/inventory-backend/internal/bootstrap"
	"github.com/unitwatch/inventory-backend/internal/inventory/fetch"
	"github.com/unitwatch/inventory-backend/internal/inventory/notify"
	"github.com/unitwatch/inventory-backend/internal/inventory/repository"
	"github.com/unitwatch/inventory-backend/internal/inventory/service"
	"github.com/unitwatch/inventory-backend/internal/storage/postgres"

	cronjob "github.com/unitwatch/inventory-backend/internal/inventory/cron"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	bootstrap.SetGinMode(cfg.App.Environment)

	ctx := context.Background()

	pool, err := bootstrap.OpenDB(ctx, bootstrap.DBOptions{DSN: postgres.DSN(&cfg.Database)})
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer pool.Close()

	sqlDB, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		log.Fatalf("open sql db: %v", err)
	}
	defer sqlDB.Close()

	if err := postgres.Migrate(ctx, sqlDB); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	rdb, err := bootstrap.OpenRedis(ctx, bootstrap.RedisOptions{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Printf("redis unavailable, running without scan locks: %v", err)
	}

	configRepo := repository.NewConfigRepo(pool)
	snapshotRepo := repository.NewSnapshotRepo(pool)
	changeRepo := repository.NewChangeRepo(sqlDB)

	opts := []service.ScannerOption{
		service.WithReportsDir(cfg.Scan.ReportsDir),
		service.WithMinKeyLength(cfg.Scan.MinKeyLength),
	}
	if rdb != nil {
		opts = append(opts, service.WithRunState(repository.NewStateRepo(rdb)))
	}
	if cfg.Scan.TelegramBotToken != "" {
		notifier, err := notify.NewTelegramNotifier(cfg.Scan.TelegramBotToken)
		if err != nil {
			log.Fatalf("telegram notifier: %v", err)
		}
		opts = append(opts, service.WithNotifier(notifier))
	}
	if cfg.Scan.UseSheetsAPI {
		apiFetcher, err := fetch.NewSheetsAPIFetcher(ctx)
		if err != nil {
			log.Printf("sheets api unavailable, falling back to htmlview: %v", err)
		} else {
			opts = append(opts, service.WithAPIFetcher(apiFetcher))
		}
	}

	scanner := service.NewScanner(configRepo, snapshotRepo, changeRepo, fetch.NewHTMLViewFetcher(), opts...)

	scheduler := cronjob.NewScheduler(scanner, cfg.Scan.Schedule)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("start scheduler: %v", err)
	}
	defer scheduler.Stop()

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName: "inventory-backend",
		Version:     cfg.App.Version,
		DB:          pool,
		Redis:       rdb,
		Configs:     configRepo,
		Changes:     changeRepo,
		Scanner:     scanner,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Printf("listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
