package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/unitwatch/inventory-backend/config"
	"github.com/unitwatch/inventory-backend/internal/bootstrap"
	"github.com/unitwatch/inventory-backend/internal/inventory/fetch"
	"github.com/unitwatch/inventory-backend/internal/inventory/notify"
	"github.com/unitwatch/inventory-backend/internal/inventory/repository"
	"github.com/unitwatch/inventory-backend/internal/inventory/service"
	"github.com/unitwatch/inventory-backend/internal/storage/postgres"

	cronjob "github.com/unitwatch/inventory-backend/internal/inventory/cron"
)

// RunScan executes one scan run and exits. With a config ID argument only
// that configuration is scanned; without one the full run covers every
// active configuration.
func RunScan(args []string) {
	scanner, deps, cleanup := buildScanner()
	defer cleanup()

	ctx := context.Background()

	if len(args) > 0 {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			log.Fatalf("invalid config id %q", args[0])
		}
		cfg, err := deps.configs.Get(ctx, id)
		if err != nil {
			log.Fatalf("load config %d: %v", id, err)
		}
		res, err := scanner.ScanConfig(ctx, *cfg)
		if err != nil {
			log.Fatalf("scan config %d: %v", id, err)
		}
		log.Printf("config %d done: %d units, +%d -%d ~%d",
			id, res.Units, len(res.Diff.Added), len(res.Diff.Removed), len(res.Diff.Changed))
		return
	}

	summary, err := scanner.Run(ctx)
	if err != nil {
		log.Fatalf("scan run: %v", err)
	}

	log.Printf("scan run %s done: %d configs, %d failed", summary.RunID, len(summary.Results), summary.Failed)
	if summary.ExcelPath != "" {
		log.Printf("report: %s", summary.ExcelPath)
	}
}

// RunServe keeps the cron scheduler running without the admin API. Useful
// when the scanning worker is deployed separately from the API server.
func RunServe() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	scanner, _, cleanup := buildScanner()
	defer cleanup()

	scheduler := cronjob.NewScheduler(scanner, cfg.Scan.Schedule)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("start scheduler: %v", err)
	}
	defer scheduler.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("worker stopping...")
}

type scannerDeps struct {
	configs *repository.ConfigRepo
}

func buildScanner() (*service.Scanner, scannerDeps, func()) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx := context.Background()

	pool, err := bootstrap.OpenDB(ctx, bootstrap.DBOptions{DSN: postgres.DSN(&cfg.Database)})
	if err != nil {
		log.Fatalf("open db: %v", err)
	}

	sqlDB, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		log.Fatalf("open sql db: %v", err)
	}

	if err := postgres.Migrate(ctx, sqlDB); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	opts := []service.ScannerOption{
		service.WithReportsDir(cfg.Scan.ReportsDir),
		service.WithMinKeyLength(cfg.Scan.MinKeyLength),
	}

	rdb, err := bootstrap.OpenRedis(ctx, bootstrap.RedisOptions{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Printf("redis unavailable, running without scan locks: %v", err)
	} else {
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

	configRepo := repository.NewConfigRepo(pool)
	scanner := service.NewScanner(
		configRepo,
		repository.NewSnapshotRepo(pool),
		repository.NewChangeRepo(sqlDB),
		fetch.NewHTMLViewFetcher(),
		opts...,
	)

	cleanup := func() {
		pool.Close()
		_ = sqlDB.Close()
		if rdb != nil {
			_ = rdb.Close()
		}
	}
	return scanner, scannerDeps{configs: configRepo}, cleanup
}
