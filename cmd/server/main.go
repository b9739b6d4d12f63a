package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"custodia/internal/audit"
	auditHandler "custodia/internal/audit/handler"
	auditMemory "custodia/internal/audit/store/memory"
	auditPostgres "custodia/internal/audit/store/postgres"
	"custodia/internal/device"
	deviceMemory "custodia/internal/device/store/memory"
	devicePostgres "custodia/internal/device/store/postgres"
	"custodia/internal/event"
	eventMemory "custodia/internal/event/store/memory"
	eventPostgres "custodia/internal/event/store/postgres"
	"custodia/internal/platform/config"
	"custodia/internal/platform/httpserver"
	"custodia/internal/platform/logger"
	"custodia/internal/platform/middleware"
	platformpg "custodia/internal/platform/postgres"
	platformredis "custodia/internal/platform/redis"
	"custodia/internal/schedule"
	scheduleMemory "custodia/internal/schedule/store/memory"
	schedulePostgres "custodia/internal/schedule/store/postgres"
	"custodia/internal/task"
	taskmetrics "custodia/internal/task/metrics"
	taskMemory "custodia/internal/task/store/memory"
	taskPostgres "custodia/internal/task/store/postgres"
	httptransport "custodia/internal/transport/http"
	"custodia/pkg/platform/tx"
)

// main wires the dependency graph and keeps the server lifecycle small.
// Business logic lives in the internal service packages.
func main() {
	envFile := pflag.String("env-file", "", "path to an env file loaded before reading configuration")
	pflag.Parse()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			panic("failed to load env file: " + err.Error())
		}
	} else {
		_ = godotenv.Load()
	}

	log := logger.New()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Error("invalid configuration", "error", err.Error())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *sql.DB
	if cfg.PostgresURL != "" {
		db, err = platformpg.Open(ctx, cfg.PostgresURL)
		if err != nil {
			log.Error("postgres connection failed", "error", err.Error())
			os.Exit(1)
		}
		defer db.Close()
	} else {
		log.Warn("no postgres url configured, using in-memory stores")
	}

	rdb, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis connection failed", "error", err.Error())
		os.Exit(1)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	metrics := taskmetrics.New()
	images, err := event.NewLocalImageStore(cfg.ImageDir)
	if err != nil {
		log.Error("image store initialization failed", "error", err.Error())
		os.Exit(1)
	}

	var (
		auditStore    audit.Store
		taskStore     task.Store
		directory     task.AssigneeDirectory
		eventStore    event.Store
		trackerStore  event.TrackerStore
		deviceStore   device.Store
		scheduleStore schedule.Store
		centerStore   schedule.CenterStore
		runner        tx.Runner
	)
	if db != nil {
		auditStore = auditPostgres.New(db)
		taskStore = taskPostgres.New(db)
		directory = taskPostgres.NewDirectory(db)
		eventStore = eventPostgres.New(db)
		trackerStore = eventPostgres.NewTrackerStore(db)
		deviceStore = devicePostgres.New(db)
		scheduleStore = schedulePostgres.New(db)
		centerStore = schedulePostgres.NewCenterStore(db)
		runner = tx.SQLRunner{DB: db}
	} else {
		auditStore = auditMemory.NewInMemoryStore()
		taskStore = taskMemory.NewInMemoryStore()
		directory = taskMemory.NewInMemoryDirectory()
		eventStore = eventMemory.NewInMemoryStore()
		trackerStore = eventMemory.NewInMemoryTrackerStore()
		deviceStore = deviceMemory.NewInMemoryStore()
		scheduleStore = scheduleMemory.NewInMemoryStore()
		centerStore = scheduleMemory.NewInMemoryCenterStore()
		runner = tx.PassthroughRunner{}
	}

	auditor := audit.NewRecorder(auditStore, log)
	guard := device.NewGuard(deviceStore, auditor, log, cfg.DeviceBindingBypass)

	var scheduleCache schedule.Cache
	if rdb != nil {
		scheduleCache = schedule.NewRedisCache(rdb, cfg.ScheduleCacheTTL)
	}
	schedules := schedule.NewService(scheduleStore, centerStore, scheduleCache, auditor, log)

	tasks := task.NewService(taskStore, directory, auditor, runner, metrics, log, cfg.DefaultExpectedTravel)
	events := event.NewService(eventStore, trackerStore, tasks, tasks, schedules, guard, images, auditor, metrics, log)

	router := httptransport.New(httptransport.Deps{
		Tasks:     tasks,
		Events:    events,
		Schedules: schedules,
		Guard:     guard,
		Audit:     auditHandler.New(auditor, log),
		Validator: middleware.NewJWTValidator(cfg.JWTSigningKey),
		DB:        db,
		Redis:     rdb,
		Logger:    log,
	})

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting custodia", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err.Error())
		os.Exit(1)
	}
	log.Info("server stopped")
}
