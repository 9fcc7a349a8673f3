package main

import (
	"context"
	"log"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/planhr/backend/api/handler"
	"github.com/planhr/backend/internal/config"
	"github.com/planhr/backend/internal/infrastructure/monitor"
	pgInfra "github.com/planhr/backend/internal/infrastructure/postgres"
	redisInfra "github.com/planhr/backend/internal/infrastructure/redis"
	"github.com/planhr/backend/internal/router"
	"github.com/planhr/backend/internal/services"
	"github.com/planhr/backend/internal/services/lifecycle"
	"github.com/planhr/backend/pkg/httpcontext"
	"github.com/planhr/backend/pkg/logger"
	"github.com/planhr/backend/repository/postgres"
	redisRepo "github.com/planhr/backend/repository/redis"
	"github.com/planhr/backend/usecase/allocation"
	"github.com/planhr/backend/usecase/leavewarning"
	recurrenceUC "github.com/planhr/backend/usecase/recurrence"
	taskUC "github.com/planhr/backend/usecase/task"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Service:  cfg.AppName,
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		zapLogger.Fatal("migrations failed", zap.Error(err))
	}

	pool, err := pgInfra.NewPool(appCtx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("postgres connection failed", zap.Error(err))
	}
	manager.Register("postgres", func(ctx context.Context) error {
		pool.Close()
		return nil
	})

	redisClient, err := redisInfra.NewClient(cfg.Redis)
	if err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	manager.Register("redis", func(ctx context.Context) error {
		return redisClient.Close()
	})

	mon := monitor.New(pool, redisClient, 10*time.Second, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	taskRepo := postgres.NewTaskRepository(pool)
	recurrenceRepo := postgres.NewRecurrenceRepository(pool)
	employeeRepo := postgres.NewEmployeeRepository(pool)
	companyRepo := postgres.NewCompanyRepository(pool)
	calendarRepo := postgres.NewCalendarRepository(pool)
	leaveStore := postgres.NewLeaveStore(pool)
	calendarService := postgres.NewCalendarService(pool)
	reconcileLock := redisRepo.NewReconcileLock(redisClient, zapLogger)

	allocator := allocation.New(employeeRepo, companyRepo, calendarRepo, calendarService, leaveStore, zapLogger)
	warnings := leavewarning.New(employeeRepo, leaveStore, calendarService, zapLogger)
	engine := recurrenceUC.New(taskRepo, recurrenceRepo, companyRepo, employeeRepo, calendarRepo, reconcileLock, zapLogger).
		WithGenerationMonths(cfg.Planning.GenerationMonths)
	taskUseCase := taskUC.New(taskRepo, employeeRepo, companyRepo, recurrenceRepo, calendarService, allocator, warnings, zapLogger)

	sweeper := services.NewSweeper(engine, taskUseCase, mon, zapLogger, services.SweeperConfig{
		HorizonSchedule:   cfg.Planning.HorizonSchedule,
		LifecycleSchedule: cfg.Planning.LifecycleSchedule,
		Timeout:           cfg.Planning.SweepTimeout,
	})
	sweeper.Start()
	manager.Register("sweeper", func(ctx context.Context) error {
		sweeper.Stop(ctx)
		return nil
	})

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Task:   apiHandler.NewTaskHandler(taskUseCase, engine, ctxAdapter, zapLogger),
		Sweep:  apiHandler.NewSweepHandler(sweeper, ctxAdapter, zapLogger),
		Health: apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}

	r := router.New(handlers)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.Shutdown()
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
