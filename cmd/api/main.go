package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"texpro/internal/config"
	"texpro/internal/database"
	"texpro/internal/domain/notification"
	"texpro/internal/events"
	"texpro/internal/middleware"
	"texpro/internal/modules/allocation"
	"texpro/internal/modules/auth"
	"texpro/internal/modules/batch"
	"texpro/internal/modules/machine"
	"texpro/internal/modules/maintenance"
	"texpro/internal/modules/user"
	"texpro/internal/pkg/clock"
	jwtsvc "texpro/internal/pkg/jwt"
	"texpro/internal/repository"
	"texpro/internal/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal(err)
	}

	clk := clock.Real()

	userRepo := repository.NewUserRepository(db)
	machineTypeRepo := repository.NewMachineTypeRepository(db)
	machineRepo := repository.NewMachineRepository(db)
	maintenanceRepo := repository.NewMaintenanceRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	allocationRepo := repository.NewAllocationRepository(db)
	notificationRepo := notification.NewRepository(db)

	hub := notification.NewHub()
	notificationService := notification.NewService(notificationRepo, hub, clk)
	notificationHandler := notification.NewHandler(notificationService, hub)

	dispatcher := events.NewDispatcher(userRepo, notificationService, clk)

	j := jwtsvc.New(cfg.JWTSecret, cfg.TokenTTL)

	authService := auth.NewService(userRepo, j)
	authHandler := auth.NewHandler(authService)

	userService := user.NewService(userRepo)
	userHandler := user.NewHandler(userService)

	machineService := machine.NewService(db, machineRepo, machineTypeRepo, maintenanceRepo, dispatcher, clk)
	machineHandler := machine.NewHandler(machineService)

	predictor := maintenance.NewPredictor(maintenanceRepo, machineTypeRepo, clk)
	sched := maintenance.NewScheduler(machineRepo, maintenanceRepo, predictor, clk)
	maintenanceService := maintenance.NewService(db, maintenanceRepo, machineRepo, userRepo, predictor, sched, dispatcher, clk)
	maintenanceHandler := maintenance.NewHandler(maintenanceService, sched, predictor, machineRepo)

	batchService := batch.NewService(db, batchRepo, userRepo, dispatcher, clk)
	batchHandler := batch.NewHandler(batchService, clk)

	allocationService := allocation.NewService(db, allocationRepo, batchRepo, userRepo, dispatcher, clk)
	allocationHandler := allocation.NewHandler(allocationService)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	worker := scheduler.NewWorker(sched, maintenanceService, batchService, notificationService, dispatcher, scheduler.Config{
		SweepInterval:         cfg.SweepInterval,
		OverdueLogAge:         cfg.OverdueLogAge,
		NotificationRetention: cfg.NotificationRetention,
	})
	stopWorker := worker.Start(ctx)
	defer close(stopWorker)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.ErrorLogger())
	r.Use(middleware.CORS())
	r.Use(middleware.RateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst))

	v1 := r.Group("/api/v1")
	{
		authHandler.RegisterRoutes(v1)

		protected := v1.Group("/")
		protected.Use(middleware.Auth(j))
		{
			authHandler.RegisterProtectedRoutes(protected)
			userHandler.RegisterRoutes(protected)
			machineHandler.RegisterRoutes(protected)
			maintenanceHandler.RegisterRoutes(protected)
			batchHandler.RegisterRoutes(protected)
			allocationHandler.RegisterRoutes(protected)
			notification.RegisterRoutes(protected, notificationHandler)
		}
	}

	log.Printf("listening on %s", cfg.ListenAddr)
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatal(err)
	}
}
