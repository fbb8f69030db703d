package main

import (
	"context"
	"log"

	"texpro/internal/config"
	"texpro/internal/database"
	"texpro/internal/domain/notification"
	"texpro/internal/events"
	"texpro/internal/modules/batch"
	"texpro/internal/modules/maintenance"
	"texpro/internal/pkg/clock"
	"texpro/internal/repository"
	"texpro/internal/scheduler"
)

// One-shot sweep for cron-driven deployments that do not keep the API
// process running.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}

	clk := clock.Real()

	userRepo := repository.NewUserRepository(db)
	machineTypeRepo := repository.NewMachineTypeRepository(db)
	machineRepo := repository.NewMachineRepository(db)
	maintenanceRepo := repository.NewMaintenanceRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	notificationRepo := notification.NewRepository(db)

	notificationService := notification.NewService(notificationRepo, nil, clk)
	dispatcher := events.NewDispatcher(userRepo, notificationService, clk)

	predictor := maintenance.NewPredictor(maintenanceRepo, machineTypeRepo, clk)
	sched := maintenance.NewScheduler(machineRepo, maintenanceRepo, predictor, clk)
	maintenanceService := maintenance.NewService(db, maintenanceRepo, machineRepo, userRepo, predictor, sched, dispatcher, clk)
	batchService := batch.NewService(db, batchRepo, userRepo, dispatcher, clk)

	worker := scheduler.NewWorker(sched, maintenanceService, batchService, notificationService, dispatcher, scheduler.Config{
		SweepInterval:         cfg.SweepInterval,
		OverdueLogAge:         cfg.OverdueLogAge,
		NotificationRetention: cfg.NotificationRetention,
	})
	worker.RunOnce(context.Background())
}
