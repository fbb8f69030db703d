package main

import (
	"log"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"

	"texpro/internal/database"
	"texpro/internal/domain"
)

func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = "texpro.db"
	}

	db, err := database.Connect(dsn)
	if err != nil {
		log.Fatal("DB connection failed:", err)
	}

	log.Println("Running AutoMigrate...")
	if err := database.Migrate(db); err != nil {
		log.Fatal("AutoMigrate failed:", err)
	}

	log.Println("Cleaning old data...")
	db.Exec("DELETE FROM notifications")
	db.Exec("DELETE FROM allocation_summaries")
	db.Exec("DELETE FROM material_allocations")
	db.Exec("DELETE FROM workforce_allocations")
	db.Exec("DELETE FROM batch_workflows")
	db.Exec("DELETE FROM maintenance_logs")
	db.Exec("DELETE FROM machines")
	db.Exec("DELETE FROM machine_types")
	db.Exec("DELETE FROM users")

	log.Println("Creating users...")

	users := []domain.User{
		{Email: "admin@texpro.local", Role: domain.RoleAdmin, Name: "Admin", EmployeeCode: "EMP-001"},
		{Email: "supervisor@texpro.local", Role: domain.RoleSupervisor, Name: "Shift Supervisor", EmployeeCode: "EMP-002"},
		{Email: "tech1@texpro.local", Role: domain.RoleTechnician, Name: "Technician One", EmployeeCode: "EMP-003"},
		{Email: "tech2@texpro.local", Role: domain.RoleTechnician, Name: "Technician Two", EmployeeCode: "EMP-004"},
		{Email: "inspector@texpro.local", Role: domain.RoleInspector, Name: "Quality Inspector", EmployeeCode: "EMP-005"},
		{Email: "operator@texpro.local", Role: domain.RoleOperator, Name: "Loom Operator", EmployeeCode: "EMP-006"},
	}
	for i := range users {
		hash, _ := bcrypt.GenerateFromPassword([]byte("changeme123"), bcrypt.DefaultCost)
		users[i].PasswordHash = string(hash)
		users[i].IsActive = true
		if err := db.Create(&users[i]).Error; err != nil {
			log.Fatal("user seed failed:", err)
		}
	}

	log.Println("Creating machine types...")

	days90, days45, days30 := 90, 45, 30
	types := []domain.MachineType{
		{Name: "Ring Spinning Frame", Description: "Ring frame for yarn spinning", RecommendedIntervalDays: &days90, TypicalPowerKW: 55, TypicalRate: 120},
		{Name: "Rapier Loom", Description: "Weaving loom, rapier type", RecommendedIntervalDays: &days45, TypicalPowerKW: 7.5, TypicalRate: 450},
		{Name: "Carding Machine", Description: "Fibre carding line", RecommendedIntervalDays: &days30, TypicalPowerKW: 30, TypicalRate: 60},
	}
	for i := range types {
		if err := db.Create(&types[i]).Error; err != nil {
			log.Fatal("machine type seed failed:", err)
		}
	}

	log.Println("Creating machines...")

	installed := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	machines := []domain.Machine{
		{MachineCode: "RSF-001", TypeID: types[0].ID, OperationalStatus: domain.MachineRunning, InstallationDate: &installed, LocationSite: "Mill A", LocationBuilding: "Spinning Hall", TotalOperatingHours: 4200, HoursSinceMaintenance: 310},
		{MachineCode: "RSF-002", TypeID: types[0].ID, OperationalStatus: domain.MachineIdle, InstallationDate: &installed, LocationSite: "Mill A", LocationBuilding: "Spinning Hall", TotalOperatingHours: 3900, HoursSinceMaintenance: 120},
		{MachineCode: "LOOM-010", TypeID: types[1].ID, OperationalStatus: domain.MachineRunning, InstallationDate: &installed, LocationSite: "Mill A", LocationBuilding: "Weaving Shed", TotalOperatingHours: 6100, HoursSinceMaintenance: 540},
		{MachineCode: "CARD-003", TypeID: types[2].ID, OperationalStatus: domain.MachineOffline, InstallationDate: &installed, LocationSite: "Mill B", LocationBuilding: "Prep Line", TotalOperatingHours: 2800, HoursSinceMaintenance: 90},
	}
	for i := range machines {
		if err := db.Create(&machines[i]).Error; err != nil {
			log.Fatal("machine seed failed:", err)
		}
	}

	log.Println("Creating batches...")

	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 21)
	batches := []domain.BatchWorkflow{
		{BatchCode: "BATCH-2026-081", Description: "Cotton yarn 30s", SupervisorID: users[1].ID, CreatedByID: users[0].ID, Status: domain.BatchInProgress, StartDate: &start, EndDate: &end},
		{BatchCode: "BATCH-2026-082", Description: "Denim greige", SupervisorID: users[1].ID, CreatedByID: users[0].ID, Status: domain.BatchPending},
	}
	for i := range batches {
		if err := db.Create(&batches[i]).Error; err != nil {
			log.Fatal("batch seed failed:", err)
		}
	}

	log.Println("Seed completed.")
	log.Println("Login: admin@texpro.local / changeme123")
}
