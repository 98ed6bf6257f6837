package main

import (
	"context"
	"errors"
	"log"

	"deptrooms/internal/config"
	"deptrooms/internal/database"
	"deptrooms/internal/domain"
	"deptrooms/internal/domain/room"
	"deptrooms/internal/domain/slot"
	"deptrooms/internal/lock"
	"deptrooms/internal/pkg/clock"
	"deptrooms/internal/pkg/slotgrid"
)

var rooms = []room.CreateRequest{
	{RoomNumber: "A-101", Purpose: "lecture", Capacity: 60, Location: "Building A, floor 1", StartTime: "08:00", EndTime: "20:00"},
	{RoomNumber: "A-102", Purpose: "lecture", Capacity: 40, Location: "Building A, floor 1", StartTime: "08:00", EndTime: "18:00"},
	{RoomNumber: "B-201", Purpose: "seminar", Capacity: 20, Location: "Building B, floor 2", StartTime: "09:00", EndTime: "17:00"},
	{RoomNumber: "B-202", Purpose: "meeting", Capacity: 8, Location: "Building B, floor 2", StartTime: "09:00", EndTime: "18:00"},
	{RoomNumber: "C-010", Purpose: "lab", Capacity: 16, Location: "Building C, basement", StartTime: "10:00", EndTime: "16:00",
		Description: "Computer lab"},
	{RoomNumber: "C-011", Purpose: "lab", Capacity: 16, Location: "Building C, basement", StartTime: "10:00", EndTime: "16:00",
		Status: domain.RoomMaintenance, Description: "Closed for rewiring"},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("DB connection failed:", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("AutoMigrate failed:", err)
	}

	grid, err := slotgrid.New(cfg.SlotMinutes)
	if err != nil {
		log.Fatal(err)
	}
	slots := slot.NewService(slot.NewRepository(db), clock.Real{Loc: cfg.Location}, grid, cfg.WindowDays)
	svc := room.NewService(db, room.NewRepository(db), slots, lock.NewLocal())

	ctx := context.Background()
	created := 0
	for _, req := range rooms {
		r, err := svc.Create(ctx, req)
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			log.Printf("skip room %s: %v", req.RoomNumber, err)
			continue
		}
		if err != nil {
			log.Fatalf("create room %s: %v", req.RoomNumber, err)
		}
		created++
		log.Printf("room %s id=%d hours=%s-%s", r.RoomNumber, r.ID, r.StartTime, r.EndTime)
	}

	log.Printf("Seed completed: %d rooms created", created)
}
