// Command maintenance runs one maintenance pass and exits. It is meant for
// cron deployments that turn the in-process scheduler off.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/redis/go-redis/v9"

	"deptrooms/internal/config"
	"deptrooms/internal/database"
	"deptrooms/internal/domain/booking"
	"deptrooms/internal/domain/maintenance"
	"deptrooms/internal/domain/room"
	"deptrooms/internal/domain/slot"
	"deptrooms/internal/events"
	"deptrooms/internal/lock"
	"deptrooms/internal/pkg/clock"
	"deptrooms/internal/pkg/slotgrid"
)

const (
	exitOK      = 0
	exitFailed  = 1
	exitInvalid = 2
)

func main() {
	validate := flag.Bool("validate", false, "print the slot validation report after the run")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	code, err := run(context.Background(), cfg, *validate, os.Stdout)
	if err != nil {
		log.Printf("maintenance: %v", err)
	}
	os.Exit(code)
}

// run returns instead of exiting so deferred cleanup (the AMQP connection)
// always happens before the process ends.
func run(ctx context.Context, cfg *config.Config, validate bool, out io.Writer) (int, error) {
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return exitFailed, fmt.Errorf("db connect failed: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := database.Migrate(db); err != nil {
		return exitFailed, fmt.Errorf("migrate: %w", err)
	}
	sqlxDB, err := database.SQLX(db)
	if err != nil {
		return exitFailed, fmt.Errorf("sqlx: %w", err)
	}

	grid, err := slotgrid.New(cfg.SlotMinutes)
	if err != nil {
		return exitFailed, err
	}

	// a cron pass can overlap with live API traffic, so share its locks
	var locker lock.Locker = lock.NewLocal()
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		locker = lock.NewRedis(client, cfg.LockTTL)
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.AMQPURL != "" {
		amqpPub, err := events.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return exitFailed, fmt.Errorf("amqp: %w", err)
		}
		defer amqpPub.Close()
		publisher = amqpPub
	}

	slots := slot.NewService(slot.NewRepository(db), clock.Real{Loc: cfg.Location}, grid, cfg.WindowDays)
	manager := booking.NewManager(db, booking.NewRepository(db), slots, locker, publisher, cfg.CleanupGrace)
	svc := maintenance.NewService(db, room.NewRepository(db), manager, slots, maintenance.NewReports(sqlxDB))

	rep, runErr := svc.Run(ctx, "cli")
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if rep != nil {
		_ = enc.Encode(rep)
	}

	if validate {
		v, err := svc.ValidateSlots(ctx)
		if err != nil {
			return exitFailed, fmt.Errorf("validate: %w", err)
		}
		_ = enc.Encode(v)
		if !v.Valid {
			return exitInvalid, nil
		}
	}
	if runErr != nil {
		return exitFailed, fmt.Errorf("completed with errors: %w", runErr)
	}
	return exitOK, nil
}
