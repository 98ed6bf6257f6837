package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"deptrooms/internal/app"
	"deptrooms/internal/config"
	"deptrooms/internal/database"
	"deptrooms/internal/events"
	"deptrooms/internal/lock"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.AppEnv != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg)
	stop()
	if err != nil {
		log.Fatalf("api: %v", err)
	}
}

// run owns every connection it opens; it returns instead of exiting so the
// deferred closes run on both the error and the shutdown path.
func run(ctx context.Context, cfg *config.Config) error {
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	opts := app.Options{Checks: map[string]func(context.Context) error{}}
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		redisLock := lock.NewRedis(client, cfg.LockTTL)
		if err := redisLock.Ping(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		opts.Locker = redisLock
		opts.Checks["redis"] = redisLock.Ping
		log.Printf("room locks via redis addr=%s ttl=%s", cfg.RedisAddr, cfg.LockTTL)
	}
	if cfg.AMQPURL != "" {
		amqpPub, err := events.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return fmt.Errorf("amqp: %w", err)
		}
		defer amqpPub.Close()
		opts.Publisher = amqpPub
		log.Printf("publishing booking events to exchange=%s", cfg.AMQPExchange)
	}

	a, err := app.New(cfg, db, opts)
	if err != nil {
		return fmt.Errorf("app: %w", err)
	}
	a.Start(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("deptrooms listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}
	log.Println("Server exited")
	return nil
}
