package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/vidacall/telehealth-scheduling/internal/config"
	"github.com/vidacall/telehealth-scheduling/internal/db"
	"github.com/vidacall/telehealth-scheduling/internal/events"
	redisclient "github.com/vidacall/telehealth-scheduling/internal/redis"
	"github.com/vidacall/telehealth-scheduling/internal/schedule"
)

// The session worker promotes scheduled appointments to in_progress once
// their start time is reached.
func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("session-worker starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running session worker in env=%s interval=%s", cfg.Env, cfg.WorkerInterval)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()
	log.Println("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(rootCtx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connection error: %v", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Printf("error closing redis: %v", err)
		}
	}()
	log.Println("connected to Redis")

	repo := schedule.NewPgRepository(pgPool)
	locker := redisclient.NewRedisBookingLocker(rdb, cfg.LockTTL)
	publisher := events.NewRedisPublisher(rdb)
	svc := schedule.NewService(repo, locker, publisher, nil, cfg)

	// Run once at startup
	runOnce(rootCtx, svc)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Println("shutdown signal received, stopping session worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc)
		}
	}
}

func runOnce(ctx context.Context, svc *schedule.Service) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	if err := svc.StartDueAppointments(runCtx); err != nil {
		log.Printf("session promotion run error: %v", err)
		return
	}
	log.Printf("session promotion run complete in %s", time.Since(start))
}
