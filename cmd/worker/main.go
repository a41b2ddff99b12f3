package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"rollcall/internal/attendance"
	"rollcall/internal/cache"
	"rollcall/internal/config"
	"rollcall/internal/queue"
	"rollcall/internal/roster"
	"rollcall/internal/store"
)

// Worker consumes attendance-marked events and refreshes the Redis-cached
// department dashboard for the affected date, so the API read path stays
// cheap during the morning marking rush.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "rollcall:events")
	}

	rosterRepo := roster.NewRepository(db.Client)
	recordRepo := attendance.NewRepository(db.Client)
	engine := attendance.NewService(rosterRepo, recordRepo)
	dash := cache.NewDashboard(redisClient.Client, cfg.DashboardTTL)

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for messages...")
	for msg := range messages {
		if msg.Type != queue.TypeAttendanceMarked {
			continue
		}
		date, err := attendance.ParseDate(msg.Date)
		if err != nil {
			log.Printf("dropping event with bad date %q: %v", msg.Date, err)
			continue
		}

		classes, err := engine.Dashboard(ctx, date)
		if err != nil {
			log.Printf("dashboard rebuild failed for %s: %v", msg.Date, err)
			continue
		}
		if err := dash.Set(ctx, msg.Date, classes); err != nil {
			log.Printf("dashboard cache write failed for %s: %v", msg.Date, err)
			continue
		}
		log.Printf("dashboard refreshed for %s (%d classes)", msg.Date, len(classes))
	}

	log.Println("worker stopped")
}
