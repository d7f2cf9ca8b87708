package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Vishal-43/smart-attendece-system/internal/audit"
	"github.com/Vishal-43/smart-attendece-system/internal/config"
	"github.com/Vishal-43/smart-attendece-system/internal/queue"
	"github.com/Vishal-43/smart-attendece-system/internal/store"
)

// Worker drains the audit queue and persists entries. Persistence failures
// are logged and the entry dropped; audit writes never block or fail the
// request path.
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

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "attendance:audit")
	}

	auditStore := audit.NewStore(db.Client)

	msgs, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("consume failed: %v", err)
	}

	log.Println("audit worker started")
	for msg := range msgs {
		if msg.Type != "audit" {
			continue
		}
		var entry audit.Entry
		if err := json.Unmarshal(msg.Body, &entry); err != nil {
			log.Printf("audit: bad message: %v", err)
			continue
		}
		if err := auditStore.Insert(ctx, entry); err != nil {
			log.Printf("audit: insert failed for %s: %v", entry.ID, err)
		}
	}
	log.Println("audit worker stopped")
}
