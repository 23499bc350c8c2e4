package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/iliyamo/signature-echo/internal/config"
	"github.com/iliyamo/signature-echo/internal/queue"
)

// audit-consumer drains the rejection queue into <AUDIT_LOG_DIR>/audit.log.
func main() {
	if err := config.LoadEnvFile(); err != nil {
		log.Fatalf("load env file: %v", err)
	}
	cfg := config.LoadAuditConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("audit-consumer: consuming %s into %s", cfg.Queue, cfg.LogDir)
	if err := queue.StartAuditConsumer(ctx, cfg.URL, cfg.Queue, cfg.LogDir); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}
	log.Printf("audit-consumer: stopped")
}
