package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"userrealm/internal/app/bootstrap"
)

// Worker process entrypoint.
// Data flow:
// 1) Load config and realm file.
// 2) Build app wiring.
// 3) Relay the audit outbox to the event bus until SIGINT/SIGTERM.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Println("userrealm worker starting")
	app, err := bootstrap.BuildWorker(ctx)
	if err != nil {
		log.Fatalf("bootstrap worker failed: %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Printf("worker shutdown close failed: %v", err)
		}
	}()

	if err := app.Run(ctx); err != nil {
		log.Printf("userrealm worker stopped with error: %v", err)
	}
}
