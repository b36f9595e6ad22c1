// Command server runs the casegate HTTP API.
//
// Usage:
//
//	server
//
// Configuration is read from CONFIG_PATH (default ./config.yaml) and the
// environment; DATABASE_DSN and AUTH_JWT_SECRET are required.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/casegate/casegate-backend/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		log.Fatal(err)
	}
}
