package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/valutatrade/hub/deploy/config"
	"github.com/valutatrade/hub/internal/app"
)

func main() {
	cfg := config.NewConfig()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	application := app.New(cfg)
	application.Start(ctx)
}
