package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"medportal/internal/config"
	"medportal/internal/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	srv, err := server.New(ctx, cfg)
	if err != nil {
		log.Fatalf("init server: %v", err)
	}

	if err := srv.Run(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
