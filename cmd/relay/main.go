package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dheerajkumar69/Meow-share-by-dheeraj-sub000/internal/logging"
	"github.com/Dheerajkumar69/Meow-share-by-dheeraj-sub000/internal/relay"
)

func main() {
	log := logging.Server("meow-relay")

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := relay.NewMemoryStore(relay.DefaultTTL, nil)
	go store.Run(ctx, relay.DefaultSweepInterval)

	server := &http.Server{
		Addr:         addr,
		Handler:      relay.NewServer(store, log).Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Info("relay listening", "addr", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("relay server stopped", "error", err)
		os.Exit(1)
	}
	log.Info("relay stopped")
}
