package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"healthguide/internal/config"
	"healthguide/internal/db"
	"healthguide/internal/server"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	ctx := context.Background()

	var profiles server.ProfileStore
	var sessions server.SessionStore
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("database connect failed: %v", err)
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			log.Fatalf("database ping failed: %v", err)
		}
		if err := db.EnsureSchema(ctx, pool); err != nil {
			log.Fatalf("schema bootstrap failed: %v", err)
		}
		stores := server.NewPostgresStores(pool)
		profiles = stores
		sessions = stores
	} else {
		log.Printf("DATABASE_URL is empty, using in-memory stores")
		stores := server.NewMemoryStores()
		profiles = stores
		sessions = stores
	}

	var client server.ModelClient
	if strings.TrimSpace(cfg.OpenAIAPIKey) != "" {
		client = server.NewOpenAIClient(cfg)
	} else {
		log.Printf("OPENAI_API_KEY is empty, assessments use the heuristic path")
	}
	gateway := server.NewGateway(
		client,
		server.NewDenylistPolicy(),
		time.Duration(cfg.AITimeoutSeconds)*time.Second,
		cfg.AIMaxOutputTokens,
	)

	app := server.New(cfg, profiles, sessions, gateway)
	httpServer := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           app.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("healthguide api listening on http://localhost:%s", cfg.AppPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
