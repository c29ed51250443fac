package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	"github.com/rpattn/tablekit/internal/app"
	"github.com/rpattn/tablekit/internal/auth"
	"github.com/rpattn/tablekit/internal/config"
	"github.com/rpattn/tablekit/internal/db"
	"github.com/rpattn/tablekit/internal/export"
	"github.com/rpattn/tablekit/internal/middleware"
	"github.com/rpattn/tablekit/internal/render"
)

func main() {
	configPath := flag.String("config", ".", "directory containing config.yaml")
	migrate := flag.Bool("migrate", true, "apply preset migrations on startup")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *migrate && cfg.Presets.Store == config.PresetStorePostgres {
		if err := db.RunMigrations(cfg.Database); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	application, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialise tables: %v", err)
	}
	defer application.Close()

	mux := http.NewServeMux()
	mux.Handle("POST /tables/{name}/render", render.NewHTTPHandler(application.Tables, render.JSONRenderer{}, ""))
	mux.Handle("GET /tables/{name}/export", export.NewHTTPHandler(application.Exports, application.Tables))

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})
	handler := corsHandler.Handler(middleware.LoggingMiddleware(auth.OwnerMiddleware(mux)))

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting table server on %s", cfg.Server.Addr)
		log.Printf("Tables: %v", application.Tables.Names())

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
