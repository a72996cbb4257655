package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/gallery/internal/app"
	"github.com/snappy-loop/gallery/internal/config"
	"github.com/snappy-loop/gallery/internal/database"
	"github.com/snappy-loop/gallery/internal/handlers"
	"github.com/snappy-loop/gallery/migrations"
)

func main() {
	cfg := config.Load()
	app.SetupLogging(cfg.LogLevel)

	if len(os.Args) > 1 && os.Args[1] == "create-key" {
		if err := createKey(cfg, os.Args[2:]); err != nil {
			log.Fatal().Err(err).Msg("Failed to create API key")
		}
		return
	}

	log.Info().Msg("Starting Gallery API")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize gallery")
	}
	a.Run(ctx)

	deps := handlers.Deps{
		Gallery:    a.Gallery,
		Sessions:   a.Sessions,
		References: a.References,
		Quota:      a.Quota,
	}
	if a.Media != nil {
		deps.Media = a.Media
	}
	if a.DB != nil {
		deps.DB = a.DB
	}
	h := handlers.NewHandler(deps)
	r := handlers.NewRouter(h, a.Auth.Middleware)

	srv := &http.Server{
		Addr:        cfg.HTTPAddr,
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		// Story creation waits on the writer model; websockets are hijacked.
		WriteTimeout: cfg.RequestTimeout + 15*time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down API...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}
	a.Close(shutdownCtx)
	log.Info().Msg("API exited")
}

// createKey stores a new API key and prints it once.
func createKey(cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: api create-key <label>")
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required to store API keys")
	}
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := migrations.Run(db.SQLDB()); err != nil {
		return err
	}

	plain, key, err := database.NewAPIKeyRepository(db).CreateAPIKey(context.Background(), args[0])
	if err != nil {
		return err
	}
	log.Info().Str("api_key_id", key.ID.String()).Str("label", key.Label).Msg("API key created")
	fmt.Println(plain)
	return nil
}
