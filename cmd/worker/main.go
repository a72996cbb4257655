package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/gallery/internal/app"
	"github.com/snappy-loop/gallery/internal/config"
	"github.com/snappy-loop/gallery/internal/database"
	"github.com/snappy-loop/gallery/internal/kafka"
	"github.com/snappy-loop/gallery/internal/models"
	"github.com/snappy-loop/gallery/migrations"
)

// EventRecorder implements kafka.EventHandler by storing every event.
type EventRecorder struct {
	events *database.EventRepository
}

func (h *EventRecorder) HandleEvent(ctx context.Context, ev *models.Event) error {
	log.Debug().
		Str("event_id", ev.ID.String()).
		Str("type", ev.Type).
		Msg("Recording gallery event")
	return h.events.Record(ctx, ev)
}

func main() {
	cfg := config.Load()
	app.SetupLogging(cfg.LogLevel)

	log.Info().Msg("Starting Gallery Worker")

	if cfg.DatabaseURL == "" || len(cfg.KafkaBrokers) == 0 {
		log.Fatal().Msg("DATABASE_URL and KAFKA_BROKERS are required for the worker")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := migrations.Run(db.SQLDB()); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	consumer := kafka.NewConsumer(
		cfg.KafkaBrokers,
		cfg.KafkaTopicEvents,
		cfg.KafkaConsumerGroup,
		&EventRecorder{events: database.NewEventRepository(db)},
	)
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := consumer.Start(ctx); err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("Kafka consumer error")
		}
	}()

	log.Info().Msg("Worker started, recording gallery events...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker...")
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("Consumer shutdown complete")
	case <-time.After(30 * time.Second):
		log.Warn().Msg("Consumer shutdown timeout")
	}

	log.Info().Msg("Worker exited")
}
