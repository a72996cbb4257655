// Package app wires the gallery's collaborators from configuration. The api
// and audio binaries share it so both serve the same catalog and references.
package app

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/gallery/internal/auth"
	"github.com/snappy-loop/gallery/internal/catalog"
	"github.com/snappy-loop/gallery/internal/config"
	"github.com/snappy-loop/gallery/internal/database"
	"github.com/snappy-loop/gallery/internal/kafka"
	"github.com/snappy-loop/gallery/internal/llm"
	"github.com/snappy-loop/gallery/internal/metrics"
	"github.com/snappy-loop/gallery/internal/models"
	"github.com/snappy-loop/gallery/internal/playback"
	"github.com/snappy-loop/gallery/internal/quota"
	"github.com/snappy-loop/gallery/internal/services"
	"github.com/snappy-loop/gallery/internal/session"
	"github.com/snappy-loop/gallery/internal/storage"
	"github.com/snappy-loop/gallery/internal/tasks"
	"github.com/snappy-loop/gallery/migrations"
)

// SetupLogging configures the global zerolog logger.
func SetupLogging(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// App holds every long-lived collaborator. DB, Storage and Producer are nil
// when their backing service is not configured.
type App struct {
	Config     *config.Config
	DB         *database.DB
	Storage    *storage.Client
	Producer   *kafka.Producer
	LLM        *llm.Client
	Media      *playback.MemoryStore
	References *playback.Registry
	Tasks      *tasks.Registry
	Sessions   *session.Manager
	Gallery    *services.GalleryService
	Auth       *auth.Service
	Quota      *quota.Service
}

// New connects the configured backends and builds the gallery service.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	var stories catalog.Repository
	var keyStore auth.KeyStore
	if cfg.DatabaseURL != "" {
		db, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := migrations.Run(db.SQLDB()); err != nil {
			db.Close()
			return nil, err
		}
		a.DB = db
		stories = database.NewStoryRepository(db)
		keyStore = database.NewAPIKeyRepository(db)
	} else {
		log.Warn().Msg("DATABASE_URL not set; catalog is kept in memory and only API_KEYS are accepted")
		stories = catalog.NewMemoryStore()
	}
	if err := catalog.EnsureSeeded(ctx, stories); err != nil {
		a.closeDB()
		return nil, err
	}

	authService, err := auth.NewService(keyStore, cfg.APIKeys)
	if err != nil {
		a.closeDB()
		return nil, err
	}
	a.Auth = authService
	a.Quota = quota.NewService(cfg.StoryQuota, cfg.StoryQuotaPeriod)

	var publisher services.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		a.Producer = kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicEvents)
		publisher = a.Producer
	}

	var refStore playback.Store
	var coverStorage services.CoverStorage
	if cfg.S3Bucket != "" {
		client, err := storage.NewClient(ctx, storage.Options{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			UseSSL:    cfg.S3UseSSL,
			PublicURL: cfg.S3PublicURL,
		})
		if err != nil {
			log.Warn().Err(err).Msg("S3 not available; narration is served from memory")
		} else {
			a.Storage = client
			refStore = playback.NewS3Store(client)
			coverStorage = client
		}
	}
	if refStore == nil {
		a.Media = playback.NewMemoryStore(cfg.PublicBase)
		refStore = a.Media
	}

	a.References = playback.NewRegistry(refStore, cfg.ReferenceTTL,
		playback.OnAcquire(func(playback.Reference) { metrics.ReferenceAcquired() }),
		playback.OnRelease(func(ref playback.Reference, reason playback.ReleaseReason) {
			metrics.ReferenceReleased(string(reason))
			a.publish(&models.Event{
				Type:        models.EventNarrationReleased,
				SessionID:   &ref.SessionID,
				ReferenceID: &ref.ID,
				Meta:        map[string]interface{}{"reason": string(reason)},
			})
		}),
	)
	a.Tasks = tasks.NewRegistry()
	a.Sessions = session.NewManager(a.Tasks, a.References, cfg.SessionIdleTimeout,
		session.OnClose(func(id uuid.UUID) {
			a.publish(&models.Event{Type: models.EventSessionClosed, SessionID: &id})
		}),
	)

	a.LLM = llm.NewClient(llm.Options{
		APIKey:      cfg.GeminiAPIKey,
		APIEndpoint: cfg.GeminiAPIEndpoint,
		ModelText:   cfg.GeminiModelText,
		ModelPro:    cfg.GeminiModelPro,
		ModelImage:  cfg.GeminiModelImage,
		ModelTTS:    cfg.GeminiModelTTS,
		TTSVoice:    cfg.GeminiTTSVoice,
	})

	a.Gallery = services.NewGalleryService(services.Deps{
		Stories:      stories,
		Writer:       a.LLM,
		Speech:       a.LLM,
		Covers:       a.LLM,
		CoverStorage: coverStorage,
		Events:       publisher,
		Sessions:     a.Sessions,
		Tasks:        a.Tasks,
		References:   a.References,
	}, cfg)

	return a, nil
}

// Run starts the reference sweeper and the idle session janitor. It returns
// immediately; both stop when ctx is done.
func (a *App) Run(ctx context.Context) {
	go a.References.RunSweeper(ctx, a.Config.SweepInterval)
	go a.Sessions.RunJanitor(ctx, a.Config.SweepInterval)
}

// Close tears down sessions (cancelling their tasks and releasing their
// references) and then the backends.
func (a *App) Close(ctx context.Context) {
	a.Sessions.CloseAll(ctx)
	a.Tasks.Close()
	if a.Producer != nil {
		if err := a.Producer.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close Kafka producer")
		}
	}
	if err := a.LLM.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close LLM client")
	}
	a.closeDB()
}

func (a *App) closeDB() {
	if a.DB != nil {
		a.DB.Close()
	}
}

// publish sends lifecycle events raised outside the gallery service. It must
// not block the registry or session locks held by the caller.
func (a *App) publish(ev *models.Event) {
	if a.Producer == nil {
		return
	}
	ev.ID = uuid.New()
	ev.OccurredAt = time.Now()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.Producer.PublishEvent(ctx, ev); err != nil {
			log.Error().Err(err).Str("event", ev.Type).Msg("Failed to publish event")
		}
	}()
}
