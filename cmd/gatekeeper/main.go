package main

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/rumsan/gatekeeper/adapters/cache"
	"github.com/rumsan/gatekeeper/adapters/events"
	"github.com/rumsan/gatekeeper/adapters/oidc"
	"github.com/rumsan/gatekeeper/adapters/store"
	"github.com/rumsan/gatekeeper/adapters/tokenizer"
	"github.com/rumsan/gatekeeper/config"
	"github.com/rumsan/gatekeeper/ports"
	"github.com/rumsan/gatekeeper/service"
	"github.com/rumsan/gatekeeper/settings"
	"github.com/rumsan/gatekeeper/transport/http"
)

func main() {
	log := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}
	if level, perr := logrus.ParseLevel(cfg.LogLevel); perr == nil {
		log.SetLevel(level)
	}

	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
	})

	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: redisClient,
		},
		watermill.NewStdLogger(false, false),
	)
	if err != nil {
		log.WithError(err).Fatal("failed to create event publisher")
	}

	tok, err := tokenizer.NewJWTTokenizer(cfg.AppSecret, cfg.TokenTTL())
	if err != nil {
		log.WithError(err).Fatal("failed to create tokenizer")
	}

	ctx := context.Background()

	var verifier ports.IdentityVerifier
	if cfg.GoogleClientID != "" {
		verifier, err = oidc.NewGoogleVerifier(ctx, cfg.GoogleClientID)
		if err != nil {
			log.WithError(err).Fatal("failed to create google verifier")
		}
	}

	settingsService := settings.NewService(store.NewPostgresSettingStore(db), log)
	if err := settingsService.Load(ctx); err != nil {
		log.WithError(err).Fatal("failed to load settings")
	}

	authService, err := service.NewAuthService(
		cfg.AppSecret,
		store.NewPostgresStore(db),
		cache.NewRedisCache(redisClient),
		tok,
		events.NewWatermillPublisher(publisher),
		verifier,
		log,
	)
	if err != nil {
		log.WithError(err).Fatal("failed to create auth service")
	}

	router := http.SetupRouter(authService, settingsService)

	log.WithField("addr", cfg.ListenAddr).Info("starting server")
	if err := router.Run(cfg.ListenAddr); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}
