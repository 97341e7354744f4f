package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/afzalhamdulay1/videoTube/internal/api"
	"github.com/afzalhamdulay1/videoTube/internal/auth"
	"github.com/afzalhamdulay1/videoTube/internal/cache"
	"github.com/afzalhamdulay1/videoTube/internal/config"
	"github.com/afzalhamdulay1/videoTube/internal/db"
	apperrors "github.com/afzalhamdulay1/videoTube/internal/errors"
	"github.com/afzalhamdulay1/videoTube/internal/health"
	"github.com/afzalhamdulay1/videoTube/internal/logger"
	"github.com/afzalhamdulay1/videoTube/internal/media"
	"github.com/afzalhamdulay1/videoTube/internal/metrics"
	"github.com/afzalhamdulay1/videoTube/internal/middleware"
	"github.com/afzalhamdulay1/videoTube/internal/users"
)

const version = "1.0.0"

func main() {
	cfg := config.Load()

	database, err := db.New(cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	userRepo := db.NewUserRepository(database)
	subscriptionRepo := db.NewSubscriptionRepository(database)
	videoRepo := db.NewVideoRepository(database)

	mediaStore := media.NewS3Store(&media.S3Config{
		Endpoint:     cfg.S3Endpoint,
		Region:       cfg.S3Region,
		AccessKey:    cfg.S3AccessKey,
		SecretKey:    cfg.S3SecretKey,
		Bucket:       cfg.S3Bucket,
		UsePathStyle: cfg.S3UsePathStyle,
		PublicBase:   cfg.MediaPublicBase,
	})

	mediaClient, err := media.NewClient(&media.ClientConfig{
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3Bucket,
		UseSSL:    cfg.S3UseSSL,
	})
	if err != nil {
		log.Fatalf("Failed to create media client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := mediaClient.EnsureBucket(ctx); err != nil {
		log.Fatalf("Failed to ensure media bucket: %v", err)
	}
	cancel()

	// The cache is an optimization; the service runs without it.
	var profileCache users.ProfileCache
	var cacheCheck func(ctx context.Context) error
	if c, err := cache.New(cfg.RedisAddr); err == nil {
		defer c.Close()
		profileCache = c
		cacheCheck = c.Ping
	} else {
		log.Printf("Redis unavailable, channel profile caching disabled: %v", err)
	}

	tokens := auth.NewTokenService(userRepo, cfg.AccessTokenSecret, cfg.RefreshTokenSecret,
		cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	authService := auth.NewService(userRepo, mediaStore, tokens)
	authHandlers := auth.NewHandlers(authService, auth.CookieSettings{
		Secure:     cfg.CookieSecure,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	}, cfg.MaxUploadBytes)

	profileService := users.NewProfileService(userRepo, mediaStore)
	channelService := users.NewChannelService(userRepo, videoRepo, subscriptionRepo, profileCache)
	userHandlers := users.NewHandlers(profileService, channelService, cfg.MaxUploadBytes)

	checker := health.NewChecker(&health.CheckerConfig{
		DB:           database.DB,
		CacheCheck:   cacheCheck,
		StorageCheck: mediaClient.Ping,
		Version:      version,
	})

	m := metrics.Default()

	router := api.NewRouter(
		authHandlers,
		userHandlers,
		tokens,
		media.NewServeHandler(mediaClient),
		health.NewHandler(checker),
		m.Handler(),
	)

	handler := middleware.Chain(router,
		apperrors.RequestIDMiddleware,
		middleware.Recoverer(logger.Default()),
		logger.LoggingMiddleware,
		metrics.MetricsMiddleware(m),
		middleware.CORS(cfg.CORSAllowedOrigins),
	)

	log.Printf("Starting server on %s", cfg.ServerAddr)
	if err := http.ListenAndServe(cfg.ServerAddr, handler); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
