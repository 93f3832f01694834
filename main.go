package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"media-ops/domain/repository"
	"media-ops/infrastructure/cache"
	youtubeclient "media-ops/infrastructure/clients/youtube"
	"media-ops/infrastructure/configuration"
	"media-ops/infrastructure/credentials"
	"media-ops/infrastructure/logger"
	"media-ops/infrastructure/objectstore"
	"media-ops/infrastructure/persistence"
	"media-ops/infrastructure/registry"
	httpHandler "media-ops/interfaces/http"
	"media-ops/server"
	"media-ops/usecase"

	"golang.org/x/sync/errgroup"
)

var httpServer *http.Server

func recoverPanic() {
	if err := recover(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
	}
}

func main() {
	defer recoverPanic()
	ctx := context.Background()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	g, ctx := errgroup.WithContext(ctx)

	// Load env from files (non-destructive; OS env still has precedence)
	configuration.LoadEnvFromFile("config.env", ".env")

	app := configuration.C.App

	// MongoDB holds the video catalog and is required.
	mongoClient, err := persistence.NewMongoDb(
		configuration.C.Database.Mongo.Host,
		configuration.C.Database.Mongo.Port,
		configuration.C.Database.Mongo.User,
		configuration.C.Database.Mongo.Password,
	)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Cannot connect to MongoDB")
		os.Exit(1)
	}
	if err := mongoClient.Ping(ctx, nil); err != nil {
		logger.GetLogger().WithField("error", err).Error("MongoDB ping failed")
		os.Exit(1)
	}
	logger.GetLogger().Info("MongoDB connected successfully")
	videoRepository := persistence.NewVideoRepository(mongoClient.Database(configuration.C.Database.Mongo.Name))

	// PostgreSQL backs the durable OAuth token store. Optional: without it
	// tokens live in memory and a restart requires reconnecting the account.
	var tokenRepository repository.IOAuthToken
	psqlDb, err := persistence.NewPostgreSQLDB()
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("PostgreSQL not available - OAuth tokens will not survive restarts")
	} else {
		if err := persistence.EnsureOAuthTokenSchema(psqlDb); err != nil {
			logger.GetLogger().WithField("error", err).Error("failed ensuring oauth token schema")
		}
		tokenRepository = persistence.NewOAuthTokenRepository(psqlDb)
	}

	// Redis persists upload session state across restarts. Optional.
	redisClient, err := cache.NewCache(
		ctx,
		fmt.Sprintf("%s:%s", configuration.C.RedisClient.Host, configuration.C.RedisClient.Port),
		configuration.C.RedisClient.Username,
		configuration.C.RedisClient.Password,
	)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Redis not available - session registry will be memory only")
		redisClient = nil
	}

	uploadRegistry := registry.NewUploadRegistry(redisClient)
	if err := uploadRegistry.Load(ctx); err != nil {
		logger.GetLogger().WithField("error", err).Warn("Failed to rehydrate upload sessions")
	}

	credentialManager := credentials.NewManager(&credentials.Config{
		ClientID:     configuration.C.YouTube.ClientID,
		ClientSecret: configuration.C.YouTube.ClientSecret,
		RedirectURL:  configuration.C.YouTube.RedirectURI,
		Scopes:       configuration.C.YouTube.Scopes,
	}, tokenRepository)

	transferClient := youtubeclient.NewResumableClient(credentialManager, &youtubeclient.Config{
		ChunkSize:   int64(configuration.C.Upload.ChunkSizeMB) << 20,
		MaxAttempts: configuration.C.Upload.MaxAttempts,
	})

	// Source objects come from a local directory or an HTTP base URL.
	var sourceStore repository.ISourceObject
	if configuration.C.Upload.SourceBaseURL != "" {
		sourceStore = objectstore.NewHTTPStore(configuration.C.Upload.SourceBaseURL)
	} else {
		sourceStore = objectstore.NewFileStore(configuration.C.Upload.SourceDir)
	}

	uploadUsecase := usecase.NewUploadUsecase(
		uploadRegistry,
		videoRepository,
		transferClient,
		sourceStore,
		configuration.C.Upload.Workers,
		configuration.C.Upload.QueueDepth,
		time.Duration(configuration.C.Upload.RetentionMinutes)*time.Minute,
	)
	g.Go(func() error {
		return uploadUsecase.Run(ctx)
	})

	sweepUsecase := usecase.NewSweepUsecase(videoRepository, uploadUsecase,
		configuration.C.Sweep.BatchLimit, configuration.C.Upload.Workers)

	// Internal sweep ticker; external schedulers can also hit the endpoint.
	if interval := configuration.C.Sweep.IntervalMinutes; interval > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(time.Duration(interval) * time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ticker.C:
					report, err := sweepUsecase.Sweep(ctx, time.Now())
					if err != nil {
						logger.GetLogger().WithField("error", err).Error("Scheduled sweep failed")
						continue
					}
					if report.Processed > 0 {
						logger.GetLogger().WithFields(map[string]interface{}{
							"processed": report.Processed,
							"succeeded": report.Succeeded,
							"failed":    report.Failed,
						}).Info("Scheduled sweep completed")
					}
				}
			}
		})
	}

	videoHandler := httpHandler.NewVideoHandler(videoRepository)
	uploadHandler := httpHandler.NewUploadHandler(uploadUsecase)
	scheduleHandler := httpHandler.NewScheduleHandler(sweepUsecase)
	authHandler := httpHandler.NewAuthHandler(credentialManager)

	router := server.InitiateRouter(videoHandler, uploadHandler, scheduleHandler, authHandler)

	port := app.Port
	logger.GetLogger().WithFields(map[string]interface{}{"port": port, "tls": app.TLSEnabled}).Info("Starting application")
	g.Go(func() error {
		httpServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: router,
		}
		if app.TLSEnabled {
			cert := app.TLSCertFile
			key := app.TLSKeyFile
			if cert == "" || key == "" {
				logger.GetLogger().Error("TLS enabled but cert or key path empty; falling back to HTTP")
				if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			} else {
				if err := httpServer.ListenAndServeTLS(cert, key); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			}
		} else {
			if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		}
		return nil
	})

	select {
	case <-interrupt:
		logger.GetLogger().Info("Application shutdown requested")
	case <-ctx.Done():
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if httpServer != nil {
		_ = httpServer.Shutdown(shutdownCtx)
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.GetLogger().WithField("error", err).Error("Server returned an error")
		os.Exit(2)
	}
}
