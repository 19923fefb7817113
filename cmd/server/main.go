// @title                       SOS Coordination Engine API
// @version                     1.0
// @description                 Emergency alerts, responder coordination and realtime fan-out.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/nearhelp/sos-engine/internal/api"
	"github.com/nearhelp/sos-engine/internal/api/handler"
	"github.com/nearhelp/sos-engine/internal/api/middleware"
	"github.com/nearhelp/sos-engine/internal/core/service"
	"github.com/nearhelp/sos-engine/internal/infrastructure/config"
	mongostore "github.com/nearhelp/sos-engine/internal/infrastructure/db/mongo"
	redisstore "github.com/nearhelp/sos-engine/internal/infrastructure/db/redis"
	"github.com/nearhelp/sos-engine/internal/infrastructure/guidance"
	"github.com/nearhelp/sos-engine/internal/infrastructure/jobs"
	"github.com/nearhelp/sos-engine/internal/infrastructure/queue"
	"github.com/nearhelp/sos-engine/internal/infrastructure/realtime"
	"github.com/nearhelp/sos-engine/pkg/logger"
)

const (
	shutdownTimeout = 15 * time.Second
	sweepSpec       = "@every 5m"
)

func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "sos-engine",
		Node:    nodeName(),
	})

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
	log.Info().Msg("server stopped")
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	mongoClient, db, err := mongostore.Connect(ctx, mongostore.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		Timeout:  cfg.Mongo.Timeout,
	})
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(dctx)
	}()

	incidents := mongostore.NewIncidentRepository(db)
	users := mongostore.NewUserRepository(db)
	if err := incidents.EnsureIndexes(ctx); err != nil {
		return err
	}
	if err := users.EnsureIndexes(ctx); err != nil {
		return err
	}

	rdb, err := redisstore.Connect(ctx, redisstore.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Timeout:  cfg.Redis.Timeout,

		ClientName: "sos-engine@" + nodeName(),
	})
	if err != nil {
		return err
	}
	defer rdb.Close()

	// --- Core ---
	hub := realtime.NewHub(redisstore.NewRelay(rdb, cfg.Redis.RelayChannel, log), log)
	reputation := service.NewReputationService(users, log)
	lifecycle := service.NewIncidentService(service.IncidentDeps{
		Incidents:  incidents,
		Users:      users,
		Proximity:  mongostore.NewProximityIndex(db),
		Reputation: reputation,
		Tx:         mongostore.NewTransactor(mongoClient),
		Publisher:  hub,
		OpTimeout:  cfg.OpTimeout,
	}, log)
	chat := service.NewChatService(incidents, incidents, hub, cfg.OpTimeout, log)
	advice := service.NewGuidanceService(
		incidents,
		redisstore.NewGuidanceCache(rdb, cfg.Guidance.TTL),
		guidance.NewClient(guidance.Config{
			URL:     cfg.Guidance.URL,
			APIKey:  cfg.Guidance.APIKey,
			Timeout: cfg.Guidance.Timeout,
		}),
		cfg.Guidance.Timeout,
		log,
	)
	admin := service.NewAdminService(incidents, users, lifecycle, reputation, log)
	auth := service.NewAuthService(users, cfg.JWTSecret, cfg.JWTTTL)

	dispatcher := queue.NewDispatcher(cfg.Hub.ChatWorkers, chat, log)
	dispatcher.Start(ctx)

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)

	scheduler := jobs.NewScheduler(incidents, log)
	if err := scheduler.Register(cfg.Jobs.GaugeSpec); err != nil {
		return err
	}
	if err := scheduler.Every(sweepSpec, "rate_limit_sweep", limiter.Sweep); err != nil {
		return err
	}
	scheduler.Start()

	// --- HTTP ---
	e := api.NewRouter(api.Deps{
		Logger:         log,
		JWTSecret:      cfg.JWTSecret,
		AllowedOrigins: cfg.AllowedOrigins,
		Auth:           auth,
		Incidents:      lifecycle,
		Chat:           chat,
		ChatQueue:      dispatcher,
		Guidance:       advice,
		Admin:          admin,
		Accounts:       users,
		Hub:            hub,
		ClientOptions: realtime.ClientOptions{
			SendBuffer:   cfg.Hub.SendBuffer,
			WriteTimeout: cfg.Hub.WriteTimeout,
			ChatRate:     rate.Limit(cfg.Hub.ChatRPS),
			ChatBurst:    cfg.Hub.ChatBurst,
		},
		Health:       []handler.DependencyCheck{handler.MongoCheck(db), handler.RedisCheck(rdb)},
		TriggerLimit: limiter,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return hub.Run(gctx)
	})
	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		hub.Shutdown()
		scheduler.Stop(sctx)
		return e.Shutdown(sctx)
	})

	return g.Wait()
}

func nodeName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "unknown"
	}
	return host
}
