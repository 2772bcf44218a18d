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

	"github.com/odontosys/agenda-api/internal/config"
	"github.com/odontosys/agenda-api/internal/handler"
	appointmentHandler "github.com/odontosys/agenda-api/internal/handler/appointment"
	"github.com/odontosys/agenda-api/internal/middleware"
	"github.com/odontosys/agenda-api/internal/repository/postgres"
	"github.com/odontosys/agenda-api/internal/router"
	appointmentService "github.com/odontosys/agenda-api/internal/service/appointment"
	"github.com/odontosys/agenda-api/pkg/logger"
	redisbroker "github.com/odontosys/agenda-api/pkg/messaging/redis"
	"github.com/odontosys/agenda-api/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.New(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	appointmentRepo := postgres.NewAppointmentRepository(db)

	broker, err := redisbroker.NewRedisBroker(redisbroker.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, &appLogger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	m := metrics.NewMetrics("agenda", "scheduler")

	appointmentSvc := appointmentService.NewService(appointmentRepo, broker, m, appLogger, cfg.Scheduling)

	h := handler.NewHandler()
	aptHandler := appointmentHandler.NewHandler(appointmentSvc)
	authMiddleware := middleware.NewAuthMiddleware(cfg.Auth.Secret)

	r := router.NewRouter(authMiddleware, aptHandler, h, cfg)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
