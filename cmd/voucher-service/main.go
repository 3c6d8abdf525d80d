package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/voucherly/voucher-service/internal/api"
	apimw "github.com/voucherly/voucher-service/internal/api/middleware"
	"github.com/voucherly/voucher-service/internal/cache"
	"github.com/voucherly/voucher-service/internal/config"
	"github.com/voucherly/voucher-service/internal/repository"
	"github.com/voucherly/voucher-service/internal/service"
	"github.com/voucherly/voucher-service/pkg/db"
)

const serviceName = "voucher-service"

func main() {
	cfg := config.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	logger := zlog.With().Str("service", serviceName).Logger()

	conn, err := db.NewPostgresConnection(db.LoadPostgresConfig())
	if err != nil {
		logger.Fatal().Err(err).Msg("db connect")
	}
	defer conn.Close()

	// Storage and services are built once here and injected; see api.Deps.
	voucherRepo := repository.NewVoucherRepo(conn)
	redemptionRepo := repository.NewRedemptionRepo(conn)
	engine := service.NewRedemptionService(voucherRepo, redemptionRepo, logger)
	admin := service.NewAdminService(voucherRepo, redemptionRepo, logger)

	handler := api.NewRouter(api.Deps{
		Engine:    engine,
		Admin:     admin,
		Cache:     cache.NewVoucherCache(cfg.CacheTTL),
		JWTSecret: []byte(cfg.JWTSecret),
		Logger:    logger,
	})

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      apimw.RequestLogger(logger)(handler),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// graceful shutdown
	idleConnsClosed := make(chan struct{})
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt)
		<-c
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("HTTP server shutdown")
		}
		close(idleConnsClosed)
	}()

	logger.Info().Str("addr", cfg.HTTPAddr).Msg("starting voucher-service")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("listen")
	}

	<-idleConnsClosed
	logger.Info().Msg("server stopped")
}
