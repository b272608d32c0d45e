package main // Entry point package

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/camera-management/internal/config"
	"github.com/iliyamo/camera-management/internal/database"
	"github.com/iliyamo/camera-management/internal/handler"
	"github.com/iliyamo/camera-management/internal/logger"
	"github.com/iliyamo/camera-management/internal/metrics"
	"github.com/iliyamo/camera-management/internal/queue"
	"github.com/iliyamo/camera-management/internal/repository"
	"github.com/iliyamo/camera-management/internal/router"
	"github.com/iliyamo/camera-management/internal/service"
	"github.com/iliyamo/camera-management/internal/utils"
)

func main() {
	_ = godotenv.Load() // .env is optional

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("config")
	}
	log := logger.New(cfg.LogLevel, cfg.IsDev(), os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

func run(ctx context.Context, cfg config.Config, log *logrus.Logger) error {
	ln, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		return err
	}
	return serve(ctx, cfg, log, ln)
}

// serve runs the API on ln until ctx is cancelled or the server fails.
// In-flight requests get 10s to finish, then pending audit events are
// flushed before the publisher closes.
func serve(ctx context.Context, cfg config.Config, log *logrus.Logger, ln net.Listener) error {
	defer ln.Close()

	db, err := database.Open(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(ctx, db, cfg.DBDriver, log); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var pub service.EventPublisher = service.NopPublisher{}
	if cfg.AMQPURL != "" {
		ap := service.NewAMQPPublisher(cfg.AMQPURL, log)
		defer ap.Close()
		pub = ap
	}
	audit := handler.NewAuditor(pub, log)
	defer audit.Wait()

	if cfg.AuditConsumer && cfg.AMQPURL != "" {
		consumer := &queue.AuditConsumer{URL: cfg.AMQPURL, LogPath: cfg.AuditLogPath, Log: log}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("audit consumer stopped")
			}
		}()
	}

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}

	users := repository.NewUserRepo(db)
	tokens := utils.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	auth, err := service.NewAuthService(users, tokens, cfg.BcryptCost)
	if err != nil {
		return err
	}

	e := router.New(router.Deps{
		Log:         log,
		Metrics:     m,
		Gatherer:    reg,
		Tokens:      tokens,
		Users:       users,
		Auth:        handler.NewAuthHandler(auth, audit, m, log),
		Cameras:     handler.NewCameraHandler(repository.NewCameraRepo(db), audit, log),
		CORSOrigins: cfg.CORSOrigins,
		RateLimit:   config.LoadRateLimitConfig(),
		Cache:       config.LoadCacheConfig(),
		Redis:       rdb,
	})

	e.Listener = ln
	errc := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{"addr": ln.Addr().String(), "env": cfg.Env, "db": cfg.DBDriver}).Info("listening")
		errc <- e.Start("")
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
