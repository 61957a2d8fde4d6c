package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/careloop/portal-api/internal/config"
	"github.com/careloop/portal-api/internal/email"
	"github.com/careloop/portal-api/internal/handler"
	appointmentHandler "github.com/careloop/portal-api/internal/handler/appointment"
	chatHandler "github.com/careloop/portal-api/internal/handler/chat"
	doctorHandler "github.com/careloop/portal-api/internal/handler/doctor"
	patientHandler "github.com/careloop/portal-api/internal/handler/patient"
	videoHandler "github.com/careloop/portal-api/internal/handler/video"
	"github.com/careloop/portal-api/internal/identity"
	"github.com/careloop/portal-api/internal/middleware"
	"github.com/careloop/portal-api/internal/repository/postgres"
	"github.com/careloop/portal-api/internal/router"
	appointmentService "github.com/careloop/portal-api/internal/service/appointment"
	chatService "github.com/careloop/portal-api/internal/service/chat"
	doctorService "github.com/careloop/portal-api/internal/service/doctor"
	patientService "github.com/careloop/portal-api/internal/service/patient"
	videoService "github.com/careloop/portal-api/internal/service/video"
	"github.com/careloop/portal-api/pkg/auth"
	"github.com/careloop/portal-api/pkg/kv"
	"github.com/careloop/portal-api/pkg/logger"
	redisBroker "github.com/careloop/portal-api/pkg/messaging/redis"
	"github.com/careloop/portal-api/pkg/metrics"
	"github.com/careloop/portal-api/pkg/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(&logger.Config{
		Level:  parseLevel(cfg.Logger.Level),
		Pretty: cfg.Logger.Pretty,
	})
	zl := log.Zerolog()

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	appointmentRepo := postgres.NewAppointmentRepository(db)
	doctorRepo := postgres.NewDoctorRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	videoRepo := postgres.NewVideoRepository(db)

	redisURL := fmt.Sprintf("redis://:%s@%s/%d", cfg.Redis.Password, cfg.Redis.Addr, cfg.Redis.DB)
	broker, err := redisBroker.NewBroker(redisBroker.Config{URL: redisURL}, zl)
	if err != nil {
		log.Fatal(err, "failed to connect to Redis broker")
	}
	defer broker.Close()

	store, err := kv.NewRedisStore(redisURL, "portal")
	if err != nil {
		log.Fatal(err, "failed to connect to Redis store")
	}
	defer store.Close()

	files, err := storage.NewFSStore(cfg.Storage.Dir, cfg.Storage.BaseURL)
	if err != nil {
		log.Fatal(err, "failed to initialize file storage")
	}

	var notifier email.Service
	if cfg.SMTP.Host != "" {
		notifier = email.NewSMTPService(email.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
	}

	m := metrics.New("portal", "api")

	resolver := identity.NewResolver(
		[]identity.DoctorProvider{
			identity.NewDemoCodeProvider(store, doctorRepo),
			identity.NewSessionEmailProvider(doctorRepo),
		},
		patientRepo,
		store,
		zl,
	)

	appointmentSvc := appointmentService.NewService(appointmentRepo, patientRepo, doctorRepo, broker, notifier, zl)
	doctorSvc := doctorService.NewService(doctorRepo)
	patientSvc := patientService.NewService(patientRepo)
	videoSvc := videoService.NewService(videoRepo, patientRepo, appointmentRepo, files, zl)
	chatProxy := chatService.NewProxy(chatService.Config{
		BaseURL: cfg.Chat.BaseURL,
		Timeout: time.Duration(cfg.Chat.TimeoutSeconds) * time.Second,
	}, m, zl)

	tokens := auth.NewTokenService(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
	authMiddleware := middleware.NewAuthMiddleware(tokens)

	h := handler.NewHandler()
	r := router.NewRouter(
		authMiddleware,
		appointmentHandler.NewHandler(appointmentSvc, resolver),
		doctorHandler.NewHandler(doctorSvc, resolver),
		patientHandler.NewHandler(patientSvc, resolver),
		videoHandler.NewHandler(videoSvc, resolver),
		chatHandler.NewHandler(chatProxy),
		h,
		router.RouterConfig{
			RateLimitRPS:   cfg.RateLimit.RequestsPerSecond,
			RateLimitBurst: cfg.RateLimit.Burst,
			CORSConfig:     middleware.DefaultCORSConfig(),
			MetricsPrefix:  "portal_api",
			Timeout:        time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
			Logger:         zl,
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		log.Info("starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err, "failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error(err, "forced shutdown")
	}
}

func parseLevel(level string) logger.Level {
	switch level {
	case "debug":
		return logger.DebugLevel
	case "warn":
		return logger.WarnLevel
	case "error":
		return logger.ErrorLevel
	default:
		return logger.InfoLevel
	}
}
