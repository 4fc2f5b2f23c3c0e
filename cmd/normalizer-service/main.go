package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/synaptica-ai/medrecords/pkg/common/config"
	"github.com/synaptica-ai/medrecords/pkg/common/database"
	"github.com/synaptica-ai/medrecords/pkg/common/kafka"
	"github.com/synaptica-ai/medrecords/pkg/common/logger"
	"github.com/synaptica-ai/medrecords/pkg/common/middleware"
	"github.com/synaptica-ai/medrecords/pkg/delivery"
	"github.com/synaptica-ai/medrecords/pkg/dlp"
	"github.com/synaptica-ai/medrecords/pkg/normalizer"
	"github.com/synaptica-ai/medrecords/pkg/observability/metrics"
	"github.com/synaptica-ai/medrecords/pkg/storage"
)

func main() {
	logger.Init()
	cfg := config.Load()

	pipeline, err := normalizer.LoadPipeline(cfg.ParserVersion, cfg.ProfilePath, cfg.TerminologyPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to build parsing pipeline")
	}

	db, err := database.GetPostgres(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}
	defer database.ClosePostgres()

	repo := normalizer.NewRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate document tables")
	}
	observations := storage.NewObservationWriter(db)
	if err := observations.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate observation tables")
	}

	redis := database.GetRedis(cfg)
	defer database.CloseRedis()

	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.ParsedTopic)
	defer producer.Close()

	deps := normalizer.Dependencies{
		Pipeline:     pipeline,
		Documents:    repo,
		Cache:        storage.NewDocumentCache(redis, cfg.DocumentCacheTTL),
		Observations: observations,
		Publisher:    producer,
	}
	if client := delivery.New(delivery.OptionsFromConfig(cfg)); client != nil {
		deps.Delivery = client
	}
	if cfg.RedactNotes {
		rules, err := dlp.LoadRules(cfg.DLPRulesPath)
		if err != nil {
			logger.Log.WithError(err).Fatal("failed to load DLP rules")
		}
		detector, err := dlp.NewDetector(rules)
		if err != nil {
			logger.Log.WithError(err).Fatal("failed to compile DLP rules")
		}
		deps.Redactor = detector
	}

	svc := normalizer.NewService(deps, cfg.ParserVersion)

	var dlq *kafka.Producer
	if cfg.DeadLetterTopic != "" {
		dlq = kafka.NewProducer(cfg.KafkaBrokers, cfg.DeadLetterTopic)
		defer dlq.Close()
	}
	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.RawTopic, cfg.KafkaGroupID, dlq)
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := consumer.Consume(ctx, svc.HandleEvent); err != nil && ctx.Err() == nil {
			logger.Log.WithError(err).Fatal("Consumer error")
		}
	}()

	router := mux.NewRouter()
	router.Use(
		middleware.Recovery,
		middleware.Logging,
		middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		middleware.BodyLimit(cfg.MaxRequestBody),
	)
	router.HandleFunc("/health", healthCheck).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	normalizer.NewHTTPHandler(svc).Register(router.PathPrefix("/api/v1").Subrouter())

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"host":           cfg.ServerHost,
			"port":           cfg.ServerPort,
			"parser_version": cfg.ParserVersion,
			"redact_notes":   cfg.RedactNotes,
			"delivery":       deps.Delivery != nil,
		}).Info("Normalizer Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Normalizer Service...")
	cancel()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("Normalizer Service stopped")
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
