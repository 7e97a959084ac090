package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/affiliate-ops/internal/config"
	"github.com/ignite/affiliate-ops/internal/domain"
	"github.com/ignite/affiliate-ops/internal/links"
	"github.com/ignite/affiliate-ops/internal/pkg/logger"
	"github.com/ignite/affiliate-ops/internal/storage"
	"github.com/ignite/affiliate-ops/internal/tracking"
)

func main() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/config.yaml"
	}
	cfg, err := config.LoadFromEnv(path)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	logger.SetRedact(cfg.Logging.RedactEnabled())

	if cfg.Tracking.SigningSecret == "" {
		log.Fatal("TRACKING_SECRET is required")
	}
	if cfg.AWS.ClickQueueURL == "" {
		log.Fatal("CLICK_QUEUE_URL is required")
	}

	lb, err := links.NewBuilder(cfg.Tracking.BaseURL, cfg.Tracking.LinkTemplate, cfg.Tracking.SigningSecret)
	if err != nil {
		log.Fatalf("link template: %v", err)
	}

	awsCfg, err := storage.LoadAWSConfig(context.Background(), cfg.AWS)
	if err != nil {
		log.Fatalf("aws config: %v", err)
	}
	sqsClient := sqs.NewFromConfig(awsCfg)

	clickPub := tracking.NewPublisher(sqsClient, cfg.AWS.ClickQueueURL)
	router := tracking.Router{domain.EventClick: clickPub}
	var convPub *tracking.Publisher
	if cfg.AWS.ConversionQueueURL != "" {
		convPub = tracking.NewPublisher(sqsClient, cfg.AWS.ConversionQueueURL)
		router[domain.EventConversion] = convPub
	} else {
		log.Println("CONVERSION_QUEUE_URL not set: postbacks are accepted but not queued")
	}

	var clicks tracking.ClickRecorder
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		clicks = tracking.NewClickCounter(rdb)
	}

	handler := tracking.NewHandler(lb, router, clicks, cfg.Tracking.PostbackToken)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Tracking.Port),
		Handler:      middleware.Recoverer(handler.Routes()),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("tracking service listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down tracking service...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(ctx)

	clickPub.Wait()
	if convPub != nil {
		convPub.Wait()
	}
}
