package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/affiliate-ops/internal/affiliate"
	"github.com/ignite/affiliate-ops/internal/config"
	"github.com/ignite/affiliate-ops/internal/pkg/distlock"
	"github.com/ignite/affiliate-ops/internal/pkg/logger"
	"github.com/ignite/affiliate-ops/internal/repository/postgres"
	"github.com/ignite/affiliate-ops/internal/service/catalog"
	"github.com/ignite/affiliate-ops/internal/service/reporting"
	"github.com/ignite/affiliate-ops/internal/storage"
	"github.com/ignite/affiliate-ops/internal/tracking"
	"github.com/ignite/affiliate-ops/internal/worker"
)

func main() {
	log.Println("Starting affiliate ops worker...")

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/config.yaml"
	}
	cfg, err := config.LoadFromEnv(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	logger.SetRedact(cfg.Logging.RedactEnabled())

	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnLifetime())

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	pingCancel()
	log.Println("Connected to database")

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := postgres.NewEventRepo(db)

	// Queue consumers
	var consumers []*tracking.Consumer
	if cfg.AWS.ClickQueueURL != "" || cfg.AWS.ConversionQueueURL != "" {
		awsCfg, err := storage.LoadAWSConfig(ctx, cfg.AWS)
		if err != nil {
			log.Fatalf("aws config: %v", err)
		}
		sqsClient := sqs.NewFromConfig(awsCfg)
		for _, url := range []string{cfg.AWS.ClickQueueURL, cfg.AWS.ConversionQueueURL} {
			if url == "" {
				continue
			}
			c := tracking.NewConsumer(sqsClient, url, events)
			c.Start(ctx)
			consumers = append(consumers, c)
		}
	} else {
		log.Println("No queue URLs configured: SQS consumers disabled")
	}

	// Collection and re-ranking
	var (
		source catalog.OfferSource
		client *affiliate.Client
	)
	switch {
	case cfg.Collector.BaseURL != "":
		client = affiliate.NewClient(affiliate.Config{
			BaseURL:   cfg.Collector.BaseURL,
			PartnerID: cfg.Collector.PartnerID,
			APIKey:    cfg.Collector.APIKey,
			Secret:    cfg.Collector.Secret,
			PageSize:  cfg.Collector.PageSize,
		})
		source = affiliate.NewAPISource(client)
		log.Println("Offer source: affiliate API")
	case len(cfg.Collector.FeedURLs) > 0:
		source = affiliate.NewFeedSet(affiliate.NewFeedSource(cfg.Collector.FeedCommission), cfg.Collector.FeedURLs)
		log.Printf("Offer source: product feeds for %d niches", len(cfg.Collector.FeedURLs))
	default:
		log.Println("No offer source configured: re-ranking stored offers only")
	}

	th := affiliate.DefaultThresholds()
	th.MinPrice = cfg.Collector.MinPrice
	th.MinCommission = cfg.Collector.MinCommission
	th.MinRating = cfg.Collector.MinRating
	th.MinReviews = cfg.Collector.MinReviews

	catalogSvc := catalog.NewService(postgres.NewOfferRepo(db),
		catalog.WithLocks(distlock.NewFactory(rdb, db, cfg.Ranking.LockTTL())),
		catalog.WithThresholds(th),
		catalog.WithDefaultTopN(cfg.Ranking.DefaultTopN),
	)
	refresher := worker.NewRankRefresher(catalogSvc, source, cfg.Ranking.RefreshInterval(), cfg.Ranking.Diversify)
	go refresher.Start(ctx)

	if client != nil {
		go worker.NewConversionSync(client, events).Start(ctx)
	}

	// Daily report archive
	store, err := storage.New(ctx, cfg.AWS)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	var clicks reporting.ClickSource
	if rdb != nil {
		clicks = tracking.NewClickCounter(rdb)
	}
	go worker.NewReportArchiver(reporting.NewService(events, clicks, store)).Start(ctx)

	log.Println("Worker running...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down worker...")
	for _, c := range consumers {
		c.Stop()
	}
	cancel()

	runs, ranked, errs := refresher.Stats()
	log.Printf("Worker stopped (refresh runs=%d ranked=%d errors=%d)", runs, ranked, errs)
}
