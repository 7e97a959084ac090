package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/ignite/affiliate-ops/internal/affiliate"
	"github.com/ignite/affiliate-ops/internal/api"
	"github.com/ignite/affiliate-ops/internal/config"
	"github.com/ignite/affiliate-ops/internal/links"
	"github.com/ignite/affiliate-ops/internal/pkg/distlock"
	"github.com/ignite/affiliate-ops/internal/pkg/logger"
	"github.com/ignite/affiliate-ops/internal/ranking"
	"github.com/ignite/affiliate-ops/internal/repository/postgres"
	"github.com/ignite/affiliate-ops/internal/service/catalog"
	"github.com/ignite/affiliate-ops/internal/service/reporting"
	"github.com/ignite/affiliate-ops/internal/storage"
	"github.com/ignite/affiliate-ops/internal/tracking"
)

// checkPortAvailable verifies that the target port is not already in use.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v\n"+
			"  Hint: Run 'lsof -i :%d' to find the blocking process", port, addr, err, port)
	}
	ln.Close()
	return nil
}

func extractHost(dsn string) string {
	at := strings.Index(dsn, "@")
	if at < 0 {
		return "(unknown)"
	}
	rest := dsn[at+1:]
	if slash := strings.Index(rest, "/"); slash >= 0 {
		rest = rest[:slash]
	}
	return rest
}

func configPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "config/config.yaml"
}

func openDB(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnLifetime())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func openRedis(cfg config.RedisConfig) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis connection failed (%s): %v, falling back to PG advisory locks", cfg.Addr, err)
		client.Close()
		return nil
	}
	return client
}

func thresholds(cfg config.CollectorConfig) affiliate.Thresholds {
	t := affiliate.DefaultThresholds()
	t.MinPrice = cfg.MinPrice
	t.MinCommission = cfg.MinCommission
	t.MinRating = cfg.MinRating
	t.MinReviews = cfg.MinReviews
	return t
}

func main() {
	log.Println("Starting affiliate ops API server...")

	cfg, err := config.LoadFromEnv(configPath())
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	logger.SetRedact(cfg.Logging.RedactEnabled())

	host := cfg.Server.GetHost()
	if err := checkPortAvailable(host, cfg.Server.Port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.New(ctx, cfg.AWS)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	log.Printf("Report archive: %s", store.Backend())

	selector := ranking.NewSelector(nil)
	opts := []api.Option{
		api.WithSelector(selector),
		api.WithArchive(store),
		api.WithDefaultTopN(cfg.Ranking.DefaultTopN),
	}

	if cfg.Tracking.BaseURL != "" {
		lb, err := links.NewBuilder(cfg.Tracking.BaseURL, cfg.Tracking.LinkTemplate, cfg.Tracking.SigningSecret)
		if err != nil {
			log.Fatalf("Failed to parse link template: %v", err)
		}
		opts = append(opts, api.WithLinks(lb))
	}

	var (
		db     *sql.DB
		rdb    *redis.Client
		pinger api.Pinger
		cache  redis.UniversalClient
		hub    *api.ScoreHub
	)

	if cfg.Redis.Addr != "" {
		if rdb = openRedis(cfg.Redis); rdb != nil {
			defer rdb.Close()
			cache = rdb
			log.Printf("Redis connected: %s", cfg.Redis.Addr)
		}
	}

	if cfg.Database.URL != "" {
		db, err = openDB(cfg.Database)
		if err != nil {
			log.Fatalf("Failed to connect to database at %s: %v", extractHost(cfg.Database.URL), err)
		}
		defer db.Close()
		pinger = db
		log.Printf("Connected to database at %s", extractHost(cfg.Database.URL))

		catalogSvc := catalog.NewService(postgres.NewOfferRepo(db),
			catalog.WithSelector(selector),
			catalog.WithLocks(distlock.NewFactory(rdb, db, cfg.Ranking.LockTTL())),
			catalog.WithThresholds(thresholds(cfg.Collector)),
			catalog.WithDefaultTopN(cfg.Ranking.DefaultTopN),
		)

		var clicks reporting.ClickSource
		if rdb != nil {
			clicks = tracking.NewClickCounter(rdb)
		}
		reportSvc := reporting.NewService(postgres.NewEventRepo(db), clicks, store)

		opts = append(opts, api.WithCatalog(catalogSvc), api.WithReports(reportSvc))

		hub = api.NewScoreHub(cfg.Database.URL)
		hub.Start(ctx)
	} else {
		log.Println("DATABASE_URL not set: catalog and report endpoints disabled")
	}

	health := api.NewHealthChecker(pinger, cache, store.Backend())
	server := api.NewServer(cfg.Server, api.NewHandlers(opts...), health, hub)

	addr := fmt.Sprintf("%s:%d", host, cfg.Server.Port)
	go func() {
		log.Printf("API server listening on %s", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	log.Println("Server stopped")
}
