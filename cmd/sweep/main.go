// One-shot sweep: marks overdue book loans and missed table
// reservations, applies penalties, then exits. Useful from cron or a
// Kubernetes Job when the in-process scheduler is disabled.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-library/internal/bookres"
	bookres_db "ms-library/internal/bookres/db"
	"ms-library/internal/config"
	"ms-library/internal/kafka"
	"ms-library/internal/logger"
	"ms-library/internal/tableres"
	tableres_db "ms-library/internal/tableres/db"
	"ms-library/internal/tableres/qr"
	rediswrap "ms-library/internal/tableres/redis"
)

func main() {
	log := logger.NewLogger()
	defer log.Close()

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	}
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
			cfg.Database.Username, cfg.Database.Password,
			cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)
	}
	sqldb, err := sql.Open("postgres", dsn)
	if err == nil {
		err = sqldb.PingContext(ctx)
	}
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("PostgreSQL connection error: %v", err))
	}
	defer sqldb.Close()
	bunDB := bun.NewDB(sqldb, pgdialect.New())

	if !cfg.Kafka.Enabled {
		cfg.Kafka.MockMode = true
	}
	producer := kafka.NewProducer(cfg.Kafka, log)
	defer producer.Close()

	// Redis is only dialed on reserve, which a sweep never does.
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	defer redisClient.Close()

	now := time.Now()

	bookService := bookres.NewService(&bookres_db.DB{Bun: bunDB}, producer, log, cfg.Rules)
	swept, err := bookService.SweepOverdue(ctx, now)
	if err != nil {
		log.Fatal("SWEEP", fmt.Sprintf("Book sweep failed: %v", err))
	}
	log.Info("SWEEP", fmt.Sprintf("Book sweep marked %d loans overdue", swept))

	tableService := tableres.NewService(
		&tableres_db.DB{Bun: bunDB},
		rediswrap.NewHolds(redisClient, log, cfg.Redis.HoldTTL),
		qr.NewQRGenerator(cfg.Auth.QRSecret),
		producer,
		log,
		cfg.Rules,
	)
	missed, err := tableService.SweepMissed(ctx, now)
	if err != nil {
		log.Fatal("SWEEP", fmt.Sprintf("Table sweep failed: %v", err))
	}
	log.Info("SWEEP", fmt.Sprintf("Table sweep penalized %d missed reservations", missed))
}
