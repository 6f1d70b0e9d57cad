package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-library/internal/auth"
	auth_api "ms-library/internal/auth/api"
	"ms-library/internal/bookres"
	book_api "ms-library/internal/bookres/api"
	bookres_db "ms-library/internal/bookres/db"
	"ms-library/internal/catalog"
	catalog_api "ms-library/internal/catalog/api"
	catalog_db "ms-library/internal/catalog/db"
	"ms-library/internal/catalog/openlibrary"
	"ms-library/internal/config"
	"ms-library/internal/database/migrations"
	"ms-library/internal/kafka"
	"ms-library/internal/logger"
	"ms-library/internal/models"
	"ms-library/internal/penalty"
	penalty_db "ms-library/internal/penalty/db"
	"ms-library/internal/sweep"
	"ms-library/internal/tableres"
	table_api "ms-library/internal/tableres/api"
	tableres_db "ms-library/internal/tableres/db"
	"ms-library/internal/tableres/qr"
	rediswrap "ms-library/internal/tableres/redis"
	"ms-library/internal/users"
	user_api "ms-library/internal/users/api"
	users_db "ms-library/internal/users/db"
)

const dbConnectAttempts = 5

func postgresDSN(cfg config.DatabaseConfig) string {
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		return dsn
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database)
}

func verifyConnections(ctx context.Context, cfg *config.Config, log *logger.Logger) (*bun.DB, *redis.Client) {
	dsn := postgresDSN(cfg.Database)

	var sqldb *sql.DB
	var err error
	for attempt := 1; attempt <= dbConnectAttempts; attempt++ {
		sqldb, err = sql.Open("postgres", dsn)
		if err == nil {
			err = sqldb.PingContext(ctx)
		}
		if err == nil {
			break
		}
		log.Warn("DATABASE", fmt.Sprintf("PostgreSQL connection attempt %d/%d failed: %v", attempt, dbConnectAttempts, err))
		time.Sleep(time.Duration(attempt) * time.Second)
	}
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("PostgreSQL connection error: %v", err))
	}
	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)
	log.Info("DATABASE", "✅ PostgreSQL connection successful")

	bunDB := bun.NewDB(sqldb, pgdialect.New())
	bunDB.RegisterModel((*models.BookAuthor)(nil), (*models.BookGenre)(nil))

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}
	log.Info("DATABASE", fmt.Sprintf("✅ Redis connection successful to %s", cfg.Redis.Addr))

	return bunDB, redisClient
}

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting Library Service initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	ctx := context.Background()

	log.Info("APP", "Verifying database connections")
	bunDB, redisClient := verifyConnections(ctx, cfg, log)
	defer bunDB.Close()
	defer redisClient.Close()

	migrateOpts := migrations.DefaultOptions()
	if dir := os.Getenv("MIGRATIONS_DIR"); dir != "" {
		migrateOpts.MigrationsDir = dir
	}
	migrateOpts.SeedData = os.Getenv("SEED_DATA") == "true"
	runner := migrations.NewRunner(bunDB, migrateOpts, log)
	if err := runner.RunMigrations(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Migrations failed: %v", err))
	}

	if !cfg.Kafka.Enabled {
		log.Warn("KAFKA", "Kafka disabled, falling back to mock mode")
		cfg.Kafka.MockMode = true
	}
	producer := kafka.NewProducer(cfg.Kafka, log)
	defer producer.Close()
	if cfg.Kafka.Enabled && !cfg.Kafka.MockMode {
		requiredTopics := []string{
			cfg.Kafka.Topics.ReservationEvents,
			cfg.Kafka.Topics.PenaltyEvents,
		}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, requiredTopics, log); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			log.Info("KAFKA", "Required topics ensured successfully")
		}
	}

	penaltyService := penalty.NewService(&penalty_db.DB{Bun: bunDB}, producer, log, cfg.Rules)
	bookService := bookres.NewService(&bookres_db.DB{Bun: bunDB}, producer, log, cfg.Rules)
	tableService := tableres.NewService(
		&tableres_db.DB{Bun: bunDB},
		rediswrap.NewHolds(redisClient, log, cfg.Redis.HoldTTL),
		qr.NewQRGenerator(cfg.Auth.QRSecret),
		producer,
		log,
		cfg.Rules,
	)
	catalogService := catalog.NewService(&catalog_db.DB{Bun: bunDB}, openlibrary.NewClient(cfg.Catalog, log), log)
	userService := users.NewService(&users_db.DB{Bun: bunDB}, penaltyService, log)
	authService := auth.NewService(&users_db.DB{Bun: bunDB}, penaltyService, log, cfg.Auth)

	authHandler := auth_api.NewHandler(authService, log)
	bookHandler := book_api.NewHandler(bookService, penaltyService, log)
	tableHandler := table_api.NewHandler(tableService, penaltyService, log)
	catalogHandler := catalog_api.NewHandler(catalogService, log)
	userHandler := user_api.NewHandler(userService, penaltyService, log)

	mw := auth.NewMiddleware(cfg.Auth.JWTSecret, log)

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Authorization", "Accept"},
		AllowCredentials: false,
		MaxAge:           600,
	}))

	r.Route("/api", func(r chi.Router) {
		// --- Public Routes ---
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Get("/books", catalogHandler.List)
		r.Get("/books/{bookId}", catalogHandler.Get)
		r.Get("/tables", tableHandler.ListTables)
		log.Info("ROUTER", "Public auth and catalog routes registered")

		// --- Protected Routes ---
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireUser)
			log.Info("AUTH", "JWT middleware applied to protected API routes")

			r.Route("/reservations/books", func(r chi.Router) {
				r.Post("/", bookHandler.Checkout)
				r.Get("/", bookHandler.MyActive)
				r.Get("/history", bookHandler.MyHistory)
			})

			r.Route("/reservations/tables", func(r chi.Router) {
				r.Post("/", tableHandler.Reserve)
				r.Get("/", tableHandler.MyReservations)
				r.Delete("/{reservationId}", tableHandler.Cancel)
			})

			r.Route("/me", func(r chi.Router) {
				r.Get("/", userHandler.Profile)
				r.Put("/name", userHandler.ChangeName)
				r.Put("/password", userHandler.ChangePassword)
				r.Get("/penalties", userHandler.PenaltyHistory)
			})
			log.Info("ROUTER", "Reservation and profile routes registered")

			// --- Admin Routes ---
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireAdmin)

				r.Post("/books", catalogHandler.Create)
				r.Put("/books/{bookId}", catalogHandler.Update)
				r.Delete("/books/{bookId}", catalogHandler.Delete)
				r.Post("/books/import", catalogHandler.Import)

				r.Get("/admin/reservations/books", bookHandler.ListAll)
				r.Post("/admin/reservations/books/sweep", bookHandler.Sweep)
				r.Post("/admin/reservations/books/{reservationId}/return", bookHandler.Return)

				r.Get("/admin/reservations/tables", tableHandler.ListAll)
				r.Post("/admin/reservations/tables/sweep", tableHandler.Sweep)
				r.Post("/admin/reservations/tables/{reservationId}/arrive", tableHandler.MarkArrived)

				r.Get("/admin/users", userHandler.ListUsers)
				r.Delete("/admin/users/{userId}", userHandler.DeleteUser)
				log.Info("ROUTER", "Admin routes registered")
			})
		})
	})

	scheduler, err := sweep.NewScheduler(bookService, tableService, cfg.Sweep, log)
	if err != nil {
		log.Fatal("SWEEP", fmt.Sprintf("Scheduler setup failed: %v", err))
	}
	scheduler.Start()
	log.Info("SWEEP", "Overdue sweep scheduler started")

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("🚀 Library Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	scheduler.Stop()
	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "✅ Library Service shutdown complete")
	}
}
