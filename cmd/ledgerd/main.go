package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"economy-ledger/internal/cache"
	"economy-ledger/internal/config"
	"economy-ledger/internal/handler"
	"economy-ledger/internal/repository"
	"economy-ledger/internal/router"
	"economy-ledger/internal/service"

	_ "github.com/go-sql-driver/mysql"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting economy-ledger...")

	// Load configuration
	cfg := config.MustLoad()
	log.Printf("Environment: %s", cfg.App.Environment)

	// Initialize ledger repository based on config
	var ledger repository.Ledger
	switch cfg.Ledger.Backend {
	case "sqlite":
		sqliteLedger, err := repository.NewSQLiteLedger(cfg.Ledger.SQLitePath)
		if err != nil {
			log.Fatalf("Failed to initialize SQLite ledger: %v", err)
		}
		ledger = sqliteLedger
		log.Println("SQLite ledger initialized")
	case "mysql":
		db, err := sql.Open("mysql", cfg.Database.DSN())
		if err != nil {
			log.Fatalf("Failed to open MySQL: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
		if err := db.Ping(); err != nil {
			log.Fatalf("Failed to ping MySQL: %v", err)
		}
		mysqlLedger, err := repository.NewMySQLLedger(db)
		if err != nil {
			log.Fatalf("Failed to initialize MySQL ledger: %v", err)
		}
		ledger = mysqlLedger
		log.Println("MySQL ledger initialized")
	default: // jsonfile
		fileLedger, err := repository.NewJSONFileLedger(cfg.Ledger.Path)
		if err != nil {
			log.Fatalf("Failed to initialize JSON file ledger: %v", err)
		}
		ledger = fileLedger
		log.Println("JSON file ledger initialized")
	}
	defer ledger.Close()

	// Initialize read cache
	var readCache cache.Cache
	switch cfg.Cache.Type {
	case "redis":
		redisCache, err := cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddress(),
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		if err != nil {
			log.Printf("Warning: Redis connection failed, using memory cache: %v", err)
			readCache = cache.NewMemoryCache()
		} else {
			readCache = redisCache
			log.Println("Redis cache initialized")
		}
	case "none":
		// caching disabled
	default: // memory
		readCache = cache.NewMemoryCache()
		log.Println("Memory cache initialized")
	}
	if readCache != nil {
		defer readCache.Close()
	}

	// Initialize services
	ledgerService := service.NewLedgerService(ledger, readCache, cfg.Cache.TTL)
	if ledgerService == nil {
		log.Fatal("Failed to initialize ledger service")
	}

	var sweeper *service.ExpirySweeper
	if cfg.Sweeper.Enabled {
		sweeper = service.NewExpirySweeper(ledger, service.SweeperConfig{
			Interval:  cfg.Sweeper.Interval,
			BatchSize: cfg.Sweeper.BatchSize,
		})
		sweeper.Start()
	}

	// Initialize handlers
	healthHandler := handler.New(cfg.App.Name, cfg.App.Version)
	adminHandler := handler.NewAdminHandler(ledger, sweeper, cfg.Ledger.Backend)

	// Create router
	r := router.New(router.Config{
		Handler:      healthHandler,
		AdminHandler: adminHandler,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Ops server listening on %s", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	if sweeper != nil {
		sweeper.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Stopped")
}
