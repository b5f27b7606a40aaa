package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pranaya890/LMS/internal/config"
	"github.com/pranaya890/LMS/internal/db"
	applog "github.com/pranaya890/LMS/internal/log"
	"go.uber.org/zap"
)

var (
	migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")
	seedFlag        = flag.Bool("seed", false, "Seed baseline data after migrating, then exit")
)

func main() {
	flag.Parse()
	_ = godotenv.Load()
	cfg := config.Load()

	dbConn, err := db.ConnectAndMigrate(cfg)
	if err != nil {
		applog.Fatal("database connection failed", zap.Error(err))
	}
	if *migrateOnlyFlag {
		applog.Info("migrations completed; exiting as requested")
		return
	}
	if *seedFlag {
		if err := db.Seed(dbConn); err != nil {
			applog.Fatal("seed failed", zap.Error(err))
		}
		applog.Info("seed completed; exiting as requested")
		return
	}

	applog.Info("starting server", zap.String("env", cfg.Env), zap.String("port", cfg.Port))
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: NewApp(dbConn, cfg)}

	go func() {
		applog.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			applog.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	applog.Info("shutdown signal received")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		applog.Error("error during shutdown", zap.Error(err))
	}
	applog.Info("server gracefully stopped")
}
