package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/avelichko/storefront/internal/config"
	"github.com/avelichko/storefront/internal/devstore"
	"github.com/avelichko/storefront/internal/logging"
	"github.com/avelichko/storefront/internal/middleware/requestlog"
)

// storeapi is a local stand-in for the remote store the storefront talks
// to in production. Postgres when DATABASE_URL is set, a sqlite file
// otherwise.
func main() {
	cfg := config.Load()
	config.MustNonEmptyBytes(cfg.JWTSecret, "JWT_SECRET")

	logger := logging.New("storeapi", cfg.LogLevel)

	dsn := cfg.DatabaseURL
	if dsn == "" {
		dsn = "storeapi.db"
	}

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := devstore.Open(initCtx, dsn)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	if err := devstore.Seed(db); err != nil {
		log.Fatalf("seed error: %v", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(requestlog.RequestLogger(logger))

	devstore.Register(e, &devstore.Deps{DB: db, JWTSecret: cfg.JWTSecret})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()
	logger.Info("storeapi started", "addr", srv.Addr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	}

	log.Println("shutdown complete")
}
