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

	"github.com/avelichko/storefront/internal/cart"
	"github.com/avelichko/storefront/internal/config"
	"github.com/avelichko/storefront/internal/events"
	"github.com/avelichko/storefront/internal/httpserver"
	"github.com/avelichko/storefront/internal/logging"
	"github.com/avelichko/storefront/internal/middleware/requestlog"
	"github.com/avelichko/storefront/internal/search"
	"github.com/avelichko/storefront/internal/storeapi"
)

func main() {
	cfg := config.Load()
	config.MustNonEmpty(cfg.StoreURL, "STORE_URL")

	logger := logging.New(cfg.ServiceName, cfg.LogLevel)

	client := storeapi.NewClient(cfg.StoreURL)
	view := cart.NewViewStore(cfg.CatalogTTL, logger)

	var notifier cart.Notifier = cart.NopNotifier{}
	var producer *events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = events.NewProducer(cfg.KafkaBrokers, cfg.CartTopic, logger)
		notifier = producer
	}

	var searchSvc *search.Service
	if cfg.ESURL != "" {
		esClient, err := search.NewClient(cfg.ESURL, cfg.ESUser, cfg.ESPassword)
		if err != nil {
			log.Fatalf("elasticsearch init error: %v", err)
		}
		searchSvc = search.NewService(esClient, "product", logger)
	}

	var indexer cart.Indexer
	if searchSvc != nil {
		indexer = searchSvc
	}
	catalogSrc := cart.NewCatalogSource(client, view, indexer, logger)
	cartSrc := cart.NewCartSource(client, view, logger)
	engine := cart.NewUpsertEngine(client, view, notifier, logger)
	session := httpserver.NewSession()

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(requestlog.RequestLogger(logger))

	httpserver.Register(e, &httpserver.Deps{
		SessionHandler: &httpserver.SessionHandler{
			Client:     client,
			View:       view,
			CatalogSrc: catalogSrc,
			CartSrc:    cartSrc,
			Session:    session,
		},
		CartHandler: &httpserver.CartHandler{
			View:       view,
			Engine:     engine,
			CatalogSrc: catalogSrc,
			CartSrc:    cartSrc,
			Session:    session,
		},
		ProductHandler: &httpserver.ProductHandler{View: view, CatalogSrc: catalogSrc},
		SearchHandler:  &httpserver.SearchHandler{Search: searchSvc},
	})

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:     e,
		ReadTimeout: 10 * time.Second,
		// no WriteTimeout: /cart/events holds its response open
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()
	logger.Info("storefront started", "addr", srv.Addr, "store_url", cfg.StoreURL)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Printf("kafka close error: %v", err)
		}
	}

	log.Println("shutdown complete")
}
