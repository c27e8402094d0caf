package main

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/country-cache/internal/config"
	"github.com/iliyamo/country-cache/internal/database"
	"github.com/iliyamo/country-cache/internal/handler"
	appmw "github.com/iliyamo/country-cache/internal/middleware"
	"github.com/iliyamo/country-cache/internal/queue"
	"github.com/iliyamo/country-cache/internal/repository"
	"github.com/iliyamo/country-cache/internal/router"
	"github.com/iliyamo/country-cache/internal/service"
)

func main() {
	_ = godotenv.Load() // optional .env for local development
	cfg := config.Load()

	// The database must be open and migrated before any traffic is served.
	db, err := database.Acquire(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer func() { _ = database.Close() }()

	if err := database.Migrate(context.Background(), db); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	countryRepo := repository.NewCountryRepo(db)
	statusRepo := repository.NewStatusRepo(db)
	images := service.NewImageService(cfg.ImagePath)
	refresher := service.NewRefreshService(countryRepo, images, cfg, queue.PublishCountriesRefreshed)

	// Redis is optional: a nil client turns the cache and limiter into
	// pass-throughs.
	rdb := config.NewRedisClient()
	cacheMW := appmw.NewRedisCache(config.LoadCacheConfig(), rdb)
	limitMW := appmw.NewRateLimiter(config.LoadRateLimitConfig(), rdb)

	go func() {
		if err := queue.StartRefreshConsumer(); err != nil {
			log.Printf("refresh consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.RequestID())
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())
	e.HTTPErrorHandler = router.JSONErrorHandler

	router.RegisterRoutes(e,
		handler.NewCountryHandler(countryRepo, statusRepo),
		handler.NewRefreshHandler(refresher, images),
		cacheMW, limitMW)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
