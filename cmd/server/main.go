package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/iliyamo/umbrella-rental/internal/config"
	"github.com/iliyamo/umbrella-rental/internal/database"
	"github.com/iliyamo/umbrella-rental/internal/handler"
	"github.com/iliyamo/umbrella-rental/internal/logging"
	"github.com/iliyamo/umbrella-rental/internal/middleware"
	"github.com/iliyamo/umbrella-rental/internal/queue"
	"github.com/iliyamo/umbrella-rental/internal/repository"
	"github.com/iliyamo/umbrella-rental/internal/router"
	"github.com/iliyamo/umbrella-rental/internal/service"
	"github.com/iliyamo/umbrella-rental/internal/validation"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.WithError(err).Warn("could not read .env")
	}
	cfg := config.Load()
	logging.Setup(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.DBAutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.WithError(err).Fatal("schema migration failed")
		}
	}

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}

	var events service.EventPublisher = service.NopPublisher{}
	if cfg.EventsEnabled {
		url := queue.BrokerURL()
		events = queue.NewPublisher(url)
		audit := logging.RotatingFile(cfg.RentalEventLog)
		defer audit.Close()
		go func() {
			if err := queue.StartRentalConsumer(ctx, url, audit); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("rental consumer stopped")
			}
		}()
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	umbrellas := repository.NewUmbrellaRepo(db)
	stations := repository.NewStationRepo(db)
	rentalsRepo := repository.NewRentalRepo(db)
	dashboard := repository.NewDashboardRepo(db)

	ledger := service.NewLedger(db, repository.NewCreditRepo(db))
	accounts := service.NewAccountService(db, ledger, cfg.BcryptCost, cfg.SignupCredits)
	rentals := service.NewRentalService(db, ledger, events, service.RentalConfig{
		Credits:       cfg.RentalCredits,
		MaxWindow:     cfg.RentalMaxWindow,
		DefaultWindow: cfg.RentalDefaultWindow,
	})
	go rentals.RunSweeper(ctx, cfg.ExpirySweepInterval)

	e := echo.New()
	e.HideBanner = true
	e.Validator = validation.NewEchoValidator()
	e.HTTPErrorHandler = handler.ErrorHandler
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{AllowOrigins: cfg.CORSOrigins}))
	e.Use(middleware.RequestLogger())

	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens, accounts), cfg.JWTSecret, limiter)
	router.RegisterPublic(e, handler.NewBrowseHandler(umbrellas, stations))
	router.RegisterUser(e, router.UserHandlers{
		Profile: handler.NewProfileHandler(users, accounts),
		Rentals: handler.NewRentalHandler(rentals),
		Credits: handler.NewCreditHandler(ledger),
	}, cfg.JWTSecret)
	router.RegisterAdmin(e, router.AdminHandlers{
		Users:     handler.NewAdminUserHandler(cfg, users, accounts, ledger),
		Umbrellas: handler.NewAdminUmbrellaHandler(db),
		Dashboard: handler.NewDashboardHandler(dashboard, users, umbrellas, rentalsRepo),
	}, cfg.JWTSecret, config.LoadCacheConfig(), rdb)

	addr := ":" + cfg.Port
	go func() {
		log.WithFields(log.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
	log.Info("server stopped")
}
