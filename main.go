package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	intconfig "nemt/internal/config"
	intdb "nemt/internal/db"
	"nemt/internal/events"
	router "nemt/internal/http"
	"nemt/internal/http/handlers"
	"nemt/internal/repositories"
	"nemt/internal/services"
	"nemt/internal/storage"
	"nemt/internal/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	env := intconfig.LoadEnv()
	utils.SetLogger(utils.NewLogger(os.Stdout, env.ServiceName, utils.ParseLevel(env.LogLevel)))

	if err := run(env); err != nil {
		utils.Logger().Error("server exited", "error", err)
		os.Exit(1)
	}
}

// run owns every resource it opens, so all cleanup happens before main exits.
func run(env intconfig.Env) error {
	log := utils.Logger()

	if env.GinMode != "" {
		gin.SetMode(env.GinMode)
	}

	var (
		store repositories.Store
		db    *sql.DB
	)
	switch env.DBDriver {
	case "memory":
		store = repositories.NewMemoryStore()
		log.Warn("using in-memory store, data is lost on restart")
	case "mysql":
		conn, err := intconfig.ConnectDB(env.DBDSN)
		if err != nil {
			return err
		}
		defer intconfig.CloseDB()
		db = conn

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err = intdb.Migrate(ctx, db)
		cancel()
		if err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
		store = repositories.NewMySQLStore(db)
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", env.DBDriver)
	}

	publisher, err := newPublisher(env)
	if err != nil {
		return fmt.Errorf("connect %s event publisher: %w", env.EventsBackend, err)
	}
	defer publisher.Close()

	notifications := services.NotificationService{Store: store, Publisher: publisher}
	hd := handlers.Handler{
		Trips: services.TripService{Store: store, Notifications: notifications},
		Reports: services.ReportService{
			Store:         store,
			Notifications: notifications,
			Files:         storage.ReportFiles{Root: env.ReportsRoot},
		},
		Notifications: notifications,
		Billing:       services.BillingService{Store: store, Rates: utils.RateTable{MileageRate: env.MileageRateCents}},
		Fleet:         services.FleetService{Store: store},
		DB:            db,
	}

	r := router.NewRouter(env, hd)

	srv := &http.Server{
		Addr:              env.AppAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", env.AppAddr, "db_driver", env.DBDriver, "events", env.EventsBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return err
	case <-quit:
	}

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}

func newPublisher(env intconfig.Env) (events.Publisher, error) {
	switch env.EventsBackend {
	case "", "none":
		return events.NopPublisher{}, nil
	case "redis":
		return events.NewRedisPublisher(env.RedisAddr, env.RedisPassword), nil
	case "amqp":
		p, err := events.NewAMQPPublisher(env.AMQPURL, env.AMQPExchange)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, errors.New("unsupported EVENTS_BACKEND " + env.EventsBackend)
	}
}
