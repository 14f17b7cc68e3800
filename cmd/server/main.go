package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/arjun-mighty/MeetingRoom-BookingSystem/internal/auth"
	"github.com/arjun-mighty/MeetingRoom-BookingSystem/internal/config"
	"github.com/arjun-mighty/MeetingRoom-BookingSystem/internal/database"
	"github.com/arjun-mighty/MeetingRoom-BookingSystem/internal/handler"
	"github.com/arjun-mighty/MeetingRoom-BookingSystem/internal/logging"
	"github.com/arjun-mighty/MeetingRoom-BookingSystem/internal/middleware"
	"github.com/arjun-mighty/MeetingRoom-BookingSystem/internal/queue"
	"github.com/arjun-mighty/MeetingRoom-BookingSystem/internal/repository"
	"github.com/arjun-mighty/MeetingRoom-BookingSystem/internal/repository/memstore"
	"github.com/arjun-mighty/MeetingRoom-BookingSystem/internal/router"
	"github.com/arjun-mighty/MeetingRoom-BookingSystem/internal/service"
)

func main() {
	cfg, err := config.Load() // Load environment config
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.New(cfg.IsDev(), cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	roomStore, bookingStore, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// Redis is optional: without it rate limiting and caching pass through.
	rdb, err := config.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Warn("redis unavailable; rate limiting and caching disabled", zap.Error(err))
	} else {
		defer func() { _ = rdb.Close() }()
	}

	var events service.EventPublisher
	if cfg.AuditEnabled {
		pub := queue.NewPublisher(cfg.RabbitMQURL, logger)
		defer func() { _ = pub.Close() }()
		events = pub
	}
	if cfg.AuditConsumerEnabled {
		consumer := &queue.Consumer{URL: cfg.RabbitMQURL, LogPath: cfg.AuditLogPath, Logger: logger}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("audit consumer stopped", zap.Error(err))
			}
		}()
	}

	rooms := service.NewRoomManager(roomStore, service.RoomManagerOptions{
		AllowSelfRename: cfg.AllowSelfRename,
		Logger:          logger,
		Events:          events,
	})
	bookings := service.NewBookingManager(bookingStore, rooms, service.BookingManagerOptions{
		Logger: logger,
		Events: events,
	})
	roomCache := middleware.NewResponseCache(cfg.Cache, rdb, "rooms", logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover(), middleware.RequestID(), middleware.RequestLogger(logger))
	router.RegisterRoutes(e, router.Deps{
		Identity:  auth.NewJWTProvider(cfg.JWTSecret),
		Rooms:     handler.NewRoomHandler(rooms, bookings, roomCache, logger),
		Bookings:  handler.NewBookingHandler(bookings, logger),
		RateLimit: middleware.RateLimit(cfg.RateLimit, rdb, logger),
		RoomCache: roomCache,
	})

	addr := ":" + cfg.Port // Address string with port
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("store", cfg.StoreDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// openStore picks the record store named by STORE_DRIVER and migrates the
// schema for the SQL drivers.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (service.RoomStore, service.BookingStore, func(), error) {
	if cfg.StoreDriver == config.DriverMemory {
		logger.Warn("using in-memory store; data is lost on restart")
		s := memstore.New()
		return s.Rooms(), s.Bookings(), func() {}, nil
	}

	d, err := database.ParseDialect(cfg.StoreDriver)
	if err != nil {
		return nil, nil, nil, err
	}
	var db *sql.DB
	if d == database.SQLite {
		db, err = database.OpenSQLite(cfg.SQLitePath)
	} else {
		db, err = database.OpenMySQL(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	}
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open %s store: %w", d, err)
	}
	if err := database.Migrate(ctx, db, d); err != nil {
		_ = db.Close()
		return nil, nil, nil, err
	}
	closeFn := func() { _ = db.Close() }
	return repository.NewRoomRepo(db, d), repository.NewBookingRepo(db, d), closeFn, nil
}
