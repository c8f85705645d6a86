package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/immxrtalbeast/axenix_signal/internal/api/http"
	"github.com/immxrtalbeast/axenix_signal/internal/config"
	"github.com/immxrtalbeast/axenix_signal/internal/hub"
	"github.com/immxrtalbeast/axenix_signal/internal/repository"
	"github.com/immxrtalbeast/axenix_signal/internal/repository/model"
	"github.com/immxrtalbeast/axenix_signal/internal/service"
	"github.com/immxrtalbeast/axenix_signal/lib/logger/sl"
	"github.com/immxrtalbeast/axenix_signal/lib/logger/slogpretty"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	_ = godotenv.Load(".env")

	cfg := config.MustLoad()
	log := setupLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	meetingRepo, closeStore, err := setupMeetingRepository(ctx, cfg.Storage)
	if err != nil {
		log.Error("failed to set up meeting storage", slog.String("driver", cfg.Storage.Driver), sl.Err(err))
		os.Exit(1)
	}
	defer closeStore()

	transport := hub.New(log)
	registry := service.NewRoomRegistry(cfg.Rooms.Capacity, log)
	relay := service.NewRelay(registry, transport, log)

	signalingService := service.NewSignalingService(meetingRepo, registry, relay, transport, log)
	meetingService := service.NewMeetingService(meetingRepo, log)

	router := httpapi.SetupRouter(httpapi.RouterDeps{
		Meetings: httpapi.NewMeetingController(meetingService, registry, log),
		Signal: httpapi.NewSignalController(transport, signalingService, hub.Options{
			ReadLimit:  cfg.WebSocket.ReadLimit,
			WriteWait:  cfg.WebSocket.WriteWait,
			PongWait:   cfg.WebSocket.PongWait,
			SendBuffer: cfg.WebSocket.SendBuffer,
		}, log),
		Rooms:  registry,
		HTTP:   cfg.HTTP,
		WebRTC: cfg.WebRTC,
	})

	srv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: router,
	}

	go func() {
		log.Info("starting application",
			slog.String("addr", cfg.HTTP.Address),
			slog.String("storage", cfg.Storage.Driver),
			slog.Int("room_capacity", registry.Capacity()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server stopped", sl.Err(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", sl.Err(err))
	}
	log.Info("server exited")
}

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = setupPrettySlog()
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = setupPrettySlog()
	}

	return log
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}

func setupMeetingRepository(ctx context.Context, cfg config.StorageConfig) (repository.MeetingRepository, func(), error) {
	switch cfg.Driver {
	case config.StorageMemory:
		return repository.NewInMemoryMeetingRepository(), func() {}, nil
	case config.StoragePostgres:
		db, err := connectDatabase(cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		return repository.NewPostgresMeetingRepository(db), closeFn, nil
	case config.StorageMongo:
		client, err := connectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(disconnectCtx)
		}
		repo := repository.NewMongoMeetingRepository(client.Database(cfg.MongoDatabase), cfg.MongoCollection)
		return repo, closeFn, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func connectDatabase(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, errors.New("database dsn is empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&model.Meeting{}); err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

func connectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is empty")
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}
