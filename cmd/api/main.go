package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	config "github.com/anjiri1684/matchchat/configs"
	"github.com/anjiri1684/matchchat/database"
	"github.com/anjiri1684/matchchat/handlers"
	"github.com/anjiri1684/matchchat/jobs"
	"github.com/anjiri1684/matchchat/logging"
	"github.com/anjiri1684/matchchat/middleware"
	"github.com/anjiri1684/matchchat/notifications"
	"github.com/anjiri1684/matchchat/presence"
	"github.com/anjiri1684/matchchat/repositories"
	"github.com/anjiri1684/matchchat/routes"
	"github.com/anjiri1684/matchchat/services"
	"github.com/anjiri1684/matchchat/websocket"
)

type store struct {
	messages repositories.MessageRepository
	users    repositories.UserRepository
	closer   func() error
}

func main() {
	settings, err := config.Load()
	if err != nil {
		log.Fatalf("🔥 %v", err)
	}

	appLog, logCloser, err := logging.New(logging.Options{
		Level:         settings.LogLevel,
		Path:          settings.LogPath,
		RotationHours: settings.LogRotationHours,
		MaxAgeDays:    settings.LogMaxAgeDays,
	})
	if err != nil {
		log.Fatalf("🔥 %v", err)
	}

	err = run(settings, appLog)
	if err != nil {
		appLog.Error("Server stopped", "error", err)
	}
	_ = logCloser.Close()
	if err != nil {
		os.Exit(1)
	}
}

func run(settings config.Settings, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(settings, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.closer(); err != nil {
			log.Error("Failed to close store", "error", err)
		}
	}()

	if settings.SeedUsersFile != "" {
		if err = database.SeedUsers(ctx, st.users, settings.SeedUsersFile, log); err != nil {
			return err
		}
	}

	notifier, err := newNotifier(ctx, settings, st.users, log)
	if err != nil {
		return err
	}
	dispatcher := notifications.NewDispatcher(notifier, settings.NotifyWorkers, settings.NotifyQueueSize, settings.NotifyTimeout, log)
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	dispatchDone := make(chan struct{})
	go func() {
		defer close(dispatchDone)
		_ = dispatcher.Run(dispatchCtx)
	}()

	registry := presence.NewRegistry(settings.PresenceShards)
	chat := services.NewChatService(st.messages, st.users, registry, dispatcher, settings.MaxContentLength, log)
	presenceService := services.NewPresenceService(registry, st.users, log)

	// Nobody is connected yet, so every stored online flag is stale.
	if flagged, err := presenceService.Sweep(ctx); err != nil {
		log.Warn("Boot presence sweep failed", "error", err)
	} else {
		log.Info("Boot presence sweep done", "flagged_offline", flagged)
	}

	scheduler := cron.New()
	if _, err = jobs.NewPresenceSweepJob(presenceService, time.Minute, log).Schedule(scheduler, settings.PresenceSweepSchedule); err != nil {
		return fmt.Errorf("schedule presence sweep: %w", err)
	}
	scheduler.Start()
	log.Info("✅ Cron job for presence sweep scheduled", "schedule", settings.PresenceSweepSchedule)

	app := fiber.New(fiber.Config{
		AppName:      settings.AppName,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorHandler: handlers.ErrorHandler(log),
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  strings.Join(settings.CORSOrigins, ","),
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, Authorization",
		MaxAge:        86400,
	}))
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	routes.PublicRoutes(app, settings.AppName)
	routes.MessagingRoutes(app,
		handlers.NewMessagingHandler(chat, settings.HistoryDefaultLimit, settings.HistoryMaxLimit),
		handlers.NewNotificationHandler(st.users, notifier, settings.AppName),
		websocket.Dependencies{
			Chat:     chat,
			Presence: presenceService,
			Authenticate: func(token string) (uuid.UUID, error) {
				return middleware.ParseToken(settings.JWTSecret, token)
			},
			Validate: validator.New(),
			Log:      log,
		},
		settings.JWTSecret,
	)

	listenErr := make(chan error, 1)
	go func() {
		log.Info("✅ Server is running", "port", settings.Port)
		listenErr <- app.Listen(fmt.Sprintf(":%d", settings.Port))
	}()

	select {
	case err = <-listenErr:
	case <-ctx.Done():
		log.Info("Shutting down")
		err = app.ShutdownWithTimeout(10 * time.Second)
	}

	<-scheduler.Stop().Done()
	stopDispatch()
	<-dispatchDone
	return err
}

func openStore(settings config.Settings, log *slog.Logger) (store, error) {
	switch settings.StoreDriver {
	case config.StoreBadger:
		db, err := database.OpenBadger(settings.BadgerPath)
		if err != nil {
			return store{}, err
		}
		return store{
			messages: repositories.NewBadgerMessageRepository(db, log),
			users:    repositories.NewBadgerUserRepository(db),
			closer:   db.Close,
		}, nil
	default:
		db, err := database.Connect(settings.DatabaseURL, log)
		if err != nil {
			return store{}, err
		}
		if err = database.Migrate(db, log); err != nil {
			return store{}, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return store{}, fmt.Errorf("database handle: %w", err)
		}
		return store{
			messages: repositories.NewGormMessageRepository(db),
			users:    repositories.NewGormUserRepository(db),
			closer:   sqlDB.Close,
		}, nil
	}
}

// newNotifier pushes through FCM when credentials are configured and only
// logs otherwise.
func newNotifier(ctx context.Context, settings config.Settings, users repositories.UserRepository, log *slog.Logger) (notifications.Notifier, error) {
	if settings.FirebaseCredentialsFile == "" {
		log.Warn("FIREBASE_CREDENTIALS_FILE not set, push notifications are logged only")
		return notifications.NewLogNotifier(log), nil
	}
	client, err := notifications.NewFirebaseMessaging(ctx, settings.FirebaseCredentialsFile)
	if err != nil {
		return nil, err
	}
	return notifications.NewFCMGateway(client, users, log), nil
}
