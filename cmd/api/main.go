package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/choreista/platform_be_chores/internal/config"
	"github.com/choreista/platform_be_chores/internal/db"
	"github.com/choreista/platform_be_chores/internal/handlers"
	"github.com/choreista/platform_be_chores/internal/jobs"
	"github.com/choreista/platform_be_chores/internal/realtime"
	"github.com/choreista/platform_be_chores/internal/routes"
	"github.com/choreista/platform_be_chores/internal/services/auth"
	"github.com/choreista/platform_be_chores/internal/services/chores"
	"github.com/choreista/platform_be_chores/internal/services/mailer"
	"github.com/choreista/platform_be_chores/internal/services/messaging"
	"github.com/choreista/platform_be_chores/internal/services/reviews"
	"github.com/choreista/platform_be_chores/internal/services/storage"
	"github.com/choreista/platform_be_chores/internal/services/users"
	"github.com/choreista/platform_be_chores/internal/utils"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	utils.InitLogger(cfg.AppName, cfg.LogLevel)
	log := utils.Logger

	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.WithError(err).Fatal("Database connection failed")
	}
	if err := db.Migrate(gdb); err != nil {
		log.WithError(err).Fatal("Database migration failed")
	}

	rdb := realtime.NewRedis(cfg.RedisAddr, cfg.RedisPassword)
	if rdb != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.WithError(err).Warn("Redis not reachable, notifications stay in-process")
			rdb = nil
		}
		cancel()
	}

	hub := realtime.NewHub()
	go hub.Run()
	notifier := realtime.NewBroadcaster(hub, rdb)

	var store storage.ObjectStore
	uploadDir := ""
	if cfg.UseS3() {
		store = storage.NewS3Store(storage.S3Config{
			Endpoint:      cfg.S3Endpoint,
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			PublicBaseURL: cfg.S3PublicBaseURL,
		})
	} else {
		uploadDir = cfg.UploadDir
		store = &storage.LocalStore{Dir: cfg.UploadDir, PublicBaseURL: cfg.AppBaseURL}
	}

	var mail mailer.Mailer = mailer.LogMailer{}
	if cfg.SendGridAPIKey != "" {
		mail = mailer.NewSendGrid(mailer.SendGridConfig{
			APIKey:     cfg.SendGridAPIKey,
			FromEmail:  cfg.SendGridFrom,
			FromName:   cfg.SendGridFromName,
			TemplateID: cfg.SendGridTemplate,
			Sandbox:    cfg.SendGridSandbox,
		})
	}

	authSvc := auth.NewAuthService(gdb, mail, auth.Config{
		JWTSecret:  cfg.JWTSecret,
		ExpiresMin: cfg.JWTExpiresMin,
		BcryptCost: cfg.BcryptCost,
	})
	msgSvc := messaging.NewMessagingService(gdb, notifier)
	revSvc := reviews.NewReviewsService(gdb)
	choreSvc := chores.NewChoresService(gdb, msgSvc, revSvc, chores.ParseTrackingPolicy(cfg.TrackingPolicy))
	userSvc := users.NewUsersService(gdb, store, cfg.BcryptCost)

	purger, err := jobs.Start(cfg.PurgeSchedule, authSvc)
	if err != nil {
		log.WithError(err).Fatal("Invalid SESSION_PURGE_SCHEDULE")
	}

	deps := routes.Deps{
		Auth:      authSvc,
		AuthH:     handlers.NewAuthHandler(authSvc),
		UserH:     handlers.NewUserHandler(userSvc),
		ChoreH:    handlers.NewChoreHandler(choreSvc),
		ChatH:     handlers.NewChatHandler(msgSvc, hub),
		ReviewH:   handlers.NewReviewHandler(revSvc),
		HealthH:   handlers.NewHealthHandler(cfg.AppEnv),
		UploadDir: uploadDir,
	}
	if cfg.GoogleEnabled() {
		deps.Google = handlers.NewGoogleOAuthHandler(authSvc, cfg.GoogleClientID, cfg.GoogleSecret, cfg.GoogleRedirect, cfg.FrontendBaseURL)
	}

	app := routes.NewApp(cfg.AppName, cfg.CORSOrigins)
	routes.Register(app, deps)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Info("Shutting down")
		<-purger.Stop().Done()
		hub.Stop()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.WithError(err).Error("Shutdown failed")
		}
	}()

	log.Infof("Listening on :%s", cfg.AppPort)
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.WithError(err).Fatal("Server stopped")
	}
}
