package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/finicafferata/eme-studio-api/internal/booking"
	"github.com/finicafferata/eme-studio-api/internal/config"
	"github.com/finicafferata/eme-studio-api/internal/database"
	"github.com/finicafferata/eme-studio-api/internal/handler"
	"github.com/finicafferata/eme-studio-api/internal/middleware"
	"github.com/finicafferata/eme-studio-api/internal/notify"
	"github.com/finicafferata/eme-studio-api/internal/queue"
	"github.com/finicafferata/eme-studio-api/internal/repository"
	"github.com/finicafferata/eme-studio-api/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Repositories.
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	classes := repository.NewClassRepo(db)
	reservations := repository.NewReservationRepo(db)
	packages := repository.NewPackageRepo(db)
	payments := repository.NewPaymentRepo(db)
	waitlists := repository.NewWaitlistRepo(db)

	// Booking service: all reservation/waitlist/credit mutations.
	bookingSvc := booking.NewService(repository.NewBookingStore(db), booking.Policy{
		AllowPendingPaymentPackages: cfg.AllowPendingPayment,
		CancellationCutoff:          cfg.CancellationCutoff,
	})

	// Handlers.
	authH := handler.NewAuthHandler(cfg, users, tokens)
	classH := handler.NewClassHandler(classes, reservations, waitlists, users)
	reservationH := handler.NewReservationHandler(cfg, bookingSvc, reservations, packages, classes, users)
	instructorH := handler.NewInstructorHandler(bookingSvc, reservations, classes)
	packageH := handler.NewPackageHandler(packages, payments, users)
	publicH := handler.NewPublicBookingHandler(cfg, bookingSvc, users, packages, classes)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewRequestValidator()

	// Redis-backed cache and rate limiting degrade to no-ops when the
	// server is unreachable.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; cache and rate limiting disabled")
	}
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	cacheMW := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterPublic(e, classH, publicH, cacheMW)
	router.RegisterStudent(e, reservationH, packageH, cfg.JWTSecret)
	router.RegisterInstructor(e, instructorH, cfg.JWTSecret)
	router.RegisterAdmin(e, classH, packageH, reservationH, cfg.JWTSecret)

	// Notification consumer; runs for the lifetime of the process.
	var notifier notify.Notifier
	if cfg.SendGridKey != "" {
		notifier = notify.NewSendGridNotifier(cfg.SendGridKey, cfg.EmailFromName, cfg.EmailFromAddr)
	} else {
		notifier = notify.NewConsoleNotifier()
	}
	go func() {
		if err := queue.StartConsumer(notifier); err != nil {
			log.Printf("reservation consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
