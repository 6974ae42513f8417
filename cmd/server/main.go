package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/room-reservation/internal/config"
	"github.com/iliyamo/room-reservation/internal/database"
	"github.com/iliyamo/room-reservation/internal/engine"
	"github.com/iliyamo/room-reservation/internal/handler"
	"github.com/iliyamo/room-reservation/internal/middleware"
	"github.com/iliyamo/room-reservation/internal/queue"
	"github.com/iliyamo/room-reservation/internal/repository"
	"github.com/iliyamo/room-reservation/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("server: open database: %v", err)
	}
	defer db.Close()

	ties := engine.TieFavorIncumbent
	if cfg.TiePolicy == "challenger" {
		ties = engine.TieFavorChallenger
	}
	store := engine.NewStore(engine.Options{
		MaxUndoDepth: cfg.UndoDepth,
		MaxWaitlist:  cfg.WaitlistMax,
		Ties:         ties,
	})

	snapshots := repository.NewSnapshotRepo(db)
	{
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		snap, err := snapshots.Load(ctx)
		cancel()
		if err != nil {
			log.Fatalf("server: load snapshot: %v", err)
		}
		if err := store.Restore(snap); err != nil {
			log.Fatalf("server: restore snapshot: %v", err)
		}
		log.Printf("server: restored %d committed and %d waitlisted reservations",
			len(snap.Committed), len(snap.Waitlist))
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	rooms := repository.NewRoomRepo(db)

	authH := handler.NewAuthHandler(cfg, users, tokens)
	resH := handler.NewReservationHandler(store, rooms, snapshots)
	roomH := handler.NewRoomHandler(rooms, store, resH)

	// Redis is optional: a nil client disables caching and rate limiting.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("server: redis unavailable, cache and rate limit disabled")
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	cacheMW := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterRooms(e, roomH, cfg.JWTSecret, cacheMW)
	router.RegisterReservations(e, resH, cfg.JWTSecret)

	// Background consumer mirrors reservation events to logs/reservation.log.
	go func() {
		if err := queue.StartReservationConsumer(); err != nil {
			log.Printf("server: reservation consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
