package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"trailhead/admin"
	"trailhead/analytics"
	"trailhead/auth"
	"trailhead/booking"
	"trailhead/chat"
	"trailhead/config"
	"trailhead/db"
	"trailhead/globals"
	"trailhead/hotels"
	"trailhead/lookup"
	"trailhead/middleware"
	"trailhead/mq"
	"trailhead/ratelim"
	"trailhead/rdx"
	"trailhead/respcache"
	"trailhead/reviews"
	"trailhead/routes"
	"trailhead/tours"
	"trailhead/validation"
	"trailhead/vehicles"
	"trailhead/voucher"
)

func newLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	if cfg.IsProduction() {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}
	log := newLogger(cfg)
	globals.ExposeErrorStack = !cfg.IsProduction()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database); err != nil {
		log.WithError(err).Fatal("mongo connection failed")
	}
	log.WithField("database", cfg.Mongo.Database).Info("connected to MongoDB")
	if err := db.EnsureIndexes(ctx); err != nil {
		log.WithError(err).Warn("failed to ensure indexes")
	}

	hub := booking.NewHub(log, cfg.Server.CORSOrigins)
	chatHub := chat.NewHub(log, cfg.Server.CORSOrigins)
	go chatHub.Run(ctx)

	// Redis is optional. Without it the response cache stays in process, booking
	// creation is not idempotent across retries and events go straight to the hub.
	var (
		cacheBackend respcache.Backend = respcache.NewMemory()
		emitter      booking.Emitter   = hub
		idempotency  func(httprouter.Handle) httprouter.Handle
	)
	if cfg.Redis.Addr != "" {
		client, err := rdx.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.WithError(err).Fatal("redis connection failed")
		}
		rdx.Conn = client
		cacheBackend = respcache.FromRedis(rdx.NewStore(client))
		emitter = mq.NewEmitter(client, log)
		idempotency = middleware.Idempotency(middleware.NewRedisIdempotencyStore(client), log)
		go mq.StartBookingWorker(ctx, client, log, hub.Notify)
		log.WithField("addr", cfg.Redis.Addr).Info("connected to Redis")
	}

	v := validation.New()
	cache := respcache.New(cacheBackend, cfg.Cache.TTL, log)
	tokens := middleware.NewAuth(cfg.JWT.Secret, cfg.JWT.TokenTTL)
	limiter := ratelim.NewRateLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst)

	mgr := booking.NewManager(
		booking.NewMongoStore(db.BookingsCollection),
		lookup.FromDB(),
		log,
		booking.WithEmitter(emitter),
	)

	deps := &routes.Deps{
		Auth:        tokens,
		Limiter:     limiter,
		Cache:       cache,
		Idempotency: idempotency,
		Health:      db.Ping,
		Bookings:    booking.NewHandler(mgr, v),
		Hub:         hub,
		Chat:        chatHub,
		Vouchers:    voucher.NewHandler(mgr, voucher.NewSigner(cfg.Voucher.Secret), v, log),
		Tours:       tours.NewHandler(db.PackageCollection, cache, v, log),
		Hotels:      hotels.NewHandler(db.HotelCollection, cache, v, log),
		Vehicles:    vehicles.NewHandler(db.VehicleCollection, cache, v, log),
		Reviews:     reviews.NewHandler(db.ReviewsCollection, db.PackageCollection, db.UserCollection, cache, v, log),
		Users:       auth.NewHandler(db.UserCollection, tokens, mgr, v, log),
		Admin:       admin.NewHandler(mgr, admin.FromDB(), v, log),
		Analytics:   analytics.NewHandler(db.BookingsCollection, db.PackageCollection, log),
	}
	router := routes.RoutesWrapper(deps)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "Idempotency-Key"},
		ExposedHeaders:   []string{"X-Total-Count", "X-Request-ID", "Idempotent-Replayed"},
		AllowCredentials: true,
	}).Handler(router)

	handler := middleware.RequestLogger(log)(middleware.SecurityHeaders(corsHandler))

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadTimeout:       7 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	janitorStop := make(chan struct{})
	go limiter.RunJanitor(janitorStop)

	server.RegisterOnShutdown(func() {
		close(janitorStop)
	})

	go func() {
		log.WithFields(logrus.Fields{"addr": server.Addr, "env": cfg.Server.Environment}).Info("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("ListenAndServe failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received, shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
	if rdx.Conn != nil {
		rdx.Conn.Close()
	}
	if err := db.Disconnect(shutdownCtx); err != nil {
		log.WithError(err).Error("mongo disconnect failed")
	}
	log.Info("server stopped cleanly")
}
