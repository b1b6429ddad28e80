package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"samba-tours/internal/analytics"
	"samba-tours/internal/analytics/analytics_api"
	"samba-tours/internal/auth"
	"samba-tours/internal/blog"
	blog_db "samba-tours/internal/blog/db"
	"samba-tours/internal/blog/blog_api"
	"samba-tours/internal/bookings"
	"samba-tours/internal/bookings/booking_api"
	booking_db "samba-tours/internal/bookings/db"
	"samba-tours/internal/cart"
	"samba-tours/internal/cart/cart_api"
	"samba-tours/internal/config"
	"samba-tours/internal/database"
	"samba-tours/internal/database/migrations"
	"samba-tours/internal/httpapi"
	"samba-tours/internal/kafka"
	"samba-tours/internal/logger"
	"samba-tours/internal/notify"
	"samba-tours/internal/payments"
	"samba-tours/internal/payments/payment_api"
	"samba-tours/internal/realtime"
	"samba-tours/internal/services"
	service_db "samba-tours/internal/services/db"
	"samba-tours/internal/services/service_api"
	"samba-tours/internal/site"
	site_db "samba-tours/internal/site/db"
	"samba-tours/internal/site/site_api"
	"samba-tours/internal/storage"
	"samba-tours/internal/storage/storage_api"
	"samba-tours/internal/tours"
	tour_db "samba-tours/internal/tours/db"
	"samba-tours/internal/tours/tour_api"
	"samba-tours/internal/visitors"
	visitor_db "samba-tours/internal/visitors/db"
	"samba-tours/internal/visitors/visitor_api"
	"samba-tours/internal/vouchers"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	log := logger.NewLogger(cfg.Log.Dir, cfg.Log.Level)
	defer log.Close()

	if envErr != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("CONFIG", fmt.Sprintf("Invalid configuration: %v", err))
	}

	log.Info("APP", "Starting Samba Tours API initialization")
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bunDB, err := database.ConnectPostgres(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()

	runner := migrations.NewRunner(bunDB, migrations.Options{
		Dir:         cfg.Migrations.Dir,
		AutoMigrate: cfg.Migrations.AutoMigrate,
	}, log)
	if err := runner.Run(); err != nil {
		log.Fatal("MIGRATE", fmt.Sprintf("Migrations failed: %v", err))
	}

	redisClient, err := database.ConnectRedis(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal("REDIS", err.Error())
	}
	defer redisClient.Close()

	// --- Change feed ---
	hub := realtime.NewHub()
	var publisher realtime.Publisher = realtime.NewLocalPublisher(hub)
	if cfg.Kafka.Enabled {
		if err := kafka.EnsureTopicsExist(ctx, cfg.Kafka.Brokers, []string{cfg.Kafka.ChangesTopic}, log); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}
		producer := kafka.NewProducer(cfg.Kafka.Brokers)
		defer producer.Close()
		publisher = realtime.NewKafkaPublisher(producer, cfg.Kafka.ChangesTopic)

		consumer := kafka.NewBroadcastConsumer(cfg.Kafka.Brokers, cfg.Kafka.ChangesTopic, cfg.Kafka.GroupID, log)
		defer consumer.Close()
		feed := realtime.NewChangeFeedConsumer(consumer, hub, log)
		go func() {
			if err := feed.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("KAFKA", fmt.Sprintf("Change feed stopped: %v", err))
			}
		}()
		log.Info("KAFKA", fmt.Sprintf("Change feed on topic %s", cfg.Kafka.ChangesTopic))
	} else {
		log.Info("KAFKA", "Kafka disabled, change events stay in-process")
	}
	emitter := realtime.NewEmitter(publisher, log)

	// --- Object storage ---
	var store storage.ObjectStorage
	if cfg.Storage.Enabled() {
		s3Store, err := storage.NewS3Storage(ctx, cfg.Storage, log)
		if err != nil {
			log.Fatal("STORAGE", err.Error())
		}
		if err := s3Store.EnsureBucket(ctx); err != nil {
			log.Warn("STORAGE", fmt.Sprintf("Bucket check failed: %v", err))
		}
		store = s3Store
	} else {
		log.Warn("STORAGE", "No bucket configured, images are kept in memory")
		store = storage.NewMemoryStorage(cfg.Storage.PublicURL)
	}

	// --- Payments ---
	var gateway payments.Gateway
	if cfg.Payments.StripeSecretKey != "" {
		stripeGateway, err := payments.NewStripeGateway(cfg.Payments, log)
		if err != nil {
			log.Fatal("PAYMENTS", err.Error())
		}
		gateway = stripeGateway
	} else {
		log.Warn("PAYMENTS", "STRIPE_SECRET_KEY not set, bookings are created without payment intents")
	}

	// --- Services ---
	tourService := tours.NewService(&tour_db.DB{Bun: bunDB}, store, emitter, log)
	cartService := cart.NewService(cart.NewRedisStore(redisClient, cfg.Redis.CartTTL), tourService, emitter, log)
	bookingService := bookings.NewService(&booking_db.DB{Bun: bunDB}, tourService, cartService, gateway, emitter, log, cfg.Payments.Currency)
	blogService := blog.NewService(&blog_db.DB{Bun: bunDB}, store, emitter, log)
	serviceService := services.NewService(&service_db.DB{Bun: bunDB}, store, emitter, log)
	siteService := site.NewService(&site_db.DB{Bun: bunDB}, emitter, log)
	visitorService := visitors.NewService(&visitor_db.DB{Bun: bunDB}, visitors.NewRedisActiveSet(redisClient, cfg.Redis.ActiveVisitorWindow), emitter, log)
	analyticsService := analytics.NewService(bunDB, visitorService, log)

	// --- Auth ---
	revocations := auth.NewRedisRevocationStore(redisClient)
	var verifier auth.Verifier
	var issuer *auth.HMACVerifier
	if cfg.Auth.JWTSecret != "" {
		issuer, err = auth.NewHMACVerifier(cfg.Auth.JWTSecret, 12*time.Hour, revocations)
		if err != nil {
			log.Fatal("AUTH", err.Error())
		}
		verifier = issuer
	}
	if cfg.Auth.OIDCIssuer != "" {
		oidcVerifier, err := auth.NewOIDCVerifier(ctx, cfg.Auth.OIDCIssuer)
		if err != nil {
			log.Fatal("AUTH", err.Error())
		}
		verifier = oidcVerifier
		log.Info("AUTH", fmt.Sprintf("Admin tokens verified against %s", cfg.Auth.OIDCIssuer))
	}
	if verifier == nil {
		log.Warn("AUTH", "No JWT_SECRET or OIDC_ISSUER, only the service-role key reaches admin routes")
	}

	handlers := httpapi.Handlers{
		Tours:     tour_api.NewHandler(tourService, log),
		Bookings:  booking_api.NewHandler(bookingService, vouchers.NewGenerator(cfg.Vouchers.QRSecret, cfg.Vouchers.FontPath), log),
		Cart:      cart_api.NewHandler(cartService, bookingService, log),
		Payments:  payment_api.NewHandler(gateway, bookingService, log),
		Blog:      blog_api.NewHandler(blogService, log),
		Services:  service_api.NewHandler(serviceService, log),
		Site:      site_api.NewHandler(siteService, log),
		Visitors:  visitor_api.NewHandler(visitorService, log),
		Analytics: analytics_api.NewHandler(analyticsService, log),
		Live:      analytics_api.NewLiveHandler(analyticsService, hub, cfg.Server.MetricsInterval, log),
		Storage:   storage_api.NewHandler(store, cfg.Storage.PresignExpiration, log),
	}
	if issuer != nil {
		handlers.Auth = &auth.Handler{
			Profiles: &auth.BunProfileStore{Bun: bunDB},
			Issuer:   issuer,
			Revoked:  revocations,
			Logger:   log,
		}
	}

	router := httpapi.NewRouter(handlers, httpapi.Options{
		Keys:           cfg.Keys,
		Verifier:       verifier,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         log,
	})

	// --- Background workers ---
	watcher := cart.NewExpiryWatcher(redisClient, emitter, log)
	go func() {
		if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("REDIS", fmt.Sprintf("Cart expiry watcher stopped: %v", err))
		}
	}()

	notifier, err := notify.NewTelegramNotifier(cfg.Telegram, hub, log)
	if err != nil {
		log.Warn("NOTIFY", err.Error())
	} else if notifier != nil {
		go notifier.Run(ctx)
	}

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		BaseContext:  func(_ net.Listener) context.Context { return ctx },
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("Samba Tours API running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-ctx.Done()

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server shutdown failed: %v", err))
		os.Exit(1)
	}
	log.Info("HTTP", "Samba Tours API shutdown complete")
}
