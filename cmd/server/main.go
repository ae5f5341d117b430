package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mamadbah2/pharmacy/internal/cart"
	"github.com/mamadbah2/pharmacy/internal/catalog"
	"github.com/mamadbah2/pharmacy/internal/config"
	"github.com/mamadbah2/pharmacy/internal/domain/models"
	"github.com/mamadbah2/pharmacy/internal/notify"
	"github.com/mamadbah2/pharmacy/internal/repository/memory"
	"github.com/mamadbah2/pharmacy/internal/repository/mongodb"
	redisrepo "github.com/mamadbah2/pharmacy/internal/repository/redis"
	"github.com/mamadbah2/pharmacy/internal/repository/sheets"
	"github.com/mamadbah2/pharmacy/internal/scheduler"
	"github.com/mamadbah2/pharmacy/internal/server/handlers"
	"github.com/mamadbah2/pharmacy/internal/server/router"
	reportingsvc "github.com/mamadbah2/pharmacy/internal/service/reporting"
	"github.com/mamadbah2/pharmacy/pkg/clients/medicines"
	whatsappclient "github.com/mamadbah2/pharmacy/pkg/clients/whatsapp"
	"github.com/mamadbah2/pharmacy/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Server.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	location, err := time.LoadLocation(cfg.Reporting.Timezone)
	if err != nil {
		baseLogger.Fatal("invalid timezone", zap.Error(err))
	}

	notifier := notify.NewLogNotifier(baseLogger.Named("notify"))
	medicineClient := medicines.NewClient(cfg.MedicineAPI, baseLogger.Named("client.medicines"))
	collection := catalog.NewCollection(medicineClient, notifier, baseLogger.Named("svc.catalog"))

	var mongoRepo *mongodb.MongoDBRepository
	if cfg.MongoDB.URI != "" {
		mongoRepo, err = mongodb.NewMongoDBRepository(context.Background(), cfg.MongoDB.URI, cfg.MongoDB.DBName)
		if err != nil {
			baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
		}
		defer func() {
			if err := mongoRepo.Close(context.Background()); err != nil {
				baseLogger.Error("failed to close mongodb connection", zap.Error(err))
			}
		}()
	}

	var storage cart.Storage
	switch cfg.Cart.Storage {
	case config.StorageRedis:
		redisClient := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Cart.RedisAddr,
			Password: cfg.Cart.RedisPass,
			DB:       cfg.Cart.RedisDB,
		})
		defer func() { _ = redisClient.Close() }()
		redisStore := redisrepo.NewSnapshotStore(redisClient, cfg.Cart.TTL)
		if err := redisStore.Ping(context.Background()); err != nil {
			baseLogger.Fatal("failed to connect to redis", zap.String("addr", cfg.Cart.RedisAddr), zap.Error(err))
		}
		storage = redisStore
	case config.StorageMongo:
		storage = mongoRepo
	default:
		baseLogger.Warn("cart snapshots kept in memory, carts will not survive a restart")
		storage = memory.NewSnapshotStore()
	}
	baseLogger.Info("cart storage selected", zap.String("backend", cfg.Cart.Storage))

	var (
		sender    notify.TextSender
		listeners []cart.CheckoutListener
	)
	if cfg.WhatsApp.Enabled() {
		sender = whatsappclient.NewClient(cfg.WhatsApp)
		listeners = append(listeners, notify.NewCheckoutAlert(sender, cfg.WhatsApp.PharmacyPhone, baseLogger.Named("notify.whatsapp")))
		baseLogger.Info("whatsapp checkout alerts enabled")
	} else {
		baseLogger.Warn("whatsapp credentials missing, checkout alerts disabled")
	}

	sessions := cart.NewSessions(cfg.Cart.KeyName, cfg.Cart.MaxSessions, storage, notifier, baseLogger.Named("svc.cart"), listeners...)

	var sheetRepo sheets.Repository
	if cfg.Sheets.Enabled() {
		repo, err := sheets.NewGoogleSheetRepository(context.Background(), cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		sheetRepo = repo
	}

	var reportRepo mongodb.ReportRepository
	if mongoRepo != nil {
		reportRepo = mongoRepo
	}

	reportingSvc := reportingsvc.NewService(collection, sheetRepo, reportRepo, cfg.Reporting.LowStockThreshold, location, baseLogger.Named("svc.reporting"))

	engine := router.New(
		handlers.NewMedicineHandler(collection, baseLogger.Named("handlers.medicines")),
		handlers.NewCartHandler(sessions, collection, baseLogger.Named("handlers.cart")),
		baseLogger.Named("router"),
	)

	sched, err := scheduler.NewScheduler(*cfg, collection, reportingSvc, sender, baseLogger.Named("scheduler"))
	if err != nil {
		baseLogger.Fatal("failed to init scheduler", zap.Error(err))
	}
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	// Warm the lookup index so cart additions resolve before the first listing request.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.MedicineAPI.Timeout)
		defer cancel()
		if _, err := collection.FetchAll(ctx, models.MedicineFilters{}); err != nil {
			baseLogger.Warn("initial catalog load failed", zap.Error(err))
		}
	}()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
