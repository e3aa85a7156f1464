package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	httpapi "github.com/immxrtalbeast/tempvoice/internal/api/http"
	"github.com/immxrtalbeast/tempvoice/internal/bot"
	"github.com/immxrtalbeast/tempvoice/internal/config"
	"github.com/immxrtalbeast/tempvoice/internal/platform"
	"github.com/immxrtalbeast/tempvoice/internal/platform/discord"
	"github.com/immxrtalbeast/tempvoice/internal/platform/memory"
	"github.com/immxrtalbeast/tempvoice/internal/repository"
	"github.com/immxrtalbeast/tempvoice/internal/repository/model"
	"github.com/immxrtalbeast/tempvoice/internal/scheduler"
	"github.com/immxrtalbeast/tempvoice/internal/service"
	"github.com/immxrtalbeast/tempvoice/lib/logger/sl"
	"github.com/immxrtalbeast/tempvoice/lib/logger/slogpretty"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	_ = godotenv.Load(".env")

	cfg := config.MustLoad()
	log := setupLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := connectDatabase(cfg.Postgres)
	if err != nil {
		log.Error("failed to connect database", sl.Err(err))
		os.Exit(1)
	}

	mongoClient, err := repository.ConnectMongo(ctx, cfg.Mongo.URI)
	if err != nil {
		log.Error("failed to connect mongo", sl.Err(err))
		os.Exit(1)
	}
	defer func() {
		_ = mongoClient.Disconnect(context.Background())
	}()
	mongoDB := mongoClient.Database(cfg.Mongo.Database)
	if err := repository.EnsureMongoIndexes(ctx, mongoDB); err != nil {
		log.Error("failed to create mongo indexes", sl.Err(err))
		os.Exit(1)
	}

	redisClient, err := repository.ConnectRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Error("failed to connect redis", sl.Err(err))
		os.Exit(1)
	}
	defer redisClient.Close()

	gateway, closeGateway, err := setupGateway(cfg.Discord, log)
	if err != nil {
		log.Error("failed to open voice platform", sl.Err(err))
		os.Exit(1)
	}
	defer closeGateway()

	roomRepo := repository.NewMongoRoomRepository(mongoDB)
	metricsRepo := repository.NewMongoMetricsRepository(mongoDB)
	restartLogRepo := repository.NewMongoRestartLogRepository(mongoDB)
	settingsRepo := repository.NewPostgresSettingsRepository(db)
	presenceCache := repository.NewRedisPresenceCache(redisClient, cfg.Redis.KeyPrefix)

	settingsService := service.NewSettingsService(settingsRepo, cfg.Defaults.GuildDefaults, log)
	metrics := service.NewMetricsCollector(metricsRepo, log)
	cooldowns := service.NewCooldowns(nil)
	presence := service.NewPresenceTracker(roomRepo, presenceCache, gateway, cfg.Presence.TTL, log)
	placer := service.NewShardPlacer(gateway, log)
	lifecycle := service.NewLifecycleManager(gateway, roomRepo, settingsService, placer, cooldowns, presence, metrics, log)
	ownership := service.NewOwnershipManager(roomRepo, settingsService, presence, metrics, lifecycle, log)
	reconciler := service.NewReconciler(gateway, roomRepo, restartLogRepo, settingsService, lifecycle, ownership, presence, metrics, log)

	jobs := scheduler.New(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, log)
	if err := scheduleJobs(ctx, jobs, cfg.Scheduler, reconciler, cooldowns, log); err != nil {
		log.Error("failed to schedule jobs", sl.Err(err))
		os.Exit(1)
	}
	if err := jobs.Start(); err != nil {
		log.Error("failed to start scheduler", sl.Err(err))
		os.Exit(1)
	}
	defer jobs.Shutdown()

	host := bot.New(gateway, settingsService, lifecycle, ownership, presence, log)
	host.Start(ctx)
	defer host.Stop()

	router := httpapi.SetupRouter(httpapi.Controllers{
		Rooms:       httpapi.NewRoomController(lifecycle, ownership, log),
		Settings:    httpapi.NewSettingsController(settingsService, metrics, log),
		Maintenance: httpapi.NewMaintenanceController(reconciler, log),
	}, cfg.HTTP.AllowOrigins)

	srv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("starting application", slog.String("addr", cfg.HTTP.Address))
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
		log.Warn("http shutdown", sl.Err(err))
	}
}

func scheduleJobs(
	ctx context.Context,
	jobs *scheduler.Scheduler,
	cfg config.SchedulerConfig,
	reconciler *service.Reconciler,
	cooldowns *service.Cooldowns,
	log *slog.Logger,
) error {
	_, err := jobs.Schedule("idle", cfg.IdleCron, func(ctx context.Context) error {
		idle, err := reconciler.RunIdleChecks(ctx)
		if err != nil {
			return err
		}
		deletions, err := reconciler.ProcessScheduledDeletions(ctx)
		if err != nil {
			return err
		}
		log.Info("idle sweep finished",
			slog.Int("checked", idle.Checked),
			slog.Int("scheduled", idle.Scheduled),
			slog.Int("deleted", idle.Deleted+deletions.Deleted),
			slog.Int("recovered", deletions.Recovered),
			slog.Int("evicted_cooldowns", cooldowns.Sweep()),
		)
		return nil
	}, false)
	if err != nil {
		return err
	}

	_, err = jobs.Schedule("hourly", cfg.HourlyCron, func(ctx context.Context) error {
		summary, err := reconciler.RunHourlyIntegrityScan(ctx)
		if err != nil {
			return err
		}
		log.Info("hourly scan finished",
			slog.Int("guilds", summary.Guilds),
			slog.Int("orphans", summary.Orphans),
			slog.Int("reassigned", summary.Reassigned),
		)
		return nil
	}, false)
	if err != nil {
		return err
	}

	jobs.After(ctx, "startup", cfg.StartupDelay, func(ctx context.Context) error {
		summary, err := reconciler.IntegrityStartupScan(ctx)
		if err != nil {
			return err
		}
		log.Info("startup scan finished", slog.Int("guilds", len(summary.Logs)), slog.Int("failures", len(summary.Failures)))
		return nil
	})
	return nil
}

func setupGateway(cfg config.DiscordConfig, log *slog.Logger) (platform.Gateway, func(), error) {
	if cfg.DryRun {
		log.Warn("dry run: using in-memory voice platform")
		return memory.MustNew(), func() {}, nil
	}
	gw, err := discord.Open(cfg.Token, log)
	if err != nil {
		return nil, nil, err
	}
	return gw, func() { _ = gw.Close() }, nil
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

func connectDatabase(cfg config.PostgresConfig) (*gorm.DB, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database dsn is empty")
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&model.GuildSettings{}); err != nil {
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
