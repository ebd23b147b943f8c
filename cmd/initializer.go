package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"finderguard/internal/ai"
	"finderguard/internal/config"
	"finderguard/internal/exchange"
	"finderguard/internal/handlers"
	"finderguard/internal/matching"
	"finderguard/internal/notify"
	"finderguard/internal/repositories"
	"finderguard/internal/services"
	"finderguard/internal/timeutil"
	"finderguard/utils"
)

type application struct {
	errorLog *log.Logger
	infoLog  *log.Logger
	cfg      config.Config
	clock    timeutil.Clock

	tokens *utils.Manager
	redis  *redis.Client

	machine  *exchange.Machine
	timers   *exchange.TimerScheduler
	deadline *repositories.DeadlineQueue

	itemHandler     *handlers.ItemHandler
	matchHandler    *handlers.MatchHandler
	exchangeHandler *handlers.ExchangeHandler
	profileHandler  *handlers.ProfileHandler
	wsHandler       *handlers.WSHandler
}

// appLogger adapts the INFO/ERROR log pair to the Logger interfaces of the
// internal packages.
type appLogger struct {
	info *log.Logger
	err  *log.Logger
}

func (l appLogger) Infof(format string, args ...interface{}) {
	l.info.Output(2, fmt.Sprintf(format, args...))
}

func (l appLogger) Errorf(format string, args ...interface{}) {
	l.err.Output(2, fmt.Sprintf(format, args...))
}

func initializeApp(ctx context.Context, cfg config.Config, db *sql.DB, errorLog, infoLog *log.Logger) (*application, error) {
	logger := appLogger{info: infoLog, err: errorLog}
	clock := timeutil.System{}

	dialect, err := repositories.ParseDialect(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}
	if err := repositories.EnsureSchema(ctx, db, dialect); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	tokens, err := utils.NewManager(cfg.Auth.JWTSecret)
	if err != nil {
		return nil, err
	}

	itemRepo := &repositories.ItemRepository{DB: db, Dialect: dialect}
	matchRepo := &repositories.MatchRepository{DB: db, Dialect: dialect}
	profileRepo := &repositories.ProfileRepository{DB: db, Dialect: dialect}
	deviceRepo := &repositories.DeviceTokenRepository{DB: db, Dialect: dialect}
	exchangeRepo := &repositories.ExchangeRepository{DB: db, Dialect: dialect}

	// Notifications
	hub := notify.NewHub(logger)
	notifiers := notify.Multi{hub}
	if cfg.Notifications.Enabled {
		client, err := notify.NewFCMClient(ctx, cfg.Notifications.FirebaseCredentials)
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, notify.NewFCM(client, deviceRepo, logger))
	}

	// Matching
	var semantic matching.SemanticMatcher
	if cfg.OpenAI.APIKey != "" {
		client := ai.NewClient(&http.Client{Timeout: cfg.SemanticTimeout()}, cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL)
		semantic = ai.NewMatcher(client, logger, ai.MatcherConfig{Model: cfg.OpenAI.Model})
	}
	ranker := matching.NewRanker(itemRepo, semantic, logger, matching.Config{
		Threshold:            cfg.Matching.Threshold,
		SearchRadiusKm:       cfg.Matching.SearchRadiusKm,
		ShowGlobal:           cfg.Matching.ShowGlobal,
		SemanticTimeout:      cfg.SemanticTimeout(),
		MaxSemanticDeviation: cfg.Matching.MaxSemanticDeviation,
	})

	// Exchange deadlines
	timers := exchange.NewTimerScheduler(clock)
	var (
		scheduler exchange.Scheduler = timers
		rdb       *redis.Client
		queue     *repositories.DeadlineQueue
	)
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		queue = repositories.NewDeadlineQueue(rdb)
		scheduler = exchange.MultiScheduler{timers, queue}
	}
	machine := exchange.NewMachine(exchangeRepo, scheduler, notifiers, clock, logger, exchange.Config{
		Timeout: cfg.ExchangeTimeout(),
	})
	timers.OnDeadline(machine.HandleDeadline)

	// Images
	var images services.ImageUploader
	if cfg.Storage.Bucket != "" {
		store, err := utils.NewImageStore(utils.StorageConfig{
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			PublicURL: cfg.Storage.PublicURL,
		})
		if err != nil {
			return nil, err
		}
		images = store
	}

	itemService := &services.ItemService{
		Items:    itemRepo,
		Matches:  matchRepo,
		Ranker:   ranker,
		Images:   images,
		Notifier: notifiers,
		Clock:    clock,
		Logger:   logger,
	}
	matchService := &services.MatchService{Matches: matchRepo, Items: itemRepo, Notifier: notifiers, Logger: logger}
	profileService := &services.ProfileService{Profiles: profileRepo, Tokens: deviceRepo, Clock: clock}

	return &application{
		errorLog:        errorLog,
		infoLog:         infoLog,
		cfg:             cfg,
		clock:           clock,
		tokens:          tokens,
		redis:           rdb,
		machine:         machine,
		timers:          timers,
		deadline:        queue,
		itemHandler:     &handlers.ItemHandler{Service: itemService, Logger: logger},
		matchHandler:    &handlers.MatchHandler{Service: matchService, Logger: logger},
		exchangeHandler: &handlers.ExchangeHandler{Machine: machine, Matches: matchService, Logger: logger},
		profileHandler:  &handlers.ProfileHandler{Service: profileService, Logger: logger},
		wsHandler:       &handlers.WSHandler{Hub: hub},
	}, nil
}

func (app *application) close() {
	app.timers.Stop()
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.errorLog.Printf("redis close: %v", err)
		}
	}
}

func openDB(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	dialect, err := repositories.ParseDialect(driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		log.Printf("Failed to open DB: %v", err)
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err = db.PingContext(pingCtx); err != nil {
		log.Printf("Failed to ping DB: %v", err)
		db.Close()
		return nil, err
	}
	db.SetMaxIdleConns(35)
	log.Println("Successfully connected to database")
	return db, nil
}
