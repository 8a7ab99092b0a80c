package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/shenikar/safety_dispatch/internal/config"
	v1 "github.com/shenikar/safety_dispatch/internal/handler/http/v1"
	"github.com/shenikar/safety_dispatch/internal/matcher"
	"github.com/shenikar/safety_dispatch/internal/queue"
	"github.com/shenikar/safety_dispatch/internal/repository"
	"github.com/shenikar/safety_dispatch/internal/repository/memory"
	"github.com/shenikar/safety_dispatch/internal/service"
	"github.com/shenikar/safety_dispatch/internal/webhook"
	"github.com/shenikar/safety_dispatch/pkg/logger"
	"github.com/shenikar/safety_dispatch/pkg/postgres"
	redisclient "github.com/shenikar/safety_dispatch/pkg/redis"
	"github.com/sirupsen/logrus"

	_ "github.com/shenikar/safety_dispatch/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const (
	promoteInterval = time.Second
	sweepInterval   = time.Minute
)

// store - полный набор контрактов хранилища, его реализуют postgres и memory
type store interface {
	service.ReportRepository
	service.AlertRepository
	service.ResponderRepository
	service.ContactRepository
	matcher.ReportSource
	matcher.AlertSource
	matcher.Reclaimer
}

// backend - хранилище, очередь подбора и издатель эскалаций выбранного драйвера
type backend struct {
	store     store
	queue     queue.Queue
	publisher webhook.WebhookPublisher
	// waits дожидаются фоновых доставок после остановки воркеров
	waits   []func()
	closers []func()
}

func (b *backend) wait() {
	for _, w := range b.waits {
		w()
	}
}

func (b *backend) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// @title Safety Dispatch API
// @version 1.0
// @description Incident reports, panic alerts and volunteer dispatch.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
func runMigrations(cfg *config.Config, log *logrus.Logger) error {
	log.Info("Running database migrations...")

	migrationURL := cfg.DatabaseURL
	if !strings.HasPrefix(migrationURL, "pgx5://") {
		migrationURL = strings.Replace(migrationURL, "postgres://", "pgx5://", 1)
	}

	m, err := migrate.New(
		"file://migrations",
		migrationURL,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("Database migrations applied successfully")
	return nil
}

// newPostgresBackend подключает PostgreSQL и Redis: кеш, очередь подбора и очередь вебхуков
func newPostgresBackend(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*backend, error) {
	if err := runMigrations(cfg, log); err != nil {
		return nil, err
	}

	dbpool, err := postgres.NewPostgresDB(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	log.Info("Successfully connected to PostgreSQL")

	redisClient, err := redisclient.NewRedisClient(ctx, cfg)
	if err != nil {
		dbpool.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	log.Info("Successfully connected to Redis")

	// Воркер вебхуков доставляет эскалации службам из очереди Redis
	webhookWorker := webhook.NewWebhookWorker(redisClient, log, cfg)
	webhookWorker.Start(ctx)

	return &backend{
		store:     repository.NewStore(dbpool, redisClient, cfg.CacheTTL),
		queue:     queue.NewRedisQueue(redisClient),
		publisher: webhook.NewRedisWebhookPublisher(redisClient),
		waits:     []func(){webhookWorker.Wait},
		closers: []func(){
			dbpool.Close,
			func() { _ = redisClient.Close() },
		},
	}, nil
}

// newMemoryBackend держит все в памяти процесса; эскалации уходят напрямую или в лог
func newMemoryBackend(cfg *config.Config, log *logrus.Logger) *backend {
	be := &backend{
		store:     memory.NewStore(),
		queue:     queue.NewMemoryQueue(),
		publisher: webhook.NewLogPublisher(log),
	}
	if cfg.WebhookURL != "" {
		worker := webhook.NewWebhookWorker(nil, log, cfg)
		be.publisher = webhook.NewDirectPublisher(worker)
		be.waits = append(be.waits, worker.Wait)
	}
	log.Warn("Using in-memory store, data is lost on restart")

	return be
}

func main() {
	// Загрузка конфигурации
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	// Контекст для graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var be *backend
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		be = newMemoryBackend(cfg, log)
	default:
		be, err = newPostgresBackend(ctx, cfg, log)
		if err != nil {
			log.Fatalf("Failed to initialize storage: %v", err)
		}
	}
	defer be.close()

	// Транспорт уведомлений волонтерам
	var transport matcher.Transport = webhook.NewLogTransport(log)
	if cfg.NotifyURL != "" {
		transport = webhook.NewHTTPTransport(cfg.NotifyURL, cfg.WebhookSecret, cfg.NotifyTimeout)
	}

	// Инициализация сервисов
	arbiter := service.NewArbiter(be.store, be.store, cfg.AlertMaxResponders, log)
	reportService := service.NewReportService(be.store, be.queue, arbiter, log, cfg)
	alertService := service.NewAlertService(be.store, be.store, be.queue, be.publisher, arbiter, log, cfg)
	responderService := service.NewResponderService(be.store, log)
	contactService := service.NewContactService(be.store, log)

	// Подбор волонтеров
	dispatcher := matcher.NewDispatcher(transport, cfg.NotifyTimeout, log)
	m := matcher.NewMatcher(be.store, be.store, be.store, dispatcher, be.queue, be.publisher, log, cfg)
	matchWorker := matcher.NewWorker(be.queue, m, cfg.MatchWorkers, promoteInterval, log)
	// Сверка возвращает в очередь записи, чья задача потерялась
	matchSweeper := matcher.NewSweeper(be.store, be.queue, log, cfg)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		matchWorker.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		matchSweeper.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		service.RunAlertSweeper(ctx, alertService, sweepInterval, log)
	}()

	// Инициализация хэндлеров
	handler := v1.NewHandler(reportService, alertService, responderService, contactService, log, cfg)

	// Настройка Gin роутера
	router := gin.Default()
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)

	// Добавление маршрута для Swagger UI
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Запуск HTTP-сервера
	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)

	srv := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Запуск сервера в горутине
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Error starting HTTP server: %v", err)
		}
	}()
	log.Infof("HTTP server started on port %s", cfg.HTTPPort)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Received shutdown signal, shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	// Останавливаем воркеры после того, как новые запросы перестали приходить
	cancel()
	wg.Wait()
	be.wait()

	log.Info("Server gracefully stopped")
}
