// Package server wires the community service: post search, report
// moderation, and push escalation behind a single HTTP surface.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	moderationhandlers "github.com/motortribe/motortribe/internal/moderation/adapters/http/handlers"
	moderationmysql "github.com/motortribe/motortribe/internal/moderation/adapters/repository/mysql"
	moderationservice "github.com/motortribe/motortribe/internal/moderation/app/service"
	"github.com/motortribe/motortribe/internal/notification/adapters/fcm"
	notificationmysql "github.com/motortribe/motortribe/internal/notification/adapters/repository/mysql"
	notificationservice "github.com/motortribe/motortribe/internal/notification/app/service"
	"github.com/motortribe/motortribe/internal/platform/cache"
	"github.com/motortribe/motortribe/internal/platform/config"
	"github.com/motortribe/motortribe/internal/platform/database"
	"github.com/motortribe/motortribe/internal/platform/health"
	"github.com/motortribe/motortribe/internal/platform/logger"
	"github.com/motortribe/motortribe/internal/platform/messaging/kafka"
	"github.com/motortribe/motortribe/internal/platform/metrics"
	"github.com/motortribe/motortribe/internal/platform/middleware"
	searchhandlers "github.com/motortribe/motortribe/internal/search/adapters/http/handlers"
	searchmysql "github.com/motortribe/motortribe/internal/search/adapters/repository/mysql"
	searchservice "github.com/motortribe/motortribe/internal/search/app/service"
	"github.com/motortribe/motortribe/internal/search/engine"
)

type Server struct {
	config  *config.Config
	logger  logger.Logger
	metrics *metrics.Metrics

	httpServer     *http.Server
	db             *database.DB
	cache          *cache.RedisCache
	eventPublisher *kafka.EventPublisher
	eventConsumer  *kafka.EventConsumer

	searchEngine      *engine.Engine
	searchService     *searchservice.SearchService
	rebuilder         *searchservice.Rebuilder
	dispatcher        *notificationservice.Dispatcher
	moderationService *moderationservice.ModerationService
}

type Option func(*Server)

func WithConfig(cfg *config.Config) Option {
	return func(s *Server) {
		s.config = cfg
	}
}

func WithLogger(logger logger.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

func New(opts ...Option) (*Server, error) {
	s := &Server{}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize server: %w", err)
	}

	return s, nil
}

func (s *Server) initialize() error {
	s.metrics = metrics.New("motortribe")

	// Initialize database
	db, err := database.New(s.config.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	s.db = db

	// Initialize cache (optional)
	if s.config.Redis.Host != "" {
		redisCache, err := cache.NewRedisCache(s.config.Redis, "community")
		if err != nil {
			s.logger.Warn("failed to initialize Redis cache", "error", err)
		} else {
			s.cache = redisCache
		}
	}

	// Initialize Kafka publisher (optional)
	if len(s.config.Kafka.Brokers) > 0 {
		publisher, err := kafka.NewEventPublisher(&kafka.Config{
			Brokers: s.config.Kafka.Brokers,
			Topic:   s.config.Kafka.PostTopic,
		})
		if err != nil {
			s.logger.Warn("failed to initialize Kafka publisher", "error", err)
		} else {
			s.eventPublisher = publisher
			go s.drainPublisherErrors()
		}
	}

	if err := s.initializeSearch(); err != nil {
		return err
	}
	s.initializeModeration()

	// Initialize Kafka consumer (optional): incremental index updates
	if len(s.config.Kafka.Brokers) > 0 {
		consumer, err := kafka.NewEventConsumer(kafka.ConsumerConfig{
			Brokers: s.config.Kafka.Brokers,
			GroupID: s.config.Kafka.ConsumerGroup,
			Topics:  []string{s.config.Kafka.PostTopic},
		}, s.searchService.HandleEvent, s.logger)
		if err != nil {
			s.logger.Warn("failed to initialize Kafka consumer", "error", err)
		} else {
			s.eventConsumer = consumer
		}
	}

	s.setupHTTPServer()

	return nil
}

func (s *Server) initializeSearch() error {
	searchEngine, err := engine.New(engine.Options{
		Fuzziness:        s.config.Search.Fuzziness,
		SimilarityCutoff: s.config.Search.SimilarityCutoff,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize search engine: %w", err)
	}
	s.searchEngine = searchEngine

	postRepo := searchmysql.NewPostRepository(s.db)
	s.searchService = searchservice.NewSearchService(
		searchEngine,
		postRepo,
		s.cache,
		s.metrics,
		s.logger,
		s.config.Search,
	)

	rebuilder, err := searchservice.NewRebuilder(s.searchService, s.config.Search.RebuildSchedule, s.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize rebuilder: %w", err)
	}
	s.rebuilder = rebuilder

	return nil
}

func (s *Server) initializeModeration() {
	provider := fcm.NewProvider(s.config.Push)
	s.dispatcher = notificationservice.NewDispatcher(provider, notificationservice.DispatcherOptions{
		Workers:     s.config.Push.Workers,
		QueueSize:   s.config.Push.QueueSize,
		SendTimeout: s.config.Push.SendTimeout,
	}, s.metrics, s.logger)

	reportRepo := moderationmysql.NewReportRepository(s.db)
	tokenRepo := notificationmysql.NewDeviceTokenRepository(s.db)

	var publisher moderationservice.EventPublisher
	if s.eventPublisher != nil {
		publisher = s.eventPublisher
	}

	s.moderationService = moderationservice.NewModerationService(
		reportRepo,
		tokenRepo,
		s.dispatcher,
		publisher,
		s.metrics,
		s.logger,
		s.config.Moderation,
	)
}

func (s *Server) setupHTTPServer() {
	router := mux.NewRouter()

	router.Use(middleware.Recovery(s.logger))
	router.Use(middleware.Logging(s.logger))
	router.Use(middleware.CORS(s.config.HTTP.AllowedOrigins))
	router.Use(s.metrics.HTTPMiddleware)

	// Health checks
	healthHandler := health.NewHandler(s.config.Service.Name, s.config.Version)
	healthHandler.AddCheck("database", s.db.HealthCheck)
	if s.cache != nil {
		healthHandler.AddCheck("cache", s.cache.HealthCheck)
	}
	router.Handle("/health", healthHandler).Methods("GET")
	router.Handle("/metrics", s.metrics.Handler()).Methods("GET")

	// API routes
	apiRouter := router.PathPrefix("/api/v1").Subrouter()

	searchHandler := searchhandlers.NewSearchHandler(s.searchService, s.logger)
	searchHandler.RegisterRoutes(apiRouter)

	moderationHandler := moderationhandlers.NewModerationHandler(s.moderationService, s.logger)
	moderationHandler.RegisterRoutes(apiRouter)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.HTTP.Port),
		Handler:      router,
		ReadTimeout:  s.config.HTTP.ReadTimeout,
		WriteTimeout: s.config.HTTP.WriteTimeout,
		IdleTimeout:  s.config.HTTP.IdleTimeout,
	}
}

// Start builds the initial index, starts background workers, and serves HTTP
func (s *Server) Start() error {
	if err := s.searchService.Rebuild(context.Background()); err != nil {
		s.logger.Error("initial index build failed", "error", err)
		// serve anyway: the scheduled rebuild will retry
	}
	s.rebuilder.Start()

	if s.eventConsumer != nil {
		s.eventConsumer.Start(context.Background())
	}

	s.logger.Info("starting HTTP server", "port", s.config.HTTP.Port)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	if s.eventConsumer != nil {
		_ = s.eventConsumer.Close()
	}
	s.rebuilder.Stop()
	s.dispatcher.Close()

	if s.eventPublisher != nil {
		_ = s.eventPublisher.Close()
	}
	if s.cache != nil {
		_ = s.cache.Close()
	}
	if s.searchEngine != nil {
		_ = s.searchEngine.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}

	return nil
}

func (s *Server) drainPublisherErrors() {
	for err := range s.eventPublisher.Errors() {
		s.logger.Error("event publish failed", "error", err)
	}
}
