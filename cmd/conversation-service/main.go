package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"supportdesk-backend/internal/database"
	agentHandler "supportdesk-backend/internal/handler/http/agent"
	chatHandler "supportdesk-backend/internal/handler/http/chat"
	conversationHandler "supportdesk-backend/internal/handler/http/conversation"
	videoHandler "supportdesk-backend/internal/handler/http/video"
	"supportdesk-backend/internal/middleware"
	"supportdesk-backend/internal/repository/cassandra"
	"supportdesk-backend/internal/repository/postgres"
	redisRepo "supportdesk-backend/internal/repository/redis"
	callService "supportdesk-backend/internal/service/call"
	"supportdesk-backend/internal/service/liveness"
	registryService "supportdesk-backend/internal/service/registry"
	syncService "supportdesk-backend/internal/service/sync"
	"supportdesk-backend/pkg/config"
	"supportdesk-backend/pkg/constants"
	"supportdesk-backend/pkg/env"
	"supportdesk-backend/pkg/jwt"
	"supportdesk-backend/pkg/logger"
	"supportdesk-backend/pkg/metrics"
)

func main() {
	// 1. Configuration and logging
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Init(&logger.Config{
		Level:    cfg.Log.Level,
		Format:   cfg.Log.Format,
		Output:   cfg.Log.Output,
		FilePath: cfg.Log.FilePath,
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// 2. JWT manager for the agent console routes
	jwtSecret := env.GetStringFromFile("JWT_SECRET", cfg.JWT.Secret)
	if jwtSecret == "" {
		logger.Fatal("JWT_SECRET environment variable is required")
	}
	jwtManager := jwt.NewJWTManager(jwtSecret, cfg.JWT.AccessTokenExpiry)

	// 3. Postgres (conversations, tenants, agents)
	postgresDB, err := database.NewPostgresDB(context.Background(), &database.PostgresConfig{
		Host:              cfg.Database.Host,
		Port:              cfg.Database.Port,
		User:              cfg.Database.User,
		Password:          env.GetStringFromFile("DB_PASSWORD", cfg.Database.Password),
		Database:          cfg.Database.Database,
		SSLMode:           cfg.Database.SSLMode,
		MaxConns:          cfg.Database.MaxConns,
		MinConns:          cfg.Database.MinConns,
		MaxConnLifetime:   constants.MaxConnLifetime,
		MaxConnIdleTime:   constants.MaxConnIdleTime,
		HealthCheckPeriod: constants.HealthCheckPeriod,
	})
	if err != nil {
		logger.Fatal("Failed to connect to Postgres", zap.Error(err))
	}
	defer postgresDB.Close()
	logger.Info("Connected to Postgres")

	// 4. Cassandra (message log)
	cassandraDB, err := database.NewCassandraDB(&database.CassandraConfig{
		Hosts:    cfg.Cassandra.Hosts,
		Keyspace: cfg.Cassandra.Keyspace,
		Username: env.GetStringFromFile("CASSANDRA_USER", ""),
		Password: env.GetStringFromFile("CASSANDRA_PASSWORD", ""),
		Timeout:  cfg.Cassandra.Timeout,
	})
	if err != nil {
		logger.Fatal("Failed to connect to Cassandra", zap.Error(err))
	}
	defer cassandraDB.Close()
	logger.Info("Connected to Cassandra")

	// 5. Redis (presence, pub/sub) with degraded mode support
	database.InitRedisMetrics()
	redisDB, err := database.NewRedisDB(&database.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: env.GetStringFromFile("REDIS_PASSWORD", cfg.Redis.Password),
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
		Timeout:  cfg.Redis.Timeout,
	})
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisDB.Close()

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	redisDB.StartHealthCheck(rootCtx, 10*time.Second)
	logger.Info("Connected to Redis, health check started")

	// 6. Repositories
	conversationRepo := postgres.NewConversationRepository(postgresDB.Pool)
	tenantRepo := postgres.NewTenantRepository(postgresDB.Pool)
	messageRepo := cassandra.NewMessageRepository(cassandraDB.Session)
	presenceRepo := redisRepo.NewPresenceRepository(redisDB)
	publisher := redisRepo.NewPublisher(redisDB)

	// 7. Services
	registrySvc := registryService.NewService(conversationRepo, messageRepo, tenantRepo, presenceRepo, logger.Log)
	syncSvc := syncService.NewService(messageRepo, conversationRepo, publisher, logger.Log)
	callSvc := callService.NewService(syncSvc, logger.Log)

	// 8. Liveness monitor
	monitor := liveness.NewMonitor(conversationRepo, cfg.Liveness.StalenessThreshold, cfg.Liveness.SweepInterval, logger.Log)
	go monitor.Run(rootCtx)

	// 9. Metrics and handlers
	appMetrics := metrics.NewMetrics(cfg.Server.ServiceName)
	prometheusMiddleware := middleware.NewPrometheusMiddleware(appMetrics)

	conversationHdlr := conversationHandler.NewHandler(registrySvc)
	chatHdlr := chatHandler.NewHandler(syncSvc)
	videoHdlr := videoHandler.NewHandler(callSvc)
	agentHdlr := agentHandler.NewHandler(registrySvc, presenceRepo)

	// 10. Router
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.SetTrustedProxies(nil)

	router.Use(middleware.Recovery(logger.Log))
	router.Use(middleware.RequestLogger(logger.Log))
	router.Use(middleware.CORSMiddleware())
	router.Use(prometheusMiddleware.Handler())

	router.GET("/health", func(c *gin.Context) {
		status := "healthy"
		if presenceRepo.IsDegraded() {
			status = "degraded"
		}
		c.JSON(200, gin.H{
			"status":  status,
			"service": cfg.Server.ServiceName,
			"time":    time.Now().UTC(),
		})
	})
	router.GET("/metrics", middleware.MetricsHandler())

	v1 := router.Group("/v1")
	{
		// Customer widget routes, no authentication
		v1.POST("/conversations", conversationHdlr.Create)
		v1.GET("/conversations/:id", conversationHdlr.Get)
		v1.POST("/conversations/:id/heartbeat", conversationHdlr.Heartbeat)
		v1.POST("/conversations/:id/inactive", conversationHdlr.MarkInactive)
		v1.PUT("/conversations/:id/status", conversationHdlr.SetStatus)
		v1.GET("/conversations/:id/messages", chatHdlr.SyncMessages)
		v1.POST("/conversations/:id/messages", chatHdlr.SendMessage)
		v1.POST("/conversations/:id/video-request", videoHdlr.RequestVideo)
		v1.POST("/conversations/:id/video-response", videoHdlr.RespondVideo)
		v1.GET("/tenants/:id/agents/online", agentHdlr.ListOnlineAgents)

		// Agent console routes, token required
		agentGroup := v1.Group("/agent")
		agentGroup.Use(middleware.AuthMiddleware(jwtManager))
		{
			agentGroup.GET("/conversations", agentHdlr.ListConversations)
			agentGroup.POST("/conversations/claim", agentHdlr.Claim)
			agentGroup.POST("/conversations/decline", agentHdlr.Decline)
			agentGroup.POST("/presence", agentHdlr.SetPresence)
			agentGroup.POST("/presence/refresh", agentHdlr.RefreshPresence)
		}
	}

	// 11. Start server with graceful shutdown
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		logger.Info("Conversation service starting", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")
	rootCancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.GracefulShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
