package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/opsforge/coordd/internal/application/dispatcher"
	"github.com/opsforge/coordd/internal/application/locks"
	"github.com/opsforge/coordd/internal/application/memgraph"
	"github.com/opsforge/coordd/internal/application/registry"
	"github.com/opsforge/coordd/internal/application/supervisor"
	"github.com/opsforge/coordd/internal/application/tasks"
	"github.com/opsforge/coordd/internal/config"
	"github.com/opsforge/coordd/pkg/adapters/events"
	eventsmemory "github.com/opsforge/coordd/pkg/adapters/events/memory"
	eventsredis "github.com/opsforge/coordd/pkg/adapters/events/redis"
	"github.com/opsforge/coordd/pkg/adapters/metrics/prometheus"
	redisstorage "github.com/opsforge/coordd/pkg/adapters/storage/redis"
	"github.com/opsforge/coordd/pkg/api/grpc"
	"github.com/opsforge/coordd/pkg/api/http"
	"github.com/opsforge/coordd/pkg/api/websocket"
	"github.com/opsforge/coordd/pkg/ports"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Version is set by build flags
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("starting coordination daemon",
		zap.String("version", Version),
		zap.String("build_time", BuildTime))

	ctx := context.Background()

	// Initialize event bus and task archive; Redis mirrors are optional
	var eventBus ports.EventBus = eventsmemory.NewInMemoryEventBus()
	var archive ports.TaskArchive
	var redisClient *goredis.Client

	if cfg.Redis.Enabled {
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   cfg.Redis.MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})

		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal("failed to connect to Redis", zap.Error(err))
		}
		logger.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))

		streamBus, err := eventsredis.NewStreamsEventBus(
			redisClient,
			"coordd-consumers",
			fmt.Sprintf("coordd-%d", os.Getpid()),
			logger,
		)
		if err != nil {
			logger.Fatal("failed to create event bus", zap.Error(err))
		}
		eventBus = events.NewMirroredBus(eventBus, streamBus, logger)

		archive = redisstorage.NewTaskArchive(redisClient, cfg.Redis.TaskArchiveTTL, logger)
	}

	metricsCollector := prometheus.NewCollector()

	// Initialize coordination stores
	instanceRegistry := registry.New(eventBus, metricsCollector, logger, cfg.Coordination.LivenessTimeout)
	lockManager := locks.NewManager(eventBus, metricsCollector, logger)
	instanceRegistry.SetClaimReleaser(lockManager)

	taskManager := tasks.NewManager(instanceRegistry, eventBus, archive, metricsCollector, logger)
	memoryStore := memgraph.NewStore(logger)

	coordDispatcher := dispatcher.New(
		instanceRegistry,
		taskManager,
		lockManager,
		memoryStore,
		metricsCollector,
		logger,
	)

	// Initialize process supervisor
	procSupervisor := supervisor.New(supervisor.Config{
		Runtime:          cfg.Supervisor.ContainerRuntime,
		DefaultTimeout:   cfg.Supervisor.DefaultProcessTimeout,
		TerminationGrace: cfg.Supervisor.TerminationGrace,
	}, eventBus, metricsCollector, logger)

	// Start background sweepers
	livenessSweeper := registry.NewSweeper(instanceRegistry, cfg.Coordination.LivenessSweepInterval, logger)
	livenessSweeper.Start()

	claimSweeper := locks.NewSweeper(lockManager, cfg.Coordination.ClaimSweepInterval, logger)
	claimSweeper.Start()

	// Initialize API servers
	httpServer := http.NewServer(&http.Config{
		Port:       cfg.HTTPPort,
		Dispatcher: coordDispatcher,
		Supervisor: procSupervisor,
		Logger:     logger,
	})

	wsHandler := websocket.NewHandler(eventBus, logger)
	httpServer.SetupWebSocket(wsHandler)

	grpcServer, err := grpc.NewServer(&grpc.Config{
		Port:   cfg.GRPCPort,
		Logger: logger,
	})
	if err != nil {
		logger.Fatal("failed to create gRPC server", zap.Error(err))
	}

	// Start servers
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	go func() {
		if err := grpcServer.Start(); err != nil {
			logger.Fatal("gRPC server failed", zap.Error(err))
		}
	}()

	logger.Info("coordination daemon started",
		zap.Int("http_port", cfg.HTTPPort),
		zap.Int("grpc_port", cfg.GRPCPort),
		zap.Duration("liveness_timeout", cfg.Coordination.LivenessTimeout))

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Supervisor.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	if err := grpcServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("gRPC server shutdown error", zap.Error(err))
	}

	if err := procSupervisor.Shutdown(shutdownCtx); err != nil {
		logger.Error("supervisor shutdown error", zap.Error(err))
	}

	livenessSweeper.Stop()
	claimSweeper.Stop()

	if err := eventBus.Close(); err != nil {
		logger.Error("event bus close error", zap.Error(err))
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("Redis close error", zap.Error(err))
		}
	}

	logger.Info("coordination daemon shut down complete")
}

// initLogger initializes the logger based on log level
func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	return logger
}
