package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"debugoj/internal/common/cache"
	commonmw "debugoj/internal/common/http/middleware"
	"debugoj/internal/common/mq"
	"debugoj/internal/common/storage"
	"debugoj/internal/validator/catalog"
	"debugoj/internal/validator/cheat"
	"debugoj/internal/validator/controller"
	"debugoj/internal/validator/model"
	"debugoj/internal/validator/quota"
	"debugoj/internal/validator/repository"
	"debugoj/internal/validator/runtime"
	"debugoj/internal/validator/sandbox"
	"debugoj/internal/validator/service"
	"debugoj/internal/validator/structural"
	"debugoj/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultConfigPath = "configs/validator_service.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if err := run(appCfg); err != nil {
		logger.Error(context.Background(), "validator service stopped", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(appCfg *AppConfig) error {
	ctx := context.Background()

	var sharedCache cache.Cache
	var counter quota.Counter = quota.NewMemoryCounter(appCfg.Quota)
	if appCfg.Redis.Addr != "" {
		redisCache, err := cache.NewRedisCacheWithConfig(&appCfg.Redis)
		if err != nil {
			return fmt.Errorf("init redis failed: %w", err)
		}
		defer func() {
			_ = redisCache.Close()
		}()
		sharedCache = redisCache
		counter = quota.NewRedisCounter(redisCache, appCfg.Quota)
	} else {
		logger.Warn(ctx, "redis not configured, remote quota is per process")
	}

	var publisher repository.VerdictPublisher = repository.NoopPublisher{}
	if len(appCfg.Kafka.Brokers) > 0 {
		producer, err := mq.NewKafkaProducer(appCfg.Kafka.KafkaConfig)
		if err != nil {
			return fmt.Errorf("init kafka failed: %w", err)
		}
		defer func() {
			_ = producer.Close()
		}()
		publisher = repository.NewMQVerdictPublisher(producer, appCfg.Kafka.VerdictTopic)
	}

	questions, err := buildCatalog(appCfg, sharedCache)
	if err != nil {
		return err
	}

	boot := runtime.NewBootstrapper()
	validator := structural.NewValidator(appCfg.Validation.Structural, structural.DefaultCatalog())
	dispatcher := runtime.NewDispatcher(
		buildRoutes(ctx, appCfg, boot, counter),
		runtime.NewSimulationAdapter(appCfg.Runtimes.Simulation, validator),
		appCfg.Runtimes.Dispatch,
	)
	for lang, substrate := range dispatcher.Substrates() {
		logger.Info(ctx, "language route", zap.String("language", string(lang)), zap.String("substrate", string(substrate)))
	}

	orchestrator := service.NewOrchestrator(dispatcher, cheat.NewDetector(), validator, appCfg.Validation.Orchestrator)
	questionSvc := service.NewQuestionService(orchestrator, questions, publisher, appCfg.Server.MaxCodeBytes)
	reporter := service.NewRuntimeReporter(dispatcher, boot, counter)
	handler := controller.NewValidatorController(orchestrator, dispatcher, questionSvc, reporter)

	var verifier *commonmw.TokenVerifier
	if appCfg.Auth.Secret != "" {
		verifier = commonmw.NewTokenVerifier(appCfg.Auth)
	}
	httpServer := buildHTTPServer(appCfg.Server, handler, verifier)
	listener, err := net.Listen("tcp", appCfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("init http listener failed: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "validator http server started", zap.String("addr", appCfg.Server.Addr))
		errCh <- httpServer.Serve(listener)
	}()

	shutdownCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server stopped: %w", err)
		}
	case <-shutdownCtx.Done():
		logger.Info(ctx, "shutdown signal received")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(timeoutCtx); err != nil {
		logger.Error(ctx, "http server shutdown failed", zap.Error(err))
	}
	return nil
}

func buildCatalog(appCfg *AppConfig, c cache.Cache) (catalog.Catalog, error) {
	if appCfg.Catalog.File != "" {
		fc, err := catalog.LoadFile(appCfg.Catalog.File)
		if err != nil {
			return nil, fmt.Errorf("load question catalog failed: %w", err)
		}
		return fc, nil
	}
	store, err := storage.NewMinIOStorage(appCfg.MinIO)
	if err != nil {
		return nil, fmt.Errorf("init minio failed: %w", err)
	}
	return catalog.NewObjectCatalog(store, c, appCfg.Catalog.Object), nil
}

// buildRoutes registers the enabled substrates; the rest fall back to simulation.
func buildRoutes(ctx context.Context, appCfg *AppConfig, boot *runtime.Bootstrapper, counter quota.Counter) map[model.Language]runtime.Adapter {
	rc := appCfg.Runtimes
	routes := make(map[model.Language]runtime.Adapter)

	if rc.Python.Enabled || rc.JavaScript.Enabled {
		engine, err := sandbox.NewEngine(appCfg.Sandbox)
		if err != nil {
			logger.Warn(ctx, "sandbox engine unavailable, interpreted languages use simulation", zap.Error(err))
		} else {
			if rc.Python.Enabled {
				routes[model.LanguagePython] = runtime.NewInterpreterAdapter(rc.Python, engine, appCfg.Sandbox.WorkRoot, boot)
			}
			if rc.JavaScript.Enabled {
				routes[model.LanguageJavaScript] = runtime.NewHostAdapter(rc.JavaScript, engine, appCfg.Sandbox.WorkRoot, boot)
			}
		}
	}
	if rc.Lua.Enabled {
		routes[model.LanguageLua] = runtime.NewEmbeddedAdapter(rc.Lua, boot)
	}
	if rc.Database.Enabled {
		routes[model.LanguageSQL] = runtime.NewDatabaseAdapter(rc.Database, boot)
	}
	if rc.Remote.Enabled {
		remote := runtime.NewRemoteAdapter(rc.Remote, counter, boot)
		for tag := range rc.Remote.LanguageIDs {
			if lang, ok := model.ParseLanguage(tag); ok {
				routes[lang] = remote
			}
		}
	}
	return routes
}

func buildHTTPServer(cfg ServerConfig, h *controller.ValidatorController, verifier *commonmw.TokenVerifier) *http.Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(commonmw.TraceContextMiddleware())
	router.Use(commonmw.RequestLogger())
	controller.RegisterRoutes(router, h, verifier)

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}
