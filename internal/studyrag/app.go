package studyrag

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/studyrag/internal/studyrag/biz"
	"github.com/kart-io/studyrag/internal/studyrag/handler"
	"github.com/kart-io/studyrag/internal/studyrag/router"
	"github.com/kart-io/studyrag/internal/studyrag/store"
	"github.com/kart-io/studyrag/pkg/app"
	"github.com/kart-io/studyrag/pkg/llm"

	// 导入 LLM 供应商以自动注册
	_ "github.com/kart-io/studyrag/pkg/llm/gemini"
	_ "github.com/kart-io/studyrag/pkg/llm/ollama"
	"github.com/kart-io/studyrag/pkg/utils/httpclient"
)

const (
	appName        = "studyrag"
	appDescription = `StudyRAG Service

The study assistant service answering questions over ingested PDF documents.

This server provides:
  - Streaming Q&A over per-document vector indexes
  - Quiz generation and grading
  - Video search topic suggestions
  - Background PDF ingestion with backend status callbacks`
)

// NewApp creates a new application instance.
func NewApp() *app.App {
	opts := NewOptions()

	return app.NewApp(
		app.WithName(appName),
		app.WithDescription(appDescription),
		app.WithOptions(opts),
		app.WithRunFunc(func() error {
			return Run(opts)
		}),
	)
}

// Run runs the studyrag service with the given options.
func Run(opts *Options) error {
	// 1. 初始化日志
	opts.Log.AddInitialField("service.name", appName)
	opts.Log.AddInitialField("service.version", app.GetVersion())
	if err := opts.Log.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("Starting studyrag service...")

	// 2. Redis（可选，仅缓存启用时连接）
	var redisClient *goredis.Client
	if opts.Cache.Enabled {
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:         fmt.Sprintf("%s:%d", opts.Redis.Host, opts.Redis.Port),
			Password:     opts.Redis.Password,
			DB:           opts.Redis.Database,
			MaxRetries:   opts.Redis.MaxRetries,
			PoolSize:     opts.Redis.PoolSize,
			MinIdleConns: opts.Redis.MinIdleConns,
			DialTimeout:  opts.Redis.DialTimeout,
			ReadTimeout:  opts.Redis.ReadTimeout,
			WriteTimeout: opts.Redis.WriteTimeout,
			PoolTimeout:  opts.Redis.PoolTimeout,
		})
		defer func() { _ = redisClient.Close() }()

		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			// 缓存是优化项，连不上降级运行
			logger.Warnw("redis unreachable, caches disabled", "error", err.Error())
			redisClient = nil
		}
		cancel()
		if redisClient != nil {
			logger.Info("Redis client initialized")
		}
	}

	// 3. LLM 供应商
	embedProvider, err := llm.NewEmbeddingProvider(opts.Embedding.Provider, opts.Embedding.ToConfigMap())
	if err != nil {
		return fmt.Errorf("failed to create embedding provider: %w", err)
	}
	if redisClient != nil {
		embedProvider = llm.NewCachedEmbeddingProvider(embedProvider, redisClient, &llm.EmbeddingCacheConfig{
			Enabled:   true,
			TTL:       opts.Cache.TTL,
			KeyPrefix: "studyrag:emb:",
		})
	}

	chatProvider, err := llm.NewChatProvider(opts.Chat.Provider, opts.Chat.ToConfigMap())
	if err != nil {
		return fmt.Errorf("failed to create chat provider: %w", err)
	}
	logger.Infow("LLM providers initialized",
		"embedding", embedProvider.Name(), "chat", chatProvider.Name())

	// 4. 索引存储
	localStore, err := store.NewLocalStore(opts.Study.IndexDir)
	if err != nil {
		return fmt.Errorf("failed to initialize index store: %w", err)
	}

	// 5. Biz 层
	backendClient := httpclient.NewClient(30*time.Second, 2)
	service, err := biz.NewStudyService(localStore, embedProvider, chatProvider, redisClient, backendClient, &biz.ServiceConfig{
		SamplerConfig: &biz.SamplerConfig{
			TopK:       opts.Study.TopK,
			SampleSize: opts.Study.SampleSize,
		},
		QuizConfig: &biz.QuizConfig{
			MaxAttempts: opts.Study.QuizMaxAttempts,
		},
		TopicsConfig: &biz.TopicsConfig{
			PerDocument: opts.Study.TopicsPerDoc,
		},
		TopicCache: &biz.TopicCacheConfig{
			Enabled:   redisClient != nil,
			TTL:       opts.Cache.TTL,
			KeyPrefix: "studyrag:topics:",
		},
		IngestConfig: &biz.IngestConfig{
			DataDir:      opts.Study.DataDir,
			ChunkSize:    opts.Study.ChunkSize,
			ChunkOverlap: opts.Study.ChunkOverlap,
			BackendURL:   opts.Study.BackendURL,
			Workers:      4,
			TaskTimeout:  10 * time.Minute,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize study service: %w", err)
	}
	defer service.Close()
	logger.Info("Study service initialized")

	// 6. HTTP 服务器
	gin.SetMode(opts.HTTP.Mode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	router.Register(engine, handler.NewStudyHandler(service))

	srv := &http.Server{
		Addr:         opts.HTTP.Addr,
		Handler:      engine,
		ReadTimeout:  opts.HTTP.ReadTimeout,
		WriteTimeout: opts.HTTP.WriteTimeout,
		IdleTimeout:  opts.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("HTTP server listening", "addr", opts.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 7. 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case sig := <-quit:
		logger.Infow("Shutting down...", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	logger.Info("Server exited")
	return nil
}
