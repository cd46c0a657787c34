// Package clonesvc wires the knowledge clone chat service together.
package clonesvc

import (
	"context"
	"fmt"
	"time"

	"github.com/kart-io/logger"
	"github.com/kart-io/version"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/knowledge-clone/internal/clone/biz"
	"github.com/kart-io/knowledge-clone/internal/clone/handler"
	"github.com/kart-io/knowledge-clone/internal/clone/router"
	"github.com/kart-io/knowledge-clone/internal/clone/store"
	"github.com/kart-io/knowledge-clone/pkg/component/database"
	"github.com/kart-io/knowledge-clone/pkg/component/milvus"
	"github.com/kart-io/knowledge-clone/pkg/component/redis"
	"github.com/kart-io/knowledge-clone/pkg/infra/pool"
	"github.com/kart-io/knowledge-clone/pkg/infra/server"
	httpserver "github.com/kart-io/knowledge-clone/pkg/infra/server/http"
	"github.com/kart-io/knowledge-clone/pkg/infra/tracing"
	"github.com/kart-io/knowledge-clone/pkg/llm"
	// 注册 OpenAI 供应商
	_ "github.com/kart-io/knowledge-clone/pkg/llm/openai"
	cloneopts "github.com/kart-io/knowledge-clone/pkg/options/clone"
	"github.com/kart-io/knowledge-clone/pkg/options/credentials"
	dbopts "github.com/kart-io/knowledge-clone/pkg/options/database"
	llmopts "github.com/kart-io/knowledge-clone/pkg/options/llm"
	logopts "github.com/kart-io/knowledge-clone/pkg/options/logger"
	middlewareopts "github.com/kart-io/knowledge-clone/pkg/options/middleware"
	milvusopts "github.com/kart-io/knowledge-clone/pkg/options/milvus"
	redisopts "github.com/kart-io/knowledge-clone/pkg/options/redis"
	httpopts "github.com/kart-io/knowledge-clone/pkg/options/server/http"
	"github.com/kart-io/knowledge-clone/pkg/options/settings"
	tracingopts "github.com/kart-io/knowledge-clone/pkg/options/tracing"
	"github.com/kart-io/knowledge-clone/pkg/options/vectorstore"
)

// Name is the name of the application.
const Name = "knowledge-clone"

// Config contains application-related configurations.
type Config struct {
	HTTPOptions        *httpopts.Options
	LogOptions         *logopts.Options
	LLMOptions         *llmopts.ProviderOptions
	CredentialsOptions *credentials.Options
	MilvusOptions      *milvusopts.Options
	RedisOptions       *redisopts.Options
	DatabaseOptions    *dbopts.Options
	SettingsOptions    *settings.Options
	VectorOptions      *vectorstore.Options
	CloneOptions       *cloneopts.Options
	MiddlewareOptions  *middlewareopts.Options
	TracingOptions     *tracingopts.Options
}

// Server represents the knowledge clone server.
type Server struct {
	srv      *server.Manager
	http     *httpserver.Server
	pools    *pool.Manager
	tracer   *tracing.Provider
	closers  []func()
	shutdown time.Duration
}

// NewServer initializes and returns a new Server instance. On failure every
// client opened so far is closed again.
func (cfg *Config) NewServer(ctx context.Context) (_ *Server, err error) {
	s := &Server{shutdown: cfg.HTTPOptions.ShutdownTimeout}
	defer func() {
		if err != nil {
			s.close()
		}
	}()

	// 1. 初始化日志
	cfg.LogOptions.ServiceName = Name
	if err := cfg.LogOptions.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Infow("Starting knowledge clone service...", "version", version.Get().GitVersion)

	// 2. 初始化链路追踪
	s.tracer, err = tracing.NewProvider(cfg.TracingOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	// 3. 初始化协程池
	s.pools = pool.NewManager()
	retrievalPool, err := s.pools.Register(pool.RetrievalPool, pool.RetrievalPoolConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create retrieval pool: %w", err)
	}
	ingestPool, err := s.pools.Register(pool.IngestPool, pool.IngestPoolConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create ingest pool: %w", err)
	}

	// 4. 初始化 Redis（设置存储或 Embedding 缓存需要时）
	var redisClient goredis.UniversalClient
	if cfg.SettingsOptions.Backend == settings.BackendRedis || cfg.CloneOptions.EmbeddingCache.Enabled {
		rc, err := redis.New(ctx, cfg.RedisOptions)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		s.closers = append(s.closers, func() { _ = rc.Close() })
		redisClient = rc.Client()
		logger.Infow("Redis client initialized", "addr", cfg.RedisOptions.Addr())
	}

	// 5. 初始化设置存储
	settingsStore, err := s.newSettingsStore(ctx, cfg, redisClient)
	if err != nil {
		return nil, err
	}
	configProvider := biz.NewConfigProvider(settingsStore, cfg.SettingsOptions, cfg.CredentialsOptions)
	logger.Infow("Settings store initialized", "backend", settingsStore.Name())

	// 6. 初始化 LLM 供应商，密钥在每次调用时从本轮快照解析
	llmConfig := cfg.LLMOptions.ToConfigMap()
	llmConfig["key_source"] = configProvider.KeySource(biz.ProviderEmbedding)
	provider, err := llm.NewProvider(cfg.LLMOptions.Provider, llmConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize llm provider: %w", err)
	}
	var embedder llm.EmbeddingProvider = provider
	if cfg.CloneOptions.EmbeddingCache.Enabled {
		embedder = llm.NewCachedEmbedder(provider, redisClient, llm.EmbeddingCacheConfig{
			TTL:       cfg.CloneOptions.EmbeddingCache.TTL,
			KeyPrefix: cfg.CloneOptions.EmbeddingCache.KeyPrefix,
		})
	}
	logger.Infow("LLM provider initialized",
		"provider", cfg.LLMOptions.Provider,
		"embed_model", cfg.LLMOptions.EmbedModel,
		"chat_model", cfg.LLMOptions.ChatModel,
		"embedding_cache", cfg.CloneOptions.EmbeddingCache.Enabled,
	)

	// 7. 初始化向量存储
	vectors, err := s.newVectorStore(ctx, cfg, configProvider)
	if err != nil {
		return nil, err
	}
	logger.Infow("Vector store initialized", "backend", vectors.Name(), "namespace", cfg.VectorOptions.Namespace)

	// 8. 初始化 Biz 层
	web, err := biz.NewRetriever(cfg.CloneOptions.Web)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize web retriever: %w", err)
	}
	composer := biz.NewComposer(embedder, vectors, web, provider, retrievalPool, &biz.ComposerConfig{
		TopK:          cfg.VectorOptions.TopK,
		TokenRatio:    cfg.CloneOptions.TokenRatio,
		HistoryWindow: cfg.CloneOptions.HistoryWindow,
		Parallel:      cfg.CloneOptions.ParallelRetrieval,
	})
	chat := biz.NewChatService(composer, configProvider, cfg.CloneOptions.TurnTimeout)
	ingester := biz.NewIngester(embedder, vectors, configProvider, cfg.CloneOptions.Upload)
	logger.Infow("Chat pipeline initialized",
		"web", cfg.CloneOptions.Web.Kind,
		"parallel_retrieval", cfg.CloneOptions.ParallelRetrieval,
		"history_window", cfg.CloneOptions.HistoryWindow,
	)

	// 9. 初始化 HTTP 服务并注册路由
	s.http = httpserver.NewServer(cfg.HTTPOptions, cfg.MiddlewareOptions)
	router.Register(s.http.Engine(), handler.New(chat, configProvider, ingester, cfg.SettingsOptions))

	runnables := []server.Runnable{s.http}

	// 10. 目录监听（可选）
	if dir := cfg.CloneOptions.Upload.WatchDir; dir != "" {
		runnables = append(runnables, biz.NewWatcher(dir, ingester, ingestPool))
		logger.Infow("Upload directory watcher enabled", "dir", dir)
	}

	s.srv = server.NewManager(runnables...)
	logger.Info("Knowledge clone service is ready")
	return s, nil
}

func (s *Server) newSettingsStore(ctx context.Context, cfg *Config, redisClient goredis.UniversalClient) (store.SettingsStore, error) {
	switch cfg.SettingsOptions.Backend {
	case settings.BackendRedis:
		return store.NewRedisSettings(redisClient, cfg.SettingsOptions.RedisKey), nil
	case settings.BackendDatabase:
		db, err := database.New(ctx, cfg.DatabaseOptions)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		s.closers = append(s.closers, func() { _ = db.Close() })
		st, err := store.NewDBSettings(ctx, db.DB())
		if err != nil {
			return nil, fmt.Errorf("failed to migrate settings table: %w", err)
		}
		return st, nil
	default:
		return store.NewMemorySettings(), nil
	}
}

func (s *Server) newVectorStore(ctx context.Context, cfg *Config, configProvider *biz.ConfigProvider) (store.VectorStore, error) {
	switch cfg.VectorOptions.Backend {
	case vectorstore.BackendMilvus:
		client, err := milvus.New(ctx, cfg.MilvusOptions)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize milvus: %w", err)
		}
		s.closers = append(s.closers, func() { _ = client.Close(context.Background()) })
		vs, err := store.NewMilvusStore(ctx, client, cfg.MilvusOptions.Collection, cfg.MilvusOptions.Dimension)
		if err != nil {
			return nil, fmt.Errorf("failed to prepare milvus collection: %w", err)
		}
		return vs, nil
	case vectorstore.BackendMemory:
		return store.NewMemoryStore(), nil
	default:
		return store.NewPineconeStore(cfg.VectorOptions, configProvider.KeySource(biz.ProviderVectorStore)), nil
	}
}

// Run starts all components and blocks until ctx is cancelled, then shuts
// them down within the configured timeout.
func (s *Server) Run(ctx context.Context) error {
	defer s.close()

	if err := s.srv.Start(ctx); err != nil {
		return err
	}
	logger.Infow("HTTP server listening", "addr", s.http.Addr().String())

	<-ctx.Done()
	logger.Info("Shutting down knowledge clone service...")

	stopCtx, cancel := context.WithTimeout(context.Background(), s.shutdown)
	defer cancel()
	return s.srv.Stop(stopCtx)
}

func (s *Server) close() {
	if s.pools != nil {
		s.pools.ReleaseAll(s.shutdown)
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
	if s.tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.tracer.Shutdown(ctx)
	}
	_ = logger.Flush()
}
