package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/ai-helloworld/internal/domain/auth"
	"github.com/yanqian/ai-helloworld/internal/domain/faq"
	ragdomain "github.com/yanqian/ai-helloworld/internal/domain/rag"
	"github.com/yanqian/ai-helloworld/internal/domain/summarizer"
	"github.com/yanqian/ai-helloworld/internal/domain/uvadvisor"
	"github.com/yanqian/ai-helloworld/internal/infra/config"
	"github.com/yanqian/ai-helloworld/internal/infra/faqrepo"
	"github.com/yanqian/ai-helloworld/internal/infra/faqstore"
	"github.com/yanqian/ai-helloworld/internal/infra/llm/chatgpt"
	"github.com/yanqian/ai-helloworld/internal/infra/rag/blob"
	"github.com/yanqian/ai-helloworld/internal/infra/rag/jobqueue"
	"github.com/yanqian/ai-helloworld/internal/infra/rag/metadata"
	"github.com/yanqian/ai-helloworld/internal/infra/rag/workerclient"
	"github.com/yanqian/ai-helloworld/internal/infra/userrepo"
	"github.com/yanqian/ai-helloworld/internal/infra/uv/datagov"
)

func provideSummaryConfig(cfg *config.Config) summarizer.Config {
	return summarizer.Config{
		MaxSummaryLen: cfg.Summary.MaxSummaryLen,
		MaxKeywords:   cfg.Summary.MaxKeywords,
		DefaultPrompt: cfg.Summary.DefaultPrompt,
		Model:         cfg.LLM.Model,
		Temperature:   cfg.LLM.Temperature,
	}
}

func provideChatGPTClient(cfg *config.Config) (*chatgpt.Client, error) {
	return chatgpt.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL)
}

func provideUVAdvisorConfig(cfg *config.Config) uvadvisor.Config {
	return uvadvisor.Config{
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Prompt:      cfg.UVAdvisor.Prompt,
		SourceURL:   cfg.UVAdvisor.APIBaseURL,
	}
}

func provideUVClient(cfg *config.Config) *datagov.Client {
	return datagov.NewClient(cfg.UVAdvisor.APIBaseURL)
}

func provideAuthConfig(cfg *config.Config) auth.Config {
	return auth.Config{
		Secret:          cfg.Auth.JWTSecret,
		TokenTTL:        cfg.Auth.AccessTokenTTL,
		RefreshTokenTTL: cfg.Auth.RefreshTokenTTL,
	}
}

func provideFAQConfig(cfg *config.Config) faq.Config {
	return faq.Config{
		Model:               cfg.LLM.Model,
		EmbeddingModel:      cfg.LLM.EmbeddingModel,
		Temperature:         cfg.LLM.Temperature,
		Prompt:              cfg.FAQ.Prompt,
		CacheTTL:            cfg.FAQ.CacheTTL,
		TopRecommendations:  cfg.FAQ.TopRecommendations,
		SimilarityThreshold: cfg.FAQ.SimilarityThreshold,
	}
}

func provideFAQRepository(cfg *config.Config, logger *slog.Logger) faq.QuestionRepository {
	fallback := faqrepo.NewMemoryRepository()
	dsn := strings.TrimSpace(cfg.FAQ.Postgres.DSN)
	if dsn == "" {
		logger.Info("faq postgres dsn not set, using memory repository")
		return fallback
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using memory repository", "error", err)
		return fallback
	}
	if cfg.FAQ.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.FAQ.Postgres.MaxConns
	}
	if cfg.FAQ.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.FAQ.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using memory repository", "error", err)
		return fallback
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, using memory repository", "error", err)
		pool.Close()
		return fallback
	}
	logger.Info("faq postgres repository enabled")
	return faqrepo.NewPostgresRepository(pool)
}

func provideFAQStore(cfg *config.Config, logger *slog.Logger) faq.Store {
	if cfg.FAQ.Redis.Enabled {
		opt, err := buildValkeyOptions(cfg.FAQ.Redis.Addr)
		if err != nil {
			logger.Error("invalid valkey configuration, falling back to memory store", "error", err)
			return faqstore.NewMemoryStore()
		}
		client, err := valkey.NewClient(opt)
		if err != nil {
			logger.Error("failed to create valkey client, falling back to memory store", "error", err)
			return faqstore.NewMemoryStore()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
			logger.Error("valkey ping failed, falling back to memory store", "error", err)
		} else {
			logger.Info("faq valkey store enabled", "addr", cfg.FAQ.Redis.Addr)
			return faqstore.NewValkeyStore(client, "faq")
		}
	}
	return faqstore.NewMemoryStore()
}

func provideAuthRepository(cfg *config.Config, logger *slog.Logger) auth.Repository {
	fallback := userrepo.NewMemoryRepository()
	dsn := strings.TrimSpace(cfg.Auth.Postgres.DSN)
	if dsn == "" {
		logger.Info("auth postgres dsn not set, using memory repository")
		return fallback
	}

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid auth postgres dsn, using memory repository", "error", err)
		return fallback
	}
	if cfg.Auth.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Auth.Postgres.MaxConns
	}
	if cfg.Auth.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Auth.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize auth postgres pool, using memory repository", "error", err)
		return fallback
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("auth postgres ping failed, using memory repository", "error", err)
		pool.Close()
		return fallback
	}
	logger.Info("auth postgres repository enabled")
	return userrepo.NewPostgresRepository(pool)
}

func buildValkeyOptions(addr string) (valkey.ClientOption, error) {
	var (
		opt valkey.ClientOption
		err error
	)
	addr = strings.TrimSpace(addr)
	if strings.Contains(addr, "://") {
		opt, err = valkey.ParseURL(addr)
	} else {
		opt = valkey.ClientOption{InitAddress: []string{addr}}
	}
	if err != nil {
		return valkey.ClientOption{}, err
	}
	return opt, nil
}

func provideRAGPostgresPool(cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.RAG.Postgres.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.RAG.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.RAG.Postgres.MaxConns
	}
	if cfg.RAG.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.RAG.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info("rag postgres pool ready")
	return pool, nil
}

func provideDocumentStore(pool *pgxpool.Pool) *metadata.DocumentStore {
	return metadata.NewDocumentStore(pool)
}

func provideBlobStore(cfg *config.Config, logger *slog.Logger) (*blob.Store, error) {
	return blob.NewStore(cfg.RAG.Storage.Endpoint, cfg.RAG.Storage.AccessKey, cfg.RAG.Storage.SecretKey, cfg.RAG.Storage.Bucket, cfg.RAG.Storage.Region, logger)
}

func provideValkeyClient(cfg *config.Config, logger *slog.Logger) (valkey.Client, error) {
	opt, err := buildValkeyOptions(cfg.RAG.Valkey.Addr)
	if err != nil {
		return nil, err
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		return nil, err
	}
	logger.Info("rag valkey client ready")
	return client, nil
}

func provideIngestQueueProducer(client valkey.Client, cfg *config.Config, logger *slog.Logger) *jobqueue.Queue {
	return jobqueue.NewQueue(client, cfg.RAG.QueueKey, logger)
}

func provideWorkerClient(cfg *config.Config) *workerclient.Client {
	return workerclient.New(cfg.RAG.WorkerBaseURL, 30*time.Second)
}

func provideGatewayConfig(cfg *config.Config) ragdomain.GatewayConfig {
	return ragdomain.GatewayConfig{
		MaxFileSize:     cfg.RAG.MaxFileSize,
		UploadURLExpiry: 15 * time.Minute,
	}
}

func provideGatewayService(gwCfg ragdomain.GatewayConfig, docs *metadata.DocumentStore, blobs *blob.Store, queue *jobqueue.Queue, worker *workerclient.Client, logger *slog.Logger) *ragdomain.GatewayService {
	return ragdomain.NewGatewayService(gwCfg, docs, blobs, blobs, queue, worker, worker, logger)
}
