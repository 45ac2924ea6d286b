package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	ragdomain "github.com/yanqian/ai-helloworld/internal/domain/rag"
	"github.com/yanqian/ai-helloworld/internal/domain/rag/graph"
	"github.com/yanqian/ai-helloworld/internal/domain/rag/ingest"
	"github.com/yanqian/ai-helloworld/internal/domain/rag/retrieval"
	"github.com/yanqian/ai-helloworld/internal/infra/config"
	"github.com/yanqian/ai-helloworld/internal/infra/llm/chatgpt"
	"github.com/yanqian/ai-helloworld/internal/infra/rag/blob"
	"github.com/yanqian/ai-helloworld/internal/infra/rag/checkpoint"
	"github.com/yanqian/ai-helloworld/internal/infra/rag/embedclient"
	"github.com/yanqian/ai-helloworld/internal/infra/rag/jobqueue"
	"github.com/yanqian/ai-helloworld/internal/infra/rag/llmclient"
	"github.com/yanqian/ai-helloworld/internal/infra/rag/metadata"
	"github.com/yanqian/ai-helloworld/internal/infra/rag/reranker"
	"github.com/yanqian/ai-helloworld/internal/infra/rag/vectorstore"
)

func provideChatGPTClient(cfg *config.Config) (*chatgpt.Client, error) {
	return chatgpt.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL)
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
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		var oid uint32
		if err := conn.QueryRow(ctx, "SELECT 'vector'::regtype::oid").Scan(&oid); err != nil {
			logger.Error("failed to lookup pgvector oid", "error", err)
			return err
		}
		conn.TypeMap().RegisterType(&pgtype.Type{Name: "vector", OID: oid, Codec: pgtype.TextCodec{}})
		return nil
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

func provideValkeyClient(cfg *config.Config, logger *slog.Logger) (valkey.Client, error) {
	addr := strings.TrimSpace(cfg.RAG.Valkey.Addr)
	var opt valkey.ClientOption
	if strings.Contains(addr, "://") {
		parsed, err := valkey.ParseURL(addr)
		if err != nil {
			return nil, err
		}
		opt = parsed
	} else {
		opt = valkey.ClientOption{InitAddress: []string{addr}}
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		return nil, err
	}
	logger.Info("rag valkey client ready", "addr", addr)
	return client, nil
}

func provideBlobStore(cfg *config.Config, logger *slog.Logger) (*blob.Store, error) {
	return blob.NewStore(cfg.RAG.Storage.Endpoint, cfg.RAG.Storage.AccessKey, cfg.RAG.Storage.SecretKey, cfg.RAG.Storage.Bucket, cfg.RAG.Storage.Region, logger)
}

func provideDocumentStore(pool *pgxpool.Pool) *metadata.DocumentStore {
	return metadata.NewDocumentStore(pool)
}

func provideParentBlockStore(pool *pgxpool.Pool) *metadata.ParentBlockStore {
	return metadata.NewParentBlockStore(pool)
}

func provideVectorStore(pool *pgxpool.Pool) *vectorstore.Store {
	return vectorstore.NewStore(pool)
}

func provideCheckpointStore(pool *pgxpool.Pool) *checkpoint.Store {
	return checkpoint.NewStore(pool)
}

func provideEmbedClient(client *chatgpt.Client, cfg *config.Config, logger *slog.Logger) *embedclient.Client {
	return embedclient.New(client, cfg.RAG.EmbeddingModel, logger)
}

func provideLLMClient(client *chatgpt.Client, cfg *config.Config, logger *slog.Logger) *llmclient.Client {
	return llmclient.New(client, cfg.RAG.LLMModel, cfg.RAG.LLMTemperature, logger)
}

func provideReranker(cfg *config.Config, logger *slog.Logger) ragdomain.Reranker {
	if !cfg.RAG.UseRemoteReranker {
		return nil
	}
	client, err := reranker.New(cfg.RAG.RerankerEndpoint, cfg.RAG.RerankerAPIKey, cfg.RAG.RerankerModel)
	if err != nil {
		logger.Warn("reranker endpoint not configured, disabling reranking", "error", err)
		return nil
	}
	return client
}

func provideRetrievalOptions(cfg *config.Config) retrieval.Options {
	return retrieval.Options{
		RetrievalK:           cfg.RAG.RetrievalK,
		UseHybrid:            cfg.RAG.UseHybridRetriever,
		UseParentChild:       cfg.RAG.UseParentChildStrategy,
		UseReranker:          cfg.RAG.UseReranker,
		RerankTopN:           cfg.RAG.RerankTopN,
		RerankScoreThreshold: cfg.RAG.RerankScoreThreshold,
		HasRerankThreshold:   cfg.RAG.HasRerankScoreThreshold,
	}
}

func provideSummarizeOptions(cfg *config.Config) ragdomain.SummarizeOptions {
	return ragdomain.SummarizeOptions{
		Enabled:          cfg.RAG.UseMessageSummarization,
		TokenThreshold:   cfg.RAG.MessageSummarizationThreshold,
		KeepMessages:     cfg.RAG.MessageSummarizationKeepMessages,
		MaxSummaryTokens: cfg.RAG.MessageSummarizationMaxTokens,
	}
}

func provideRetriever(vectors *vectorstore.Store, parents *metadata.ParentBlockStore, embedder *embedclient.Client, rr ragdomain.Reranker, logger *slog.Logger) *retrieval.Retriever {
	return retrieval.NewRetriever(vectors, parents, embedder, rr, logger)
}

func providePipeline(blobs *blob.Store, parents *metadata.ParentBlockStore, vectors *vectorstore.Store, docs *metadata.DocumentStore, embedder *embedclient.Client, logger *slog.Logger) *ingest.Pipeline {
	return ingest.NewPipeline(blobs, parents, vectors, docs, embedder, logger)
}

func provideSummarizer(llm *llmclient.Client) *ragdomain.Summarizer {
	return ragdomain.NewSummarizer(llm, ragdomain.NewTokenEstimator())
}

func provideRunner(llm *llmclient.Client, retriever *retrieval.Retriever, summarizer *ragdomain.Summarizer, logger *slog.Logger) *graph.Runner {
	return graph.NewRunner(llm, retriever, summarizer, logger)
}

func provideServiceConfig(cfg *config.Config) ragdomain.ServiceConfig {
	return ragdomain.ServiceConfig{
		MaxRetryCount: cfg.RAG.MaxRetryCount,
		Retrieval:     provideRetrievalOptions(cfg),
		Summarization: provideSummarizeOptions(cfg),
	}
}

func provideRAGService(svcCfg ragdomain.ServiceConfig, pipeline *ingest.Pipeline, runner *graph.Runner, checkpointStore *checkpoint.Store, cfg *config.Config, logger *slog.Logger) *ragdomain.Service {
	var store ragdomain.ConversationStore
	if cfg.RAG.UseCheckpoint {
		store = checkpointStore
	}
	return ragdomain.NewService(svcCfg, pipeline, runner, store, logger)
}

func provideIngestQueue(client valkey.Client, cfg *config.Config, svc *ragdomain.Service, logger *slog.Logger) *jobqueue.Queue {
	queue := jobqueue.NewQueue(client, cfg.RAG.QueueKey, logger)
	queue.SetHandler(func(ctx context.Context, job ragdomain.IngestJob) {
		if err := svc.ProcessDocument(ctx, job); err != nil {
			logger.Warn("background ingest job failed", "document_id", job.DocumentID, "error", err)
		}
	})
	return queue
}
