//go:build wireinject
// +build wireinject

package main

import (
	"log/slog"

	"github.com/google/wire"

	"github.com/yanqian/ai-helloworld/internal/bootstrap"
	"github.com/yanqian/ai-helloworld/internal/infra/config"
	workerhttp "github.com/yanqian/ai-helloworld/internal/interface/workerhttp"
	"github.com/yanqian/ai-helloworld/pkg/logger"
)

func provideWorkerLogger() *slog.Logger { return logger.New("worker") }

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		provideWorkerLogger,
		provideChatGPTClient,
		provideRAGPostgresPool,
		provideValkeyClient,
		provideBlobStore,
		provideDocumentStore,
		provideParentBlockStore,
		provideVectorStore,
		provideCheckpointStore,
		provideEmbedClient,
		provideLLMClient,
		provideReranker,
		provideRetriever,
		providePipeline,
		provideSummarizer,
		provideRunner,
		provideServiceConfig,
		provideRAGService,
		provideIngestQueue,
		workerhttp.NewHandler,
		workerhttp.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
