// Code generated by Wire would normally live here. It is hand-authored
// in this tree because the module's wire.go files are documentation
// only (see the wireinject build tag); this is the real wiring path.

package main

import (
	"github.com/yanqian/ai-helloworld/internal/bootstrap"
	"github.com/yanqian/ai-helloworld/internal/infra/config"
	workerhttp "github.com/yanqian/ai-helloworld/internal/interface/workerhttp"
	"github.com/yanqian/ai-helloworld/pkg/logger"
)

func initializeApp() (*bootstrap.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log := logger.New("worker")

	chatClient, err := provideChatGPTClient(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := provideRAGPostgresPool(cfg, log)
	if err != nil {
		return nil, err
	}

	valkeyClient, err := provideValkeyClient(cfg, log)
	if err != nil {
		return nil, err
	}

	blobs, err := provideBlobStore(cfg, log)
	if err != nil {
		return nil, err
	}

	docs := provideDocumentStore(pool)
	parents := provideParentBlockStore(pool)
	vectors := provideVectorStore(pool)
	checkpointStore := provideCheckpointStore(pool)

	embedder := provideEmbedClient(chatClient, cfg, log)
	llm := provideLLMClient(chatClient, cfg, log)
	rr := provideReranker(cfg, log)

	retriever := provideRetriever(vectors, parents, embedder, rr, log)
	pipeline := providePipeline(blobs, parents, vectors, docs, embedder, log)
	summarizer := provideSummarizer(llm)
	runner := provideRunner(llm, retriever, summarizer, log)

	svcCfg := provideServiceConfig(cfg)
	svc := provideRAGService(svcCfg, pipeline, runner, checkpointStore, cfg, log)

	provideIngestQueue(valkeyClient, cfg, svc, log)

	handler := workerhttp.NewHandler(svc, log)
	server := workerhttp.NewRouter(cfg, handler, log)

	return bootstrap.NewApp(cfg, log, server), nil
}
