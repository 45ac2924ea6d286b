// Code generated by Wire would normally live here. It is hand-authored
// in this tree because the module's wire.go files are documentation
// only (see the wireinject build tag); this is the real wiring path.

package main

import (
	"github.com/yanqian/ai-helloworld/internal/bootstrap"
	"github.com/yanqian/ai-helloworld/internal/domain/auth"
	"github.com/yanqian/ai-helloworld/internal/domain/faq"
	"github.com/yanqian/ai-helloworld/internal/domain/summarizer"
	"github.com/yanqian/ai-helloworld/internal/domain/uvadvisor"
	"github.com/yanqian/ai-helloworld/internal/infra/config"
	httpiface "github.com/yanqian/ai-helloworld/internal/interface/http"
	"github.com/yanqian/ai-helloworld/pkg/logger"
)

func initializeApp() (*bootstrap.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log := logger.New("gateway")

	chatClient, err := provideChatGPTClient(cfg)
	if err != nil {
		return nil, err
	}
	uvClient := provideUVClient(cfg)

	summarizerSvc := summarizer.NewService(provideSummaryConfig(cfg), chatClient, log)
	advisorSvc := uvadvisor.NewService(provideUVAdvisorConfig(cfg), uvClient, chatClient, log)
	faqSvc := faq.NewService(provideFAQConfig(cfg), provideFAQRepository(cfg, log), provideFAQStore(cfg, log), chatClient, log)
	authSvc := auth.NewService(provideAuthConfig(cfg), provideAuthRepository(cfg, log), log)

	pool, err := provideRAGPostgresPool(cfg, log)
	if err != nil {
		return nil, err
	}
	blobs, err := provideBlobStore(cfg, log)
	if err != nil {
		return nil, err
	}
	valkeyClient, err := provideValkeyClient(cfg, log)
	if err != nil {
		return nil, err
	}

	docs := provideDocumentStore(pool)
	queue := provideIngestQueueProducer(valkeyClient, cfg, log)
	worker := provideWorkerClient(cfg)
	gwCfg := provideGatewayConfig(cfg)
	gatewaySvc := provideGatewayService(gwCfg, docs, blobs, queue, worker, log)

	handler := httpiface.NewHandler(summarizerSvc, advisorSvc, faqSvc, authSvc, gatewaySvc, log)
	server := httpiface.NewRouter(cfg, handler)

	return bootstrap.NewApp(cfg, log, server), nil
}
