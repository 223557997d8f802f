//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/sales-assistant/internal/bootstrap"
	"github.com/yanqian/sales-assistant/internal/domain/assistant"
	"github.com/yanqian/sales-assistant/internal/domain/auth"
	"github.com/yanqian/sales-assistant/internal/infra/config"
	httpiface "github.com/yanqian/sales-assistant/internal/interface/http"
	"github.com/yanqian/sales-assistant/pkg/logger"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		provideAssistantConfig,
		provideAuthConfig,
		provideChatGPTClient,
		provideChatClient,
		provideTokenCounter,
		provideEmbedder,
		provideCollection,
		provideIndex,
		provideCorpusLoader,
		provideAnswerStore,
		provideSnapshotStore,
		assistant.NewService,
		auth.NewService,
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
