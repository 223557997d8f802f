package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/sales-assistant/internal/domain/assistant"
	"github.com/yanqian/sales-assistant/internal/domain/auth"
	"github.com/yanqian/sales-assistant/internal/domain/index"
	"github.com/yanqian/sales-assistant/internal/infra/askstore"
	"github.com/yanqian/sales-assistant/internal/infra/config"
	"github.com/yanqian/sales-assistant/internal/infra/corpus/csvfile"
	"github.com/yanqian/sales-assistant/internal/infra/corpus/sheets"
	"github.com/yanqian/sales-assistant/internal/infra/embedder"
	"github.com/yanqian/sales-assistant/internal/infra/llm"
	"github.com/yanqian/sales-assistant/internal/infra/llm/chatgpt"
	"github.com/yanqian/sales-assistant/internal/infra/snapshot"
	"github.com/yanqian/sales-assistant/internal/infra/vectorstore"
	"github.com/yanqian/sales-assistant/pkg/tokenizer"
)

func provideAssistantConfig(cfg *config.Config) assistant.Config {
	return assistant.Config{
		Temperature:      cfg.LLM.Temperature,
		Prompt:           cfg.Assistant.Prompt,
		TopK:             cfg.Assistant.TopK,
		MaxContextTokens: cfg.Assistant.MaxContextTokens,
		CacheTTL:         cfg.Assistant.CacheTTL,
		TopTrending:      cfg.Assistant.TopTrending,
	}
}

func provideAuthConfig(cfg *config.Config) auth.Config {
	return auth.Config{
		Secret:   cfg.Auth.Secret,
		TokenTTL: cfg.Auth.TokenTTL,
	}
}

func provideChatGPTClient(cfg *config.Config) (*chatgpt.Client, error) {
	return chatgpt.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL)
}

func provideChatClient(cfg *config.Config, client *chatgpt.Client) assistant.ChatClient {
	return llm.NewChatAdapter(client, cfg.LLM.Model)
}

func provideTokenCounter(cfg *config.Config, logger *slog.Logger) tokenizer.Counter {
	counter, err := tokenizer.NewTiktoken(cfg.LLM.Model)
	if err != nil {
		logger.Warn("tiktoken encoding unavailable, using heuristic counter", "error", err)
		return tokenizer.Heuristic{}
	}
	return counter
}

func provideEmbedder(cfg *config.Config, client *chatgpt.Client, counter tokenizer.Counter, logger *slog.Logger) index.Embedder {
	return embedder.NewOpenAIEmbedder(client, cfg.LLM.EmbeddingModel, counter, logger)
}

func provideCollection(cfg *config.Config, logger *slog.Logger) index.Collection {
	dsn := strings.TrimSpace(cfg.Store.Postgres.DSN)
	if dsn == "" {
		logger.Info("postgres dsn not set, using memory collection")
		return vectorstore.NewMemoryCollection()
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using memory collection", "error", err)
		return vectorstore.NewMemoryCollection()
	}
	if cfg.Store.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Store.Postgres.MaxConns
	}
	if cfg.Store.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Store.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using memory collection", "error", err)
		return vectorstore.NewMemoryCollection()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	collection := vectorstore.NewPostgresCollection(pool, cfg.Store.Postgres.Table)
	if err := collection.EnsureSchema(ctx); err != nil {
		logger.Error("postgres schema setup failed, using memory collection", "error", err)
		pool.Close()
		return vectorstore.NewMemoryCollection()
	}
	logger.Info("postgres collection enabled", "table", cfg.Store.Postgres.Table)
	return collection
}

func provideIndex(emb index.Embedder, collection index.Collection, logger *slog.Logger) *index.Index {
	return index.New(emb, collection, logger)
}

func provideCorpusLoader(cfg *config.Config, logger *slog.Logger) assistant.CorpusLoader {
	if cfg.Corpus.SpreadsheetID != "" {
		return sheets.NewClient(cfg.Corpus.SpreadsheetID, cfg.Corpus.ReadRange, cfg.Corpus.APIKey, sheets.Options{
			MaxAttempts: cfg.Corpus.MaxAttempts,
			BaseBackoff: cfg.Corpus.BaseBackoff,
		}, logger)
	}
	logger.Info("using csv corpus source", "path", cfg.Corpus.CSVPath)
	return csvfile.NewLoader(cfg.Corpus.CSVPath)
}

func provideAnswerStore(cfg *config.Config, logger *slog.Logger) assistant.AnswerStore {
	if cfg.Cache.Enabled {
		opt, err := buildValkeyOptions(cfg)
		if err != nil {
			logger.Error("invalid valkey configuration, falling back to memory store", "error", err)
			return askstore.NewMemoryStore()
		}
		client, err := valkey.NewClient(opt)
		if err != nil {
			logger.Error("failed to create valkey client, falling back to memory store", "error", err)
			return askstore.NewMemoryStore()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
			logger.Error("valkey ping failed, falling back to memory store", "error", err)
		} else {
			logger.Info("valkey answer store enabled", "addr", cfg.Cache.Addr)
			return askstore.NewValkeyStore(client, "ask")
		}
	}
	return askstore.NewMemoryStore()
}

func buildValkeyOptions(cfg *config.Config) (valkey.ClientOption, error) {
	var (
		opt valkey.ClientOption
		err error
	)
	if strings.Contains(cfg.Cache.Addr, "://") {
		opt, err = valkey.ParseURL(cfg.Cache.Addr)
	} else {
		opt = valkey.ClientOption{InitAddress: []string{cfg.Cache.Addr}}
	}
	if err != nil {
		return valkey.ClientOption{}, err
	}
	return opt, nil
}

func provideSnapshotStore(cfg *config.Config, logger *slog.Logger) assistant.SnapshotStore {
	if !cfg.Snapshot.Enabled {
		return snapshot.NewMemoryStore()
	}
	store, err := snapshot.NewObjectStore(
		cfg.Snapshot.Endpoint,
		cfg.Snapshot.AccessKey,
		cfg.Snapshot.SecretKey,
		cfg.Snapshot.Bucket,
		cfg.Snapshot.Region,
		logger,
	)
	if err != nil {
		logger.Error("snapshot storage unavailable, falling back to memory store", "error", err)
		return snapshot.NewMemoryStore()
	}
	logger.Info("snapshot archive enabled", "bucket", cfg.Snapshot.Bucket)
	return store
}
