package cmd

import (
	"context"
	"fmt"
	"time"

	"plateau/cache"
	"plateau/config"
	"plateau/database"
	"plateau/logging"
	"plateau/repository"
	"plateau/services"

	"gorm.io/gorm"
)

// openDatabase connects and migrates the configured database.
func openDatabase(cfg config.Config) (*gorm.DB, error) {
	db, err := database.Init(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// newSearchCache returns a redis-backed cache when redis.addr is set. An
// unreachable redis degrades to no caching rather than failing startup.
func newSearchCache(ctx context.Context, cfg config.Config) cache.SearchCache {
	if cfg.Redis.Addr == "" {
		return cache.NewNopSearchCache()
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	client, err := cache.Connect(pingCtx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logging.Warn().Err(err).Msg("search cache disabled")
		return cache.NewNopSearchCache()
	}
	logging.Info().Str("addr", cfg.Redis.Addr).Dur("ttl", cfg.Redis.TTL).Msg("search cache enabled")
	return cache.NewRedisSearchCache(client, cfg.Redis.TTL)
}

// newSummarizer returns nil when no summary API key is configured.
func newSummarizer(cfg config.Config) services.Summarizer {
	if cfg.Summary.APIKey == "" {
		return nil
	}
	summarizer, err := services.NewOpenAISummarizer(services.SummarizerConfig{
		APIKey:    cfg.Summary.APIKey,
		BaseURL:   cfg.Summary.BaseURL,
		Model:     cfg.Summary.Model,
		MaxTokens: cfg.Summary.MaxTokens,
	})
	if err != nil {
		logging.Warn().Err(err).Msg("summary generation disabled")
		return nil
	}
	logging.Info().Str("model", cfg.Summary.Model).Msg("summary generation enabled")
	return summarizer
}

// newKnowledgeBase builds the service and loads the working set.
func newKnowledgeBase(db *gorm.DB, searchCache cache.SearchCache, cfg config.Config) (services.KnowledgeBaseService, error) {
	kb := services.NewKnowledgeBaseService(
		repository.NewArticleRepository(db),
		searchCache,
		services.KnowledgeBaseOptions{
			DefaultLimit: cfg.Search.DefaultLimit,
			MaxLimit:     cfg.Search.MaxLimit,
			Summarizer:   newSummarizer(cfg),
		},
	)
	if err := kb.Load(); err != nil {
		return nil, fmt.Errorf("failed to load knowledge base: %w", err)
	}
	return kb, nil
}
