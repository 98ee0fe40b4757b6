package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/catalog"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/checkpoint"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/config"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/engine"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/llm"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/llm/gemini"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/llm/mistral"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/llm/scripted"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/notify"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/prompt"
)

// NewProvider builds the configured reasoning capability behind the rate
// limiter and per-call timeout.
func NewProvider(ctx context.Context, cfg *config.Config, cat *catalog.Catalog) (llm.Provider, error) {
	var p llm.Provider
	switch cfg.LLM.Provider {
	case config.ProviderMistral:
		if cfg.LLM.APIKey == "" {
			return nil, fmt.Errorf("mistral api key missing; set MISTRAL_API_KEY or llm.api_key")
		}
		p = mistral.New(mistral.Config{
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			BaseURL:     cfg.LLM.BaseURL,
			Timeout:     cfg.LLM.Timeout,
		})
	case config.ProviderGemini:
		model := cfg.LLM.Model
		if model == "" || model == mistral.DefaultModel {
			model = gemini.DefaultModel
		}
		c, err := gemini.New(ctx, gemini.Config{APIKey: cfg.LLM.APIKey, Model: model, Temperature: cfg.LLM.Temperature})
		if err != nil {
			return nil, err
		}
		p = c
	case config.ProviderScripted:
		p = scripted.Matcher{Catalog: cat}
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
	return llm.NewLimited(p, cfg.LLM.RequestsPerSecond, cfg.LLM.Timeout), nil
}

func NewStore(ctx context.Context, cfg *config.Config, workspace string) (checkpoint.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		return checkpoint.NewMemory(cfg.Store.TTL), nil
	case config.BackendRedis:
		return checkpoint.OpenRedis(ctx, cfg.Store.RedisURL, cfg.Store.TTL)
	case config.BackendSQLite, "":
		return checkpoint.OpenSQL(ctx, workspace)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// NewNotifier returns the configured sinks and a close func for any
// connections they hold.
func NewNotifier(ctx context.Context, cfg *config.Config, logger *zap.Logger) (notify.Notifier, func(), error) {
	var sinks []notify.Notifier
	closeFn := func() {}
	if cfg.Notify.NATSURL != "" {
		pub, err := notify.NewPublisher(ctx, cfg.Notify.NATSURL, cfg.Notify.Subject, logger)
		if err != nil {
			return nil, closeFn, err
		}
		sinks = append(sinks, pub)
		closeFn = pub.Close
	}
	for _, url := range cfg.Notify.Webhooks {
		sinks = append(sinks, notify.NewWebhook(url, cfg.Notify.WebhookSecret, cfg.Notify.Timeout))
	}
	if len(sinks) == 0 {
		return notify.Nop{}, closeFn, nil
	}
	return notify.Multi{Notifiers: sinks, Logger: logger}, closeFn, nil
}

// Build assembles a Service from config. The returned close func releases
// the store and notifier connections.
func Build(ctx context.Context, cfg *config.Config, workspace string, logger *zap.Logger) (*Service, func() error, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cat, err := catalog.Load(cfg.Menu.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("load menu: %w", err)
	}
	provider, err := NewProvider(ctx, cfg, cat)
	if err != nil {
		return nil, nil, err
	}
	var src prompt.Source
	if cfg.Prompt.Path != "" {
		src = prompt.FileSource{Path: cfg.Prompt.Path}
	}
	eng, err := engine.New(provider, src, logger.Named("engine"), cfg.Engine.MaxIterations)
	if err != nil {
		return nil, nil, err
	}
	store, err := NewStore(ctx, cfg, workspace)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	notifier, closeNotifier, err := NewNotifier(ctx, cfg, logger.Named("notify"))
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	svc := &Service{
		Engine:   eng,
		Store:    store,
		Catalog:  cat,
		Notifier: notifier,
		Logger:   logger,
	}
	logger.Info("service ready",
		zap.String("menu_id", cat.MenuID),
		zap.Int("menu_items", cat.Len()),
		zap.String("provider", cfg.LLM.Provider),
		zap.String("store", cfg.Store.Backend),
	)
	return svc, func() error {
		closeNotifier()
		return store.Close()
	}, nil
}
