package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kiranshivaraju/quotehunter/internal/analysis"
	"github.com/kiranshivaraju/quotehunter/internal/cache"
	"github.com/kiranshivaraju/quotehunter/internal/config"
	"github.com/kiranshivaraju/quotehunter/internal/frames"
	"github.com/kiranshivaraju/quotehunter/internal/matcher"
	"github.com/kiranshivaraju/quotehunter/internal/presenter"
	"github.com/kiranshivaraju/quotehunter/internal/pricing"
	"github.com/kiranshivaraju/quotehunter/internal/quote"
	"github.com/kiranshivaraju/quotehunter/internal/store"
	"github.com/kiranshivaraju/quotehunter/internal/vision"
)

const webhookTimeout = 10 * time.Second

// appEnv holds everything a pipeline run needs.
type appEnv struct {
	Gateway   store.Gateway
	Cache     cache.Cache
	Matcher   *matcher.Matcher
	Estimator *pricing.Estimator
	Recorder  *presenter.Recorder
	Hub       *presenter.Hub
	Assembler *quote.Assembler

	closers []func()
}

func (e *appEnv) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

// initEnv connects the store and cache and builds the pipeline.
func initEnv(ctx context.Context, cfg *config.Config) (*appEnv, error) {
	env := &appEnv{}

	gw, closeStore, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	env.Gateway = gw
	env.closers = append(env.closers, closeStore)
	slog.Info("store opened", "driver", cfg.Store.Driver)

	if cfg.Redis.URL != "" {
		rc, err := cache.NewRedisCache(cfg.Redis.URL)
		if err != nil {
			env.Close()
			return nil, fmt.Errorf("create redis cache: %w", err)
		}
		env.closers = append(env.closers, func() { _ = rc.Close() })
		if err := rc.Ping(ctx); err != nil {
			env.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		env.Cache = rc
		slog.Info("redis connected")
	} else {
		env.Cache = cache.NewMemoryCache()
		slog.Info("REDIS_URL not set, using in-process cache")
	}

	vp, err := vision.NewProvider(cfg.Vision)
	if err != nil {
		env.Close()
		return nil, fmt.Errorf("create vision provider: %w", err)
	}
	fp, err := frames.NewProvider(ctx, cfg.Frames)
	if err != nil {
		env.Close()
		return nil, fmt.Errorf("create frame provider: %w", err)
	}
	slog.Info("providers initialized", "vision", vp.Name(), "frames", fp.Name())

	adapter := analysis.NewAdapter(fp, vp,
		analysis.WithFrameTimeout(cfg.Frames.Timeout),
		analysis.WithVisionTimeout(cfg.Vision.Timeout),
		analysis.WithMaxTokens(cfg.Vision.MaxTokens),
	)
	env.Matcher = matcher.New(gw,
		matcher.WithCache(env.Cache, cfg.Redis.MatchTTL),
		matcher.WithTimeout(cfg.Store.Timeout),
	)
	env.Estimator = pricing.Default()

	env.Recorder = presenter.NewRecorder(env.Cache, cfg.Redis.StatusTTL)
	env.Hub = presenter.NewHub()
	env.closers = append(env.closers, env.Hub.Close)
	sinks := presenter.Multi{env.Recorder, env.Hub}
	if cfg.Transport.WebhookURL != "" {
		sinks = append(sinks, presenter.NewWebhook(cfg.Transport.WebhookURL, cfg.Transport.Token, webhookTimeout))
	}

	env.Assembler = quote.NewAssembler(adapter, env.Matcher, env.Estimator, gw, sinks,
		quote.WithStoreTimeout(cfg.Store.Timeout),
		quote.WithDefaults(cfg.Transport.Platform, cfg.Quote.Quantity, cfg.Quote.Complexity),
		quote.WithBotID(cfg.Transport.BotID),
	)
	return env, nil
}
