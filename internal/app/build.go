package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/gigabhai/gigabhai/internal/auth"
	"github.com/gigabhai/gigabhai/internal/chat"
	"github.com/gigabhai/gigabhai/internal/config"
	"github.com/gigabhai/gigabhai/internal/httpapi"
	"github.com/gigabhai/gigabhai/internal/memory"
	"github.com/gigabhai/gigabhai/internal/observability"
	"github.com/gigabhai/gigabhai/internal/provider"
	"github.com/gigabhai/gigabhai/internal/store"
)

type BuildResult struct {
	Config       config.Config
	API          *httpapi.Server
	Orchestrator *chat.Orchestrator
	Worker       *memory.Worker
	Metrics      *observability.Metrics

	// Cleanup should be called on shutdown to release external resources
	// (DB pool, background workers).
	Cleanup func() error
}

func Build(ctx context.Context, cfg config.Config) (*BuildResult, error) {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	st, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("store init failed: %w", err)
	}

	base, err := provider.New(provider.Config{
		Mode:          cfg.ProviderMode,
		GroqAPIKey:    cfg.GroqAPIKey,
		GroqAPIURL:    cfg.GroqAPIURL,
		GroqModel:     cfg.GroqModel,
		MistralAPIKey: cfg.MistralAPIKey,
		MistralAPIURL: cfg.MistralAPIURL,
		MistralModel:  cfg.MistralModel,
	})
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("provider init failed: %w", err)
	}
	log.Info().Str("provider", base.Name()).Msg("completion provider selected")

	retrying := provider.NewRetrying(base, provider.RetryPolicy{
		MaxRetries:  cfg.ProviderMaxRetries,
		CallTimeout: cfg.ProviderCallTimeout,
		TotalBudget: cfg.ProviderTotalBudget,
	})

	compactor := memory.NewCompactor(retrying, memory.CompactorOptions{
		MaxEntries:       cfg.MemoryCompactEntries,
		FallbackWindow:   cfg.MemoryFallbackWindow,
		IncludeAssistant: cfg.MemoryIncludeAssistant,
	})
	assembler := memory.NewAssembler(st, cfg.MemoryRawWindow, cfg.MemoryFallbackWindow)

	orchestrator := chat.NewOrchestrator(st, retrying, assembler, compactor, metrics, chat.OrchestratorOptions{
		RedactPII: cfg.RedactPII,
	})

	worker := memory.NewWorker(orchestrator.Recompact, metrics, memory.WorkerOptions{
		Workers:   cfg.CompactWorkers,
		QueueSize: cfg.CompactQueueSize,
		Timeout:   cfg.CompactTimeout,
	})
	orchestrator.SetWorker(worker)

	verifier, err := buildVerifier(cfg.AuthTokens)
	if err != nil {
		worker.Stop()
		_ = st.Close()
		return nil, fmt.Errorf("auth init failed: %w", err)
	}

	api := httpapi.New(cfg, orchestrator, st, verifier, metrics)

	cleanup := func() error {
		var errs []string
		worker.Stop()
		if err := st.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		if len(errs) > 0 {
			return fmt.Errorf("%s", strings.Join(errs, "; "))
		}
		return nil
	}

	return &BuildResult{
		Config:       cfg,
		API:          api,
		Orchestrator: orchestrator,
		Worker:       worker,
		Metrics:      metrics,
		Cleanup:      cleanup,
	}, nil
}

func buildVerifier(entries string) (auth.Verifier, error) {
	trimmed := strings.TrimSpace(entries)
	if trimmed == "" {
		log.Warn().Msg("no auth tokens configured, running with anonymous access")
		return auth.AnonymousVerifier{}, nil
	}
	return auth.NewStaticVerifier(strings.Split(trimmed, ","))
}
