package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/repochat/internal/adapters/driven/ai"
	"github.com/custodia-labs/repochat/internal/adapters/driven/config/file"
	"github.com/custodia-labs/repochat/internal/adapters/driven/storage"
	"github.com/custodia-labs/repochat/internal/adapters/driving/cli"
	"github.com/custodia-labs/repochat/internal/connectors"
	"github.com/custodia-labs/repochat/internal/connectors/filesystem"
	"github.com/custodia-labs/repochat/internal/connectors/git"
	"github.com/custodia-labs/repochat/internal/connectors/github"
	"github.com/custodia-labs/repochat/internal/core/domain"
	"github.com/custodia-labs/repochat/internal/core/ports/driven"
	"github.com/custodia-labs/repochat/internal/core/ports/driving"
	"github.com/custodia-labs/repochat/internal/core/services"
	"github.com/custodia-labs/repochat/internal/logger"
	"github.com/custodia-labs/repochat/internal/postprocessors"
)

// promptDir is where prompt templates live, next to the config file.
var promptDir string

// openSettings opens the config file at path, or ~/.repochat/config.toml.
func openSettings(path string) (driven.ConfigStore, driving.SettingsService, error) {
	var (
		store *file.ConfigStore
		err   error
	)
	if path == "" {
		store, err = file.NewConfigStore("")
	} else {
		store, err = file.NewConfigStoreAt(path)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}
	promptDir = filepath.Join(filepath.Dir(store.Path()), "prompts")

	svc := services.NewSettingsService(store)
	svc.SetAIValidator(ai.NewConfigValidator())
	return store, svc, nil
}

// buildRuntime assembles the ingest and answer pipeline from settings.
// Everything opened here is released by Runtime.Close, also on failure.
func buildRuntime(ctx context.Context, settings *domain.AppSettings) (rt *cli.Runtime, err error) {
	var closers []func() error
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}
	defer func() {
		if err != nil {
			_ = closeAll()
		}
	}()

	logger.Section("Startup")

	prompts, err := file.NewPromptStore(promptDir)
	if err != nil {
		return nil, err
	}

	models, err := ai.Initialise(ctx, settings, prompts)
	if err != nil {
		return nil, err
	}
	closers = append(closers, func() error { models.Close(); return nil })

	index, err := storage.NewVectorIndex(ctx, settings.Store)
	if err != nil {
		return nil, err
	}
	closers = append(closers, index.Close)

	retrieval, err := services.NewRetrievalCoordinator(ctx, models.EmbeddingService, index, services.RetrievalConfig{
		Index:       storage.IndexSpec(settings.Store, models.EmbeddingService.Dimensions()),
		Concurrency: settings.Retrieval.Concurrency,
		IDScheme:    settings.Retrieval.IDScheme,
	})
	if err != nil {
		return nil, err
	}
	closers = append(closers, func() error { retrieval.Close(); return nil })

	pipeline, err := postprocessors.NewDefaultPipeline(settings.Chunking)
	if err != nil {
		return nil, err
	}

	loader := filesystem.New(filesystem.Options{})
	closers = append(closers, loader.Close)

	source, err := newSource(ctx, settings, loader)
	if err != nil {
		return nil, err
	}

	assistant := services.NewAssistantService(retrieval, pipeline, models.LLMService, settings.Retrieval.TopK)
	assistant.SetDocumentSource(source)

	logger.Debugw("runtime ready",
		"embedding", models.EmbeddingService.ModelName(),
		"store", settings.Store.Backend,
		"index", settings.Store.Index,
		"llm", models.LLMService != nil,
	)

	return &cli.Runtime{
		Assistant: assistant,
		Watcher:   source,
		Warnings:  models.Warnings,
		Close:     closeAll,
	}, nil
}

// newSource routes roots to the local loader, git clone or the GitHub API.
func newSource(ctx context.Context, settings *domain.AppSettings, loader *filesystem.Loader) (*connectors.Router, error) {
	client, err := github.NewClient(ctx, github.ClientOptions{Token: settings.GitHub.Token})
	if err != nil {
		return nil, fmt.Errorf("%w: github client: %w", domain.ErrConfiguration, err)
	}

	return connectors.NewRouter(connectors.RouterConfig{
		Local:     loader,
		Git:       git.New(git.Options{Loader: loader}),
		GitHub:    github.NewSource(client, 0),
		PreferAPI: settings.GitHub.UseAPI,
	}), nil
}
