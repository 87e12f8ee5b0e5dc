package cli

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/repochat/internal/core/domain"
	"github.com/custodia-labs/repochat/internal/core/ports/driven"
	"github.com/custodia-labs/repochat/internal/core/ports/driving"
	"github.com/custodia-labs/repochat/internal/logger"
)

// SettingsFactory opens the configuration at path. An empty path selects the
// default location.
type SettingsFactory func(path string) (driven.ConfigStore, driving.SettingsService, error)

// RuntimeFactory builds the assistant for the given settings.
type RuntimeFactory func(ctx context.Context, settings *domain.AppSettings) (*Runtime, error)

// Runtime holds the services built from settings for one command run.
type Runtime struct {
	Assistant driving.AssistantService

	// Watcher streams local file changes for `repochat watch`. Optional.
	Watcher driven.WatchableSource

	// Warnings are reported once to the user, e.g. an unreachable LLM.
	Warnings []string

	// Close releases the index, providers and watchers. Optional.
	Close func() error
}

var (
	mu              sync.Mutex
	settingsFactory SettingsFactory
	runtimeFactory  RuntimeFactory

	configStore     driven.ConfigStore
	settingsService driving.SettingsService
	activeRuntime   *Runtime
)

// SetFactories registers how commands build their services.
func SetFactories(settings SettingsFactory, rt RuntimeFactory) {
	mu.Lock()
	defer mu.Unlock()
	settingsFactory = settings
	runtimeFactory = rt
}

// SetServices injects ready-made services, bypassing the factories.
func SetServices(store driven.ConfigStore, settings driving.SettingsService, rt *Runtime) {
	mu.Lock()
	defer mu.Unlock()
	configStore = store
	settingsService = settings
	activeRuntime = rt
}

// loadSettingsService opens the configuration once per process.
func loadSettingsService() (driven.ConfigStore, driving.SettingsService, error) {
	mu.Lock()
	defer mu.Unlock()

	if settingsService != nil {
		return configStore, settingsService, nil
	}
	if settingsFactory == nil {
		return nil, nil, errors.New("settings service not configured")
	}
	store, svc, err := settingsFactory(configPath)
	if err != nil {
		return nil, nil, err
	}
	configStore, settingsService = store, svc
	return store, svc, nil
}

// loadSettings returns the effective settings with the --namespace override.
func loadSettings() (*domain.AppSettings, error) {
	_, svc, err := loadSettingsService()
	if err != nil {
		return nil, err
	}
	settings, err := svc.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if namespaceFlag != "" {
		settings.Namespace = namespaceFlag
	}
	return settings, nil
}

// loadRuntime builds the assistant once per process and prints any warnings.
func loadRuntime(cmd *cobra.Command) (*Runtime, error) {
	mu.Lock()
	rt := activeRuntime
	factory := runtimeFactory
	mu.Unlock()
	if rt != nil {
		return rt, nil
	}
	if factory == nil {
		return nil, errors.New("assistant service not configured")
	}

	settings, err := loadSettings()
	if err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	rt, err = factory(cmd.Context(), settings)
	if err != nil {
		return nil, err
	}
	for _, w := range rt.Warnings {
		cmd.PrintErrf("Warning: %s\n", w)
	}

	mu.Lock()
	activeRuntime = rt
	mu.Unlock()
	return rt, nil
}

// sessionNamespace resolves the namespace for a command: the --namespace flag,
// else the configured session namespace.
func sessionNamespace() (string, error) {
	ns := namespaceFlag
	if ns == "" {
		settings, err := loadSettings()
		if err != nil {
			return "", err
		}
		ns = settings.Namespace
	}
	if err := domain.ValidateNamespace(ns); err != nil {
		return "", err
	}
	return ns, nil
}

func closeRuntime() {
	mu.Lock()
	rt := activeRuntime
	activeRuntime = nil
	mu.Unlock()

	if rt == nil || rt.Close == nil {
		return
	}
	if err := rt.Close(); err != nil {
		logger.Warn("closing services: %v", err)
	}
}
