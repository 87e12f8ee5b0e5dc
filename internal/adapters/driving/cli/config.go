package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/repochat/internal/core/domain"
	"github.com/custodia-labs/repochat/internal/core/services"
)

var configPing bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View and change the embedding, language model, vector store and
retrieval settings. Values come from the config file, with API keys and
service URLs overridable from the environment.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set one configuration value and save the config file.

Keys:
  ` + strings.Join(knownKeys(), "\n  "),
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the settings for errors",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

var configEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure the embedding provider interactively",
	Long: `Choose the embedding provider and model. Changing the model changes the
vector dimension; chunks stored with another dimension must be re-ingested
into a new index (store.index).`,
	Args: cobra.NoArgs,
	RunE: runConfigEmbedding,
}

var configLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure the language model provider interactively",
	Args:  cobra.NoArgs,
	RunE:  runConfigLLM,
}

func init() {
	configValidateCmd.Flags().BoolVar(&configPing, "ping", false, "also contact the embedding and LLM providers")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configEmbeddingCmd)
	configCmd.AddCommand(configLLMCmd)
	rootCmd.AddCommand(configCmd)
}

// keyKind is how a config value is parsed from the command line.
type keyKind int

const (
	kindString keyKind = iota
	kindInt
	kindBool
	kindDuration
)

var configKeys = map[string]keyKind{
	services.KeyEmbedProvider:   kindString,
	services.KeyEmbedModel:      kindString,
	services.KeyEmbedBaseURL:    kindString,
	services.KeyEmbedAPIKey:     kindString,
	services.KeyEmbedDimensions: kindInt,
	services.KeyLLMProvider:     kindString,
	services.KeyLLMModel:        kindString,
	services.KeyLLMBaseURL:      kindString,
	services.KeyLLMAPIKey:       kindString,
	services.KeyStoreBackend:    kindString,
	services.KeyStoreIndex:      kindString,
	services.KeyStoreMetric:     kindString,
	services.KeyStoreDataDir:    kindString,
	services.KeyStoreURL:        kindString,
	services.KeyStoreAPIKey:     kindString,
	services.KeyStoreUsername:   kindString,
	services.KeyStorePassword:   kindString,
	services.KeyStoreDatabase:   kindString,
	services.KeyChunkSize:       kindInt,
	services.KeyChunkOverlap:    kindInt,
	services.KeyTopK:            kindInt,
	services.KeyConcurrency:     kindInt,
	services.KeyIDScheme:        kindString,
	services.KeyNamespace:       kindString,
	services.KeyCacheEnabled:    kindBool,
	services.KeyCacheRedisURL:   kindString,
	services.KeyCacheTTL:        kindDuration,
	services.KeyGitHubToken:     kindString,
	services.KeyGitHubAPI:       kindBool,
	services.KeyServerAddr:      kindString,
}

func knownKeys() []string {
	keys := make([]string, 0, len(configKeys))
	for k := range configKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// parseConfigValue converts raw to the type stored for key.
func parseConfigValue(key, raw string) (any, error) {
	kind, ok := configKeys[key]
	if !ok {
		return nil, fmt.Errorf("%w: unknown key %q (see 'repochat config set --help')", domain.ErrInvalidInput, key)
	}
	raw = strings.TrimSpace(raw)

	switch kind {
	case kindInt:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidInput, key)
		}
		return int64(n), nil
	case kindBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be true or false", domain.ErrInvalidInput, key)
		}
		return b, nil
	case kindDuration:
		if _, err := time.ParseDuration(raw); err != nil {
			return nil, fmt.Errorf("%w: %s must be a duration such as 24h", domain.ErrInvalidInput, key)
		}
		return raw, nil
	default:
		return raw, nil
	}
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	cmd.Printf("  Dimensions: %d\n", settings.Embedding.Dimensions)
	if settings.Embedding.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
	}
	if settings.Embedding.Provider.RequiresAPIKey() {
		cmd.Printf("  API Key: %s\n", describeKey(settings.Embedding.APIKey))
	}
	cmd.Println()

	cmd.Println("[LLM]")
	if settings.LLM.Provider == "" {
		cmd.Println("  Provider: (not set; answers contain retrieved context only)")
	} else {
		cmd.Printf("  Provider: %s\n", settings.LLM.Provider.Description())
		cmd.Printf("  Model: %s\n", settings.LLM.Model)
		if settings.LLM.BaseURL != "" {
			cmd.Printf("  Base URL: %s\n", settings.LLM.BaseURL)
		}
		if settings.LLM.Provider.RequiresAPIKey() {
			cmd.Printf("  API Key: %s\n", describeKey(settings.LLM.APIKey))
		}
	}
	cmd.Println()

	cmd.Println("[Store]")
	cmd.Printf("  Backend: %s\n", settings.Store.Backend)
	cmd.Printf("  Index: %s\n", settings.Store.Index)
	if settings.Store.Backend.IsRemote() {
		cmd.Printf("  URL: %s\n", settings.Store.URL)
	} else if settings.Store.DataDir != "" {
		cmd.Printf("  Data dir: %s\n", settings.Store.DataDir)
	}
	cmd.Println()

	cmd.Println("[Retrieval]")
	cmd.Printf("  Chunk size: %d\n", settings.Chunking.Size)
	cmd.Printf("  Chunk overlap: %d\n", settings.Chunking.Overlap)
	cmd.Printf("  Top k: %d\n", settings.Retrieval.TopK)
	cmd.Printf("  Concurrency: %d\n", settings.Retrieval.Concurrency)
	cmd.Printf("  ID scheme: %s\n", settings.Retrieval.IDScheme)
	cmd.Printf("  Namespace: %s\n", settings.Namespace)
	cmd.Println()

	cmd.Println("[Cache]")
	if settings.Cache.Enabled {
		cmd.Printf("  Redis: %s (ttl %s)\n", settings.Cache.RedisURL, settings.Cache.TTL)
	} else {
		cmd.Println("  Enabled: no")
	}
	cmd.Println()

	cmd.Println("[GitHub]")
	cmd.Printf("  Token: %s\n", describeKey(settings.GitHub.Token))
	cmd.Printf("  Use API: %t\n", settings.GitHub.UseAPI)
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'repochat config set' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}
	return nil
}

func describeKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	return maskAPIKey(key)
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, raw := args[0], args[1]
	value, err := parseConfigValue(key, raw)
	if err != nil {
		return err
	}

	store, svc, err := loadSettingsService()
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("config store not configured")
	}
	if err := store.Set(key, value); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}

	shown := raw
	if strings.HasSuffix(key, "api_key") || strings.HasSuffix(key, "token") || strings.HasSuffix(key, "password") {
		shown = maskAPIKey(raw)
	}
	cmd.Printf("Set %s = %s\n", key, shown)

	if err := svc.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	}
	return nil
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	store, _, err := loadSettingsService()
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("config store not configured")
	}
	cmd.Println(store.Path())
	return nil
}

func runConfigValidate(cmd *cobra.Command, _ []string) error {
	_, svc, err := loadSettingsService()
	if err != nil {
		return err
	}
	if err := svc.Validate(); err != nil {
		return err
	}
	if configPing {
		cmd.Print("Contacting providers... ")
		if err := svc.CheckProviders(); err != nil {
			cmd.Println("FAILED")
			return err
		}
		cmd.Println("OK")
	}
	cmd.Println("Configuration is valid.")
	return nil
}

func runConfigEmbedding(cmd *cobra.Command, _ []string) error {
	if _, _, err := loadSettingsService(); err != nil {
		return err
	}
	return configureEmbeddingProvider(cmd, bufio.NewReader(cmd.InOrStdin()))
}

func runConfigLLM(cmd *cobra.Command, _ []string) error {
	if _, _, err := loadSettingsService(); err != nil {
		return err
	}
	return configureLLMProvider(cmd, bufio.NewReader(cmd.InOrStdin()))
}

//nolint:dupl // Similar to configureLLMProvider but for embeddings
func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select Embedding Provider")
	providers := domain.AllEmbeddingProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(providers), 1)
	selectedProvider := providers[idx-1]

	defaultModel := domain.DefaultEmbeddingModels()[selectedProvider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if selectedProvider.RequiresAPIKey() {
		cmd.Print("Enter API key (empty to use the environment): ")
		apiKey = readSecret(cmd.InOrStdin(), reader)
		cmd.Println()
	}

	if err := settingsService.SetEmbeddingProvider(selectedProvider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	cmd.Print("Validating configuration... ")
	if err := settingsService.CheckProviders(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("embedding configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("Embedding provider configured: %s (%s)\n", selectedProvider.Description(), model)
	return nil
}

//nolint:dupl // Similar to configureEmbeddingProvider but for the LLM
func configureLLMProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select LLM Provider")
	providers := domain.AllLLMProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(providers), 1)
	selectedProvider := providers[idx-1]

	defaultModel := domain.DefaultLLMModels()[selectedProvider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if selectedProvider.RequiresAPIKey() {
		cmd.Print("Enter API key (empty to use the environment): ")
		apiKey = readSecret(cmd.InOrStdin(), reader)
		cmd.Println()
	}

	if err := settingsService.SetLLMProvider(selectedProvider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure LLM provider: %w", err)
	}

	cmd.Print("Validating configuration... ")
	if err := settingsService.CheckProviders(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("LLM configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("LLM provider configured: %s (%s)\n", selectedProvider.Description(), model)
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readSecret reads without echo on a terminal, else a plain line from reader.
func readSecret(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
