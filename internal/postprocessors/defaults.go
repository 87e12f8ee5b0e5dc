package postprocessors

import (
	"fmt"

	"github.com/custodia-labs/repochat/internal/core/domain"
	"github.com/custodia-labs/repochat/internal/core/ports/driven"
	"github.com/custodia-labs/repochat/internal/postprocessors/chunker"
	"github.com/custodia-labs/repochat/internal/postprocessors/language"
)

// Config keys understood by the built-in builders.
const (
	ConfigChunkSize = "chunk_size"
	ConfigOverlap   = "overlap"
)

// RegisterDefaults registers all built-in processors with the registry.
func RegisterDefaults(r Registry) {
	r.Register("chunker", buildChunker)
	r.Register("language", buildLanguage)
}

// NewDefaultPipeline returns chunker followed by language tagging.
func NewDefaultPipeline(settings domain.ChunkingSettings) (*Pipeline, error) {
	r := NewRegistry()
	RegisterDefaults(r)
	return r.BuildPipeline(
		Stage{Name: "chunker", Config: map[string]any{
			ConfigChunkSize: settings.Size,
			ConfigOverlap:   settings.Overlap,
		}},
		Stage{Name: "language"},
	)
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - chunk_size (int): Characters per chunk (default: 500)
//   - overlap (int): Overlapping characters between chunks (default: 50)
//
// Invalid combinations are rejected by the chunker itself.
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option

	if size, ok, err := getIntFromConfig(cfg, ConfigChunkSize); err != nil {
		return nil, err
	} else if ok {
		opts = append(opts, chunker.WithChunkSize(size))
	}
	if overlap, ok, err := getIntFromConfig(cfg, ConfigOverlap); err != nil {
		return nil, err
	} else if ok {
		opts = append(opts, chunker.WithOverlap(overlap))
	}

	return chunker.New(opts...)
}

func buildLanguage(_ map[string]any) (driven.PostProcessor, error) {
	return language.New(), nil
}

// getIntFromConfig extracts an int from a generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
// ok is false when the key is absent.
func getIntFromConfig(cfg map[string]any, key string) (value int, ok bool, err error) {
	val, present := cfg[key]
	if !present {
		return 0, false, nil
	}

	switch v := val.(type) {
	case int:
		return v, true, nil
	case int64:
		return int(v), true, nil
	case float64:
		return int(v), true, nil
	default:
		return 0, false, fmt.Errorf("%w: %s must be an integer, got %T", domain.ErrConfiguration, key, val)
	}
}
