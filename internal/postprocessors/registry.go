package postprocessors

import (
	"fmt"

	"github.com/custodia-labs/repochat/internal/core/domain"
	"github.com/custodia-labs/repochat/internal/core/ports/driven"
)

// BuilderFunc builds a processor from its stage config.
type BuilderFunc func(cfg map[string]any) (driven.PostProcessor, error)

// Stage names one processor and its config in a pipeline definition.
type Stage struct {
	Name   string
	Config map[string]any
}

// Registry resolves stage names to builders. Names match PostProcessor.Name.
type Registry map[string]BuilderFunc

// NewRegistry creates an empty Registry.
func NewRegistry() Registry {
	return Registry{}
}

// Register adds or replaces the builder for name.
func (r Registry) Register(name string, builder BuilderFunc) {
	r[name] = builder
}

// Build builds the processor called name.
func (r Registry) Build(name string, cfg map[string]any) (driven.PostProcessor, error) {
	builder, ok := r[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown processor %q", domain.ErrConfiguration, name)
	}
	return builder(cfg)
}

// BuildPipeline builds every stage in order. The first failing stage aborts.
func (r Registry) BuildPipeline(stages ...Stage) (*Pipeline, error) {
	pipeline := NewPipeline()
	for _, stage := range stages {
		proc, err := r.Build(stage.Name, stage.Config)
		if err != nil {
			return nil, fmt.Errorf("build %s: %w", stage.Name, err)
		}
		pipeline.Add(proc)
	}
	return pipeline, nil
}
