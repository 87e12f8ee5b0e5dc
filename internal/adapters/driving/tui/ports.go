// Package tui provides an interactive terminal chat for repochat.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"fmt"

	"github.com/custodia-labs/repochat/internal/core/domain"
	"github.com/custodia-labs/repochat/internal/core/ports/driving"
)

// Ports aggregates the driving ports and session settings the TUI needs.
type Ports struct {
	// Assistant answers questions and ingests sources.
	Assistant driving.AssistantService

	// Namespace is the session every question and ingest is scoped to.
	Namespace string
}

// Validate ensures the assistant is set and the namespace is usable.
func (p *Ports) Validate() error {
	if p == nil || p.Assistant == nil {
		return ErrMissingAssistant
	}
	if err := domain.ValidateNamespace(p.Namespace); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPorts, err)
	}
	return nil
}
