package mcp

import (
	"fmt"

	"github.com/custodia-labs/repochat/internal/core/domain"
	"github.com/custodia-labs/repochat/internal/core/ports/driving"
)

// Ports aggregates the driving ports required by the MCP server.
type Ports struct {
	// Assistant ingests sources and answers questions.
	Assistant driving.AssistantService

	// Namespace is used by tool calls that do not name one.
	Namespace string
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Assistant == nil {
		return ErrMissingAssistant
	}
	if err := domain.ValidateNamespace(p.Namespace); err != nil {
		return fmt.Errorf("default namespace: %w", err)
	}
	return nil
}

// namespace picks the caller's namespace, falling back to the server default.
func (p *Ports) namespace(requested string) (string, error) {
	if requested == "" {
		return p.Namespace, nil
	}
	if err := domain.ValidateNamespace(requested); err != nil {
		return "", err
	}
	return requested, nil
}
