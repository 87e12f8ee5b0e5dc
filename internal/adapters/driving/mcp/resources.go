package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const uriScheme = "repochat://"

// registerResources registers the index status resources.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "status",
		Name:        "status",
		Description: "Chunk count and index details for the server session",
		MIMEType:    "application/json",
	}, s.handleStatusResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "status/{namespace}",
		Name:        "namespace-status",
		Description: "Chunk count and index details for one session namespace",
		MIMEType:    "application/json",
	}, s.handleStatusResource)
}

// handleStatusResource reports IndexStats for the namespace named in the URI.
func (s *Server) handleStatusResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	requested, ok := extractNamespace(req.Params.URI)
	if !ok {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	ns, err := s.ports.namespace(requested)
	if err != nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	stats, err := s.ports.Assistant.Status(ctx, ns)
	if err != nil {
		return nil, fmt.Errorf("reading status: %w", err)
	}

	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling status: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractNamespace parses repochat://status or repochat://status/{namespace}.
// An empty namespace means the server default.
func extractNamespace(uri string) (string, bool) {
	const base = uriScheme + "status"
	if uri == base {
		return "", true
	}
	ns, found := strings.CutPrefix(uri, base+"/")
	if !found || ns == "" || strings.Contains(ns, "/") {
		return "", false
	}
	return ns, true
}
