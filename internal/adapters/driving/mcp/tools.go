package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/repochat/internal/core/domain"
)

// IngestInput is the input schema for the ingest tool.
type IngestInput struct {
	Root      string `json:"root" jsonschema:"local directory or git repository URL to index"`
	Namespace string `json:"namespace,omitempty" jsonschema:"session namespace to store chunks under (default: server session)"`
}

// IngestOutput is the output schema for the ingest tool.
type IngestOutput struct {
	Namespace string `json:"namespace"`
	Chunks    int    `json:"chunks"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question  string `json:"question" jsonschema:"question about the indexed code"`
	Namespace string `json:"namespace,omitempty" jsonschema:"session namespace to answer from (default: server session)"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer  string         `json:"answer"`
	Sources []SourceOutput `json:"sources"`
}

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Query     string `json:"query" jsonschema:"text to find similar code chunks for"`
	Namespace string `json:"namespace,omitempty" jsonschema:"session namespace to search (default: server session)"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Chunks []SourceOutput `json:"chunks"`
	Count  int            `json:"count"`
}

// SourceOutput is one retrieved chunk.
type SourceOutput struct {
	ID      string  `json:"id"`
	Origin  string  `json:"origin,omitempty"`
	Score   float64 `json:"score"`
	Content string  `json:"content,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest",
		Description: "Chunk, embed and index a local directory or git repository",
	}, s.handleIngest)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question using the most relevant indexed code as context",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Return the indexed code chunks most similar to a query",
	}, s.handleRetrieve)
}

func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	root := strings.TrimSpace(input.Root)
	if root == "" {
		return nil, IngestOutput{}, fmt.Errorf("%w: root is required", domain.ErrInvalidInput)
	}
	ns, err := s.ports.namespace(input.Namespace)
	if err != nil {
		return nil, IngestOutput{}, err
	}

	n, err := s.ports.Assistant.IngestSource(ctx, root, ns)
	if err != nil {
		return nil, IngestOutput{}, err
	}
	return nil, IngestOutput{Namespace: ns, Chunks: n}, nil
}

func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	ns, err := s.ports.namespace(input.Namespace)
	if err != nil {
		return nil, AskOutput{}, err
	}

	answer, err := s.ports.Assistant.Ask(ctx, input.Question, ns)
	if err != nil {
		return nil, AskOutput{}, err
	}

	// sources carry origins only; the text is already in the answer's context
	output := AskOutput{Answer: answer.Text, Sources: make([]SourceOutput, len(answer.Sources))}
	for i, c := range answer.Sources {
		output.Sources[i] = SourceOutput{ID: c.ID, Origin: c.Origin, Score: c.Score}
	}
	return nil, output, nil
}

func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	ns, err := s.ports.namespace(input.Namespace)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	chunks, err := s.ports.Assistant.Retrieve(ctx, input.Query, ns)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	output := RetrieveOutput{Chunks: make([]SourceOutput, len(chunks)), Count: len(chunks)}
	for i, c := range chunks {
		output.Chunks[i] = SourceOutput{ID: c.ID, Origin: c.Origin, Score: c.Score, Content: c.Text}
	}
	return nil, output, nil
}
