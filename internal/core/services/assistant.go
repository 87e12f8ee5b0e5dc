package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/repochat/internal/core/domain"
	"github.com/custodia-labs/repochat/internal/core/ports/driven"
	"github.com/custodia-labs/repochat/internal/core/ports/driving"
	"github.com/custodia-labs/repochat/internal/logger"
)

// Ensure AssistantService implements the interface.
var _ driving.AssistantService = (*AssistantService)(nil)

// DefaultTopK is the number of chunks used as context when none is configured.
const DefaultTopK = 3

// contextSeparator joins retrieved chunk texts into the LLM context.
const contextSeparator = "\n\n"

// AssistantService wires chunking, retrieval and the language model together.
type AssistantService struct {
	retrieval driving.RetrievalService
	pipeline  driven.PostProcessorPipeline
	llm       driven.LLMService
	source    driven.DocumentSource
	topK      int
}

// NewAssistantService creates a new assistant service.
// The llm parameter is optional (can be nil); Ask then returns context only.
func NewAssistantService(
	retrieval driving.RetrievalService,
	pipeline driven.PostProcessorPipeline,
	llm driven.LLMService,
	topK int,
) *AssistantService {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &AssistantService{
		retrieval: retrieval,
		pipeline:  pipeline,
		llm:       llm,
		topK:      topK,
	}
}

// SetDocumentSource sets the loader used by IngestSource.
func (s *AssistantService) SetDocumentSource(source driven.DocumentSource) {
	s.source = source
}

// Ingest chunks every document and stores all chunks in one batch.
func (s *AssistantService) Ingest(ctx context.Context, docs []domain.Document, namespace string) (int, error) {
	if err := domain.ValidateNamespace(namespace); err != nil {
		return 0, err
	}

	logger.Section("Ingest")
	logger.Debugw("chunking documents", "namespace", namespace, "documents", len(docs))

	var chunks []domain.Chunk
	for i := range docs {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		docChunks, err := s.pipeline.Process(ctx, &docs[i])
		if err != nil {
			return 0, fmt.Errorf("chunk %s: %w", docs[i].Source, err)
		}
		chunks = append(chunks, docChunks...)
	}

	if len(chunks) == 0 {
		logger.Info("No chunks produced from %d documents", len(docs))
		return 0, nil
	}

	if err := s.retrieval.EmbedAndStore(ctx, chunks, namespace); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

// IngestSource loads documents from root and ingests them.
func (s *AssistantService) IngestSource(ctx context.Context, root, namespace string) (int, error) {
	if s.source == nil {
		return 0, fmt.Errorf("%w: no document source configured", domain.ErrConfiguration)
	}
	if strings.TrimSpace(root) == "" {
		return 0, fmt.Errorf("%w: source path or URL is required", domain.ErrInvalidInput)
	}
	if err := domain.ValidateNamespace(namespace); err != nil {
		return 0, err
	}

	docs, err := s.source.Load(ctx, root)
	if err != nil {
		if errors.Is(err, domain.ErrSourceUnavailable) || errors.Is(err, context.Canceled) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err)
	}
	logger.Info("Loaded %d documents from %s", len(docs), root)

	return s.Ingest(ctx, docs, namespace)
}

// Retrieve returns the chunks Ask would use as context.
func (s *AssistantService) Retrieve(ctx context.Context, question, namespace string) ([]domain.RetrievedChunk, error) {
	return s.retrieval.Retrieve(ctx, question, namespace, s.topK)
}

// Ask answers a question from the top-k chunks of the namespace.
// The language model is asked even when nothing was retrieved; the empty
// Sources slice tells the caller there was no context.
func (s *AssistantService) Ask(ctx context.Context, question, namespace string) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}

	sources, err := s.retrieval.Retrieve(ctx, question, namespace, s.topK)
	if err != nil {
		return nil, err
	}

	answer := &domain.Answer{
		Question: question,
		Sources:  sources,
	}
	if s.llm == nil {
		logger.Warn("No language model configured, returning retrieved context only")
		return answer, nil
	}

	texts := make([]string, len(sources))
	for i, src := range sources {
		texts[i] = src.Text
	}

	logger.Debugw("asking language model", "model", s.llm.ModelName(), "context_chunks", len(sources))
	text, err := s.llm.Answer(ctx, strings.Join(texts, contextSeparator), question)
	if err != nil {
		if errors.Is(err, domain.ErrProviderUnavailable) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}
	answer.Text = text
	return answer, nil
}

// Status reports the index contents for a namespace.
func (s *AssistantService) Status(ctx context.Context, namespace string) (domain.IndexStats, error) {
	return s.retrieval.Stats(ctx, namespace)
}
