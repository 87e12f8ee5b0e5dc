package domain

// Document is one file's worth of text handed over by a document source.
// It is immutable and scoped to a single ingest call.
type Document struct {
	// Source identifies where the text came from (relative path or URL).
	Source string

	// Content is the full decoded text.
	Content string

	// Metadata carries loader-specific attributes (size, sha, repository).
	Metadata map[string]any
}

// Chunk is a bounded text segment derived from exactly one Document.
// It is the atomic unit of embedding and retrieval.
type Chunk struct {
	// ID is assigned by the retrieval coordinator at store time.
	ID string

	// Origin is the Source of the parent Document.
	Origin string

	// Content is the chunk text.
	Content string

	// Position is the ordinal position within the parent document.
	Position int

	// Metadata contains chunk-specific key-value pairs set by post-processors.
	Metadata map[string]any
}

// MetadataString returns a string metadata value or "" if absent.
func (c Chunk) MetadataString(key string) string {
	if c.Metadata == nil {
		return ""
	}
	s, _ := c.Metadata[key].(string)
	return s
}

// RetrievedChunk is a chunk returned by a similarity query.
type RetrievedChunk struct {
	// ID is the chunk identifier in the index.
	ID string `json:"id"`

	// Text is the chunk content from the entry payload.
	Text string `json:"text"`

	// Origin is the source of the document the chunk came from.
	Origin string `json:"origin"`

	// Score is the similarity to the query (higher is closer).
	Score float64 `json:"score"`
}

// Answer is the result of asking a question against a namespace.
type Answer struct {
	// Question is the question as asked.
	Question string `json:"question"`

	// Text is the language model's answer.
	Text string `json:"answer"`

	// Sources are the retrieved chunks used as context, most relevant first.
	// An empty slice means nothing matched; it is not an error.
	Sources []RetrievedChunk `json:"sources"`
}

// HasContext reports whether any chunks were retrieved for the answer.
func (a *Answer) HasContext() bool {
	return a != nil && len(a.Sources) > 0
}
