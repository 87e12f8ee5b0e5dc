package chunker

import (
	"strings"

	"github.com/custodia-labs/repochat/internal/core/domain"
)

// separators are tried in order: paragraph, line, word.
var separators = [][]rune{
	[]rune("\n\n"),
	[]rune("\n"),
	[]rune(" "),
}

// Validate checks 0 <= overlap < size.
func Validate(size, overlap int) error {
	return domain.ChunkingSettings{Size: size, Overlap: overlap}.Validate()
}

// Chunk splits every document into overlapping chunks of at most size runes.
// Invalid parameters fail before any document is processed.
func Chunk(docs []domain.Document, size, overlap int) ([]domain.Chunk, error) {
	if err := Validate(size, overlap); err != nil {
		return nil, err
	}
	var chunks []domain.Chunk
	for _, doc := range docs {
		position := 0
		for _, text := range Split(doc.Content, size, overlap) {
			chunks = append(chunks, domain.Chunk{
				Origin:   doc.Source,
				Content:  text,
				Position: position,
				Metadata: make(map[string]any),
			})
			position++
		}
	}
	return chunks, nil
}

// Split cuts text into segments of at most size runes. Each segment after the
// first starts with the last overlap runes of its predecessor, so dropping
// those prefixes and concatenating restores text exactly.
//
// A segment ends after the last paragraph break inside its window, else the
// last line break, else the last space, else at the hard limit. A break is
// only taken if the segment still advances at least half a step past the
// overlap. Text that fits in one segment is returned whole; whitespace-only
// text produces nothing.
//
// Split assumes valid parameters; use Validate or Chunk to check them.
func Split(text string, size, overlap int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}

	var out []string
	start := 0
	for {
		limit := start + size
		if limit >= len(runes) {
			return append(out, string(runes[start:]))
		}

		minEnd := start + overlap + (size-overlap+1)/2
		end := findBreak(runes, minEnd, limit)
		if end < 0 {
			end = limit
		}
		out = append(out, string(runes[start:end]))
		start = end - overlap
	}
}

// findBreak returns the position just after the last separator ending within
// [minEnd, limit], trying separators in priority order, or -1.
func findBreak(runes []rune, minEnd, limit int) int {
	for _, sep := range separators {
		n := len(sep)
		for i := limit - n; i >= 0 && i+n >= minEnd; i-- {
			if hasPrefixAt(runes, i, sep) {
				return i + n
			}
		}
	}
	return -1
}

func hasPrefixAt(runes []rune, i int, sep []rune) bool {
	for j, r := range sep {
		if runes[i+j] != r {
			return false
		}
	}
	return true
}
