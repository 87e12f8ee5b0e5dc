package services

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/repochat/internal/core/domain"
)

// contentHashLength is the number of hex characters kept from the content hash.
const contentHashLength = 32

// idFunc returns the identifier of a chunk within a namespace.
type idFunc func(namespace string, chunk domain.Chunk) string

// idFuncFor returns the generator for a scheme. Unknown schemes use random IDs.
func idFuncFor(scheme domain.IDScheme) idFunc {
	if scheme == domain.IDSchemeContent {
		return contentChunkID
	}
	return randomChunkID
}

// randomChunkID returns "{namespace}-{uuid}". Re-ingest appends new entries.
func randomChunkID(namespace string, _ domain.Chunk) string {
	return namespace + "-" + uuid.NewString()
}

// contentChunkID returns "{namespace}-{hash}" where hash covers the origin and
// the whitespace-normalised text, so re-ingesting unchanged chunks overwrites them.
func contentChunkID(namespace string, chunk domain.Chunk) string {
	normalised := strings.Join(strings.Fields(chunk.Content), " ")
	sum := sha256.Sum256([]byte(chunk.Origin + "\x00" + normalised))
	return namespace + "-" + hex.EncodeToString(sum[:])[:contentHashLength]
}
