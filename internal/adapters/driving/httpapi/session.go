package httpapi

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"

	"github.com/custodia-labs/repochat/internal/core/domain"
)

// SessionHeader names the request header that selects a client namespace.
const SessionHeader = "X-Session-ID"

// NewSessionNamespace returns a fresh namespace of the form session-<ulid>.
func NewSessionNamespace() string {
	return "session-" + strings.ToLower(ulid.Make().String())
}

// namespaceFor picks the request's namespace: the session header when set,
// the server session otherwise.
func (s *Server) namespaceFor(c *gin.Context) (string, error) {
	ns := strings.TrimSpace(c.GetHeader(SessionHeader))
	if ns == "" {
		return s.namespace, nil
	}
	if err := domain.ValidateNamespace(ns); err != nil {
		return "", err
	}
	return ns, nil
}
