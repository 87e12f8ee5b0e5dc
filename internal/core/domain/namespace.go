package domain

import (
	"fmt"
	"regexp"
)

// DefaultNamespace is used when a session does not choose one.
const DefaultNamespace = "default-session"

// MaxNamespaceLength bounds namespace names so they fit store key limits.
const MaxNamespaceLength = 128

var namespacePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.:-]*$`)

// ValidateNamespace checks that a namespace is safe to use as a partition key.
func ValidateNamespace(ns string) error {
	if ns == "" {
		return fmt.Errorf("%w: namespace is required", ErrInvalidInput)
	}
	if len(ns) > MaxNamespaceLength {
		return fmt.Errorf("%w: namespace longer than %d characters", ErrInvalidInput, MaxNamespaceLength)
	}
	if !namespacePattern.MatchString(ns) {
		return fmt.Errorf("%w: namespace %q contains unsupported characters", ErrInvalidInput, ns)
	}
	return nil
}
