// Package idgen generates short, URL-safe identifiers for requests and
// backup runs, backed by nanoid.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes mark what an identifier names.
const (
	RequestPrefix = "req-"
	BackupPrefix  = "bk-"
)

const (
	alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	size     = 12
)

// New returns prefix followed by a random nanoid.
func New(prefix string) (string, error) {
	id, err := nanoid.Generate(alphabet, size)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}

// RequestID returns a new request identifier. If the random source fails
// it returns the bare prefix rather than an error, since a request must
// still be served.
func RequestID() string {
	id, err := New(RequestPrefix)
	if err != nil {
		return RequestPrefix + "unknown"
	}
	return id
}
