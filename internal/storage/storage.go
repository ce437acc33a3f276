// Package storage provides the durable key-value store the session is persisted in.
// Backends: a YAML file under the user config directory, process memory, and Redis.
package storage

import (
	"net/http"

	"github.com/Balram04/assigno/internal/common/apperrors"
)

// Store is a small string key-value store. Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool, error)
	// Set stores value under key.
	Set(key, value string) error
	// Delete removes the given keys. Missing keys are not an error.
	Delete(keys ...string) error
	// Close releases backend resources.
	Close() error
}

var (
	ErrStorage     = apperrors.New("session storage error").SetStatusCode(http.StatusInternalServerError)
	ErrUnknownKind = ErrStorage.New("unknown storage backend")
)
