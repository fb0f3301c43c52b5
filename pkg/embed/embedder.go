// Package embed talks to the external embedding service and caches the
// vectors it returns. Everything semantic in the engine flows through here.
package embed

import (
	"context"
	"fmt"
)

// Embedder computes a fixed-dimension vector for a text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// UnavailableError reports that the embedding collaborator could not produce
// a vector. Callers must treat the affected post as unscorable; substituting
// a zero vector would corrupt similarity undetectably.
type UnavailableError struct {
	Key string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("embedding unavailable for %q: %v", e.Key, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// DimensionError reports a vector whose length does not match the configured
// embedding dimension. This is a contract violation with the collaborator
// and fails the call immediately.
type DimensionError struct {
	Want, Got int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("embedding dimension mismatch: want %d, got %d", e.Want, e.Got)
}
