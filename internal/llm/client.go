// Package llm abstracts the completion capability behind a single client
// interface with one implementation per provider, selected by provider name.
package llm

import (
	"context"
	"errors"
)

// Sentinel errors for completion calls. Check with errors.Is().
var (
	// ErrConfiguration indicates a missing credential or an unknown
	// provider/model name.
	ErrConfiguration = errors.New("llm configuration error")

	// ErrProvider indicates a transport or auth failure from the provider.
	ErrProvider = errors.New("llm provider error")

	// ErrTimeout indicates the call exceeded the configured deadline.
	ErrTimeout = errors.New("llm request timed out")
)

// Request is a single completion call.
type Request struct {
	System      string
	User        string
	Temperature float64
	// JSONOutput asks the provider for JSON-shaped output. Providers may
	// ignore the hint; callers must still clean and parse the response.
	JSONOutput bool
}

// Client is the completion capability consumed by the pipeline.
type Client interface {
	// Complete returns the model's text response. An empty response is not
	// an error at this layer; the caller decides what emptiness means.
	Complete(ctx context.Context, req Request) (string, error)

	// Model returns the model identifier the client calls.
	Model() string
}
