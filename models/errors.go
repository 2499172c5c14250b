package models

import "fmt"

// InputError reports invalid caller input: unsupported file types,
// undecodable content, bad parameters. Never retried.
type InputError struct {
	Msg string
}

func (e *InputError) Error() string { return e.Msg }

// NewInputError formats an InputError.
func NewInputError(format string, args ...any) *InputError {
	return &InputError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a reference to a collection, point or file that
// does not exist on an operation that requires existence.
type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// EmbeddingError wraps an embedding provider failure after retries were
// exhausted. Item identifies the offending input where known.
type EmbeddingError struct {
	Op       string
	Item     string
	Attempts int
	Err      error
}

func (e *EmbeddingError) Error() string {
	if e.Item != "" {
		return fmt.Sprintf("embedding %s failed for %s after %d attempts: %v", e.Op, e.Item, e.Attempts, e.Err)
	}
	return fmt.Sprintf("embedding %s failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// StoreError wraps a vector store failure. Transient failures (network,
// 5xx, 429) are retried by the store client before surfacing; everything
// else is fatal to the operation.
type StoreError struct {
	Op        string
	Transient bool
	Err       error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("vector store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
