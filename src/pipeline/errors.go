package pipeline

import (
	"fmt"

	"famfin-server/src/models"
)

// MalformedInputError marks a single raw record that cannot be normalized.
// The batch skips it and carries on.
type MalformedInputError struct {
	Provider models.Provider
	Field    string
	Value    string
	Err      error
}

func (e *MalformedInputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed %s transaction: %s %q: %v", e.Provider, e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("malformed %s transaction: %s %q", e.Provider, e.Field, e.Value)
}

func (e *MalformedInputError) Unwrap() error { return e.Err }

// StorageError wraps a failure of the ledger store. It always propagates so
// the caller can retry the batch.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage: %s: %v", e.Op, e.Err) }

func (e *StorageError) Unwrap() error { return e.Err }

// ProviderAPIError wraps a failure talking to a bank aggregator.
type ProviderAPIError struct {
	Provider models.Provider
	Op       string
	Err      error
}

func (e *ProviderAPIError) Error() string {
	return fmt.Sprintf("%s api: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderAPIError) Unwrap() error { return e.Err }

// AIProviderError wraps a failed completion call. Callers recover from it
// locally.
type AIProviderError struct {
	Err error
}

func (e *AIProviderError) Error() string { return fmt.Sprintf("ai provider: %v", e.Err) }

func (e *AIProviderError) Unwrap() error { return e.Err }
