// Package signer produces request signatures for the Dev backend by driving
// a sandboxed WebAssembly module that implements the backend's proprietary
// signing algorithm.
package signer

import (
	"context"
	"errors"
)

// Signer is the single capability the rest of devgate depends on. Tests and
// alternative backends substitute their own implementation.
type Signer interface {
	// Sign returns the signature for the given nonce, timestamp, device id
	// and query text. Safe for concurrent use; calls against the shared
	// module instance serialize internally.
	Sign(ctx context.Context, nonce, timestamp, deviceID, query string) (string, error)
}

// Error taxonomy for the module boundary. Callers match with errors.Is.
var (
	// ErrInitialization means the module failed to load or a required
	// export is missing. It is permanent: the bridge never retries loading.
	ErrInitialization = errors.New("signer: module initialization failed")

	// ErrAllocation means the module allocator returned a null pointer.
	// It fails the current call only.
	ErrAllocation = errors.New("signer: module allocator returned null")

	// ErrEncoding means bytes crossing the module boundary were not valid
	// UTF-8.
	ErrEncoding = errors.New("signer: invalid utf-8 across module boundary")
)
