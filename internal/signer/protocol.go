package signer

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"unicode/utf8"
)

// guest is the low-level surface of a loaded signing module: its allocator,
// deallocator, signing entry point and linear memory. The WASM-backed
// implementation lives in wasm.go; tests drive the protocol with an
// in-memory fake.
type guest interface {
	malloc(ctx context.Context, size, align int32) (int32, error)
	free(ctx context.Context, ptr, size, align int32) error
	sign(ctx context.Context, retPtr int32, args [8]int32) error
	memRead(ptr, size int32) ([]byte, bool)
	memWrite(ptr int32, data []byte) bool
}

// descriptorSize is the 8-byte (pointer, length) result slot the module
// writes into; descriptorAlign is its required alignment.
const (
	descriptorSize  = 8
	descriptorAlign = 4
)

// allocation records one guest-side buffer so it can be released on every
// exit path of a sign call.
type allocation struct {
	ptr, size, align int32
}

// signOnce runs one complete sign transaction against the guest: allocate
// the descriptor and the four input buffers, invoke the signing export, read
// back the result, and free every allocation regardless of outcome. The
// caller must hold the bridge lock.
func signOnce(ctx context.Context, g guest, logger *slog.Logger, nonce, timestamp, deviceID, query string) (result string, err error) {
	var allocs []allocation
	defer func() {
		for _, a := range allocs {
			if ferr := g.free(ctx, a.ptr, a.size, a.align); ferr != nil {
				logger.Warn("failed to free module buffer", "ptr", a.ptr, "size", a.size, "error", ferr)
			}
		}
	}()

	alloc := func(size, align int32) (int32, error) {
		ptr, err := g.malloc(ctx, size, align)
		if err != nil {
			return 0, fmt.Errorf("module malloc trapped: %w", err)
		}
		if ptr == 0 {
			return 0, fmt.Errorf("%w (size %d)", ErrAllocation, size)
		}
		allocs = append(allocs, allocation{ptr: ptr, size: size, align: align})
		return ptr, nil
	}

	retPtr, err := alloc(descriptorSize, descriptorAlign)
	if err != nil {
		return "", err
	}

	// Write the four inputs into linear memory, one allocation each.
	var args [8]int32
	for i, s := range []string{nonce, timestamp, deviceID, query} {
		b := []byte(s)
		size := int32(len(b))
		ptr, err := alloc(size, 1)
		if err != nil {
			return "", err
		}
		if !g.memWrite(ptr, b) {
			return "", fmt.Errorf("write of %d bytes at %d is out of bounds", size, ptr)
		}
		args[2*i] = ptr
		args[2*i+1] = size
	}

	if err := g.sign(ctx, retPtr, args); err != nil {
		return "", fmt.Errorf("module sign call failed: %w", err)
	}

	// The module wrote a little-endian (ptr, len) pair into the descriptor.
	raw, ok := g.memRead(retPtr, descriptorSize)
	if !ok {
		return "", fmt.Errorf("descriptor read at %d is out of bounds", retPtr)
	}
	resultPtr := int32(binary.LittleEndian.Uint32(raw[0:4]))
	resultLen := int32(binary.LittleEndian.Uint32(raw[4:8]))

	if resultPtr != 0 {
		allocs = append(allocs, allocation{ptr: resultPtr, size: resultLen, align: 1})
	}
	if resultLen == 0 {
		return "", nil
	}

	buf, ok := g.memRead(resultPtr, resultLen)
	if !ok {
		return "", fmt.Errorf("result read of %d bytes at %d is out of bounds", resultLen, resultPtr)
	}
	if !utf8.Valid(buf) {
		return "", fmt.Errorf("%w: signature bytes", ErrEncoding)
	}

	// Copy before the deferred frees release the backing memory.
	return string(buf), nil
}
