package signer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// Export names follow the wasm-bindgen conventions the signing module was
// built with.
const (
	exportMemory = "memory"
	exportMalloc = "__wbindgen_malloc"
	exportFree   = "__wbindgen_free"
	exportSign   = "sign"
)

// WASMSigner implements Signer on top of a wazero-hosted signing module.
//
// The module instance, its linear memory and its execution context are not
// reentrant, so the signer is a process-wide singleton and every Sign call
// serializes behind mu. Loading happens lazily on first use; a load failure
// poisons the signer permanently.
type WASMSigner struct {
	wasmBytes []byte
	logger    *slog.Logger

	mu      sync.Mutex
	loaded  bool
	initErr error
	g       guest
	close   func(context.Context) error

	// loadGuest is replaced in tests to drive the protocol with a fake.
	loadGuest func(ctx context.Context) (guest, func(context.Context) error, error)
}

// New creates a WASMSigner for a compiled signing module. The module is not
// instantiated until the first Sign call.
func New(wasmBytes []byte, logger *slog.Logger) *WASMSigner {
	s := &WASMSigner{
		wasmBytes: wasmBytes,
		logger:    logger,
	}
	s.loadGuest = s.loadWazeroGuest
	return s
}

// NewFromFile reads a compiled signing module from disk.
func NewFromFile(path string, logger *slog.Logger) (*WASMSigner, error) {
	wasmBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read signing module %s: %w", path, err)
	}
	return New(wasmBytes, logger), nil
}

// Sign implements Signer. Identical inputs against the same loaded module
// always produce the same signature.
func (s *WASMSigner) Sign(ctx context.Context, nonce, timestamp, deviceID, query string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return "", err
	}
	return signOnce(ctx, s.g, s.logger, nonce, timestamp, deviceID, query)
}

// Close releases the module runtime. Subsequent Sign calls fail.
func (s *WASMSigner) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded || s.initErr != nil {
		return nil
	}
	s.initErr = fmt.Errorf("%w: signer closed", ErrInitialization)
	if s.close != nil {
		return s.close(ctx)
	}
	return nil
}

// ensureLoaded instantiates the module on first use. Failure is recorded and
// returned to every caller thereafter; the bridge does not retry loading.
func (s *WASMSigner) ensureLoaded(ctx context.Context) error {
	if s.loaded {
		return s.initErr
	}
	s.loaded = true

	g, closeFn, err := s.loadGuest(ctx)
	if err != nil {
		s.initErr = err
		s.logger.Error("signing module initialization failed", "error", err)
		return err
	}
	s.g = g
	s.close = closeFn
	s.logger.Info("signing module loaded")
	return nil
}

// loadWazeroGuest instantiates the module with wazero and resolves the
// required exports.
func (s *WASMSigner) loadWazeroGuest(ctx context.Context) (guest, func(context.Context) error, error) {
	rt := wazero.NewRuntime(ctx)

	mod, err := rt.Instantiate(ctx, s.wasmBytes)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, nil, fmt.Errorf("%w: %v", ErrInitialization, err)
	}

	mem := mod.Memory()
	if mem == nil {
		_ = rt.Close(ctx)
		return nil, nil, fmt.Errorf("%w: export %q not found", ErrInitialization, exportMemory)
	}

	fns := make(map[string]api.Function, 3)
	for _, name := range []string{exportMalloc, exportFree, exportSign} {
		fn := mod.ExportedFunction(name)
		if fn == nil {
			_ = rt.Close(ctx)
			return nil, nil, fmt.Errorf("%w: export %q not found", ErrInitialization, name)
		}
		fns[name] = fn
	}

	g := &wazeroGuest{
		memory:   mem,
		mallocFn: fns[exportMalloc],
		freeFn:   fns[exportFree],
		signFn:   fns[exportSign],
	}
	return g, rt.Close, nil
}

// wazeroGuest adapts a wazero module instance to the guest interface.
type wazeroGuest struct {
	memory   api.Memory
	mallocFn api.Function
	freeFn   api.Function
	signFn   api.Function
}

func (g *wazeroGuest) malloc(ctx context.Context, size, align int32) (int32, error) {
	res, err := g.mallocFn.Call(ctx, api.EncodeI32(size), api.EncodeI32(align))
	if err != nil {
		return 0, err
	}
	return api.DecodeI32(res[0]), nil
}

func (g *wazeroGuest) free(ctx context.Context, ptr, size, align int32) error {
	_, err := g.freeFn.Call(ctx, api.EncodeI32(ptr), api.EncodeI32(size), api.EncodeI32(align))
	return err
}

func (g *wazeroGuest) sign(ctx context.Context, retPtr int32, args [8]int32) error {
	params := make([]uint64, 0, 9)
	params = append(params, api.EncodeI32(retPtr))
	for _, a := range args {
		params = append(params, api.EncodeI32(a))
	}
	_, err := g.signFn.Call(ctx, params...)
	return err
}

func (g *wazeroGuest) memRead(ptr, size int32) ([]byte, bool) {
	return g.memory.Read(uint32(ptr), uint32(size))
}

func (g *wazeroGuest) memWrite(ptr int32, data []byte) bool {
	return g.memory.Write(uint32(ptr), data)
}
