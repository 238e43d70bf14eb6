package ocr

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/sandraschi/ocr-gateway/internal/errors"
	"github.com/sandraschi/ocr-gateway/internal/logger"
	"github.com/sirupsen/logrus"
)

// Manager owns the name-keyed backend registry and enforces the dispatch
// discipline: a backend that failed its availability probe is never invoked.
type Manager struct {
	order    []string
	backends map[string]Backend
}

// NewManager registers every given backend. Duplicate names are a wiring
// error and fail construction; this is the only place a registry fault is
// allowed to be fatal.
func NewManager(backends ...Backend) (*Manager, error) {
	m := &Manager{
		backends: make(map[string]Backend, len(backends)),
	}
	for _, b := range backends {
		name := b.Name()
		if _, dup := m.backends[name]; dup {
			return nil, fmt.Errorf("duplicate backend name %q", name)
		}
		m.backends[name] = b
		m.order = append(m.order, name)
	}
	return m, nil
}

// RegisteredBackends returns the static catalogue of registered names in
// registration order. Registered does not mean currently usable; use
// BackendStatus for probed availability.
func (m *Manager) RegisteredBackends() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Backend resolves a backend by name.
func (m *Manager) Backend(name string) (Backend, error) {
	b, ok := m.backends[name]
	if !ok {
		return nil, apperrors.NewBackendNotFoundError(name)
	}
	return b, nil
}

// ProcessWithBackend dispatches a recognition request to the named backend.
// Resolution failures and unavailable backends short-circuit into a failed
// Result without invoking the engine; a successful dispatch returns the
// backend's result unmodified apart from filling in elapsed wall-clock time
// when the backend did not populate it. No implicit timeout is applied and
// no cross-backend fallback happens here: callers wanting fallback re-invoke
// with a different name after inspecting a failed result.
func (m *Manager) ProcessWithBackend(ctx context.Context, name, ref string, mode Mode, format Format, opts Options) Result {
	start := time.Now()

	b, err := m.Backend(name)
	if err != nil {
		res := Failure(name, apperrors.ErrorTypeBackendNotFound, err)
		res.ProcessingTimeSec = time.Since(start).Seconds()
		return res
	}

	if !b.IsAvailable(ctx) {
		res := Failure(name, apperrors.ErrorTypeBackendUnavailable, apperrors.NewBackendUnavailableError(name))
		res.ProcessingTimeSec = time.Since(start).Seconds()
		return res
	}

	logger.WithFields(logrus.Fields{
		"backend": name,
		"ref":     ref,
		"mode":    mode,
		"format":  format,
	}).Debug("Dispatching recognition request")

	res := b.ProcessImage(ctx, ref, mode, format, opts)
	if res.Backend == "" {
		res.Backend = name
	}
	if res.ProcessingTimeSec == 0 {
		res.ProcessingTimeSec = time.Since(start).Seconds()
	}
	return res
}

// BackendStatus probes every registered backend concurrently and maps each
// name to its (now memoized) availability. A slow probe on one backend does
// not delay the others, and the map always has exactly one entry per
// registered name.
func (m *Manager) BackendStatus(ctx context.Context) map[string]bool {
	status := make(map[string]bool, len(m.order))

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, name := range m.order {
		wg.Add(1)
		go func(name string, b Backend) {
			defer wg.Done()
			available := b.IsAvailable(ctx)
			mu.Lock()
			status[name] = available
			mu.Unlock()
		}(name, m.backends[name])
	}
	wg.Wait()

	return status
}

// AnyAvailable reports whether at least one registered backend passed its
// probe. Used by the bridge health endpoint.
func (m *Manager) AnyAvailable(ctx context.Context) bool {
	for _, available := range m.BackendStatus(ctx) {
		if available {
			return true
		}
	}
	return false
}
