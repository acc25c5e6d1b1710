package bundlelib

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

const testPlatform = "TestOS"

// encodeTestBundle builds a bundle payload from name/content pairs.
func encodeTestBundle(t *testing.T, kv ...string) []byte {
	t.Helper()
	assets := make(map[string][]byte, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		assets[kv[i]] = []byte(kv[i+1])
	}
	data, err := EncodeBundle(assets)
	if err != nil {
		t.Fatalf("EncodeBundle: %v", err)
	}
	return data
}

// fakeTransporter serves bundles from memory and records every call.
type fakeTransporter struct {
	mu          sync.Mutex
	payloads    map[string][]byte
	failures    map[string]int // remaining failures per name, -1 fails forever
	panics      map[string]bool
	calls       []string
	inFlight    int
	maxInFlight int
	gate        chan struct{}
}

func newFakeTransporter() *fakeTransporter {
	return &fakeTransporter{
		payloads: make(map[string][]byte),
		failures: make(map[string]int),
		panics:   make(map[string]bool),
	}
}

func (f *fakeTransporter) put(name string, payload []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads[name] = payload
}

func (f *fakeTransporter) failN(name string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[name] = n
}

// hold makes every following Load wait until the returned channel is closed.
func (f *fakeTransporter) hold() chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
	return f.gate
}

func (f *fakeTransporter) Load(ctx context.Context, name, origin string, progress ProgressFunc) (*Bundle, error) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	gate := f.gate
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, newTransportError("fake", "wait", name, ctx.Err())
		}
	}
	if progress != nil {
		progress(0.5)
	}

	f.mu.Lock()
	if f.panics[name] {
		f.mu.Unlock()
		panic("boom " + name)
	}
	remaining := f.failures[name]
	if remaining != 0 {
		if remaining > 0 {
			f.failures[name] = remaining - 1
		}
		f.mu.Unlock()
		return nil, newTransportError("fake", "load", name, fmt.Errorf("simulated failure"))
	}
	payload, ok := f.payloads[name]
	f.mu.Unlock()
	if !ok {
		return nil, newTransportError("fake", "open", name, fmt.Errorf("no such bundle"))
	}
	return ParseBundle(name, payload)
}

func (f *fakeTransporter) callsFor(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (f *fakeTransporter) current() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inFlight
}

func (f *fakeTransporter) peak() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInFlight
}

// putManifest stores the platform bundle with the given manifest document.
func (f *fakeTransporter) putManifest(t *testing.T, doc string) {
	t.Helper()
	f.put(testPlatform, encodeTestBundle(t, ManifestAssetName, doc))
}

func testConfig(streams int) Config {
	cfg := DefaultConfig()
	cfg.Streams = streams
	cfg.Platform = testPlatform
	cfg.TickInterval = 5 * time.Millisecond
	return cfg
}

func newTestManager(t *testing.T, cfg Config, ft Transporter, opts ...Option) *Manager {
	t.Helper()
	opts = append([]Option{WithTransporter(ft)}, opts...)
	m, err := NewManager(cfg, opts...)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

type waiter interface {
	Wait(ctx context.Context) error
}

// waitDone blocks until s finishes and returns its outcome error.
func waitDone(t *testing.T, s waiter) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.Wait(ctx)
	if err == context.DeadlineExceeded {
		t.Fatalf("timed out waiting for load operation")
	}
	return err
}

func mustLoadManifest(t *testing.T, m *Manager) {
	t.Helper()
	st, err := m.LoadManifest()
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if err := waitDone(t, st); err != nil {
		t.Fatalf("manifest load failed: %v", err)
	}
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// recordingHandler counts operation events.
type recordingHandler struct {
	mu     sync.Mutex
	loaded []string
	done   int
}

func (h *recordingHandler) OnBundleLoaded(op *LoadOperation, name string, b *Bundle) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loaded = append(h.loaded, name)
}

func (h *recordingHandler) OnLoadOpDone(op *LoadOperation) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.done++
}

func (h *recordingHandler) doneCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.done
}

// stallingTransporter serves the manifest and blocks every other Load
// until release is closed, ignoring its context.
type stallingTransporter struct {
	manifest []byte
	release  chan struct{}
	mu       sync.Mutex
	stalled  int
}

func newStallingTransporter(t *testing.T, doc string) *stallingTransporter {
	st := &stallingTransporter{
		manifest: encodeTestBundle(t, ManifestAssetName, doc),
		release:  make(chan struct{}),
	}
	t.Cleanup(func() { close(st.release) })
	return st
}

func (s *stallingTransporter) Load(ctx context.Context, name, origin string, progress ProgressFunc) (*Bundle, error) {
	if name == testPlatform {
		return ParseBundle(name, s.manifest)
	}
	s.mu.Lock()
	s.stalled++
	s.mu.Unlock()
	<-s.release
	return nil, fmt.Errorf("released")
}

func (s *stallingTransporter) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stalled
}
