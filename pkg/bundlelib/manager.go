package bundlelib

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/warpdl/warpbundle/pkg/logger"
	"gopkg.in/yaml.v3"
)

// Manager schedules bundle loads over a fixed number of transport slots.
// It owns the cache, the manifest and the set of active load operations.
//
// A single loop goroutine drives scheduling. It runs while at least one
// operation is active, waking on a ticker, on admission of a new
// operation and on every transfer result.
type Manager struct {
	cfg       Config
	platform  string
	origin    Origin
	originErr error
	transport Transporter
	routes    map[string]Transporter
	resolver  VariantResolver
	cache     *Cache
	l         logger.Logger
	metrics   *Metrics

	mu             sync.Mutex
	budget         int
	freeSlots      int
	active         []*LoadOperation
	fetching       map[string]struct{}
	nextID         uint64
	manifest       *Manifest
	manifestOp     *LoadOperation
	manifestStatus *LoadStatus
	running        bool
	closed         bool

	results chan attemptResult
	wake    chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Option configures a Manager at construction.
type Option func(*Manager)

// WithLogger sets the logger for scheduling and configuration diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) {
		m.l = l
	}
}

// WithMetrics records scheduler metrics on mt.
func WithMetrics(mt *Metrics) Option {
	return func(m *Manager) {
		m.metrics = mt
	}
}

// WithTransporter replaces the transporter chosen from the target.
func WithTransporter(t Transporter) Option {
	return func(m *Manager) {
		m.transport = t
	}
}

// WithRoute registers t for scheme on the default URL transporter.
// It has no effect together with WithTransporter or for disk targets.
func WithRoute(scheme string, t Transporter) Option {
	return func(m *Manager) {
		m.routes[scheme] = t
	}
}

// WithVariantResolver sets the resolver applied to names before dispatch.
func WithVariantResolver(r VariantResolver) Option {
	return func(m *Manager) {
		m.resolver = r
	}
}

// WithPlatform overrides the platform name used for the manifest bundle.
func WithPlatform(platform string) Option {
	return func(m *Manager) {
		m.platform = platform
	}
}

type attemptResult struct {
	op       *LoadOperation
	index    int
	name     string
	bundle   *Bundle
	manifest *Manifest
	err      error
	took     time.Duration
}

// Stats is a snapshot of the scheduler state.
type Stats struct {
	Budget         int
	FreeSlots      int
	InFlight       int
	ActiveOps      int
	CachedBundles  int
	ManifestLoaded bool
}

// NewManager validates cfg and creates a Manager. A target whose origin
// cannot be resolved is logged and only fails the requests that need it.
func NewManager(cfg Config, opts ...Option) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.TickInterval == 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	m := &Manager{
		cfg:      cfg,
		platform: cfg.PlatformName(),
		routes:   make(map[string]Transporter),
		l:        logger.NewNopLogger(),
		budget:   cfg.Streams,
		fetching: make(map[string]struct{}),
		results:  make(chan attemptResult, cfg.Streams),
		wake:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.l == nil {
		m.l = logger.NewNopLogger()
	}
	m.freeSlots = m.budget
	m.cache = NewCache(m.l)

	m.origin, m.originErr = ResolveOrigin(cfg, m.platform)
	if m.originErr != nil {
		m.l.Error("cannot resolve bundle origin: %v", m.originErr)
	}

	if m.transport == nil && m.originErr == nil {
		t, err := m.defaultTransporter()
		if err != nil {
			return nil, err
		}
		m.transport = t
	}
	if m.resolver == nil {
		vr := NewVariantsResolver(cfg, m.l)
		vr.RegisterResolutionVariants()
		m.resolver = vr
	}

	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.metrics.observeSlots(m.freeSlots, 0, 0)
	return m, nil
}

func (m *Manager) defaultTransporter() (Transporter, error) {
	if m.origin.IsDisk() {
		return NewDiskTransporter(nil), nil
	}
	client, err := NewHTTPClient(m.cfg.ProxyURL)
	if err != nil {
		return nil, fmt.Errorf("%w: proxy: %v", ErrInvalidConfig, err)
	}
	router := NewSchemeRouter(client, m.cfg.UserAgent)
	router.Register("sftp", NewSFTPTransporter(m.cfg.KnownHostsPath, m.cfg.SSHKeyPath))
	for scheme, t := range m.routes {
		router.Register(scheme, t)
	}
	return router, nil
}

// Platform returns the platform name that selects the manifest bundle.
func (m *Manager) Platform() string {
	return m.platform
}

// Origin returns the resolved origin, or the configuration error that
// prevented resolving it.
func (m *Manager) Origin() (Origin, error) {
	return m.origin, m.originErr
}

// Cache returns the manager's bundle cache.
func (m *Manager) Cache() *Cache {
	return m.cache
}

// Manifest returns the loaded manifest, or nil before LoadManifest completes.
func (m *Manager) Manifest() *Manifest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.manifest
}

// LoadManifest loads the platform bundle and parses its manifest. While
// the load is in progress the same status is returned; once the manifest
// is installed ErrManifestAlreadyLoaded is returned. A failed load may be
// retried by calling LoadManifest again.
func (m *Manager) LoadManifest() (*LoadStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.usableLocked(); err != nil {
		return nil, err
	}
	if m.manifest != nil {
		return nil, ErrManifestAlreadyLoaded
	}
	if m.manifestStatus != nil {
		return m.manifestStatus, nil
	}
	op, err := NewLoadOperation([]string{m.platform}, hooks{m})
	if err != nil {
		return nil, err
	}
	m.manifestOp = op
	m.manifestStatus = newLoadStatus(op)
	m.admitLocked(op)
	m.l.Info("loading manifest bundle %s from %s", m.platform, m.origin.Location)
	return m.manifestStatus, nil
}

// ResolveNames returns the names LoadBundle would load for name: its
// transitive dependencies followed by name, variant-remapped and deduped.
func (m *Manager) ResolveNames(name string) ([]string, error) {
	m.mu.Lock()
	man := m.manifest
	m.mu.Unlock()
	if man == nil {
		return nil, ErrManifestNotLoaded
	}
	target := m.resolver.RemapNames([]string{name})[0]
	names := append(man.AllDependencies(target), target)
	return Dedupe(m.resolver.RemapNames(names)), nil
}

// LoadBundle loads name and its dependencies as one operation.
func (m *Manager) LoadBundle(name string) (*LoadStatus, error) {
	op, err := m.newOperation(name)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.usableLocked(); err != nil {
		return nil, err
	}
	m.admitLocked(op)
	return newLoadStatus(op), nil
}

// LoadBundles remaps and dedupes names and issues one operation per
// distinct bundle. Either every operation is admitted or none is.
func (m *Manager) LoadBundles(names ...string) (*MultiStatus, error) {
	if len(names) == 0 {
		return nil, ErrEmptyOperation
	}
	if m.Manifest() == nil {
		return nil, ErrManifestNotLoaded
	}
	targets := Dedupe(m.resolver.RemapNames(append([]string(nil), names...)))
	ops := make([]*LoadOperation, 0, len(targets))
	for _, t := range targets {
		op, err := m.newOperation(t)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.usableLocked(); err != nil {
		return nil, err
	}
	ms := &MultiStatus{statuses: make([]*LoadStatus, 0, len(ops))}
	for _, op := range ops {
		m.admitLocked(op)
		ms.statuses = append(ms.statuses, newLoadStatus(op))
	}
	return ms, nil
}

func (m *Manager) newOperation(name string) (*LoadOperation, error) {
	names, err := m.ResolveNames(name)
	if err != nil {
		return nil, err
	}
	return NewLoadOperation(names, hooks{m})
}

func (m *Manager) usableLocked() error {
	if m.closed {
		return ErrManagerClosed
	}
	return m.originErr
}

// admitLocked registers op and makes sure the loop is running.
func (m *Manager) admitLocked(op *LoadOperation) {
	m.nextID++
	op.id = m.nextID
	m.active = append(m.active, op)
	m.l.Debug("load operation %d admitted: %v", op.ID(), op.Names())
	m.metrics.observeSlots(m.freeSlots, m.budget-m.freeSlots, len(m.active))
	if !m.running {
		m.running = true
		m.wg.Add(1)
		go m.run()
		return
	}
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// run is the scheduling goroutine. It exits when no operation is active
// and no transfer is outstanding; the next admission starts it again.
func (m *Manager) run() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.TickInterval)
	defer ticker.Stop()

	m.Tick()
	for {
		if m.stopIfIdle() {
			return
		}
		select {
		case r := <-m.results:
			m.handleResult(r)
			m.Tick()
		case <-m.wake:
			m.Tick()
		case <-ticker.C:
			m.Tick()
		}
	}
}

func (m *Manager) stopIfIdle() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	inFlight := m.budget - m.freeSlots
	if inFlight > 0 {
		return false
	}
	if len(m.active) > 0 && !m.closed {
		return false
	}
	m.running = false
	return true
}

// Tick starts transfers for eligible bundles while slots are free. Active
// operations are visited round-robin in registration order, at most one
// transfer per operation per pass, bundles in list order. Bundles already
// in the cache complete without a slot; bundles being fetched for another
// operation wait. It returns the number of transfers started.
func (m *Manager) Tick() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.freeSlots == 0 || len(m.active) == 0 {
		return 0
	}

	ops := slices.Clone(m.active)
	started := 0
	for m.freeSlots > 0 {
		progressed := false
		for _, op := range ops {
			if m.freeSlots == 0 {
				break
			}
			launched, hit := m.startNextLocked(op)
			if launched {
				started++
			}
			if launched || hit {
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}
	m.metrics.observeSlots(m.freeSlots, m.budget-m.freeSlots, len(m.active))
	return started
}

func (m *Manager) isFetchingLocked(name string) bool {
	_, ok := m.fetching[name]
	return ok
}

// startNextLocked launches the next eligible bundle of op. Cached bundles
// met on the way are reported as loaded and reported through hit.
func (m *Manager) startNextLocked(op *LoadOperation) (launched, hit bool) {
	for {
		idx := op.nextEligible(m.isFetchingLocked)
		if idx == NoEligibleIndex {
			return false, hit
		}
		name := op.Name(idx)
		if b, ok := m.cache.Get(name); ok {
			hit = true
			if err := op.ReportSuccess(idx, b); err != nil {
				m.l.Error("load operation %d: %v", op.ID(), err)
			}
			continue
		}
		m.freeSlots--
		m.fetching[name] = struct{}{}
		m.launchLocked(op, idx, name)
		return true, hit
	}
}

func (m *Manager) launchLocked(op *LoadOperation, idx int, name string) {
	origin := m.origin.Location
	isManifest := op == m.manifestOp
	start := time.Now()
	var once sync.Once
	finish := func(r attemptResult) {
		once.Do(func() {
			r.took = time.Since(start)
			m.results <- r
			m.wg.Done()
		})
	}

	m.wg.Add(1)
	safeGo(m.l, "load "+name, func(p interface{}) {
		finish(attemptResult{op: op, index: idx, name: name, err: panicError(p)})
	}, func() {
		finish(m.attempt(op, idx, name, origin, isManifest))
	})
}

// attempt performs one transfer. For the manifest bundle the manifest is
// parsed as part of the attempt, so a broken manifest is a failed attempt.
func (m *Manager) attempt(op *LoadOperation, idx int, name, origin string, isManifest bool) attemptResult {
	ctx := m.ctx
	if m.cfg.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.AttemptTimeout)
		defer cancel()
	}
	res := attemptResult{op: op, index: idx, name: name}
	b, err := m.load(ctx, op, idx, name, origin)
	if err == nil && b == nil {
		err = fmt.Errorf("%w: %s: transporter returned no bundle", ErrInvalidBundle, name)
	}
	if err != nil {
		res.err = err
		return res
	}
	if isManifest {
		man, err := ManifestFromBundle(b)
		if err != nil {
			res.err = err
			return res
		}
		res.manifest = man
	}
	res.bundle = b
	return res
}

type loadResult struct {
	bundle *Bundle
	err    error
}

// load runs the transfer on its own goroutine so that a transporter
// blocked in I/O cannot hold the slot past ctx. An abandoned transfer
// keeps running until it returns; its result and progress are dropped.
func (m *Manager) load(ctx context.Context, op *LoadOperation, idx int, name, origin string) (*Bundle, error) {
	done := make(chan loadResult, 1)
	var abandoned atomic.Bool
	safeGo(m.l, "transfer "+name, func(p interface{}) {
		done <- loadResult{err: panicError(p)}
	}, func() {
		b, err := m.transport.Load(ctx, name, origin, func(f float64) {
			if !abandoned.Load() {
				op.ReportProgress(idx, f)
			}
		})
		done <- loadResult{bundle: b, err: err}
	})

	select {
	case r := <-done:
		return r.bundle, r.err
	case <-ctx.Done():
		abandoned.Store(true)
		return nil, fmt.Errorf("%s: transfer abandoned: %w", name, ctx.Err())
	}
}

// handleResult reclaims the attempt's slot and forwards its outcome.
func (m *Manager) handleResult(r attemptResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.freeSlots++
	delete(m.fetching, r.name)
	m.metrics.observeAttempt(r.err == nil, r.took)

	var err error
	if r.err != nil {
		m.l.Warning("bundle %s attempt %d failed: %v", r.name, r.op.Attempts(r.index)+1, r.err)
		err = r.op.ReportFailure(r.index, r.err)
	} else {
		if r.manifest != nil {
			m.manifest = r.manifest
		}
		err = r.op.ReportSuccess(r.index, r.bundle)
	}
	if err != nil {
		m.l.Error("load operation %d: %v", r.op.ID(), err)
	}
	m.metrics.observeSlots(m.freeSlots, m.budget-m.freeSlots, len(m.active))
}

// hooks receives load operation events. Operations only report while
// the manager holds m.mu, so its methods must not lock it.
type hooks struct {
	m *Manager
}

func (h hooks) OnBundleLoaded(op *LoadOperation, name string, b *Bundle) {
	m := h.m
	if cached, ok := m.cache.Get(name); ok && cached == b {
		return
	}
	m.cache.Add(name, b)
	m.metrics.observeCache(m.cache.Len())
	m.l.Debug("bundle %s loaded (%d bytes)", name, b.Size())
}

func (h hooks) OnLoadOpDone(op *LoadOperation) {
	m := h.m
	m.active = slices.DeleteFunc(m.active, func(a *LoadOperation) bool {
		return a == op
	})
	failed := op.Failed()
	m.metrics.observeOperation(!failed)
	m.metrics.observeSlots(m.freeSlots, m.budget-m.freeSlots, len(m.active))

	if op == m.manifestOp {
		if failed || m.manifest == nil {
			m.l.Error("manifest load failed:\n%s", op.ErrorText())
			m.manifestOp = nil
			m.manifestStatus = nil
			return
		}
		m.resolver.RegisterKnownVariants(m.manifest.AllNamesWithVariant())
		m.l.Info("manifest loaded: %d bundles", len(m.manifest.Bundles))
		return
	}
	if failed {
		m.l.Error("load operation %d failed:\n%s", op.ID(), op.ErrorText())
		return
	}
	m.l.Debug("load operation %d complete", op.ID())
}

// Bundle returns a loaded bundle after variant-remapping name.
func (m *Manager) Bundle(name string) (*Bundle, bool) {
	return m.cache.Get(m.resolver.RemapNames([]string{name})[0])
}

// GetAsset returns an asset of a loaded bundle. The bundle name is
// variant-remapped first. Missing bundles and assets report false.
func (m *Manager) GetAsset(bundle, asset string) ([]byte, bool) {
	b, ok := m.Bundle(bundle)
	if !ok {
		return nil, false
	}
	return b.Asset(asset)
}

// DecodeAsset decodes a YAML or JSON asset of a loaded bundle into T.
func DecodeAsset[T any](m *Manager, bundle, asset string) (T, bool) {
	var v T
	data, ok := m.GetAsset(bundle, asset)
	if !ok {
		return v, false
	}
	if err := yaml.Unmarshal(data, &v); err != nil {
		m.l.Warning("decode asset %s of bundle %s: %v", asset, bundle, err)
		return v, false
	}
	return v, true
}

// Stats returns a snapshot of the scheduler state.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		Budget:         m.budget,
		FreeSlots:      m.freeSlots,
		InFlight:       m.budget - m.freeSlots,
		ActiveOps:      len(m.active),
		CachedBundles:  m.cache.Len(),
		ManifestLoaded: m.manifest != nil,
	}
}

// Close cancels in-flight transfers, waits for their results and fails
// every operation that has not completed with ErrManagerClosed.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	m.cancel()
	select {
	case m.wake <- struct{}{}:
	default:
	}
	m.wg.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, op := range slices.Clone(m.active) {
		op.abort(ErrManagerClosed)
	}
	m.active = nil
	m.metrics.observeSlots(m.freeSlots, m.budget-m.freeSlots, 0)
	return nil
}
