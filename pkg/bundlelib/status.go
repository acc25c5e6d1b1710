package bundlelib

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"
)

// LoadStatus is the caller-facing progress handle of one load operation.
type LoadStatus struct {
	op *LoadOperation
}

func newLoadStatus(op *LoadOperation) *LoadStatus {
	return &LoadStatus{op: op}
}

// Names returns the resolved bundle names the operation loads.
func (s *LoadStatus) Names() []string {
	return s.op.Names()
}

// IsDone reports whether the operation finished, successfully or not.
func (s *LoadStatus) IsDone() bool {
	select {
	case <-s.op.Done():
		return true
	default:
		return false
	}
}

// Done is closed once the operation finished.
func (s *LoadStatus) Done() <-chan struct{} {
	return s.op.Done()
}

// Progress returns a value in [0,1]. A successful operation reports 1.
func (s *LoadStatus) Progress() float64 {
	if s.IsDone() && !s.op.Failed() {
		return 1
	}
	return s.op.Progress()
}

// Failed reports whether the operation finished with retry-exhausted bundles.
func (s *LoadStatus) Failed() bool {
	return s.IsDone() && s.op.Failed()
}

// ErrorText is the aggregated error text of the operation, empty on success.
func (s *LoadStatus) ErrorText() string {
	return s.op.ErrorText()
}

// Err returns the aggregated operation error once the operation failed.
func (s *LoadStatus) Err() error {
	if !s.IsDone() {
		return nil
	}
	return s.op.Err()
}

// Wait blocks until the operation finished or ctx is done.
func (s *LoadStatus) Wait(ctx context.Context) error {
	select {
	case <-s.op.Done():
		return s.op.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// MultiStatus aggregates the statuses of several load operations issued
// together by Manager.LoadBundles.
type MultiStatus struct {
	statuses []*LoadStatus
}

// Statuses returns the underlying per-bundle statuses.
func (m *MultiStatus) Statuses() []*LoadStatus {
	return append([]*LoadStatus(nil), m.statuses...)
}

// IsDone reports whether every operation finished.
func (m *MultiStatus) IsDone() bool {
	for _, s := range m.statuses {
		if !s.IsDone() {
			return false
		}
	}
	return true
}

// Progress is the mean progress of the operations.
func (m *MultiStatus) Progress() float64 {
	if len(m.statuses) == 0 {
		return 1
	}
	var sum float64
	for _, s := range m.statuses {
		sum += s.Progress()
	}
	return sum / float64(len(m.statuses))
}

// Failed reports whether every operation finished and any of them failed.
func (m *MultiStatus) Failed() bool {
	if !m.IsDone() {
		return false
	}
	for _, s := range m.statuses {
		if s.Failed() {
			return true
		}
	}
	return false
}

// ErrorText joins the error texts of the failed operations.
func (m *MultiStatus) ErrorText() string {
	var parts []string
	for _, s := range m.statuses {
		if t := s.ErrorText(); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}

// Wait blocks until every operation finished or ctx is done. It returns
// the first operation error encountered.
func (m *MultiStatus) Wait(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, s := range m.statuses {
		s := s
		g.Go(func() error {
			return s.Wait(gctx)
		})
	}
	return g.Wait()
}
