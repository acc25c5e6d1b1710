package bundlelib

import (
	"fmt"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// MaxAttempts is the number of attempts a bundle gets before it is
// treated as terminally failed for its operation.
const MaxAttempts = 3

// NoEligibleIndex is returned by NextEligibleIndex when no bundle can start.
const NoEligibleIndex = -1

// LoadOpHandler receives per-bundle and per-operation outcomes. The
// Manager implements it; an operation only holds it as a back-reference.
type LoadOpHandler interface {
	// OnBundleLoaded is called once for every bundle that loads successfully.
	OnBundleLoaded(op *LoadOperation, name string, b *Bundle)
	// OnLoadOpDone is called exactly once, when every bundle of op is
	// loaded or retry-exhausted.
	OnLoadOpDone(op *LoadOperation)
}

// LoadOperation tracks one logical load request: a fixed, ordered list of
// distinct bundle names, each with an attempt counter and an in-flight flag.
type LoadOperation struct {
	id      uint64
	handler LoadOpHandler
	doneCh  chan struct{}

	mu       sync.Mutex
	names    []string
	attempts []int
	inFlight []bool
	loaded   []bool
	fraction []float64
	history  [][]error
	nLoaded  int
	nFailed  int
	errs     *multierror.Error
	done     bool
}

// NewLoadOperation creates an operation over a copy of names.
// h may be nil when nothing needs to observe the outcome.
func NewLoadOperation(names []string, h LoadOpHandler) (*LoadOperation, error) {
	if len(names) == 0 {
		return nil, ErrEmptyOperation
	}
	n := len(names)
	return &LoadOperation{
		handler:  h,
		doneCh:   make(chan struct{}),
		names:    append([]string(nil), names...),
		attempts: make([]int, n),
		inFlight: make([]bool, n),
		loaded:   make([]bool, n),
		fraction: make([]float64, n),
		history:  make([][]error, n),
		errs:     &multierror.Error{ErrorFormat: lineErrorFormat},
	}, nil
}

func lineErrorFormat(es []error) string {
	lines := make([]string, len(es))
	for i, err := range es {
		lines[i] = err.Error()
	}
	return strings.Join(lines, "\n")
}

// ID returns the identifier the Manager assigned at admission.
func (op *LoadOperation) ID() uint64 {
	return op.id
}

// Len returns the number of bundles in the operation.
func (op *LoadOperation) Len() int {
	return len(op.names)
}

// Name returns the bundle name at index.
func (op *LoadOperation) Name(index int) string {
	return op.names[index]
}

// Names returns a copy of the operation's bundle names.
func (op *LoadOperation) Names() []string {
	return append([]string(nil), op.names...)
}

// eligibleLocked is the scheduling predicate: not loaded, not in flight,
// attempts below MaxAttempts.
func (op *LoadOperation) eligibleLocked(i int) bool {
	return !op.loaded[i] && !op.inFlight[i] && op.attempts[i] < MaxAttempts
}

// CanStart reports whether at least one bundle is eligible, without
// changing any state.
func (op *LoadOperation) CanStart() bool {
	return op.canStart(nil)
}

func (op *LoadOperation) canStart(skip func(string) bool) bool {
	op.mu.Lock()
	defer op.mu.Unlock()
	for i := range op.names {
		if op.eligibleLocked(i) && (skip == nil || !skip(op.names[i])) {
			return true
		}
	}
	return false
}

// NextEligibleIndex returns the first eligible bundle in list order and
// marks it in flight, or NoEligibleIndex.
func (op *LoadOperation) NextEligibleIndex() int {
	return op.nextEligible(nil)
}

func (op *LoadOperation) nextEligible(skip func(string) bool) int {
	op.mu.Lock()
	defer op.mu.Unlock()
	for i := range op.names {
		if !op.eligibleLocked(i) || (skip != nil && skip(op.names[i])) {
			continue
		}
		op.inFlight[i] = true
		return i
	}
	return NoEligibleIndex
}

func (op *LoadOperation) checkInFlightLocked(index int) error {
	if index < 0 || index >= len(op.names) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	if !op.inFlight[index] {
		return fmt.Errorf("%w: %s", ErrNotInFlight, op.names[index])
	}
	return nil
}

// ReportProgress records the transfer progress of an in-flight bundle.
// Fractions are clamped to [0,1] and never move backwards within an attempt.
func (op *LoadOperation) ReportProgress(index int, fraction float64) {
	op.mu.Lock()
	defer op.mu.Unlock()
	if op.checkInFlightLocked(index) != nil {
		return
	}
	if fraction > 1 {
		fraction = 1
	}
	if fraction > op.fraction[index] {
		op.fraction[index] = fraction
	}
}

// Progress returns (loaded + in-flight fractions) / total.
func (op *LoadOperation) Progress() float64 {
	op.mu.Lock()
	defer op.mu.Unlock()
	sum := float64(op.nLoaded)
	for i, f := range op.fraction {
		if op.inFlight[i] {
			sum += f
		}
	}
	return sum / float64(len(op.names))
}

// ReportFailure records a failed attempt for the bundle at index. The
// bundle becomes eligible again until it reaches MaxAttempts; then all of
// its attempt errors are added to the operation's error text.
func (op *LoadOperation) ReportFailure(index int, err error) error {
	if err == nil {
		err = fmt.Errorf("unknown failure")
	}
	op.mu.Lock()
	if e := op.checkInFlightLocked(index); e != nil {
		op.mu.Unlock()
		return e
	}
	op.inFlight[index] = false
	op.fraction[index] = 0
	op.attempts[index]++
	name := op.names[index]
	op.history[index] = append(op.history[index], fmt.Errorf("%s (attempt %d): %w", name, op.attempts[index], err))
	if op.attempts[index] >= MaxAttempts {
		op.nFailed++
		op.errs = multierror.Append(op.errs, op.history[index]...)
	}
	complete := op.completeLocked()
	op.mu.Unlock()

	if complete {
		op.finish()
	}
	return nil
}

// ReportSuccess records that the bundle at index loaded as b.
func (op *LoadOperation) ReportSuccess(index int, b *Bundle) error {
	op.mu.Lock()
	if e := op.checkInFlightLocked(index); e != nil {
		op.mu.Unlock()
		return e
	}
	op.inFlight[index] = false
	op.fraction[index] = 0
	op.loaded[index] = true
	op.nLoaded++
	name := op.names[index]
	complete := op.completeLocked()
	op.mu.Unlock()

	if op.handler != nil {
		op.handler.OnBundleLoaded(op, name, b)
	}
	if complete {
		op.finish()
	}
	return nil
}

// abort exhausts every unresolved bundle that is not in flight, recording
// err as its final failure.
func (op *LoadOperation) abort(err error) {
	op.mu.Lock()
	for i, name := range op.names {
		if op.loaded[i] || op.inFlight[i] || op.attempts[i] >= MaxAttempts {
			continue
		}
		op.attempts[i] = MaxAttempts
		op.history[i] = append(op.history[i], fmt.Errorf("%s: %w", name, err))
		op.nFailed++
		op.errs = multierror.Append(op.errs, op.history[i]...)
	}
	complete := op.completeLocked()
	op.mu.Unlock()

	if complete {
		op.finish()
	}
}

// completeLocked flips done the first time every bundle is resolved.
func (op *LoadOperation) completeLocked() bool {
	if op.done || op.nLoaded+op.nFailed < len(op.names) {
		return false
	}
	op.done = true
	return true
}

// finish notifies the handler and only then releases waiters, so a caller
// woken by Done observes the handler's side effects.
func (op *LoadOperation) finish() {
	if op.handler != nil {
		op.handler.OnLoadOpDone(op)
	}
	close(op.doneCh)
}

// Done is closed after the completion handler has run.
func (op *LoadOperation) Done() <-chan struct{} {
	return op.doneCh
}

// IsComplete reports whether every bundle is loaded or retry-exhausted.
func (op *LoadOperation) IsComplete() bool {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.done
}

// Failed reports whether the operation completed with at least one
// retry-exhausted bundle.
func (op *LoadOperation) Failed() bool {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.done && op.nFailed > 0
}

// Err returns the aggregated error of the retry-exhausted bundles, or nil.
func (op *LoadOperation) Err() error {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.errs.ErrorOrNil()
}

// ErrorText renders the aggregated errors one per line.
func (op *LoadOperation) ErrorText() string {
	if err := op.Err(); err != nil {
		return err.Error()
	}
	return ""
}

// Attempts returns the failed attempt count of the bundle at index.
func (op *LoadOperation) Attempts(index int) int {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.attempts[index]
}

// IsInFlight reports whether the bundle at index is being transferred.
func (op *LoadOperation) IsInFlight(index int) bool {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.inFlight[index]
}

// IsLoaded reports whether the bundle at index loaded.
func (op *LoadOperation) IsLoaded(index int) bool {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.loaded[index]
}

// IsExhausted reports whether the bundle at index used all of its attempts.
func (op *LoadOperation) IsExhausted(index int) bool {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.attempts[index] >= MaxAttempts
}

// Counts returns the number of loaded and retry-exhausted bundles.
func (op *LoadOperation) Counts() (loaded, failed int) {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.nLoaded, op.nFailed
}

// InFlightCount returns how many bundles are currently being transferred.
func (op *LoadOperation) InFlightCount() int {
	op.mu.Lock()
	defer op.mu.Unlock()
	n := 0
	for _, f := range op.inFlight {
		if f {
			n++
		}
	}
	return n
}
