package bundlelib

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNewLoadOperation_Empty(t *testing.T) {
	if _, err := NewLoadOperation(nil, nil); !errors.Is(err, ErrEmptyOperation) {
		t.Fatalf("expected ErrEmptyOperation, got %v", err)
	}
}

func TestNewLoadOperation_CopiesNames(t *testing.T) {
	names := []string{"a", "b"}
	op, err := NewLoadOperation(names, nil)
	if err != nil {
		t.Fatalf("NewLoadOperation: %v", err)
	}
	names[0] = "changed"
	if op.Name(0) != "a" {
		t.Fatalf("expected name a, got %s", op.Name(0))
	}
}

func TestLoadOperation_NextEligibleIndexOrder(t *testing.T) {
	op, _ := NewLoadOperation([]string{"a", "b", "c"}, nil)
	for want := 0; want < 3; want++ {
		if got := op.NextEligibleIndex(); got != want {
			t.Fatalf("expected index %d, got %d", want, got)
		}
		if !op.IsInFlight(want) {
			t.Fatalf("expected index %d in flight", want)
		}
	}
	if got := op.NextEligibleIndex(); got != NoEligibleIndex {
		t.Fatalf("expected NoEligibleIndex with everything in flight, got %d", got)
	}
	if op.CanStart() {
		t.Fatal("expected CanStart false with everything in flight")
	}
}

func TestLoadOperation_CanStartDoesNotMutate(t *testing.T) {
	op, _ := NewLoadOperation([]string{"a"}, nil)
	for i := 0; i < 3; i++ {
		if !op.CanStart() {
			t.Fatal("expected CanStart true")
		}
	}
	if op.IsInFlight(0) {
		t.Fatal("CanStart must not mark bundles in flight")
	}
}

func TestLoadOperation_AttemptsNeverExceedMax(t *testing.T) {
	h := &recordingHandler{}
	op, _ := NewLoadOperation([]string{"d"}, h)

	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		idx := op.NextEligibleIndex()
		if idx != 0 {
			t.Fatalf("attempt %d: expected index 0, got %d", attempt, idx)
		}
		if err := op.ReportFailure(idx, fmt.Errorf("failure %d", attempt)); err != nil {
			t.Fatalf("ReportFailure: %v", err)
		}
		if got := op.Attempts(0); got != attempt {
			t.Fatalf("expected %d attempts, got %d", attempt, got)
		}
	}

	if got := op.NextEligibleIndex(); got != NoEligibleIndex {
		t.Fatalf("expected exhausted bundle to be ineligible, got index %d", got)
	}
	if !op.IsExhausted(0) {
		t.Fatal("expected bundle to be exhausted")
	}
	if err := op.ReportFailure(0, errors.New("late")); !errors.Is(err, ErrNotInFlight) {
		t.Fatalf("expected ErrNotInFlight, got %v", err)
	}
	if got := op.Attempts(0); got != MaxAttempts {
		t.Fatalf("expected attempts to stay at %d, got %d", MaxAttempts, got)
	}
}

func TestLoadOperation_FailureTextHasEveryAttempt(t *testing.T) {
	h := &recordingHandler{}
	op, _ := NewLoadOperation([]string{"d"}, h)
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		op.ReportFailure(op.NextEligibleIndex(), fmt.Errorf("timeout #%d", attempt))
	}

	if !op.IsComplete() || !op.Failed() {
		t.Fatalf("expected complete failed operation, complete=%v failed=%v", op.IsComplete(), op.Failed())
	}
	text := op.ErrorText()
	lines := strings.Split(text, "\n")
	if len(lines) != MaxAttempts {
		t.Fatalf("expected %d error lines, got %d: %q", MaxAttempts, len(lines), text)
	}
	for i, line := range lines {
		want := fmt.Sprintf("timeout #%d", i+1)
		if !strings.Contains(line, want) || !strings.HasPrefix(line, "d ") {
			t.Errorf("line %d = %q, want it to name d and contain %q", i, line, want)
		}
	}
	if h.doneCount() != 1 {
		t.Fatalf("expected one completion, got %d", h.doneCount())
	}
}

func TestLoadOperation_NoErrorTextBeforeExhaustion(t *testing.T) {
	op, _ := NewLoadOperation([]string{"d"}, nil)
	op.ReportFailure(op.NextEligibleIndex(), errors.New("transient"))
	if op.ErrorText() != "" {
		t.Fatalf("expected empty error text, got %q", op.ErrorText())
	}
	if op.Err() != nil {
		t.Fatalf("expected nil Err, got %v", op.Err())
	}
	if !op.CanStart() {
		t.Fatal("expected failed bundle to be eligible again")
	}
}

func TestLoadOperation_SuccessCompletesOnce(t *testing.T) {
	h := &recordingHandler{}
	op, _ := NewLoadOperation([]string{"a", "b"}, h)
	b := &Bundle{name: "x"}

	ia := op.NextEligibleIndex()
	ib := op.NextEligibleIndex()
	op.ReportSuccess(ia, b)
	if h.doneCount() != 0 {
		t.Fatal("completion fired before every bundle resolved")
	}
	select {
	case <-op.Done():
		t.Fatal("Done closed before completion")
	default:
	}
	op.ReportSuccess(ib, b)
	if h.doneCount() != 1 {
		t.Fatalf("expected one completion, got %d", h.doneCount())
	}
	if err := op.ReportSuccess(ib, b); !errors.Is(err, ErrNotInFlight) {
		t.Fatalf("expected ErrNotInFlight for repeated report, got %v", err)
	}
	if h.doneCount() != 1 {
		t.Fatalf("completion fired again: %d", h.doneCount())
	}
	if op.Failed() {
		t.Fatal("expected success")
	}
	if len(h.loaded) != 2 {
		t.Fatalf("expected 2 loaded callbacks, got %d", len(h.loaded))
	}
	<-op.Done()
}

func TestLoadOperation_MixedOutcomeFails(t *testing.T) {
	h := &recordingHandler{}
	op, _ := NewLoadOperation([]string{"ok", "bad"}, h)
	op.ReportSuccess(op.NextEligibleIndex(), &Bundle{name: "ok"})
	for i := 0; i < MaxAttempts; i++ {
		idx := op.NextEligibleIndex()
		if idx != 1 {
			t.Fatalf("expected bad at index 1, got %d", idx)
		}
		op.ReportFailure(idx, errors.New("nope"))
	}
	if !op.Failed() {
		t.Fatal("expected failed operation")
	}
	loaded, failed := op.Counts()
	if loaded != 1 || failed != 1 {
		t.Fatalf("expected 1 loaded and 1 failed, got %d and %d", loaded, failed)
	}
	if !op.IsLoaded(0) {
		t.Fatal("loaded bundle must not be rolled back")
	}
}

func TestLoadOperation_ReportOutOfRange(t *testing.T) {
	op, _ := NewLoadOperation([]string{"a"}, nil)
	if err := op.ReportSuccess(5, nil); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
	if err := op.ReportFailure(-1, nil); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestLoadOperation_ProgressNonDecreasing(t *testing.T) {
	op, _ := NewLoadOperation([]string{"a", "b", "c", "d"}, nil)
	ia := op.NextEligibleIndex()
	ib := op.NextEligibleIndex()

	last := op.Progress()
	reports := []struct {
		index    int
		fraction float64
	}{
		{ia, 0.1}, {ib, 0.2}, {ia, 0.05}, {ia, 0.6}, {ib, 1.7}, {ia, 0.9},
	}
	for _, r := range reports {
		op.ReportProgress(r.index, r.fraction)
		p := op.Progress()
		if p < last {
			t.Fatalf("progress went backwards: %f -> %f", last, p)
		}
		if p < 0 || p > 1 {
			t.Fatalf("progress out of range: %f", p)
		}
		last = p
	}
	op.ReportSuccess(ia, &Bundle{name: "a"})
	if p := op.Progress(); p < last {
		t.Fatalf("progress went backwards on success: %f -> %f", last, p)
	}
	if got, want := op.Progress(), (1+1.0)/4; got != want {
		t.Fatalf("expected progress %f, got %f", want, got)
	}
}

func TestLoadOperation_ProgressIgnoredWhenNotInFlight(t *testing.T) {
	op, _ := NewLoadOperation([]string{"a"}, nil)
	op.ReportProgress(0, 0.8)
	if p := op.Progress(); p != 0 {
		t.Fatalf("expected 0 progress, got %f", p)
	}
}

func TestLoadOperation_Abort(t *testing.T) {
	h := &recordingHandler{}
	op, _ := NewLoadOperation([]string{"a", "b"}, h)
	op.ReportSuccess(op.NextEligibleIndex(), &Bundle{name: "a"})
	op.abort(ErrManagerClosed)
	if !op.Failed() {
		t.Fatal("expected aborted operation to fail")
	}
	if !errors.Is(op.Err(), ErrManagerClosed) {
		t.Fatalf("expected ErrManagerClosed in %v", op.Err())
	}
	if h.doneCount() != 1 {
		t.Fatalf("expected one completion, got %d", h.doneCount())
	}
}
