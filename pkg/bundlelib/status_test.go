package bundlelib

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLoadStatus_Lifecycle(t *testing.T) {
	op, _ := NewLoadOperation([]string{"a", "b"}, nil)
	st := newLoadStatus(op)
	if st.IsDone() || st.Failed() || st.Progress() != 0 {
		t.Fatal("fresh status must be pending with zero progress")
	}

	ia := op.NextEligibleIndex()
	op.ReportProgress(ia, 0.5)
	if p := st.Progress(); p != 0.25 {
		t.Fatalf("expected progress 0.25, got %f", p)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := st.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded while pending, got %v", err)
	}

	op.ReportSuccess(ia, &Bundle{name: "a"})
	op.ReportSuccess(op.NextEligibleIndex(), &Bundle{name: "b"})
	if !st.IsDone() || st.Failed() || st.Progress() != 1 {
		t.Fatalf("expected successful done status, got done=%v failed=%v progress=%f", st.IsDone(), st.Failed(), st.Progress())
	}
	if err := st.Wait(context.Background()); err != nil {
		t.Fatalf("expected nil Wait error, got %v", err)
	}
}

func TestLoadStatus_Failure(t *testing.T) {
	op, _ := NewLoadOperation([]string{"a"}, nil)
	st := newLoadStatus(op)
	boom := errors.New("boom")
	for i := 0; i < MaxAttempts; i++ {
		op.ReportFailure(op.NextEligibleIndex(), boom)
	}
	if !st.Failed() {
		t.Fatal("expected failed status")
	}
	if !errors.Is(st.Err(), boom) {
		t.Fatalf("expected Err to wrap boom, got %v", st.Err())
	}
	if st.ErrorText() == "" {
		t.Fatal("expected error text")
	}
}

func TestMultiStatus(t *testing.T) {
	opA, _ := NewLoadOperation([]string{"a"}, nil)
	opB, _ := NewLoadOperation([]string{"b"}, nil)
	ms := &MultiStatus{statuses: []*LoadStatus{newLoadStatus(opA), newLoadStatus(opB)}}

	opA.ReportSuccess(opA.NextEligibleIndex(), &Bundle{name: "a"})
	if ms.IsDone() {
		t.Fatal("expected pending multi status")
	}
	if p := ms.Progress(); p != 0.5 {
		t.Fatalf("expected progress 0.5, got %f", p)
	}
	if ms.Failed() {
		t.Fatal("pending multi status must not report failure")
	}
	for i := 0; i < MaxAttempts; i++ {
		opB.ReportFailure(opB.NextEligibleIndex(), errors.New("gone"))
	}
	if !ms.IsDone() || !ms.Failed() {
		t.Fatal("expected failed multi status")
	}
	if ms.ErrorText() == "" {
		t.Fatal("expected joined error text")
	}
	if err := ms.Wait(context.Background()); err == nil {
		t.Fatal("expected Wait to return the failure")
	}
}
