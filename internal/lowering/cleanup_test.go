package lowering

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// Exact-once destruction in reverse acquisition order: cleanups pushed
// for X, Y, Z unwind as Z, Y, X.
func TestCleanupStack_UnwindReverseOrder(t *testing.T) {
	e := newTestEmitter()

	x := produceOwned(e, refType)
	y := produceOwned(e, refType)
	z := produceOwned(e, refType)

	if d := e.Cleanups.Depth(); d != 3 {
		t.Fatalf("expected depth 3, got %d", d)
	}

	e.Unwind(0)

	want := []string{
		fmt.Sprintf("release %s", z.Value()),
		fmt.Sprintf("release %s", y.Value()),
		fmt.Sprintf("release %s", x.Value()),
	}
	if diff := cmp.Diff(want, instrStrings(e.B.Function())); diff != "" {
		t.Errorf("unwind order mismatch (-want +got):\n%s", diff)
	}
	if d := e.Cleanups.Depth(); d != 0 {
		t.Errorf("records not popped, depth %d", d)
	}
}

func TestCleanupStack_UnwindToSavedDepth(t *testing.T) {
	e := newTestEmitter()

	outer := produceOwned(e, refType)
	depth := e.Cleanups.Depth()
	inner := produceOwned(e, refType)

	e.Unwind(depth)

	want := []string{fmt.Sprintf("release %s", inner.Value())}
	if diff := cmp.Diff(want, instrStrings(e.B.Function())); diff != "" {
		t.Errorf("partial unwind mismatch (-want +got):\n%s", diff)
	}
	if st, ok := e.Cleanups.State(outer.Cleanup()); !ok || st != CleanupActive {
		t.Errorf("outer cleanup disturbed: state %v ok %v", st, ok)
	}
}

// Forwarded cleanups are never emitted.
func TestCleanupStack_ForwardSuppressesEmission(t *testing.T) {
	e := newTestEmitter()

	v := produceOwned(e, refType)
	e.Cleanups.Forward(v.Cleanup())
	e.Unwind(0)

	if got := instrStrings(e.B.Function()); len(got) != 0 {
		t.Errorf("forwarded cleanup still emitted: %v", got)
	}
}

func TestCleanupStack_ForwardTwicePanics(t *testing.T) {
	e := newTestEmitter()

	v := produceOwned(e, refType)
	e.Cleanups.Forward(v.Cleanup())
	expectPanic(t, func() { e.Cleanups.Forward(v.Cleanup()) })
}

// Unwinding after the block is terminated emits nothing and raises no
// defect: the destructions would be unreachable code.
func TestCleanupStack_UnwindUnreachable(t *testing.T) {
	e := newTestEmitter()

	produceOwned(e, refType)
	produceOwned(e, refType)
	e.B.CreateReturn(nil)

	e.Unwind(0)

	want := []string{"ret"}
	if diff := cmp.Diff(want, instrStrings(e.B.Function())); diff != "" {
		t.Errorf("unreachable unwind mismatch (-want +got):\n%s", diff)
	}
	if d := e.Cleanups.Depth(); d != 0 {
		t.Errorf("records not popped on unreachable unwind, depth %d", d)
	}
}

// A record left dormant at scope exit missed its reactivation; that is
// a leak the stack refuses to paper over.
func TestCleanupStack_DormantAtExitPanics(t *testing.T) {
	e := newTestEmitter()

	v := produceOwned(e, refType)
	e.Cleanups.SetState(v.Cleanup(), CleanupDormant)
	expectPanic(t, func() { e.Unwind(0) })
}

func TestCleanupStack_ReactivatedDormantEmits(t *testing.T) {
	e := newTestEmitter()

	v := produceOwned(e, refType)
	e.Cleanups.SetState(v.Cleanup(), CleanupDormant)
	e.Cleanups.SetState(v.Cleanup(), CleanupActive)
	e.Unwind(0)

	want := []string{fmt.Sprintf("release %s", v.Value())}
	if diff := cmp.Diff(want, instrStrings(e.B.Function())); diff != "" {
		t.Errorf("reactivated cleanup mismatch (-want +got):\n%s", diff)
	}
}

// Handles are generational: a popped record's slot may be reused, but
// the old handle must not resolve to the new occupant.
func TestCleanupStack_StaleHandleDetected(t *testing.T) {
	e := newTestEmitter()

	old := produceOwned(e, refType)
	e.Unwind(0)

	fresh := produceOwned(e, refType)
	if _, ok := e.Cleanups.State(old.Cleanup()); ok {
		t.Error("stale handle resolved to a reused slot")
	}
	if st, ok := e.Cleanups.State(fresh.Cleanup()); !ok || st != CleanupActive {
		t.Errorf("fresh handle broken: state %v ok %v", st, ok)
	}
	expectPanic(t, func() { e.Cleanups.Forward(old.Cleanup()) })
	expectPanic(t, func() { e.Cleanups.SetState(old.Cleanup(), CleanupDead) })
}

func TestCleanupStack_HandleStableAcrossGrowth(t *testing.T) {
	e := newTestEmitter()

	first := produceOwned(e, refType)
	for i := 0; i < 64; i++ {
		produceOwned(e, refType)
	}
	if st, ok := e.Cleanups.State(first.Cleanup()); !ok || st != CleanupActive {
		t.Errorf("handle invalidated by stack growth: state %v ok %v", st, ok)
	}
}

func TestCleanupStack_UnwindInvalidDepthPanics(t *testing.T) {
	e := newTestEmitter()

	produceOwned(e, refType)
	expectPanic(t, func() { e.Unwind(5) })
}

func TestCleanupState_String(t *testing.T) {
	cases := map[CleanupState]string{
		CleanupDead:    "dead",
		CleanupDormant: "dormant",
		CleanupActive:  "active",
	}
	for st, want := range cases {
		if got := st.String(); got != want {
			t.Errorf("state %d: got %q, want %q", st, got, want)
		}
	}
}
