package scenario

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func run(t *testing.T, src string) string {
	t.Helper()
	doc, err := Load([]byte(src))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	out, err := Run(doc, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return out
}

func TestRun_UnwindReverseOrder(t *testing.T) {
	out := run(t, `
name: reverse
types:
  Str: {kind: ref}
steps:
  - produce: {name: x, type: Str}
  - produce: {name: y, type: Str}
  - produce: {name: z, type: Str}
  - unwind: {}
  - return: {}
`)
	want := strings.Join([]string{
		"func reverse {",
		"entry:",
		"  release %2",
		"  release %1",
		"  release %0",
		"  ret",
		"}",
		"",
	}, "\n")
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("IR mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_ForwardSuppressesDestruction(t *testing.T) {
	out := run(t, `
name: forward
types:
  Str: {kind: ref}
steps:
  - produce: {name: v, type: Str}
  - forward: {of: v}
  - unwind: {}
  - return: {}
`)
	if strings.Contains(out, "release") {
		t.Errorf("forwarded value destroyed:\n%s", out)
	}
}

func TestRun_ForwardIntoDestination(t *testing.T) {
	out := run(t, `
name: forward_into
types:
  Str: {kind: ref}
steps:
  - produce: {name: v, type: Str}
  - alloc: {name: slot, type: Str}
  - forward_into: {of: v, dest: slot}
  - unwind: {}
  - return: {}
`)
	want := strings.Join([]string{
		"func forward_into {",
		"entry:",
		"  %1 = alloc_temp $Str",
		"  store %0 to [init] %1",
		"  ret",
		"}",
		"",
	}, "\n")
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("IR mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_BorrowThenUnwind(t *testing.T) {
	out := run(t, `
name: borrow
types:
  Str: {kind: ref}
steps:
  - produce: {name: v, type: Str}
  - borrow: {of: v, name: b}
  - end_borrow: {of: b}
  - unwind: {}
  - return: {}
`)
	want := strings.Join([]string{
		"func borrow {",
		"entry:",
		"  %1 = begin_borrow %0",
		"  end_borrow %1 from %0",
		"  release %0",
		"  ret",
		"}",
		"",
	}, "\n")
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("IR mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_PartialUnwindWithMark(t *testing.T) {
	out := run(t, `
name: nested
types:
  Str: {kind: ref}
steps:
  - produce: {name: outer, type: Str}
  - mark: {name: scope}
  - produce: {name: inner, type: Str}
  - unwind: {to: scope}
  - unwind: {}
  - return: {}
`)
	want := strings.Join([]string{
		"func nested {",
		"entry:",
		"  release %1",
		"  release %0",
		"  ret",
		"}",
		"",
	}, "\n")
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("IR mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_AddressOnlyCopy(t *testing.T) {
	out := run(t, `
name: addr_only
types:
  Any: {kind: opaque}
steps:
  - produce: {name: v, type: Any}
  - copy: {of: v, name: w}
  - unwind: {}
  - return: {}
`)
	want := strings.Join([]string{
		"func addr_only {",
		"entry:",
		"  %0 = alloc_temp $Any",
		"  %1 = alloc_temp $Any",
		"  copy_addr %0 to [init] %1",
		"  destroy_addr %1",
		"  destroy_addr %0",
		"  ret",
		"}",
		"",
	}, "\n")
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("IR mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_StructClassification(t *testing.T) {
	out := run(t, `
name: structs
types:
  Str: {kind: ref}
  Pair: {kind: struct, fields: [int, Str]}
  Flat: {kind: struct, fields: [int, bool]}
steps:
  - produce: {name: p, type: Pair}
  - produce: {name: f, type: Flat}
  - unwind: {}
  - return: {}
`)
	// Only the ref-carrying struct needs destruction.
	if got := strings.Count(out, "release"); got != 1 {
		t.Errorf("expected 1 release, got %d:\n%s", got, out)
	}
}

func TestRun_ReturnForwardsOwnership(t *testing.T) {
	out := run(t, `
name: ret_owned
types:
  Str: {kind: ref}
steps:
  - produce: {name: v, type: Str}
  - return: {of: v}
`)
	want := strings.Join([]string{
		"func ret_owned {",
		"entry:",
		"  ret %0",
		"}",
		"",
	}, "\n")
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("IR mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_Errors(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"missing name", "types: {}\nsteps: []\n"},
		{"two ops in one step", "name: x\nsteps:\n  - produce: {name: a, type: int}\n    unwind: {}\n"},
		{"empty step", "name: x\nsteps:\n  - {}\n"},
	}
	for _, tc := range cases {
		if _, err := Load([]byte(tc.src)); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestRun_FixtureErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"unknown value", "name: x\nsteps:\n  - copy: {of: ghost, name: g}\n"},
		{"unknown type", "name: x\nsteps:\n  - produce: {name: v, type: Ghost}\n"},
		{"unknown mark", "name: x\nsteps:\n  - unwind: {to: ghost}\n"},
		{"unknown borrow", "name: x\nsteps:\n  - end_borrow: {of: ghost}\n"},
		{"consumed value", "name: x\ntypes:\n  Str: {kind: ref}\nsteps:\n  - produce: {name: v, type: Str}\n  - forward: {of: v}\n  - copy: {of: v, name: w}\n"},
		{"type cycle", "name: x\ntypes:\n  A: {kind: struct, fields: [B]}\n  B: {kind: struct, fields: [A]}\nsteps: []\n"},
	}
	for _, tc := range cases {
		doc, err := Load([]byte(tc.src))
		if err != nil {
			t.Errorf("%s: load failed: %v", tc.name, err)
			continue
		}
		if _, err := Run(doc, nil); err == nil {
			t.Errorf("%s: expected run error", tc.name)
		}
	}
}
