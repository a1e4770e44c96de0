package lowering

import "github.com/lumen-lang/lumen/internal/ir"

// Ownership classifies who holds the destruction obligation for a
// managed value.
type Ownership int

const (
	// OwnershipTrivial values never need destruction.
	OwnershipTrivial Ownership = iota
	// OwnershipOwned values hold a live cleanup obligation.
	OwnershipOwned
	// OwnershipGuaranteed values are borrowed; the holder must never
	// destroy them.
	OwnershipGuaranteed
	// OwnershipInContext marks an lvalue: an address-only placeholder
	// whose storage is managed by someone else.
	OwnershipInContext
)

func (o Ownership) String() string {
	switch o {
	case OwnershipTrivial:
		return "trivial"
	case OwnershipOwned:
		return "owned"
	case OwnershipGuaranteed:
		return "guaranteed"
	case OwnershipInContext:
		return "in_context"
	default:
		return "unknown"
	}
}

// ManagedValue pairs a produced value with its ownership classification
// and, for owned values, the handle of its pending cleanup. Ownership
// can be forwarded to deactivate the cleanup without emitting it. The
// zero ManagedValue is invalid.
type ManagedValue struct {
	value   ir.Value
	kind    Ownership
	cleanup CleanupHandle
}

// TrivialValue wraps a value that needs no destruction.
func TrivialValue(v ir.Value) ManagedValue {
	return ManagedValue{value: v, kind: OwnershipTrivial}
}

// GuaranteedValue wraps a value borrowed from elsewhere; the wrapper
// carries no destruction obligation.
func GuaranteedValue(v ir.Value) ManagedValue {
	return ManagedValue{value: v, kind: OwnershipGuaranteed}
}

// OwnedValue wraps a value together with its live cleanup.
func OwnedValue(v ir.Value, h CleanupHandle) ManagedValue {
	if !h.IsValid() {
		panic("lowering: owned value without cleanup")
	}
	return ManagedValue{value: v, kind: OwnershipOwned, cleanup: h}
}

// LValue wraps an address-only slot whose storage belongs to someone
// else; no value has been produced into it yet.
func LValue(addr ir.Value) ManagedValue {
	return ManagedValue{value: addr, kind: OwnershipInContext}
}

// IsValid reports whether mv wraps a produced value.
func (mv ManagedValue) IsValid() bool { return mv.value.IsValid() }

// Value returns the underlying value without touching its cleanup.
func (mv ManagedValue) Value() ir.Value { return mv.value }

// Type returns the type of the underlying value.
func (mv ManagedValue) Type() ir.Type { return mv.value.Type }

// Kind returns the ownership classification.
func (mv ManagedValue) Kind() Ownership { return mv.kind }

// HasCleanup reports whether mv still carries a cleanup handle.
func (mv ManagedValue) HasCleanup() bool { return mv.cleanup.IsValid() }

// Cleanup returns the cleanup handle; invalid if mv has none.
func (mv ManagedValue) Cleanup() CleanupHandle { return mv.cleanup }

// IsLValue reports whether mv is an lvalue placeholder.
func (mv ManagedValue) IsLValue() bool { return mv.kind == OwnershipInContext }

// Copy emits a copy of mv with independent ownership: trivial values
// pass through, register values are retained, address-only values are
// copy-constructed into fresh temporary storage. The copy gets its own
// cleanup; mv keeps its own.
func (mv ManagedValue) Copy(e *Emitter) ManagedValue {
	if !mv.cleanup.IsValid() {
		if !e.Types.IsTrivial(mv.Type()) {
			panic("lowering: copy of non-trivial value without cleanup")
		}
		return mv
	}
	if e.Types.IsTrivial(mv.Type()) {
		panic("lowering: trivial value has cleanup")
	}

	if !e.Types.IsAddressOnly(mv.Type()) {
		return e.EmitManagedRetain(mv.value)
	}

	buf := e.EmitTemporary(mv.Type())
	e.B.CreateCopyAddr(mv.value, buf, false, true)
	return e.EmitManagedRValueWithCleanup(buf)
}

// CopyInto stores an independently owned copy of mv into the given
// uninitialized address. No temporary is allocated; the destination's
// own lifecycle governs the copy from here on.
func (mv ManagedValue) CopyInto(e *Emitter, dest ir.Value) {
	if e.Types.IsAddressOnly(mv.Type()) {
		e.B.CreateCopyAddr(mv.value, dest, false, true)
		return
	}
	copied := e.B.CreateCopyValue(mv.value)
	e.B.CreateStore(copied, dest, true)
}

// CopyUnmanaged is Copy for values known to carry no cleanup (borrowed
// or unmanaged): it produces an owned copy with a fresh cleanup.
// Trivial values pass through unchanged.
func (mv ManagedValue) CopyUnmanaged(e *Emitter) ManagedValue {
	if e.Types.IsTrivial(mv.Type()) {
		return mv
	}

	var result ir.Value
	if !e.Types.IsAddress(mv.Type()) {
		result = e.B.CreateCopyValue(mv.value)
	} else {
		result = e.EmitTemporary(mv.Type())
		e.B.CreateCopyAddr(mv.value, result, false, true)
	}
	return e.EmitManagedRValueWithCleanup(result)
}

// ForwardCleanup deactivates mv's cleanup without emitting it; the
// destruction obligation has moved elsewhere.
func (mv ManagedValue) ForwardCleanup(e *Emitter) {
	if !mv.HasCleanup() {
		panic("lowering: value doesn't have cleanup")
	}
	e.Cleanups.Forward(mv.cleanup)
}

// Forward extracts the underlying value and deactivates the cleanup, if
// any. This consumes mv; using the wrapper afterward is a defect.
func (mv ManagedValue) Forward(e *Emitter) ir.Value {
	if mv.HasCleanup() {
		mv.ForwardCleanup(e)
	}
	return mv.value
}

// ForwardInto forwards mv and stores it into uninitialized destination
// storage as an initializing store.
func (mv ManagedValue) ForwardInto(e *Emitter, address ir.Value) {
	if mv.HasCleanup() {
		mv.ForwardCleanup(e)
	}
	e.EmitSemanticStore(mv.value, address, true)
}

// AssignInto forwards mv and overwrites a previously initialized slot.
// Destroying the slot's previous occupant is the destination's own
// responsibility.
func (mv ManagedValue) AssignInto(e *Emitter, address ir.Value) {
	if mv.HasCleanup() {
		mv.ForwardCleanup(e)
	}
	e.EmitSemanticStore(mv.value, address, false)
}

// Borrow produces a non-owning view of mv. Lvalues pass through,
// addresses alias without a new obligation, register values get a
// begin_borrow with its end_borrow scheduled on the cleanup stack.
func (mv ManagedValue) Borrow(e *Emitter) ManagedValue {
	if !mv.value.IsValid() {
		panic("lowering: cannot borrow an invalid or in-context value")
	}
	if mv.IsLValue() {
		return mv
	}
	if e.Types.IsAddress(mv.Type()) {
		return GuaranteedValue(mv.value)
	}
	return e.EmitManagedBeginBorrow(mv.value)
}
