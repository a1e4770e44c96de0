package lowering

import (
	"go.uber.org/zap"

	"github.com/lumen-lang/lumen/internal/ir"
)

// Emitter is the concrete emission context for one function being
// lowered: the instruction builder, the type-lowering oracle, and the
// cleanup stack holding the function's pending destruction obligations.
type Emitter struct {
	B        *ir.Builder
	Types    TypeLowering
	Cleanups *CleanupStack

	log *zap.Logger
}

// NewEmitter creates an emitter over b. A nil logger disables tracing.
func NewEmitter(b *ir.Builder, log *zap.Logger) *Emitter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Emitter{B: b, Cleanups: NewCleanupStack(log), log: log}
}

// HasValidInsertionPoint reports whether the builder can emit into the
// current block.
func (e *Emitter) HasValidInsertionPoint() bool { return e.B.HasValidInsertionPoint() }

func (e *Emitter) EmitRelease(v ir.Value) { e.B.CreateRelease(v) }

func (e *Emitter) EmitDestroyAddr(addr ir.Value) { e.B.CreateDestroyAddr(addr) }

func (e *Emitter) EmitEndBorrow(borrowed, original ir.Value) {
	e.B.CreateEndBorrow(borrowed, original)
}

// EmitTemporary allocates uninitialized temporary storage for an object
// of type t and returns its address.
func (e *Emitter) EmitTemporary(t ir.Type) ir.Value {
	return e.B.CreateAllocTemp(t.Object())
}

// EmitManagedRetain retains v and wraps it as an owned value with a
// fresh release cleanup.
func (e *Emitter) EmitManagedRetain(v ir.Value) ManagedValue {
	e.B.CreateRetain(v)
	h := e.Cleanups.Push(releaseValueCleanup{v: v})
	return ManagedValue{value: v, kind: OwnershipOwned, cleanup: h}
}

// EmitManagedRValueWithCleanup wraps a freshly produced value with the
// destruction cleanup its representation calls for: destroy_addr for
// memory-resident values, release for register values. Trivial values
// get no cleanup.
func (e *Emitter) EmitManagedRValueWithCleanup(v ir.Value) ManagedValue {
	if e.Types.IsTrivial(v.Type) {
		return TrivialValue(v)
	}
	var h CleanupHandle
	if e.Types.IsAddress(v.Type) {
		h = e.Cleanups.Push(destroyAddrCleanup{addr: v})
	} else {
		h = e.Cleanups.Push(releaseValueCleanup{v: v})
	}
	return ManagedValue{value: v, kind: OwnershipOwned, cleanup: h}
}

// EmitManagedBeginBorrow emits a begin_borrow of v and registers the
// matching end_borrow cleanup, returning the guaranteed borrowed value.
func (e *Emitter) EmitManagedBeginBorrow(v ir.Value) ManagedValue {
	borrowed := e.B.CreateBeginBorrow(v)
	h := e.EnterEndBorrowCleanup(v, borrowed)
	return ManagedValue{value: borrowed, kind: OwnershipGuaranteed, cleanup: h}
}

// EnterEndBorrowCleanup schedules an end_borrow for a borrow of
// original that produced borrowed.
func (e *Emitter) EnterEndBorrowCleanup(original, borrowed ir.Value) CleanupHandle {
	return e.Cleanups.Push(endBorrowCleanup{borrowed: borrowed, original: original})
}

// EmitSemanticStore writes v into addr, choosing the representation-
// appropriate instruction: copy_addr [take] for memory-resident
// sources, store for register values.
func (e *Emitter) EmitSemanticStore(v, addr ir.Value, init bool) {
	if e.Types.IsAddress(v.Type) {
		e.B.CreateCopyAddr(v, addr, true, init)
		return
	}
	e.B.CreateStore(v, addr, init)
}

// Unwind emits destructions for every cleanup above the saved depth, in
// reverse acquisition order, and pops them. Every scope exit must call
// this before transferring control past the scope boundary.
func (e *Emitter) Unwind(to CleanupDepth) { e.Cleanups.Unwind(e, to) }
