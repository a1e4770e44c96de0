// Package lowering implements the value-lowering core of the Lumen
// compiler: managed values carrying destruction obligations, the cleanup
// stack that emits those obligations in reverse acquisition order at
// every scope exit, and scoped borrows.
package lowering

import (
	"go.uber.org/zap"

	"github.com/lumen-lang/lumen/internal/ir"
)

// CleanupState is the activation state of a cleanup record.
type CleanupState int

const (
	// CleanupDead records are already emitted or permanently cancelled.
	CleanupDead CleanupState = iota
	// CleanupDormant records are temporarily suppressed and expect an
	// explicit reactivation before scope exit.
	CleanupDormant
	// CleanupActive records will be emitted on unwind.
	CleanupActive
)

func (s CleanupState) String() string {
	switch s {
	case CleanupDead:
		return "dead"
	case CleanupDormant:
		return "dormant"
	case CleanupActive:
		return "active"
	default:
		return "unknown"
	}
}

// Cleanup is the destruction payload of a record: it knows how to emit
// the code that releases one resource.
type Cleanup interface {
	Emit(ctx EmitContext)
}

// CleanupHandle is a stable, opaque reference to a record on the cleanup
// stack. It stays valid as the stack grows and detects, via generation,
// records that were popped beneath it. The zero handle is invalid.
type CleanupHandle struct {
	index int
	gen   uint64
}

// IsValid reports whether h refers to a record that was ever pushed.
func (h CleanupHandle) IsValid() bool { return h.gen != 0 }

// CleanupDepth is a saved stack depth, captured before entering a scope
// and passed back to Unwind when leaving it.
type CleanupDepth int

type cleanupRecord struct {
	state   CleanupState
	gen     uint64
	cleanup Cleanup
}

// CleanupStack owns every pending destruction obligation of the function
// being lowered. Records are pushed as values are produced and emitted
// in strict reverse order on unwind; managed values and borrows hold
// only handles, never the records themselves.
type CleanupStack struct {
	records []cleanupRecord
	nextGen uint64
	log     *zap.Logger
}

// NewCleanupStack creates an empty stack. A nil logger disables tracing.
func NewCleanupStack(log *zap.Logger) *CleanupStack {
	if log == nil {
		log = zap.NewNop()
	}
	return &CleanupStack{nextGen: 1, log: log}
}

// Depth returns the current stack depth, for later use with Unwind.
func (s *CleanupStack) Depth() CleanupDepth { return CleanupDepth(len(s.records)) }

// Push appends a new Active record and returns its handle.
func (s *CleanupStack) Push(c Cleanup) CleanupHandle {
	h := CleanupHandle{index: len(s.records), gen: s.nextGen}
	s.nextGen++
	s.records = append(s.records, cleanupRecord{state: CleanupActive, gen: h.gen, cleanup: c})
	s.log.Debug("cleanup pushed", zap.Int("depth", h.index))
	return h
}

// lookup resolves a handle, returning nil for popped or stale records.
func (s *CleanupStack) lookup(h CleanupHandle) *cleanupRecord {
	if !h.IsValid() || h.index >= len(s.records) {
		return nil
	}
	rec := &s.records[h.index]
	if rec.gen != h.gen {
		return nil
	}
	return rec
}

// State returns the state of the record behind h, or false if the record
// has been popped from the stack.
func (s *CleanupStack) State(h CleanupHandle) (CleanupState, bool) {
	rec := s.lookup(h)
	if rec == nil {
		return CleanupDead, false
	}
	return rec.state, true
}

// SetState transitions a live record to st. Reactivating a dormant
// record is SetState(h, CleanupActive).
func (s *CleanupStack) SetState(h CleanupHandle, st CleanupState) {
	rec := s.lookup(h)
	if rec == nil {
		panic("lowering: set state of missing cleanup")
	}
	rec.state = st
}

// Forward marks the record Dead without emitting it: ownership of the
// destruction obligation has moved elsewhere. Forwarding a record twice
// is a defect in the surrounding pass.
func (s *CleanupStack) Forward(h CleanupHandle) {
	rec := s.lookup(h)
	if rec == nil {
		panic("lowering: forward of missing cleanup")
	}
	if rec.state == CleanupDead {
		panic("lowering: cleanup forwarded twice")
	}
	rec.state = CleanupDead
	s.log.Debug("cleanup forwarded", zap.Int("depth", h.index))
}

// Emit invokes the payload of the record behind h, provided the context
// has a valid insertion point. Emission into unreachable code is
// silently skipped. The record's state is left for the caller to
// transition; use Unwind for ordinary scope exits.
func (s *CleanupStack) Emit(h CleanupHandle, ctx EmitContext) {
	rec := s.lookup(h)
	if rec == nil {
		panic("lowering: emit of missing cleanup")
	}
	if !ctx.HasValidInsertionPoint() {
		return
	}
	rec.cleanup.Emit(ctx)
}

// Unwind emits every still-active record above the saved depth, newest
// first, then pops them. Dead records are skipped. It must run before
// control leaves a scope on any path; a record still Dormant at that
// point has missed its reactivation and is a latent leak.
func (s *CleanupStack) Unwind(ctx EmitContext, to CleanupDepth) {
	if to < 0 || int(to) > len(s.records) {
		panic("lowering: unwind to invalid depth")
	}
	for i := len(s.records) - 1; i >= int(to); i-- {
		rec := &s.records[i]
		switch rec.state {
		case CleanupActive:
			if ctx.HasValidInsertionPoint() {
				rec.cleanup.Emit(ctx)
				s.log.Debug("cleanup emitted", zap.Int("depth", i))
			}
			rec.state = CleanupDead
		case CleanupDormant:
			panic("lowering: dormant cleanup at scope exit")
		case CleanupDead:
			// Already emitted or forwarded.
		}
	}
	s.records = s.records[:to]
}

// releaseValueCleanup releases an owned register value.
type releaseValueCleanup struct{ v ir.Value }

func (c releaseValueCleanup) Emit(ctx EmitContext) { ctx.EmitRelease(c.v) }

// destroyAddrCleanup destroys the object held at an address.
type destroyAddrCleanup struct{ addr ir.Value }

func (c destroyAddrCleanup) Emit(ctx EmitContext) { ctx.EmitDestroyAddr(c.addr) }

// endBorrowCleanup closes a begin_borrow/end_borrow pair.
type endBorrowCleanup struct{ borrowed, original ir.Value }

func (c endBorrowCleanup) Emit(ctx EmitContext) {
	ctx.EmitEndBorrow(c.borrowed, c.original)
}
