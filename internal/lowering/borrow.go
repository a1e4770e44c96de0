package lowering

// borrowState tracks a ScopedBorrow through its life.
type borrowState int

const (
	borrowUninitialized borrowState = iota
	borrowBorrowed
	borrowEnded
)

// ScopedBorrow is a short-lived, non-owning view of a managed value.
// Construction emits the begin_borrow (when the representation needs
// one); End closes it exactly once, on every exit path. Ended is
// terminal and End is idempotent.
type ScopedBorrow struct {
	e        *Emitter
	borrowed ManagedValue
	handle   CleanupHandle
	state    borrowState
}

// NewScopedBorrow borrows original for the current scope. Trivial,
// already-guaranteed, and address-resident values are aliased at zero
// cost; otherwise a begin_borrow is emitted and its end_borrow cleanup
// is tracked by handle.
func NewScopedBorrow(e *Emitter, original ManagedValue) *ScopedBorrow {
	sb := &ScopedBorrow{e: e}
	if !original.IsValid() {
		return sb
	}

	if e.Types.IsTrivial(original.Type()) {
		sb.borrowed = TrivialValue(original.Value())
		sb.state = borrowBorrowed
		return sb
	}

	if original.Kind() == OwnershipGuaranteed {
		sb.borrowed = GuaranteedValue(original.Value())
		sb.state = borrowBorrowed
		return sb
	}

	if e.Types.IsAddress(original.Type()) {
		sb.borrowed = GuaranteedValue(original.Value())
		sb.state = borrowBorrowed
		return sb
	}

	borrowed := e.B.CreateBeginBorrow(original.Value())
	sb.handle = e.EnterEndBorrowCleanup(original.Value(), borrowed)
	sb.borrowed = GuaranteedValue(borrowed)
	sb.state = borrowBorrowed
	return sb
}

// Value returns the borrowed view; invalid once the borrow has ended.
func (sb *ScopedBorrow) Value() ManagedValue { return sb.borrowed }

// Handle returns the end-borrow cleanup handle; invalid for zero-cost
// alias borrows and after End.
func (sb *ScopedBorrow) Handle() CleanupHandle { return sb.handle }

// End closes the borrow. Calling it again, or on a borrow that never
// started, is a no-op. Borrows must close before anything else emits
// their cleanup; finding the record already dead is a defect.
func (sb *ScopedBorrow) End() {
	if sb.state != borrowBorrowed {
		return
	}
	sb.state = borrowEnded

	// The block was already terminated: the end_borrow would land in
	// unreachable code, so there is nothing to emit.
	if !sb.e.HasValidInsertionPoint() {
		sb.handle = CleanupHandle{}
		sb.borrowed = ManagedValue{}
		return
	}

	// Zero-cost alias: no cleanup was ever allocated.
	if !sb.handle.IsValid() {
		sb.borrowed = ManagedValue{}
		return
	}

	st, ok := sb.e.Cleanups.State(sb.handle)
	if !ok {
		panic("lowering: borrow cleanup missing from stack")
	}
	if st == CleanupDead {
		panic("lowering: borrow cleanup emitted out of order")
	}

	newState := CleanupDormant
	if st == CleanupActive {
		newState = CleanupDead
	}
	sb.e.Cleanups.Emit(sb.handle, sb.e)
	sb.e.Cleanups.SetState(sb.handle, newState)

	sb.borrowed = ManagedValue{}
	sb.handle = CleanupHandle{}
}
