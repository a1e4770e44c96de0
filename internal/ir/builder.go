package ir

import "fmt"

// Builder appends instructions to a current insertion point inside a
// function. Emitting a terminator clears the insertion point; callers
// that may run after one must check HasValidInsertionPoint first.
type Builder struct {
	fn   *Function
	cur  *BasicBlock
	next int
}

// NewBuilder creates a builder for fn with an "entry" block selected.
func NewBuilder(fn *Function) *Builder {
	b := &Builder{fn: fn}
	b.SetInsertionPoint(b.NewBlock("entry"))
	return b
}

// Function returns the function under construction.
func (b *Builder) Function() *Function { return b.fn }

// NewBlock appends a fresh basic block to the function.
func (b *Builder) NewBlock(name string) *BasicBlock {
	bb := &BasicBlock{Name: name}
	b.fn.Blocks = append(b.fn.Blocks, bb)
	return bb
}

// SetInsertionPoint makes bb the current insertion point.
func (b *Builder) SetInsertionPoint(bb *BasicBlock) { b.cur = bb }

// ClearInsertionPoint invalidates the insertion point.
func (b *Builder) ClearInsertionPoint() { b.cur = nil }

// HasValidInsertionPoint reports whether instructions can currently be
// emitted. It is false after a terminator until a block is selected.
func (b *Builder) HasValidInsertionPoint() bool { return b.cur != nil }

// InsertionBlock returns the current insertion block, or nil.
func (b *Builder) InsertionBlock() *BasicBlock { return b.cur }

// NewValue mints a fresh value reference of the given type.
func (b *Builder) NewValue(t Type) Value {
	v := Value{Ref: fmt.Sprintf("%%%d", b.next), Type: t}
	b.next++
	return v
}

func (b *Builder) emit(in Instr) {
	if b.cur == nil {
		panic("ir: emit with no valid insertion point")
	}
	b.cur.Instr = append(b.cur.Instr, in)
}

func (b *Builder) CreateRetain(v Value) { b.emit(Retain{V: v}) }

func (b *Builder) CreateRelease(v Value) { b.emit(Release{V: v}) }

func (b *Builder) CreateCopyValue(src Value) Value {
	dst := b.NewValue(src.Type)
	b.emit(CopyValue{Dst: dst, Src: src})
	return dst
}

func (b *Builder) CreateCopyAddr(src, dst Value, take, init bool) {
	b.emit(CopyAddr{Src: src, Dst: dst, Take: take, Init: init})
}

func (b *Builder) CreateDestroyAddr(addr Value) { b.emit(DestroyAddr{Addr: addr}) }

func (b *Builder) CreateStore(val, addr Value, init bool) {
	b.emit(Store{Val: val, Addr: addr, Init: init})
}

// CreateAllocTemp allocates temporary storage for an object of type t
// and returns its address.
func (b *Builder) CreateAllocTemp(t Type) Value {
	dst := b.NewValue(t.Object().Addr())
	b.emit(AllocTemp{Dst: dst})
	return dst
}

func (b *Builder) CreateBeginBorrow(src Value) Value {
	dst := b.NewValue(src.Type)
	b.emit(BeginBorrow{Dst: dst, Src: src})
	return dst
}

func (b *Builder) CreateEndBorrow(borrowed, original Value) {
	b.emit(EndBorrow{Borrowed: borrowed, Original: original})
}

// CreateBr emits an unconditional branch and clears the insertion point.
func (b *Builder) CreateBr(target string) {
	b.emit(Br{Target: target})
	b.cur = nil
}

// CreateReturn emits a return and clears the insertion point. val may be
// nil for a void return.
func (b *Builder) CreateReturn(val *Value) {
	b.emit(Ret{Val: val})
	b.cur = nil
}
