// Package ir defines the ownership-explicit IR produced by the lowering
// stage. It is SSA-lite: values are named references produced by
// instructions, blocks end with a terminator, and every retain/release/
// borrow/destroy is an explicit instruction.
package ir

import (
	"fmt"
	"strings"
)

// TypeKind classifies a lowered type.
type TypeKind int

const (
	TypeInvalid TypeKind = iota
	TypeInt
	TypeFloat
	TypeBool
	TypeRef    // managed reference, retained/released
	TypeOpaque // address-only, always manipulated through memory
	TypeStruct // aggregate of field types
)

func (k TypeKind) String() string {
	switch k {
	case TypeInt:
		return "Int"
	case TypeFloat:
		return "Float"
	case TypeBool:
		return "Bool"
	case TypeRef:
		return "Ref"
	case TypeOpaque:
		return "Opaque"
	case TypeStruct:
		return "Struct"
	default:
		return "Invalid"
	}
}

// Type is a lowered type, optionally qualified as an address.
type Type struct {
	Kind   TypeKind
	Name   string // optional nominal name for Ref/Opaque/Struct
	Fields []Type // TypeStruct field types
	addr   bool
}

// Addr returns the address-of qualification of t.
func (t Type) Addr() Type {
	t.addr = true
	return t
}

// Object strips an address qualification, returning the pointed-to type.
func (t Type) Object() Type {
	t.addr = false
	return t
}

// IsAddress reports whether t is an address type.
func (t Type) IsAddress() bool { return t.addr }

// IsValid reports whether t names a real type.
func (t Type) IsValid() bool { return t.Kind != TypeInvalid }

func (t Type) String() string {
	star := ""
	if t.addr {
		star = "*"
	}
	if t.Name != "" {
		return "$" + star + t.Name
	}
	if t.Kind == TypeStruct {
		parts := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			parts[i] = strings.TrimPrefix(f.String(), "$")
		}
		return fmt.Sprintf("$%s{%s}", star, strings.Join(parts, ", "))
	}
	return "$" + star + t.Kind.String()
}

// Value is an SSA-like value reference. The zero Value is the invalid
// placeholder used for not-yet-produced slots.
type Value struct {
	Ref  string // e.g. "%3"
	Type Type
}

// IsValid reports whether v refers to a produced value.
func (v Value) IsValid() bool { return v.Ref != "" }

func (v Value) String() string {
	if !v.IsValid() {
		return "<invalid>"
	}
	return v.Ref
}

// Instr is implemented by all IR instructions.
type Instr interface{ isInstr() }

// Terminator is implemented by instructions that end a block.
type Terminator interface {
	Instr
	isTerminator()
}

// Retain increments the reference count of a register value.
type Retain struct{ V Value }

// Release decrements the reference count of a register value,
// destroying it at zero.
type Release struct{ V Value }

// CopyValue produces an independently owned copy of a register value.
type CopyValue struct {
	Dst Value
	Src Value
}

// CopyAddr copies the object at Src into the memory at Dst.
type CopyAddr struct {
	Src  Value
	Dst  Value
	Take bool // consume the source instead of copying it
	Init bool // destination is uninitialized memory
}

// DestroyAddr destroys the object held in memory at Addr.
type DestroyAddr struct{ Addr Value }

// Store writes a register value into memory.
type Store struct {
	Val  Value
	Addr Value
	Init bool // destination is uninitialized memory
}

// AllocTemp allocates temporary storage; Dst is the storage address.
type AllocTemp struct{ Dst Value }

// BeginBorrow produces a guaranteed (non-owning) view of Src.
type BeginBorrow struct {
	Dst Value
	Src Value
}

// EndBorrow ends the borrow scope introduced by a BeginBorrow.
type EndBorrow struct {
	Borrowed Value
	Original Value
}

// Br branches unconditionally to a target block label.
type Br struct{ Target string }

// Ret returns from the function with an optional value.
type Ret struct{ Val *Value }

func (Retain) isInstr()      {}
func (Release) isInstr()     {}
func (CopyValue) isInstr()   {}
func (CopyAddr) isInstr()    {}
func (DestroyAddr) isInstr() {}
func (Store) isInstr()       {}
func (AllocTemp) isInstr()   {}
func (BeginBorrow) isInstr() {}
func (EndBorrow) isInstr()   {}
func (Br) isInstr()          {}
func (Ret) isInstr()         {}

func (Br) isTerminator()  {}
func (Ret) isTerminator() {}

func (i Retain) String() string  { return fmt.Sprintf("retain %s", i.V) }
func (i Release) String() string { return fmt.Sprintf("release %s", i.V) }

func (i CopyValue) String() string {
	return fmt.Sprintf("%s = copy_value %s", i.Dst, i.Src)
}

func (i CopyAddr) String() string {
	var b strings.Builder
	b.WriteString("copy_addr ")
	if i.Take {
		b.WriteString("[take] ")
	}
	b.WriteString(i.Src.String())
	b.WriteString(" to ")
	if i.Init {
		b.WriteString("[init] ")
	}
	b.WriteString(i.Dst.String())
	return b.String()
}

func (i DestroyAddr) String() string { return fmt.Sprintf("destroy_addr %s", i.Addr) }

func (i Store) String() string {
	if i.Init {
		return fmt.Sprintf("store %s to [init] %s", i.Val, i.Addr)
	}
	return fmt.Sprintf("store %s to %s", i.Val, i.Addr)
}

func (i AllocTemp) String() string {
	return fmt.Sprintf("%s = alloc_temp %s", i.Dst, i.Dst.Type.Object())
}

func (i BeginBorrow) String() string {
	return fmt.Sprintf("%s = begin_borrow %s", i.Dst, i.Src)
}

func (i EndBorrow) String() string {
	return fmt.Sprintf("end_borrow %s from %s", i.Borrowed, i.Original)
}

func (i Br) String() string { return fmt.Sprintf("br %s", i.Target) }

func (i Ret) String() string {
	if i.Val == nil {
		return "ret"
	}
	return fmt.Sprintf("ret %s", i.Val)
}

// Function is a collection of basic blocks.
type Function struct {
	Name   string
	Blocks []*BasicBlock
}

// BasicBlock is a sequence of instructions ending with a terminator.
type BasicBlock struct {
	Name  string
	Instr []Instr
}

// Terminated reports whether the block already ends with a terminator.
func (bb *BasicBlock) Terminated() bool {
	if len(bb.Instr) == 0 {
		return false
	}
	_, ok := bb.Instr[len(bb.Instr)-1].(Terminator)
	return ok
}

func (f *Function) String() string {
	if f == nil {
		return "<nil-func>"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "func %s {\n", f.Name)
	for _, bb := range f.Blocks {
		b.WriteString(bb.String())
	}
	b.WriteString("}\n")
	return b.String()
}

func (bb *BasicBlock) String() string {
	if bb == nil {
		return ""
	}
	var b strings.Builder
	if bb.Name != "" {
		fmt.Fprintf(&b, "%s:\n", bb.Name)
	}
	for _, in := range bb.Instr {
		b.WriteString("  ")
		if s, ok := any(in).(fmt.Stringer); ok {
			b.WriteString(s.String())
		} else {
			b.WriteString("<instr>")
		}
		b.WriteByte('\n')
	}
	return b.String()
}
