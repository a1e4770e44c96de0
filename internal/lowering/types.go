package lowering

import "github.com/lumen-lang/lumen/internal/ir"

// TypeLowering answers representation queries about lowered types. The
// classification is structural: references and opaque types carry
// destruction obligations, aggregates inherit them from their fields.
type TypeLowering struct{}

// IsTrivial reports whether values of t need no destruction.
func (tl TypeLowering) IsTrivial(t ir.Type) bool {
	switch obj := t.Object(); obj.Kind {
	case ir.TypeInt, ir.TypeFloat, ir.TypeBool:
		return true
	case ir.TypeRef, ir.TypeOpaque:
		return false
	case ir.TypeStruct:
		for _, f := range obj.Fields {
			if !tl.IsTrivial(f) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// IsAddressOnly reports whether values of t are too complex for register
// representation and must always be manipulated through memory.
func (tl TypeLowering) IsAddressOnly(t ir.Type) bool {
	switch obj := t.Object(); obj.Kind {
	case ir.TypeOpaque:
		return true
	case ir.TypeStruct:
		for _, f := range obj.Fields {
			if tl.IsAddressOnly(f) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// IsAddress reports whether t is itself an address type.
func (tl TypeLowering) IsAddress(t ir.Type) bool { return t.IsAddress() }
