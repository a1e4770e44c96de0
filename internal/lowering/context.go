package lowering

import "github.com/lumen-lang/lumen/internal/ir"

// EmitContext is the slice of the emission context that cleanup payloads
// see when they fire. Emission may be requested after a block was
// terminated; HasValidInsertionPoint gates every emit.
type EmitContext interface {
	HasValidInsertionPoint() bool
	EmitRelease(v ir.Value)
	EmitDestroyAddr(addr ir.Value)
	EmitEndBorrow(borrowed, original ir.Value)
}
