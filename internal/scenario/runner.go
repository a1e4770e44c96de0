package scenario

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/lumen-lang/lumen/internal/ir"
	"github.com/lumen-lang/lumen/internal/lowering"
)

var builtinTypes = map[string]ir.Type{
	"int":   {Kind: ir.TypeInt},
	"float": {Kind: ir.TypeFloat},
	"bool":  {Kind: ir.TypeBool},
}

// runner executes one scenario against a fresh emitter.
type runner struct {
	e       *lowering.Emitter
	types   map[string]ir.Type
	values  map[string]lowering.ManagedValue
	addrs   map[string]ir.Value
	borrows map[string]*lowering.ScopedBorrow
	marks   map[string]lowering.CleanupDepth
}

// Run executes doc and returns the printed IR of the resulting
// function. Fixture mistakes (unknown names, bad types) come back as
// errors; invariant violations inside the lowering core still panic.
func Run(doc *Document, log *zap.Logger) (string, error) {
	fn := &ir.Function{Name: doc.Name}
	r := &runner{
		e:       lowering.NewEmitter(ir.NewBuilder(fn), log),
		types:   make(map[string]ir.Type),
		values:  make(map[string]lowering.ManagedValue),
		addrs:   make(map[string]ir.Value),
		borrows: make(map[string]*lowering.ScopedBorrow),
		marks:   make(map[string]lowering.CleanupDepth),
	}
	if err := r.resolveTypes(doc.Types); err != nil {
		return "", err
	}
	for i, st := range doc.Steps {
		if err := r.step(st); err != nil {
			return "", fmt.Errorf("scenario %s: step %d: %w", doc.Name, i, err)
		}
	}
	return fn.String(), nil
}

func (r *runner) resolveTypes(specs map[string]TypeSpec) error {
	resolving := make(map[string]bool)

	var resolve func(name string) (ir.Type, error)
	resolve = func(name string) (ir.Type, error) {
		if t, ok := builtinTypes[name]; ok {
			return t, nil
		}
		if t, ok := r.types[name]; ok {
			return t, nil
		}
		spec, ok := specs[name]
		if !ok {
			return ir.Type{}, fmt.Errorf("unknown type %q", name)
		}
		if resolving[name] {
			return ir.Type{}, fmt.Errorf("type cycle through %q", name)
		}
		resolving[name] = true
		defer delete(resolving, name)

		var t ir.Type
		switch spec.Kind {
		case "int", "float", "bool":
			t = builtinTypes[spec.Kind]
			t.Name = name
		case "ref":
			t = ir.Type{Kind: ir.TypeRef, Name: name}
		case "opaque":
			t = ir.Type{Kind: ir.TypeOpaque, Name: name}
		case "struct":
			t = ir.Type{Kind: ir.TypeStruct, Name: name}
			for _, f := range spec.Fields {
				ft, err := resolve(f)
				if err != nil {
					return ir.Type{}, err
				}
				t.Fields = append(t.Fields, ft)
			}
		default:
			return ir.Type{}, fmt.Errorf("type %q: unknown kind %q", name, spec.Kind)
		}
		r.types[name] = t
		return t, nil
	}

	for name := range specs {
		if _, err := resolve(name); err != nil {
			return err
		}
	}
	return nil
}

func (r *runner) lookupType(name string) (ir.Type, error) {
	if t, ok := builtinTypes[name]; ok {
		return t, nil
	}
	if t, ok := r.types[name]; ok {
		return t, nil
	}
	return ir.Type{}, fmt.Errorf("unknown type %q", name)
}

func (r *runner) value(name string) (lowering.ManagedValue, error) {
	mv, ok := r.values[name]
	if !ok {
		return lowering.ManagedValue{}, fmt.Errorf("unknown or consumed value %q", name)
	}
	return mv, nil
}

func (r *runner) addr(name string) (ir.Value, error) {
	a, ok := r.addrs[name]
	if !ok {
		return ir.Value{}, fmt.Errorf("unknown allocation %q", name)
	}
	return a, nil
}

func (r *runner) step(st Step) error {
	switch {
	case st.Produce != nil:
		t, err := r.lookupType(st.Produce.Type)
		if err != nil {
			return err
		}
		var raw ir.Value
		if r.e.Types.IsAddressOnly(t) {
			raw = r.e.EmitTemporary(t)
		} else {
			raw = r.e.B.NewValue(t)
		}
		r.values[st.Produce.Name] = r.e.EmitManagedRValueWithCleanup(raw)

	case st.Alloc != nil:
		t, err := r.lookupType(st.Alloc.Type)
		if err != nil {
			return err
		}
		r.addrs[st.Alloc.Name] = r.e.EmitTemporary(t)

	case st.Copy != nil:
		mv, err := r.value(st.Copy.Of)
		if err != nil {
			return err
		}
		r.values[st.Copy.Name] = mv.Copy(r.e)

	case st.CopyUnmanaged != nil:
		mv, err := r.value(st.CopyUnmanaged.Of)
		if err != nil {
			return err
		}
		r.values[st.CopyUnmanaged.Name] = mv.CopyUnmanaged(r.e)

	case st.CopyInto != nil:
		mv, err := r.value(st.CopyInto.Of)
		if err != nil {
			return err
		}
		dest, err := r.addr(st.CopyInto.Dest)
		if err != nil {
			return err
		}
		mv.CopyInto(r.e, dest)

	case st.Forward != nil:
		mv, err := r.value(st.Forward.Of)
		if err != nil {
			return err
		}
		mv.Forward(r.e)
		delete(r.values, st.Forward.Of)

	case st.ForwardInto != nil:
		mv, err := r.value(st.ForwardInto.Of)
		if err != nil {
			return err
		}
		dest, err := r.addr(st.ForwardInto.Dest)
		if err != nil {
			return err
		}
		mv.ForwardInto(r.e, dest)
		delete(r.values, st.ForwardInto.Of)

	case st.AssignInto != nil:
		mv, err := r.value(st.AssignInto.Of)
		if err != nil {
			return err
		}
		dest, err := r.addr(st.AssignInto.Dest)
		if err != nil {
			return err
		}
		mv.AssignInto(r.e, dest)
		delete(r.values, st.AssignInto.Of)

	case st.ForwardCleanup != nil:
		mv, err := r.value(st.ForwardCleanup.Of)
		if err != nil {
			return err
		}
		mv.ForwardCleanup(r.e)
		delete(r.values, st.ForwardCleanup.Of)

	case st.Borrow != nil:
		mv, err := r.value(st.Borrow.Of)
		if err != nil {
			return err
		}
		r.borrows[st.Borrow.Name] = lowering.NewScopedBorrow(r.e, mv)

	case st.EndBorrow != nil:
		sb, ok := r.borrows[st.EndBorrow.Of]
		if !ok {
			return fmt.Errorf("unknown borrow %q", st.EndBorrow.Of)
		}
		sb.End()

	case st.Mark != nil:
		r.marks[st.Mark.Name] = r.e.Cleanups.Depth()

	case st.Unwind != nil:
		to := lowering.CleanupDepth(0)
		if st.Unwind.To != "" {
			d, ok := r.marks[st.Unwind.To]
			if !ok {
				return fmt.Errorf("unknown mark %q", st.Unwind.To)
			}
			to = d
		}
		r.e.Unwind(to)

	case st.Return != nil:
		if !r.e.HasValidInsertionPoint() {
			return fmt.Errorf("return in unreachable code")
		}
		if st.Return.Of == "" {
			r.e.B.CreateReturn(nil)
			return nil
		}
		mv, err := r.value(st.Return.Of)
		if err != nil {
			return err
		}
		v := mv.Forward(r.e)
		delete(r.values, st.Return.Of)
		r.e.B.CreateReturn(&v)

	default:
		return fmt.Errorf("empty step")
	}
	return nil
}
