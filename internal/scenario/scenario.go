// Package scenario runs declarative lowering scenarios: YAML fixtures
// that produce, copy, borrow, forward, and unwind managed values, with
// the emitted IR as the observable result. It exists so the ownership
// layer can be driven and inspected without the full lowering pass.
package scenario

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Document is a parsed scenario file.
type Document struct {
	Name  string              `yaml:"name"`
	Types map[string]TypeSpec `yaml:"types"`
	Steps []Step              `yaml:"steps"`
}

// TypeSpec declares a named type. Kind is one of int, float, bool, ref,
// opaque, struct; struct types list their field type names.
type TypeSpec struct {
	Kind   string   `yaml:"kind"`
	Fields []string `yaml:"fields"`
}

// Step holds exactly one operation. The field names mirror the managed
// value and cleanup stack operations one to one.
type Step struct {
	Produce        *ValueStep `yaml:"produce"`
	Alloc          *ValueStep `yaml:"alloc"`
	Copy           *OpStep    `yaml:"copy"`
	CopyUnmanaged  *OpStep    `yaml:"copy_unmanaged"`
	CopyInto       *DestStep  `yaml:"copy_into"`
	Forward        *OpStep    `yaml:"forward"`
	ForwardInto    *DestStep  `yaml:"forward_into"`
	AssignInto     *DestStep  `yaml:"assign_into"`
	ForwardCleanup *OpStep    `yaml:"forward_cleanup"`
	Borrow         *OpStep    `yaml:"borrow"`
	EndBorrow      *OpStep    `yaml:"end_borrow"`
	Mark           *OpStep    `yaml:"mark"`
	Unwind         *OpStep    `yaml:"unwind"`
	Return         *OpStep    `yaml:"return"`
}

// ValueStep names a fresh value or allocation and its type.
type ValueStep struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// OpStep applies an operation to a named value ("of"), optionally
// binding a result ("name") or referring to a mark ("to").
type OpStep struct {
	Of   string `yaml:"of"`
	Name string `yaml:"name"`
	To   string `yaml:"to"`
}

// DestStep applies a store-like operation from a value to a destination
// allocation.
type DestStep struct {
	Of   string `yaml:"of"`
	Dest string `yaml:"dest"`
}

// Load parses a scenario document.
func Load(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("scenario: parse: %w", err)
	}
	if doc.Name == "" {
		return nil, fmt.Errorf("scenario: missing name")
	}
	for i, st := range doc.Steps {
		if n := st.opCount(); n != 1 {
			return nil, fmt.Errorf("scenario: step %d: expected exactly one operation, found %d", i, n)
		}
	}
	return &doc, nil
}

func (st Step) opCount() int {
	n := 0
	for _, set := range []bool{
		st.Produce != nil, st.Alloc != nil, st.Copy != nil,
		st.CopyUnmanaged != nil, st.CopyInto != nil, st.Forward != nil,
		st.ForwardInto != nil, st.AssignInto != nil, st.ForwardCleanup != nil,
		st.Borrow != nil, st.EndBorrow != nil, st.Mark != nil,
		st.Unwind != nil, st.Return != nil,
	} {
		if set {
			n++
		}
	}
	return n
}
