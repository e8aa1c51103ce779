package testcase

import (
	"fmt"
	"reflect"
)

// VariableReference is the handle of the value produced by the statement at
// Position. Consumers hold the producer's pointer, so shifting the producer
// moves every use with it.
type VariableReference struct {
	typ      reflect.Type
	position int
}

func newReference(typ reflect.Type) *VariableReference {
	return &VariableReference{typ: typ, position: -1}
}

// Type returns the declared static type, or nil for void.
func (v *VariableReference) Type() reflect.Type {
	return v.typ
}

// Position returns the index of the producing statement.
func (v *VariableReference) Position() int {
	return v.position
}

// IsVoid reports whether the reference stands for no value.
func (v *VariableReference) IsVoid() bool {
	return v.typ == nil
}

// Adjust shifts the reference by delta when it sits at or after position.
func (v *VariableReference) Adjust(position, delta int) {
	if v.position >= position {
		v.position += delta
	}
}

func (v *VariableReference) String() string {
	if v.IsVoid() {
		return fmt.Sprintf("void@%d", v.position)
	}

	return fmt.Sprintf("%s@%d", v.typ, v.position)
}

// adjustAll shifts each distinct reference once.
func adjustAll(refs []*VariableReference, position, delta int) {
	seen := make(map[*VariableReference]bool, len(refs))

	for _, ref := range refs {
		if ref == nil || seen[ref] {
			continue
		}

		seen[ref] = true
		ref.Adjust(position, delta)
	}
}

func replaceRef(ref **VariableReference, old, replacement *VariableReference) {
	if *ref == old {
		*ref = replacement
	}
}
