package tessera

import (
	"testing"
	"unsafe"
)

type archPosition struct{ X, Y float64 }
type archVelocity struct{ X, Y float64 }
type archTag struct{}

func newTestArchetype(t *testing.T, types ...typeInfo) *Archetype {
	t.Helper()
	hashes := make([]TypeHash, len(types))
	for i, ty := range types {
		hashes[i] = ty.hash
	}
	sig := NewSignature(hashes...)
	// sig sorts ascending; buildInfos-style callers must supply infos in that
	// same order, so reorder the fixture's types to match.
	infos := make([]typeInfo, len(sig.Hashes()))
	for i, h := range sig.Hashes() {
		for _, ty := range types {
			if ty.hash == h {
				infos[i] = ty
			}
		}
	}
	return newArchetypeFor(1, sig, infos)
}

// onlyPayload returns a payload slice, sized to the archetype's column
// count, with value's address placed at the column for hash and every other
// slot left nil (appendRow zeroes those columns).
func onlyPayload(a *Archetype, hash TypeHash, value unsafe.Pointer) []unsafe.Pointer {
	out := make([]unsafe.Pointer, len(a.columns))
	if idx, ok := a.ColumnIndex(hash); ok {
		out[idx] = value
	}
	return out
}

func TestArchetypeAppendAndSwapRemove(t *testing.T) {
	posInfo := typeIdentity[archPosition]()
	velInfo := typeIdentity[archVelocity]()
	a := newTestArchetype(t, posInfo, velInfo)

	e0 := Entity{ID: 10}
	e1 := Entity{ID: 11}
	e2 := Entity{ID: 12}

	p0 := archPosition{X: 1, Y: 1}
	p1 := archPosition{X: 2, Y: 2}
	p2 := archPosition{X: 3, Y: 3}

	a.appendRow(e0, onlyPayload(a, posInfo.hash, unsafe.Pointer(&p0)))
	a.appendRow(e1, onlyPayload(a, posInfo.hash, unsafe.Pointer(&p1)))
	a.appendRow(e2, onlyPayload(a, posInfo.hash, unsafe.Pointer(&p2)))

	if a.RowCount() != 3 {
		t.Fatalf("RowCount() = %d, want 3", a.RowCount())
	}

	moved := a.swapRemove(0)
	if moved != e2 {
		t.Errorf("swapRemove(0) moved %v, want last entity %v", moved, e2)
	}
	if a.RowCount() != 2 {
		t.Fatalf("RowCount() after remove = %d, want 2", a.RowCount())
	}
	got := (*archPosition)(a.columnPtr(posInfo.hash, 0))
	if *got != p2 {
		t.Errorf("row 0 after swap-remove holds %+v, want %+v", *got, p2)
	}
}

func TestArchetypeZeroSizedComponent(t *testing.T) {
	tagInfo := typeIdentity[archTag]()
	a := newTestArchetype(t, tagInfo)
	e := Entity{ID: 1}
	a.appendRow(e, nil)
	if a.RowCount() != 1 {
		t.Fatalf("RowCount() = %d, want 1", a.RowCount())
	}
	ptr := a.columnPtr(tagInfo.hash, 0)
	if ptr == nil {
		t.Error("columnPtr on a zero-sized column returned nil")
	}
	a.swapRemove(0)
	if a.RowCount() != 0 {
		t.Errorf("RowCount() after removing the only row = %d, want 0", a.RowCount())
	}
}

func TestArchetypeColumnIndexAndHas(t *testing.T) {
	posInfo := typeIdentity[archPosition]()
	a := newTestArchetype(t, posInfo)
	if !a.Has(posInfo.hash) {
		t.Error("Has(posInfo.hash) = false, want true")
	}
	velInfo := typeIdentity[archVelocity]()
	if a.Has(velInfo.hash) {
		t.Error("Has(velInfo.hash) = true for a column the archetype doesn't carry")
	}
	if _, ok := a.ColumnIndex(velInfo.hash); ok {
		t.Error("ColumnIndex found an index for an absent column")
	}
}
