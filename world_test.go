package tessera

import "testing"

type wPosition struct{ X, Y float64 }
type wVelocity struct{ X, Y float64 }
type wTag struct{}

func TestWorldCreateAndGetComponent(t *testing.T) {
	w := NewWorld()
	e := Entity{ID: 1}
	w.Create(e, Comp(wPosition{X: 1, Y: 2}))

	got, ok := GetComponent[wPosition](w, e)
	if !ok {
		t.Fatal("GetComponent found nothing right after Create")
	}
	if got.X != 1 || got.Y != 2 {
		t.Errorf("GetComponent = %+v, want {1 2}", *got)
	}
	if HasComponent[wVelocity](w, e) {
		t.Error("HasComponent reported true for a type never attached")
	}
}

func TestWorldAddComponentsMigratesPreservingExisting(t *testing.T) {
	w := NewWorld()
	e := Entity{ID: 1}
	w.Create(e, Comp(wPosition{X: 1, Y: 1}))

	AddComponent(w, e, wVelocity{X: 5, Y: 5})

	pos, ok := GetComponent[wPosition](w, e)
	if !ok || pos.X != 1 {
		t.Errorf("position lost across migration: %+v, ok=%v", pos, ok)
	}
	vel, ok := GetComponent[wVelocity](w, e)
	if !ok || vel.X != 5 {
		t.Errorf("velocity not attached after migration: %+v, ok=%v", vel, ok)
	}
}

func TestWorldAddComponentsNewValueWinsOnOverlap(t *testing.T) {
	w := NewWorld()
	e := Entity{ID: 1}
	w.Create(e, Comp(wPosition{X: 1, Y: 1}))

	AddComponent(w, e, wPosition{X: 99, Y: 99})

	pos, _ := GetComponent[wPosition](w, e)
	if pos.X != 99 {
		t.Errorf("AddComponent did not overwrite an existing component of the same type: %+v", *pos)
	}
}

func TestWorldRemoveComponent(t *testing.T) {
	w := NewWorld()
	e := Entity{ID: 1}
	w.Create(e, Comp(wPosition{}), Comp(wVelocity{}))

	RemoveComponent[wVelocity](w, e)

	if HasComponent[wVelocity](w, e) {
		t.Error("HasComponent(wVelocity) still true after RemoveComponent")
	}
	if !HasComponent[wPosition](w, e) {
		t.Error("unrelated component was dropped by RemoveComponent")
	}
}

func TestWorldRemoveComponentNoopWhenAbsent(t *testing.T) {
	w := NewWorld()
	e := Entity{ID: 1}
	w.Create(e, Comp(wPosition{}))
	RemoveComponent[wVelocity](w, e) // must not panic
	if !HasComponent[wPosition](w, e) {
		t.Error("removing an absent component corrupted the entity's existing components")
	}
}

func TestWorldDestroy(t *testing.T) {
	w := NewWorld()
	e := Entity{ID: 1}
	w.Create(e, Comp(wPosition{}))
	w.Destroy(e)
	if w.Resident(e) {
		t.Error("Resident(e) = true after Destroy")
	}
}

func TestWorldMustGetComponentError(t *testing.T) {
	w := NewWorld()
	e := Entity{ID: 1}
	w.Create(e, Comp(wPosition{}))

	if _, err := MustGetComponent[wVelocity](w, e); err == nil {
		t.Error("MustGetComponent returned nil error for an absent component")
	}
	v, err := MustGetComponent[wPosition](w, e)
	if err != nil {
		t.Fatalf("MustGetComponent returned an error for a present component: %v", err)
	}
	if v == nil {
		t.Error("MustGetComponent returned a nil pointer with a nil error")
	}
}

func TestWorldGetAllComponents(t *testing.T) {
	w := NewWorld()
	e := Entity{ID: 1}
	w.Create(e, Comp(wPosition{X: 1}), Comp(wTag{}))

	all := w.GetAllComponents(e)
	if len(all) != 2 {
		t.Fatalf("GetAllComponents returned %d entries, want 2", len(all))
	}
	posHash := typeIdentity[wPosition]().hash
	var found bool
	for _, c := range all {
		if c.Hash == posHash {
			found = true
			if len(c.Bytes) != int(c.Size) {
				t.Errorf("ComponentInstance.Bytes len = %d, want Size %d", len(c.Bytes), c.Size)
			}
		}
	}
	if !found {
		t.Error("GetAllComponents did not include the position component")
	}
}

func TestWorldCreateBatchSharesComponentValues(t *testing.T) {
	w := NewWorld()
	entities := []Entity{{ID: 1}, {ID: 2}, {ID: 3}}
	w.CreateBatch(entities, Comp(wPosition{X: 7, Y: 7}))

	for _, e := range entities {
		pos, ok := GetComponent[wPosition](w, e)
		if !ok || pos.X != 7 {
			t.Errorf("entity %v missing batch-shared component: %+v, ok=%v", e, pos, ok)
		}
	}
}
