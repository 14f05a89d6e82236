package tessera

import "testing"

type rtConfig struct{ MaxPlayers int }
type rtClock struct{ Tick int }

func TestResourceAddGetRoundTrip(t *testing.T) {
	rt := NewResourceTable()
	if _, err := AddResource(rt, rtConfig{MaxPlayers: 4}); err != nil {
		t.Fatalf("AddResource returned an error: %v", err)
	}
	got, ok := GetResource[rtConfig](rt)
	if !ok {
		t.Fatal("GetResource found nothing right after AddResource")
	}
	if got.MaxPlayers != 4 {
		t.Errorf("GetResource = %+v, want MaxPlayers=4", *got)
	}
}

func TestResourceAddDuplicateFails(t *testing.T) {
	rt := NewResourceTable()
	if _, err := AddResource(rt, rtConfig{}); err != nil {
		t.Fatalf("first AddResource failed: %v", err)
	}
	if _, err := AddResource(rt, rtConfig{}); err == nil {
		t.Error("second AddResource for the same type returned nil error")
	} else if _, ok := err.(ResourceAlreadyExistsError); !ok {
		t.Errorf("error = %T, want ResourceAlreadyExistsError", err)
	}
}

func TestMustGetResourceMissing(t *testing.T) {
	rt := NewResourceTable()
	if _, err := MustGetResource[rtConfig](rt); err == nil {
		t.Error("MustGetResource returned nil error for an unregistered type")
	} else if _, ok := err.(ResourceNotFoundError); !ok {
		t.Errorf("error = %T, want ResourceNotFoundError", err)
	}
}

func TestResourceGetReturnsLiveMutablePointer(t *testing.T) {
	rt := NewResourceTable()
	boxed, _ := AddResource(rt, rtClock{Tick: 0})
	boxed.Tick = 5

	got, _ := GetResource[rtClock](rt)
	if got.Tick != 5 {
		t.Errorf("GetResource observed Tick=%d, want 5 (mutation through the AddResource pointer should be visible)", got.Tick)
	}
}

func TestRemoveResourceRunsDestructor(t *testing.T) {
	rt := NewResourceTable()
	destroyed := false
	_, err := AddResourceWithDestructor(rt, rtClock{}, func(c *rtClock) { destroyed = true })
	if err != nil {
		t.Fatalf("AddResourceWithDestructor failed: %v", err)
	}
	RemoveResource[rtClock](rt)
	if !destroyed {
		t.Error("destructor was not invoked by RemoveResource")
	}
	if HasResource[rtClock](rt) {
		t.Error("HasResource still true after RemoveResource")
	}
}

func TestResourceTableTeardownRunsAllDestructors(t *testing.T) {
	rt := NewResourceTable()
	var count int
	_, _ = AddResourceWithDestructor(rt, rtConfig{}, func(*rtConfig) { count++ })
	_, _ = AddResourceWithDestructor(rt, rtClock{}, func(*rtClock) { count++ })

	rt.Teardown()

	if count != 2 {
		t.Errorf("Teardown ran %d destructors, want 2", count)
	}
	if HasResource[rtConfig](rt) || HasResource[rtClock](rt) {
		t.Error("resources still present after Teardown")
	}
}
