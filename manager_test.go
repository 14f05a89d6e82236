package tessera

import "testing"

type mgrPosition struct{ X, Y float64 }

func TestManagerIDZeroIsReservedForNilEntity(t *testing.T) {
	m := NewManager()
	e := m.Spawn(Comp(mgrPosition{}))
	if e.ID == 0 {
		t.Error("first spawned entity got id 0, which must be reserved for NilEntity")
	}
	if e.IsNil() {
		t.Error("a freshly spawned entity reported IsNil() = true")
	}
}

func TestManagerSpawnAndIsAlive(t *testing.T) {
	m := NewManager()
	e := m.Spawn(Comp(mgrPosition{X: 1}))
	if !m.IsAlive(e) {
		t.Fatal("IsAlive(e) = false right after Spawn")
	}
}

func TestManagerDestroyBumpsGeneration(t *testing.T) {
	m := NewManager()
	e := m.Spawn(Comp(mgrPosition{}))
	if err := m.Destroy(e); err != nil {
		t.Fatalf("Destroy returned an error: %v", err)
	}
	if m.IsAlive(e) {
		t.Error("IsAlive(e) = true after Destroy")
	}

	e2 := m.Spawn(Comp(mgrPosition{}))
	if e2.ID != e.ID {
		t.Fatalf("expected the destroyed id to be recycled, got a fresh id %d instead of %d", e2.ID, e.ID)
	}
	if e2.Generation == e.Generation {
		t.Error("recycled id did not bump its generation")
	}
	if m.IsAlive(e) {
		t.Error("stale handle with the old generation reports alive after recycling")
	}
}

func TestManagerDestroyNotAliveErrors(t *testing.T) {
	m := NewManager()
	e := m.Spawn(Comp(mgrPosition{}))
	_ = m.Destroy(e)
	if err := m.Destroy(e); err == nil {
		t.Error("double Destroy returned nil error")
	} else if _, ok := err.(EntityNotAliveError); !ok {
		t.Errorf("error = %T, want EntityNotAliveError", err)
	}
}

func TestManagerSpawnBatch(t *testing.T) {
	m := NewManager()
	entities := m.SpawnBatch(5, Comp(mgrPosition{X: 2}))
	if len(entities) != 5 {
		t.Fatalf("SpawnBatch returned %d entities, want 5", len(entities))
	}
	seen := map[Entity]bool{}
	for _, e := range entities {
		if !m.IsAlive(e) {
			t.Errorf("batch entity %v is not alive", e)
		}
		if seen[e] {
			t.Errorf("batch produced a duplicate entity handle %v", e)
		}
		seen[e] = true
	}
}

func TestManagerAddRemoveComponentEmitsChangeEvents(t *testing.T) {
	m := NewManager()
	e := m.Spawn()

	if err := AddComponentM(m, e, mgrPosition{X: 1}); err != nil {
		t.Fatalf("AddComponentM failed: %v", err)
	}
	if m.ComponentAdded().Count() != 1 {
		t.Errorf("componentAdded stream has %d events, want 1", m.ComponentAdded().Count())
	}

	if err := RemoveComponentM[mgrPosition](m, e); err != nil {
		t.Fatalf("RemoveComponentM failed: %v", err)
	}
	if m.ComponentRemoved().Count() != 1 {
		t.Errorf("componentRemoved stream has %d events, want 1", m.ComponentRemoved().Count())
	}
}

func TestManagerAddComponentMOnDeadEntity(t *testing.T) {
	m := NewManager()
	e := m.Spawn()
	_ = m.Destroy(e)
	if err := AddComponentM(m, e, mgrPosition{}); err == nil {
		t.Error("AddComponentM on a dead entity returned nil error")
	}
}

func TestManagerLoggerHookReceivesSpawnEvents(t *testing.T) {
	m := NewManager()
	var calls []string
	m.SetLogger(func(subsystem, msg string, fields ...any) {
		calls = append(calls, subsystem+":"+msg)
	})
	m.Spawn(Comp(mgrPosition{}))
	if len(calls) == 0 {
		t.Error("debug logger hook was never invoked by Spawn")
	}
}
