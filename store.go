package tessera

import (
	"unsafe"

	"github.com/TheBitDrifter/bark"
)

// location is where ArchetypeStore.sparse says an entity currently lives.
type location struct {
	archetype *Archetype
	row       int
}

// ArchetypeStore owns every Archetype for one World and the entity→location
// sparse index (section 4.2). It is the "signature→archetype mapping" leaf
// component from the system overview table, generalized from the teacher's
// storage.archetypes / storage.sparse pairing (storage.go) which delegated
// the actual column bookkeeping to the external table package; here the
// columnar bookkeeping lives in Archetype itself (section 2 names the
// archetype store as the module this spec is actually about).
type ArchetypeStore struct {
	nextID     archetypeID
	byKey      map[string]*Archetype
	all        []*Archetype
	sparse     *SparseSet[location]
	lockedMask uint64 // bit per archetype id currently under cursor iteration
}

// NewArchetypeStore creates an empty store.
func NewArchetypeStore() *ArchetypeStore {
	return &ArchetypeStore{
		byKey:  make(map[string]*Archetype),
		sparse: NewSparseSet[location](),
	}
}

// GetOrCreate returns the archetype for sig, creating it (with empty
// zero-row columns sized per infos) if it doesn't exist yet. infos must be
// in the same order as sig.Hashes(). Every Signature owns its hash slice
// (NewSignature copies its input), and the map key is a view over that
// slice rather than a further copy (section 4.2's ownership rule).
func (s *ArchetypeStore) GetOrCreate(sig Signature, infos []typeInfo) *Archetype {
	key := sig.key()
	if a, ok := s.byKey[key]; ok {
		return a
	}
	s.nextID++
	a := newArchetypeFor(s.nextID, sig, infos)
	s.byKey[key] = a
	s.all = append(s.all, a)
	return a
}

// Lookup returns the archetype for sig without creating one.
func (s *ArchetypeStore) Lookup(sig Signature) (*Archetype, bool) {
	a, ok := s.byKey[sig.key()]
	return a, ok
}

// All returns every archetype the store has ever created (including ones
// that have since emptied out; an empty archetype is still valid storage
// for the next entity that migrates into its signature).
func (s *ArchetypeStore) All() []*Archetype { return s.all }

// Add places entity e into the archetype for sig (creating it if needed),
// copying payloads column-by-column, and records e's new location in the
// sparse index.
func (s *ArchetypeStore) Add(e Entity, sig Signature, infos []typeInfo, payloads []unsafe.Pointer) (*Archetype, int) {
	a := s.GetOrCreate(sig, infos)
	row := a.appendRow(e, payloads)
	s.sparse.Set(e.ID, location{archetype: a, row: row})
	return a, row
}

// Remove deletes e from its archetype, patching the sparse index of
// whichever entity got swapped into e's old row (section 4.2).
func (s *ArchetypeStore) Remove(e Entity) {
	loc, ok := s.sparse.Get(e.ID)
	if !ok {
		return
	}
	moved := loc.archetype.swapRemove(loc.row)
	if !moved.IsNil() {
		s.sparse.Set(moved.ID, location{archetype: loc.archetype, row: loc.row})
	}
	s.sparse.Remove(e.ID)
}

// Get returns e's current (archetype, row), if resident.
func (s *ArchetypeStore) Get(e Entity) (*Archetype, int, bool) {
	loc, ok := s.sparse.Get(e.ID)
	if !ok {
		return nil, 0, false
	}
	return loc.archetype, loc.row, true
}

// GetArchetype returns e's current archetype, if resident.
func (s *ArchetypeStore) GetArchetype(e Entity) (*Archetype, bool) {
	a, _, ok := s.Get(e)
	return a, ok
}

// setLocation is used by migration (world.go) after it moves rows between
// archetypes outside of Add/Remove's normal single-archetype bookkeeping.
func (s *ArchetypeStore) setLocation(e Entity, a *Archetype, row int) {
	s.sparse.Set(e.ID, location{archetype: a, row: row})
}

// lockArchetype marks an archetype as under active cursor iteration so that
// a concurrent structural mutation can be caught (SPEC_FULL's resolution of
// the query-aliasing open question).
func (s *ArchetypeStore) lockArchetype(a *Archetype) {
	if a.id < 64 {
		s.lockedMask |= 1 << a.id
	}
}

func (s *ArchetypeStore) unlockArchetype(a *Archetype) {
	if a.id < 64 {
		s.lockedMask &^= 1 << a.id
	}
}

func (s *ArchetypeStore) requireUnlocked(a *Archetype) {
	if a.id < 64 && s.lockedMask&(1<<a.id) != 0 {
		panic(bark.AddTrace(iterationMutationError{archetypeID: uint32(a.id)}))
	}
}

type iterationMutationError struct{ archetypeID uint32 }

func (e iterationMutationError) Error() string {
	return "structural mutation of an archetype currently under active query iteration"
}
