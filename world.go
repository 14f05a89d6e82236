package tessera

import "unsafe"

// World adds entity-level component semantics on top of an ArchetypeStore
// (section 4.3). It knows nothing about entity id allocation; Manager
// assigns an Entity handle and then drives World to attach its components.
type World struct {
	store *ArchetypeStore
}

// NewWorld creates an empty World.
func NewWorld() *World {
	return &World{store: NewArchetypeStore()}
}

// ComponentSpec carries one component's type identity and a pointer to an
// in-flight value, produced by Comp[T]. It exists because Go forbids
// generic methods, so a variadic "component tuple" has to be built from
// free functions the way design note 1 suggests builder DSLs for systems.
type ComponentSpec struct {
	hash TypeHash
	info typeInfo
	ptr  unsafe.Pointer
}

// Comp captures value's address (safe: Go's escape analysis promotes it to
// the heap because the address outlives this call) and its type identity,
// ready to be copied into a column.
func Comp[T any](value T) ComponentSpec {
	info := typeIdentity[T]()
	return ComponentSpec{hash: info.hash, info: info, ptr: unsafe.Pointer(&value)}
}

func hashesOf(specs []ComponentSpec) []TypeHash {
	out := make([]TypeHash, len(specs))
	for i, s := range specs {
		out[i] = s.hash
	}
	return out
}

// buildInfos resolves typeInfo for every hash in sig, in sig's order. Every
// hash reaching a Signature was registered by a prior typeIdentity[T]()
// call (via Comp, AddComponent, RemoveComponent, or a query descriptor), so
// a miss here means an internal invariant was broken.
func buildInfos(sig Signature) []typeInfo {
	infos := make([]typeInfo, len(sig.hashes))
	for i, h := range sig.hashes {
		info, ok := lookupTypeInfo(h)
		if !ok {
			panic("tessera: unregistered component hash in signature; every hash must be seen via typeIdentity first")
		}
		infos[i] = info
	}
	return infos
}

func payloadsForSig(sig Signature, specs []ComponentSpec) []unsafe.Pointer {
	byHash := make(map[TypeHash]unsafe.Pointer, len(specs))
	for _, s := range specs {
		byHash[s.hash] = s.ptr
	}
	out := make([]unsafe.Pointer, len(sig.hashes))
	for i, h := range sig.hashes {
		out[i] = byHash[h]
	}
	return out
}

// Create attaches the given components to a brand-new (not yet resident)
// entity handle: the fast path of section 4.3.
func (w *World) Create(e Entity, specs ...ComponentSpec) {
	sig := NewSignature(hashesOf(specs)...)
	infos := buildInfos(sig)
	payloads := payloadsForSig(sig, specs)
	w.store.Add(e, sig, infos, payloads)
}

// CreateBatch creates len(entities) rows in one archetype, all carrying the
// same component values, looping the memcpy without re-deriving the target
// archetype each time (section 4.3's add_batch).
func (w *World) CreateBatch(entities []Entity, specs ...ComponentSpec) {
	if len(entities) == 0 {
		return
	}
	sig := NewSignature(hashesOf(specs)...)
	infos := buildInfos(sig)
	payloads := payloadsForSig(sig, specs)
	a := w.store.GetOrCreate(sig, infos)
	for _, e := range entities {
		row := a.appendRow(e, payloads)
		w.store.setLocation(e, a, row)
	}
}

// migrate moves e (resident or not) into newSig, pulling bytes for each
// target column either from overrides (new payload wins) or from e's
// current archetype, copying the latter into a temporary buffer first so
// the bytes survive the source row's removal (section 4.3 slow path).
func (w *World) migrate(e Entity, old *Archetype, row int, resident bool, newSig Signature, newInfos []typeInfo, overrides map[TypeHash]unsafe.Pointer) {
	if resident {
		w.store.requireUnlocked(old)
	}
	payloads := make([]unsafe.Pointer, len(newInfos))
	keepAlive := make([][]byte, len(newInfos))
	for i, info := range newInfos {
		if p, ok := overrides[info.hash]; ok {
			payloads[i] = p
			continue
		}
		if !resident || info.size == 0 {
			continue
		}
		src := old.columnPtr(info.hash, row)
		if src == nil {
			continue
		}
		buf := make([]byte, info.size)
		copy(buf, unsafe.Slice((*byte)(src), info.size))
		keepAlive[i] = buf
		payloads[i] = unsafe.Pointer(&buf[0])
	}
	if resident {
		w.store.Remove(e)
	}
	w.store.Add(e, newSig, newInfos, payloads)
}

// AddComponents merges specs into e's signature (creating e's archetype if
// e wasn't resident yet), new payloads winning over any prior value of the
// same type.
func (w *World) AddComponents(e Entity, specs ...ComponentSpec) {
	old, row, resident := w.store.Get(e)
	newHashes := hashesOf(specs)
	var newSig Signature
	if resident {
		newSig = old.Signature().With(newHashes...)
	} else {
		newSig = NewSignature(newHashes...)
	}
	infos := buildInfos(newSig)
	overrides := make(map[TypeHash]unsafe.Pointer, len(specs))
	for _, s := range specs {
		overrides[s.hash] = s.ptr
	}
	w.migrate(e, old, row, resident, newSig, infos, overrides)
}

// AddComponent is the single-type convenience form of AddComponents,
// matching spec 4.3's add(entity, component_tuple) signature for the
// common one-component case.
func AddComponent[T any](w *World, e Entity, value T) {
	w.AddComponents(e, Comp(value))
}

// RemoveComponent drops T from e's archetype signature via migration,
// no-op if e doesn't carry T (section 4.3).
func RemoveComponent[T any](w *World, e Entity) {
	info := typeIdentity[T]()
	old, row, resident := w.store.Get(e)
	if !resident || !old.Has(info.hash) {
		return
	}
	newSig := old.Signature().Without(info.hash)
	infos := buildInfos(newSig)
	w.migrate(e, old, row, resident, newSig, infos, nil)
}

// GetComponent returns a mutable pointer to e's T, or (nil, false) if e
// doesn't carry one.
func GetComponent[T any](w *World, e Entity) (*T, bool) {
	a, row, ok := w.store.Get(e)
	if !ok {
		return nil, false
	}
	info := typeIdentity[T]()
	ptr := a.columnPtr(info.hash, row)
	if ptr == nil {
		return nil, false
	}
	return (*T)(ptr), true
}

// MustGetComponent is GetComponent but returns ComponentNotFoundError
// instead of a bool, for callers (e.g. a system's Single resolution path)
// that want the error propagated rather than branched on locally.
func MustGetComponent[T any](w *World, e Entity) (*T, error) {
	v, ok := GetComponent[T](w, e)
	if !ok {
		info := typeIdentity[T]()
		return nil, ComponentNotFoundError{TypeName: info.name}
	}
	return v, nil
}

// HasComponent reports whether e carries a T.
func HasComponent[T any](w *World, e Entity) bool {
	a, ok := w.store.GetArchetype(e)
	if !ok {
		return false
	}
	return a.Has(typeIdentity[T]().hash)
}

// ComponentInstance is a snapshot view of one column cell: hash, size, and
// a byte-slice window onto the live column storage. The view must not
// outlive the next structural mutation of the owning archetype (section
// 4.3's get_all_components contract).
type ComponentInstance struct {
	Hash  TypeHash
	Size  uint64
	Bytes []byte
}

// GetAllComponents snapshots every column cell for e, in signature order.
func (w *World) GetAllComponents(e Entity) []ComponentInstance {
	a, row, ok := w.store.Get(e)
	if !ok {
		return nil
	}
	out := make([]ComponentInstance, 0, a.signature.Len())
	for _, h := range a.signature.Hashes() {
		idx, _ := a.ColumnIndex(h)
		col := &a.columns[idx]
		var bytes []byte
		if col.info.size > 0 {
			bytes = unsafe.Slice((*byte)(col.ptr(row)), col.info.size)
		}
		out = append(out, ComponentInstance{Hash: h, Size: uint64(col.info.size), Bytes: bytes})
	}
	return out
}

// Destroy removes e from whatever archetype currently holds it.
func (w *World) Destroy(e Entity) {
	w.store.Remove(e)
}

// Resident reports whether e currently has an archetype.
func (w *World) Resident(e Entity) bool {
	_, ok := w.store.GetArchetype(e)
	return ok
}

// Store exposes the backing ArchetypeStore for the query engine and
// serialization code in this package.
func (w *World) Store() *ArchetypeStore { return w.store }
