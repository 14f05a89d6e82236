package tessera

// RelationKind distinguishes the two relation shapes section 4.9 requires:
// Exclusive caps a source entity at one target edge, replacing any prior
// one; non-exclusive (Indexed) permits many target edges per source and
// builds a reverse (target -> sources) index on demand.
type RelationKind int

const (
	RelationIndexed RelationKind = iota
	RelationExclusive
)

type relationEdge struct {
	target Entity
	data   any
}

// relationType is one named relation's bookkeeping. Forward storage
// (source -> edges) always exists, matching the spec's framing of
// Relation<K> as a component attached to the source entity: get_parent is
// just a forward lookup. The reverse index (target -> sources), needed
// only for get_children, is built lazily from forward the first time a
// Indexed relation's reverse lookup is requested (section 4.9: "indices
// are created lazily on first use"), then kept in sync by every later
// mutation.
type relationType struct {
	kind         RelationKind
	forward      map[uint32][]relationEdge // source.ID -> edges
	reverseBuilt bool
	reverse      map[uint32][]Entity // target.ID -> source entities
}

func newRelationType(kind RelationKind) *relationType {
	return &relationType{kind: kind, forward: make(map[uint32][]relationEdge)}
}

func (rt *relationType) ensureReverse() {
	if rt.reverseBuilt {
		return
	}
	rt.reverse = make(map[uint32][]Entity)
	for srcID, edges := range rt.forward {
		for _, e := range edges {
			rt.reverse[e.target.ID] = append(rt.reverse[e.target.ID], Entity{ID: srcID})
		}
	}
	rt.reverseBuilt = true
}

// RelationManager owns every named relation registered for a World (section
// 4.9). Names are plain strings rather than a typed handle, mirroring the
// teacher's preference for small string-keyed registries over a dedicated
// handle type (component.go's name-keyed component registry).
type RelationManager struct {
	relations map[string]*relationType
}

// NewRelationManager creates an empty manager.
func NewRelationManager() *RelationManager {
	return &RelationManager{relations: make(map[string]*relationType)}
}

// Register declares a named relation of the given kind. Re-registering an
// existing name under the same kind is a no-op; under a different kind it
// fails with RelationNotIndexedError.
func (rm *RelationManager) Register(name string, kind RelationKind) error {
	if existing, ok := rm.relations[name]; ok {
		if existing.kind != kind {
			return RelationNotIndexedError{TypeName: name}
		}
		return nil
	}
	rm.relations[name] = newRelationType(kind)
	return nil
}

func (rm *RelationManager) require(name string) (*relationType, error) {
	rt, ok := rm.relations[name]
	if !ok {
		return nil, RelationNotIndexedError{TypeName: name}
	}
	return rt, nil
}

// Add attaches a src -> target edge under name (section 4.9's add). For an
// Exclusive relation, a prior edge from src is replaced.
func (rm *RelationManager) Add(name string, src, target Entity) error {
	return rm.AddWithData(name, src, target, nil)
}

// AddWithData is Add plus an arbitrary payload carried on the edge.
func (rm *RelationManager) AddWithData(name string, src, target Entity, data any) error {
	rt, err := rm.require(name)
	if err != nil {
		return err
	}
	if rt.kind == RelationExclusive {
		if existing := rt.forward[src.ID]; len(existing) > 0 {
			rm.removeEdge(rt, src, existing[0].target)
		}
	}
	return rm.insertEdge(rt, src, target, data)
}

func (rm *RelationManager) insertEdge(rt *relationType, src, target Entity, data any) error {
	rt.forward[src.ID] = append(rt.forward[src.ID], relationEdge{target: target, data: data})
	if rt.reverseBuilt {
		rt.reverse[target.ID] = append(rt.reverse[target.ID], src)
	}
	return nil
}

func (rm *RelationManager) removeEdge(rt *relationType, src, target Entity) {
	edges := rt.forward[src.ID]
	for i, e := range edges {
		if e.target == target {
			rt.forward[src.ID] = append(edges[:i], edges[i+1:]...)
			break
		}
	}
	if len(rt.forward[src.ID]) == 0 {
		delete(rt.forward, src.ID)
	}
	if rt.reverseBuilt {
		srcs := rt.reverse[target.ID]
		for i, s := range srcs {
			if s == src {
				rt.reverse[target.ID] = append(srcs[:i], srcs[i+1:]...)
				break
			}
		}
		if len(rt.reverse[target.ID]) == 0 {
			delete(rt.reverse, target.ID)
		}
	}
}

// Remove deletes the src -> target edge under name, if present.
func (rm *RelationManager) Remove(name string, src, target Entity) error {
	rt, err := rm.require(name)
	if err != nil {
		return err
	}
	rm.removeEdge(rt, src, target)
	return nil
}

// RemoveEntity strips e from every edge of every registered relation, as
// either source or target (section 4.9: called when an entity is
// destroyed).
func (rm *RelationManager) RemoveEntity(e Entity) {
	for _, rt := range rm.relations {
		delete(rt.forward, e.ID)
		for srcID, edges := range rt.forward {
			filtered := edges[:0]
			for _, edge := range edges {
				if edge.target != e {
					filtered = append(filtered, edge)
				}
			}
			if len(filtered) == 0 {
				delete(rt.forward, srcID)
			} else {
				rt.forward[srcID] = filtered
			}
		}
		if rt.reverseBuilt {
			delete(rt.reverse, e.ID)
			for targetID, srcs := range rt.reverse {
				filtered := srcs[:0]
				for _, s := range srcs {
					if s != e {
						filtered = append(filtered, s)
					}
				}
				if len(filtered) == 0 {
					delete(rt.reverse, targetID)
				} else {
					rt.reverse[targetID] = filtered
				}
			}
		}
	}
}

// GetParent returns src's single target under an Exclusive relation.
func (rm *RelationManager) GetParent(name string, src Entity) (Entity, bool, error) {
	rt, err := rm.require(name)
	if err != nil {
		return NilEntity, false, err
	}
	edges := rt.forward[src.ID]
	if len(edges) == 0 {
		return NilEntity, false, nil
	}
	return edges[0].target, true, nil
}

// GetParents returns every target src points to under a non-exclusive
// relation.
func (rm *RelationManager) GetParents(name string, src Entity) ([]Entity, error) {
	rt, err := rm.require(name)
	if err != nil {
		return nil, err
	}
	edges := rt.forward[src.ID]
	out := make([]Entity, len(edges))
	for i, e := range edges {
		out[i] = e.target
	}
	return out, nil
}

// GetChildren returns every source pointing at target under name. Requires
// an Indexed relation (section 4.9).
func (rm *RelationManager) GetChildren(name string, target Entity) ([]Entity, error) {
	rt, err := rm.require(name)
	if err != nil {
		return nil, err
	}
	if rt.kind != RelationIndexed {
		return nil, RelationNotIndexedError{TypeName: name}
	}
	rt.ensureReverse()
	return append([]Entity(nil), rt.reverse[target.ID]...), nil
}

// Has reports whether an edge src -> target exists under name.
func (rm *RelationManager) Has(name string, src, target Entity) (bool, error) {
	rt, err := rm.require(name)
	if err != nil {
		return false, err
	}
	for _, e := range rt.forward[src.ID] {
		if e.target == target {
			return true, nil
		}
	}
	return false, nil
}

// IndexCount reports the number of relation kinds that currently have a
// built reverse index (section 4.9's diagnostic index_count).
func (rm *RelationManager) IndexCount() int {
	n := 0
	for _, rt := range rm.relations {
		if rt.reverseBuilt {
			n++
		}
	}
	return n
}
