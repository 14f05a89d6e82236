package tessera

import (
	"reflect"
	"strings"
)

// Optional marks a query row field as present-if-matched rather than
// required: the archetype need not carry T for the row to match, and
// Value is nil when it doesn't (section 4.4).
type Optional[T any] struct {
	Value *T
}

func (Optional[T]) isOptionalMarker() {}

type optionalMarker interface{ isOptionalMarker() }

var optionalMarkerType = reflect.TypeOf((*optionalMarker)(nil)).Elem()
var entityType = reflect.TypeOf(Entity{})

type fieldKind int

const (
	fieldEntity fieldKind = iota
	fieldRequired
	fieldOptional
)

type fieldBinding struct {
	index     int
	kind      fieldKind
	hash      TypeHash
	elemType  reflect.Type // the component type (T), not the field's own type
	fieldType reflect.Type // the field's declared type (used to build Optional[T] values)
}

// rowDescriptor is the one-time reflective scan of a query row type Row:
// which fields are Entity, which are required *T, which are Optional[T].
// This is tessera's resolution of design note 1's "compile-time reflection
// on user functions" for the query half of the system: Go cannot express a
// heterogeneous tuple natively, so a struct of pointer/Optional fields
// plays the role of both the "named-field struct" and "tuple of types"
// descriptors spec.md section 4.4 distinguishes. Row fields must be
// exported: Item fills them through reflection, which cannot set
// unexported fields.
type rowDescriptor struct {
	rowType  reflect.Type
	bindings []fieldBinding
	include  Signature
}

var rowDescriptorCache = map[reflect.Type]*rowDescriptor{}

func describeRow(rowType reflect.Type) *rowDescriptor {
	if d, ok := rowDescriptorCache[rowType]; ok {
		return d
	}
	d := &rowDescriptor{rowType: rowType}
	var includeHashes []TypeHash
	for i := 0; i < rowType.NumField(); i++ {
		f := rowType.Field(i)
		switch {
		case f.Type == entityType:
			d.bindings = append(d.bindings, fieldBinding{index: i, kind: fieldEntity})
		case f.Type.Kind() == reflect.Ptr:
			elem := f.Type.Elem()
			info := typeIdentityOf(elem)
			d.bindings = append(d.bindings, fieldBinding{index: i, kind: fieldRequired, hash: info.hash, elemType: elem})
			includeHashes = append(includeHashes, info.hash)
		case f.Type.Implements(optionalMarkerType):
			elem := f.Type.Field(0).Type.Elem()
			info := typeIdentityOf(elem)
			d.bindings = append(d.bindings, fieldBinding{index: i, kind: fieldOptional, hash: info.hash, elemType: elem, fieldType: f.Type})
		default:
			panic("tessera: unsupported query row field " + rowType.Name() + "." + f.Name + " of type " + f.Type.String())
		}
	}
	d.include = NewSignature(includeHashes...)
	rowDescriptorCache[rowType] = d
	return d
}

// Query is a compiled, restartable query specification over rows shaped
// like Row (section 4.4). Build it once (typically stored in a Local[...]
// or captured by a system) and call Iter() each time a fresh single-pass
// cursor is needed.
type Query[Row any] struct {
	world   *World
	desc    *rowDescriptor
	exclude Signature
}

// NewQuery compiles a Query over Row, with the given excluded component
// types (section 4.4's exclude descriptor).
func NewQuery[Row any](w *World, exclude ...TypeHash) *Query[Row] {
	var zero Row
	rt := reflect.TypeOf(zero)
	return &Query[Row]{world: w, desc: describeRow(rt), exclude: NewSignature(exclude...)}
}

// Exclude returns the hash of T, for use in NewQuery's exclude list.
func Exclude[T any]() TypeHash {
	return typeIdentity[T]().hash
}

// Iter returns a fresh, single-pass iterator over every row currently
// matching the query (section 4.4's matching algorithm). It is undefined
// behavior to structurally mutate (add/remove/migrate) any archetype the
// iterator has matched while the iterator is live. Each matched archetype
// is locked via ArchetypeStore's per-archetype lock bit until the iterator
// moves past it, and migrating an entity out of a locked archetype
// (AddComponents/RemoveComponent on a resident entity) panics. Create,
// Destroy, and moves into a locked archetype are not checked, and
// archetypes with an id of 64 or more carry no lock bit.
func (q *Query[Row]) Iter() *QueryIter[Row] {
	var matched []*Archetype
	for _, a := range q.world.store.All() {
		if a.RowCount() == 0 {
			continue
		}
		if a.Signature().Superset(q.desc.include) && a.Signature().DisjointFrom(q.exclude) {
			matched = append(matched, a)
			q.world.store.lockArchetype(a)
		}
	}
	return &QueryIter[Row]{desc: q.desc, store: q.world.store, archetypes: matched, archIdx: 0, row: -1}
}

// Count reports how many rows currently match, without yielding them.
func (q *Query[Row]) Count() int {
	it := q.Iter()
	n := 0
	for it.Next() {
		n++
	}
	return n
}

// QueryIter is a finite, single-pass, non-restartable iterator (section
// 4.4's iteration contract). Reconstruct via Query.Iter to iterate again.
type QueryIter[Row any] struct {
	desc       *rowDescriptor
	store      *ArchetypeStore
	archetypes []*Archetype
	archIdx    int
	row        int
	done       bool
}

// Next advances to the next matching row, mirroring the
// storageIndex/entityIndex bookkeeping in the teacher's cursor.go.
func (it *QueryIter[Row]) Next() bool {
	if it.done {
		return false
	}
	for it.archIdx < len(it.archetypes) {
		a := it.archetypes[it.archIdx]
		if it.row+1 < a.RowCount() {
			it.row++
			return true
		}
		it.store.unlockArchetype(a)
		it.archIdx++
		it.row = -1
	}
	it.done = true
	return false
}

// HasNext reports whether a subsequent Next() call would succeed, without
// consuming the current position (section 4.4's has_next).
func (it *QueryIter[Row]) HasNext() bool {
	if it.done || it.archIdx >= len(it.archetypes) {
		return false
	}
	a := it.archetypes[it.archIdx]
	if it.row+1 < a.RowCount() {
		return true
	}
	for i := it.archIdx + 1; i < len(it.archetypes); i++ {
		if it.archetypes[i].RowCount() > 0 {
			return true
		}
	}
	return false
}

// Item builds the current row: a mirror of Row with pointer fields pointed
// at live column storage, Optional fields populated if present, and an
// Entity field filled with the row's handle.
func (it *QueryIter[Row]) Item() Row {
	a := it.archetypes[it.archIdx]
	var out Row
	rv := reflect.ValueOf(&out).Elem()
	for _, b := range it.desc.bindings {
		switch b.kind {
		case fieldEntity:
			rv.Field(b.index).Set(reflect.ValueOf(a.Entities()[it.row]))
		case fieldRequired:
			ptr := a.columnPtr(b.hash, it.row)
			rv.Field(b.index).Set(reflect.NewAt(b.elemType, ptr))
		case fieldOptional:
			optVal := reflect.New(b.fieldType).Elem()
			if ptr := a.columnPtr(b.hash, it.row); ptr != nil {
				optVal.Field(0).Set(reflect.NewAt(b.elemType, ptr))
			}
			rv.Field(b.index).Set(optVal)
		}
	}
	return out
}

// Release drops the iterator's archetype locks without exhausting it, for
// callers that stop iterating early.
func (it *QueryIter[Row]) Release() {
	for ; it.archIdx < len(it.archetypes); it.archIdx++ {
		it.store.unlockArchetype(it.archetypes[it.archIdx])
	}
	it.done = true
}

// Single runs q and requires exactly one matching row, as section 4.5's
// Single[Include,Exclude] parameter kind does.
func Single[Row any](w *World, exclude ...TypeHash) (Row, error) {
	q := NewQuery[Row](w, exclude...)
	it := q.Iter()
	if !it.Next() {
		var zero Row
		return zero, SingleFoundNoMatchesError{Query: queryLabel(it.desc)}
	}
	item := it.Item()
	if it.Next() {
		count := 2
		for it.Next() {
			count++
		}
		return item, SingleFoundMultipleMatchesError{Query: queryLabel(it.desc), Count: count}
	}
	return item, nil
}

func queryLabel(d *rowDescriptor) string {
	var names []string
	for _, b := range d.bindings {
		if b.kind != fieldEntity {
			names = append(names, d.rowType.Field(b.index).Name)
		}
	}
	return d.rowType.Name() + "{" + strings.Join(names, ",") + "}"
}
