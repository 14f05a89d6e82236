package tessera

// resourceEntry mirrors the teacher's notion of an owned, type-hash-keyed
// slot (section 3's ResourceEntry), generalized from Go's type system: the
// value itself is stored as `any`, with an optional destructor captured at
// registration time.
type resourceEntry struct {
	value    any
	typeName string
	destroy  func(any)
}

// ResourceTable is a type-hash-keyed table of singleton values (section
// 4.7). Resources are not components and never appear in archetypes.
type ResourceTable struct {
	entries map[TypeHash]*resourceEntry
}

// NewResourceTable creates an empty table.
func NewResourceTable() *ResourceTable {
	return &ResourceTable{entries: make(map[TypeHash]*resourceEntry)}
}

// AddResource inserts a new T, failing if one is already present.
func AddResource[T any](rt *ResourceTable, value T) (*T, error) {
	info := typeIdentity[T]()
	if _, exists := rt.entries[info.hash]; exists {
		return nil, ResourceAlreadyExistsError{TypeName: info.name}
	}
	boxed := new(T)
	*boxed = value
	rt.entries[info.hash] = &resourceEntry{value: boxed, typeName: info.name}
	return boxed, nil
}

// AddResourceWithDestructor is AddResource plus a cleanup hook invoked by
// RemoveResource or ResourceTable.Teardown.
func AddResourceWithDestructor[T any](rt *ResourceTable, value T, destroy func(*T)) (*T, error) {
	boxed, err := AddResource(rt, value)
	if err != nil {
		return nil, err
	}
	info := typeIdentity[T]()
	rt.entries[info.hash].destroy = func(v any) { destroy(v.(*T)) }
	return boxed, nil
}

// GetResource returns a mutable pointer to the stored T, if any.
func GetResource[T any](rt *ResourceTable) (*T, bool) {
	info := typeIdentity[T]()
	entry, ok := rt.entries[info.hash]
	if !ok {
		return nil, false
	}
	return entry.value.(*T), true
}

// MustGetResource is GetResource but returns ResourceNotFoundError instead
// of a bool, matching the Res[T] system parameter kind's "fail if absent"
// contract (section 4.5).
func MustGetResource[T any](rt *ResourceTable) (*T, error) {
	v, ok := GetResource[T](rt)
	if !ok {
		info := typeIdentity[T]()
		return nil, ResourceNotFoundError{TypeName: info.name}
	}
	return v, nil
}

// HasResource reports whether a T is stored.
func HasResource[T any](rt *ResourceTable) bool {
	_, ok := rt.entries[typeIdentity[T]().hash]
	return ok
}

// RemoveResource deletes the stored T, running its destructor if one was
// registered.
func RemoveResource[T any](rt *ResourceTable) {
	info := typeIdentity[T]()
	entry, ok := rt.entries[info.hash]
	if !ok {
		return
	}
	if entry.destroy != nil {
		entry.destroy(entry.value)
	}
	delete(rt.entries, info.hash)
}

// Teardown runs every remaining resource's destructor, in no particular
// order (section 3: "destroyed at manager teardown").
func (rt *ResourceTable) Teardown() {
	for _, entry := range rt.entries {
		if entry.destroy != nil {
			entry.destroy(entry.value)
		}
	}
	rt.entries = make(map[TypeHash]*resourceEntry)
}
