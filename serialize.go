package tessera

import (
	"encoding/binary"
	"io"
	"reflect"
	"unsafe"
)

var entityFieldListerType = reflect.TypeOf((*EntityFieldLister)(nil)).Elem()

// reflectNewInterface builds a zero-value T (or *T, whichever actually
// implements EntityFieldLister) so entityFieldOffsets can type-assert it
// without needing a live instance of the component.
func reflectNewInterface(rt reflect.Type) any {
	ptr := reflect.New(rt)
	if ptr.Type().Implements(entityFieldListerType) {
		return ptr.Interface()
	}
	if rt.Implements(entityFieldListerType) {
		return ptr.Elem().Interface()
	}
	return nil
}

// EntityFieldLister is the explicit opt-in a component type uses to mark
// which byte offsets within its in-memory layout hold an Entity reference
// (8 bytes: u32 ID followed by u32 Generation), so entity_instance's
// recursive reference-following knows where to look without resorting to
// byte-pattern heuristics (SPEC_FULL's resolution of this Open Question).
// A component with no entity references simply doesn't implement this.
type EntityFieldLister interface {
	EntityFields() []int
}

// writeU64 and readU64 centralize the stream's fixed little-endian width,
// matching section 6's wire format exactly (all fields are u64).
func writeU64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readU64(r io.Reader) (uint64, error) {
	var buf [8]byte
	n, err := io.ReadFull(r, buf[:])
	if err != nil {
		if n > 0 {
			return 0, UnexpectedEndOfStreamError{Wanted: 8, Got: n}
		}
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// WriteComponentInstance writes one component_instance record: u64 hash,
// u64 size, size bytes of raw data (section 6).
func WriteComponentInstance(w io.Writer, hash TypeHash, data []byte) error {
	if err := writeU64(w, uint64(hash)); err != nil {
		return err
	}
	if err := writeU64(w, uint64(len(data))); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	_, err := w.Write(data)
	return err
}

// ReadComponentInstance reads one component_instance record. A hash not
// known to the current process's type registry is still returned: callers
// that don't recognize it must treat it as opaque, per section 6.
func ReadComponentInstance(r io.Reader) (TypeHash, []byte, error) {
	hash, err := readU64(r)
	if err != nil {
		return 0, nil, err
	}
	size, err := readU64(r)
	if err != nil {
		return 0, nil, err
	}
	data := make([]byte, size)
	if size > 0 {
		n, err := io.ReadFull(r, data)
		if err != nil {
			return 0, nil, UnexpectedEndOfStreamError{Wanted: int(size), Got: n}
		}
	}
	return TypeHash(hash), data, nil
}

// WriteComponentStream writes component_stream: u64 count, then that many
// component_instance records, in the given order.
func WriteComponentStream(w io.Writer, components []ComponentInstance) error {
	if err := writeU64(w, uint64(len(components))); err != nil {
		return err
	}
	for _, c := range components {
		if err := WriteComponentInstance(w, c.Hash, c.Bytes); err != nil {
			return err
		}
	}
	return nil
}

// ReadComponentStream reads a full component_stream back into a slice of
// (hash, bytes) pairs.
func ReadComponentStream(r io.Reader) ([]ComponentInstance, error) {
	count, err := readU64(r)
	if err != nil {
		return nil, err
	}
	out := make([]ComponentInstance, 0, count)
	for i := uint64(0); i < count; i++ {
		hash, data, err := ReadComponentInstance(r)
		if err != nil {
			return nil, err
		}
		out = append(out, ComponentInstance{Hash: hash, Size: uint64(len(data)), Bytes: data})
	}
	return out, nil
}

// entityAt reads an Entity value out of a component's raw bytes at a byte
// offset an EntityFieldLister declared.
func entityAt(data []byte, offset int) Entity {
	if offset < 0 || offset+8 > len(data) {
		return NilEntity
	}
	return *(*Entity)(unsafe.Pointer(&data[offset]))
}

// entityFieldOffsets returns the EntityFields() offsets for a component
// type, or nil if it doesn't implement EntityFieldLister.
func entityFieldOffsets(info typeInfo) []int {
	if info.reflected == nil {
		return nil
	}
	probe := reflectNewInterface(info.reflected)
	if lister, ok := probe.(EntityFieldLister); ok {
		return lister.EntityFields()
	}
	return nil
}

// WriteEntityInstance writes entity_instance for e: its component_stream,
// then a recursively-embedded entity_instance for every distinct entity
// reachable via an EntityFieldLister-declared offset. visited guards
// against reference cycles, since the format has no back-reference
// encoding (section 6 describes it as purely recursive).
func WriteEntityInstance(w io.Writer, world *World, e Entity, visited map[Entity]bool) error {
	if visited == nil {
		visited = make(map[Entity]bool)
	}
	visited[e] = true

	components := world.GetAllComponents(e)
	if err := writeU64(w, uint64(len(components))); err != nil {
		return err
	}
	var refs []Entity
	for _, c := range components {
		if err := WriteComponentInstance(w, c.Hash, c.Bytes); err != nil {
			return err
		}
		info, ok := lookupTypeInfo(c.Hash)
		if !ok {
			continue
		}
		for _, off := range entityFieldOffsets(info) {
			ref := entityAt(c.Bytes, off)
			if !ref.IsNil() && !visited[ref] {
				visited[ref] = true
				refs = append(refs, ref)
			}
		}
	}
	if err := writeU64(w, uint64(len(refs))); err != nil {
		return err
	}
	for _, ref := range refs {
		if err := WriteEntityInstance(w, world, ref, visited); err != nil {
			return err
		}
	}
	return nil
}

// DecodedEntity is one node of a decoded entity_instance tree.
type DecodedEntity struct {
	Components []ComponentInstance
	References []DecodedEntity
}

// ReadEntityInstance reads entity_instance back into a DecodedEntity tree;
// it does not re-materialize entities into any World, since the wire
// format carries no id/generation for the root (section 6: component data
// travels opaquely, entity identity is a host concern).
func ReadEntityInstance(r io.Reader) (DecodedEntity, error) {
	var out DecodedEntity
	count, err := readU64(r)
	if err != nil {
		return out, err
	}
	for i := uint64(0); i < count; i++ {
		hash, data, err := ReadComponentInstance(r)
		if err != nil {
			return out, err
		}
		out.Components = append(out.Components, ComponentInstance{Hash: hash, Size: uint64(len(data)), Bytes: data})
	}
	refCount, err := readU64(r)
	if err != nil {
		return out, err
	}
	for i := uint64(0); i < refCount; i++ {
		child, err := ReadEntityInstance(r)
		if err != nil {
			return out, err
		}
		out.References = append(out.References, child)
	}
	return out, nil
}
