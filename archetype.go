package tessera

import "unsafe"

// archetypeID is the storage-local identity of an Archetype; stable for the
// lifetime of the ArchetypeStore that created it (it is never reused even if
// the archetype empties out).
type archetypeID uint32

// column is one component type's contiguous byte buffer for an archetype,
// following design note 3: a type-erased []byte with recorded element size,
// indexed as data[row*size : (row+1)*size]. Grounded on the real Go ECS
// delaneyj-arche's archetype.go, which reaches for unsafe.Pointer over a
// reflect-array buffer for the same reason: Go has no generic "slice of T
// chosen at runtime" primitive, and a byte slice plus a remembered element
// size is the narrow API design note 3 calls for.
type column struct {
	info                 typeInfo
	data                 []byte
	rowCountForZeroSized int
}

func newColumn(info typeInfo) column {
	return column{info: info}
}

func (c *column) len() int {
	if c.info.size == 0 {
		return c.rowCountForZeroSized
	}
	return len(c.data) / int(c.info.size)
}

// ptr returns a pointer to the row's raw bytes. Callers cast via unsafe to
// the column's known element type; the column never exposes this to callers
// outside the package (design note 3's "narrow API").
func (c *column) ptr(row int) unsafe.Pointer {
	if c.info.size == 0 {
		return unsafe.Pointer(&zeroSizedSentinel)
	}
	off := uintptr(row) * c.info.size
	return unsafe.Pointer(&c.data[off])
}

var zeroSizedSentinel byte

// appendZero grows the column by one zeroed row and returns its pointer.
func (c *column) appendZero() unsafe.Pointer {
	if c.info.size == 0 {
		c.rowCountForZeroSized++
		return unsafe.Pointer(&zeroSizedSentinel)
	}
	old := len(c.data)
	c.data = append(c.data, make([]byte, c.info.size)...)
	return unsafe.Pointer(&c.data[old])
}

// set copies size bytes from src into row's slot.
func (c *column) set(row int, src unsafe.Pointer) {
	if c.info.size == 0 {
		return
	}
	dst := c.ptr(row)
	copy(unsafe.Slice((*byte)(dst), c.info.size), unsafe.Slice((*byte)(src), c.info.size))
}

// swapRemove moves the last row into row's slot, then truncates by one row.
// If row is already the last row, this is a pure truncation.
func (c *column) swapRemove(row, last int) {
	if c.info.size == 0 {
		c.rowCountForZeroSized--
		return
	}
	if row != last {
		c.set(row, c.ptr(last))
	}
	c.data = c.data[:len(c.data)-int(c.info.size)]
}

// Archetype holds every entity sharing one exact component-type set, stored
// as one packed entity array plus one column per component (section 3,
// section 4.1). It is passive data: all mutation is driven by the
// ArchetypeStore and World layered on top.
type Archetype struct {
	id          archetypeID
	signature   Signature
	entities    []Entity
	columns     []column
	columnIndex map[TypeHash]int
}

func newArchetypeFor(id archetypeID, sig Signature, infos []typeInfo) *Archetype {
	a := &Archetype{
		id:          id,
		signature:   sig,
		columnIndex: make(map[TypeHash]int, len(infos)),
	}
	for i, info := range infos {
		a.columns = append(a.columns, newColumn(info))
		a.columnIndex[info.hash] = i
	}
	return a
}

// ID returns the archetype's storage-local identity.
func (a *Archetype) ID() uint32 { return uint32(a.id) }

// Signature returns the archetype's sorted component-hash signature.
func (a *Archetype) Signature() Signature { return a.signature }

// RowCount returns the number of live entities (section 8 property 2:
// every column's logical length equals this).
func (a *Archetype) RowCount() int { return len(a.entities) }

// Entities returns the packed entity array; callers must not retain it
// across a mutation of the archetype.
func (a *Archetype) Entities() []Entity { return a.entities }

// ColumnIndex returns the column position of component hash h, if present.
func (a *Archetype) ColumnIndex(h TypeHash) (int, bool) {
	idx, ok := a.columnIndex[h]
	return idx, ok
}

// Has reports whether the archetype's signature carries component hash h.
func (a *Archetype) Has(h TypeHash) bool {
	_, ok := a.columnIndex[h]
	return ok
}

// appendRow appends one entity row, copying payload bytes into each column
// in the archetype's column order. len(payloads) must equal len(a.columns);
// a nil payload leaves that column's new row zeroed (section 4.1).
func (a *Archetype) appendRow(e Entity, payloads []unsafe.Pointer) int {
	row := len(a.entities)
	a.entities = append(a.entities, e)
	for i := range a.columns {
		dst := a.columns[i].appendZero()
		if payloads != nil && payloads[i] != nil {
			sz := a.columns[i].info.size
			if sz > 0 {
				copy(unsafe.Slice((*byte)(dst), sz), unsafe.Slice((*byte)(payloads[i]), sz))
			}
		}
	}
	return row
}

// swapRemove removes row by swapping the last row into its place (or just
// truncating if row is already last), returning the entity that was moved
// into row (or NilEntity if row was last / the only row).
func (a *Archetype) swapRemove(row int) Entity {
	last := len(a.entities) - 1
	if last < 0 {
		return NilEntity
	}
	moved := NilEntity
	if row != last {
		moved = a.entities[last]
		a.entities[row] = moved
	}
	a.entities = a.entities[:last]
	for i := range a.columns {
		a.columns[i].swapRemove(row, last)
	}
	if row == last {
		return NilEntity
	}
	return moved
}

// columnPtr returns a pointer to the row's bytes in the column holding hash
// h, or nil if the archetype has no such column.
func (a *Archetype) columnPtr(h TypeHash, row int) unsafe.Pointer {
	idx, ok := a.columnIndex[h]
	if !ok {
		return nil
	}
	return a.columns[idx].ptr(row)
}
