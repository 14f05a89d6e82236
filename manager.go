package tessera

// DebugLogger is the pluggable diagnostics hook SPEC_FULL's ambient logging
// section describes. Manager.Spawn reports each new entity through it, and
// plugins may call it too; nothing is emitted unless a host wires one in
// (section 7: no stderr side effects in the core).
type DebugLogger func(subsystem, msg string, fields ...any)

// entitySlot tracks one id's current generation and liveness, the
// generational-index scheme section 3 names for Entity validity checks.
type entitySlot struct {
	generation uint32
	alive      bool
}

// Manager is the top-level facade spec section 2/3 describes: entity id and
// generation lifecycle with a free list, owning the World, resource table,
// relation manager, and the component-added/removed event streams. The
// Scheduler (scheduler.go) is built on top of a Manager and holds the
// system registry and the registered event streams itself.
type Manager struct {
	slots            []entitySlot
	freeIDs          []uint32
	world            *World
	resources        *ResourceTable
	relations        *RelationManager
	componentAdded   *EventStore[ComponentChangeEvent]
	componentRemoved *EventStore[ComponentChangeEvent]
	logger           DebugLogger
}

// ComponentChangeEvent is pushed to the manager's componentAdded/Removed
// streams whenever AddComponentM/RemoveComponentM are called on a live entity,
// feeding the OnAdded[T]/OnRemoved[T] system parameter kinds (section 4.5).
type ComponentChangeEvent struct {
	Entity Entity
	Hash   TypeHash
}

// NewManager creates an empty manager with no logger attached.
func NewManager() *Manager {
	return &Manager{
		world:            NewWorld(),
		resources:        NewResourceTable(),
		relations:        NewRelationManager(),
		componentAdded:   NewEventStore[ComponentChangeEvent](Config.DefaultEventCapacity),
		componentRemoved: NewEventStore[ComponentChangeEvent](Config.DefaultEventCapacity),
		logger:           Config.Logger,
	}
}

// SetLogger installs the debug logging hook, overriding whatever Config's
// package-wide default provided.
func (m *Manager) SetLogger(l DebugLogger) { m.logger = l }

func (m *Manager) log(subsystem, msg string, fields ...any) {
	if m.logger != nil {
		m.logger(subsystem, msg, fields...)
	}
}

// World exposes the archetype-level API.
func (m *Manager) World() *World { return m.world }

// Resources exposes the resource table.
func (m *Manager) Resources() *ResourceTable { return m.resources }

// Relations exposes the relation manager.
func (m *Manager) Relations() *RelationManager { return m.relations }

// allocate returns a fresh or recycled Entity handle, without attaching it
// to any archetype yet (mirrors the teacher's entity.go id/recycled
// counters, generalized to an explicit free-list slice rather than a
// packed bitfield).
func (m *Manager) allocate() Entity {
	if len(m.slots) == 0 {
		// id 0 is reserved so the zero-value Entity{} (NilEntity) never
		// identifies a live entity.
		m.slots = append(m.slots, entitySlot{})
	}
	if n := len(m.freeIDs); n > 0 {
		id := m.freeIDs[n-1]
		m.freeIDs = m.freeIDs[:n-1]
		slot := &m.slots[id]
		slot.alive = true
		return Entity{ID: id, Generation: slot.generation}
	}
	id := uint32(len(m.slots))
	m.slots = append(m.slots, entitySlot{generation: 0, alive: true})
	return Entity{ID: id, Generation: 0}
}

// IsAlive reports whether e's generation still matches the manager's
// record for e.ID (section 3's generational validity check).
func (m *Manager) IsAlive(e Entity) bool {
	if e.ID >= uint32(len(m.slots)) {
		return false
	}
	slot := m.slots[e.ID]
	return slot.alive && slot.generation == e.Generation
}

// Spawn allocates a new entity and attaches the given components.
func (m *Manager) Spawn(specs ...ComponentSpec) Entity {
	e := m.allocate()
	m.world.Create(e, specs...)
	m.log("manager", "spawn", "entity", e)
	return e
}

// SpawnBatch allocates count entities sharing the same component values.
func (m *Manager) SpawnBatch(count int, specs ...ComponentSpec) []Entity {
	entities := make([]Entity, count)
	for i := range entities {
		entities[i] = m.allocate()
	}
	m.world.CreateBatch(entities, specs...)
	return entities
}

// Destroy removes e from its archetype (if resident), strips it from every
// relation, and bumps its generation so stale handles fail IsAlive.
func (m *Manager) Destroy(e Entity) error {
	if !m.IsAlive(e) {
		return EntityNotAliveError{Entity: e}
	}
	m.world.Destroy(e)
	m.relations.RemoveEntity(e)
	slot := &m.slots[e.ID]
	slot.alive = false
	slot.generation++
	m.freeIDs = append(m.freeIDs, e.ID)
	return nil
}

// AddComponentM attaches T to e and records a ComponentChangeEvent.
func AddComponentM[T any](m *Manager, e Entity, value T) error {
	if !m.IsAlive(e) {
		return EntityNotAliveError{Entity: e}
	}
	AddComponent(m.world, e, value)
	m.componentAdded.Push(ComponentChangeEvent{Entity: e, Hash: typeIdentity[T]().hash})
	return nil
}

// RemoveComponentM drops T from e and records a ComponentChangeEvent.
func RemoveComponentM[T any](m *Manager, e Entity) error {
	if !m.IsAlive(e) {
		return EntityNotAliveError{Entity: e}
	}
	RemoveComponent[T](m.world, e)
	m.componentRemoved.Push(ComponentChangeEvent{Entity: e, Hash: typeIdentity[T]().hash})
	return nil
}

// ComponentAdded exposes the component-added event stream for OnAdded[T]
// parameter resolution.
func (m *Manager) ComponentAdded() *EventStore[ComponentChangeEvent] { return m.componentAdded }

// ComponentRemoved exposes the component-removed event stream for
// OnRemoved[T] parameter resolution.
func (m *Manager) ComponentRemoved() *EventStore[ComponentChangeEvent] { return m.componentRemoved }
