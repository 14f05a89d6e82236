package tessera

// command is one deferred mutation, generalizing the teacher's
// EntityOperation interface (operation_queue.go) from a Storage-typed Apply
// to a Manager-typed one, since tessera's deferred ops can touch resources
// and relations, not just archetype membership.
type command interface {
	apply(m *Manager)
}

// Commands is the deferred-mutation queue passed to systems that declare a
// Commands parameter (section 4.10). Queued commands run in FIFO order when
// the system that collected them returns (section 4.5: Commands's deinit is
// "flush queued operations", scoped to the system, not the stage).
type Commands struct {
	ops []command
}

// NewCommands creates an empty queue.
func NewCommands() *Commands {
	return &Commands{}
}

// Flush applies every queued command in order against m, then clears the
// queue, mirroring entityOperationsQueue.ProcessAll.
func (c *Commands) Flush(m *Manager) {
	ops := c.ops
	c.ops = nil
	for _, op := range ops {
		op.apply(m)
	}
}

// Pending reports how many commands are queued.
func (c *Commands) Pending() int { return len(c.ops) }

type spawnCommand struct {
	specs []ComponentSpec
}

func (op spawnCommand) apply(m *Manager) {
	m.Spawn(op.specs...)
}

// Spawn queues creation of a new entity with the given components.
func (c *Commands) Spawn(specs ...ComponentSpec) {
	c.ops = append(c.ops, spawnCommand{specs: specs})
}

type destroyCommand struct{ entity Entity }

func (op destroyCommand) apply(m *Manager) { m.Destroy(op.entity) }

// Destroy queues destruction of e.
func (c *Commands) Destroy(e Entity) {
	c.ops = append(c.ops, destroyCommand{entity: e})
}

type addComponentsCommand struct {
	entity Entity
	specs  []ComponentSpec
}

func (op addComponentsCommand) apply(m *Manager) {
	m.World().AddComponents(op.entity, op.specs...)
}

// AddComponents queues attaching specs to e.
func (c *Commands) AddComponents(e Entity, specs ...ComponentSpec) {
	c.ops = append(c.ops, addComponentsCommand{entity: e, specs: specs})
}

type removeComponentFunc struct {
	entity Entity
	remove func(*World, Entity)
}

func (op removeComponentFunc) apply(m *Manager) { op.remove(m.World(), op.entity) }

// RemoveComponentCmd queues dropping T from e.
func RemoveComponentCmd[T any](c *Commands, e Entity) {
	c.ops = append(c.ops, removeComponentFunc{entity: e, remove: RemoveComponent[T]})
}

// resourceCmdFunc queues an arbitrary resource-table mutation, the resource
// counterpart of removeComponentFunc: one wrapper type, one closure per call
// site, rather than a distinct command struct per T.
type resourceCmdFunc struct {
	fn func(*Manager)
}

func (op resourceCmdFunc) apply(m *Manager) { op.fn(m) }

// AddResourceCmd queues inserting value as a new T resource (section 4.10's
// add-resource operation). A resource already present for T at flush time
// makes the queued AddResource fail silently, matching Commands's
// best-effort apply style elsewhere (no per-op error channel back to the
// caller).
func AddResourceCmd[T any](c *Commands, value T) {
	c.ops = append(c.ops, resourceCmdFunc{fn: func(m *Manager) {
		_, _ = AddResource(m.Resources(), value)
	}})
}

// RemoveResourceCmd queues dropping the stored T resource.
func RemoveResourceCmd[T any](c *Commands) {
	c.ops = append(c.ops, resourceCmdFunc{fn: func(m *Manager) {
		RemoveResource[T](m.Resources())
	}})
}

// relationCmd queues an add/add-with-data/remove against a named relation
// (section 4.10's add/remove-relation operations). Relations are
// string-keyed rather than generic (relation.go's RelationManager), so one
// struct covers all three shapes instead of a generic helper per T.
type relationCmd struct {
	name        string
	src, target Entity
	data        any
	hasData     bool
	remove      bool
}

func (op relationCmd) apply(m *Manager) {
	switch {
	case op.remove:
		_ = m.Relations().Remove(op.name, op.src, op.target)
	case op.hasData:
		_ = m.Relations().AddWithData(op.name, op.src, op.target, op.data)
	default:
		_ = m.Relations().Add(op.name, op.src, op.target)
	}
}

// AddRelation queues attaching a src -> target edge under name.
func (c *Commands) AddRelation(name string, src, target Entity) {
	c.ops = append(c.ops, relationCmd{name: name, src: src, target: target})
}

// AddRelationWithData is AddRelation plus a carried payload.
func (c *Commands) AddRelationWithData(name string, src, target Entity, data any) {
	c.ops = append(c.ops, relationCmd{name: name, src: src, target: target, data: data, hasData: true})
}

// RemoveRelation queues dropping the src -> target edge under name.
func (c *Commands) RemoveRelation(name string, src, target Entity) {
	c.ops = append(c.ops, relationCmd{name: name, src: src, target: target, remove: true})
}

// EntityCommands chains several deferred operations against one entity
// (section 4.10's fluent builder). Built via Commands.Entity, the target
// entity already exists and known is true from the start. Built via
// Commands.SpawnChain, it is the "pending entity" handle section 4.10
// describes: known stays false and every With/Without/Despawn call is held
// in deferred until spawnChainCommand.apply creates the real entity at
// flush and replays them against it in call order.
type EntityCommands struct {
	queue    *Commands
	entity   Entity
	known    bool
	deferred []func(*Manager, Entity)
}

// Entity queues chained operations against an already-existing e.
func (c *Commands) Entity(e Entity) *EntityCommands {
	return &EntityCommands{queue: c, entity: e, known: true}
}

type spawnChainCommand struct {
	specs []ComponentSpec
	chain *EntityCommands
}

func (op spawnChainCommand) apply(m *Manager) {
	e := m.Spawn(op.specs...)
	op.chain.entity = e
	op.chain.known = true
	for _, sub := range op.chain.deferred {
		sub(m, e)
	}
	op.chain.deferred = nil
}

// SpawnChain queues creation of a new entity with specs and returns a
// not-yet-resolved EntityCommands for it (section 4.10's deferred create):
// flush first creates the underlying entity, then applies every chained
// With/Without/Despawn call against it, in the order they were chained.
func (c *Commands) SpawnChain(specs ...ComponentSpec) *EntityCommands {
	ec := &EntityCommands{queue: c}
	c.ops = append(c.ops, spawnChainCommand{specs: specs, chain: ec})
	return ec
}

// Resolved reports the chain's real entity, valid once its SpawnChain
// command has been flushed (always true for a chain built via
// Commands.Entity, since that entity already existed).
func (ec *EntityCommands) Resolved() (Entity, bool) { return ec.entity, ec.known }

// With queues attaching specs to the chain's entity, immediately if it's
// already known, deferred until creation otherwise.
func (ec *EntityCommands) With(specs ...ComponentSpec) *EntityCommands {
	if ec.known {
		ec.queue.AddComponents(ec.entity, specs...)
		return ec
	}
	ec.deferred = append(ec.deferred, func(m *Manager, e Entity) {
		m.World().AddComponents(e, specs...)
	})
	return ec
}

// Without queues removal of T from the chain's entity, immediately if it's
// already known, deferred until creation otherwise.
func Without[T any](ec *EntityCommands) *EntityCommands {
	if ec.known {
		RemoveComponentCmd[T](ec.queue, ec.entity)
		return ec
	}
	ec.deferred = append(ec.deferred, func(m *Manager, e Entity) {
		RemoveComponent[T](m.World(), e)
	})
	return ec
}

// Despawn queues destruction of the chain's entity, immediately if it's
// already known, deferred until creation otherwise.
func (ec *EntityCommands) Despawn() {
	if ec.known {
		ec.queue.Destroy(ec.entity)
		return
	}
	ec.deferred = append(ec.deferred, func(m *Manager, e Entity) {
		m.Destroy(e)
	})
}
