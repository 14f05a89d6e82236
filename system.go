package tessera

import (
	"fmt"
	"reflect"

	"github.com/TheBitDrifter/bark"
)

// SystemHandle is an opaque identity for a compiled system, minted by every
// CompileSystem call and usable with registry.RunByHandle (section 4.5's
// system caching). Compiling the same function again yields a new handle;
// earlier handles are not looked up or reused.
type SystemHandle uint64

// Res marks a system parameter as a required resource lookup (section
// 4.5). If no T is registered, the parameter resolver returns
// ResourceNotFoundError and the system does not run.
type Res[T any] struct{ Value *T }

// Local holds per-system state that survives across ticks but is private
// to one system, keyed by the system's handle (section 4.5).
type Local[T any] struct{ Value *T }

// EventReader lets a system drain a named event stream without consuming
// it for other readers (section 4.5/4.8).
type EventReader[T any] struct{ store *EventStore[T] }

// Read returns a fresh non-consuming iterator over the stream.
func (r EventReader[T]) Read() *EventIterator[T] { return r.store.Iterator() }

// EventWriter lets a system push onto a named event stream.
type EventWriter[T any] struct{ store *EventStore[T] }

// Write pushes e onto the stream.
func (w EventWriter[T]) Write(e T) { w.store.Push(e) }

// OnAdded carries the manager's component-added stream for T, already
// filtered (section 4.5's "first reader wins" resolution, documented in
// SPEC_FULL as preserved rather than generalized).
type OnAdded[T any] struct{ reader EventReader[ComponentChangeEvent] }

// Iter yields entities that gained T since the last drain.
func (o OnAdded[T]) Iter() []Entity { return filterChangeEvents[T](o.reader) }

// OnRemoved is OnAdded's counterpart for component removal.
type OnRemoved[T any] struct{ reader EventReader[ComponentChangeEvent] }

// Iter yields entities that lost T since the last drain.
func (o OnRemoved[T]) Iter() []Entity { return filterChangeEvents[T](o.reader) }

// StateManager bridges a typed enum E onto the scheduler's string-keyed
// state machine (scheduler.go's Scheduler.states), so State[E]/NextState[E]
// parameters can read or queue a transition without a system ever touching
// the scheduler's plain-string stage keys (section 4.5's State(E)/
// NextState(E) row: "fetch StateManager<E> resource"). It is itself stored
// in the manager's ResourceTable, the same way any other Res[T] is, rather
// than threading a *Scheduler reference through SystemContext.
type StateManager[E any] struct {
	scheduler *Scheduler
	enumName  string
	decode    map[string]E
}

// RegisterTypedState declares E's state machine on s: each value's fmt.Sprint
// form becomes the scheduler's hashed stage key (scheduler.RegisterState),
// and a StateManager[E] resource is installed so State[E]/NextState[E]
// parameters can resolve it. Call BindState[E]/BindNextState[E] once
// alongside this before compiling systems that take either parameter.
func RegisterTypedState[E any](s *Scheduler, values []E) (*StateManager[E], error) {
	name := reflect.TypeOf(*new(E)).Name()
	decode := make(map[string]E, len(values))
	names := make([]string, len(values))
	for i, v := range values {
		key := fmt.Sprint(v)
		decode[key] = v
		names[i] = key
	}
	if err := s.RegisterState(name, names); err != nil {
		return nil, err
	}
	sm := StateManager[E]{scheduler: s, enumName: name, decode: decode}
	return AddResource(s.manager.Resources(), sm)
}

// Current returns the state machine's active value.
func (sm *StateManager[E]) Current() E {
	return sm.decode[sm.scheduler.states[sm.enumName].current]
}

// Set queues (applies immediately; State/NextState's deinit is a no-op per
// section 4.5, so there is nothing left to flush later) a transition to
// value.
func (sm *StateManager[E]) Set(value E) error {
	return sm.scheduler.TransitionTo(sm.enumName, fmt.Sprint(value))
}

// State gives a system read-only access to enum E's currently active value
// (section 4.5's State(E) parameter kind).
type State[E any] struct{ manager *StateManager[E] }

// Current returns the active value.
func (s State[E]) Current() E { return s.manager.Current() }

// NextState lets a system trigger a transition for enum E's state machine,
// applied immediately by Set (section 4.5's NextState(E) parameter kind).
type NextState[E any] struct{ manager *StateManager[E] }

// Set transitions to value.
func (n NextState[E]) Set(value E) error { return n.manager.Set(value) }

func filterChangeEvents[T any](r EventReader[ComponentChangeEvent]) []Entity {
	hash := typeIdentity[T]().hash
	it := r.Read()
	var out []Entity
	for {
		ev, ok := it.Next()
		if !ok {
			break
		}
		if ev.Hash == hash {
			out = append(out, ev.Entity)
			it.MarkHandled()
		}
	}
	return out
}

// registry is the shared, per-Manager bookkeeping the system adapter needs:
// local state slots, named event streams, and a cache of compiled
// SystemFunc adapters keyed by handle.
type registry struct {
	manager *Manager
	locals  map[SystemHandle]map[reflect.Type]any
	events  map[reflect.Type]any // TypeHash-independent: keyed by T's reflect.Type
	cache   map[SystemHandle]*compiledSystem
}

func newRegistry(m *Manager) *registry {
	return &registry{
		manager: m,
		locals:  make(map[SystemHandle]map[reflect.Type]any),
		events:  make(map[reflect.Type]any),
		cache:   make(map[SystemHandle]*compiledSystem),
	}
}

func eventStoreFor[T any](r *registry) *EventStore[T] {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if s, ok := r.events[t]; ok {
		return s.(*EventStore[T])
	}
	s := NewEventStore[T](Config.DefaultEventCapacity)
	r.events[t] = s
	return s
}

func localFor[T any](r *registry, handle SystemHandle) *T {
	slots, ok := r.locals[handle]
	if !ok {
		slots = make(map[reflect.Type]any)
		r.locals[handle] = slots
	}
	t := reflect.TypeOf((*T)(nil)).Elem()
	if v, ok := slots[t]; ok {
		return v.(*T)
	}
	v := new(T)
	slots[t] = v
	return v
}

// SystemFunc is the uniform, post-adaptation shape every registered system
// is reduced to: given a run context, execute one tick.
type SystemFunc func(ctx *SystemContext) error

// SystemContext bundles everything a running system's parameters can
// resolve against: the owning manager, its shared registry, and the
// Commands queue collecting this system's deferred mutations.
type SystemContext struct {
	Manager  *Manager
	registry *registry
	Commands *Commands
	handle   SystemHandle
}

type compiledSystem struct {
	fn      reflect.Value
	resolve []func(*SystemContext) (reflect.Value, error)
}

var nextHandle SystemHandle

func allocHandle() SystemHandle {
	nextHandle++
	return nextHandle
}

// compileParam inspects one parameter type of a system function and
// returns a resolver closure, generalizing spec 4.5's parameter-kind list
// into a type-switch over reflect.Type the way the teacher's factory.go
// switches on table.ElementType.
func compileParam(pt reflect.Type) (func(*SystemContext) (reflect.Value, error), error) {
	switch {
	case pt == reflect.TypeOf(&Manager{}):
		return func(ctx *SystemContext) (reflect.Value, error) {
			return reflect.ValueOf(ctx.Manager), nil
		}, nil
	case pt == reflect.TypeOf(&Commands{}):
		return func(ctx *SystemContext) (reflect.Value, error) {
			return reflect.ValueOf(ctx.Commands), nil
		}, nil
	case pt == reflect.TypeOf(&RelationManager{}):
		return func(ctx *SystemContext) (reflect.Value, error) {
			return reflect.ValueOf(ctx.Manager.Relations()), nil
		}, nil
	}
	if resolver, ok := genericParamResolvers[pt]; ok {
		return resolver, nil
	}
	panic(bark.AddTrace(unsupportedSystemParamError{Type: pt.String()}))
}

type unsupportedSystemParamError struct{ Type string }

func (e unsupportedSystemParamError) Error() string {
	return "tessera: unsupported system parameter type " + e.Type
}

// genericParamResolvers is populated by the explicit Bind* calls (BindRes,
// BindLocal, BindQuery, ...), one entry per concrete instantiation, since Go
// cannot range over "every instantiation of a generic type" via reflection
// alone.
var genericParamResolvers = map[reflect.Type]func(*SystemContext) (reflect.Value, error){}

// BindRes registers the resolver for Res[T]. Call once per T used by any
// system before compiling that system.
func BindRes[T any]() {
	pt := reflect.TypeOf(Res[T]{})
	genericParamResolvers[pt] = func(ctx *SystemContext) (reflect.Value, error) {
		v, err := MustGetResource[T](ctx.Manager.Resources())
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(Res[T]{Value: v}), nil
	}
}

// BindLocal registers the resolver for Local[T].
func BindLocal[T any]() {
	pt := reflect.TypeOf(Local[T]{})
	genericParamResolvers[pt] = func(ctx *SystemContext) (reflect.Value, error) {
		v := localFor[T](ctx.registry, ctx.handle)
		return reflect.ValueOf(Local[T]{Value: v}), nil
	}
}

// BindEventReader registers the resolver for EventReader[T].
func BindEventReader[T any]() {
	pt := reflect.TypeOf(EventReader[T]{})
	genericParamResolvers[pt] = func(ctx *SystemContext) (reflect.Value, error) {
		return reflect.ValueOf(EventReader[T]{store: eventStoreFor[T](ctx.registry)}), nil
	}
}

// BindEventWriter registers the resolver for EventWriter[T].
func BindEventWriter[T any]() {
	pt := reflect.TypeOf(EventWriter[T]{})
	genericParamResolvers[pt] = func(ctx *SystemContext) (reflect.Value, error) {
		return reflect.ValueOf(EventWriter[T]{store: eventStoreFor[T](ctx.registry)}), nil
	}
}

// BindOnAdded registers the resolver for OnAdded[T].
func BindOnAdded[T any]() {
	pt := reflect.TypeOf(OnAdded[T]{})
	genericParamResolvers[pt] = func(ctx *SystemContext) (reflect.Value, error) {
		return reflect.ValueOf(OnAdded[T]{reader: EventReader[ComponentChangeEvent]{store: ctx.Manager.ComponentAdded()}}), nil
	}
}

// BindOnRemoved registers the resolver for OnRemoved[T].
func BindOnRemoved[T any]() {
	pt := reflect.TypeOf(OnRemoved[T]{})
	genericParamResolvers[pt] = func(ctx *SystemContext) (reflect.Value, error) {
		return reflect.ValueOf(OnRemoved[T]{reader: EventReader[ComponentChangeEvent]{store: ctx.Manager.ComponentRemoved()}}), nil
	}
}

// BindState registers the resolver for State[E]. Call once per E after
// RegisterTypedState[E] and before compiling a system that takes State[E].
func BindState[E any]() {
	pt := reflect.TypeOf(State[E]{})
	genericParamResolvers[pt] = func(ctx *SystemContext) (reflect.Value, error) {
		sm, err := MustGetResource[StateManager[E]](ctx.Manager.Resources())
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(State[E]{manager: sm}), nil
	}
}

// BindNextState registers the resolver for NextState[E].
func BindNextState[E any]() {
	pt := reflect.TypeOf(NextState[E]{})
	genericParamResolvers[pt] = func(ctx *SystemContext) (reflect.Value, error) {
		sm, err := MustGetResource[StateManager[E]](ctx.Manager.Resources())
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(NextState[E]{manager: sm}), nil
	}
}

func bindQuery[Row any]() {
	pt := reflect.TypeOf((*Query[Row])(nil))
	genericParamResolvers[pt] = func(ctx *SystemContext) (reflect.Value, error) {
		return reflect.ValueOf(NewQuery[Row](ctx.Manager.World())), nil
	}
}

// BindQuery registers the resolver for a *Query[Row] parameter; callers
// must call this (and the other Bind* functions for parameter kinds their
// system uses) once at startup before compiling systems that use Row,
// mirroring the teacher's explicit `storage.Register(...)` call before a
// component type can appear in a query (storage.go's Register method).
// Single[Row] has no injected-parameter form: call the Single function
// directly from inside a system body instead.
func BindQuery[Row any]() {
	bindQuery[Row]()
}

// CompileSystem reflects over fn's parameter list, resolving each against
// the registered parameter-kind binders, and returns a SystemFunc plus its
// stable handle (section 4.5). fn must be a func taking only recognized
// parameter kinds and returning error or nothing.
func CompileSystem(r *registry, fn any) (SystemHandle, SystemFunc, error) {
	handle := allocHandle()
	fv := reflect.ValueOf(fn)
	ft := fv.Type()
	resolvers := make([]func(*SystemContext) (reflect.Value, error), ft.NumIn())
	for i := 0; i < ft.NumIn(); i++ {
		resolver, err := compileParam(ft.In(i))
		if err != nil {
			return 0, nil, err
		}
		resolvers[i] = resolver
	}
	compiled := &compiledSystem{fn: fv, resolve: resolvers}
	r.cache[handle] = compiled
	sf := func(ctx *SystemContext) error {
		ctx.handle = handle
		args := make([]reflect.Value, len(compiled.resolve))
		for i, resolve := range compiled.resolve {
			v, err := resolve(ctx)
			if err != nil {
				return err
			}
			args[i] = v
		}
		out := compiled.fn.Call(args)
		if len(out) == 1 && !out[0].IsNil() {
			return out[0].Interface().(error)
		}
		return nil
	}
	return handle, sf, nil
}

// RunByHandle looks up a previously compiled system by its cached handle
// and runs it, for callers that persisted a SystemHandle (e.g. across a
// save/reload cycle) rather than the SystemFunc closure itself (section
// 4.5's system caching).
func (r *registry) RunByHandle(handle SystemHandle, ctx *SystemContext) error {
	compiled, ok := r.cache[handle]
	if !ok {
		return InvalidSystemHandleError{Handle: handle}
	}
	ctx.handle = handle
	args := make([]reflect.Value, len(compiled.resolve))
	for i, resolve := range compiled.resolve {
		v, err := resolve(ctx)
		if err != nil {
			return err
		}
		args[i] = v
	}
	out := compiled.fn.Call(args)
	if len(out) == 1 && !out[0].IsNil() {
		return out[0].Interface().(error)
	}
	return nil
}

// Pipe runs a, then b, short-circuiting if a returns an error (section
// 4.5's system composition).
func Pipe(a, b SystemFunc) SystemFunc {
	return func(ctx *SystemContext) error {
		if err := a(ctx); err != nil {
			return err
		}
		return b(ctx)
	}
}

// Chain runs every system in order, short-circuiting on the first error.
func Chain(systems ...SystemFunc) SystemFunc {
	return func(ctx *SystemContext) error {
		for _, s := range systems {
			if err := s(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

// RunIf wraps s so it only executes when cond(ctx) is true.
func RunIf(cond func(ctx *SystemContext) bool, s SystemFunc) SystemFunc {
	return func(ctx *SystemContext) error {
		if !cond(ctx) {
			return nil
		}
		return s(ctx)
	}
}
