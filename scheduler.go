package tessera

import (
	"hash/fnv"
	"sort"
)

// Stage priorities occupy a gap-spaced number line so user stages can be
// inserted between built-ins (section 4.6).
const (
	StageMin             int32 = 0
	StageStartup         int32 = 1000
	StageFirst           int32 = 100000
	StagePreUpdate       int32 = 200000
	StageUpdate          int32 = 300000
	StagePostUpdate      int32 = 400000
	StagePreDraw         int32 = 500000
	StageDraw            int32 = 600000
	StagePostDraw        int32 = 700000
	StageStateTransition int32 = 1000000
	StageStateOnExit     int32 = 1100000
	StageStateOnEnter    int32 = 1200000
	StageStateUpdate     int32 = 1300000
	StageLast            int32 = 2147483646
	StageExit            int32 = 2147483647
)

// customStageRangeStart is where user stage-name hashes land (section 4.6).
const customStageRangeStart int32 = 2000000

// stateRangeWidth is the modulo applied to the (enum, value) hash before
// it's placed within StageStateOnExit/StageStateOnEnter/StageStateUpdate, matching the "100k-slot
// modulo per range" the spec's open question names as the accepted
// collision trade-off. tessera detects rather than silently absorbs it
// (SPEC_FULL's Open Question decision).
const stateRangeWidth = 100000

type stage struct {
	priority int32
	systems  []SystemFunc
}

// Scheduler runs stages of systems in ascending priority order (section
// 4.6), and layers a single-active-value-per-enum state machine on top
// whose OnEnter/OnExit hooks are themselves ordinary stages at deterministic
// hashed priorities.
type Scheduler struct {
	manager *Manager
	reg     *registry
	stages  map[int32]*stage
	order   []int32 // kept sorted; re-sorted on every AddStage

	states       map[string]stateTrack // enum type name -> current value
	stateOrigins map[int32]string      // priority -> "EnumType.Value" label, for collision errors
}

type stateTrack struct {
	typeName string
	current  string
	hasValue bool
}

// NewScheduler creates a scheduler with every built-in stage pre-registered.
func NewScheduler(m *Manager) *Scheduler {
	s := &Scheduler{
		manager:      m,
		reg:          newRegistry(m),
		stages:       make(map[int32]*stage),
		states:       make(map[string]stateTrack),
		stateOrigins: make(map[int32]string),
	}
	for _, p := range []int32{
		StageMin, StageStartup, StageFirst, StagePreUpdate, StageUpdate,
		StagePostUpdate, StagePreDraw, StageDraw, StagePostDraw,
		StageStateTransition, StageStateOnExit, StageStateOnEnter, StageStateUpdate,
		StageLast, StageExit,
	} {
		s.stages[p] = &stage{priority: p}
		s.order = append(s.order, p)
	}
	sort.Slice(s.order, func(i, j int) bool { return s.order[i] < s.order[j] })
	return s
}

// Registry exposes the system-parameter registry for CompileSystem callers.
func (s *Scheduler) Registry() *registry { return s.reg }

// AddStage registers a new stage at priority, failing with
// InvalidStageBoundsError if priority is below StageMin and with
// StageExistsError if a stage already exists there.
func (s *Scheduler) AddStage(priority int32) error {
	if priority < StageMin {
		return InvalidStageBoundsError{Start: priority, End: priority}
	}
	if _, exists := s.stages[priority]; exists {
		return StageExistsError{Priority: priority}
	}
	s.stages[priority] = &stage{priority: priority}
	s.order = append(s.order, priority)
	sort.Slice(s.order, func(i, j int) bool { return s.order[i] < s.order[j] })
	return nil
}

// hashStageName derives a deterministic priority for a user-named stage
// that did not supply an explicit one, landing it in the reserved custom
// range (section 4.6).
func hashStageName(name string) int32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return customStageRangeStart + int32(h.Sum32()%uint32(2147483647-customStageRangeStart))
}

// AddNamedStage is AddStage for a user stage identified by name rather than
// an explicit priority, hashed into the custom range.
func (s *Scheduler) AddNamedStage(name string) (int32, error) {
	p := hashStageName(name)
	if err := s.AddStage(p); err != nil {
		return 0, err
	}
	return p, nil
}

// AddSystem appends fn to the stage at priority, in insertion order
// (section 4.6's add_system).
func (s *Scheduler) AddSystem(priority int32, fn SystemFunc) error {
	st, ok := s.stages[priority]
	if !ok {
		return StageNotFoundError{Priority: priority}
	}
	st.systems = append(st.systems, fn)
	return nil
}

// RunStage runs every system in the stage at priority, in insertion order.
// Each system gets its own Commands queue, flushed immediately once it
// returns, before the next system in the stage runs (section 4.5's
// parameter table: Commands's deinit is "flush queued operations", and
// deinit happens per system, not once per stage — a later system in the
// same stage observes the structural effects of an earlier one's queued
// commands).
func (s *Scheduler) RunStage(priority int32) error {
	st, ok := s.stages[priority]
	if !ok {
		return StageNotFoundError{Priority: priority}
	}
	for _, sys := range st.systems {
		cmds := NewCommands()
		ctx := &SystemContext{Manager: s.manager, registry: s.reg, Commands: cmds}
		if err := sys(ctx); err != nil {
			return err
		}
		cmds.Flush(s.manager)
	}
	return nil
}

// RunStages runs every registered stage whose priority falls in [start,
// end], in ascending order (section 4.6's run_stages / S4).
func (s *Scheduler) RunStages(start, end int32) error {
	if start > end {
		return InvalidStageBoundsError{Start: start, End: end}
	}
	for _, p := range s.order {
		if p < start || p > end {
			continue
		}
		if err := s.RunStage(p); err != nil {
			return err
		}
	}
	return nil
}

// StageInfo is one row of GetStageInfo's report.
type StageInfo struct {
	Priority    int32
	SystemCount int
}

// GetStageInfo reports every registered stage's priority and system count,
// in ascending priority order.
func (s *Scheduler) GetStageInfo() []StageInfo {
	out := make([]StageInfo, 0, len(s.order))
	for _, p := range s.order {
		out = append(out, StageInfo{Priority: p, SystemCount: len(s.stages[p].systems)})
	}
	return out
}

// RegisterEvent pre-creates T's event stream and installs a cleanup system
// in StageLast that discards its handled entries every tick (section 4.6).
func RegisterEvent[T any](s *Scheduler) {
	store := eventStoreFor[T](s.reg)
	cleanup := func(ctx *SystemContext) error {
		store.DiscardHandled()
		return nil
	}
	s.stages[StageLast].systems = append(s.stages[StageLast].systems, cleanup)
}

func stateKey(value string) string { return value }

// RegisterState declares enum type E (identified by name) with its set of
// value names, hashing each (E,V) pair into the StateOnExit/StateOnEnter/
// StateUpdate ranges and failing if two distinct pairs collide (SPEC_FULL's Open
// Question decision: detect rather than silently widen).
func (s *Scheduler) RegisterState(enumName string, values []string) error {
	if _, exists := s.states[enumName]; exists {
		return StateAlreadyRegisteredError{TypeName: enumName}
	}
	for _, v := range values {
		for _, kind := range []int32{StageStateOnExit, StageStateOnEnter, StageStateUpdate} {
			p := stateStagePriority(kind, enumName, v)
			label := enumName + "." + v
			if existing, ok := s.stateOrigins[p]; ok && existing != label {
				return StateCollisionError{Priority: p, First: existing, Second: label}
			}
			s.stateOrigins[p] = label
			_ = s.AddStage(p) // idempotent: a per-value stage may already exist from a prior enum's non-collision
		}
	}
	s.states[enumName] = stateTrack{typeName: enumName}
	return nil
}

func stateStagePriority(base int32, enumName, value string) int32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(enumName))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(value))
	return base + int32(h.Sum32()%uint32(stateRangeWidth))
}

// OnExit returns the deterministic StageOnExit priority for (enumName,
// value).
func OnExit(enumName, value string) int32 { return stateStagePriority(StageStateOnExit, enumName, value) }

// OnEnter returns the deterministic StageOnEnter priority for (enumName,
// value).
func OnEnter(enumName, value string) int32 {
	return stateStagePriority(StageStateOnEnter, enumName, value)
}

// InState returns the deterministic StageStateUpdate priority for
// (enumName, value), the stage a system runs in every tick the machine is
// in that value.
func InState(enumName, value string) int32 {
	return stateStagePriority(StageStateUpdate, enumName, value)
}

// TransitionTo moves enumName's active value to newValue: runs
// StageStateTransition, then the old value's OnExit stage (if there is an
// old value), updates the tracked value, then newValue's OnEnter stage.
// Transitioning to the already-active value is a no-op (S5).
func (s *Scheduler) TransitionTo(enumName, newValue string) error {
	track, ok := s.states[enumName]
	if !ok {
		return StateNotRegisteredError{TypeName: enumName}
	}
	if track.hasValue && track.current == newValue {
		return nil
	}
	if err := s.RunStage(StageStateTransition); err != nil {
		return err
	}
	if track.hasValue {
		if err := s.runStageIfExists(OnExit(enumName, track.current)); err != nil {
			return err
		}
	}
	track.current = newValue
	track.hasValue = true
	s.states[enumName] = track
	return s.runStageIfExists(OnEnter(enumName, newValue))
}

func (s *Scheduler) runStageIfExists(priority int32) error {
	if _, ok := s.stages[priority]; !ok {
		return nil
	}
	return s.RunStage(priority)
}
