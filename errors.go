package tessera

import "fmt"

// EntityNotAliveError reports an operation against an id whose generation
// does not match the manager's current generation for that id, or an id out
// of range (section 7).
type EntityNotAliveError struct {
	Entity Entity
}

func (e EntityNotAliveError) Error() string {
	return fmt.Sprintf("entity not alive: %v", e.Entity)
}

// ResourceNotFoundError reports a Res[T]/GetResource against a type with no
// stored value.
type ResourceNotFoundError struct {
	TypeName string
}

func (e ResourceNotFoundError) Error() string {
	return fmt.Sprintf("resource not found: %s", e.TypeName)
}

// ResourceAlreadyExistsError reports a duplicate AddResource for a type.
type ResourceAlreadyExistsError struct {
	TypeName string
}

func (e ResourceAlreadyExistsError) Error() string {
	return fmt.Sprintf("resource already exists: %s", e.TypeName)
}

// StateNotRegisteredError reports a transition/lookup against an
// unregistered state enum.
type StateNotRegisteredError struct {
	TypeName string
}

func (e StateNotRegisteredError) Error() string {
	return fmt.Sprintf("state not registered: %s", e.TypeName)
}

// StateAlreadyRegisteredError reports a duplicate RegisterState call.
type StateAlreadyRegisteredError struct {
	TypeName string
}

func (e StateAlreadyRegisteredError) Error() string {
	return fmt.Sprintf("state already registered: %s", e.TypeName)
}

// StateCollisionError reports two distinct (enum, value) pairs hashing to
// the same scheduler stage priority (section 4.6's open question; tessera
// detects rather than silently accepting the collision).
type StateCollisionError struct {
	Priority      int32
	First, Second string
}

func (e StateCollisionError) Error() string {
	return fmt.Sprintf("state stage collision at priority %d between %q and %q", e.Priority, e.First, e.Second)
}

// StageNotFoundError reports a run/add-system against a missing stage.
type StageNotFoundError struct {
	Priority int32
}

func (e StageNotFoundError) Error() string {
	return fmt.Sprintf("stage not found: %d", e.Priority)
}

// StageExistsError reports a duplicate AddStage call.
type StageExistsError struct {
	Priority int32
}

func (e StageExistsError) Error() string {
	return fmt.Sprintf("stage already exists: %d", e.Priority)
}

// InvalidStageBoundsError reports a malformed RunStages range, or an
// AddStage priority below StageMin (then Start and End are both that
// priority).
type InvalidStageBoundsError struct {
	Start, End int32
}

func (e InvalidStageBoundsError) Error() string {
	return fmt.Sprintf("invalid stage bounds: [%d, %d]", e.Start, e.End)
}

// InvalidSystemHandleError reports a lookup of an unknown or removed cached
// system handle.
type InvalidSystemHandleError struct {
	Handle SystemHandle
}

func (e InvalidSystemHandleError) Error() string {
	return fmt.Sprintf("invalid system handle: %d", e.Handle)
}

// PluginAlreadyExistsError reports a duplicate plugin type registration.
type PluginAlreadyExistsError struct {
	TypeName string
}

func (e PluginAlreadyExistsError) Error() string {
	return fmt.Sprintf("plugin already exists: %s", e.TypeName)
}

// SingleFoundNoMatchesError reports a Single[I,E] parameter whose query
// matched nothing.
type SingleFoundNoMatchesError struct {
	Query string
}

func (e SingleFoundNoMatchesError) Error() string {
	return fmt.Sprintf("single query found no matches: %s", e.Query)
}

// SingleFoundMultipleMatchesError reports a Single[I,E] parameter whose
// query matched more than one row.
type SingleFoundMultipleMatchesError struct {
	Query string
	Count int
}

func (e SingleFoundMultipleMatchesError) Error() string {
	return fmt.Sprintf("single query found %d matches: %s", e.Count, e.Query)
}

// UnexpectedEndOfStreamError reports a truncated serialization stream.
type UnexpectedEndOfStreamError struct {
	Wanted, Got int
}

func (e UnexpectedEndOfStreamError) Error() string {
	return fmt.Sprintf("unexpected end of stream: wanted %d bytes, got %d", e.Wanted, e.Got)
}

// ComponentNotFoundError reports a component lookup against a row that does
// not carry it.
type ComponentNotFoundError struct {
	TypeName string
}

func (e ComponentNotFoundError) Error() string {
	return fmt.Sprintf("component not present: %s", e.TypeName)
}

// RelationNotIndexedError reports GetChildren called against a non-indexed
// relation kind. RelationManager also returns it for a relation name that
// was never registered, and for a Register call that names an existing
// relation with a different kind.
type RelationNotIndexedError struct {
	TypeName string
}

func (e RelationNotIndexedError) Error() string {
	return fmt.Sprintf("relation kind is not indexed: %s", e.TypeName)
}

