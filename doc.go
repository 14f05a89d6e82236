/*
Package tessera provides an archetype-based Entity-Component-System (ECS)
runtime for games and simulations.

Tessera stores entities with the same component signature together in a
single columnar archetype for cache-friendly iteration, and schedules
user-supplied systems across ordered stages with a small state machine for
game-mode style transitions layered on top.

Core Concepts:

  - Entity: a generational id/index pair identifying one simulated object.
  - Component: a plain Go struct attached to an entity.
  - Archetype: the columnar storage for every entity sharing one exact set
    of component types.
  - Query: a compiled, restartable iterator over rows matching an
    include/exclude signature.
  - System: an ordinary Go function whose parameters are resolved against
    world state by type (Res, Query, Local, Commands, and friends).

Basic Usage:

	type Position struct{ X, Y float64 }
	type Velocity struct{ X, Y float64 }

	m := tessera.NewManager()
	e := m.Spawn(tessera.Comp(Position{}), tessera.Comp(Velocity{X: 1}))

	type Row struct {
		Pos *Position
		Vel *Velocity
	}
	q := tessera.NewQuery[Row](m.World())
	for it := q.Iter(); it.Next(); {
		row := it.Item()
		row.Pos.X += row.Vel.X
		row.Pos.Y += row.Vel.Y
	}

Tessera is a standalone in-process library; it has no opinion about
rendering, input, or networking.
*/
package tessera
