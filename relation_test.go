package tessera

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelationExclusiveReplacesPriorEdge(t *testing.T) {
	rm := NewRelationManager()
	require.NoError(t, rm.Register("owner", RelationExclusive))

	child := Entity{ID: 1}
	first := Entity{ID: 2}
	second := Entity{ID: 3}

	require.NoError(t, rm.Add("owner", child, first))
	parent, ok, err := rm.GetParent("owner", child)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first, parent)

	require.NoError(t, rm.Add("owner", child, second))
	parent, ok, err = rm.GetParent("owner", child)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, second, parent, "an exclusive relation must replace, not accumulate")
}

func TestRelationIndexedAllowsMultipleParents(t *testing.T) {
	rm := NewRelationManager()
	require.NoError(t, rm.Register("member_of", RelationIndexed))

	src := Entity{ID: 1}
	groupA := Entity{ID: 2}
	groupB := Entity{ID: 3}

	require.NoError(t, rm.Add("member_of", src, groupA))
	require.NoError(t, rm.Add("member_of", src, groupB))

	parents, err := rm.GetParents("member_of", src)
	require.NoError(t, err)
	assert.ElementsMatch(t, []Entity{groupA, groupB}, parents)
}

func TestRelationGetChildrenRequiresIndexedKind(t *testing.T) {
	rm := NewRelationManager()
	require.NoError(t, rm.Register("owner", RelationExclusive))

	_, err := rm.GetChildren("owner", Entity{ID: 1})
	require.Error(t, err)
	assert.IsType(t, RelationNotIndexedError{}, err)
}

func TestRelationGetChildrenReverseLookup(t *testing.T) {
	rm := NewRelationManager()
	require.NoError(t, rm.Register("member_of", RelationIndexed))

	group := Entity{ID: 100}
	m1 := Entity{ID: 1}
	m2 := Entity{ID: 2}
	require.NoError(t, rm.Add("member_of", m1, group))
	require.NoError(t, rm.Add("member_of", m2, group))

	children, err := rm.GetChildren("member_of", group)
	require.NoError(t, err)
	assert.ElementsMatch(t, []Entity{m1, m2}, children)
}

func TestRelationIndexCountReflectsBuiltReverseIndices(t *testing.T) {
	rm := NewRelationManager()
	require.NoError(t, rm.Register("member_of", RelationIndexed))
	require.NoError(t, rm.Register("owns", RelationIndexed))

	assert.Equal(t, 0, rm.IndexCount(), "no reverse index should be built before first GetChildren call")

	m1 := Entity{ID: 1}
	group := Entity{ID: 100}
	require.NoError(t, rm.Add("member_of", m1, group))
	_, err := rm.GetChildren("member_of", group)
	require.NoError(t, err)

	assert.Equal(t, 1, rm.IndexCount(), "exactly one relation kind has had its reverse index built")
}

func TestRelationRemoveEntityStripsBothDirections(t *testing.T) {
	rm := NewRelationManager()
	require.NoError(t, rm.Register("member_of", RelationIndexed))

	m1 := Entity{ID: 1}
	group := Entity{ID: 100}
	require.NoError(t, rm.Add("member_of", m1, group))
	_, err := rm.GetChildren("member_of", group) // force the reverse index to build
	require.NoError(t, err)

	rm.RemoveEntity(m1)

	parents, err := rm.GetParents("member_of", m1)
	require.NoError(t, err)
	assert.Empty(t, parents)

	children, err := rm.GetChildren("member_of", group)
	require.NoError(t, err)
	assert.Empty(t, children)
}

func TestRelationHas(t *testing.T) {
	rm := NewRelationManager()
	require.NoError(t, rm.Register("owner", RelationExclusive))
	child := Entity{ID: 1}
	parent := Entity{ID: 2}
	require.NoError(t, rm.Add("owner", child, parent))

	has, err := rm.Has("owner", child, parent)
	require.NoError(t, err)
	assert.True(t, has)

	has, err = rm.Has("owner", child, Entity{ID: 999})
	require.NoError(t, err)
	assert.False(t, has)
}

func TestRelationUnregisteredNameErrors(t *testing.T) {
	rm := NewRelationManager()
	_, _, err := rm.GetParent("ghost", Entity{ID: 1})
	require.Error(t, err)
	assert.IsType(t, RelationNotIndexedError{}, err)
}
