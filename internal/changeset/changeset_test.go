package changeset

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func uris(elements []Element) []string {
	out := make([]string, len(elements))
	for i, el := range elements {
		out[i] = el.URI()
	}
	return out
}

func TestChangeSet_AddElements(t *testing.T) {
	cs := New("turn")
	var changes []ContentChange
	cs.OnDidChangeContent(func(c ContentChange) { changes = append(changes, c) })

	a := NewMemoryElement("file:///a", TypeAdd, "a")
	b := NewMemoryElement("file:///b", TypeModify, "b")

	assert.True(t, cs.AddElements(a, b))
	assert.False(t, cs.AddElements(a), "re-adding the same element is not a change")

	a2 := NewMemoryElement("file:///a", TypeModify, "a2")
	assert.True(t, cs.AddElements(a2))

	got, ok := cs.GetElementByURI("file:///a")
	require.True(t, ok)
	assert.Same(t, a2, got)
	assert.Equal(t, 2, cs.Len())

	require.Len(t, changes, 2)
	assert.Equal(t, []string{"file:///a", "file:///b"}, changes[0].Added)
	assert.Equal(t, []string{"file:///a"}, changes[1].Modified)
}

func TestChangeSet_RemoveElements(t *testing.T) {
	cs := New("turn")
	a := NewMemoryElement("file:///a", TypeAdd, "")
	cs.AddElements(a)

	assert.True(t, cs.RemoveElements("file:///a"))
	assert.False(t, cs.RemoveElements("file:///a"), "already a tombstone")

	_, ok := cs.GetElementByURI("file:///a")
	assert.False(t, ok)
	assert.Empty(t, cs.Elements())

	assert.True(t, cs.RemoveElements("file:///never-added"))

	entries := cs.Entries()
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Nil(t, e.Element, e.URI)
	}

	assert.True(t, cs.AddElements(a), "a tombstoned uri can be defined again")
	assert.Equal(t, 1, cs.Len())
}

func TestChangeSet_SetElementsAlwaysNotifies(t *testing.T) {
	cs := New("turn")
	a := NewMemoryElement("file:///a", TypeAdd, "")
	b := NewMemoryElement("file:///b", TypeAdd, "")
	cs.AddElements(a)

	var changes []ContentChange
	updates := 0
	cs.OnDidChangeContent(func(c ContentChange) { changes = append(changes, c) })
	cs.OnDidChange(func(*ChangeSet) { updates++ })

	cs.SetElements(b)
	cs.SetElements(b)

	assert.Equal(t, 2, updates)
	require.Len(t, changes, 2)
	assert.Equal(t, []string{"file:///a"}, changes[0].Removed)
	assert.Equal(t, []string{"file:///b"}, changes[0].Added)
	assert.True(t, changes[1].Empty())
	assert.Equal(t, []string{"file:///b"}, uris(cs.Elements()))
}

func TestChangeSet_StateChangeNotification(t *testing.T) {
	cs := New("turn")
	a := NewMemoryElement("file:///a", TypeModify, "")
	cs.AddElements(a)

	var changes []ContentChange
	cs.OnDidChangeContent(func(c ContentChange) { changes = append(changes, c) })

	require.NoError(t, a.Apply(context.Background()))
	require.NoError(t, a.Apply(context.Background()))

	require.Len(t, changes, 1)
	assert.Equal(t, []string{"file:///a"}, changes[0].StateOnly)
	assert.Equal(t, StateApplied, a.State())
}

func TestChangeSet_TitleAndDispose(t *testing.T) {
	cs := New("first")
	updates := 0
	cs.OnDidChange(func(*ChangeSet) { updates++ })

	cs.SetTitle("first")
	cs.SetTitle("second")
	assert.Equal(t, "second", cs.Title())
	assert.Equal(t, 1, updates)

	a := NewMemoryElement("file:///a", TypeAdd, "")
	cs.AddElements(a)
	cs.Dispose()
	assert.True(t, a.Disposed())

	cs.AddElements(NewMemoryElement("file:///b", TypeAdd, ""))
	assert.Equal(t, 2, updates, "listeners are dropped on dispose")
}
