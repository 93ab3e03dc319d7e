package player

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAndGet(t *testing.T) {
	d := NewDirectory()
	now := time.Now()

	p := d.Add("c1", "tok", now)
	require.NotNil(t, p)
	assert.Equal(t, "c1", p.ConnID)
	assert.Equal(t, "tok", p.Session)
	assert.False(t, p.InRoom())

	again := d.Add("c1", "other", now)
	assert.Same(t, p, again)

	got, ok := d.Get("c1")
	require.True(t, ok)
	assert.Same(t, p, got)

	_, ok = d.Get("missing")
	assert.False(t, ok)
}

func TestMoveKeepsState(t *testing.T) {
	d := NewDirectory()
	p := d.Add("old", "tok", time.Now())
	p.Username = "alice"
	p.RoomCode = "1000"

	moved, ok := d.Move("old", "new")
	require.True(t, ok)
	assert.Equal(t, "new", moved.ConnID)
	assert.Equal(t, "alice", moved.Username)
	assert.Equal(t, "1000", moved.RoomCode)

	_, ok = d.Get("old")
	assert.False(t, ok)
	assert.Equal(t, 1, d.Count())

	_, ok = d.Move("ghost", "x")
	assert.False(t, ok)
}

func TestUsernamesPreservesOrder(t *testing.T) {
	d := NewDirectory()
	for id, name := range map[string]string{"a": "alice", "b": "bob", "c": "carol"} {
		d.Add(id, "", time.Now()).Username = name
	}

	assert.Equal(t, []string{"carol", "alice", "bob"}, d.Usernames([]string{"c", "gone", "a", "b"}))

	d.Remove("a")
	assert.Equal(t, []string{"bob"}, d.Usernames([]string{"a", "b"}))
}
