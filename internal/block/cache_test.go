package block

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOpenBlock(name, das, location string) *Block {
	return New(name, das, location, "wf1", "ds", "era1", "v1", Limits{MaxFiles: 2}, time.Now())
}

func TestCacheInsertGetRemove(t *testing.T) {
	c := NewCache()
	b := newOpenBlock("ds#1", "das1", "site1")
	c.Insert(b)

	assert.Same(t, b, c.Get("ds#1"))
	assert.Nil(t, c.Get("missing"))

	c.Remove("ds#1")
	assert.Nil(t, c.Get("ds#1"))
	assert.True(t, c.IndexConsistent())
}

func TestFindOpenForReturnsFirstOpenBlock(t *testing.T) {
	c := NewCache()
	b1 := newOpenBlock("ds#1", "das1", "site1")
	c.Insert(b1)

	found := c.FindOpenFor("das1", "site1")
	assert.Same(t, b1, found)
}

func TestFindOpenForReturnsNilWhenNoneOpen(t *testing.T) {
	c := NewCache()
	b1 := newOpenBlock("ds#1", "das1", "site1")
	b1.CloseForUpload()
	c.Insert(b1)

	found := c.FindOpenFor("das1", "site1")
	assert.Nil(t, found)
	assert.Equal(t, Pending, b1.Status, "already-closed block keeps its Pending status")
}

func TestFindOpenForSkipsNonOpenEntriesWhileScanning(t *testing.T) {
	c := NewCache()
	b1 := newOpenBlock("ds#1", "das1", "site1")
	b1.Status = Open
	// Simulate a block that was closed elsewhere (e.g. by a timeout sweep)
	// without having been removed from the index yet.
	b1done := newOpenBlock("ds#0", "das1", "site1")
	c.Insert(b1done)
	b1done.Status = Pending // set directly to mimic a sweep closing it

	b2 := newOpenBlock("ds#2", "das1", "site1")
	c.Insert(b2)

	found := c.FindOpenFor("das1", "site1")
	require.NotNil(t, found)
	assert.Same(t, b2, found)
	assert.Equal(t, Pending, b1done.Status, "a non-Open bucket entry is skipped by the scan and keeps its Pending status")
}

func TestCacheIndexConsistencyAfterMultipleRemoves(t *testing.T) {
	c := NewCache()
	b1 := newOpenBlock("ds#1", "das1", "site1")
	b2 := newOpenBlock("ds#2", "das1", "site1")
	b3 := newOpenBlock("ds#3", "das1", "site2")
	c.Insert(b1)
	c.Insert(b2)
	c.Insert(b3)

	c.Remove("ds#2")
	assert.True(t, c.IndexConsistent())
	assert.Equal(t, 2, c.Len())

	c.Remove("ds#1")
	c.Remove("ds#3")
	assert.True(t, c.IndexConsistent())
	assert.Equal(t, 0, c.Len())
}

func TestInFlightSetMembership(t *testing.T) {
	s := NewInFlightSet()
	assert.False(t, s.Contains("ds#1"))

	s.Add("ds#1")
	assert.True(t, s.Contains("ds#1"))
	assert.Equal(t, 1, s.Len())

	s.Remove("ds#1")
	assert.False(t, s.Contains("ds#1"))
	assert.Equal(t, 0, s.Len())
}

func TestPendingBindsDrainResetsBuffer(t *testing.T) {
	p := NewPendingBinds()
	p.Append("f1", "ds#1")
	p.Append("f2", "ds#1")
	assert.Equal(t, 2, p.Len())

	drained := p.Drain()
	assert.Len(t, drained, 2)
	assert.Equal(t, 0, p.Len())

	assert.Empty(t, p.Drain(), "draining an empty buffer returns nothing")
}
