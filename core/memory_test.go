package core

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_AppendOnlyBlackboard(t *testing.T) {
	m := NewMemory()

	first := m.Append(NewBlackboardEntry(0, CategoryObservation, "first"))
	m.Append(NewBlackboardEntry(0, CategoryInsight, "second"))

	entries := m.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "first", entries[0].Content)
	assert.Equal(t, first.ID, entries[0].ID)

	// mutating the returned slice must not touch stored entries
	entries[0].Content = "tampered"
	assert.Equal(t, "first", m.Entries()[0].Content)
}

func TestMemory_TailBounds(t *testing.T) {
	m := NewMemory()
	for i := 0; i < 10; i++ {
		m.Append(NewBlackboardEntry(i, CategoryObservation, "entry"))
	}

	assert.Len(t, m.Tail(3), 3)
	assert.Equal(t, 7, m.Tail(3)[0].Iteration)
	assert.Len(t, m.Tail(0), 10)
	assert.Len(t, m.Tail(100), 10)
}

func TestMemory_ScratchpadModes(t *testing.T) {
	m := NewMemory()

	require.NoError(t, m.WriteScratchpad(ScratchpadAppend, "line one"))
	require.NoError(t, m.WriteScratchpad(ScratchpadAppend, "line two"))
	assert.Equal(t, "line one\nline two", m.Scratchpad())

	require.NoError(t, m.WriteScratchpad(ScratchpadReplace, "fresh"))
	assert.Equal(t, "fresh", m.Scratchpad())

	assert.Error(t, m.WriteScratchpad("upsert", "x"))
}

func TestMemory_AttributeUniqueness(t *testing.T) {
	m := NewMemory()

	require.NoError(t, m.PutAttribute(ToolResultAttribute{Name: "result_1", Tool: "search", Size: 4, ResultString: "data"}))
	err := m.PutAttribute(ToolResultAttribute{Name: "result_1", Tool: "scrape"})
	require.ErrorIs(t, err, ErrAttributeExists)

	// original attribute unchanged
	a, err := m.Attribute("result_1")
	require.NoError(t, err)
	assert.Equal(t, "search", a.Tool)

	_, err = m.Attribute("missing")
	assert.ErrorIs(t, err, ErrAttributeNotFound)
}

func TestMemory_SnapshotBoundedByMetadata(t *testing.T) {
	m := NewMemory()
	huge := strings.Repeat("x", 1<<20)
	require.NoError(t, m.PutAttribute(ToolResultAttribute{Name: "result_1", Tool: "scrape", Size: len(huge), ResultString: huge, Value: huge}))
	for i := 0; i < 100; i++ {
		m.Append(NewBlackboardEntry(i, CategoryObservation, "entry"))
	}

	snap := m.Snapshot(50)
	assert.Len(t, snap.Blackboard, 50)
	assert.Equal(t, 100, snap.TotalEntries)
	require.Len(t, snap.Attributes, 1)
	// metadata only, never the payload
	assert.Equal(t, len(huge), snap.Attributes[0].Size)
	assert.NotContains(t, snap.Attributes[0].String(), "xxx")
}

func TestMemory_CloneIsolation(t *testing.T) {
	m := NewMemory()
	m.Append(NewBlackboardEntry(0, CategoryObservation, "shared"))
	require.NoError(t, m.WriteScratchpad(ScratchpadReplace, "notes"))

	c := m.Clone()
	c.Append(NewBlackboardEntry(1, CategoryInsight, "child only"))
	require.NoError(t, c.WriteScratchpad(ScratchpadReplace, "child notes"))

	assert.Equal(t, 1, m.EntryCount())
	assert.Equal(t, "notes", m.Scratchpad())
	assert.Equal(t, 2, c.EntryCount())
}

func TestMemory_ConcurrentAppends(t *testing.T) {
	m := NewMemory()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Append(NewBlackboardEntry(0, CategoryObservation, "concurrent"))
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, m.EntryCount())
}
