package schedule

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(slog.New(slog.NewTextHandler(os.Stderr, nil)))
}

func TestPopDueReturnsEarliest(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	s.Add(now.Add(10*time.Second), "b.wav", "later", false)
	s.Add(now.Add(-1*time.Second), "a.wav", "sooner", false)

	it := s.PopDue(now)
	require.NotNil(t, it)
	assert.Equal(t, "sooner", it.Name)

	// The later item is not due yet.
	assert.Nil(t, s.PopDue(now))
	assert.True(t, s.HasAny())
}

func TestPopDueNeverReturnsSameItemTwice(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	s.Add(now.Add(-2*time.Second), "a.wav", "a", false)
	s.Add(now.Add(-1*time.Second), "b.wav", "b", false)

	first := s.PopDue(now)
	second := s.PopDue(now)
	third := s.PopDue(now)

	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Nil(t, third)
	assert.NotEqual(t, first.Name, second.Name)
}

func TestPopDueTiesInInsertionOrder(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	due := now.Add(-1 * time.Second)

	s.Add(due, "1.wav", "first", false)
	s.Add(due, "2.wav", "second", false)
	s.Add(due, "3.wav", "third", false)

	var got []string
	for {
		it := s.PopDue(now)
		if it == nil {
			break
		}
		got = append(got, it.Name)
	}
	assert.Equal(t, []string{"first", "second", "third"}, got)
}

func TestHasDueWindow(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	s.Add(now.Add(5*time.Second), "pasta.wav", "pasta", true)

	assert.False(t, s.HasDue(now.Add(4*time.Second)))
	assert.True(t, s.HasDue(now.Add(6*time.Second)))

	it := s.PopDue(now.Add(6 * time.Second))
	require.NotNil(t, it)
	assert.Equal(t, "pasta", it.Name)
	assert.True(t, it.DeleteAfterPlay)
}

func TestRemoveByNameRemovesAllMatches(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	s.Add(now.Add(time.Minute), "f1.wav", "foo", false)
	s.Add(now.Add(2*time.Minute), "f2.wav", "foo", false)
	s.Add(now.Add(3*time.Minute), "b1.wav", "bar", false)

	s.RemoveByName("foo")

	require.True(t, s.HasAny())
	it := s.PopDue(now.Add(time.Hour))
	require.NotNil(t, it)
	assert.Equal(t, "bar", it.Name)
	assert.False(t, s.HasAny())
}

func TestRemoveByNameDeletesBackingFiles(t *testing.T) {
	s := newTestStore(t)
	dir := t.TempDir()

	owned := filepath.Join(dir, "owned.wav")
	require.NoError(t, os.WriteFile(owned, []byte("x"), 0644))
	kept := filepath.Join(dir, "kept.wav")
	require.NoError(t, os.WriteFile(kept, []byte("x"), 0644))

	now := time.Now()
	s.Add(now, owned, "alarm", true)
	s.Add(now, kept, "alarm", false)
	// A missing backing file must not abort removal.
	s.Add(now, filepath.Join(dir, "gone.wav"), "alarm", true)

	s.RemoveByName("alarm")

	_, err := os.Stat(owned)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(kept)
	assert.NoError(t, err)
	assert.False(t, s.HasAny())
}

func TestReplace(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	due := now.Add(42 * time.Second)
	s.Add(due, "placeholder.wav", "foo", true)

	assert.False(t, s.Replace("missing", "final.wav", true))
	assert.True(t, s.Replace("foo", "final.wav", true))

	it := s.PopDue(due)
	require.NotNil(t, it)
	assert.Equal(t, "final.wav", it.Path)
	assert.True(t, it.Due.Equal(due))
}

func TestRenderText(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	s.Add(now.Add(90*time.Second), "p.wav", "pasta", true)
	s.Add(now.Add(-5*time.Second), "e.wav", "eggs", true)

	text := s.RenderText(now)
	assert.Contains(t, text, "pasta timer:\n01:30")
	assert.Contains(t, text, "eggs timer:\n00:00")
}

func TestRenderJSON(t *testing.T) {
	s := newTestStore(t)
	s.Add(time.Date(2026, 3, 1, 18, 30, 0, 0, time.Local), "p.wav", "pasta", true)

	var entries []map[string]string
	require.NoError(t, json.Unmarshal([]byte(s.RenderJSON()), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "pasta", entries[0]["Name"])
	assert.NotEmpty(t, entries[0]["Due"])

	s.Clear()
	assert.Equal(t, "[]", s.RenderJSON())
}
