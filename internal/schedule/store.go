package schedule

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Item is a single audio file scheduled to play at a specific time.
type Item struct {
	Due             time.Time
	Path            string
	Name            string
	DeleteAfterPlay bool
}

// Store keeps scheduled audio items sorted by due time ascending. It is the
// only object in the assistant mutated from multiple call sites (wake gate,
// session due-audio loop, tool handlers), so every operation holds the lock.
type Store struct {
	mu    sync.Mutex
	items []Item
	log   *slog.Logger
}

func NewStore(log *slog.Logger) *Store {
	return &Store{log: log.With("component", "schedule")}
}

// Add inserts a new item, keeping the list sorted by due time. Insertion order
// is preserved among items with equal due times.
func (s *Store) Add(due time.Time, path, name string, deleteAfterPlay bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, Item{Due: due, Path: path, Name: name, DeleteAfterPlay: deleteAfterPlay})
	sort.SliceStable(s.items, func(i, j int) bool {
		return s.items[i].Due.Before(s.items[j].Due)
	})
}

// HasDue reports whether any item is due at the given time.
func (s *Store) HasDue(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		if !it.Due.After(now) {
			return true
		}
	}
	return false
}

// HasAny reports whether the store holds any items at all.
func (s *Store) HasAny() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items) > 0
}

// PopDue removes and returns the earliest item whose due time has passed, or
// nil if nothing is due. Items sharing a due time come back in insertion order.
func (s *Store) PopDue(now time.Time) *Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, it := range s.items {
		if !it.Due.After(now) {
			popped := it
			s.items = append(s.items[:i], s.items[i+1:]...)
			return &popped
		}
	}
	return nil
}

// RemoveByName removes every item with the given name. Backing files for items
// marked DeleteAfterPlay are deleted after the lock is released; a missing file
// is not an error, and a failed deletion does not stop the rest.
func (s *Store) RemoveByName(name string) {
	s.mu.Lock()
	var removed []Item
	kept := s.items[:0]
	for _, it := range s.items {
		if it.Name == name {
			removed = append(removed, it)
		} else {
			kept = append(kept, it)
		}
	}
	s.items = kept
	s.mu.Unlock()

	for _, it := range removed {
		if !it.DeleteAfterPlay {
			continue
		}
		if err := os.Remove(it.Path); err != nil {
			if os.IsNotExist(err) {
				s.log.Debug("audio file already removed", "path", it.Path)
			} else {
				s.log.Error("failed to remove audio file", "path", it.Path, "error", err)
			}
		}
	}
}

// Replace swaps the path and delete flag of the first item with the given
// name, leaving its due time untouched. It returns false if no item matches;
// the caller then owns the unused replacement file.
func (s *Store) Replace(name, newPath string, deleteAfterPlay bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].Name == name {
			s.items[i].Path = newPath
			s.items[i].DeleteAfterPlay = deleteAfterPlay
			return true
		}
	}
	return false
}

// RenderText returns a human-readable countdown summary of all items.
func (s *Store) RenderText(now time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var b strings.Builder
	for _, it := range s.items {
		fmt.Fprintf(&b, "%s timer:\n", it.Name)
		remaining := it.Due.Sub(now)
		if remaining > 0 {
			total := int(remaining.Seconds())
			fmt.Fprintf(&b, "%02d:%02d\n\n", total/60, total%60)
		} else {
			b.WriteString("00:00\n\n")
		}
	}
	return b.String()
}

// RenderJSON returns a JSON array of scheduled items with Name and Due fields.
func (s *Store) RenderJSON() string {
	type entry struct {
		Name string `json:"Name"`
		Due  string `json:"Due"`
	}
	s.mu.Lock()
	entries := make([]entry, 0, len(s.items))
	for _, it := range s.items {
		entries = append(entries, entry{
			Name: it.Name,
			Due:  it.Due.Format("Monday, January 02, 2006 03:04:05 PM"),
		})
	}
	s.mu.Unlock()

	data, err := json.Marshal(entries)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// Clear removes all items without deleting backing files.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
}
