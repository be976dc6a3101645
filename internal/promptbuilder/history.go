package promptbuilder

import "sync"

// History is a fixed-capacity ring of recent turns, matching the original
// system's max_history=3 truncation in add_query_to_history.
type History struct {
	mu      sync.Mutex
	entries []HistoryEntry
	max     int
}

// NewHistory builds a History capped at max entries (spec.md's max_history,
// default 3).
func NewHistory(max int) *History {
	if max <= 0 {
		max = 3
	}
	return &History{max: max}
}

// Add appends entry, dropping the oldest entry if over capacity.
func (h *History) Add(entry HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, entry)
	if len(h.entries) > h.max {
		h.entries = h.entries[len(h.entries)-h.max:]
	}
}

// Recent returns a snapshot of the stored entries, oldest first.
func (h *History) Recent() []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}
