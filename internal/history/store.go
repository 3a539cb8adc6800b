package history

import (
	"context"
	"strings"

	"prism/internal/analysis"
)

// MaxEntries caps how many analyses the history retains.
const MaxEntries = 10

// Store persists completed analyses. Entries are kept newest-first, capped
// at MaxEntries, and deduplicated by paper title: saving a title that is
// already present replaces the old entry instead of adding a second one.
type Store interface {
	Save(ctx context.Context, entry analysis.HistoryEntry) error
	List(ctx context.Context) ([]analysis.HistoryEntry, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

// insert prepends entry into list applying the dedupe and cap rules.
func insert(list []analysis.HistoryEntry, entry analysis.HistoryEntry) []analysis.HistoryEntry {
	out := make([]analysis.HistoryEntry, 0, len(list)+1)
	out = append(out, entry)
	for _, old := range list {
		if strings.EqualFold(strings.TrimSpace(old.Title), strings.TrimSpace(entry.Title)) {
			continue
		}
		out = append(out, old)
	}
	if len(out) > MaxEntries {
		out = out[:MaxEntries]
	}
	return out
}

func remove(list []analysis.HistoryEntry, id string) []analysis.HistoryEntry {
	out := list[:0]
	for _, e := range list {
		if e.ID != id {
			out = append(out, e)
		}
	}
	return out
}
