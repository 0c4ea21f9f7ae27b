// File: internal/directory/directory.go
package directory

import (
	"sort"
	"sync/atomic"

	cmap "github.com/orcaman/concurrent-map/v2"
	"go.uber.org/zap"

	"github.com/xkilldash9x/nodelib/internal/lifecycle"
)

type record struct {
	entry lifecycle.Entry
	seq   uint64
}

// Directory is the discovery catalog: identity-keyed provenances and whether each
// one is active. It never calls provenance hooks and is safe for concurrent use.
// Listings come back in discovery order.
type Directory struct {
	entries cmap.ConcurrentMap[string, record]
	seq     atomic.Uint64
	logger  *zap.Logger
}

// New creates an empty directory. A nil logger is replaced by a no-op logger.
func New(logger *zap.Logger) *Directory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Directory{
		entries: cmap.New[record](),
		logger:  logger.With(zap.String("component", "directory")),
	}
}

// Discover records p if its key is new, with an inactive entry. If the key is
// already known the existing provenance is returned and its entry is untouched.
func (d *Directory) Discover(p lifecycle.Provenance) lifecycle.Provenance {
	entry := p.CreateLibraryEntry()
	entry.Active = false
	if d.entries.SetIfAbsent(p.Key(), record{entry: entry, seq: d.seq.Add(1)}) {
		d.logger.Debug("Discovered library candidate.", zap.String("provenance", p.Key()))
		return p
	}
	existing, _ := d.entries.Get(p.Key())
	return existing.entry.Provenance
}

// AddCuratedCandidate discovers p and marks it inactive; curated libraries need
// an explicit opt-in.
func (d *Directory) AddCuratedCandidate(p lifecycle.Provenance) lifecycle.Provenance {
	return d.upsert(p, false)
}

// AddUserCandidate discovers p and marks it active.
func (d *Directory) AddUserCandidate(p lifecycle.Provenance) lifecycle.Provenance {
	return d.upsert(p, true)
}

func (d *Directory) upsert(p lifecycle.Provenance, active bool) lifecycle.Provenance {
	var stored lifecycle.Provenance
	d.entries.Upsert(p.Key(), record{}, func(exists bool, current, _ record) record {
		if !exists {
			current = record{entry: p.CreateLibraryEntry(), seq: d.seq.Add(1)}
		}
		current.entry.Active = active
		stored = current.entry.Provenance
		return current
	})
	d.logger.Debug("Library candidate added.", zap.String("provenance", p.Key()), zap.Bool("active", active))
	return stored
}

// SetActive toggles a known candidate. It reports false for unknown keys.
func (d *Directory) SetActive(key string, active bool) bool {
	if !d.entries.Has(key) {
		return false
	}
	found := true
	d.entries.Upsert(key, record{}, func(exists bool, current, _ record) record {
		found = exists
		current.entry.Active = active
		return current
	})
	if !found {
		// Removed concurrently; drop the placeholder Upsert created.
		d.entries.RemoveCb(key, func(_ string, v record, exists bool) bool {
			return exists && v.entry.Provenance == nil
		})
	}
	return found
}

// Entry returns the catalog entry for key.
func (d *Directory) Entry(key string) (lifecycle.Entry, bool) {
	rec, ok := d.entries.Get(key)
	return rec.entry, ok
}

// AllCandidates returns every entry in discovery order.
func (d *Directory) AllCandidates() []lifecycle.Entry {
	return d.list(func(lifecycle.Entry) bool { return true })
}

// ActiveCandidates returns the active entries in discovery order.
func (d *Directory) ActiveCandidates() []lifecycle.Entry {
	return d.list(func(e lifecycle.Entry) bool { return e.Active })
}

func (d *Directory) list(keep func(lifecycle.Entry) bool) []lifecycle.Entry {
	items := d.entries.Items()
	records := make([]record, 0, len(items))
	for _, rec := range items {
		if keep(rec.entry) {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].seq < records[j].seq })

	out := make([]lifecycle.Entry, len(records))
	for i, rec := range records {
		out[i] = rec.entry
	}
	return out
}

// Remove forgets a candidate. Nothing on disk is touched.
func (d *Directory) Remove(key string) bool {
	_, ok := d.entries.Pop(key)
	return ok
}

// Clear forgets every candidate.
func (d *Directory) Clear() {
	d.entries.Clear()
}

func (d *Directory) Len() int {
	return d.entries.Count()
}
