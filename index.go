package imagesweep

import "sync"

// Entry is a registered fingerprint and the file that owns it.
type Entry struct {
	Path        string
	Fingerprint Fingerprint
}

// Index is the registry of known fingerprints. Each slot value maps to the
// entries carrying it, so a lookup only compares against candidates that
// share at least one exact slot with the probe.
//
// Reads are safe from any goroutine; writes are expected from one owner.
type Index struct {
	mu        sync.RWMutex
	threshold int
	entries   []Entry
	slots     [numSlots]map[uint64][]int
}

// NewIndex returns an empty index matching at threshold exact slots.
// A threshold <= 0 never matches.
func NewIndex(threshold int) *Index {
	idx := &Index{threshold: threshold}
	for i := range idx.slots {
		idx.slots[i] = make(map[uint64][]int)
	}
	return idx
}

// Match returns the earliest registered entry that fp duplicates, ignoring
// entries owned by exclude.
func (idx *Index) Match(fp Fingerprint, exclude string) (Entry, bool) {
	if idx.threshold <= 0 {
		return Entry{}, false
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	best := -1
	seen := make(map[int]bool)
	for slot, v := range fp {
		for _, i := range idx.slots[slot][v] {
			if seen[i] {
				continue
			}
			seen[i] = true
			e := idx.entries[i]
			if exclude != "" && e.Path == exclude {
				continue
			}
			if best >= 0 && i > best {
				continue
			}
			if fp.Distance(e.Fingerprint).Exact() >= idx.threshold {
				best = i
			}
		}
	}
	if best < 0 {
		return Entry{}, false
	}
	return idx.entries[best], true
}

// Register adds fp as owned by path. A path may own several entries;
// Match with that path as exclude skips all of them.
func (idx *Index) Register(fp Fingerprint, path string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	i := len(idx.entries)
	idx.entries = append(idx.entries, Entry{Path: path, Fingerprint: fp})
	for slot, v := range fp {
		idx.slots[slot][v] = append(idx.slots[slot][v], i)
	}
}

// Len returns the number of registered entries.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}
