package scanner

import (
	"sort"
	"strings"
	"sync"
)

// Counters tracks the number of files seen per directory during a scan.
// Directory keys are slash-separated logical paths starting with a declared
// root name. Counters is safe for concurrent use.
type Counters struct {
	mu     sync.RWMutex
	counts map[string]int
}

// NewCounters returns an empty Counters.
func NewCounters() *Counters {
	return &Counters{counts: make(map[string]int)}
}

// Register ensures dir is present, with a zero count if unseen. Empty
// directories show up in summaries this way.
func (c *Counters) Register(dir string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.counts[dir]; !ok {
		c.counts[dir] = 0
	}
}

// Add increments the count for dir by delta, registering it if needed.
func (c *Counters) Add(dir string, delta int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[dir] += delta
}

// Get returns the count for dir.
func (c *Counters) Get(dir string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counts[dir]
}

// Len returns the number of registered directories.
func (c *Counters) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.counts)
}

// Total returns the sum of all directory counts.
func (c *Counters) Total() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	total := 0
	for _, n := range c.counts {
		total += n
	}
	return total
}

// Dirs returns all registered directory paths in sorted order.
func (c *Counters) Dirs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	dirs := make([]string, 0, len(c.counts))
	for dir := range c.counts {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	return dirs
}

// Counts returns a copy of the per-directory counts.
func (c *Counters) Counts() map[string]int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]int, len(c.counts))
	for dir, n := range c.counts {
		out[dir] = n
	}
	return out
}

// ByRoot derives the aggregate count per top-level root. The aggregate is
// recomputed from the full directory map on every call rather than patched
// incrementally, so it always equals the sum of the counts of the
// directories sharing each root.
func (c *Counters) ByRoot() map[string]int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]int)
	for dir, n := range c.counts {
		out[rootOf(dir)] += n
	}
	return out
}

// rootOf returns the top-level root segment of a logical directory path.
func rootOf(dir string) string {
	if i := strings.IndexByte(dir, '/'); i >= 0 {
		return dir[:i]
	}
	return dir
}
