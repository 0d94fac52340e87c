package scanner

import (
	"sync"
	"testing"
)

func TestCountersAddAndGet(t *testing.T) {
	c := NewCounters()
	c.Add("Documents", 2)
	c.Add("Documents", 1)
	c.Add("Documents/Archive", 5)

	if got := c.Get("Documents"); got != 3 {
		t.Errorf("Get(Documents) = %d, want 3", got)
	}
	if got := c.Get("Documents/Archive"); got != 5 {
		t.Errorf("Get(Documents/Archive) = %d, want 5", got)
	}
	if got := c.Get("missing"); got != 0 {
		t.Errorf("Get(missing) = %d, want 0", got)
	}
	if got := c.Total(); got != 8 {
		t.Errorf("Total = %d, want 8", got)
	}
}

func TestCountersRegister(t *testing.T) {
	c := NewCounters()
	c.Register("Books")
	c.Add("Books", 4)
	c.Register("Books") // re-registering must not reset the count

	if got := c.Get("Books"); got != 4 {
		t.Errorf("Get(Books) = %d, want 4", got)
	}
	if got := c.Len(); got != 1 {
		t.Errorf("Len = %d, want 1", got)
	}
}

func TestCountersDirsSorted(t *testing.T) {
	c := NewCounters()
	c.Register("Papers")
	c.Register("Books")
	c.Register("Books/Fiction")

	dirs := c.Dirs()
	want := []string{"Books", "Books/Fiction", "Papers"}
	if len(dirs) != len(want) {
		t.Fatalf("Dirs returned %d entries, want %d", len(dirs), len(want))
	}
	for i := range want {
		if dirs[i] != want[i] {
			t.Errorf("Dirs[%d] = %q, want %q", i, dirs[i], want[i])
		}
	}
}

func TestCountersByRoot(t *testing.T) {
	c := NewCounters()
	c.Add("Documents", 3)
	c.Add("Documents/Archive", 2)
	c.Add("Documents/Archive/2019", 1)
	c.Add("Books", 7)

	byRoot := c.ByRoot()
	if got := byRoot["Documents"]; got != 6 {
		t.Errorf("ByRoot[Documents] = %d, want 6", got)
	}
	if got := byRoot["Books"]; got != 7 {
		t.Errorf("ByRoot[Books] = %d, want 7", got)
	}
	if len(byRoot) != 2 {
		t.Errorf("ByRoot has %d roots, want 2", len(byRoot))
	}
}

func TestCountersConcurrentAccess(t *testing.T) {
	c := NewCounters()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Add("Documents", 1)
				c.Get("Documents")
			}
		}()
	}
	wg.Wait()

	if got := c.Get("Documents"); got != 1000 {
		t.Errorf("Get(Documents) = %d, want 1000", got)
	}
}
