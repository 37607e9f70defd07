package reachcache

// Cache maps (domain, target) to the last computed reachability verdict.
// Each domain holds at most capacity entries; inserting past capacity evicts
// the least recently used key, and entries older than maxAge ticks are
// treated as misses. The cache exists to bound memory, not to skip
// validation: callers re-validate on miss or staleness.
//
// Not safe for concurrent use; the scheduler mutates it from a single
// logical thread per domain.
type Cache struct {
	capacity int
	maxAge   uint64 // 0 disables age eviction
	domains  map[string]*shard
}

type shard struct {
	entries map[string]*entry
	head    *entry // most recently used
	tail    *entry // least recently used
}

type entry struct {
	key        string
	ok         bool
	storedTick uint64
	prev, next *entry
}

func New(capacity int, maxAgeTicks uint64) *Cache {
	if capacity < 1 {
		capacity = 1
	}
	return &Cache{
		capacity: capacity,
		maxAge:   maxAgeTicks,
		domains:  map[string]*shard{},
	}
}

// Get returns the cached verdict and whether it was present and fresh.
// A hit moves the entry to the front of the LRU order.
func (c *Cache) Get(domainID, targetID string, nowTick uint64) (ok bool, hit bool) {
	s := c.domains[domainID]
	if s == nil {
		return false, false
	}
	e := s.entries[targetID]
	if e == nil {
		return false, false
	}
	if c.expired(e, nowTick) {
		s.remove(e)
		return false, false
	}
	s.moveToFront(e)
	return e.ok, true
}

// Put records a verdict, evicting the least recently used entry if the
// domain's shard is full.
func (c *Cache) Put(domainID, targetID string, ok bool, nowTick uint64) {
	s := c.domains[domainID]
	if s == nil {
		s = &shard{entries: map[string]*entry{}}
		c.domains[domainID] = s
	}
	if e := s.entries[targetID]; e != nil {
		e.ok = ok
		e.storedTick = nowTick
		s.moveToFront(e)
		return
	}
	e := &entry{key: targetID, ok: ok, storedTick: nowTick}
	s.entries[targetID] = e
	s.pushFront(e)
	if len(s.entries) > c.capacity {
		s.remove(s.tail)
	}
}

// Len reports the entry count for one domain.
func (c *Cache) Len(domainID string) int {
	s := c.domains[domainID]
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// Clear wipes all entries for a removed or regenerated domain.
func (c *Cache) Clear(domainID string) { delete(c.domains, domainID) }

// Reset wipes everything (world reload).
func (c *Cache) Reset() { c.domains = map[string]*shard{} }

// Sweep drops expired entries across all domains and returns how many were
// removed. Empty shards are released.
func (c *Cache) Sweep(nowTick uint64) int {
	if c.maxAge == 0 {
		return 0
	}
	removed := 0
	for id, s := range c.domains {
		for e := s.tail; e != nil; {
			prev := e.prev
			if c.expired(e, nowTick) {
				s.remove(e)
				removed++
			}
			e = prev
		}
		if len(s.entries) == 0 {
			delete(c.domains, id)
		}
	}
	return removed
}

func (c *Cache) expired(e *entry, nowTick uint64) bool {
	return c.maxAge > 0 && nowTick > e.storedTick && nowTick-e.storedTick > c.maxAge
}

func (s *shard) pushFront(e *entry) {
	e.prev = nil
	e.next = s.head
	if s.head != nil {
		s.head.prev = e
	}
	s.head = e
	if s.tail == nil {
		s.tail = e
	}
}

func (s *shard) moveToFront(e *entry) {
	if s.head == e {
		return
	}
	s.unlink(e)
	s.pushFront(e)
}

func (s *shard) remove(e *entry) {
	s.unlink(e)
	delete(s.entries, e.key)
}

func (s *shard) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else if s.head == e {
		s.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else if s.tail == e {
		s.tail = e.prev
	}
	e.prev = nil
	e.next = nil
}
