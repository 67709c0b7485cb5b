package fuzzy

// A named record. The first alias is the primary name.
type Record struct {
	Aliases []string
	Content string
}

// Name returns the primary alias, or an empty string for a record with no aliases.
func (r *Record) Name() string {
	if len(r.Aliases) == 0 {
		return ""
	}
	return r.Aliases[0]
}

// HasAlias checks for an exact, case-sensitive alias match.
func (r *Record) HasAlias(name string) bool {
	for _, a := range r.Aliases {
		if a == name {
			return true
		}
	}
	return false
}

// Collection groups records by owner. Owners iterate in first-insertion order, and records within an owner iterate in insertion order.
//
// Not safe for concurrent mutation; callers guard it (see the tags package).
type Collection[K comparable] struct {
	owners  []K
	records map[K][]*Record
}

func NewCollection[K comparable]() *Collection[K] {
	return &Collection[K]{
		records: make(map[K][]*Record),
	}
}

// Add appends a record to the owner's list, registering the owner if this is its first record.
func (c *Collection[K]) Add(owner K, rec *Record) {
	if _, ok := c.records[owner]; !ok {
		c.owners = append(c.owners, owner)
	}
	c.records[owner] = append(c.records[owner], rec)
}

// Owners returns owner keys in insertion order.
func (c *Collection[K]) Owners() []K {
	out := make([]K, len(c.owners))
	copy(out, c.owners)
	return out
}

func (c *Collection[K]) Records(owner K) []*Record {
	return c.records[owner]
}

// Len is the total number of records, across all owners.
func (c *Collection[K]) Len() int {
	n := 0
	for _, recs := range c.records {
		n += len(recs)
	}
	return n
}

func (c *Collection[K]) Empty() bool {
	return c == nil || len(c.owners) == 0
}
