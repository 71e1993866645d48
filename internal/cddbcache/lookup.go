package cddbcache

import "cddb/internal/disc"

// slotCount is the size of the in-memory category table, one slot per
// value of the disc ID's checksum byte.
const slotCount = 256

// categoryTable remembers the category a disc ID last resolved to, keyed by
// the top eight bits of the ID. Different IDs share a slot, so a hit is only
// a hint that the caller confirms against the file system.
type categoryTable [slotCount]disc.Category

func newCategoryTable() categoryTable {
	var t categoryTable
	t.reset()
	return t
}

func slot(id uint32) int {
	return int(id >> 24)
}

func (t *categoryTable) get(id uint32) (disc.Category, bool) {
	c := t[slot(id)]
	return c, c.Valid()
}

func (t *categoryTable) set(id uint32, c disc.Category) {
	if c.Valid() {
		t[slot(id)] = c
	}
}

func (t *categoryTable) forget(id uint32) {
	t[slot(id)] = disc.CategoryInvalid
}

func (t *categoryTable) reset() {
	for i := range t {
		t[i] = disc.CategoryInvalid
	}
}
