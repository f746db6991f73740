// Package entity provides the keyed collection used by the entity store.
//
// A Collection is an ordered map from primary key to record. It is immutable:
// every write returns a new *Collection and leaves the receiver untouched.
// Writes that change nothing return the receiver itself, so callers (and
// memoized selectors) can detect "no change" with a pointer comparison.
//
// Ordering is defined by the less function given to New. With a nil less
// function the collection keeps insertion order. Keys are unique: AddOne on an
// existing key is a no-op and SetAll keeps the last record for a duplicated key.
package entity

import (
	"encoding/json"
	"sort"
)

// Collection is an immutable, ordered, unique-by-key set of records.
type Collection[T any] struct {
	ids  []string
	byID map[string]T
	key  func(T) string
	less func(a, b T) bool
}

// New returns an empty collection keyed by key and sorted by less.
func New[T any](key func(T) string, less func(a, b T) bool) *Collection[T] {
	return &Collection[T]{
		byID: map[string]T{},
		key:  key,
		less: less,
	}
}

// clone copies the index and map so the receiver stays untouched.
func (c *Collection[T]) clone() *Collection[T] {
	ids := make([]string, len(c.ids), len(c.ids)+1)
	copy(ids, c.ids)
	byID := make(map[string]T, len(c.byID)+1)
	for k, v := range c.byID {
		byID[k] = v
	}
	return &Collection[T]{ids: ids, byID: byID, key: c.key, less: c.less}
}

// Len returns the number of records.
func (c *Collection[T]) Len() int {
	return len(c.ids)
}

// Has reports whether id is present.
func (c *Collection[T]) Has(id string) bool {
	_, ok := c.byID[id]
	return ok
}

// Get returns the record stored under id.
func (c *Collection[T]) Get(id string) (T, bool) {
	v, ok := c.byID[id]
	return v, ok
}

// IDs returns a copy of the keys in collection order.
func (c *Collection[T]) IDs() []string {
	out := make([]string, len(c.ids))
	copy(out, c.ids)
	return out
}

// All returns the records in collection order. The slice is freshly allocated.
func (c *Collection[T]) All() []T {
	out := make([]T, len(c.ids))
	for i, id := range c.ids {
		out[i] = c.byID[id]
	}
	return out
}

// SetAll replaces every record. Duplicate keys keep the last occurrence.
func (c *Collection[T]) SetAll(items []T) *Collection[T] {
	next := &Collection[T]{
		ids:  make([]string, 0, len(items)),
		byID: make(map[string]T, len(items)),
		key:  c.key,
		less: c.less,
	}
	for _, item := range items {
		id := c.key(item)
		if _, dup := next.byID[id]; !dup {
			next.ids = append(next.ids, id)
		}
		next.byID[id] = item
	}
	if next.less != nil {
		sort.SliceStable(next.ids, func(i, j int) bool {
			return next.less(next.byID[next.ids[i]], next.byID[next.ids[j]])
		})
	}
	return next
}

// AddOne inserts item if its key is absent. An existing key is left as is.
func (c *Collection[T]) AddOne(item T) *Collection[T] {
	id := c.key(item)
	if c.Has(id) {
		return c
	}
	next := c.clone()
	next.byID[id] = item
	next.insert(id)
	return next
}

// UpsertOne inserts item or replaces the record with the same key.
func (c *Collection[T]) UpsertOne(item T) *Collection[T] {
	id := c.key(item)
	if !c.Has(id) {
		return c.AddOne(item)
	}
	return c.replace(id, item)
}

// UpdateOne applies fn to the record under id. Missing ids are a no-op.
// fn must not change the record's key.
func (c *Collection[T]) UpdateOne(id string, fn func(T) T) *Collection[T] {
	cur, ok := c.byID[id]
	if !ok {
		return c
	}
	return c.replace(id, fn(cur))
}

// RemoveOne deletes the record under id. Missing ids are a no-op.
// The relative order of the remaining records is unchanged.
func (c *Collection[T]) RemoveOne(id string) *Collection[T] {
	if !c.Has(id) {
		return c
	}
	next := c.clone()
	delete(next.byID, id)
	next.ids = removeID(next.ids, id)
	return next
}

// replace swaps the record under id and re-sorts it if its position moved.
func (c *Collection[T]) replace(id string, item T) *Collection[T] {
	next := c.clone()
	next.byID[id] = item
	if next.less != nil {
		next.ids = removeID(next.ids, id)
		next.insert(id)
	}
	return next
}

// insert places id at its sorted position, after any equal records.
func (c *Collection[T]) insert(id string) {
	if c.less == nil {
		c.ids = append(c.ids, id)
		return
	}
	item := c.byID[id]
	pos := sort.Search(len(c.ids), func(i int) bool {
		return c.less(item, c.byID[c.ids[i]])
	})
	c.ids = append(c.ids, "")
	copy(c.ids[pos+1:], c.ids[pos:])
	c.ids[pos] = id
}

func removeID(ids []string, id string) []string {
	for i, cur := range ids {
		if cur == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// MarshalJSON encodes the records as an ordered JSON array.
func (c *Collection[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.All())
}
