package regmap

import (
	"fmt"
	"sort"

	"github.com/arloliu/go-chamber/chamber"
)

// Key addresses a table entry.
type Key struct {
	Param Param
	Index int
}

func (k Key) String() string {
	if k.Index == 0 {
		return string(k.Param)
	}

	return fmt.Sprintf("%s[%d]", k.Param, k.Index)
}

// Table maps keys to wire addresses of type R. A Table is built once and then
// only read, so concurrent Resolve calls are safe.
type Table[R any] struct {
	name    string
	entries map[Key]R
}

// NewTable creates an empty table. name identifies the controller model in errors.
func NewTable[R any](name string) *Table[R] {
	return &Table[R]{name: name, entries: map[Key]R{}}
}

// Name returns the table name.
func (t *Table[R]) Name() string { return t.name }

// Set stores an entry and returns t for chaining.
func (t *Table[R]) Set(p Param, index int, r R) *Table[R] {
	t.entries[Key{Param: p, Index: index}] = r
	return t
}

// Has reports whether the entry exists.
func (t *Table[R]) Has(p Param, index int) bool {
	_, ok := t.entries[Key{Param: p, Index: index}]
	return ok
}

// Resolve returns the entry for p and index, or an error wrapping
// chamber.ErrCapability.
func (t *Table[R]) Resolve(p Param, index int) (R, error) {
	r, ok := t.entries[Key{Param: p, Index: index}]
	if !ok {
		var zero R
		return zero, chamber.CapabilityErrorf("%s has no %s", t.name, Key{Param: p, Index: index})
	}

	return r, nil
}

// Len returns the number of entries.
func (t *Table[R]) Len() int { return len(t.entries) }

// Keys returns all keys sorted by parameter and index.
func (t *Table[R]) Keys() []Key {
	keys := make([]Key, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Param != keys[j].Param {
			return keys[i].Param < keys[j].Param
		}
		return keys[i].Index < keys[j].Index
	})

	return keys
}

// Require checks that every listed key exists and reports all missing ones in
// a single error wrapping chamber.ErrCapability.
func (t *Table[R]) Require(keys ...Key) error {
	var missing []string
	for _, k := range keys {
		if _, ok := t.entries[k]; !ok {
			missing = append(missing, k.String())
		}
	}
	if len(missing) > 0 {
		return chamber.CapabilityErrorf("%s is missing mappings for %v", t.name, missing)
	}

	return nil
}
