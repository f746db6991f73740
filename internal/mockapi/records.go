package mockapi

import (
	"encoding/json"

	"github.com/roach88/fmdesk/internal/entity"
)

// record is one stored resource. Raw keeps the payload exactly as seeded or
// last written so alias-heavy fixtures round-trip untouched until mutated.
type record struct {
	ID  string
	Seq int
	Raw json.RawMessage
}

// recordSet keeps resources in insertion order.
type recordSet struct {
	c    *entity.Collection[record]
	next int
}

func newRecordSet() *recordSet {
	return &recordSet{
		c: entity.New(
			func(r record) string { return r.ID },
			func(a, b record) bool { return a.Seq < b.Seq },
		),
	}
}

func (rs *recordSet) list() []json.RawMessage {
	out := []json.RawMessage{}
	for _, r := range rs.c.All() {
		out = append(out, r.Raw)
	}
	return out
}

func (rs *recordSet) get(id string) (json.RawMessage, bool) {
	r, ok := rs.c.Get(id)
	return r.Raw, ok
}

// put stores raw under id, keeping the position of an existing record.
func (rs *recordSet) put(id string, raw json.RawMessage) {
	if old, ok := rs.c.Get(id); ok {
		rs.c = rs.c.UpsertOne(record{ID: id, Seq: old.Seq, Raw: raw})
		return
	}
	rs.next++
	rs.c = rs.c.UpsertOne(record{ID: id, Seq: rs.next, Raw: raw})
}

func (rs *recordSet) remove(id string) bool {
	if !rs.c.Has(id) {
		return false
	}
	rs.c = rs.c.RemoveOne(id)
	return true
}

func (rs *recordSet) len() int { return rs.c.Len() }
