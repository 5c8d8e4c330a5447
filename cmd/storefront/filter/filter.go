// Package filter maps request parameters onto query predicates through a
// static table of handlers per entity type.
package filter

import (
	"github.com/SanteonNL/storefront/cmd/storefront/query"
)

// Handler mutates q for the value of its key. The full request is passed
// for handlers whose effect depends on a companion parameter.
type Handler func(q *query.Query, v Value, r *Request)

type Entry struct {
	Key    string
	Handle Handler
}

// Spec is a read-only table of handlers for one entity type.
type Spec struct {
	entries []Entry
}

func NewSpec(entries ...Entry) Spec {
	return Spec{entries: append([]Entry(nil), entries...)}
}

// Apply runs the handler of every spec key present in r, in spec order,
// and returns q. Parameters the spec does not know are ignored.
func Apply(spec Spec, r *Request, q *query.Query) *query.Query {
	for _, e := range spec.entries {
		v, ok := r.Get(e.Key)
		if !ok {
			continue
		}
		e.Handle(q, v, r)
	}
	return q
}

// consumed marks a key that only matters to another key's handler.
func consumed(*query.Query, Value, *Request) {}
