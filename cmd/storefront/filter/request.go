package filter

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Value is a request parameter value: a scalar or a list (from the key[]
// or key[N] form).
type Value struct {
	scalar string
	list   []string
	isList bool
}

func Scalar(s string) Value {
	return Value{scalar: s}
}

func List(values ...string) Value {
	return Value{list: append([]string(nil), values...), isList: true}
}

func (v Value) IsList() bool {
	return v.isList
}

// String returns the scalar value, or "" for a list.
func (v Value) String() string {
	return v.scalar
}

// Strings returns the list values, or nil for a scalar.
func (v Value) Strings() []string {
	if !v.isList {
		return nil
	}
	return append([]string(nil), v.list...)
}

// Empty reports whether the value carries nothing: "" or an empty list.
func (v Value) Empty() bool {
	if v.isList {
		return len(v.list) == 0
	}
	return v.scalar == ""
}

// Request maps parameter names to values. It is built once per HTTP
// request and not modified afterwards.
type Request struct {
	values map[string]Value
}

func NewRequest(values map[string]Value) *Request {
	r := &Request{values: make(map[string]Value, len(values))}
	for k, v := range values {
		r.values[k] = v
	}
	return r
}

// FromQuery builds a Request from a URL query. "name[]" and "name[N]" keys
// become list values under "name" (see Lists); other keys keep their first
// value as a scalar. A list key wins over a scalar key of the same name.
func FromQuery(query url.Values) *Request {
	r := &Request{values: make(map[string]Value, len(query))}
	for name, list := range Lists(query) {
		r.values[name] = List(list...)
	}
	for key, values := range query {
		if IsListKey(key) {
			continue
		}
		if _, ok := r.values[key]; ok {
			continue
		}
		if len(values) > 0 {
			r.values[key] = Scalar(values[0])
		} else {
			r.values[key] = Scalar("")
		}
	}
	return r
}

// splitListKey splits "name[]" and "name[N]" keys. index is -1 for "name[]".
func splitListKey(key string) (name string, index int, ok bool) {
	if name, ok := strings.CutSuffix(key, "[]"); ok && name != "" {
		return name, -1, true
	}
	open := strings.LastIndexByte(key, '[')
	if open < 1 || !strings.HasSuffix(key, "]") {
		return "", 0, false
	}
	index, err := strconv.Atoi(key[open+1 : len(key)-1])
	if err != nil || index < 0 {
		return "", 0, false
	}
	return key[:open], index, true
}

// IsListKey reports whether key is in the "name[]" or "name[N]" form.
func IsListKey(key string) bool {
	_, _, ok := splitListKey(key)
	return ok
}

// Lists collects the list parameters of query by name. Indexed elements
// come first ordered by N, each contributing its first value; "name[]"
// values follow in query order.
func Lists(query url.Values) map[string][]string {
	type element struct {
		index int
		value string
	}
	var (
		indexed  = map[string][]element{}
		appended = map[string][]string{}
	)
	for key, values := range query {
		name, index, ok := splitListKey(key)
		if !ok {
			continue
		}
		if index < 0 {
			appended[name] = append(appended[name], values...)
			continue
		}
		if len(values) > 0 {
			indexed[name] = append(indexed[name], element{index: index, value: values[0]})
		}
	}

	lists := make(map[string][]string, len(indexed)+len(appended))
	for name, elements := range indexed {
		sort.Slice(elements, func(i, j int) bool { return elements[i].index < elements[j].index })
		for _, e := range elements {
			lists[name] = append(lists[name], e.value)
		}
	}
	for name, values := range appended {
		lists[name] = append(lists[name], values...)
	}
	return lists
}

func (r *Request) Get(key string) (Value, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Keys returns the parameter names in sorted order.
func (r *Request) Keys() []string {
	keys := make([]string, 0, len(r.values))
	for k := range r.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Encode renders the request in a canonical form, usable as a cache key.
func (r *Request) Encode() string {
	q := url.Values{}
	for _, k := range r.Keys() {
		v := r.values[k]
		if v.IsList() {
			q[k+"[]"] = v.Strings()
		} else {
			q.Set(k, v.String())
		}
	}
	return q.Encode()
}
