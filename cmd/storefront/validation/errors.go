// Package validation checks API input before it reaches the filters and
// services. Failures are collected per field in an Errors value.
package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Errors maps field names to messages, keeping the order in which fields
// first failed.
type Errors struct {
	order  []string
	fields map[string][]string
}

func NewErrors() *Errors {
	return &Errors{fields: make(map[string][]string)}
}

func (e *Errors) Add(field, message string) {
	if _, ok := e.fields[field]; !ok {
		e.order = append(e.order, field)
	}
	e.fields[field] = append(e.fields[field], message)
}

func (e *Errors) Has(field string) bool {
	_, ok := e.fields[field]
	return ok
}

func (e *Errors) Get(field string) []string {
	return append([]string(nil), e.fields[field]...)
}

// Fields returns the failed fields in order.
func (e *Errors) Fields() []string {
	return append([]string(nil), e.order...)
}

func (e *Errors) Empty() bool {
	return len(e.order) == 0
}

// Err returns e, or nil when nothing failed.
func (e *Errors) Err() error {
	if e.Empty() {
		return nil
	}
	return e
}

// Error summarizes the failures as the first message plus a count of the rest.
func (e *Errors) Error() string {
	if e.Empty() {
		return "validation failed"
	}

	total := 0
	for _, messages := range e.fields {
		total += len(messages)
	}
	first := e.fields[e.order[0]][0]
	switch total {
	case 1:
		return first
	case 2:
		return first + " (and 1 more error)"
	default:
		return fmt.Sprintf("%s (and %d more errors)", first, total-1)
	}
}

func (e *Errors) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range e.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(field)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(e.fields[field])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
