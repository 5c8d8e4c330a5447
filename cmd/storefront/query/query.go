// Package query holds the accumulator that filters add predicates and
// ordering to before a repository renders and executes it.
package query

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection maps "asc" (any case) to Asc and anything else to Desc.
func ParseDirection(s string) Direction {
	if strings.EqualFold(strings.TrimSpace(s), string(Asc)) {
		return Asc
	}
	return Desc
}

// Op is the kind of a predicate.
type Op int

const (
	Eq       Op = iota // column = value
	Between            // column BETWEEN min AND max
	In                 // column IN (values...)
	Contains           // any of columns LIKE %value%
)

// Predicate is a single condition. Contains is the only op spanning
// several columns; the others use Columns[0].
type Predicate struct {
	Op      Op
	Columns []string
	Values  []any
}

type Order struct {
	Column    string
	Direction Direction
}

// Query accumulates predicates and ordering for one table. It is owned by
// the request that builds it and is not safe for concurrent use.
type Query struct {
	table      string
	predicates []Predicate
	orders     []Order
	limit      int
	offset     int
}

func New(table string) *Query {
	return &Query{table: table}
}

func (q *Query) Table() string {
	return q.table
}

// Where adds an equality predicate.
func (q *Query) Where(column string, value any) *Query {
	q.predicates = append(q.predicates, Predicate{Op: Eq, Columns: []string{column}, Values: []any{value}})
	return q
}

// WhereBetween adds a closed interval predicate.
func (q *Query) WhereBetween(column string, min, max any) *Query {
	q.predicates = append(q.predicates, Predicate{Op: Between, Columns: []string{column}, Values: []any{min, max}})
	return q
}

// WhereIn adds a membership predicate. values must be a non-empty slice.
func (q *Query) WhereIn(column string, values any) *Query {
	q.predicates = append(q.predicates, Predicate{Op: In, Columns: []string{column}, Values: []any{values}})
	return q
}

// WhereContains adds a substring match of term over any of columns.
func (q *Query) WhereContains(term string, columns ...string) *Query {
	q.predicates = append(q.predicates, Predicate{Op: Contains, Columns: columns, Values: []any{term}})
	return q
}

func (q *Query) OrderBy(column string, dir Direction) *Query {
	q.orders = append(q.orders, Order{Column: column, Direction: dir})
	return q
}

// Page limits the query to one page; page is 1-based.
func (q *Query) Page(page, perPage int) *Query {
	if page < 1 {
		page = 1
	}
	q.limit = perPage
	q.offset = (page - 1) * perPage
	return q
}

func (q *Query) Predicates() []Predicate {
	return append([]Predicate(nil), q.predicates...)
}

func (q *Query) Orders() []Order {
	return append([]Order(nil), q.orders...)
}

func (q *Query) HasOrder() bool {
	return len(q.orders) > 0
}

// Select renders a SELECT of columns with '?' bindvars, slices expanded by
// sqlx.In. Callers Rebind for their driver.
func (q *Query) Select(columns string) (string, []any, error) {
	where, args := q.where()
	stmt := "SELECT " + columns + " FROM " + q.table + where + q.orderBy()
	if q.limit > 0 {
		stmt += " LIMIT ? OFFSET ?"
		args = append(args, q.limit, q.offset)
	}
	return sqlx.In(stmt, args...)
}

// Count renders a COUNT(*) over the same predicates, ignoring order and limits.
func (q *Query) Count() (string, []any, error) {
	where, args := q.where()
	return sqlx.In("SELECT COUNT(*) FROM "+q.table+where, args...)
}

func (q *Query) where() (string, []any) {
	if len(q.predicates) == 0 {
		return "", nil
	}

	clauses := make([]string, 0, len(q.predicates))
	var args []any
	for _, p := range q.predicates {
		switch p.Op {
		case Eq:
			clauses = append(clauses, p.Columns[0]+" = ?")
			args = append(args, p.Values[0])
		case Between:
			clauses = append(clauses, p.Columns[0]+" BETWEEN ? AND ?")
			args = append(args, p.Values[0], p.Values[1])
		case In:
			clauses = append(clauses, p.Columns[0]+" IN (?)")
			args = append(args, p.Values[0])
		case Contains:
			term := "%" + fmt.Sprint(p.Values[0]) + "%"
			ors := make([]string, 0, len(p.Columns))
			for _, column := range p.Columns {
				ors = append(ors, column+" LIKE ?")
				args = append(args, term)
			}
			clauses = append(clauses, "("+strings.Join(ors, " OR ")+")")
		}
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (q *Query) orderBy() string {
	if len(q.orders) == 0 {
		return ""
	}
	parts := make([]string, 0, len(q.orders))
	for _, o := range q.orders {
		parts = append(parts, o.Column+" "+strings.ToUpper(string(o.Direction)))
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}
