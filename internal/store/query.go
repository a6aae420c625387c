package store

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Operator string

const (
	OpEq Operator = "="
	OpNe Operator = "!="
	OpIn Operator = "in"
)

// Filter is a single column predicate. A nil Value with OpEq matches NULL.
type Filter struct {
	Field string
	Op    Operator
	Value any
}

func Eq(field string, value any) Filter {
	return Filter{Field: field, Op: OpEq, Value: value}
}

func Ne(field string, value any) Filter {
	return Filter{Field: field, Op: OpNe, Value: value}
}

func In(field string, values ...any) Filter {
	return Filter{Field: field, Op: OpIn, Value: values}
}

func (f Filter) expression() clause.Expression {
	col := clause.Column{Name: f.Field}
	switch f.Op {
	case OpNe:
		return clause.Neq{Column: col, Value: f.Value}
	case OpIn:
		values, _ := f.Value.([]any)
		return clause.IN{Column: col, Values: values}
	default:
		return clause.Eq{Column: col, Value: f.Value}
	}
}

type Query struct {
	Filters []Filter
	OrderBy string
	Desc    bool
	Limit   int
}

func (q Query) apply(tx *gorm.DB) *gorm.DB {
	for _, f := range q.Filters {
		tx = tx.Where(f.expression())
	}
	if q.OrderBy != "" {
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: q.OrderBy}, Desc: q.Desc})
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	return tx
}
