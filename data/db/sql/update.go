package sql

import (
	"context"
	"database/sql"
	"strings"
)

type updateBuilder struct {
	runner
	table  string
	cols   []string
	values []any
	where  whereClause
}

func (b *updateBuilder) Set(col string, val any) IUpdateBuilder {
	if col != "" {
		b.cols = append(b.cols, col)
		b.values = append(b.values, val)
	}
	return b
}

func (b *updateBuilder) Where(cond string, args ...any) IUpdateBuilder {
	b.where.add(cond, args)
	return b
}

func (b *updateBuilder) Build() (string, []any) {
	if len(b.cols) == 0 {
		panic("sql: UPDATE " + b.table + " has no SET columns")
	}

	assignments := make([]string, len(b.cols))
	for i, col := range b.cols {
		assignments[i] = b.quote("column", col) + " = ?"
	}

	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(b.quote("table", b.table))
	sb.WriteString(" SET ")
	sb.WriteString(strings.Join(assignments, ", "))

	args := append(make([]any, 0, len(b.values)+len(b.where.args)), b.values...)
	args = b.where.render(&sb, args)
	return sb.String(), args
}

func (b *updateBuilder) Exec(ctx context.Context) (sql.Result, error) {
	q, args := b.Build()
	return b.exec(ctx, q, args)
}
