package sql

import (
	"context"
	"database/sql"
	"strings"

	core "gorel/data/db"
)

type insertBuilder struct {
	runner
	table     string
	columns   []string
	rows      [][]any
	returning []string
}

func (b *insertBuilder) Columns(cols ...string) IInsertBuilder {
	b.columns = cols
	return b
}

// Values 追加一行；多次调用生成多行 VALUES
func (b *insertBuilder) Values(vals ...any) IInsertBuilder {
	if len(vals) > 0 {
		b.rows = append(b.rows, vals)
	}
	return b
}

func (b *insertBuilder) Returning(cols ...string) IInsertBuilder {
	b.returning = cols
	return b
}

func (b *insertBuilder) Build() (string, []any) {
	width := len(b.columns)
	switch {
	case width == 0:
		panic("sql: INSERT INTO " + b.table + " without columns")
	case len(b.rows) == 0:
		panic("sql: INSERT INTO " + b.table + " without rows")
	}

	placeholders := "(?" + strings.Repeat(", ?", width-1) + ")"
	tuples := make([]string, len(b.rows))
	args := make([]any, 0, len(b.rows)*width)
	for i, row := range b.rows {
		if len(row) != width {
			panic("sql: INSERT INTO " + b.table + " row width does not match columns")
		}
		tuples[i] = placeholders
		args = append(args, row...)
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(b.quote("table", b.table))
	sb.WriteString(" (" + b.quoteAll("column", b.columns) + ") VALUES ")
	sb.WriteString(strings.Join(tuples, ", "))
	if len(b.returning) > 0 && b.dialect.SupportsReturning() {
		sb.WriteString(" RETURNING " + b.quoteAll("column", b.returning))
	}
	return sb.String(), args
}

func (b *insertBuilder) Exec(ctx context.Context) (sql.Result, error) {
	q, args := b.Build()
	return b.exec(ctx, q, args)
}

func (b *insertBuilder) QueryRow(ctx context.Context) core.IRow {
	q, args := b.Build()
	return b.db.QueryRow(ctx, q, args...)
}
