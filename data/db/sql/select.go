package sql

import (
	"context"
	"strings"

	core "gorel/data/db"
	"gorel/data/db/dialect"
)

type joinClause struct {
	kind  JoinKind
	table string
	alias string
	on    string
	args  []any
}

type selectBuilder struct {
	runner
	cols    []string
	table   string
	alias   string
	joins   []joinClause
	where   whereClause
	orderBy []string
	limit   int
	offset  int
}

func (b *selectBuilder) From(table string, alias ...string) ISelectBuilder {
	b.table = table
	if len(alias) > 0 {
		b.alias = alias[0]
	}
	return b
}

func (b *selectBuilder) Join(kind JoinKind, table, alias, on string, args ...any) ISelectBuilder {
	if kind == "" {
		kind = LeftJoin
	}
	b.joins = append(b.joins, joinClause{kind: kind, table: table, alias: alias, on: on, args: args})
	return b
}

func (b *selectBuilder) Where(cond string, args ...any) ISelectBuilder {
	b.where.add(cond, args)
	return b
}

func (b *selectBuilder) OrderBy(exprs ...string) ISelectBuilder {
	for _, e := range exprs {
		if e != "" {
			b.orderBy = append(b.orderBy, e)
		}
	}
	return b
}

func (b *selectBuilder) Limit(n int) ISelectBuilder {
	b.limit = n
	return b
}

func (b *selectBuilder) Offset(n int) ISelectBuilder {
	b.offset = n
	return b
}

// tableRef 别名与表名相同时省略别名
func (b *selectBuilder) tableRef(table, alias string) string {
	ref := b.quote("table", table)
	if alias != "" && alias != table {
		ref += " " + b.quote("alias", alias)
	}
	return ref
}

func (b *selectBuilder) Build() (string, []any) {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(b.cols, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(b.tableRef(b.table, b.alias))

	// 连接条件的参数在前，Build 可重复调用
	args := make([]any, 0, len(b.where.args)+2)
	for _, j := range b.joins {
		sb.WriteString(" ")
		sb.WriteString(string(j.kind))
		sb.WriteString(" JOIN ")
		sb.WriteString(b.tableRef(j.table, j.alias))
		sb.WriteString(" ON ")
		if j.on == "" {
			sb.WriteString("1 = 1")
		} else {
			sb.WriteString(j.on)
		}
		args = append(args, j.args...)
	}
	args = b.where.render(&sb, args)

	if len(b.orderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(b.orderBy, ", "))
	}
	if b.limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, b.limit)
	}
	if b.offset > 0 {
		if b.limit <= 0 && b.dialect.Name() != dialect.NamePostgres {
			// mysql/sqlite 的 OFFSET 必须跟在 LIMIT 之后
			sb.WriteString(" LIMIT -1")
		}
		sb.WriteString(" OFFSET ?")
		args = append(args, b.offset)
	}
	return sb.String(), args
}

func (b *selectBuilder) Query(ctx context.Context) (core.IRows, error) {
	q, args := b.Build()
	return b.db.Query(ctx, q, args...)
}

func (b *selectBuilder) QueryRow(ctx context.Context) core.IRow {
	q, args := b.Build()
	return b.db.QueryRow(ctx, q, args...)
}
