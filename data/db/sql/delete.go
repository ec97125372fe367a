package sql

import (
	"context"
	"database/sql"
	"strings"
)

// deleteBuilder 生成不带表别名的 DELETE；条件中的列引用必须是未限定列名。
type deleteBuilder struct {
	runner
	table string
	where whereClause
}

func (b *deleteBuilder) Where(cond string, args ...any) IDeleteBuilder {
	b.where.add(cond, args)
	return b
}

func (b *deleteBuilder) Build() (string, []any) {
	var sb strings.Builder
	sb.WriteString("DELETE FROM ")
	sb.WriteString(b.quote("table", b.table))
	args := b.where.render(&sb, make([]any, 0, len(b.where.args)))
	return sb.String(), args
}

func (b *deleteBuilder) Exec(ctx context.Context) (sql.Result, error) {
	q, args := b.Build()
	return b.exec(ctx, q, args)
}
