package sql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	core "gorel/data/db"
	"gorel/data/db/dialect"
)

// runner 构建器共享的执行目标与方言
type runner struct {
	db      core.IDatabase
	dialect dialect.Dialect
}

func (r runner) exec(ctx context.Context, q string, args []any) (sql.Result, error) {
	return r.db.Exec(ctx, q, args...)
}

// quote 校验后按方言加引号；不安全的名称属于调用方编程错误，直接 panic
func (r runner) quote(what, name string) string {
	if !isSafeIdentifier(name) {
		panic(fmt.Sprintf("sql: unsafe %s %q", what, name))
	}
	return r.dialect.QuoteIdentifier(name)
}

func (r runner) quoteAll(what string, names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = r.quote(what, n)
	}
	return strings.Join(quoted, ", ")
}

// whereClause 以 AND 连接的条件片段，参数与片段同序
type whereClause struct {
	conds []string
	args  []any
}

func (w *whereClause) add(cond string, args []any) {
	if cond == "" {
		return
	}
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

// render 写入 WHERE 子句并把参数追加到 args 后返回
func (w *whereClause) render(sb *strings.Builder, args []any) []any {
	if len(w.conds) == 0 {
		return args
	}
	sb.WriteString(" WHERE ")
	sb.WriteString(strings.Join(w.conds, " AND "))
	return append(args, w.args...)
}
