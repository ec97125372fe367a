package orm

import (
	"strings"
)

// Quoter 按方言为标识符加引号；dialect.Dialect 满足该接口。
type Quoter interface {
	QuoteIdentifier(name string) string
}

// Expression 可渲染为 SQL 片段的条件表达式，占位符统一为 ?。
type Expression interface {
	ToSQL(q Quoter) (string, []any)
}

// Identifier 限定列引用（Alias.column），作为比较右侧时渲染为列而非参数。
type Identifier string

// Col 拼接限定列名
func Col(alias, column string) Identifier {
	if alias == "" {
		return Identifier(column)
	}
	return Identifier(alias + "." + column)
}

func (i Identifier) ToSQL(q Quoter) (string, []any) {
	return q.QuoteIdentifier(string(i)), nil
}

// Column 返回不含限定前缀的列名
func (i Identifier) Column() string {
	s := string(i)
	if idx := strings.LastIndex(s, "."); idx >= 0 {
		return s[idx+1:]
	}
	return s
}

// Comparison 二元比较：Field Op Value
type Comparison struct {
	Field string
	Op    string
	Value any
}

func (c Comparison) ToSQL(q Quoter) (string, []any) {
	left := q.QuoteIdentifier(c.Field)
	if c.Value == nil {
		switch c.Op {
		case "=":
			return left + " IS NULL", nil
		case "<>":
			return left + " IS NOT NULL", nil
		}
	}
	if ident, ok := c.Value.(Identifier); ok {
		right, _ := ident.ToSQL(q)
		return left + " " + c.Op + " " + right, nil
	}
	return left + " " + c.Op + " ?", []any{c.Value}
}

func Eq(field string, value any) Comparison    { return Comparison{Field: field, Op: "=", Value: value} }
func NotEq(field string, value any) Comparison { return Comparison{Field: field, Op: "<>", Value: value} }
func Gt(field string, value any) Comparison    { return Comparison{Field: field, Op: ">", Value: value} }
func Gte(field string, value any) Comparison   { return Comparison{Field: field, Op: ">=", Value: value} }
func Lt(field string, value any) Comparison    { return Comparison{Field: field, Op: "<", Value: value} }
func Lte(field string, value any) Comparison   { return Comparison{Field: field, Op: "<=", Value: value} }
func Like(field string, value any) Comparison  { return Comparison{Field: field, Op: "LIKE", Value: value} }

// InExpr Field IN (values...)；空列表渲染为恒假条件
type InExpr struct {
	Field  string
	Values []any
}

// In 构造 IN 条件
func In(field string, values ...any) InExpr {
	return InExpr{Field: field, Values: values}
}

func (e InExpr) ToSQL(q Quoter) (string, []any) {
	if len(e.Values) == 0 {
		return "1 = 0", nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(e.Values)), ", ")
	args := make([]any, len(e.Values))
	copy(args, e.Values)
	return q.QuoteIdentifier(e.Field) + " IN (" + placeholders + ")", args
}

// SubqueryIn Field IN (<已渲染的子查询>)
type SubqueryIn struct {
	Field string
	SQL   string
	Args  []any
}

// InQuery 构造 IN 子查询条件，sql 由 IQuery.Build 生成
func InQuery(field, sql string, args []any) SubqueryIn {
	return SubqueryIn{Field: field, SQL: sql, Args: args}
}

func (e SubqueryIn) ToSQL(q Quoter) (string, []any) {
	return q.QuoteIdentifier(e.Field) + " IN (" + e.SQL + ")", append([]any(nil), e.Args...)
}

// Condition 原始条件片段，Expr 使用占位符 ?，Args 对应参数列表。
type Condition struct {
	Expr string
	Args []any
}

// Raw 构造原始条件
func Raw(expr string, args ...any) Condition {
	return Condition{Expr: expr, Args: args}
}

func (c Condition) ToSQL(Quoter) (string, []any) {
	return c.Expr, c.Args
}

type junction struct {
	op    string
	items []Expression
}

// And 逻辑与；空列表渲染为恒真
func And(items ...Expression) Expression { return junction{op: "AND", items: items} }

// Or 逻辑或；空列表渲染为恒假
func Or(items ...Expression) Expression { return junction{op: "OR", items: items} }

func (j junction) ToSQL(q Quoter) (string, []any) {
	if len(j.items) == 0 {
		if j.op == "AND" {
			return "1 = 1", nil
		}
		return "1 = 0", nil
	}
	parts := make([]string, 0, len(j.items))
	var args []any
	for _, item := range j.items {
		s, a := item.ToSQL(q)
		parts = append(parts, s)
		args = append(args, a...)
	}
	if len(parts) == 1 {
		return parts[0], args
	}
	return "(" + strings.Join(parts, " "+j.op+" ") + ")", args
}

type not struct{ inner Expression }

// Not 逻辑非
func Not(e Expression) Expression { return not{inner: e} }

func (n not) ToSQL(q Quoter) (string, []any) {
	s, args := n.inner.ToSQL(q)
	return "NOT (" + s + ")", args
}

// RenderAll 以 AND 连接多个表达式
func RenderAll(q Quoter, exprs []Expression) (string, []any) {
	if len(exprs) == 0 {
		return "", nil
	}
	return And(exprs...).ToSQL(q)
}

// UnqualifiedQuoter 去掉表别名前缀后再加引号，用于不带别名的 DELETE 语句。
type UnqualifiedQuoter struct {
	Quoter Quoter
}

func (u UnqualifiedQuoter) QuoteIdentifier(name string) string {
	return u.Quoter.QuoteIdentifier(Identifier(name).Column())
}
