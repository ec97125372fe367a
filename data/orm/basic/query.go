package basic

import (
	"context"
	"strings"

	"gorel/data/db/dialect"
	dbsql "gorel/data/db/sql"
	"gorel/data/orm"
	"gorel/errors"
	"gorel/logging"
)

// Query 针对单张表的查询，构建器方法原地修改并返回自身。
type Query struct {
	table *Table
	// as 非空时替代表别名出现在 FROM 与列限定中
	as      string
	fields  []string
	where   []orm.Expression
	order   []orm.OrderBy
	limit   int
	offset  int
	joins   []orm.Join
	contain []orm.Containment
	// subquery 为 true 时只渲染限定列，不做列别名与预加载
	subquery bool
}

var _ orm.IQuery = (*Query)(nil)

func newQuery(t *Table) *Query {
	return &Query{table: t}
}

func (q *Query) Repository() orm.ITable { return q.table }
func (q *Query) Joins() []orm.Join      { return append([]orm.Join(nil), q.joins...) }

func (q *Query) Alias() string {
	if q.as != "" {
		return q.as
	}
	return q.table.alias
}

func (q *Query) As(alias string) orm.IQuery {
	q.as = alias
	return q
}

func (q *Query) Select(fields ...string) orm.IQuery {
	q.fields = append(q.fields, fields...)
	return q
}

func (q *Query) Where(conds ...orm.Expression) orm.IQuery {
	for _, c := range conds {
		if c != nil {
			q.where = append(q.where, c)
		}
	}
	return q
}

func (q *Query) OrderBy(order ...orm.OrderBy) orm.IQuery {
	for _, o := range order {
		if o.Column != "" {
			q.order = append(q.order, o)
		}
	}
	return q
}

func (q *Query) Limit(n int) orm.IQuery {
	q.limit = n
	return q
}

func (q *Query) Offset(n int) orm.IQuery {
	q.offset = n
	return q
}

func (q *Query) Join(join orm.Join) orm.IQuery {
	q.joins = append(q.joins, join)
	return q
}

func (q *Query) Contain(path string, opts ...orm.ContainOption) orm.IQuery {
	if path == "" {
		return q
	}
	q.contain = append(q.contain, orm.Containment{Path: path, Options: orm.CollectContainOptions(opts...)})
	return q
}

func (q *Query) Containments() []orm.Containment {
	return append([]orm.Containment(nil), q.contain...)
}

func (q *Query) Clone() orm.IQuery { return q.clone() }

func (q *Query) clone() *Query {
	c := *q
	c.fields = append([]string(nil), q.fields...)
	c.where = append([]orm.Expression(nil), q.where...)
	c.order = append([]orm.OrderBy(nil), q.order...)
	c.joins = append([]orm.Join(nil), q.joins...)
	c.contain = append([]orm.Containment(nil), q.contain...)
	return &c
}

// Subquery 只选择给定列；非匹配型关联与排序被丢弃。
func (q *Query) Subquery(fields ...string) orm.IQuery {
	c := q.clone()
	c.fields = append([]string(nil), fields...)
	c.order = nil
	c.subquery = true
	return c
}

// containGroup 以路径首段聚合的关联：自身选项与转发给二次查询的嵌套路径。
type containGroup struct {
	name   string
	opts   orm.ContainOptions
	nested []orm.Containment
}

func groupContainments(list []orm.Containment) []*containGroup {
	var groups []*containGroup
	index := make(map[string]*containGroup)
	for _, c := range list {
		head, rest := c.Head()
		g, ok := index[head]
		if !ok {
			g = &containGroup{name: head}
			index[head] = g
			groups = append(groups, g)
		}
		if rest == "" {
			g.opts = c.Options
		} else {
			g.nested = append(g.nested, orm.Containment{Path: rest, Options: c.Options})
		}
	}
	return groups
}

// prepare 在副本上把匹配型与可连接的关联转换为 JOIN，返回需要预加载的其余关联。
func (q *Query) prepare() (*Query, []*containGroup, error) {
	c := q.clone()
	c.contain = nil
	var deferred []*containGroup

	for _, g := range groupContainments(q.contain) {
		assoc, ok := c.table.Association(g.name)
		if !ok {
			return nil, nil, orm.ConfigurationErrorf("%s is not associated with %s", g.name, c.table.alias)
		}

		strategy := g.opts.Strategy
		if strategy == "" {
			strategy = assoc.Strategy()
		}

		switch {
		case g.opts.Matching:
			if len(g.nested) > 0 {
				return nil, nil, orm.ConfigurationErrorf("matching %s on %s: nested paths are not supported", g.name, c.table.alias)
			}
			joinType := g.opts.JoinType
			if joinType == "" {
				joinType = orm.JoinInner
			}
			if err := assoc.AttachTo(c, orm.AttachOptions{
				IncludeFields: !c.subquery,
				Fields:        g.opts.Fields,
				ForeignKey:    g.opts.ForeignKey,
				Conditions:    g.opts.Conditions,
				JoinType:      joinType,
				Property:      orm.JoinDataProperty,
			}); err != nil {
				return nil, nil, err
			}
		case c.subquery:
			// 子查询只需要过滤条件
		case assoc.CanBeJoined() && strategy == orm.StrategyJoin && len(g.nested) == 0:
			if err := assoc.AttachTo(c, orm.AttachOptions{
				IncludeFields: true,
				Fields:        g.opts.Fields,
				ForeignKey:    g.opts.ForeignKey,
				Conditions:    g.opts.Conditions,
				JoinType:      g.opts.JoinType,
			}); err != nil {
				return nil, nil, err
			}
		default:
			if len(c.fields) > 0 {
				if key := assoc.BindingKey(); key != "" {
					c.fields = appendMissing(c.fields, key)
				}
			}
			deferred = append(deferred, g)
		}
	}
	return c, deferred, nil
}

func (q *Query) Build(ctx context.Context) (string, []any, error) {
	c, _, err := q.prepare()
	if err != nil {
		return "", nil, err
	}
	sqlText, args, _, err := c.render(ctx, c.table.orm.executor(ctx))
	return sqlText, args, err
}

// render 生成 SELECT；返回 join 别名到属性名的映射供水合使用。
func (q *Query) render(ctx context.Context, s dbsql.ISql) (string, []any, map[string]string, error) {
	d := s.Dialect()
	alias := q.Alias()

	fields := q.fields
	if len(fields) == 0 {
		cols, err := q.table.Columns(ctx)
		if err != nil {
			return "", nil, nil, err
		}
		fields = cols
	}
	selectList := make([]string, 0, len(fields))
	for _, f := range fields {
		selectList = append(selectList, q.selectColumn(d, alias, f))
	}

	properties := make(map[string]string)
	for _, j := range q.joins {
		if !j.IncludeFields || q.subquery {
			continue
		}
		cols := j.Fields
		if len(cols) == 0 && j.Repository != nil {
			var err error
			if cols, err = j.Repository.Columns(ctx); err != nil {
				return "", nil, nil, err
			}
		}
		for _, col := range cols {
			selectList = append(selectList, q.selectColumn(d, j.Alias, col))
		}
		property := j.Property
		if property == "" {
			property = j.Alias
		}
		properties[j.Alias] = property
	}

	b := s.Select(selectList...).From(q.table.table, alias)
	for _, j := range q.joins {
		on, args := orm.RenderAll(d, j.Conditions)
		b.Join(dbsql.JoinKind(j.Type), j.Table, j.Alias, on, args...)
	}
	if where, args := orm.RenderAll(d, q.where); where != "" {
		b.Where(where, args...)
	}
	for _, o := range q.order {
		expr := d.QuoteIdentifier(qualify(alias, o.Column))
		if o.Desc {
			expr += " DESC"
		} else {
			expr += " ASC"
		}
		b.OrderBy(expr)
	}
	if q.limit > 0 {
		b.Limit(q.limit)
	}
	if q.offset > 0 {
		b.Offset(q.offset)
	}
	sqlText, args := b.Build()
	return sqlText, args, properties, nil
}

// selectColumn "Alias"."col" AS "Alias__col"；子查询模式下不加列别名
func (q *Query) selectColumn(d dialect.Dialect, alias, field string) string {
	qualified := qualify(alias, field)
	expr := d.QuoteIdentifier(qualified)
	if q.subquery {
		return expr
	}
	owner, col := alias, field
	if idx := strings.LastIndex(qualified, "."); idx >= 0 {
		owner, col = qualified[:idx], qualified[idx+1:]
	}
	return expr + " AS " + d.QuoteIdentifier(dialect.ColumnAlias(owner, col))
}

// Execute 执行查询：先读取并关闭主查询结果，再逐个关联执行预加载并注入。
func (q *Query) Execute(ctx context.Context) ([]orm.IEntity, error) {
	c, deferred, err := q.prepare()
	if err != nil {
		return nil, err
	}
	s := c.table.orm.executor(ctx)
	sqlText, args, properties, err := c.render(ctx, s)
	if err != nil {
		return nil, err
	}
	c.table.orm.logger.Debug(ctx, "sql",
		logging.String("table", c.table.alias),
		logging.String("statement", sqlText),
		logging.Int("args", len(args)),
	)

	rows, err := s.GetDB().Query(ctx, sqlText, args...)
	if err != nil {
		return nil, errors.WrapDatabaseError(ctx, err, "select", c.table.table)
	}
	records, err := hydrate(rows, c.Alias(), properties)
	if err != nil {
		return nil, errors.WrapDatabaseError(ctx, err, "select", c.table.table)
	}

	if len(records) == 0 {
		return records, nil
	}
	for _, g := range deferred {
		if err := q.eagerLoad(ctx, g, records); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func (q *Query) eagerLoad(ctx context.Context, g *containGroup, records []orm.IEntity) error {
	assoc, _ := q.table.Association(g.name)
	bindingKey := assoc.BindingKey()
	if bindingKey == "" {
		return orm.UnsupportedErrorf("eager load %s on %s: composite binding key", g.name, q.table.alias)
	}

	var keys []any
	seen := make(map[string]struct{})
	for _, r := range records {
		v := r.Get(bindingKey)
		key, ok := orm.KeyString(v)
		if !ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, v)
	}

	injector, err := assoc.EagerLoader(ctx, orm.EagerLoadOptions{
		Keys:       keys,
		Query:      q.Clone(),
		ForeignKey: g.opts.ForeignKey,
		Conditions: g.opts.Conditions,
		Sort:       g.opts.Sort,
		Strategy:   g.opts.Strategy,
		Fields:     g.opts.Fields,
		Contain:    g.nested,
	})
	if err != nil {
		return err
	}
	for _, r := range records {
		injector(r)
	}
	return nil
}

func (q *Query) First(ctx context.Context) (orm.IEntity, error) {
	c := q.clone()
	c.limit = 1
	rows, err := c.Execute(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.NewErrorf(errors.ErrCodeNotFound, "%s: record not found", q.table.alias)
	}
	return rows[0], nil
}

// qualify 未限定的列名按 alias 限定
func qualify(alias, field string) string {
	if strings.Contains(field, ".") {
		return field
	}
	return alias + "." + field
}

func appendMissing(fields []string, field string) []string {
	for _, f := range fields {
		if f == field || strings.HasSuffix(f, "."+field) {
			return fields
		}
	}
	return append(fields, field)
}
