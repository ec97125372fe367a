package association

import (
	"context"

	"gorel/data/orm"
	"gorel/logging"
)

// eagerLoader 预加载骨架：执行二次查询，按键分组，返回注入闭包。
//
// 各关联类型只负责构造 loadPlan（查询本身与行键的取法）。
type eagerLoader struct{}

type loadPlan struct {
	query orm.IQuery
	// skip 为 true 时不执行查询（select 策略且外层没有任何键）
	skip bool
	// rowKey 取二次查询结果行的匹配键
	rowKey func(row orm.IEntity) any
	// bindingKey 外层行上与 rowKey 对应的字段
	bindingKey string
	property   string
	// single 为 true 时注入单个实体或 nil，否则注入列表
	single bool
}

// resultMap 键到行列表的映射，每个键下的行保持查询返回顺序。
type resultMap struct {
	order []string
	rows  map[string][]orm.IEntity
}

func newResultMap() *resultMap {
	return &resultMap{rows: make(map[string][]orm.IEntity)}
}

func (m *resultMap) add(key string, row orm.IEntity) {
	if _, ok := m.rows[key]; !ok {
		m.order = append(m.order, key)
	}
	m.rows[key] = append(m.rows[key], row)
}

func (m *resultMap) lookup(v any) []orm.IEntity {
	key, ok := orm.KeyString(v)
	if !ok {
		return nil
	}
	return m.rows[key]
}

func (l eagerLoader) load(ctx context.Context, b *base, plan loadPlan) (orm.Injector, error) {
	results := newResultMap()
	if !plan.skip {
		rows, err := plan.query.Execute(ctx)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			if key, ok := orm.KeyString(plan.rowKey(row)); ok {
				results.add(key, row)
			}
		}
		b.debug(ctx, "eager load fetched",
			logging.Int("rows", len(rows)),
			logging.Int("keys", len(results.order)),
		)
	}
	return plan.injector(results), nil
}

func (plan loadPlan) injector(results *resultMap) orm.Injector {
	return func(row orm.IEntity) {
		matches := results.lookup(row.Get(plan.bindingKey))
		if plan.single {
			if len(matches) > 0 {
				row.Set(plan.property, matches[0])
			} else {
				row.Set(plan.property, nil)
			}
			return
		}
		list := make([]orm.IEntity, len(matches))
		copy(list, matches)
		row.Set(plan.property, list)
	}
}

// fetchQuery 构造针对目标表的二次查询：字段、条件、排序与嵌套关联。
// 查询以 alias（关联名）为主别名，与连接时的限定方式一致；
// keyField 非空时确保其出现在选择列中，供结果分组。
func (l eagerLoader) fetchQuery(target orm.ITable, alias string, opts orm.EagerLoadOptions, keyField string) orm.IQuery {
	q := target.Query().As(alias)
	if len(opts.Fields) > 0 {
		fields := append([]string(nil), opts.Fields...)
		if keyField != "" && !containsField(fields, keyField) {
			fields = append(fields, keyField)
		}
		q.Select(fields...)
	}
	q.Where(opts.Conditions...)
	q.OrderBy(opts.Sort...)
	for _, c := range opts.Contain {
		q.Contain(c.Path, orm.WithContainOptions(c.Options))
	}
	return q
}

// keyFilter 按策略生成二次查询的键约束：
// select 为 column IN (keys)，subquery 为 column IN (外层查询选取 bindingKey)。
func (l eagerLoader) keyFilter(ctx context.Context, column string, opts orm.EagerLoadOptions, bindingKey string) (orm.Expression, error) {
	if opts.Strategy == orm.StrategySubquery {
		if opts.Query == nil {
			return nil, orm.ConfigurationErrorf("eager load on %s: subquery strategy requires the outer query", column)
		}
		sub := opts.Query.Subquery(bindingKey)
		sqlText, args, err := sub.Build(ctx)
		if err != nil {
			return nil, err
		}
		return orm.InQuery(column, sqlText, args), nil
	}
	return orm.In(column, opts.Keys...), nil
}

func containsField(fields []string, field string) bool {
	for _, f := range fields {
		if f == field {
			return true
		}
	}
	return false
}
