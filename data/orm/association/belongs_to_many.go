package association

import (
	"context"
	"sort"
	"strings"
	"sync"

	"gorel/data/orm"
	"gorel/data/orm/inflector"
	"gorel/logging"
)

// BelongsToMany 通过中间表的多对多关联（Articles belongsToMany Tags via articles_tags）。
//
// 中间表在首次使用时解析，同时补齐关联图：
//
//	Pivot   belongsTo Source (foreignKey)
//	Pivot   belongsTo Target (targetForeignKey)
//	Source  hasMany   Pivot  (不级联)
//	Target  hasMany   Pivot  (不级联)
//	Target  belongsToMany Source (镜像，经同一中间表)
type BelongsToMany struct {
	*base

	tfkMu            sync.Mutex
	targetForeignKey string

	joinTableMu sync.Mutex
	joinTable   string

	pivotMu sync.Mutex
	pivot   orm.ITable
	// sourceEdge Pivot belongsTo Source；targetEdge Pivot belongsTo Target
	sourceEdge orm.IAssociation
	targetEdge orm.IAssociation
	// sourceLinks Source hasMany Pivot
	sourceLinks orm.IAssociation
}

var _ orm.IAssociation = (*BelongsToMany)(nil)

// NewBelongsToMany 声明多对多关联；默认级联删除中间表中的链接行（从不删除目标行）。
func NewBelongsToMany(reg orm.IRegistry, source orm.ITable, name string, opts ...Option) (*BelongsToMany, error) {
	b, err := newBase(orm.AssociationBelongsToMany, reg, source, name, opts)
	if err != nil {
		return nil, err
	}
	if b.cfg.property == "" {
		b.cfg.property = inflector.Variable(name, false)
	}
	if b.cfg.strategy == "" {
		b.cfg.strategy = orm.StrategySelect
	}
	if b.cfg.dependent == nil {
		b.cfg.dependent = boolPtr(true)
	}
	return &BelongsToMany{base: b, targetForeignKey: b.cfg.targetForeignKey}, nil
}

// ForeignKey 中间表中指向源表的列，默认 singularize(underscore(sourceAlias)) + "_id"
func (a *BelongsToMany) ForeignKey() string {
	return a.memoForeignKey(func() string { return defaultKeyFor(a.source.Alias()) })
}

// TargetForeignKey 中间表中指向目标表的列，默认 singularize(underscore(targetAlias)) + "_id"
func (a *BelongsToMany) TargetForeignKey() string {
	a.tfkMu.Lock()
	defer a.tfkMu.Unlock()
	if a.targetForeignKey == "" {
		a.targetForeignKey = defaultKeyFor(a.targetAlias())
	}
	return a.targetForeignKey
}

// SetTargetForeignKey 覆盖目标外键。
func (a *BelongsToMany) SetTargetForeignKey(key string) {
	a.tfkMu.Lock()
	a.targetForeignKey = key
	a.tfkMu.Unlock()
}

func (a *BelongsToMany) BindingKey() string { return a.sourceKey() }
func (a *BelongsToMany) CanBeJoined() bool  { return false }
func (a *BelongsToMany) IsOwningSide() bool { return false }

// JoinTableName 中间表物理表名：显式配置，或中间表对象的表名，
// 否则取两个别名 underscore 后按字母序以 "_" 连接。
func (a *BelongsToMany) JoinTableName() string {
	a.joinTableMu.Lock()
	defer a.joinTableMu.Unlock()
	if a.joinTable != "" {
		return a.joinTable
	}
	switch {
	case a.cfg.joinTable != "":
		a.joinTable = a.cfg.joinTable
	case a.cfg.throughTable != nil:
		a.joinTable = a.cfg.throughTable.Table()
	case a.cfg.through != "" && a.registry.Exists(a.cfg.through):
		if t, err := a.registry.Get(a.cfg.through); err == nil {
			a.joinTable = t.Table()
		}
	}
	if a.joinTable == "" {
		names := []string{
			inflector.Underscore(a.source.Alias()),
			inflector.Underscore(a.targetAlias()),
		}
		sort.Strings(names)
		a.joinTable = strings.Join(names, "_")
	}
	return a.joinTable
}

// Pivot 解析中间表并补齐关联图，结果缓存，多次调用返回同一对象。
func (a *BelongsToMany) Pivot() (orm.ITable, error) {
	a.pivotMu.Lock()
	defer a.pivotMu.Unlock()
	if a.pivot != nil {
		return a.pivot, nil
	}

	target, err := a.ResolveTarget()
	if err != nil {
		return nil, err
	}
	if target.Alias() == a.source.Alias() {
		return nil, orm.ConfigurationErrorf("association %s.%s: source and target share alias %q, declare a distinct target alias", a.source.Alias(), a.name, target.Alias())
	}
	pivot, err := a.resolvePivotTable()
	if err != nil {
		return nil, err
	}
	if err := a.ensureGraph(pivot, target); err != nil {
		return nil, err
	}
	a.pivot = pivot
	a.debug(context.Background(), "pivot resolved",
		logging.String("pivot", pivot.Alias()),
		logging.String("table", pivot.Table()),
	)
	return pivot, nil
}

func (a *BelongsToMany) resolvePivotTable() (orm.ITable, error) {
	if a.cfg.throughTable != nil {
		return a.cfg.throughTable, nil
	}
	if a.cfg.through != "" {
		t, err := a.registry.Get(a.cfg.through)
		if err != nil {
			return nil, orm.ConfigurationErrorf("association %s.%s: cannot resolve through table %q: %v", a.source.Alias(), a.name, a.cfg.through, err)
		}
		return t, nil
	}
	name := a.JoinTableName()
	alias := inflector.Camelize(name)
	t, err := a.registry.Get(alias, orm.TableConfig{
		Alias:      alias,
		Table:      name,
		PrimaryKey: []string{a.ForeignKey(), a.TargetForeignKey()},
	})
	if err != nil {
		return nil, orm.ConfigurationErrorf("association %s.%s: cannot resolve join table %q: %v", a.source.Alias(), a.name, name, err)
	}
	return t, nil
}

func (a *BelongsToMany) ensureGraph(pivot, target orm.ITable) error {
	fk, tfk := a.ForeignKey(), a.TargetForeignKey()

	sourceEdge, err := a.ensureEdge(pivot, a.source.Alias(), orm.AssociationBelongsTo, fk, func() (orm.IAssociation, error) {
		return NewBelongsTo(a.registry, pivot, a.source.Alias(), WithTarget(a.source), WithForeignKey(fk))
	})
	if err != nil {
		return err
	}
	targetEdge, err := a.ensureEdge(pivot, target.Alias(), orm.AssociationBelongsTo, tfk, func() (orm.IAssociation, error) {
		return NewBelongsTo(a.registry, pivot, target.Alias(), WithTarget(target), WithForeignKey(tfk))
	})
	if err != nil {
		return err
	}
	sourceLinks, err := a.ensureEdge(a.source, pivot.Alias(), orm.AssociationHasMany, fk, func() (orm.IAssociation, error) {
		return NewHasMany(a.registry, a.source, pivot.Alias(), WithTarget(pivot), WithForeignKey(fk), WithDependent(false))
	})
	if err != nil {
		return err
	}
	if _, err := a.ensureEdge(target, pivot.Alias(), orm.AssociationHasMany, tfk, func() (orm.IAssociation, error) {
		return NewHasMany(a.registry, target, pivot.Alias(), WithTarget(pivot), WithForeignKey(tfk), WithDependent(false))
	}); err != nil {
		return err
	}
	if !a.cfg.mirror {
		if _, err := a.ensureEdge(target, a.source.Alias(), orm.AssociationBelongsToMany, tfk, func() (orm.IAssociation, error) {
			return NewBelongsToMany(a.registry, target, a.source.Alias(),
				WithTarget(a.source),
				WithThroughTable(pivot),
				WithForeignKey(tfk),
				WithTargetForeignKey(fk),
				asMirror(),
			)
		}); err != nil {
			return err
		}
	}

	a.sourceEdge = sourceEdge
	a.targetEdge = targetEdge
	a.sourceLinks = sourceLinks
	return nil
}

// ensureEdge 表上已有同名关联时直接复用；类型或外键不一致时记录告警。
func (a *BelongsToMany) ensureEdge(table orm.ITable, name string, kind orm.AssociationKind, fk string, build func() (orm.IAssociation, error)) (orm.IAssociation, error) {
	if existing, ok := table.Association(name); ok {
		if existing.Kind() != kind || existing.ForeignKey() != fk {
			a.logger().Warn(context.Background(), "pivot graph reuses an existing association with a different shape",
				logging.String("table", table.Alias()),
				logging.String("edge", name),
				logging.String("expected_kind", string(kind)),
				logging.String("actual_kind", string(existing.Kind())),
				logging.String("expected_foreign_key", fk),
				logging.String("actual_foreign_key", existing.ForeignKey()),
			)
		}
		return existing, nil
	}
	assoc, err := build()
	if err != nil {
		return nil, err
	}
	return table.AddAssociation(assoc), nil
}

// JoinCondition 中间表连接源表的条件（Pivot belongsTo Source），源表与目标表从不直接连接。
func (a *BelongsToMany) JoinCondition(opts orm.AttachOptions) ([]orm.Expression, error) {
	pivot, err := a.Pivot()
	if err != nil {
		return nil, err
	}
	fk := opts.ForeignKey
	if fk == "" {
		fk = a.ForeignKey()
	}
	_, sourceAlias := a.aliases(opts)
	// 对 Pivot belongsTo Source 而言，源表是被连接的一侧
	return a.sourceEdge.JoinCondition(orm.AttachOptions{
		ForeignKey:  fk,
		Alias:       sourceAlias,
		SourceAlias: pivot.Alias(),
	})
}

// AttachTo 先连接中间表，再委托 Pivot belongsTo Target 以关联名连接目标表。
func (a *BelongsToMany) AttachTo(q orm.IQuery, opts orm.AttachOptions) error {
	pivot, err := a.Pivot()
	if err != nil {
		return err
	}
	opts = a.attachOptions(q, opts)
	conds, err := a.JoinCondition(orm.AttachOptions{ForeignKey: opts.ForeignKey, SourceAlias: opts.SourceAlias})
	if err != nil {
		return err
	}
	joinType := opts.JoinType
	if joinType == "" {
		joinType = a.cfg.joinType
	}
	if err := addJoin(q, orm.Join{
		Table:      pivot.Table(),
		Alias:      pivot.Alias(),
		Type:       joinType,
		Conditions: conds,
		Repository: pivot,
	}); err != nil {
		return err
	}

	property := opts.Property
	if property == "" {
		property = a.cfg.property
	}
	return a.targetEdge.AttachTo(q, orm.AttachOptions{
		IncludeFields: opts.IncludeFields,
		Fields:        opts.Fields,
		ForeignKey:    a.TargetForeignKey(),
		Conditions:    append(a.Conditions(), opts.Conditions...),
		JoinType:      joinType,
		Property:      property,
		Alias:         opts.Alias,
		SourceAlias:   pivot.Alias(),
	})
}

// EagerLoader 查询目标表并经 Target hasMany Pivot 内连接中间表，
// 中间表字段挂在 _joinData 上，按其中的源外键分组。
func (a *BelongsToMany) EagerLoader(ctx context.Context, opts orm.EagerLoadOptions) (orm.Injector, error) {
	target, err := a.ResolveTarget()
	if err != nil {
		return nil, err
	}
	pivot, err := a.Pivot()
	if err != nil {
		return nil, err
	}
	pk, err := singleKey(a.source, "eager load "+a.name)
	if err != nil {
		return nil, err
	}
	merged := a.mergeEagerOptions(opts, a.ForeignKey())
	fk := merged.ForeignKey

	filter, err := a.eager.keyFilter(ctx, pivot.Alias()+"."+fk, merged, pk)
	if err != nil {
		return nil, err
	}
	q := a.eager.fetchQuery(target, a.name, merged, "")
	a.addFilteringCondition(q, pivot, filter)

	return a.eager.load(ctx, a.base, loadPlan{
		query: q,
		skip:  merged.Strategy == orm.StrategySelect && len(merged.Keys) == 0,
		rowKey: func(row orm.IEntity) any {
			joinData, ok := row.Get(orm.JoinDataProperty).(orm.IEntity)
			if !ok || joinData == nil {
				return nil
			}
			return joinData.Get(fk)
		},
		bindingKey: pk,
		property:   a.cfg.property,
	})
}

// addFilteringCondition 以匹配型关联把中间表内连接进目标查询，并按源外键过滤。
func (a *BelongsToMany) addFilteringCondition(q orm.IQuery, pivot orm.ITable, filter orm.Expression) orm.IQuery {
	return q.Contain(pivot.Alias(), orm.WithMatching(), orm.WithContainConditions(filter))
}

// CascadeDelete 只删除中间表中的链接行，目标行保持不变。
func (a *BelongsToMany) CascadeDelete(ctx context.Context, entity orm.IEntity, opts orm.DeleteOptions) (bool, error) {
	if !a.Dependent() {
		return true, nil
	}
	pivot, err := a.Pivot()
	if err != nil {
		return false, err
	}
	return a.cascade.deleteByForeignKey(ctx, a.base, entity, pivot, a.sourceLinks.Name(), a.ForeignKey(), a.sourceLinks.Conditions(), opts)
}

// Save 保存属性上的每个目标实体，并补写缺失的链接行。
// 目标实体上的 _joinData 字段会一并写入链接行。
func (a *BelongsToMany) Save(ctx context.Context, entity orm.IEntity, _ orm.SaveOptions) (orm.IEntity, error) {
	targets := orm.EntityList(entity.Get(a.cfg.property))
	if len(targets) == 0 {
		return entity, nil
	}
	target, err := a.ResolveTarget()
	if err != nil {
		return nil, err
	}
	pivot, err := a.Pivot()
	if err != nil {
		return nil, err
	}
	pk, err := singleKey(a.source, "save "+a.name)
	if err != nil {
		return nil, err
	}
	tpk, err := singleKey(target, "save "+a.name)
	if err != nil {
		return nil, err
	}
	fk, tfk := a.ForeignKey(), a.TargetForeignKey()

	for _, t := range targets {
		saved, err := target.Save(ctx, t, orm.SaveOptions{})
		if err != nil {
			return nil, err
		}
		sourceID, targetID := entity.Get(pk), saved.Get(tpk)
		exists, err := pivot.Exists(ctx,
			orm.Eq(pivot.Alias()+"."+fk, sourceID),
			orm.Eq(pivot.Alias()+"."+tfk, targetID),
		)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}
		link := pivot.NewEntity()
		if joinData, ok := t.Get(orm.JoinDataProperty).(orm.IEntity); ok && joinData != nil {
			for _, field := range joinData.Fields() {
				link.Set(field, joinData.Get(field))
			}
		}
		link.Set(fk, sourceID)
		link.Set(tfk, targetID)
		if _, err := pivot.Save(ctx, link, orm.SaveOptions{}); err != nil {
			return nil, err
		}
	}
	return entity, nil
}
