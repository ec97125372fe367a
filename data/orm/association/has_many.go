package association

import (
	"context"

	"gorel/data/orm"
	"gorel/data/orm/inflector"
)

// HasMany 目标表持有指向源表主键的外键，一对多（Articles hasMany Comments）。
type HasMany struct {
	*base
}

var _ orm.IAssociation = (*HasMany)(nil)

// NewHasMany 声明 HasMany 关联；默认级联删除，获取策略为 select。
func NewHasMany(reg orm.IRegistry, source orm.ITable, name string, opts ...Option) (*HasMany, error) {
	b, err := newBase(orm.AssociationHasMany, reg, source, name, opts)
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
	return &HasMany{base: b}, nil
}

// ForeignKey 默认 singularize(underscore(sourceAlias)) + "_id"
func (a *HasMany) ForeignKey() string {
	return a.memoForeignKey(func() string { return defaultKeyFor(a.source.Alias()) })
}

func (a *HasMany) BindingKey() string { return a.sourceKey() }
func (a *HasMany) CanBeJoined() bool  { return false }
func (a *HasMany) IsOwningSide() bool { return true }

func (a *HasMany) JoinCondition(opts orm.AttachOptions) ([]orm.Expression, error) {
	return a.sourceKeyCondition(a.foreignKeyOr(opts.ForeignKey), opts)
}

// AttachTo 用于匹配型关联：连接后每个子行产生一行结果。
func (a *HasMany) AttachTo(q orm.IQuery, opts orm.AttachOptions) error {
	return a.attachBySourceKey(q, a.foreignKeyOr(opts.ForeignKey), opts)
}

func (a *HasMany) EagerLoader(ctx context.Context, opts orm.EagerLoadOptions) (orm.Injector, error) {
	return a.eagerByTargetKey(ctx, opts, a.ForeignKey(), false)
}

func (a *HasMany) CascadeDelete(ctx context.Context, entity orm.IEntity, opts orm.DeleteOptions) (bool, error) {
	if !a.Dependent() {
		return true, nil
	}
	return a.deleteTargets(ctx, entity, a.ForeignKey(), opts)
}

func (a *HasMany) Save(ctx context.Context, entity orm.IEntity, _ orm.SaveOptions) (orm.IEntity, error) {
	return a.saveChildren(ctx, entity, a.ForeignKey())
}

func (a *HasMany) foreignKeyOr(override string) string {
	if override != "" {
		return override
	}
	return a.ForeignKey()
}

// 以下为外键位于目标表一侧（HasOne、HasMany）的共用实现。

// sourceKey 源表单列主键，复合主键时为空
func (b *base) sourceKey() string {
	pk := b.source.PrimaryKey()
	if len(pk) != 1 {
		return ""
	}
	return pk[0]
}

// sourceKeyCondition sourceAlias.pk = alias.fk
func (b *base) sourceKeyCondition(fk string, opts orm.AttachOptions) ([]orm.Expression, error) {
	if _, err := b.ResolveTarget(); err != nil {
		return nil, err
	}
	pk, err := singleKey(b.source, "join "+b.name)
	if err != nil {
		return nil, err
	}
	alias, sourceAlias := b.aliases(opts)
	return []orm.Expression{
		orm.Eq(sourceAlias+"."+pk, orm.Col(alias, fk)),
	}, nil
}

func (b *base) attachBySourceKey(q orm.IQuery, fk string, opts orm.AttachOptions) error {
	target, err := b.ResolveTarget()
	if err != nil {
		return err
	}
	opts = b.attachOptions(q, opts)
	conds, err := b.sourceKeyCondition(fk, opts)
	if err != nil {
		return err
	}
	return b.attach(q, target, conds, opts)
}

// eagerByTargetKey 以目标表外键分组；single 决定注入单个实体还是列表。
func (b *base) eagerByTargetKey(ctx context.Context, opts orm.EagerLoadOptions, fk string, single bool) (orm.Injector, error) {
	target, err := b.ResolveTarget()
	if err != nil {
		return nil, err
	}
	pk, err := singleKey(b.source, "eager load "+b.name)
	if err != nil {
		return nil, err
	}
	merged := b.mergeEagerOptions(opts, fk)
	key := merged.ForeignKey

	filter, err := b.eager.keyFilter(ctx, b.name+"."+key, merged, pk)
	if err != nil {
		return nil, err
	}
	q := b.eager.fetchQuery(target, b.name, merged, key).Where(filter)

	return b.eager.load(ctx, b, loadPlan{
		query:      q,
		skip:       merged.Strategy == orm.StrategySelect && len(merged.Keys) == 0,
		rowKey:     func(row orm.IEntity) any { return row.Get(key) },
		bindingKey: pk,
		property:   b.cfg.property,
		single:     single,
	})
}

func (b *base) deleteTargets(ctx context.Context, entity orm.IEntity, fk string, opts orm.DeleteOptions) (bool, error) {
	target, err := b.ResolveTarget()
	if err != nil {
		return false, err
	}
	return b.cascade.deleteByForeignKey(ctx, b, entity, target, b.name, fk, b.cfg.conditions, opts)
}

// saveChildren 把源实体主键写入每个子实体的外键后保存子实体。
func (b *base) saveChildren(ctx context.Context, entity orm.IEntity, fk string) (orm.IEntity, error) {
	children := orm.EntityList(entity.Get(b.cfg.property))
	if len(children) == 0 {
		return entity, nil
	}
	target, err := b.ResolveTarget()
	if err != nil {
		return nil, err
	}
	pk, err := singleKey(b.source, "save "+b.name)
	if err != nil {
		return nil, err
	}
	for _, child := range children {
		child.Set(fk, entity.Get(pk))
		if _, err := target.Save(ctx, child, orm.SaveOptions{}); err != nil {
			return nil, err
		}
	}
	return entity, nil
}
