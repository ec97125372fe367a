package association

import (
	"context"

	"gorel/data/orm"
	"gorel/data/orm/inflector"
)

// BelongsTo 源表持有外键，指向目标表主键（Articles belongsTo Authors）。
type BelongsTo struct {
	*base
}

var _ orm.IAssociation = (*BelongsTo)(nil)

// NewBelongsTo 声明 BelongsTo 关联，不做任何 I/O。
func NewBelongsTo(reg orm.IRegistry, source orm.ITable, name string, opts ...Option) (*BelongsTo, error) {
	b, err := newBase(orm.AssociationBelongsTo, reg, source, name, opts)
	if err != nil {
		return nil, err
	}
	if b.cfg.property == "" {
		b.cfg.property = inflector.Variable(name, true)
	}
	if b.cfg.strategy == "" {
		b.cfg.strategy = orm.StrategyJoin
	}
	return &BelongsTo{base: b}, nil
}

// ForeignKey 默认 singularize(underscore(targetAlias)) + "_id"
func (a *BelongsTo) ForeignKey() string {
	return a.memoForeignKey(func() string { return defaultKeyFor(a.targetAlias()) })
}

func (a *BelongsTo) BindingKey() string { return a.ForeignKey() }
func (a *BelongsTo) CanBeJoined() bool  { return true }
func (a *BelongsTo) IsOwningSide() bool { return false }

// JoinCondition alias.pk = sourceAlias.fk
func (a *BelongsTo) JoinCondition(opts orm.AttachOptions) ([]orm.Expression, error) {
	target, err := a.ResolveTarget()
	if err != nil {
		return nil, err
	}
	pk, err := singleKey(target, "join "+a.name)
	if err != nil {
		return nil, err
	}
	fk := opts.ForeignKey
	if fk == "" {
		fk = a.ForeignKey()
	}
	alias, sourceAlias := a.aliases(opts)
	return []orm.Expression{
		orm.Eq(alias+"."+pk, orm.Col(sourceAlias, fk)),
	}, nil
}

func (a *BelongsTo) AttachTo(q orm.IQuery, opts orm.AttachOptions) error {
	target, err := a.ResolveTarget()
	if err != nil {
		return err
	}
	opts = a.attachOptions(q, opts)
	conds, err := a.JoinCondition(opts)
	if err != nil {
		return err
	}
	return a.attach(q, target, conds, opts)
}

// EagerLoader 按目标主键分组，每行注入单个父实体，缺失时为 nil。
func (a *BelongsTo) EagerLoader(ctx context.Context, opts orm.EagerLoadOptions) (orm.Injector, error) {
	target, err := a.ResolveTarget()
	if err != nil {
		return nil, err
	}
	pk, err := singleKey(target, "eager load "+a.name)
	if err != nil {
		return nil, err
	}
	merged := a.mergeEagerOptions(opts, a.ForeignKey())

	filter, err := a.eager.keyFilter(ctx, a.name+"."+pk, merged, merged.ForeignKey)
	if err != nil {
		return nil, err
	}
	q := a.eager.fetchQuery(target, a.name, merged, pk).Where(filter)

	return a.eager.load(ctx, a.base, loadPlan{
		query:      q,
		skip:       merged.Strategy == orm.StrategySelect && len(merged.Keys) == 0,
		rowKey:     func(row orm.IEntity) any { return row.Get(pk) },
		bindingKey: merged.ForeignKey,
		property:   a.cfg.property,
		single:     true,
	})
}

// CascadeDelete 父实体不随子实体删除。
func (a *BelongsTo) CascadeDelete(context.Context, orm.IEntity, orm.DeleteOptions) (bool, error) {
	return true, nil
}

// Save 先保存挂在属性上的父实体，再把父实体主键写入外键。
func (a *BelongsTo) Save(ctx context.Context, entity orm.IEntity, _ orm.SaveOptions) (orm.IEntity, error) {
	parent, ok := entity.Get(a.cfg.property).(orm.IEntity)
	if !ok || parent == nil {
		return entity, nil
	}
	target, err := a.ResolveTarget()
	if err != nil {
		return nil, err
	}
	pk, err := singleKey(target, "save "+a.name)
	if err != nil {
		return nil, err
	}
	saved, err := target.Save(ctx, parent, orm.SaveOptions{})
	if err != nil {
		return nil, err
	}
	entity.Set(a.ForeignKey(), saved.Get(pk))
	return entity, nil
}
