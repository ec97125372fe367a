package association

import (
	"context"

	"gorel/data/orm"
	"gorel/data/orm/inflector"
)

// HasOne 目标表持有指向源表主键的外键，且至多一行（Users hasOne Profiles）。
type HasOne struct {
	*base
}

var _ orm.IAssociation = (*HasOne)(nil)

// NewHasOne 声明 HasOne 关联；默认不级联删除。
func NewHasOne(reg orm.IRegistry, source orm.ITable, name string, opts ...Option) (*HasOne, error) {
	b, err := newBase(orm.AssociationHasOne, reg, source, name, opts)
	if err != nil {
		return nil, err
	}
	if b.cfg.property == "" {
		b.cfg.property = inflector.Variable(name, true)
	}
	if b.cfg.strategy == "" {
		b.cfg.strategy = orm.StrategyJoin
	}
	return &HasOne{base: b}, nil
}

// ForeignKey 默认 underscore(sourceAlias) + "_id"
func (a *HasOne) ForeignKey() string {
	return a.memoForeignKey(func() string { return inflector.Underscore(a.source.Alias()) + "_id" })
}

func (a *HasOne) BindingKey() string { return a.sourceKey() }
func (a *HasOne) CanBeJoined() bool  { return true }
func (a *HasOne) IsOwningSide() bool { return true }

func (a *HasOne) JoinCondition(opts orm.AttachOptions) ([]orm.Expression, error) {
	return a.sourceKeyCondition(a.foreignKeyOr(opts.ForeignKey), opts)
}

func (a *HasOne) AttachTo(q orm.IQuery, opts orm.AttachOptions) error {
	return a.attachBySourceKey(q, a.foreignKeyOr(opts.ForeignKey), opts)
}

func (a *HasOne) EagerLoader(ctx context.Context, opts orm.EagerLoadOptions) (orm.Injector, error) {
	return a.eagerByTargetKey(ctx, opts, a.ForeignKey(), true)
}

// CascadeDelete 仅在 Dependent 时删除目标行，规则同 HasMany。
func (a *HasOne) CascadeDelete(ctx context.Context, entity orm.IEntity, opts orm.DeleteOptions) (bool, error) {
	if !a.Dependent() {
		return true, nil
	}
	return a.deleteTargets(ctx, entity, a.ForeignKey(), opts)
}

func (a *HasOne) Save(ctx context.Context, entity orm.IEntity, _ orm.SaveOptions) (orm.IEntity, error) {
	return a.saveChildren(ctx, entity, a.ForeignKey())
}

func (a *HasOne) foreignKeyOr(override string) string {
	if override != "" {
		return override
	}
	return a.ForeignKey()
}
