package association

import (
	"context"

	"gorel/data/orm"
	"gorel/logging"
)

// cascadeDeleter 删除依赖行的共享策略。
//
// callbacks 为 false 时一条 DeleteAll 语句完成；
// 为 true 时先加载匹配行，再逐行调用 table.Delete（每行恰好一次，含其自身的级联）。
type cascadeDeleter struct{}

func (cascadeDeleter) deleteDependents(ctx context.Context, b *base, table orm.ITable, alias string, conds []orm.Expression, callbacks bool, opts orm.DeleteOptions) (bool, error) {
	if !callbacks {
		n, err := table.DeleteAll(ctx, conds...)
		if err != nil {
			return false, err
		}
		b.debug(ctx, "cascade delete (bulk)",
			logging.String("table", table.Alias()),
			logging.Int64("rows", n),
		)
		return true, nil
	}

	rows, err := table.Query().As(alias).Where(conds...).Execute(ctx)
	if err != nil {
		return false, err
	}
	for _, row := range rows {
		if _, err := table.Delete(ctx, row, opts); err != nil {
			return false, err
		}
	}
	b.debug(ctx, "cascade delete (callbacks)",
		logging.String("table", table.Alias()),
		logging.Int("rows", len(rows)),
	)
	return true, nil
}

// deleteByForeignKey HasOne/HasMany/BelongsToMany 共用：
// 删除 table 中 foreignKey 等于实体主键的行，并合并 extra 条件。
// 条件按 alias（声明 extra 的关联名）限定。
func (c cascadeDeleter) deleteByForeignKey(ctx context.Context, b *base, entity orm.IEntity, table orm.ITable, alias, foreignKey string, extra []orm.Expression, opts orm.DeleteOptions) (bool, error) {
	pk, err := singleKey(b.source, "cascade delete")
	if err != nil {
		return false, err
	}
	conds := make([]orm.Expression, 0, 1+len(extra))
	conds = append(conds, orm.Eq(alias+"."+foreignKey, entity.Get(pk)))
	conds = append(conds, extra...)
	return c.deleteDependents(ctx, b, table, alias, conds, b.cfg.cascadeCallbacks, opts)
}
