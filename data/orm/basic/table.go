package basic

import (
	"context"
	"strings"
	"sync"

	dbcore "gorel/data/db"
	"gorel/data/db/dialect"
	dbsql "gorel/data/db/sql"
	"gorel/data/orm"
	"gorel/data/orm/association"
	"gorel/errors"
	"gorel/logging"
)

// Table 表对象：主键、列元信息与关联集合。
type Table struct {
	orm        *Orm
	alias      string
	table      string
	primaryKey []string
	keyGen     orm.IKeyGenerator

	colMu   sync.Mutex
	columns []string

	assocMu sync.RWMutex
	assocs  map[string]orm.IAssociation
	order   []string
}

var _ orm.ITable = (*Table)(nil)

func newTable(o *Orm, cfg orm.TableConfig) (*Table, error) {
	if !dbsql.IsSafeIdentifier(cfg.Alias) || strings.Contains(cfg.Alias, ".") {
		return nil, orm.ConfigurationErrorf("invalid table alias %q", cfg.Alias)
	}
	name := cfg.Table
	if name == "" {
		name = defaultTableName(cfg.Alias)
	}
	if !dbsql.IsSafeIdentifier(name) {
		return nil, orm.ConfigurationErrorf("table %s: invalid table name %q", cfg.Alias, name)
	}
	pk := cfg.PrimaryKey
	if len(pk) == 0 {
		pk = []string{"id"}
	}
	for _, col := range append(append([]string(nil), pk...), cfg.Columns...) {
		if !dbsql.IsSafeIdentifier(col) {
			return nil, orm.ConfigurationErrorf("table %s: invalid column %q", cfg.Alias, col)
		}
	}
	return &Table{
		orm:        o,
		alias:      cfg.Alias,
		table:      name,
		primaryKey: append([]string(nil), pk...),
		keyGen:     cfg.KeyGenerator,
		columns:    append([]string(nil), cfg.Columns...),
		assocs:     make(map[string]orm.IAssociation),
	}, nil
}

func (t *Table) Alias() string                   { return t.alias }
func (t *Table) Table() string                   { return t.table }
func (t *Table) PrimaryKey() []string            { return append([]string(nil), t.primaryKey...) }
func (t *Table) Registry() orm.IRegistry         { return t.orm }
func (t *Table) Database() dbcore.IDatabase      { return t.orm.db }
func (t *Table) Quoter() orm.Quoter              { return dialect.FromDatabase(t.orm.db) }
func (t *Table) NewEntity() orm.IEntity          { return orm.NewRecord() }
func (t *Table) Query() orm.IQuery               { return newQuery(t) }
func (t *Table) KeyGenerator() orm.IKeyGenerator { return t.keyGen }

// Columns 返回表的列名；首次调用以空结果查询自省并缓存。
func (t *Table) Columns(ctx context.Context) ([]string, error) {
	t.colMu.Lock()
	defer t.colMu.Unlock()
	if len(t.columns) > 0 {
		return append([]string(nil), t.columns...), nil
	}

	exec := dbcore.Executor(ctx, t.orm.db)
	q := "SELECT * FROM " + dialect.FromDatabase(exec).QuoteIdentifier(t.table) + " WHERE 1 = 0"
	rows, err := exec.Query(ctx, q)
	if err != nil {
		return nil, errors.WrapDatabaseError(ctx, err, "introspect columns", t.table)
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, errors.WrapDatabaseError(ctx, err, "introspect columns", t.table)
	}
	t.columns = cols
	return append([]string(nil), cols...), nil
}

// Get 按主键查找；复合主键以 []any 传入，顺序与 PrimaryKey 一致。
func (t *Table) Get(ctx context.Context, primaryKey any) (orm.IEntity, error) {
	conds, err := t.keyConditions(primaryKey)
	if err != nil {
		return nil, err
	}
	return t.Query().Where(conds...).First(ctx)
}

func (t *Table) keyConditions(primaryKey any) ([]orm.Expression, error) {
	values := []any{primaryKey}
	if len(t.primaryKey) > 1 {
		list, ok := primaryKey.([]any)
		if !ok || len(list) != len(t.primaryKey) {
			return nil, errors.NewErrorf(errors.ErrCodeInvalidInput,
				"table %s: composite primary key %v expects %d values", t.alias, t.primaryKey, len(t.primaryKey))
		}
		values = list
	}
	conds := make([]orm.Expression, len(t.primaryKey))
	for i, col := range t.primaryKey {
		conds[i] = orm.Eq(t.alias+"."+col, values[i])
	}
	return conds, nil
}

func (t *Table) Exists(ctx context.Context, conds ...orm.Expression) (bool, error) {
	rows, err := t.Query().Select(t.primaryKey...).Where(conds...).Limit(1).Execute(ctx)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// Save 插入或更新实体。opts.Associated 中的 BelongsTo 关联在实体之前保存，其余在之后。
func (t *Table) Save(ctx context.Context, entity orm.IEntity, opts orm.SaveOptions) (orm.IEntity, error) {
	var before, after []orm.IAssociation
	for _, name := range opts.Associated {
		assoc, ok := t.Association(name)
		if !ok {
			return nil, orm.ConfigurationErrorf("table %s: unknown association %q", t.alias, name)
		}
		if assoc.Kind() == orm.AssociationBelongsTo {
			before = append(before, assoc)
		} else {
			after = append(after, assoc)
		}
	}

	for _, assoc := range before {
		if _, err := assoc.Save(ctx, entity, opts); err != nil {
			return nil, err
		}
	}

	cols, err := t.Columns(ctx)
	if err != nil {
		return nil, err
	}
	if entity.IsNew() {
		err = t.insert(ctx, entity, cols)
	} else {
		err = t.update(ctx, entity, cols)
	}
	if err != nil {
		return nil, err
	}
	entity.SetNew(false)

	for _, assoc := range after {
		if _, err := assoc.Save(ctx, entity, opts); err != nil {
			return nil, err
		}
	}
	return entity, nil
}

func (t *Table) insert(ctx context.Context, entity orm.IEntity, cols []string) error {
	single := len(t.primaryKey) == 1
	pk := t.primaryKey[0]
	if single && entity.Get(pk) == nil && t.keyGen != nil {
		key, err := t.keyGen.NextKey()
		if err != nil {
			return errors.WrapError(err, errors.ErrCodeInternal, "generate primary key for "+t.alias)
		}
		entity.Set(pk, key)
	}

	var names []string
	var values []any
	for _, col := range cols {
		if !entity.Has(col) {
			continue
		}
		v := entity.Get(col)
		if v == nil && single && col == pk {
			continue
		}
		names = append(names, col)
		values = append(values, v)
	}
	if len(names) == 0 {
		return errors.NewErrorf(errors.ErrCodeInvalidInput, "table %s: entity has no column values", t.alias)
	}

	s := t.orm.executor(ctx)
	builder := s.InsertInto(t.table).Columns(names...).Values(values...)
	needKey := single && entity.Get(pk) == nil
	returning := needKey && s.Dialect().SupportsReturning()
	if returning {
		builder = builder.Returning(pk)
	}
	t.logStatement(ctx, builder)

	switch {
	case returning:
		var id any
		if err := builder.QueryRow(ctx).Scan(&id); err != nil {
			return t.writeError(ctx, s, err, "insert")
		}
		entity.Set(pk, normalizeValue(id))
	case needKey:
		res, err := builder.Exec(ctx)
		if err != nil {
			return t.writeError(ctx, s, err, "insert")
		}
		id, err := res.LastInsertId()
		if err != nil {
			return errors.WrapDatabaseError(ctx, err, "insert", t.table)
		}
		entity.Set(pk, id)
	default:
		if _, err := builder.Exec(ctx); err != nil {
			return t.writeError(ctx, s, err, "insert")
		}
	}
	return nil
}

// writeError 唯一键冲突归为 DUPLICATE_ERROR，其余按数据库错误包装
func (t *Table) writeError(ctx context.Context, s dbsql.ISql, err error, op string) error {
	if s.Dialect().IsUniqueViolation(err) {
		return errors.WrapError(err, errors.ErrCodeDuplicate, op+" "+t.table+": duplicate key").
			WithContext("table", t.table)
	}
	return errors.WrapDatabaseError(ctx, err, op, t.table)
}

func (t *Table) update(ctx context.Context, entity orm.IEntity, cols []string) error {
	s := t.orm.executor(ctx)
	builder := s.Update(t.table)
	isKey := make(map[string]bool, len(t.primaryKey))
	for _, col := range t.primaryKey {
		isKey[col] = true
	}
	n := 0
	for _, col := range cols {
		if isKey[col] || !entity.Has(col) {
			continue
		}
		builder.Set(col, entity.Get(col))
		n++
	}
	if n == 0 {
		return nil
	}

	where, args, err := t.entityKeyCondition(entity, s.Dialect())
	if err != nil {
		return err
	}
	builder.Where(where, args...)
	t.logStatement(ctx, builder)
	if _, err := builder.Exec(ctx); err != nil {
		return t.writeError(ctx, s, err, "update")
	}
	return nil
}

// entityKeyCondition 以实体主键值生成不带别名的 WHERE 片段
func (t *Table) entityKeyCondition(entity orm.IEntity, q orm.Quoter) (string, []any, error) {
	conds := make([]orm.Expression, 0, len(t.primaryKey))
	for _, col := range t.primaryKey {
		v := entity.Get(col)
		if v == nil {
			return "", nil, errors.NewErrorf(errors.ErrCodeInvalidInput, "table %s: primary key %s is empty", t.alias, col)
		}
		conds = append(conds, orm.Eq(col, v))
	}
	where, args := orm.RenderAll(orm.UnqualifiedQuoter{Quoter: q}, conds)
	return where, args, nil
}

// Delete 先对全部关联执行级联删除，再按主键删除实体本身。
func (t *Table) Delete(ctx context.Context, entity orm.IEntity, opts orm.DeleteOptions) (bool, error) {
	if !opts.SkipCascade {
		for _, assoc := range t.Associations() {
			if _, err := assoc.CascadeDelete(ctx, entity, opts); err != nil {
				return false, err
			}
		}
	}

	conds := make([]orm.Expression, 0, len(t.primaryKey))
	for _, col := range t.primaryKey {
		v := entity.Get(col)
		if v == nil {
			return false, errors.NewErrorf(errors.ErrCodeInvalidInput, "table %s: primary key %s is empty", t.alias, col)
		}
		conds = append(conds, orm.Eq(t.alias+"."+col, v))
	}
	n, err := t.DeleteAll(ctx, conds...)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteAll 以单条 DELETE 删除满足条件的行；条件中的别名前缀会被去掉。
func (t *Table) DeleteAll(ctx context.Context, conds ...orm.Expression) (int64, error) {
	if len(conds) == 0 {
		return 0, errors.NewErrorf(errors.ErrCodeInvalidInput, "table %s: delete without conditions is not allowed", t.alias)
	}
	s := t.orm.executor(ctx)
	where, args := orm.RenderAll(orm.UnqualifiedQuoter{Quoter: s.Dialect()}, conds)
	builder := s.DeleteFrom(t.table).Where(where, args...)
	t.logStatement(ctx, builder)

	res, err := builder.Exec(ctx)
	if err != nil {
		return 0, errors.WrapDatabaseError(ctx, err, "delete", t.table)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.WrapDatabaseError(ctx, err, "delete", t.table)
	}
	return n, nil
}

func (t *Table) Association(name string) (orm.IAssociation, bool) {
	t.assocMu.RLock()
	defer t.assocMu.RUnlock()
	a, ok := t.assocs[name]
	return a, ok
}

// AddAssociation 注册关联；同名关联已存在时保留已有的并返回它。
func (t *Table) AddAssociation(assoc orm.IAssociation) orm.IAssociation {
	t.assocMu.Lock()
	defer t.assocMu.Unlock()
	if existing, ok := t.assocs[assoc.Name()]; ok {
		if existing != assoc && existing.Kind() != assoc.Kind() {
			t.orm.logger.Warn(context.Background(), "association already declared, keeping the existing one",
				logging.String("table", t.alias),
				logging.String("association", assoc.Name()),
				logging.String("existing_kind", string(existing.Kind())),
				logging.String("ignored_kind", string(assoc.Kind())),
			)
		}
		return existing
	}
	t.assocs[assoc.Name()] = assoc
	t.order = append(t.order, assoc.Name())
	return assoc
}

// Associations 按声明顺序返回全部关联
func (t *Table) Associations() []orm.IAssociation {
	t.assocMu.RLock()
	defer t.assocMu.RUnlock()
	out := make([]orm.IAssociation, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, t.assocs[name])
	}
	return out
}

// BelongsTo 声明并注册 BelongsTo 关联。
func (t *Table) BelongsTo(name string, opts ...association.Option) (*association.BelongsTo, error) {
	a, err := association.NewBelongsTo(t.orm, t, name, opts...)
	return declare(t, a, err)
}

// HasOne 声明并注册 HasOne 关联。
func (t *Table) HasOne(name string, opts ...association.Option) (*association.HasOne, error) {
	a, err := association.NewHasOne(t.orm, t, name, opts...)
	return declare(t, a, err)
}

// HasMany 声明并注册 HasMany 关联。
func (t *Table) HasMany(name string, opts ...association.Option) (*association.HasMany, error) {
	a, err := association.NewHasMany(t.orm, t, name, opts...)
	return declare(t, a, err)
}

// BelongsToMany 声明并注册 BelongsToMany 关联。
func (t *Table) BelongsToMany(name string, opts ...association.Option) (*association.BelongsToMany, error) {
	a, err := association.NewBelongsToMany(t.orm, t, name, opts...)
	return declare(t, a, err)
}

// declare 注册关联；同名关联已存在且类型相同时返回已有的
func declare[T orm.IAssociation](t *Table, a T, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	registered := t.AddAssociation(a)
	typed, ok := registered.(T)
	if !ok {
		return zero, orm.ConfigurationErrorf("table %s: association %q already declared as %s", t.alias, a.Name(), registered.Kind())
	}
	return typed, nil
}

type statementBuilder interface {
	Build() (string, []any)
}

func (t *Table) logStatement(ctx context.Context, b statementBuilder) {
	if t.orm.logger == nil {
		return
	}
	sqlText, args := b.Build()
	t.orm.logger.Debug(ctx, "sql",
		logging.String("table", t.alias),
		logging.String("statement", sqlText),
		logging.Int("args", len(args)),
	)
}
