// Package basic 基于 data/db 与 data/db/sql 实现 orm 的表、查询与注册表契约。
//
// 实体统一为 *orm.Record；关联的连接、预加载与级联删除由 data/orm/association 完成，
// 这里只负责把它们翻译为 SQL 并水合结果。
package basic

import (
	"context"
	"sort"
	"sync"

	dbcore "gorel/data/db"
	dbsql "gorel/data/db/sql"
	"gorel/data/orm"
	"gorel/data/orm/inflector"
	"gorel/errors"
	"gorel/logging"
)

// Orm 表对象注册表，同时持有数据库连接。
type Orm struct {
	db     dbcore.IDatabase
	logger logging.Logger

	mu     sync.RWMutex
	tables map[string]*Table
}

var _ orm.IRegistry = (*Orm)(nil)

// Option Orm 配置项
type Option func(*Orm)

// WithLogger 指定日志器，默认使用 logging.ComponentLogger("orm")。
func WithLogger(logger logging.Logger) Option {
	return func(o *Orm) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New 创建一个基于指定 IDatabase 的注册表。
func New(db dbcore.IDatabase, opts ...Option) *Orm {
	o := &Orm{
		db:     db,
		logger: logging.ComponentLogger("orm"),
		tables: make(map[string]*Table),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// Database 返回底层数据库抽象。
func (o *Orm) Database() dbcore.IDatabase { return o.db }

// Get 查找别名对应的表；不存在时按 cfg 创建并缓存。
func (o *Orm) Get(alias string, cfg ...orm.TableConfig) (orm.ITable, error) {
	return o.Table(alias, cfg...)
}

// Table 与 Get 相同，返回具体类型以便声明关联。
func (o *Orm) Table(alias string, cfg ...orm.TableConfig) (*Table, error) {
	o.mu.RLock()
	t, ok := o.tables[alias]
	o.mu.RUnlock()
	if ok {
		return t, nil
	}

	var c orm.TableConfig
	if len(cfg) > 0 {
		c = cfg[0]
	}
	c.Alias = alias
	t, err := newTable(o, c)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if existing, ok := o.tables[alias]; ok {
		return existing, nil
	}
	o.tables[alias] = t
	o.logger.Debug(context.Background(), "table registered",
		logging.String("alias", alias),
		logging.String("table", t.table),
	)
	return t, nil
}

// MustTable 同 Table，失败时 panic，用于初始化代码。
func (o *Orm) MustTable(alias string, cfg ...orm.TableConfig) *Table {
	t, err := o.Table(alias, cfg...)
	if err != nil {
		panic(err)
	}
	return t
}

func (o *Orm) Exists(alias string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	_, ok := o.tables[alias]
	return ok
}

// Set 直接注册表对象；非本包创建的表对象不受支持。
func (o *Orm) Set(alias string, table orm.ITable) orm.ITable {
	t, ok := table.(*Table)
	if !ok {
		o.logger.Warn(context.Background(), "ignoring foreign table implementation",
			logging.String("alias", alias))
		return table
	}
	o.mu.Lock()
	o.tables[alias] = t
	o.mu.Unlock()
	return t
}

func (o *Orm) Remove(alias string) {
	o.mu.Lock()
	delete(o.tables, alias)
	o.mu.Unlock()
}

func (o *Orm) Clear() {
	o.mu.Lock()
	o.tables = make(map[string]*Table)
	o.mu.Unlock()
}

// Aliases 已注册的表别名（按字母序）
func (o *Orm) Aliases() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]string, 0, len(o.tables))
	for alias := range o.tables {
		out = append(out, alias)
	}
	sort.Strings(out)
	return out
}

// Transaction 在事务中执行 fn；事务随 ctx 传递，fn 内所有表操作都使用该事务。
// fn 返回错误时回滚。ctx 中已有事务时直接复用。
func (o *Orm) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := dbcore.TxFromContext(ctx); ok {
		return fn(ctx)
	}

	tx, err := o.db.Begin(ctx)
	if err != nil {
		return errors.WrapDatabaseError(ctx, err, "begin transaction", "")
	}
	defer tx.Rollback()

	if err := fn(dbcore.WithTx(ctx, tx)); err != nil {
		o.logger.Debug(ctx, "transaction rolled back", logging.Error(err))
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.WrapDatabaseError(ctx, err, "commit transaction", "")
	}
	return nil
}

// executor 当前上下文应使用的 SQL 构建器（事务优先）
func (o *Orm) executor(ctx context.Context) dbsql.ISql {
	return dbsql.New(dbcore.Executor(ctx, o.db))
}

func defaultTableName(alias string) string {
	return inflector.Tableize(alias)
}
