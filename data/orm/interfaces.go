// Package orm 定义关联引擎与表/查询/实体层之间的窄契约。
//
// 关联对象（data/orm/association）只通过这里的接口访问数据库；
// data/orm/basic 提供基于 data/db 的一套实现。
package orm

import (
	"context"

	"gorel/data/db"
)

// IRegistry 表对象注册表：按别名查找或创建表对象。
type IRegistry interface {
	// Get 查找别名对应的表；不存在时按 cfg 创建并缓存。
	Get(alias string, cfg ...TableConfig) (ITable, error)
	Exists(alias string) bool
	// Set 直接注册表对象，覆盖同名表。
	Set(alias string, table ITable) ITable
	Remove(alias string)
	// Clear 丢弃全部表对象（连同其关联集合）。
	Clear()
}

// IEntity 行实体：按字段名读写。
type IEntity interface {
	Get(field string) any
	Set(field string, value any)
	Has(field string) bool
	Unset(field string)
	Fields() []string
	IsNew() bool
	SetNew(isNew bool)
}

// ITable 表对象。
type ITable interface {
	Alias() string
	Table() string
	PrimaryKey() []string
	// Columns 返回表的列名，首次调用时自省并缓存。
	Columns(ctx context.Context) ([]string, error)
	Quoter() Quoter
	Registry() IRegistry
	Database() db.IDatabase

	NewEntity() IEntity
	Query() IQuery
	Get(ctx context.Context, primaryKey any) (IEntity, error)
	Exists(ctx context.Context, conds ...Expression) (bool, error)
	Save(ctx context.Context, entity IEntity, opts SaveOptions) (IEntity, error)
	// Delete 先对全部关联执行级联删除，再删除实体本身。
	Delete(ctx context.Context, entity IEntity, opts DeleteOptions) (bool, error)
	// DeleteAll 以单条语句删除满足条件的行，返回影响行数。
	DeleteAll(ctx context.Context, conds ...Expression) (int64, error)

	Association(name string) (IAssociation, bool)
	AddAssociation(assoc IAssociation) IAssociation
	Associations() []IAssociation
}

// IQuery 针对单张表的查询。
type IQuery interface {
	Repository() ITable
	// Alias 主表在 FROM 中的别名，默认为表别名。
	Alias() string
	// As 改用给定别名，未限定的列名随之限定到该别名。
	As(alias string) IQuery

	// Select 限定主表返回的列（未限定列名按主表别名限定）。
	Select(fields ...string) IQuery
	Where(conds ...Expression) IQuery
	OrderBy(order ...OrderBy) IQuery
	Limit(n int) IQuery
	Offset(n int) IQuery

	Join(join Join) IQuery
	Joins() []Join

	// Contain 声明需要一并加载的关联路径，例如 "Comments.Authors"。
	Contain(path string, opts ...ContainOption) IQuery
	Containments() []Containment

	Clone() IQuery
	// Subquery 返回只选择给定列、不含关联加载的副本，用于 IN (SELECT ...)。
	Subquery(fields ...string) IQuery

	// Build 生成最终 SQL；匹配型与可连接的关联在这里转换为 JOIN。
	Build(ctx context.Context) (string, []any, error)
	Execute(ctx context.Context) ([]IEntity, error)
	First(ctx context.Context) (IEntity, error)
}

// Injector 把预加载结果挂到外层查询的一行上。
type Injector func(row IEntity)

// IAssociation 关联契约，四种关联类型共用。
type IAssociation interface {
	Name() string
	Kind() AssociationKind
	Source() ITable
	// Target 惰性解析目标表；解析失败时返回 nil。
	Target() ITable
	// ResolveTarget 同 Target，但返回解析失败的原因。
	ResolveTarget() (ITable, error)

	ForeignKey() string
	SetForeignKey(key string)
	// BindingKey 源表中其取值作为预加载键的列。
	BindingKey() string
	Conditions() []Expression
	Sort() []OrderBy
	Strategy() Strategy
	JoinType() JoinType
	Property() string

	CanBeJoined() bool
	CascadeCallbacks() bool
	Dependent() bool
	IsOwningSide() bool

	JoinCondition(opts AttachOptions) ([]Expression, error)
	AttachTo(q IQuery, opts AttachOptions) error
	EagerLoader(ctx context.Context, opts EagerLoadOptions) (Injector, error)
	CascadeDelete(ctx context.Context, entity IEntity, opts DeleteOptions) (bool, error)
	Save(ctx context.Context, entity IEntity, opts SaveOptions) (IEntity, error)
}

// IKeyGenerator 新实体主键生成器。
type IKeyGenerator interface {
	NextKey() (any, error)
}
