// Package sql 提供按方言加引号的 SQL 语句构建器。
//
// 构建器只负责拼装语句与参数顺序，表名经 isSafeIdentifier 校验后按方言加引号；
// 列表达式、条件与排序由调用方（orm 层的表达式树）负责渲染。
package sql

import (
	"context"
	"database/sql"

	core "gorel/data/db"
	"gorel/data/db/dialect"
)

// ISql 提供统一的 SQL 构建与执行接口。
type ISql interface {
	Select(columns ...string) ISelectBuilder
	InsertInto(table string) IInsertBuilder
	Update(table string) IUpdateBuilder
	DeleteFrom(table string) IDeleteBuilder

	// Dialect 返回构建器使用的方言
	Dialect() dialect.Dialect

	// GetDB 返回底层 IDatabase
	GetDB() core.IDatabase
}

// JoinKind 连接类型
type JoinKind string

const (
	LeftJoin  JoinKind = "LEFT"
	InnerJoin JoinKind = "INNER"
	RightJoin JoinKind = "RIGHT"
)

// ISelectBuilder 构建 SELECT 语句。
type ISelectBuilder interface {
	// From 指定主表，可选别名
	From(table string, alias ...string) ISelectBuilder
	// Join 追加连接子句；连接条件的参数排在 WHERE 参数之前
	Join(kind JoinKind, table, alias, on string, args ...any) ISelectBuilder
	Where(cond string, args ...any) ISelectBuilder
	OrderBy(exprs ...string) ISelectBuilder
	Limit(n int) ISelectBuilder
	Offset(n int) ISelectBuilder
	Build() (query string, args []any)
	Query(ctx context.Context) (core.IRows, error)
	QueryRow(ctx context.Context) core.IRow
}

// IInsertBuilder 构建 INSERT 语句。
type IInsertBuilder interface {
	Columns(cols ...string) IInsertBuilder
	Values(vals ...any) IInsertBuilder
	// Returning 追加 RETURNING 子句（仅在方言支持时生效）
	Returning(cols ...string) IInsertBuilder
	Build() (query string, args []any)
	Exec(ctx context.Context) (sql.Result, error)
	QueryRow(ctx context.Context) core.IRow
}

// IUpdateBuilder 构建 UPDATE 语句。
type IUpdateBuilder interface {
	Set(column string, val any) IUpdateBuilder
	Where(cond string, args ...any) IUpdateBuilder
	Build() (query string, args []any)
	Exec(ctx context.Context) (sql.Result, error)
}

// IDeleteBuilder 构建 DELETE 语句。
type IDeleteBuilder interface {
	Where(cond string, args ...any) IDeleteBuilder
	Build() (query string, args []any)
	Exec(ctx context.Context) (sql.Result, error)
}

type sqlImpl struct{ runner }

// New 创建 ISql 实例，方言由 db 推断。
func New(db core.IDatabase) ISql {
	return &sqlImpl{runner{db: db, dialect: dialect.FromDatabase(db)}}
}

func (s *sqlImpl) Select(columns ...string) ISelectBuilder {
	if len(columns) == 0 {
		columns = []string{"*"}
	}
	return &selectBuilder{runner: s.runner, cols: columns}
}

func (s *sqlImpl) InsertInto(table string) IInsertBuilder {
	return &insertBuilder{runner: s.runner, table: table}
}

func (s *sqlImpl) Update(table string) IUpdateBuilder {
	return &updateBuilder{runner: s.runner, table: table}
}

func (s *sqlImpl) DeleteFrom(table string) IDeleteBuilder {
	return &deleteBuilder{runner: s.runner, table: table}
}

func (s *sqlImpl) Dialect() dialect.Dialect { return s.dialect }
func (s *sqlImpl) GetDB() core.IDatabase    { return s.db }
