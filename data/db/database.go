// Package db 提供关联引擎使用的最小数据库抽象。
//
// 表对象与关联对象只依赖这里的接口，具体驱动（sqlite、postgres、mysql）
// 由 data/db/basic 基于 database/sql 实现。
package db

import (
	"context"
	"database/sql"
)

// IExecutor 语句执行；占位符统一写作 ?，由实现按方言改写
type IExecutor interface {
	Query(ctx context.Context, query string, args ...any) (IRows, error)
	QueryRow(ctx context.Context, query string, args ...any) IRow
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// IDatabase 连接或事务；事务上调用 Begin 返回 UNSUPPORTED_OPERATION
type IDatabase interface {
	IExecutor

	Begin(ctx context.Context) (ITransaction, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (ITransaction, error)

	Ping(ctx context.Context) error
	Close() error
	// Raw 底层 *sql.DB 或 *sql.Tx
	Raw() any
}

// IDialectNameProvider 可选接口，返回 driver 名（mysql、sqlite、postgres），
// SQL 构建层据此决定引号与占位符。
type IDialectNameProvider interface {
	GetDialectName() string
}

// ITransaction 事务接口
type ITransaction interface {
	IDatabase

	Commit() error
	Rollback() error
}

// IRow 单行结果，*sql.Row 直接满足
type IRow interface {
	Scan(dest ...any) error
	Err() error
}

// IRows 结果集，*sql.Rows 直接满足；hydrate 依赖 Columns 还原别名列
type IRows interface {
	IRow
	Next() bool
	Close() error
	Columns() ([]string, error)
	ColumnTypes() ([]*sql.ColumnType, error)
}

// DBConfig 数据库配置
//
// mapstructure 标签供 viper 反序列化配置文件使用。
type DBConfig struct {
	Driver   string `mapstructure:"driver"` // mysql, postgres, sqlite
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`

	// DSN 非空时直接作为 sql.Open 的数据源，忽略上面的分项配置
	DSN string `mapstructure:"dsn"`

	// 连接池；sqlite 内存库强制单连接
	MaxOpenConns    int `mapstructure:"max_open_conns"`
	MaxIdleConns    int `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int `mapstructure:"conn_max_lifetime"` // 秒
	ConnMaxIdleTime int `mapstructure:"conn_max_idle_time"` // 秒

	// 其他选项
	SSLMode   string `mapstructure:"sslmode"`
	ParseTime bool   `mapstructure:"parse_time"`
}

type txKey struct{}

// WithTx 将事务放入上下文，后续 Executor(ctx, db) 会优先返回该事务
func WithTx(ctx context.Context, tx ITransaction) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext 取出上下文中的事务
func TxFromContext(ctx context.Context) (ITransaction, bool) {
	if ctx == nil {
		return nil, false
	}
	tx, _ := ctx.Value(txKey{}).(ITransaction)
	return tx, tx != nil
}

// Executor 返回当前上下文应使用的执行者：有事务用事务，否则用 fallback
func Executor(ctx context.Context, fallback IDatabase) IDatabase {
	if tx, ok := TxFromContext(ctx); ok {
		return tx
	}
	return fallback
}
