package basic

import (
	"context"
	"database/sql"

	core "gorel/data/db"
	"gorel/errors"
)

// Tx 事务句柄，同时实现 core.IDatabase，可经 ctx 透传给表对象与关联对象
type Tx struct {
	conn
	db *sql.DB
	tx *sql.Tx
}

// Begin 不支持嵌套事务，事务边界由外层 Orm.Transaction 协调
func (t *Tx) Begin(ctx context.Context) (core.ITransaction, error) {
	return nil, errors.NewError(errors.ErrCodeUnsupported, "basic.Tx: nested transactions are not supported")
}

func (t *Tx) BeginTx(ctx context.Context, _ *sql.TxOptions) (core.ITransaction, error) {
	return t.Begin(ctx)
}

func (t *Tx) Commit() error                  { return t.tx.Commit() }
func (t *Tx) Rollback() error                { return t.tx.Rollback() }
func (t *Tx) Ping(ctx context.Context) error { return t.db.PingContext(ctx) }
func (t *Tx) Close() error                   { return nil }
func (t *Tx) Raw() any                       { return t.tx }

func (t *Tx) GetDialectName() string { return string(t.dialect.Name()) }
