package basic

import (
	"context"
	"database/sql"

	core "gorel/data/db"
	"gorel/data/db/dialect"
)

// sqlConn *sql.DB 与 *sql.Tx 共有的执行方法
type sqlConn interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// conn 把 ? 占位符按方言改写后转发给底层连接；*sql.Rows、*sql.Row 直接满足 core.IRows、core.IRow
type conn struct {
	target  sqlConn
	dialect dialect.Dialect
}

func (c conn) Query(ctx context.Context, query string, args ...any) (core.IRows, error) {
	rows, err := c.target.QueryContext(ctx, c.dialect.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (c conn) QueryRow(ctx context.Context, query string, args ...any) core.IRow {
	return c.target.QueryRowContext(ctx, c.dialect.Rebind(query), args...)
}

func (c conn) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.target.ExecContext(ctx, c.dialect.Rebind(query), args...)
}
