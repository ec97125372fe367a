// Package recorder 提供记录所有 SQL 语句的 IDatabase 装饰器。
//
// 用于统计关联操作发出的语句数量，以及 CLI 的 --trace 输出。
package recorder

import (
	"context"
	"database/sql"
	"strings"
	"sync"

	core "gorel/data/db"
)

// Kind 语句类型
type Kind string

const (
	KindQuery Kind = "query"
	KindExec  Kind = "exec"
)

// Statement 一条已执行的语句
type Statement struct {
	Kind Kind
	SQL  string
	Args []any
}

// Verb 语句首个关键字（大写），如 SELECT、DELETE
func (s Statement) Verb() string {
	fields := strings.Fields(s.SQL)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}

// log 事务与外层连接共享的语句记录
type log struct {
	mu         sync.Mutex
	statements []Statement
}

func (l *log) add(kind Kind, query string, args []any) {
	l.mu.Lock()
	l.statements = append(l.statements, Statement{Kind: kind, SQL: query, Args: append([]any(nil), args...)})
	l.mu.Unlock()
}

// Recorder 记录语句后委托给内部 IDatabase
type Recorder struct {
	inner core.IDatabase
	log   *log
}

var (
	_ core.IDatabase            = (*Recorder)(nil)
	_ core.IDialectNameProvider = (*Recorder)(nil)
)

// New 包装 db
func New(db core.IDatabase) *Recorder {
	return &Recorder{inner: db, log: &log{}}
}

func (r *Recorder) Query(ctx context.Context, query string, args ...any) (core.IRows, error) {
	r.log.add(KindQuery, query, args)
	return r.inner.Query(ctx, query, args...)
}

func (r *Recorder) QueryRow(ctx context.Context, query string, args ...any) core.IRow {
	r.log.add(KindQuery, query, args)
	return r.inner.QueryRow(ctx, query, args...)
}

func (r *Recorder) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	r.log.add(KindExec, query, args)
	return r.inner.Exec(ctx, query, args...)
}

func (r *Recorder) Begin(ctx context.Context) (core.ITransaction, error) {
	tx, err := r.inner.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &recordingTx{Recorder: Recorder{inner: tx, log: r.log}, tx: tx}, nil
}

func (r *Recorder) BeginTx(ctx context.Context, opts *sql.TxOptions) (core.ITransaction, error) {
	tx, err := r.inner.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &recordingTx{Recorder: Recorder{inner: tx, log: r.log}, tx: tx}, nil
}

func (r *Recorder) Ping(ctx context.Context) error { return r.inner.Ping(ctx) }
func (r *Recorder) Close() error                   { return r.inner.Close() }
func (r *Recorder) Raw() any                       { return r.inner.Raw() }

// GetDialectName 透传内部连接的方言名
func (r *Recorder) GetDialectName() string {
	if p, ok := r.inner.(core.IDialectNameProvider); ok {
		return p.GetDialectName()
	}
	return ""
}

// Statements 返回已记录语句的副本
func (r *Recorder) Statements() []Statement {
	r.log.mu.Lock()
	defer r.log.mu.Unlock()
	return append([]Statement(nil), r.log.statements...)
}

// Count 已记录语句数量
func (r *Recorder) Count() int {
	r.log.mu.Lock()
	defer r.log.mu.Unlock()
	return len(r.log.statements)
}

// Matching 返回首个关键字为 verb 的语句
func (r *Recorder) Matching(verb string) []Statement {
	var out []Statement
	for _, s := range r.Statements() {
		if s.Verb() == strings.ToUpper(verb) {
			out = append(out, s)
		}
	}
	return out
}

// Reset 清空记录
func (r *Recorder) Reset() {
	r.log.mu.Lock()
	r.log.statements = nil
	r.log.mu.Unlock()
}

type recordingTx struct {
	Recorder
	tx core.ITransaction
}

func (t *recordingTx) Commit() error   { return t.tx.Commit() }
func (t *recordingTx) Rollback() error { return t.tx.Rollback() }
