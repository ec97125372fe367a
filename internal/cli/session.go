package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	core "gorel/data/db"
	dbbasic "gorel/data/db/basic"
	"gorel/data/db/recorder"
	"gorel/data/orm"
	"gorel/data/orm/association"
	"gorel/data/orm/basic"
	"gorel/data/orm/keygen"
	"gorel/logging"
)

// Session 一次命令执行所需的连接与表注册表
type Session struct {
	DB  core.IDatabase
	Orm *basic.Orm
	// Recorder 开启 trace 时非空
	Recorder *recorder.Recorder
}

// SessionOption 配置 Session
type SessionOption func(*sessionOptions)

type sessionOptions struct {
	trace  bool
	logger logging.Logger
}

// WithTrace 记录全部 SQL 语句
func WithTrace(enabled bool) SessionOption {
	return func(o *sessionOptions) { o.trace = enabled }
}

// WithSessionLogger 指定 ORM 使用的 Logger
func WithSessionLogger(logger logging.Logger) SessionOption {
	return func(o *sessionOptions) { o.logger = logger }
}

// Open 按配置连接数据库并装配表与关联
func Open(cfg *Config, opts ...SessionOption) (*Session, error) {
	db, err := dbbasic.New(cfg.Database)
	if err != nil {
		return nil, DBConnectError("connecting to database", err)
	}
	s, err := NewSession(db, cfg, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSession 基于已打开的连接装配表与关联
func NewSession(db core.IDatabase, cfg *Config, opts ...SessionOption) (*Session, error) {
	var o sessionOptions
	for _, opt := range opts {
		opt(&o)
	}

	s := &Session{DB: db}
	if o.trace {
		s.Recorder = recorder.New(db)
		db = s.Recorder
	}

	var ormOpts []basic.Option
	if o.logger != nil {
		ormOpts = append(ormOpts, basic.WithLogger(o.logger))
	}
	s.Orm = basic.New(db, ormOpts...)

	if err := s.register(cfg); err != nil {
		return nil, ConfigError("loading table definitions", err)
	}
	return s, nil
}

func (s *Session) register(cfg *Config) error {
	for _, meta := range cfg.Tables {
		gen, err := keygen.New(meta.KeyGenerator)
		if err != nil {
			return err
		}
		if _, err := s.Orm.Table(meta.Alias, orm.TableConfig{
			Table:        meta.Table,
			PrimaryKey:   meta.PrimaryKey,
			KeyGenerator: gen,
		}); err != nil {
			return err
		}
	}
	for _, meta := range cfg.Associations {
		if _, err := association.Declare(s.Orm, meta); err != nil {
			return err
		}
	}
	return nil
}

// Table 查找已声明的表；未在配置中声明的别名按约定创建
func (s *Session) Table(alias string) (*basic.Table, error) {
	t, err := s.Orm.Table(alias)
	if err != nil {
		return nil, ConfigError("resolving table "+alias, err)
	}
	return t, nil
}

// WriteTrace 输出已记录的语句，未开启 trace 时不输出
func (s *Session) WriteTrace(w io.Writer) {
	if s.Recorder == nil {
		return
	}
	for i, stmt := range s.Recorder.Statements() {
		fmt.Fprintf(w, "-- [%d] %s\n%s;\n", i+1, stmt.Kind, stmt.SQL)
		if len(stmt.Args) > 0 {
			args := make([]string, len(stmt.Args))
			for j, a := range stmt.Args {
				args[j] = fmt.Sprintf("%v", a)
			}
			fmt.Fprintf(w, "-- args: %s\n", strings.Join(args, ", "))
		}
	}
}

// Transaction 在事务中执行 fn；enabled 为 false 时直接执行
func (s *Session) Transaction(ctx context.Context, enabled bool, fn func(ctx context.Context) error) error {
	if !enabled {
		return fn(ctx)
	}
	return s.Orm.Transaction(ctx, fn)
}

// Close 关闭连接
func (s *Session) Close() error {
	return s.DB.Close()
}
