package basic

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	core "gorel/data/db"
	"gorel/data/db/dialect"
)

// DB 基于 database/sql 的最小实现，满足 core.IDatabase 抽象
type DB struct {
	conn
	db     *sql.DB
	driver string
}

// New 根据 core.DBConfig 创建基础数据库实例
//
// 调用方必须确保所配置的 Driver 已通过空导入注册（例如 `_ "modernc.org/sqlite"`）。
// sqlite 内存库（":memory:"）每个连接都是独立数据库，因此强制单连接。
func New(config core.DBConfig) (core.IDatabase, error) {
	driver := config.Driver
	if driver == "" {
		driver = "sqlite"
	}

	dsn, err := BuildDSN(config)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	if dialect.New(driver).Name() == dialect.NameSQLite && strings.Contains(dsn, ":memory:") {
		config.MaxOpenConns = 1
	}

	// 连接池配置（可选）
	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(time.Duration(config.ConnMaxLifetime) * time.Second)
	}
	if config.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(time.Duration(config.ConnMaxIdleTime) * time.Second)
	}

	// 基础可用性检查
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return Wrap(db, driver), nil
}

// Wrap 将已打开的 *sql.DB 包装为 core.IDatabase
func Wrap(db *sql.DB, driver string) *DB {
	return &DB{conn: conn{target: db, dialect: dialect.New(driver)}, db: db, driver: driver}
}

// BuildDSN 根据配置拼装数据源字符串；DSN 字段非空时原样返回
func BuildDSN(config core.DBConfig) (string, error) {
	if config.DSN != "" {
		return config.DSN, nil
	}
	driver := config.Driver
	if driver == "" {
		driver = "sqlite"
	}
	switch dialect.New(driver).Name() {
	case dialect.NameSQLite:
		if config.Database == "" {
			return ":memory:", nil
		}
		return config.Database, nil
	case dialect.NameMySQL:
		c := mysql.NewConfig()
		c.User = config.Username
		c.Passwd = config.Password
		c.Net = "tcp"
		c.Addr = hostPort(config.Host, config.Port, 3306)
		c.DBName = config.Database
		c.ParseTime = config.ParseTime
		return c.FormatDSN(), nil
	case dialect.NamePostgres:
		u := url.URL{
			Scheme: "postgres",
			Host:   hostPort(config.Host, config.Port, 5432),
			Path:   "/" + config.Database,
		}
		if config.Username != "" {
			u.User = url.UserPassword(config.Username, config.Password)
		}
		q := u.Query()
		sslMode := config.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		q.Set("sslmode", sslMode)
		u.RawQuery = q.Encode()
		return u.String(), nil
	default:
		return "", fmt.Errorf("basic: unsupported driver %q", config.Driver)
	}
}

func hostPort(host string, port, defaultPort int) string {
	if host == "" {
		host = "localhost"
	}
	if port == 0 {
		port = defaultPort
	}
	return host + ":" + strconv.Itoa(port)
}

func (d *DB) Begin(ctx context.Context) (core.ITransaction, error) {
	return d.BeginTx(ctx, nil)
}

func (d *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (core.ITransaction, error) {
	tx, err := d.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Tx{conn: conn{target: tx, dialect: d.dialect}, db: d.db, tx: tx}, nil
}

func (d *DB) Ping(ctx context.Context) error { return d.db.PingContext(ctx) }
func (d *DB) Close() error                   { return d.db.Close() }
func (d *DB) Raw() any                       { return d.db }

// GetDialectName 实现 core.IDialectNameProvider 接口，返回底层 driver 名
func (d *DB) GetDialectName() string {
	return d.driver
}

// ExecDDL 辅助：按分号拆分并依次执行建表语句（用于测试与 CLI 初始化）
func (d *DB) ExecDDL(ctx context.Context, script string) error {
	for _, stmt := range strings.Split(script, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("basic: exec ddl %q: %w", stmt, err)
		}
	}
	return nil
}
