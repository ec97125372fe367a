package dialect

import (
	stdErrors "errors"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"

	core "gorel/data/db"
)

// Name 标准化的数据库方言名称
type Name string

const (
	NameMySQL    Name = "mysql"
	NameSQLite   Name = "sqlite"
	NamePostgres Name = "postgres"
	NameUnknown  Name = ""
)

// AliasSeparator 查询结果列别名中表别名与列名的分隔符，例如 Authors__name
const AliasSeparator = "__"

// traits 各方言的差异点
type traits struct {
	quote     string
	returning bool
}

var known = map[Name]traits{
	NameMySQL:    {quote: "`"},
	NameSQLite:   {quote: `"`, returning: true},
	NamePostgres: {quote: `"`, returning: true},
}

// driverNames 驱动名/别名到方言的映射
var driverNames = map[string]Name{
	"mysql":      NameMySQL,
	"sqlite":     NameSQLite,
	"sqlite3":    NameSQLite,
	"postgres":   NamePostgres,
	"postgresql": NamePostgres,
	"pgx":        NamePostgres,
}

// Dialect 表示当前数据库的方言能力
type Dialect struct {
	name Name
}

// New 根据驱动名构造方言（大小写不敏感），未识别时为 NameUnknown
func New(driver string) Dialect {
	return Dialect{name: driverNames[strings.ToLower(strings.TrimSpace(driver))]}
}

// FromDatabase 通过可选的 core.IDialectNameProvider 推断方言
func FromDatabase(db core.IDatabase) Dialect {
	if p, ok := db.(core.IDialectNameProvider); ok {
		return New(p.GetDialectName())
	}
	return Dialect{}
}

func (d Dialect) Name() Name { return d.name }

// QuoteIdentifier 对带点名称逐段加引号，* 与空段原样保留；未知方言不加引号。
// 不校验标识符语法。
func (d Dialect) QuoteIdentifier(name string) string {
	q := known[d.name].quote
	if q == "" || name == "" {
		return name
	}
	parts := strings.Split(name, ".")
	for i, p := range parts {
		if p != "" && p != "*" {
			parts[i] = q + p + q
		}
	}
	return strings.Join(parts, ".")
}

// ColumnAlias 生成查询结果中的列别名：<alias>__<column>
func ColumnAlias(alias, column string) string {
	return alias + AliasSeparator + column
}

// SplitColumnAlias 拆分 ColumnAlias 生成的别名；不含分隔符时 ok 为 false
func SplitColumnAlias(name string) (alias, column string, ok bool) {
	idx := strings.Index(name, AliasSeparator)
	if idx <= 0 {
		return "", name, false
	}
	return name[:idx], name[idx+len(AliasSeparator):], true
}

// Rebind 把 ? 依次改写为 $1、$2...，仅 Postgres 需要；单引号字面量内的 ? 保留。
func (d Dialect) Rebind(query string) string {
	if query == "" || d.name != NamePostgres {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + 8)
	argIndex := 1
	inLiteral := false
	for i := 0; i < len(query); i++ {
		ch := query[i]
		switch {
		case ch == '\'':
			inLiteral = !inLiteral
			sb.WriteByte(ch)
		case ch == '?' && !inLiteral:
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(argIndex))
			argIndex++
		default:
			sb.WriteByte(ch)
		}
	}
	return sb.String()
}

// SupportsReturning 当前方言是否支持 INSERT ... RETURNING
func (d Dialect) SupportsReturning() bool { return known[d.name].returning }

// IsUniqueViolation 判断错误是否为唯一键/主键冲突
//
// 优先使用驱动错误类型（pq.Error 23505、mysql.MySQLError 1062），
// sqlite 驱动没有稳定的错误类型，退化为消息匹配。
func (d Dialect) IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pqErr *pq.Error
	if stdErrors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var myErr *mysql.MySQLError
	if stdErrors.As(err, &myErr) {
		return myErr.Number == 1062 || myErr.Number == 1586
	}

	msg := strings.ToLower(err.Error())
	switch d.name {
	case NameSQLite:
		return strings.Contains(msg, "unique constraint failed")
	default:
		return strings.Contains(msg, "duplicate key") ||
			strings.Contains(msg, "unique constraint")
	}
}
