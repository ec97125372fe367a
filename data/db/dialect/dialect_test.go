package dialect

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestRebind_Postgres(t *testing.T) {
	d := New("postgres")
	got := d.Rebind("SELECT * FROM t WHERE a = ? AND b IN (?, ?)")
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b IN ($2, $3)", got)
}

func TestRebind_SkipsStringLiteral(t *testing.T) {
	d := New("postgresql")
	got := d.Rebind("SELECT * FROM t WHERE title = 'what?' AND id = ?")
	assert.Equal(t, "SELECT * FROM t WHERE title = 'what?' AND id = $1", got)
}

func TestRebind_NoChangeForMySQLSQLite(t *testing.T) {
	orig := "DELETE FROM t WHERE id = ? AND name = ?"
	for _, name := range []string{"mysql", "sqlite", "unknown"} {
		assert.Equal(t, orig, New(name).Rebind(orig), name)
	}
}

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, `"Articles"."author_id"`, New("sqlite").QuoteIdentifier("Articles.author_id"))
	assert.Equal(t, "`articles`", New("mysql").QuoteIdentifier("articles"))
	assert.Equal(t, `"Tags".*`, New("postgres").QuoteIdentifier("Tags.*"))
	assert.Equal(t, "a.b", New("").QuoteIdentifier("a.b"))
	assert.Equal(t, "", New("sqlite").QuoteIdentifier(""))
}

func TestColumnAlias(t *testing.T) {
	name := ColumnAlias("Authors", "author_id")
	assert.Equal(t, "Authors__author_id", name)

	alias, column, ok := SplitColumnAlias(name)
	assert.True(t, ok)
	assert.Equal(t, "Authors", alias)
	assert.Equal(t, "author_id", column)

	_, column, ok = SplitColumnAlias("plain")
	assert.False(t, ok)
	assert.Equal(t, "plain", column)
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		err     error
		want    bool
	}{
		{name: "nil", dialect: New("sqlite"), err: nil, want: false},
		{name: "pq 23505", dialect: New("postgres"), err: &pq.Error{Code: "23505"}, want: true},
		{name: "pq 其他错误码", dialect: New("postgres"), err: &pq.Error{Code: "23503"}, want: false},
		{name: "mysql 1062", dialect: New("mysql"), err: fmt.Errorf("insert: %w", &mysql.MySQLError{Number: 1062}), want: true},
		{name: "mysql 1452", dialect: New("mysql"), err: &mysql.MySQLError{Number: 1452}, want: false},
		{name: "sqlite", dialect: New("sqlite"), err: errors.New("UNIQUE constraint failed: tags.name"), want: true},
		{name: "未知方言", dialect: New(""), err: errors.New("duplicate key value"), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.dialect.IsUniqueViolation(tt.err))
		})
	}
}

func TestNew_DriverAliases(t *testing.T) {
	tests := []struct {
		driver    string
		want      Name
		returning bool
	}{
		{"sqlite3", NameSQLite, true},
		{" PGX ", NamePostgres, true},
		{"MySQL", NameMySQL, false},
		{"oracle", NameUnknown, false},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			d := New(tt.driver)
			assert.Equal(t, tt.want, d.Name())
			assert.Equal(t, tt.returning, d.SupportsReturning())
		})
	}
	assert.Equal(t, NameUnknown, FromDatabase(nil).Name())
}
