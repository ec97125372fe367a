package basic

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	core "gorel/data/db"
	dbbasic "gorel/data/db/basic"
	"gorel/data/db/recorder"
	"gorel/data/orm"
	"gorel/data/orm/association"
	"gorel/logging"
)

const schema = `
CREATE TABLE authors (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL);
CREATE TABLE profiles (id INTEGER PRIMARY KEY AUTOINCREMENT, author_id INTEGER, bio TEXT);
CREATE TABLE articles (id INTEGER PRIMARY KEY AUTOINCREMENT, author_id INTEGER, title TEXT NOT NULL, published INTEGER NOT NULL DEFAULT 0);
CREATE TABLE comments (id INTEGER PRIMARY KEY AUTOINCREMENT, article_id INTEGER, author_id INTEGER, body TEXT);
CREATE TABLE tags (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL);
CREATE TABLE articles_tags (article_id INTEGER NOT NULL, tag_id INTEGER NOT NULL, weight INTEGER NOT NULL DEFAULT 0, PRIMARY KEY (article_id, tag_id));

INSERT INTO authors (id, name) VALUES (1, 'mariano'), (2, 'larry'), (3, 'garrett');
INSERT INTO profiles (id, author_id, bio) VALUES (1, 1, 'core developer');
INSERT INTO articles (id, author_id, title, published) VALUES (1, 1, 'First', 1), (2, 2, 'Second', 1), (3, 1, 'Third', 0), (4, 99, 'Orphan', 0);
INSERT INTO comments (id, article_id, author_id, body) VALUES (1, 1, 2, 'first comment'), (2, 1, 1, 'second comment'), (3, 2, 1, 'third comment');
INSERT INTO tags (id, name) VALUES (1, 'php'), (2, 'go'), (3, 'sql');
INSERT INTO articles_tags (article_id, tag_id, weight) VALUES (1, 1, 5), (1, 2, 3), (2, 1, 1), (3, 3, 0);
`

type fixture struct {
	ctx      context.Context
	rec      *recorder.Recorder
	orm      *Orm
	authors  *Table
	profiles *Table
	articles *Table
	comments *Table
	tags     *Table
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := dbbasic.New(core.DBConfig{Driver: "sqlite", Database: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.(*dbbasic.DB).ExecDDL(context.Background(), schema))

	rec := recorder.New(db)
	o := New(rec, WithLogger(logging.NewNoopLogger()))
	f := &fixture{
		ctx:      context.Background(),
		rec:      rec,
		orm:      o,
		authors:  o.MustTable("Authors"),
		profiles: o.MustTable("Profiles"),
		articles: o.MustTable("Articles"),
		comments: o.MustTable("Comments"),
		tags:     o.MustTable("Tags"),
	}

	_, err = f.articles.BelongsTo("Authors")
	require.NoError(t, err)
	_, err = f.articles.HasMany("Comments", association.WithSort(orm.Asc("id")))
	require.NoError(t, err)
	_, err = f.articles.BelongsToMany("Tags", association.WithSort(orm.Asc("id")))
	require.NoError(t, err)
	_, err = f.comments.BelongsTo("Authors")
	require.NoError(t, err)
	_, err = f.authors.HasOne("Profiles", association.WithForeignKey("author_id"))
	require.NoError(t, err)
	_, err = f.authors.HasMany("Articles", association.WithSort(orm.Asc("id")))
	require.NoError(t, err)
	return f
}

// selects 已执行的 SELECT 语句（不含列自省）
func (f *fixture) selects() []recorder.Statement {
	var out []recorder.Statement
	for _, s := range f.rec.Matching("SELECT") {
		if !strings.HasSuffix(s.SQL, "WHERE 1 = 0") {
			out = append(out, s)
		}
	}
	return out
}

func (f *fixture) article(t *testing.T, id int64) orm.IEntity {
	t.Helper()
	e, err := f.articles.Get(f.ctx, id)
	require.NoError(t, err)
	return e
}

func (f *fixture) count(t *testing.T, table string, where string, args ...any) int {
	t.Helper()
	var n int
	q := "SELECT COUNT(*) FROM " + table
	if where != "" {
		q += " WHERE " + where
	}
	require.NoError(t, f.rec.QueryRow(f.ctx, q, args...).Scan(&n))
	return n
}

func titles(rows []orm.IEntity) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i], _ = r.Get("title").(string)
	}
	return out
}

func names(rows []orm.IEntity) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i], _ = r.Get("name").(string)
	}
	return out
}
