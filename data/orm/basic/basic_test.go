package basic

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gorel/data/orm"
	"gorel/data/orm/association"
	"gorel/data/orm/keygen"
	apperrors "gorel/errors"
)

func TestOrm_TableDefaults(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, "articles", f.articles.Table())
	assert.Equal(t, []string{"id"}, f.articles.PrimaryKey())
	assert.True(t, f.orm.Exists("Articles"))
	assert.False(t, f.orm.Exists("Nope"))

	again, err := f.orm.Get("Articles")
	require.NoError(t, err)
	assert.Same(t, f.articles, again)

	_, err = f.orm.Get("Bad Alias")
	assert.ErrorIs(t, err, orm.ErrConfiguration)
}

func TestTable_ColumnsCached(t *testing.T) {
	f := newFixture(t)

	cols, err := f.articles.Columns(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "author_id", "title", "published"}, cols)

	f.rec.Reset()
	_, err = f.articles.Columns(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, f.rec.Count())
}

func TestQuery_FirstNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.articles.Get(f.ctx, int64(404))
	require.Error(t, err)
	assert.ErrorIs(t, err, orm.ErrNotFound)
}

func TestQuery_UnknownContainment(t *testing.T) {
	f := newFixture(t)

	_, err := f.articles.Query().Contain("Nope").Execute(f.ctx)
	assert.ErrorIs(t, err, orm.ErrConfiguration)
}

func TestQuery_BelongsToJoin(t *testing.T) {
	f := newFixture(t)
	f.rec.Reset()

	rows, err := f.articles.Query().Contain("Authors").OrderBy(orm.Asc("id")).Execute(f.ctx)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	selects := f.selects()
	require.Len(t, selects, 1, "可连接的关联在主查询中完成")
	assert.Contains(t, selects[0].SQL, `LEFT JOIN "authors" "Authors" ON "Authors"."id" = "Articles"."author_id"`)

	author, ok := rows[0].Get("author").(orm.IEntity)
	require.True(t, ok)
	assert.Equal(t, "mariano", author.Get("name"))
	assert.False(t, author.IsNew())

	assert.True(t, rows[3].Has("author"))
	assert.Nil(t, rows[3].Get("author"), "缺失的父实体为 nil")
}

func TestQuery_BelongsToSelectStrategy(t *testing.T) {
	f := newFixture(t)
	f.rec.Reset()

	rows, err := f.articles.Query().
		Contain("Authors", orm.WithContainStrategy(orm.StrategySelect)).
		OrderBy(orm.Asc("id")).
		Execute(f.ctx)
	require.NoError(t, err)

	require.Len(t, f.selects(), 2)
	assert.Equal(t, "larry", rows[1].Get("author").(orm.IEntity).Get("name"))
	assert.Nil(t, rows[3].Get("author"))
}

func TestQuery_HasManyEager(t *testing.T) {
	tests := []struct {
		name     string
		strategy orm.Strategy
		fragment string
	}{
		{name: "键列表", strategy: orm.StrategySelect, fragment: `"Comments"."article_id" IN (?, ?, ?, ?)`},
		{name: "子查询", strategy: orm.StrategySubquery, fragment: `"Comments"."article_id" IN (SELECT "Articles"."id" FROM "articles" "Articles"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.rec.Reset()

			rows, err := f.articles.Query().
				Contain("Comments", orm.WithContainStrategy(tt.strategy)).
				OrderBy(orm.Asc("id")).
				Execute(f.ctx)
			require.NoError(t, err)

			selects := f.selects()
			require.Len(t, selects, 2)
			assert.Contains(t, selects[1].SQL, tt.fragment)

			first := orm.EntityList(rows[0].Get("comments"))
			require.Len(t, first, 2)
			assert.Equal(t, "first comment", first[0].Get("body"))
			assert.Equal(t, "second comment", first[1].Get("body"))
			assert.Len(t, orm.EntityList(rows[1].Get("comments")), 1)

			assert.True(t, rows[2].Has("comments"))
			assert.Empty(t, orm.EntityList(rows[2].Get("comments")))
		})
	}
}

func TestQuery_HasOneJoin(t *testing.T) {
	f := newFixture(t)

	rows, err := f.authors.Query().Contain("Profiles").OrderBy(orm.Asc("id")).Execute(f.ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	profile, ok := rows[0].Get("profile").(orm.IEntity)
	require.True(t, ok)
	assert.Equal(t, "core developer", profile.Get("bio"))
	assert.Nil(t, rows[1].Get("profile"))
}

func TestQuery_BelongsToManyEager(t *testing.T) {
	tests := []struct {
		name     string
		strategy orm.Strategy
		fragment string
	}{
		{name: "键列表", strategy: orm.StrategySelect, fragment: `"ArticlesTags"."article_id" IN (?, ?, ?, ?)`},
		{name: "子查询", strategy: orm.StrategySubquery, fragment: `"ArticlesTags"."article_id" IN (SELECT "Articles"."id" FROM "articles" "Articles"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.rec.Reset()

			rows, err := f.articles.Query().
				Contain("Tags", orm.WithContainStrategy(tt.strategy)).
				OrderBy(orm.Asc("id")).
				Execute(f.ctx)
			require.NoError(t, err)

			selects := f.selects()
			require.Len(t, selects, 2)
			assert.Contains(t, selects[1].SQL, `INNER JOIN "articles_tags" "ArticlesTags"`)
			assert.Contains(t, selects[1].SQL, tt.fragment)
			assert.NotContains(t, selects[1].SQL, `"Articles"."id" = "Tags"`)

			first := orm.EntityList(rows[0].Get("tags"))
			assert.Equal(t, []string{"php", "go"}, names(first))
			joinData, ok := first[0].Get(orm.JoinDataProperty).(orm.IEntity)
			require.True(t, ok)
			assert.EqualValues(t, 5, joinData.Get("weight"))

			assert.Equal(t, []string{"php"}, names(orm.EntityList(rows[1].Get("tags"))))
			assert.Equal(t, []string{"sql"}, names(orm.EntityList(rows[2].Get("tags"))))
			assert.True(t, rows[3].Has("tags"))
			assert.Empty(t, orm.EntityList(rows[3].Get("tags")))
		})
	}
}

func TestQuery_SameTableUnderTwoAssociations(t *testing.T) {
	f := newFixture(t)
	_, err := f.rec.Exec(f.ctx, "ALTER TABLE articles ADD COLUMN editor_id INTEGER")
	require.NoError(t, err)
	_, err = f.rec.Exec(f.ctx, "UPDATE articles SET editor_id = 3 WHERE id = 1")
	require.NoError(t, err)

	_, err = f.articles.BelongsTo("Writer", association.WithClassName("Authors"), association.WithForeignKey("author_id"))
	require.NoError(t, err)
	_, err = f.articles.BelongsTo("Editor", association.WithClassName("Authors"), association.WithForeignKey("editor_id"))
	require.NoError(t, err)
	f.rec.Reset()

	rows, err := f.articles.Query().
		Contain("Writer").
		Contain("Editor").
		OrderBy(orm.Asc("id")).
		Execute(f.ctx)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	selects := f.selects()
	require.Len(t, selects, 1)
	assert.Contains(t, selects[0].SQL, `LEFT JOIN "authors" "Writer" ON "Writer"."id" = "Articles"."author_id"`)
	assert.Contains(t, selects[0].SQL, `LEFT JOIN "authors" "Editor" ON "Editor"."id" = "Articles"."editor_id"`)

	assert.Equal(t, "mariano", rows[0].Get("writer").(orm.IEntity).Get("name"))
	assert.Equal(t, "garrett", rows[0].Get("editor").(orm.IEntity).Get("name"))
	assert.Equal(t, "First", rows[0].Get("title"))
	assert.Equal(t, "larry", rows[1].Get("writer").(orm.IEntity).Get("name"))
	assert.Nil(t, rows[1].Get("editor"))
}

func TestQuery_SelfReferencingAssociations(t *testing.T) {
	f := newFixture(t)
	_, err := f.rec.Exec(f.ctx, "CREATE TABLE categories (id INTEGER PRIMARY KEY, parent_id INTEGER, name TEXT NOT NULL)")
	require.NoError(t, err)
	_, err = f.rec.Exec(f.ctx, "INSERT INTO categories (id, parent_id, name) VALUES (1, NULL, 'root'), (2, 1, 'child'), (3, 2, 'leaf'), (4, 1, 'sibling')")
	require.NoError(t, err)

	categories := f.orm.MustTable("Categories")
	_, err = categories.BelongsTo("Parent", association.WithClassName("Categories"), association.WithForeignKey("parent_id"))
	require.NoError(t, err)
	_, err = categories.HasMany("Children", association.WithClassName("Categories"), association.WithForeignKey("parent_id"),
		association.WithSort(orm.Asc("id")))
	require.NoError(t, err)

	tests := []struct {
		name     string
		strategy orm.Strategy
		fragment string
	}{
		{name: "连接", strategy: orm.StrategyJoin, fragment: `LEFT JOIN "categories" "Parent" ON "Parent"."id" = "Categories"."parent_id"`},
		{name: "键列表", strategy: orm.StrategySelect, fragment: `FROM "categories" "Parent" WHERE "Parent"."id" IN (?, ?)`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.rec.Reset()

			rows, err := categories.Query().
				Contain("Parent", orm.WithContainStrategy(tt.strategy)).
				Contain("Children").
				OrderBy(orm.Asc("id")).
				Execute(f.ctx)
			require.NoError(t, err)
			require.Len(t, rows, 4)

			var statements []string
			for _, s := range f.selects() {
				statements = append(statements, s.SQL)
			}
			assert.Contains(t, strings.Join(statements, "\n"), tt.fragment)

			assert.Equal(t, []string{"root", "child", "leaf", "sibling"}, names(rows))
			assert.Nil(t, rows[0].Get("parent"))
			assert.Equal(t, "root", rows[1].Get("parent").(orm.IEntity).Get("name"))
			assert.Equal(t, "child", rows[2].Get("parent").(orm.IEntity).Get("name"))
			assert.Equal(t, "root", rows[3].Get("parent").(orm.IEntity).Get("name"))

			assert.Equal(t, []string{"child", "sibling"}, names(orm.EntityList(rows[0].Get("children"))))
			assert.Equal(t, []string{"leaf"}, names(orm.EntityList(rows[1].Get("children"))))
			assert.Empty(t, orm.EntityList(rows[2].Get("children")))
		})
	}
}

func TestQuery_MatchingSelfReference(t *testing.T) {
	f := newFixture(t)
	_, err := f.rec.Exec(f.ctx, "CREATE TABLE categories (id INTEGER PRIMARY KEY, parent_id INTEGER, name TEXT NOT NULL)")
	require.NoError(t, err)
	_, err = f.rec.Exec(f.ctx, "INSERT INTO categories (id, parent_id, name) VALUES (1, NULL, 'root'), (2, 1, 'child'), (3, 2, 'leaf')")
	require.NoError(t, err)

	categories := f.orm.MustTable("Categories")
	_, err = categories.HasMany("Children", association.WithClassName("Categories"), association.WithForeignKey("parent_id"))
	require.NoError(t, err)

	rows, err := categories.Query().
		Contain("Children", orm.WithMatching(), orm.WithContainConditions(orm.Eq("Children.name", "leaf"))).
		Execute(f.ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "child", rows[0].Get("name"))
	assert.Equal(t, "leaf", rows[0].Get(orm.JoinDataProperty).(orm.IEntity).Get("name"))
}

func TestQuery_NestedContainment(t *testing.T) {
	f := newFixture(t)
	f.rec.Reset()

	rows, err := f.articles.Query().
		Where(orm.Eq("Articles.id", 1)).
		Contain("Comments.Authors").
		Execute(f.ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	comments := orm.EntityList(rows[0].Get("comments"))
	require.Len(t, comments, 2)
	assert.Equal(t, "larry", comments[0].Get("author").(orm.IEntity).Get("name"))
	assert.Equal(t, "mariano", comments[1].Get("author").(orm.IEntity).Get("name"))
	assert.Len(t, f.selects(), 2, "嵌套的 BelongsTo 在二次查询中连接")
}

func TestQuery_MatchingBelongsToMany(t *testing.T) {
	f := newFixture(t)
	f.rec.Reset()

	rows, err := f.articles.Query().
		Contain("Tags", orm.WithMatching(), orm.WithContainConditions(orm.Eq("Tags.name", "go"))).
		Execute(f.ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"First"}, titles(rows))
	matched, ok := rows[0].Get(orm.JoinDataProperty).(orm.IEntity)
	require.True(t, ok)
	assert.Equal(t, "go", matched.Get("name"))

	selects := f.selects()
	require.Len(t, selects, 1)
	assert.Contains(t, selects[0].SQL, `INNER JOIN "articles_tags" "ArticlesTags"`)
	assert.Contains(t, selects[0].SQL, `INNER JOIN "tags" "Tags"`)
}

func TestQuery_MatchingRejectsNestedPaths(t *testing.T) {
	f := newFixture(t)

	_, err := f.articles.Query().
		Contain("Comments", orm.WithMatching()).
		Contain("Comments.Authors").
		Execute(f.ctx)
	assert.ErrorIs(t, err, orm.ErrConfiguration)
}

func TestQuery_SelectFieldsKeepsBindingKey(t *testing.T) {
	f := newFixture(t)

	rows, err := f.articles.Query().
		Select("title").
		Contain("Comments").
		Where(orm.Eq("Articles.id", 2)).
		Execute(f.ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Len(t, orm.EntityList(rows[0].Get("comments")), 1)
}

func TestTable_SaveWithAssociations(t *testing.T) {
	f := newFixture(t)

	tag := orm.NewRecordOf("name", "rust")
	tag.Set(orm.JoinDataProperty, orm.NewRecordOf("weight", 7))
	article := orm.NewRecordOf("title", "Fresh")
	article.Set("author", orm.NewRecordOf("name", "ann"))
	article.Set("comments", []orm.IEntity{orm.NewRecordOf("body", "hello")})
	article.Set("tags", []orm.IEntity{tag})

	_, err := f.articles.Save(f.ctx, article, orm.SaveOptions{Associated: []string{"Authors", "Comments", "Tags"}})
	require.NoError(t, err)
	assert.False(t, article.IsNew())
	require.NotNil(t, article.Get("id"))
	assert.EqualValues(t, 4, article.Get("author_id"))

	loaded, err := f.articles.Query().
		Where(orm.Eq("Articles.id", article.Get("id"))).
		Contain("Authors").
		Contain("Comments").
		Contain("Tags").
		First(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, "ann", loaded.Get("author").(orm.IEntity).Get("name"))
	assert.Len(t, orm.EntityList(loaded.Get("comments")), 1)
	tags := orm.EntityList(loaded.Get("tags"))
	require.Len(t, tags, 1)
	assert.EqualValues(t, 7, tags[0].Get(orm.JoinDataProperty).(orm.IEntity).Get("weight"))

	// 再次保存不会重复写入链接行
	_, err = f.articles.Save(f.ctx, article, orm.SaveOptions{Associated: []string{"Tags"}})
	require.NoError(t, err)
	assert.Equal(t, 1, f.count(t, "articles_tags", "article_id = ?", article.Get("id")))
}

func TestTable_SaveUpdate(t *testing.T) {
	f := newFixture(t)

	article := f.article(t, 3)
	article.Set("title", "Third (edited)")
	_, err := f.articles.Save(f.ctx, article, orm.SaveOptions{})
	require.NoError(t, err)

	reloaded := f.article(t, 3)
	assert.Equal(t, "Third (edited)", reloaded.Get("title"))
}

func TestTable_SaveUnknownAssociation(t *testing.T) {
	f := newFixture(t)

	_, err := f.articles.Save(f.ctx, orm.NewRecordOf("title", "x"), orm.SaveOptions{Associated: []string{"Nope"}})
	assert.ErrorIs(t, err, orm.ErrConfiguration)
}

func TestTable_KeyGenerator(t *testing.T) {
	f := newFixture(t)
	_, err := f.rec.Exec(f.ctx, "CREATE TABLE events (id TEXT PRIMARY KEY, name TEXT)")
	require.NoError(t, err)

	events := f.orm.MustTable("Events", orm.TableConfig{KeyGenerator: keygen.UUID{}})
	e := orm.NewRecordOf("name", "created")
	_, err = events.Save(f.ctx, e, orm.SaveOptions{})
	require.NoError(t, err)

	id, ok := e.Get("id").(string)
	require.True(t, ok)
	assert.Len(t, id, 36)
	_, err = events.Get(f.ctx, id)
	assert.NoError(t, err)
}

func TestTable_SaveDuplicateLink(t *testing.T) {
	f := newFixture(t)
	links := f.orm.MustTable("ArticlesTags", orm.TableConfig{PrimaryKey: []string{"article_id", "tag_id"}})

	_, err := links.Save(f.ctx, orm.NewRecordOf("article_id", int64(1), "tag_id", int64(1)), orm.SaveOptions{})
	require.Error(t, err)
	assert.True(t, apperrors.IsDuplicate(err), "重复链接行应归为唯一键冲突: %v", err)
}

func TestTable_DeleteCascades(t *testing.T) {
	f := newFixture(t)

	deleted, err := f.articles.Delete(f.ctx, f.article(t, 1), orm.DeleteOptions{})
	require.NoError(t, err)
	assert.True(t, deleted)

	assert.Equal(t, 0, f.count(t, "articles", "id = 1"))
	assert.Equal(t, 0, f.count(t, "comments", "article_id = 1"))
	assert.Equal(t, 0, f.count(t, "articles_tags", "article_id = 1"))
	assert.Equal(t, 3, f.count(t, "tags", ""), "目标行不随链接行删除")
	assert.Equal(t, 2, f.count(t, "authors", "id IN (1, 2)"))
}

func TestTable_DeleteSkipCascade(t *testing.T) {
	f := newFixture(t)

	_, err := f.articles.Delete(f.ctx, f.article(t, 1), orm.DeleteOptions{SkipCascade: true})
	require.NoError(t, err)
	assert.Equal(t, 2, f.count(t, "comments", "article_id = 1"))
}

func TestTable_DeleteAllRequiresConditions(t *testing.T) {
	f := newFixture(t)

	_, err := f.comments.DeleteAll(f.ctx)
	assert.Error(t, err)
}

func TestOrm_TransactionRollsBackCascade(t *testing.T) {
	f := newFixture(t)
	boom := stderrors.New("boom")

	err := f.orm.Transaction(f.ctx, func(ctx context.Context) error {
		article, err := f.articles.Get(ctx, int64(1))
		if err != nil {
			return err
		}
		if _, err := f.articles.Delete(ctx, article, orm.DeleteOptions{}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	assert.Equal(t, 1, f.count(t, "articles", "id = 1"))
	assert.Equal(t, 2, f.count(t, "comments", "article_id = 1"))
	assert.Equal(t, 2, f.count(t, "articles_tags", "article_id = 1"))
}

func TestOrm_TransactionCommits(t *testing.T) {
	f := newFixture(t)

	err := f.orm.Transaction(f.ctx, func(ctx context.Context) error {
		article, err := f.articles.Get(ctx, int64(2))
		if err != nil {
			return err
		}
		_, err = f.articles.Delete(ctx, article, orm.DeleteOptions{})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 0, f.count(t, "comments", "article_id = 2"))
}

func TestTable_DeclareTwiceReturnsExisting(t *testing.T) {
	f := newFixture(t)

	first, _ := f.articles.Association("Comments")
	again, err := f.articles.HasMany("Comments")
	require.NoError(t, err)
	assert.Same(t, first, again)

	_, err = f.articles.BelongsTo("Comments")
	assert.ErrorIs(t, err, orm.ErrConfiguration)
}

func TestTable_AssociationsInDeclarationOrder(t *testing.T) {
	f := newFixture(t)

	var declared []string
	for _, a := range f.articles.Associations() {
		declared = append(declared, a.Name())
	}
	assert.Equal(t, []string{"Authors", "Comments", "Tags"}, declared)

	_, ok := f.articles.Association("Tags")
	assert.True(t, ok)
	_, isBTM := mustAssoc(t, f.articles, "Tags").(*association.BelongsToMany)
	assert.True(t, isBTM)
}

func mustAssoc(t *testing.T, table *Table, name string) orm.IAssociation {
	t.Helper()
	a, ok := table.Association(name)
	require.True(t, ok)
	return a
}
