package inflector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnderscore(t *testing.T) {
	tests := map[string]string{
		"Articles":      "articles",
		"ArticlesTags":  "articles_tags",
		"SpecialTags":   "special_tags",
		"HTTPLogs":      "http_logs",
		"users":         "users",
		"Users2Roles":   "users2_roles",
		"already_snake": "already_snake",
	}
	for in, want := range tests {
		assert.Equal(t, want, Underscore(in), in)
	}
}

func TestCamelize(t *testing.T) {
	assert.Equal(t, "ArticlesTags", Camelize("articles_tags"))
	assert.Equal(t, "Tags", Camelize("tags"))
	assert.Equal(t, "ArticlesTags", Camelize("ArticlesTags"))
}

func TestSingularizePluralize(t *testing.T) {
	assert.Equal(t, "author", Singularize("authors"))
	assert.Equal(t, "article", Singularize("articles"))
	assert.Equal(t, "category", Singularize("categories"))
	assert.Equal(t, "person", Singularize("people"))
	assert.Equal(t, "tags", Pluralize("tag"))
}

func TestVariable(t *testing.T) {
	assert.Equal(t, "author", Variable("Authors", true))
	assert.Equal(t, "comments", Variable("Comments", false))
	assert.Equal(t, "special_tags", Variable("SpecialTags", false))
}
