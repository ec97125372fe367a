// Package inflector 提供关联默认命名所需的单复数与大小写转换。
package inflector

import (
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"
)

// Pluralize 复数形式：tag → tags
func Pluralize(word string) string {
	return inflection.Plural(word)
}

// Singularize 单数形式：articles → article，articles_tags → articles_tag
func Singularize(word string) string {
	return inflection.Singular(word)
}

// Underscore 驼峰转下划线：ArticlesTags → articles_tags，HTTPLogs → http_logs
func Underscore(word string) string {
	runes := []rune(word)
	var sb strings.Builder
	sb.Grow(len(word) + 4)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && runes[i-1] != '_' {
				prevLower := unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if prevLower || (nextLower && unicode.IsUpper(runes[i-1])) {
					sb.WriteByte('_')
				}
			}
			sb.WriteRune(unicode.ToLower(r))
			continue
		}
		if r == '-' || r == ' ' {
			sb.WriteByte('_')
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Camelize 下划线转驼峰：articles_tags → ArticlesTags
func Camelize(word string) string {
	var sb strings.Builder
	sb.Grow(len(word))
	upperNext := true
	for _, r := range word {
		if r == '_' || r == '-' || r == ' ' {
			upperNext = true
			continue
		}
		if upperNext {
			sb.WriteRune(unicode.ToUpper(r))
			upperNext = false
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Tableize 表别名到默认物理表名：ArticlesTags → articles_tags
func Tableize(alias string) string {
	return Underscore(alias)
}

// Variable 属性名：Authors → author（单数），Comments → comments
func Variable(name string, singular bool) string {
	if singular {
		return Underscore(Singularize(name))
	}
	return Underscore(name)
}
