package sql

import "strings"

// IsSafeIdentifier 判断标识符是否为安全的数据库标识符。
//
// 允许单一标识符（foo、bar_1）或带点的限定名（table.column）；
// 每段首字符为 [A-Za-z_]，后续字符为 [A-Za-z0-9_]。
// 只做简单的 ASCII 校验，足以挡住空格、分号等注入片段。
func IsSafeIdentifier(name string) bool {
	return isSafeIdentifier(name)
}

func isSafeIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for _, part := range strings.Split(name, ".") {
		if !isSafeSegment(part) {
			return false
		}
	}
	return true
}

func isSafeSegment(part string) bool {
	if part == "" {
		return false
	}
	for i := 0; i < len(part); i++ {
		ch := part[i]
		letter := (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
		digit := ch >= '0' && ch <= '9'
		if !letter && (i == 0 || !digit) {
			return false
		}
	}
	return true
}
