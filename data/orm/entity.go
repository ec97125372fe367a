package orm

import (
	"fmt"
	"time"
)

// Record 基于 map 的 IEntity 实现，保留字段写入顺序。
type Record struct {
	keys   []string
	values map[string]any
	isNew  bool
}

var _ IEntity = (*Record)(nil)

// NewRecord 创建新实体（IsNew 为 true）
func NewRecord() *Record {
	return &Record{values: make(map[string]any), isNew: true}
}

// NewRecordOf 以 key, value 交替的参数创建新实体
func NewRecordOf(kv ...any) *Record {
	r := NewRecord()
	for i := 0; i+1 < len(kv); i += 2 {
		r.Set(fmt.Sprint(kv[i]), kv[i+1])
	}
	return r
}

func (r *Record) Get(field string) any { return r.values[field] }

func (r *Record) Set(field string, value any) {
	if _, ok := r.values[field]; !ok {
		r.keys = append(r.keys, field)
	}
	r.values[field] = value
}

func (r *Record) Has(field string) bool {
	_, ok := r.values[field]
	return ok
}

func (r *Record) Unset(field string) {
	if _, ok := r.values[field]; !ok {
		return
	}
	delete(r.values, field)
	for i, k := range r.keys {
		if k == field {
			r.keys = append(r.keys[:i], r.keys[i+1:]...)
			break
		}
	}
}

func (r *Record) Fields() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

func (r *Record) IsNew() bool       { return r.isNew }
func (r *Record) SetNew(isNew bool) { r.isNew = isNew }

// ToMap 转换为普通 map，嵌套实体递归转换，便于序列化输出
func (r *Record) ToMap() map[string]any {
	return EntityToMap(r)
}

// EntityToMap 把任意 IEntity 转换为普通 map
func EntityToMap(e IEntity) map[string]any {
	if e == nil {
		return nil
	}
	out := make(map[string]any, len(e.Fields()))
	for _, f := range e.Fields() {
		out[f] = plainValue(e.Get(f))
	}
	return out
}

func plainValue(v any) any {
	switch val := v.(type) {
	case IEntity:
		return EntityToMap(val)
	case []IEntity:
		list := make([]any, len(val))
		for i, item := range val {
			list[i] = EntityToMap(item)
		}
		return list
	case []byte:
		return string(val)
	default:
		return val
	}
}

// KeyString 把键值规范化为可比较的字符串；nil 返回 ok=false
//
// 不同驱动对同一列可能返回 int64、int、[]byte 或 string，
// 预加载在这里统一后再做匹配。
func KeyString(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, true
	case []byte:
		return string(val), true
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano), true
	case fmt.Stringer:
		return val.String(), true
	default:
		return fmt.Sprint(val), true
	}
}

// EntityList 把属性值转换为实体列表；nil 返回空列表
func EntityList(v any) []IEntity {
	switch val := v.(type) {
	case []IEntity:
		return val
	case IEntity:
		if val == nil {
			return nil
		}
		return []IEntity{val}
	case []*Record:
		out := make([]IEntity, len(val))
		for i, r := range val {
			out[i] = r
		}
		return out
	default:
		return nil
	}
}
