package basic

import (
	dbcore "gorel/data/db"
	"gorel/data/db/dialect"
	"gorel/data/orm"
)

// hydrate 读取全部行并关闭结果集，把每行转换为 *orm.Record。
//
// 列名形如 Alias__col：主表列写到实体顶层，连接表列写到 properties[Alias] 对应的嵌套实体；
// 某个连接的列全部为 NULL 时该属性为 nil。
func hydrate(rows dbcore.IRows, alias string, properties map[string]string) ([]orm.IEntity, error) {
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []orm.IEntity
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		rec := orm.NewRecord()
		var order []string
		nested := make(map[string]*orm.Record)
		present := make(map[string]bool)

		for i, name := range cols {
			owner, col, ok := dialect.SplitColumnAlias(name)
			v := normalizeValue(values[i])
			property, joined := properties[owner]
			if !ok || owner == alias || !joined {
				if !rec.Has(col) {
					rec.Set(col, v)
				}
				continue
			}
			n, seen := nested[property]
			if !seen {
				n = orm.NewRecord()
				n.SetNew(false)
				nested[property] = n
				order = append(order, property)
			}
			n.Set(col, v)
			if v != nil {
				present[property] = true
			}
		}
		for _, property := range order {
			if present[property] {
				rec.Set(property, nested[property])
			} else {
				rec.Set(property, nil)
			}
		}
		rec.SetNew(false)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if out == nil {
		out = []orm.IEntity{}
	}
	return out, nil
}

// normalizeValue 驱动返回的 []byte 统一转换为 string
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
