package cli

import (
	"strconv"
	"strings"

	"gorel/data/orm"
	"gorel/data/orm/association"
)

// QuerySpec 命令行描述的查询
type QuerySpec struct {
	Fields   []string
	Where    []string
	Contain  []string
	Matching []string
	Order    []string
	Limit    int
	Offset   int
}

// BuildQuery 按 QuerySpec 构造查询；Where 片段原样作为 orm.Raw
func BuildQuery(table orm.ITable, spec QuerySpec) orm.IQuery {
	q := table.Query()
	if len(spec.Fields) > 0 {
		q.Select(spec.Fields...)
	}
	for _, w := range spec.Where {
		q.Where(orm.Raw(w))
	}
	for _, o := range spec.Order {
		if ob := orm.ParseOrderBy(o); ob.Column != "" {
			q.OrderBy(ob)
		}
	}
	for _, path := range spec.Contain {
		q.Contain(path)
	}
	for _, path := range spec.Matching {
		q.Contain(path, orm.WithMatching())
	}
	if spec.Limit > 0 {
		q.Limit(spec.Limit)
	}
	if spec.Offset > 0 {
		q.Offset(spec.Offset)
	}
	return q
}

// ParseKey 把命令行主键转换为 Table.Get 的参数
//
// 复合主键以逗号分隔，顺序与 PrimaryKey 一致；整数形式的分量转换为 int64。
func ParseKey(table orm.ITable, raw string) (any, error) {
	pk := table.PrimaryKey()
	parts := strings.Split(raw, ",")
	if len(parts) != len(pk) {
		return nil, orm.ConfigurationErrorf("table %s: primary key %v expects %d value(s), got %q", table.Alias(), pk, len(pk), raw)
	}
	values := make([]any, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if n, err := strconv.ParseInt(p, 10, 64); err == nil {
			values[i] = n
		} else {
			values[i] = p
		}
	}
	if len(values) == 1 {
		return values[0], nil
	}
	return values, nil
}

// AssociationInfo inspect 输出的单个关联
type AssociationInfo struct {
	Name             string `json:"name"`
	Kind             string `json:"kind"`
	Target           string `json:"target"`
	ForeignKey       string `json:"foreignKey"`
	BindingKey       string `json:"bindingKey,omitempty"`
	Property         string `json:"property"`
	Strategy         string `json:"strategy"`
	JoinType         string `json:"joinType"`
	Dependent        bool   `json:"dependent"`
	CascadeCallbacks bool   `json:"cascadeCallbacks"`
	OwningSide       bool   `json:"owningSide"`
	TargetForeignKey string `json:"targetForeignKey,omitempty"`
	JoinTable        string `json:"joinTable,omitempty"`
	Pivot            string `json:"pivot,omitempty"`
}

// TableInfo inspect 输出的单张表
type TableInfo struct {
	Alias        string            `json:"alias"`
	Table        string            `json:"table"`
	PrimaryKey   []string          `json:"primaryKey"`
	Associations []AssociationInfo `json:"associations,omitempty"`
}

// Describe 解析表上全部关联的外键、属性与中间表
func Describe(table orm.ITable) (TableInfo, error) {
	info := TableInfo{
		Alias:      table.Alias(),
		Table:      table.Table(),
		PrimaryKey: table.PrimaryKey(),
	}
	for _, a := range table.Associations() {
		ai := AssociationInfo{
			Name:             a.Name(),
			Kind:             string(a.Kind()),
			ForeignKey:       a.ForeignKey(),
			BindingKey:       a.BindingKey(),
			Property:         a.Property(),
			Strategy:         string(a.Strategy()),
			JoinType:         string(a.JoinType()),
			Dependent:        a.Dependent(),
			CascadeCallbacks: a.CascadeCallbacks(),
			OwningSide:       a.IsOwningSide(),
		}
		target, err := a.ResolveTarget()
		if err != nil {
			return info, err
		}
		ai.Target = target.Alias()
		if btm, ok := a.(*association.BelongsToMany); ok {
			ai.TargetForeignKey = btm.TargetForeignKey()
			ai.JoinTable = btm.JoinTableName()
			pivot, err := btm.Pivot()
			if err != nil {
				return info, err
			}
			ai.Pivot = pivot.Alias()
		}
		info.Associations = append(info.Associations, ai)
	}
	return info, nil
}
