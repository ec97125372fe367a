package association

import (
	"gorel/data/orm"
)

// Declare 按声明式配置创建关联并挂到源表上。
//
// 源表上已有同名关联时返回已有的关联。
func Declare(reg orm.IRegistry, meta orm.AssociationMeta) (orm.IAssociation, error) {
	if !meta.Kind.Valid() {
		return nil, orm.ConfigurationErrorf("association %s.%s: unknown kind %q", meta.Source, meta.Name, meta.Kind)
	}
	if meta.Source == "" || meta.Name == "" {
		return nil, orm.ConfigurationErrorf("association declaration requires source and name")
	}
	source, err := reg.Get(meta.Source)
	if err != nil {
		return nil, err
	}

	assoc, err := New(meta.Kind, reg, source, meta.Name, OptionsFromMeta(meta)...)
	if err != nil {
		return nil, err
	}
	return source.AddAssociation(assoc), nil
}

// New 按类型创建关联，不挂到源表上。
func New(kind orm.AssociationKind, reg orm.IRegistry, source orm.ITable, name string, opts ...Option) (orm.IAssociation, error) {
	var (
		assoc orm.IAssociation
		err   error
	)
	switch kind {
	case orm.AssociationBelongsTo:
		assoc, err = nonNil(NewBelongsTo(reg, source, name, opts...))
	case orm.AssociationHasOne:
		assoc, err = nonNil(NewHasOne(reg, source, name, opts...))
	case orm.AssociationHasMany:
		assoc, err = nonNil(NewHasMany(reg, source, name, opts...))
	case orm.AssociationBelongsToMany:
		assoc, err = nonNil(NewBelongsToMany(reg, source, name, opts...))
	default:
		err = orm.ConfigurationErrorf("association %q: unknown kind %q", name, kind)
	}
	return assoc, err
}

// nonNil 避免把带类型的 nil 指针装进接口
func nonNil[T orm.IAssociation](a T, err error) (orm.IAssociation, error) {
	if err != nil {
		return nil, err
	}
	return a, nil
}

// OptionsFromMeta 把声明式配置转换为选项；条件片段按原样作为 orm.Raw。
func OptionsFromMeta(meta orm.AssociationMeta) []Option {
	var opts []Option
	if meta.ClassName != "" {
		opts = append(opts, WithClassName(meta.ClassName))
	}
	if meta.ForeignKey != "" {
		opts = append(opts, WithForeignKey(meta.ForeignKey))
	}
	if meta.TargetForeignKey != "" {
		opts = append(opts, WithTargetForeignKey(meta.TargetForeignKey))
	}
	if meta.JoinTable != "" {
		opts = append(opts, WithJoinTable(meta.JoinTable))
	}
	if meta.Through != "" {
		opts = append(opts, WithThrough(meta.Through))
	}
	for _, c := range meta.Conditions {
		opts = append(opts, WithConditions(orm.Raw(c)))
	}
	for _, s := range meta.Sort {
		if ob := orm.ParseOrderBy(s); ob.Column != "" {
			opts = append(opts, WithSort(ob))
		}
	}
	if meta.Strategy != "" {
		opts = append(opts, WithStrategy(meta.Strategy))
	}
	if meta.JoinType != "" {
		opts = append(opts, WithJoinType(meta.JoinType))
	}
	if meta.Property != "" {
		opts = append(opts, WithProperty(meta.Property))
	}
	if meta.Dependent != nil {
		opts = append(opts, WithDependent(*meta.Dependent))
	}
	if meta.CascadeCallbacks {
		opts = append(opts, WithCascadeCallbacks(true))
	}
	return opts
}
