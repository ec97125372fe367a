package orm

import "strings"

// JoinDataProperty 匹配型关联连接进来的中间表/目标表字段挂载的属性名。
const JoinDataProperty = "_joinData"

// Strategy 关联数据的获取方式。
type Strategy string

const (
	// StrategyJoin 在主查询中以 JOIN 获取（仅可连接的关联）
	StrategyJoin Strategy = "join"
	// StrategySelect 以主查询结果中的键列表发起二次查询
	StrategySelect Strategy = "select"
	// StrategySubquery 以主查询为子查询发起二次查询
	StrategySubquery Strategy = "subquery"
)

// JoinType 连接类型。
type JoinType string

const (
	JoinLeft  JoinType = "LEFT"
	JoinInner JoinType = "INNER"
	JoinRight JoinType = "RIGHT"
)

// OrderBy 表示排序字段。
type OrderBy struct {
	Column string
	Desc   bool
}

// Asc/Desc 排序构造
func Asc(column string) OrderBy  { return OrderBy{Column: column} }
func Desc(column string) OrderBy { return OrderBy{Column: column, Desc: true} }

// ParseOrderBy 解析 "column" / "column DESC" 形式的排序声明
func ParseOrderBy(spec string) OrderBy {
	fields := strings.Fields(spec)
	if len(fields) == 0 {
		return OrderBy{}
	}
	ob := OrderBy{Column: fields[0]}
	if len(fields) > 1 && strings.EqualFold(fields[1], "desc") {
		ob.Desc = true
	}
	return ob
}

// Join 查询中的一个连接子句。
//
// Property 非空时，连接进来的列会水合为嵌套实体挂在主实体的该属性上；
// 所有连接列均为 NULL 时属性值为 nil。
type Join struct {
	Table         string
	Alias         string
	Type          JoinType
	Conditions    []Expression
	IncludeFields bool
	Fields        []string
	Property      string
	Repository    ITable
}

// AttachOptions AttachTo 的调用选项。
type AttachOptions struct {
	IncludeFields bool
	Fields        []string
	// ForeignKey 覆盖关联的外键
	ForeignKey string
	// Conditions 追加在连接条件之后的额外条件
	Conditions []Expression
	JoinType   JoinType
	// Property 连接字段挂载的属性名，为空时使用关联的 Property
	Property string
	// Alias 目标表在查询中的别名，默认为关联名，同一张表可以多次连接
	Alias string
	// SourceAlias 连接条件中源表一侧的别名；AttachTo 默认取查询的主别名，
	// 单独调用 JoinCondition 时默认为源表别名
	SourceAlias string
}

// EagerLoadOptions EagerLoader 的调用选项，零值字段回落到关联配置。
type EagerLoadOptions struct {
	// Keys 外层结果中 BindingKey 的去重取值（select 策略）
	Keys []any
	// Query 外层查询（subquery 策略）
	Query      IQuery
	ForeignKey string
	Conditions []Expression
	Sort       []OrderBy
	Strategy   Strategy
	Fields     []string
	// Contain 转发给二次查询的嵌套关联
	Contain []Containment
}

// ContainOptions 单个关联路径的加载选项。
type ContainOptions struct {
	// Matching 为 true 时以 INNER JOIN 过滤主查询，而不是预加载
	Matching   bool
	Conditions []Expression
	Fields     []string
	Sort       []OrderBy
	Strategy   Strategy
	JoinType   JoinType
	ForeignKey string
}

// ContainOption 配置 ContainOptions。
type ContainOption func(*ContainOptions)

// WithMatching 标记为匹配型关联。
func WithMatching() ContainOption {
	return func(o *ContainOptions) { o.Matching = true }
}

// WithContainConditions 追加关联查询条件。
func WithContainConditions(conds ...Expression) ContainOption {
	return func(o *ContainOptions) { o.Conditions = append(o.Conditions, conds...) }
}

// WithContainFields 限定关联返回的列。
func WithContainFields(fields ...string) ContainOption {
	return func(o *ContainOptions) { o.Fields = append(o.Fields, fields...) }
}

// WithContainSort 覆盖关联排序。
func WithContainSort(order ...OrderBy) ContainOption {
	return func(o *ContainOptions) { o.Sort = append(o.Sort, order...) }
}

// WithContainStrategy 覆盖关联获取策略。
func WithContainStrategy(s Strategy) ContainOption {
	return func(o *ContainOptions) { o.Strategy = s }
}

// WithContainJoinType 覆盖连接类型。
func WithContainJoinType(t JoinType) ContainOption {
	return func(o *ContainOptions) { o.JoinType = t }
}

// WithContainForeignKey 覆盖外键。
func WithContainForeignKey(key string) ContainOption {
	return func(o *ContainOptions) { o.ForeignKey = key }
}

// WithContainOptions 整体替换为给定选项，用于转发嵌套关联。
func WithContainOptions(opts ContainOptions) ContainOption {
	return func(o *ContainOptions) { *o = opts }
}

// CollectContainOptions 聚合 ContainOption。
func CollectContainOptions(options ...ContainOption) ContainOptions {
	var opts ContainOptions
	for _, opt := range options {
		if opt != nil {
			opt(&opts)
		}
	}
	return opts
}

// Containment 查询上声明的一条关联路径。
type Containment struct {
	Path    string
	Options ContainOptions
}

// Head 返回路径第一段与剩余部分
func (c Containment) Head() (head, rest string) {
	if idx := strings.Index(c.Path, "."); idx >= 0 {
		return c.Path[:idx], c.Path[idx+1:]
	}
	return c.Path, ""
}

// DeleteOptions 删除选项。
type DeleteOptions struct {
	// SkipCascade 为 true 时不处理关联，仅删除实体本身
	SkipCascade bool
}

// SaveOptions 保存选项。
type SaveOptions struct {
	// Associated 需要一并保存的关联名
	Associated []string
}

// TableConfig 创建表对象时的配置，零值字段使用约定默认值。
type TableConfig struct {
	Alias string
	// Table 物理表名，默认 underscore(Alias)
	Table string
	// PrimaryKey 默认 ["id"]
	PrimaryKey []string
	// Columns 非空时跳过列自省
	Columns      []string
	KeyGenerator IKeyGenerator
}
