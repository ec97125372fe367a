// Package association 实现四种关联（BelongsTo、HasOne、HasMany、BelongsToMany）。
//
// 关联在声明时不做任何 I/O；目标表、外键、中间表等在首次使用时惰性解析并缓存，
// 每个惰性字段各自由互斥锁保护，可在多个 goroutine 间共享。
// 预加载骨架（eagerLoader）与级联删除策略（cascadeDeleter）以组合方式注入各关联类型。
package association

import (
	"context"
	"sync"

	dbsql "gorel/data/db/sql"
	"gorel/data/orm"
	"gorel/data/orm/inflector"
	"gorel/logging"
)

// Option 关联声明选项。
type Option func(*config)

type config struct {
	className        string
	target           orm.ITable
	foreignKey       string
	conditions       []orm.Expression
	sort             []orm.OrderBy
	strategy         orm.Strategy
	joinType         orm.JoinType
	property         string
	cascadeCallbacks bool
	dependent        *bool

	// BelongsToMany
	through          string
	throughTable     orm.ITable
	joinTable        string
	targetForeignKey string
	mirror           bool
}

// WithClassName 目标表别名，默认与关联名相同。
func WithClassName(alias string) Option {
	return func(c *config) { c.className = alias }
}

// WithTarget 直接指定目标表对象。
func WithTarget(target orm.ITable) Option {
	return func(c *config) { c.target = target }
}

// WithForeignKey 显式外键，覆盖约定默认值。
func WithForeignKey(key string) Option {
	return func(c *config) { c.foreignKey = key }
}

// WithConditions 关联固有条件，作用于目标表（BelongsToMany 同样作用于目标表）。
func WithConditions(conds ...orm.Expression) Option {
	return func(c *config) { c.conditions = append(c.conditions, conds...) }
}

// WithSort 预加载结果排序。
func WithSort(order ...orm.OrderBy) Option {
	return func(c *config) { c.sort = append(c.sort, order...) }
}

// WithStrategy 获取策略。
func WithStrategy(s orm.Strategy) Option {
	return func(c *config) { c.strategy = s }
}

// WithJoinType 连接类型，默认 LEFT。
func WithJoinType(t orm.JoinType) Option {
	return func(c *config) { c.joinType = t }
}

// WithProperty 关联数据在实体上的属性名。
func WithProperty(property string) Option {
	return func(c *config) { c.property = property }
}

// WithCascadeCallbacks 级联删除时逐行加载并调用目标表的 Delete。
func WithCascadeCallbacks(enabled bool) Option {
	return func(c *config) { c.cascadeCallbacks = enabled }
}

// WithDependent 删除源实体时是否级联删除关联数据。
func WithDependent(dependent bool) Option {
	return func(c *config) { c.dependent = &dependent }
}

// WithThrough 以已注册的表别名作为中间表。
func WithThrough(alias string) Option {
	return func(c *config) { c.through = alias }
}

// WithThroughTable 以表对象作为中间表。
func WithThroughTable(table orm.ITable) Option {
	return func(c *config) { c.throughTable = table }
}

// WithJoinTable 中间表物理表名。
func WithJoinTable(name string) Option {
	return func(c *config) { c.joinTable = name }
}

// WithTargetForeignKey 中间表中指向目标表的列。
func WithTargetForeignKey(key string) Option {
	return func(c *config) { c.targetForeignKey = key }
}

// asMirror 标记由中间表图自动生成的反向 BelongsToMany，不再继续生成镜像。
func asMirror() Option {
	return func(c *config) { c.mirror = true }
}

// base 四种关联共享的状态与访问器。
type base struct {
	name     string
	kind     orm.AssociationKind
	registry orm.IRegistry
	source   orm.ITable
	cfg      config

	targetMu sync.Mutex
	target   orm.ITable

	fkMu       sync.Mutex
	foreignKey string

	eager   eagerLoader
	cascade cascadeDeleter
}

func newBase(kind orm.AssociationKind, reg orm.IRegistry, source orm.ITable, name string, opts []Option) (*base, error) {
	if reg == nil || source == nil {
		return nil, orm.ConfigurationErrorf("association %q: registry and source table are required", name)
	}
	if !dbsql.IsSafeIdentifier(name) {
		return nil, orm.ConfigurationErrorf("association on %s: invalid name %q", source.Alias(), name)
	}

	var cfg config
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.className == "" {
		if cfg.target != nil {
			cfg.className = cfg.target.Alias()
		} else {
			cfg.className = name
		}
	}
	for _, ident := range []string{cfg.className, cfg.foreignKey, cfg.targetForeignKey, cfg.through, cfg.joinTable} {
		if ident != "" && !dbsql.IsSafeIdentifier(ident) {
			return nil, orm.ConfigurationErrorf("association %s.%s: invalid identifier %q", source.Alias(), name, ident)
		}
	}
	if cfg.joinType == "" {
		cfg.joinType = orm.JoinLeft
	}

	return &base{
		name:       name,
		kind:       kind,
		registry:   reg,
		source:     source,
		cfg:        cfg,
		target:     cfg.target,
		foreignKey: cfg.foreignKey,
	}, nil
}

func (b *base) Name() string              { return b.name }
func (b *base) Kind() orm.AssociationKind { return b.kind }
func (b *base) Source() orm.ITable        { return b.source }
func (b *base) JoinType() orm.JoinType    { return b.cfg.joinType }
func (b *base) Property() string          { return b.cfg.property }
func (b *base) CascadeCallbacks() bool    { return b.cfg.cascadeCallbacks }
func (b *base) Strategy() orm.Strategy    { return b.cfg.strategy }
func (b *base) Registry() orm.IRegistry   { return b.registry }
func (b *base) ClassName() string         { return b.cfg.className }
func (b *base) Sort() []orm.OrderBy       { return append([]orm.OrderBy(nil), b.cfg.sort...) }
func (b *base) Conditions() []orm.Expression {
	return append([]orm.Expression(nil), b.cfg.conditions...)
}

func (b *base) Dependent() bool {
	return b.cfg.dependent != nil && *b.cfg.dependent
}

// Target 惰性解析目标表；解析失败返回 nil，需要错误信息时使用 ResolveTarget。
func (b *base) Target() orm.ITable {
	t, _ := b.ResolveTarget()
	return t
}

func (b *base) ResolveTarget() (orm.ITable, error) {
	b.targetMu.Lock()
	defer b.targetMu.Unlock()
	if b.target != nil {
		return b.target, nil
	}
	t, err := b.registry.Get(b.cfg.className)
	if err != nil {
		return nil, orm.ConfigurationErrorf("association %s.%s: cannot resolve target %q: %v", b.source.Alias(), b.name, b.cfg.className, err)
	}
	b.target = t
	return t, nil
}

// targetAlias 不触发解析的目标别名，用于推导默认命名。
func (b *base) targetAlias() string {
	if b.cfg.target != nil {
		return b.cfg.target.Alias()
	}
	return b.cfg.className
}

// SetForeignKey 覆盖外键；之后不再计算默认值。
func (b *base) SetForeignKey(key string) {
	b.fkMu.Lock()
	b.foreignKey = key
	b.fkMu.Unlock()
}

// memoForeignKey 首次调用时以 compute 计算默认外键并缓存。
func (b *base) memoForeignKey(compute func() string) string {
	b.fkMu.Lock()
	defer b.fkMu.Unlock()
	if b.foreignKey == "" {
		b.foreignKey = compute()
	}
	return b.foreignKey
}

// aliases 连接条件两侧的别名：目标一侧默认关联名，源一侧默认源表别名。
func (b *base) aliases(opts orm.AttachOptions) (alias, sourceAlias string) {
	alias, sourceAlias = opts.Alias, opts.SourceAlias
	if alias == "" {
		alias = b.name
	}
	if sourceAlias == "" {
		sourceAlias = b.source.Alias()
	}
	return alias, sourceAlias
}

// attachOptions 以查询的主别名补齐源一侧别名。
func (b *base) attachOptions(q orm.IQuery, opts orm.AttachOptions) orm.AttachOptions {
	if opts.SourceAlias == "" {
		opts.SourceAlias = q.Alias()
	}
	if opts.Alias == "" {
		opts.Alias = b.name
	}
	return opts
}

// attach 追加连接子句：连接条件 + 关联条件 + 调用方条件。
func (b *base) attach(q orm.IQuery, target orm.ITable, joinCond []orm.Expression, opts orm.AttachOptions) error {
	conds := make([]orm.Expression, 0, len(joinCond)+len(b.cfg.conditions)+len(opts.Conditions))
	conds = append(conds, joinCond...)
	conds = append(conds, b.cfg.conditions...)
	conds = append(conds, opts.Conditions...)

	joinType := opts.JoinType
	if joinType == "" {
		joinType = b.cfg.joinType
	}
	property := opts.Property
	if property == "" {
		property = b.cfg.property
	}
	alias, _ := b.aliases(opts)

	return addJoin(q, orm.Join{
		Table:         target.Table(),
		Alias:         alias,
		Type:          joinType,
		Conditions:    conds,
		IncludeFields: opts.IncludeFields,
		Fields:        opts.Fields,
		Property:      property,
		Repository:    target,
	})
}

// addJoin 连接别名在查询内必须唯一。
func addJoin(q orm.IQuery, j orm.Join) error {
	taken := j.Alias == q.Alias()
	for _, existing := range q.Joins() {
		taken = taken || existing.Alias == j.Alias
	}
	if taken {
		return orm.ConfigurationErrorf("join %s on %s: alias %q is already used in the query", j.Table, q.Alias(), j.Alias)
	}
	q.Join(j)
	return nil
}

// mergeEagerOptions 把调用方选项合并到关联默认值之上。
func (b *base) mergeEagerOptions(opts orm.EagerLoadOptions, foreignKey string) orm.EagerLoadOptions {
	merged := opts
	if merged.ForeignKey == "" {
		merged.ForeignKey = foreignKey
	}
	merged.Conditions = append(b.Conditions(), opts.Conditions...)
	if len(merged.Sort) == 0 {
		merged.Sort = b.Sort()
	}
	if merged.Strategy == "" || merged.Strategy == orm.StrategyJoin {
		merged.Strategy = b.cfg.strategy
	}
	if merged.Strategy != orm.StrategySubquery {
		merged.Strategy = orm.StrategySelect
	}
	return merged
}

func (b *base) logger() logging.Logger {
	return logging.ComponentLogger("association").WithFields(
		logging.String("source", b.source.Alias()),
		logging.String("association", b.name),
		logging.String("kind", string(b.kind)),
	)
}

func (b *base) debug(ctx context.Context, msg string, fields ...logging.Field) {
	b.logger().Debug(ctx, msg, fields...)
}

// singleKey 返回表的单列主键；复合主键返回 ErrUnsupportedOperation。
func singleKey(t orm.ITable, op string) (string, error) {
	pk := t.PrimaryKey()
	if len(pk) != 1 {
		return "", orm.UnsupportedErrorf("%s: table %s has composite primary key %v", op, t.Alias(), pk)
	}
	return pk[0], nil
}

// defaultKeyFor 约定外键：singularize(underscore(alias)) + "_id"
func defaultKeyFor(alias string) string {
	return inflector.Singularize(inflector.Underscore(alias)) + "_id"
}

func boolPtr(v bool) *bool { return &v }
