package orm

// AssociationKind 表示关联类型。
type AssociationKind string

const (
	AssociationBelongsTo     AssociationKind = "belongs_to"
	AssociationHasOne        AssociationKind = "has_one"
	AssociationHasMany       AssociationKind = "has_many"
	AssociationBelongsToMany AssociationKind = "belongs_to_many"
)

// Valid 是否为已知的关联类型
func (k AssociationKind) Valid() bool {
	switch k {
	case AssociationBelongsTo, AssociationHasOne, AssociationHasMany, AssociationBelongsToMany:
		return true
	default:
		return false
	}
}

// AssociationMeta 声明式关联配置，供配置文件与 association.Declare 使用。
type AssociationMeta struct {
	Name             string          `json:"name" mapstructure:"name"`
	Kind             AssociationKind `json:"kind" mapstructure:"kind"`
	Source           string          `json:"source" mapstructure:"source"`
	ClassName        string          `json:"className,omitempty" mapstructure:"class_name"`
	ForeignKey       string          `json:"foreignKey,omitempty" mapstructure:"foreign_key"`
	TargetForeignKey string          `json:"targetForeignKey,omitempty" mapstructure:"target_foreign_key"`
	JoinTable        string          `json:"joinTable,omitempty" mapstructure:"join_table"`
	Through          string          `json:"through,omitempty" mapstructure:"through"`
	// Conditions 原始条件片段，按 AND 连接
	Conditions       []string `json:"conditions,omitempty" mapstructure:"conditions"`
	Sort             []string `json:"sort,omitempty" mapstructure:"sort"`
	Strategy         Strategy `json:"strategy,omitempty" mapstructure:"strategy"`
	JoinType         JoinType `json:"joinType,omitempty" mapstructure:"join_type"`
	Property         string   `json:"property,omitempty" mapstructure:"property"`
	Dependent        *bool    `json:"dependent,omitempty" mapstructure:"dependent"`
	CascadeCallbacks bool     `json:"cascadeCallbacks,omitempty" mapstructure:"cascade_callbacks"`
}

// TableMeta 声明式表配置。
type TableMeta struct {
	Alias      string   `json:"alias" mapstructure:"alias"`
	Table      string   `json:"table,omitempty" mapstructure:"table"`
	PrimaryKey []string `json:"primaryKey,omitempty" mapstructure:"primary_key"`
	// KeyGenerator 主键生成方式：""/auto、uuid、snowflake 或 snowflake:<datacenter>:<worker>
	KeyGenerator string `json:"keyGenerator,omitempty" mapstructure:"key_generator"`
}
