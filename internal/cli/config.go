// Package cli 提供 relmap 命令行共用的配置加载与装配逻辑。
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	core "gorel/data/db"
	"gorel/data/orm"
)

// EnvPrefix 环境变量前缀，例如 RELMAP_DATABASE_DRIVER
const EnvPrefix = "RELMAP"

// Config relmap.yaml 的内容。
type Config struct {
	Database     core.DBConfig         `mapstructure:"database" json:"database"`
	Log          LogConfig             `mapstructure:"log" json:"log"`
	Tables       []orm.TableMeta       `mapstructure:"tables" json:"tables,omitempty"`
	Associations []orm.AssociationMeta `mapstructure:"associations" json:"associations,omitempty"`
}

// LogConfig 日志配置
type LogConfig struct {
	// Level debug/info/warn/error，命令行 -v 在此基础上逐级放宽
	Level string `mapstructure:"level" json:"level"`
}

// LoadConfig 按优先级加载配置：环境变量 > 配置文件 > 默认值。
//
// explicitPath 为空时在当前目录查找 relmap.yaml / relmap.yml，均不存在时只使用默认值。
// 返回配置、实际使用的配置文件路径（可能为空）与错误。
func LoadConfig(explicitPath string) (*Config, string, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path, err := findConfigFile(explicitPath)
	if err != nil {
		return nil, "", err
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, path, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, path, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, path, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 0)
	v.SetDefault("database.database", "")
	v.SetDefault("database.username", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.sslmode", "")
	v.SetDefault("database.parse_time", true)
	v.SetDefault("database.max_open_conns", 0)

	v.SetDefault("log.level", "warn")
}

func findConfigFile(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicitPath)
		}
		return explicitPath, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting cwd: %w", err)
	}
	for _, name := range []string{"relmap.yaml", "relmap.yml"} {
		path := filepath.Join(cwd, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", nil
}

// Redacted 返回隐藏密码后的副本，用于打印
func (c *Config) Redacted() *Config {
	out := *c
	if out.Database.Password != "" {
		out.Database.Password = "******"
	}
	if out.Database.DSN != "" && strings.Contains(out.Database.DSN, "@") {
		out.Database.DSN = "******"
	}
	return &out
}
