package orm

import (
	"gorel/errors"
)

// 哨兵错误，按错误码匹配：errors.Is(err, orm.ErrConfiguration)
var (
	ErrNotFound             = errors.NewError(errors.ErrCodeNotFound, "orm: record not found")
	ErrConfiguration        = errors.NewError(errors.ErrCodeConfiguration, "orm: invalid association configuration")
	ErrUnsupportedOperation = errors.NewError(errors.ErrCodeUnsupported, "orm: unsupported operation")
)

// ConfigurationErrorf 创建配置错误
func ConfigurationErrorf(format string, args ...any) error {
	return errors.NewErrorf(errors.ErrCodeConfiguration, format, args...)
}

// UnsupportedErrorf 创建不支持操作错误
func UnsupportedErrorf(format string, args ...any) error {
	return errors.NewErrorf(errors.ErrCodeUnsupported, format, args...)
}
