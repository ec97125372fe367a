// Package errors 提供带错误码的应用错误类型，供 ORM 与数据访问层统一上报错误。
package errors

import (
	stdErrors "errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorCode 错误代码类型
type ErrorCode string

// 预定义错误代码
const (
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeTimeout      ErrorCode = "TIMEOUT"

	// 关联/映射层
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"
	ErrCodeUnsupported   ErrorCode = "UNSUPPORTED_OPERATION"
	ErrCodeDuplicate     ErrorCode = "DUPLICATE_ERROR"

	ErrCodeDatabase ErrorCode = "DATABASE_ERROR"
)

// IError 错误接口
type IError interface {
	error

	Code() ErrorCode
	Message() string
	// Cause 被包装的原始错误
	Cause() error
	// Details 通过 WithContext 附加的键值
	Details() map[string]any

	// Wrap 保留错误码，在消息前追加 msg
	Wrap(msg string) IError
	// WithContext 返回附加了 key=value 的副本，原错误不变
	WithContext(key string, value any) IError
}

// AppError 应用错误实现
type AppError struct {
	code    ErrorCode
	message string
	cause   error
	details map[string]any
}

// NewError 创建新错误
func NewError(code ErrorCode, message string) IError {
	return &AppError{code: code, message: message}
}

// NewErrorf 以格式化消息创建新错误
func NewErrorf(code ErrorCode, format string, args ...any) IError {
	return &AppError{code: code, message: fmt.Sprintf(format, args...)}
}

// WrapError 包装错误；err 为 nil 时返回 nil
func WrapError(err error, code ErrorCode, message string) IError {
	if err == nil {
		return nil
	}
	return &AppError{code: code, message: message, cause: err}
}

func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(string(e.code))
	b.WriteString("] ")
	b.WriteString(e.message)
	if len(e.details) > 0 {
		keys := make([]string, 0, len(e.details))
		for k := range e.details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, e.details[k])
		}
	}
	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

func (e *AppError) Code() ErrorCode { return e.code }
func (e *AppError) Message() string { return e.message }
func (e *AppError) Cause() error    { return e.cause }
func (e *AppError) Unwrap() error   { return e.cause }

func (e *AppError) Details() map[string]any {
	return copyMap(e.details)
}

// Is 按错误码匹配 AppError；否则沿 cause 链继续匹配。
func (e *AppError) Is(target error) bool {
	if target == nil {
		return false
	}
	if appErr, ok := target.(*AppError); ok {
		return e.code == appErr.code
	}
	if e.cause != nil {
		return stdErrors.Is(e.cause, target)
	}
	return false
}

func (e *AppError) Wrap(msg string) IError {
	return &AppError{
		code:    e.code,
		message: msg + ": " + e.message,
		cause:   e,
		details: copyMap(e.details),
	}
}

func (e *AppError) WithContext(key string, value any) IError {
	details := copyMap(e.details)
	details[key] = value
	return &AppError{code: e.code, message: e.message, cause: e.cause, details: details}
}

// IsNotFound 检查是否为未找到错误
func IsNotFound(err error) bool {
	return IsErrorCode(err, ErrCodeNotFound)
}

// IsConfiguration 检查是否为配置错误
func IsConfiguration(err error) bool {
	return IsErrorCode(err, ErrCodeConfiguration)
}

// IsUnsupported 检查是否为不支持的操作
func IsUnsupported(err error) bool {
	return IsErrorCode(err, ErrCodeUnsupported)
}

// IsDuplicate 检查是否为唯一键冲突
func IsDuplicate(err error) bool {
	return IsErrorCode(err, ErrCodeDuplicate)
}

// IsErrorCode 检查错误链上最外层 AppError 的错误代码
func IsErrorCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if stdErrors.As(err, &appErr) {
		return appErr.code == code
	}
	return false
}

// GetErrorCode 获取错误代码；非 AppError 视为 INTERNAL_ERROR
func GetErrorCode(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if stdErrors.As(err, &appErr) {
		return appErr.code
	}
	return ErrCodeInternal
}

func copyMap(original map[string]any) map[string]any {
	copied := make(map[string]any, len(original))
	for k, v := range original {
		copied[k] = v
	}
	return copied
}
