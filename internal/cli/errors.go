package cli

import (
	stderrors "errors"
	"fmt"
	"os"

	"gorel/errors"
)

// 退出码
const (
	ExitSuccess   = 0
	ExitGeneral   = 1
	ExitConfig    = 2
	ExitDBConnect = 3
	ExitNotFound  = 4
)

// ExitError 携带退出码的错误
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitWithError 打印错误并以对应退出码退出
func ExitWithError(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(ExitCode(err))
}

// ExitCode 错误对应的退出码：ExitError 优先，其次按错误码分类
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if stderrors.As(err, &exitErr) {
		return exitErr.Code
	}
	switch {
	case errors.IsConfiguration(err):
		return ExitConfig
	case errors.IsNotFound(err):
		return ExitNotFound
	default:
		return ExitGeneral
	}
}

// ConfigError 配置错误
func ConfigError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitConfig, Message: msg, Err: err}
}

// DBConnectError 数据库连接错误
func DBConnectError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitDBConnect, Message: msg, Err: err}
}

// GeneralError 其他错误；err 带有错误码时按错误码决定退出码
func GeneralError(msg string, err error) *ExitError {
	code := ExitCode(err)
	if code == ExitSuccess {
		code = ExitGeneral
	}
	return &ExitError{Code: code, Message: msg, Err: err}
}
