package errors

import (
	"context"
	"database/sql"
	stdErrors "errors"
)

// Normalize 将数据访问层常见的"裸"错误规范化为 AppError。
//
// 约定：
//   - 已经是 IError 的错误原样返回；
//   - sql.ErrNoRows 视为 NotFound；
//   - context 超时/取消视为 Timeout；
//   - 其余错误保持原样，由调用方决定是否 Wrap。
func Normalize(err error) error {
	if err == nil {
		return nil
	}

	if _, ok := err.(IError); ok {
		return err
	}

	if stdErrors.Is(err, sql.ErrNoRows) {
		return WrapError(err, ErrCodeNotFound, "记录未找到")
	}

	if stdErrors.Is(err, context.DeadlineExceeded) || stdErrors.Is(err, context.Canceled) {
		return WrapError(err, ErrCodeTimeout, "数据库操作被取消或超时")
	}

	return err
}
