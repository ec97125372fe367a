package errors

import (
	"context"
	"fmt"
	"runtime"

	"gorel/logging"
)

// WrapDatabaseError 包装数据库错误
//
// 已带错误码的错误（NotFound、Configuration 等）保持原错误码，
// 其余错误统一归为 DATABASE_ERROR，并以告警级别记录 operation、目标表与调用位置。
func WrapDatabaseError(ctx context.Context, err error, operation, table string) error {
	if err == nil {
		return nil
	}

	err = Normalize(err)
	if code := GetErrorCode(err); code != ErrCodeInternal {
		return WrapError(err, code, operation)
	}

	_, file, line, _ := runtime.Caller(1)
	logging.ComponentLogger("data").Warn(ctx, "数据库操作失败",
		logging.Error(err),
		logging.String("operation", operation),
		logging.String("table", table),
		logging.String("location", fmt.Sprintf("%s:%d", file, line)),
	)
	return WrapError(err, ErrCodeDatabase, "数据库操作失败: "+operation).WithContext("table", table)
}
