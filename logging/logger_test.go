package logging

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestFieldConstructors 测试字段构造函数
func TestFieldConstructors(t *testing.T) {
	tests := []struct {
		name    string
		field   Field
		wantKey string
	}{
		{name: "String字段", field: String("table", "Articles"), wantKey: "table"},
		{name: "Int字段", field: Int("rows", 3), wantKey: "rows"},
		{name: "Int64字段", field: Int64("rows", int64(3)), wantKey: "rows"},
		{name: "Any字段", field: Any("keys", []any{1, 2}), wantKey: "keys"},
		{name: "Error字段", field: Error(errors.New("test error")), wantKey: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantKey, tt.field.Key)
			assert.NotNil(t, tt.field.Value)
		})
	}
}

// TestStdLogger_Output 测试输出格式与字段拼接
func TestStdLogger_Output(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStdLogger("[test]", WithWriter(&buf), WithLevel(DebugLevel))
	ctx := context.Background()

	logger.Debug(ctx, "debug message", String("key", "value"))
	logger.Info(ctx, "info message", Int("count", 42))
	logger.Warn(ctx, "warn message")
	logger.Error(ctx, "error message", Error(errors.New("boom")))

	out := buf.String()
	assert.Contains(t, out, "[DEBUG] [test] debug message key=value")
	assert.Contains(t, out, "[INFO] [test] info message count=42")
	assert.Contains(t, out, "[WARN] [test] warn message")
	assert.Contains(t, out, "[ERROR] [test] error message error=boom")
}

// TestStdLogger_Level 低于最低级别的日志被丢弃
func TestStdLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStdLogger("", WithWriter(&buf), WithLevel(WarnLevel))
	ctx := context.Background()

	logger.Debug(ctx, "hidden debug")
	logger.Info(ctx, "hidden info")
	logger.Warn(ctx, "shown warn")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown warn")
}

// TestStdLogger_WithFields 派生 Logger 不影响原 Logger
func TestStdLogger_WithFields(t *testing.T) {
	var buf bytes.Buffer
	base := NewStdLogger("", WithWriter(&buf))
	child := base.WithFields(String("component", "eager"))

	child.Info(context.Background(), "child")
	base.Info(context.Background(), "base")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "component=eager")
	assert.NotContains(t, lines[1], "component=eager")
}

// TestParseLevel 测试级别解析
func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, WarnLevel, ParseLevel("warning"))
	assert.Equal(t, ErrorLevel, ParseLevel(" error "))
	assert.Equal(t, InfoLevel, ParseLevel("unknown"))
}

// TestGlobalLogger 测试全局 Logger 替换
func TestGlobalLogger(t *testing.T) {
	original := GetLogger()
	defer SetLogger(original)

	noop := NewNoopLogger()
	SetLogger(noop)
	assert.Same(t, noop, GetLogger())

	SetLogger(nil)
	_, ok := GetLogger().(*NoopLogger)
	assert.True(t, ok)
}

// TestLevel_String 未知级别输出数值
func TestLevel_String(t *testing.T) {
	assert.Equal(t, "WARN", WarnLevel.String())
	assert.Equal(t, "LEVEL(9)", Level(9).String())
	assert.Equal(t, "LEVEL(-1)", Level(-1).String())
}
