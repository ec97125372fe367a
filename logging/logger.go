// Package logging 提供带 context 的结构化日志接口，默认实现输出 key=value 文本行。
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level 日志级别
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var levelNames = [...]string{DebugLevel: "DEBUG", InfoLevel: "INFO", WarnLevel: "WARN", ErrorLevel: "ERROR"}

var levelByName = map[string]Level{
	"debug":   DebugLevel,
	"info":    InfoLevel,
	"warn":    WarnLevel,
	"warning": WarnLevel,
	"error":   ErrorLevel,
}

func (l Level) String() string {
	if l >= DebugLevel && int(l) < len(levelNames) {
		return levelNames[l]
	}
	return fmt.Sprintf("LEVEL(%d)", int(l))
}

// ParseLevel 大小写不敏感，未知取值回退到 InfoLevel
func ParseLevel(s string) Level {
	if l, ok := levelByName[strings.ToLower(strings.TrimSpace(s))]; ok {
		return l
	}
	return InfoLevel
}

// Logger 日志接口
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...Field)
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)

	// WithFields 返回附加了固定字段的新 Logger，原 Logger 不变
	WithFields(fields ...Field) Logger
}

// Field 日志字段
type Field struct {
	Key   string
	Value any
}

func String(key, value string) Field      { return Field{Key: key, Value: value} }
func Int(key string, value int) Field     { return Field{Key: key, Value: value} }
func Int64(key string, value int64) Field { return Field{Key: key, Value: value} }
func Any(key string, value any) Field     { return Field{Key: key, Value: value} }
func Error(err error) Field               { return Field{Key: "error", Value: err} }

// StdLogger 文本行实现：<time> [LEVEL] <prefix> msg k=v ...
type StdLogger struct {
	prefix string
	fields []Field
	level  Level

	mu *sync.Mutex
	w  io.Writer
}

// StdOption StdLogger 可选项
type StdOption func(*StdLogger)

// WithWriter 指定输出目标，默认 os.Stderr
func WithWriter(w io.Writer) StdOption {
	return func(l *StdLogger) {
		if w != nil {
			l.w = w
		}
	}
}

// WithLevel 指定最低输出级别，默认 InfoLevel
func WithLevel(level Level) StdOption {
	return func(l *StdLogger) { l.level = level }
}

func NewStdLogger(prefix string, opts ...StdOption) *StdLogger {
	l := &StdLogger{prefix: prefix, level: InfoLevel, mu: &sync.Mutex{}, w: os.Stderr}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *StdLogger) emit(level Level, msg string, fields []Field) {
	if level < l.level {
		return
	}

	var b strings.Builder
	b.WriteString(time.Now().Format("2006/01/02 15:04:05"))
	b.WriteString(" [" + level.String() + "] ")
	if l.prefix != "" {
		b.WriteString(l.prefix + " ")
	}
	b.WriteString(msg)
	writeFields(&b, l.fields)
	writeFields(&b, fields)
	b.WriteByte('\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.w, b.String())
}

func writeFields(b *strings.Builder, fields []Field) {
	for _, f := range fields {
		b.WriteString(" " + f.Key + "=")
		switch v := f.Value.(type) {
		case string:
			b.WriteString(v)
		case error:
			b.WriteString(v.Error())
		default:
			fmt.Fprint(b, v)
		}
	}
}

func (l *StdLogger) Debug(_ context.Context, msg string, fields ...Field) { l.emit(DebugLevel, msg, fields) }
func (l *StdLogger) Info(_ context.Context, msg string, fields ...Field)  { l.emit(InfoLevel, msg, fields) }
func (l *StdLogger) Warn(_ context.Context, msg string, fields ...Field)  { l.emit(WarnLevel, msg, fields) }
func (l *StdLogger) Error(_ context.Context, msg string, fields ...Field) { l.emit(ErrorLevel, msg, fields) }

func (l *StdLogger) WithFields(fields ...Field) Logger {
	child := *l
	child.fields = append(append(make([]Field, 0, len(l.fields)+len(fields)), l.fields...), fields...)
	return &child
}

// NoopLogger 丢弃全部日志
type NoopLogger struct{}

func NewNoopLogger() *NoopLogger { return &NoopLogger{} }

func (*NoopLogger) Debug(context.Context, string, ...Field) {}
func (*NoopLogger) Info(context.Context, string, ...Field)  {}
func (*NoopLogger) Warn(context.Context, string, ...Field)  {}
func (*NoopLogger) Error(context.Context, string, ...Field) {}

func (l *NoopLogger) WithFields(...Field) Logger { return l }

var (
	globalMu     sync.RWMutex
	globalLogger Logger = NewStdLogger("[gorel]")
)

// SetLogger 替换全局 Logger，nil 视为 NoopLogger
func SetLogger(logger Logger) {
	if logger == nil {
		logger = NewNoopLogger()
	}
	globalMu.Lock()
	globalLogger = logger
	globalMu.Unlock()
}

func GetLogger() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// ComponentLogger 带 component 字段的全局 Logger
func ComponentLogger(component string) Logger {
	return GetLogger().WithFields(String("component", component))
}
