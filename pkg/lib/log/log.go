// Package log 提供 fabricat 统一日志接口
//
// 基于 Go 标准库 log/slog 封装。各组件在包级别声明：
//
//	var logger = log.Logger("core/router")
//
// 返回的 LazyLogger 在每次调用时读取 slog.Default()，
// 因此在运行时调整输出目标或级别对已声明的 logger 同样生效。
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
)

// 日志级别常量
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

var (
	// level 全局日志级别，供 SetOutput 复用
	level = new(slog.LevelVar)

	// installOnce 保证 SetLevel 只在未安装 handler 时安装默认 handler
	installOnce sync.Once
)

// SetDefault 设置默认 logger
func SetDefault(l *slog.Logger) {
	slog.SetDefault(l)
}

// SetOutput 将默认 logger 的输出重定向到 w（文本格式）
func SetOutput(w io.Writer) {
	installOnce.Do(func() {})
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// SetJSONOutput 将默认 logger 的输出重定向到 w（JSON 格式）
func SetJSONOutput(w io.Writer) {
	installOnce.Do(func() {})
	slog.SetDefault(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})))
}

// SetLevel 设置日志级别
//
// 仅对通过 SetOutput/SetJSONOutput 安装的 handler 生效；
// 首次调用时若尚未安装，则安装输出到 stderr 的文本 handler。
func SetLevel(l slog.Level) {
	level.Set(l)
	installOnce.Do(func() {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	})
}

// ParseLevel 解析级别字符串（debug/info/warn/error）
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	err := l.UnmarshalText([]byte(s))
	return l, err
}

// Discard 返回丢弃所有输出的 logger，主要用于测试
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ============================================================================
//                              LazyLogger
// ============================================================================

// LazyLogger 带组件名的懒加载 logger
type LazyLogger struct {
	component string
}

// Logger 返回带组件名的 LazyLogger
func Logger(component string) *LazyLogger {
	return &LazyLogger{component: component}
}

func (l *LazyLogger) base() *slog.Logger {
	return slog.Default().With("component", l.component)
}

// Enabled 检查级别是否启用，用于热路径上避免构造参数
func (l *LazyLogger) Enabled(lv slog.Level) bool {
	return slog.Default().Enabled(context.Background(), lv)
}

// Debug 输出 Debug 级别日志
func (l *LazyLogger) Debug(msg string, args ...any) {
	l.base().Debug(msg, args...)
}

// Info 输出 Info 级别日志
func (l *LazyLogger) Info(msg string, args ...any) {
	l.base().Info(msg, args...)
}

// Warn 输出 Warn 级别日志
func (l *LazyLogger) Warn(msg string, args ...any) {
	l.base().Warn(msg, args...)
}

// Error 输出 Error 级别日志
func (l *LazyLogger) Error(msg string, args ...any) {
	l.base().Error(msg, args...)
}

// With 返回附加属性的 slog.Logger
func (l *LazyLogger) With(args ...any) *slog.Logger {
	return l.base().With(args...)
}
