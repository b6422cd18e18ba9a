// Package logger 提供基于 zap 的结构化日志工具
package logger

import (
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	log *zap.Logger
	mu  sync.RWMutex
)

// Config 日志配置
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json, console
	Output     string // stdout, stderr, file, both
	FilePath   string
	MaxSize    int // MB
	MaxBackups int
	MaxAge     int // days
}

// DefaultConfig 返回默认配置，输出到 stderr。
// worker 进程的 stdout 用于回传结果，日志不能写到 stdout。
func DefaultConfig() *Config {
	return &Config{
		Level:  "info",
		Format: "console",
		Output: "stderr",
	}
}

// Init 初始化全局日志
func Init(cfg *Config) {
	l := New(cfg)
	mu.Lock()
	log = l
	mu.Unlock()
}

// New 创建日志实例
func New(cfg *Config) *zap.Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return zap.New(newCore(cfg, nil), zap.AddCaller())
}

// NewWithWriter 创建写入指定 writer 的日志实例，主要用于测试
func NewWithWriter(cfg *Config, w io.Writer) *zap.Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return zap.New(newCore(cfg, w))
}

func newCore(cfg *Config, w io.Writer) zapcore.Core {
	level := ParseLevel(cfg.Level)

	// 编码器配置
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	if cfg.Format == "json" {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	if w != nil {
		return zapcore.NewCore(encoder, zapcore.AddSync(w), level)
	}

	var cores []zapcore.Core
	switch cfg.Output {
	case "stdout":
		cores = append(cores, zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level))
	case "file":
	default:
		cores = append(cores, zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level))
	}
	if (cfg.Output == "file" || cfg.Output == "both") && cfg.FilePath != "" {
		writer := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(writer), level))
	}
	if len(cores) == 0 {
		return zapcore.NewNopCore()
	}
	return zapcore.NewTee(cores...)
}

// ParseLevel 解析日志级别，未知值按 info 处理
func ParseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// L 获取全局日志实例
func L() *zap.Logger {
	mu.RLock()
	l := log
	mu.RUnlock()
	if l == nil {
		Init(nil)
		return L()
	}
	return l
}

// Named 返回带名称的子日志
func Named(name string) *zap.Logger {
	return L().Named(name)
}

// Sync 同步日志
func Sync() {
	mu.RLock()
	l := log
	mu.RUnlock()
	if l != nil {
		_ = l.Sync()
	}
}
