// Package log 封装了全局的 zap SugaredLogger。
// 在 Init 之前所有调用都会落到一个 no-op logger 上，测试无需初始化即可运行。
package log

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var sugar = zap.NewNop().Sugar()

// Build 根据级别、编码格式和可选的输出目录构建 zap.Logger。
// format 为 "console" 时使用开发配置并带彩色级别，否则使用生产 JSON 配置。
func Build(level, format, outputDir string) (*zap.Logger, error) {
	var zapConfig zap.Config
	if format == "console" {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zapConfig = zap.NewProductionConfig()
		zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	atomicLevel := zap.NewAtomicLevel()
	if err := atomicLevel.UnmarshalText([]byte(level)); err != nil {
		atomicLevel.SetLevel(zap.InfoLevel)
	}
	zapConfig.Level = atomicLevel

	zapConfig.OutputPaths = []string{"stdout"}
	if outputDir != "" {
		if err := os.MkdirAll(outputDir, os.ModePerm); err != nil {
			return nil, err
		}
		zapConfig.OutputPaths = append(zapConfig.OutputPaths, filepath.Join(outputDir, "stratflow.log"))
	}
	return zapConfig.Build()
}

// Init 初始化全局 logger，失败时直接 panic。
func Init(level, format, outputDir string) {
	logger, err := Build(level, format, outputDir)
	if err != nil {
		panic(err)
	}
	sugar = logger.Sugar()
}

// Info 记录一条 info 级别的日志
func Info(msg string) {
	sugar.Info(msg)
}

// Infof 使用格式化字符串记录一条 info 级别的日志
func Infof(template string, args ...interface{}) {
	sugar.Infof(template, args...)
}

// Infow 记录带键值对上下文的结构化日志。
func Infow(msg string, keysAndValues ...interface{}) {
	sugar.Infow(msg, keysAndValues...)
}

func Warnf(template string, args ...interface{}) {
	sugar.Warnf(template, args...)
}

// Warnw 记录带键值对上下文的 warn 日志。
func Warnw(msg string, keysAndValues ...interface{}) {
	sugar.Warnw(msg, keysAndValues...)
}

// Error 记录一条 error 级别的日志，err 以 "error" 字段输出。
func Error(msg string, err error) {
	sugar.Errorw(msg, "error", err)
}

func Errorf(template string, args ...interface{}) {
	sugar.Errorf(template, args...)
}

// Fatal 记录日志后退出进程。
func Fatal(msg string, err error) {
	sugar.Fatalw(msg, "error", err)
}

func Fatalf(template string, args ...interface{}) {
	sugar.Fatalf(template, args...)
}

// Sync 刷新缓冲区，进程退出前调用。
func Sync() {
	_ = sugar.Sync()
}
