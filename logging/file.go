package logging

import (
	"io"
	"os"

	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewFileLogger returns a logger that writes Info+ logs to stdout and every enabled level as
// JSON lines to a size rotated file at path. Close the returned io.Closer when done.
func NewFileLogger(name string, level Level, path string) (Logger, io.Closer) {
	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10,
		MaxBackups: 2,
		Compress:   true,
	}
	encoderCfg := NewLoggerConfig().EncoderConfig
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(rotator), zapcore.DebugLevel)
	stdoutCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(NewLoggerConfig().EncoderConfig),
		zapcore.Lock(os.Stdout),
		zapcore.InfoLevel,
	)
	return newImpl(name, level, stdoutCore, fileCore), rotator
}
