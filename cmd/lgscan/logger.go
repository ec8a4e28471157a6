package main

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// newLogger builds a zap logger writing JSON records to stderr, or to a
// rotating file when logFile is non-empty. Every entry this CLI emits
// through it carries a "run" field tying it to one invocation's scan run
// ID, correlating log lines by a caller-supplied run ID rather than
// PID/thread, as dgraph does.
func newLogger(logFile string, debug bool) (*zap.Logger, error) {
	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}

	var sink zapcore.WriteSyncer
	if logFile == "" {
		sink = zapcore.AddSync(os.Stderr)
	} else {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename: logFile,
			MaxSize:  100,
			MaxAge:   30,
			Compress: true,
		})
	}

	core := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), sink, level)
	return zap.New(core), nil
}
