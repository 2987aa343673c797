package kit

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type LogOptions struct {
	Level       string
	Encoding    string
	Development bool
	// File, when set, receives a JSON copy of every entry with size-based
	// rotation.
	File string
}

func NewLogger(service string, opts ...LogOptions) *zap.Logger {
	var o LogOptions
	if len(opts) > 0 {
		o = opts[0]
	}

	cfg := zap.NewProductionConfig()
	if o.Development {
		cfg = zap.NewDevelopmentConfig()
	}
	if o.Encoding != "" {
		cfg.Encoding = o.Encoding
	}
	if lvl, err := zapcore.ParseLevel(o.Level); err == nil && o.Level != "" {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	cfg.InitialFields = map[string]any{"service": service}

	if o.File == "" {
		l, err := cfg.Build()
		if err != nil {
			return zap.NewNop()
		}
		return l
	}

	rotate := &lumberjack.Logger{
		Filename:   o.File,
		MaxSize:    64,
		MaxBackups: 7,
		MaxAge:     7,
	}

	stdoutEnc := zapcore.NewJSONEncoder(cfg.EncoderConfig)
	if cfg.Encoding == "console" {
		stdoutEnc = zapcore.NewConsoleEncoder(cfg.EncoderConfig)
	}

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), zapcore.AddSync(rotate), cfg.Level),
		zapcore.NewCore(stdoutEnc, zapcore.AddSync(os.Stdout), cfg.Level),
	)
	return zap.New(core, zap.AddCaller()).With(zap.String("service", service))
}
