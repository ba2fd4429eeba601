package utils

import (
	"go.uber.org/zap"
)

// Logger keeps the Info/Warn/Error(msg, kv...) call shape used across the
// service on top of a zap sugared logger.
type Logger struct {
	l *zap.SugaredLogger
}

// NewLogger builds a JSON production logger for env "prod" and a console
// development logger otherwise.
func NewLogger(env string) *Logger {
	var (
		base *zap.Logger
		err  error
	)
	if env == "prod" {
		base, err = zap.NewProduction()
	} else {
		base, err = zap.NewDevelopment()
	}
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	return &Logger{l: base.Sugar()}
}

func NewNopLogger() *Logger { return &Logger{l: zap.NewNop().Sugar()} }

// FromZap wraps an existing zap logger.
func FromZap(z *zap.Logger) *Logger { return &Logger{l: z.Sugar()} }

func (lg *Logger) Debug(msg string, kv ...any) { lg.l.Debugw(msg, kv...) }
func (lg *Logger) Info(msg string, kv ...any)  { lg.l.Infow(msg, kv...) }
func (lg *Logger) Warn(msg string, kv ...any)  { lg.l.Warnw(msg, kv...) }
func (lg *Logger) Error(msg string, kv ...any) { lg.l.Errorw(msg, kv...) }

// With returns a child logger carrying the given key/value pairs.
func (lg *Logger) With(kv ...any) *Logger { return &Logger{l: lg.l.With(kv...)} }

func (lg *Logger) Zap() *zap.Logger { return lg.l.Desugar() }

func (lg *Logger) Sync() { _ = lg.l.Sync() }
