package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger adapts a *zap.Logger to the Logger interface.
type ZapLogger struct {
	logger *zap.SugaredLogger
	level  zap.AtomicLevel
}

var _ Logger = (*ZapLogger)(nil)

// NewZap wraps l. The returned logger filters records below level on top of
// whatever the zap core itself enables.
func NewZap(l *zap.Logger, level Level) Logger {
	atom := zap.NewAtomicLevelAt(toZapLevel(level))
	core := &levelCore{Core: l.Core(), level: atom}

	return &ZapLogger{
		logger: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar(),
		level:  atom,
	}
}

// NewZapConsole builds a console encoded zap logger writing to stderr, the same
// setup the CLI uses for human readable output.
func NewZapConsole(level Level) (Logger, error) {
	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapcore.DebugLevel),
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	return NewZap(l, level), nil
}

// Debug logs msg at debug level with alternating key/value pairs.
func (l *ZapLogger) Debug(msg string, keysAndValues ...any) {
	l.logger.Debugw(msg, keysAndValues...)
}

// Info logs msg at info level.
func (l *ZapLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Infow(msg, keysAndValues...)
}

// Warn logs msg at warn level.
func (l *ZapLogger) Warn(msg string, keysAndValues ...any) {
	l.logger.Warnw(msg, keysAndValues...)
}

// Error logs msg at error level.
func (l *ZapLogger) Error(msg string, keysAndValues ...any) {
	l.logger.Errorw(msg, keysAndValues...)
}

// Fatal logs msg at fatal level and exits the process.
func (l *ZapLogger) Fatal(msg string, keysAndValues ...any) {
	l.logger.Fatalw(msg, keysAndValues...)
}

// With returns a child logger sharing the level of its parent.
func (l *ZapLogger) With(keyValues ...any) Logger {
	return &ZapLogger{logger: l.logger.With(keyValues...), level: l.level}
}

// Level returns the current minimum level.
func (l *ZapLogger) Level() Level {
	switch l.level.Level() {
	case zapcore.DebugLevel:
		return DebugLevel
	case zapcore.InfoLevel:
		return InfoLevel
	case zapcore.WarnLevel:
		return WarnLevel
	case zapcore.ErrorLevel:
		return ErrorLevel
	default:
		return FatalLevel
	}
}

// SetLevel changes the minimum level of the logger and its children.
func (l *ZapLogger) SetLevel(level Level) {
	l.level.SetLevel(toZapLevel(level))
}

// levelCore narrows an existing core to an adjustable level.
type levelCore struct {
	zapcore.Core
	level zap.AtomicLevel
}

func (c *levelCore) Enabled(lvl zapcore.Level) bool {
	return c.level.Enabled(lvl) && c.Core.Enabled(lvl)
}

func (c *levelCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelCore{Core: c.Core.With(fields), level: c.level}
}

func (c *levelCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.level.Enabled(ent.Level) {
		return ce
	}

	return c.Core.Check(ent, ce)
}

func toZapLevel(level Level) zapcore.Level {
	switch level {
	case DebugLevel:
		return zapcore.DebugLevel
	case InfoLevel:
		return zapcore.InfoLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.FatalLevel
	}
}
