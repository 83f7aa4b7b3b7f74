package oauth

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a plain text logger writing to stderr at level. It
// returns a no-op logger when enabled is false or level does not parse.
func NewLogger(enabled bool, level string) *zap.Logger {
	if !enabled {
		return zap.NewNop()
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return zap.NewNop()
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.Lock(os.Stderr),
		lvl,
	)
	return zap.New(core, zap.AddCaller()).Named("slack-oauth")
}

// redactToken keeps the token type prefix and the last four characters.
func redactToken(tok string) string {
	if tok == "" {
		return ""
	}
	prefix := ""
	if len(tok) > 5 && tok[4] == '-' && tok[0] == 'x' {
		prefix = tok[:5]
	}
	if len(tok) <= 8 {
		return prefix + "****"
	}
	return prefix + "****" + tok[len(tok)-4:]
}
