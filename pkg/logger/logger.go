// Package logger provides opinionated logging capabilities for lmnode
package logger

import (
	"context"
	"os"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func NewLogger(debug bool) *zap.Logger {
	return New(zapcore.AddSync(os.Stdout), debug)
}

// New builds the console logger writing to ws. The stdio MCP command uses it
// with stderr since stdout carries the protocol.
func New(ws zapcore.WriteSyncer, debug bool) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	// Set log level
	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		ws,
		level,
	)

	return zap.New(core, zap.AddCaller())
}

type ctxKey struct{}

// WithContext returns a copy of ctx carrying l. Transports log per-request
// diagnostics through it.
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger carried by ctx, or a no-op logger.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok && l != nil {
		return l
	}
	return zap.NewNop()
}

// Preview flattens s to one line and truncates it to maxLen cells.
func Preview(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return ansi.Truncate(s, maxLen, "...")
}
