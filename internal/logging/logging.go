// Package logging builds the zap loggers used by gardencore binaries and
// adapts them to the core service logger contract.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the log level and encoding.
type Config struct {
	Level  string    // debug, info, warn, error
	Format string    // json or console
	Output io.Writer // defaults to stderr
}

// DefaultConfig logs info and above as console text on stderr.
func DefaultConfig() Config {
	return Config{Level: "info", Format: "console", Output: os.Stderr}
}

// New builds a zap logger for cfg.
func New(cfg Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.TrimSpace(cfg.Level))
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "json":
		enc = zapcore.NewJSONEncoder(encCfg)
	case "", "console", "text":
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	default:
		return nil, fmt.Errorf("log format %q: want json or console", cfg.Format)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(out), level)
	return zap.New(core), nil
}

// Adapter exposes a zap logger through the Debug/Info/Warn/Error(msg, kv...)
// shape core.Service expects.
type Adapter struct {
	s *zap.SugaredLogger
}

// NewAdapter wraps l. A nil logger yields a no-op adapter.
func NewAdapter(l *zap.Logger) *Adapter {
	if l == nil {
		l = zap.NewNop()
	}
	return &Adapter{s: l.Sugar()}
}

func (a *Adapter) Debug(msg string, args ...any) { a.s.Debugw(msg, args...) }
func (a *Adapter) Info(msg string, args ...any)  { a.s.Infow(msg, args...) }
func (a *Adapter) Warn(msg string, args ...any)  { a.s.Warnw(msg, args...) }
func (a *Adapter) Error(msg string, args ...any) { a.s.Errorw(msg, args...) }

// Sync flushes buffered entries.
func (a *Adapter) Sync() error { return a.s.Sync() }
