package logger

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromZapFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := FromZap(zap.New(core)).With(String("component", "sync"))

	log.Warn("failed to delete bookmark",
		Int64("id", 7),
		Uint64("seq", 3),
		Bool("retry", false),
		Duration("elapsed", time.Second),
		Error(errors.New("boom")))
	log.Debugf("loaded %d bookmarks", 2)

	if logs.Len() != 2 {
		t.Fatalf("logged %d entries, want 2", logs.Len())
	}
	e := logs.All()[0]
	ctx := e.ContextMap()
	if e.Level != zapcore.WarnLevel || ctx["component"] != "sync" || ctx["id"] != int64(7) || ctx["error"] != "boom" {
		t.Errorf("entry = %v %v", e.Level, ctx)
	}
	if msg := logs.All()[1].Message; msg != "loaded 2 bookmarks" {
		t.Errorf("Debugf message = %q", msg)
	}
}

func TestNewLevels(t *testing.T) {
	tests := []struct {
		level   string
		enabled zapcore.Level
		off     zapcore.Level
	}{
		{level: "debug", enabled: zapcore.DebugLevel, off: zapcore.DebugLevel},
		{level: "warn", enabled: zapcore.WarnLevel, off: zapcore.InfoLevel},
		{level: "error", enabled: zapcore.ErrorLevel, off: zapcore.WarnLevel},
		{level: "bogus", enabled: zapcore.InfoLevel, off: zapcore.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l := New(tt.level, false).(*loggerImpl)
			if !l.base.Core().Enabled(tt.enabled) {
				t.Errorf("level %v disabled", tt.enabled)
			}
			if tt.off != tt.enabled && l.base.Core().Enabled(tt.off) {
				t.Errorf("level %v enabled", tt.off)
			}
		})
	}

	if l := New("off", true).(*loggerImpl); l.base.Core().Enabled(zapcore.FatalLevel) {
		t.Error("off logger enabled")
	}
}
