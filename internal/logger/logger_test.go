package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	for _, env := range []string{"prod", "local", "dev", "docker", "test"} {
		l, err := NewLogger(env)
		if err != nil {
			t.Fatalf("%s: %v", env, err)
		}
		_ = l.Sync()
	}
}

func TestNewLogger_LevelOverride(t *testing.T) {
	l, err := NewLogger("prod", "warn")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.Core().Enabled(zapcore.InfoLevel) {
		t.Error("info must be disabled at warn level")
	}
	if !l.Core().Enabled(zapcore.WarnLevel) {
		t.Error("warn must be enabled")
	}
}

func TestNewLogger_Errors(t *testing.T) {
	if _, err := NewLogger("staging"); err == nil {
		t.Error("expected error for unknown env")
	}
	if _, err := NewLogger("local", "loud"); err == nil {
		t.Error("expected error for invalid level")
	}
}

func TestContextLogger(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("FromContext must never return nil")
	}

	fallback := zap.NewExample()
	if FromContextOr(context.Background(), fallback) != fallback {
		t.Error("expected fallback when context has no logger")
	}

	l := zap.NewExample().With(zap.String("request_id", "r1"))
	ctx := ContextWithLogger(context.Background(), l)
	if FromContext(ctx) != l || FromContextOr(ctx, fallback) != l {
		t.Error("expected stored logger")
	}
}
