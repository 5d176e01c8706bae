package logging

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		enabled zapcore.Level
		wantErr bool
	}{
		{name: "production default", opts: Options{}, enabled: zapcore.InfoLevel},
		{name: "development debug", opts: Options{Development: true, Level: "debug"}, enabled: zapcore.DebugLevel},
		{name: "warn", opts: Options{Level: "warn"}, enabled: zapcore.WarnLevel},
		{name: "bad level", opts: Options{Level: "chatty"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.opts)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			if !logger.Core().Enabled(tt.enabled) {
				t.Errorf("expected %s to be enabled", tt.enabled)
			}
			if tt.enabled > zapcore.DebugLevel && logger.Core().Enabled(tt.enabled-1) {
				t.Errorf("expected %s to be disabled", tt.enabled-1)
			}
		})
	}
}

func TestFromContext(t *testing.T) {
	if FromContext(context.Background()) != Default() {
		t.Error("expected the default logger without a context logger")
	}

	core, logs := observer.New(zap.InfoLevel)
	ctx := WithLogger(context.Background(), zap.New(core))
	ctx = WithFields(ctx, zap.String("request_id", "r-1"))

	L(ctx).Info("hello")

	entries := logs.FilterMessage("hello").All()
	if len(entries) != 1 || entries[0].ContextMap()["request_id"] != "r-1" {
		t.Errorf("expected one entry with request_id, got %+v", entries)
	}
}
