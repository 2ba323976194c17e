package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		cfg     Config
		level   zapcore.Level
		wantErr bool
	}{
		{name: "defaults", cfg: Config{}, level: zapcore.InfoLevel},
		{name: "json debug", cfg: Config{Level: "DEBUG", Format: "json"}, level: zapcore.DebugLevel},
		{name: "console warn", cfg: Config{Level: "warn", Format: "console"}, level: zapcore.WarnLevel},
		{name: "bad level", cfg: Config{Level: "loud"}, wantErr: true},
		{name: "bad format", cfg: Config{Format: "xml"}, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			logger, err := New(tc.cfg)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New returned error: %v", err)
			}
			if !logger.Core().Enabled(tc.level) {
				t.Fatalf("level %v should be enabled", tc.level)
			}
			if tc.level > zapcore.DebugLevel && logger.Core().Enabled(tc.level-1) {
				t.Fatalf("level %v should be disabled", tc.level-1)
			}
		})
	}
}

func TestOrNop(t *testing.T) {
	t.Parallel()

	if OrNop(nil) == nil {
		t.Fatalf("OrNop(nil) returned nil")
	}
}
