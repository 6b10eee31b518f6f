package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"info", logrus.InfoLevel},
		{"warn", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"nonsense", logrus.InfoLevel},
		{"", logrus.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			if got := New(tt.level).GetLevel(); got != tt.want {
				t.Errorf("New(%q) level = %v, want %v", tt.level, got, tt.want)
			}
		})
	}
}

func TestComponent(t *testing.T) {
	log := New("info")
	var buf bytes.Buffer
	log.SetOutput(&buf)

	Component(log, "heartbeat").Info("heartbeat sent")

	out := buf.String()
	if !strings.Contains(out, "component=heartbeat") {
		t.Errorf("output missing component field: %s", out)
	}
	if !strings.Contains(out, "heartbeat sent") {
		t.Errorf("output missing message: %s", out)
	}
}
