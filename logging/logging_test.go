package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewWithOutputLevels(t *testing.T) {
	tests := []struct {
		level string
		want  logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{" WARN ", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"", logrus.InfoLevel},
		{"loud", logrus.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			log := NewWithOutput(&bytes.Buffer{}, tt.level, "text")
			if log.GetLevel() != tt.want {
				t.Fatalf("level = %v, want %v", log.GetLevel(), tt.want)
			}
		})
	}
}

func TestNewWithOutputJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput(&buf, "info", "JSON")
	log.WithField("run_id", "r1").Info("selected clips")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}
	if entry["run_id"] != "r1" || entry["msg"] != "selected clips" {
		t.Fatalf("entry = %v", entry)
	}
}

func TestNewWithOutputText(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput(&buf, "info", "")
	log.Debug("hidden")
	log.Info("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("output = %q", out)
	}
}
