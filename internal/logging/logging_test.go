package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew_JSONByDefault(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, false, "")
	log.Info("proxy checked", "alive", true)
	log.Debug("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %q", buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("not json: %v", err)
	}
	if rec["msg"] != "proxy checked" || rec["alive"] != true {
		t.Fatalf("unexpected record %v", rec)
	}
}

func TestNew_VerboseText(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, true, "text")
	log.Debug("attempt failed", "attempt", 2)
	if !strings.Contains(buf.String(), "level=DEBUG") || !strings.Contains(buf.String(), "attempt=2") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}
