package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/August26/proxycheck-api/internal/model"
)

func deadAfterHTTP() model.VerificationReport {
	msg := "HTTP status 407"
	return model.VerificationReport{
		Proxy:     "u:p@203.0.113.5:8080",
		Type:      model.ProxyTypeHTTP,
		Parsed:    model.ParsedProxy{IP: "203.0.113.5", Port: 8080, HasAuth: true},
		TimeoutMs: 5000,
		TCP:       model.TCPProbeResult{Alive: true, LatencyMs: 12, Message: "TCP connect OK"},
		HTTP:      &model.HTTPProbeResult{LatencyMs: 340, Error: &msg, Tries: 2},
	}
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	PrintReport(&buf, deadAfterHTTP())
	out := buf.String()
	for _, want := range []string{"IP:PORT", "203.0.113.5:8080", "HTTP status 407", "340"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output lacks %q:\n%s", want, out)
		}
	}
}

func TestPrintReport_TCPFailure(t *testing.T) {
	r := model.VerificationReport{
		Type:   model.ProxyTypeSOCKS5,
		Parsed: model.ParsedProxy{IP: "198.51.100.1", Port: 1080, HasAuth: true},
		TCP:    model.TCPProbeResult{Message: "TCP timeout"},
	}
	var buf bytes.Buffer
	PrintReport(&buf, r)
	if !strings.Contains(buf.String(), "TCP timeout") {
		t.Fatalf("tcp message missing:\n%s", buf.String())
	}
}

func TestWriteJSON_NullHTTP(t *testing.T) {
	r := deadAfterHTTP()
	r.HTTP = nil
	var buf bytes.Buffer
	if err := WriteJSON(&buf, r); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if v, ok := out["http"]; !ok || v != nil {
		t.Fatalf("http should be null, got %v", v)
	}
}

func TestWriteFile_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.csv")
	if err := WriteFile(path, "csv", deadAfterHTTP()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows", len(rows))
	}
	want := []string{"203.0.113.5", "8080", "http", "5000", "n", "y", "12", "TCP connect OK", "340", "2", "HTTP status 407"}
	if !reflect.DeepEqual(rows[1], want) {
		t.Fatalf("got %v want %v", rows[1], want)
	}
}

func TestWriteFile_UnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xml")
	if err := WriteFile(path, "xml", deadAfterHTTP()); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("file created for unsupported format")
	}
}
