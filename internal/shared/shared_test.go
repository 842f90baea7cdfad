package shared

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

func TestFormatBytes(t *testing.T) {
	tc := []struct {
		name  string
		bytes int64
		want  string
	}{
		{name: "zero", bytes: 0, want: "0 Bytes"},
		{name: "negative", bytes: -5, want: "0 Bytes"},
		{name: "bytes", bytes: 512, want: "512 Bytes"},
		{name: "kilobytes", bytes: 1536, want: "1.5 KB"},
		{name: "exact megabyte", bytes: 1024 * 1024, want: "1 MB"},
		{name: "gigabytes", bytes: 15 * 1024 * 1024 * 1024, want: "15 GB"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatBytes(tt.bytes); got != tt.want {
				t.Errorf("FormatBytes(%d) = %q, want %q", tt.bytes, got, tt.want)
			}
		})
	}
}

func TestPercent(t *testing.T) {
	tc := []struct {
		name        string
		part, total int64
		want        float64
	}{
		{name: "half", part: 50, total: 100, want: 50},
		{name: "zero total", part: 10, total: 0, want: 0},
		{name: "clamped", part: 200, total: 100, want: 100},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := Percent(tt.part, tt.total); got != tt.want {
				t.Errorf("Percent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tc := map[string]log.Level{
		"debug":   log.DebugLevel,
		" WARN ":  log.WarnLevel,
		"error":   log.ErrorLevel,
		"":        log.InfoLevel,
		"verbose": log.InfoLevel,
	}

	for in, want := range tc {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	if a == b {
		t.Error("expected unique ids")
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Errorf("expected a valid uuid, got %q: %v", a, err)
	}
}

func TestGenerateState(t *testing.T) {
	a, err := GenerateState()
	if err != nil {
		t.Fatalf("GenerateState() error = %v", err)
	}
	b, _ := GenerateState()

	if a == b || len(a) != 43 {
		t.Errorf("expected distinct 43 character states, got %q and %q", a, b)
	}
	if strings.ContainsAny(a, "+/=") {
		t.Errorf("state should be URL safe, got %q", a)
	}
}

func TestMarshalJSON(t *testing.T) {
	v := map[string]int{"a": 1}

	compact, err := MarshalJSON(v, false)
	if err != nil || string(compact) != `{"a":1}` {
		t.Errorf("unexpected compact output %s, %v", compact, err)
	}

	pretty, _ := MarshalJSON(v, true)
	if string(pretty) != "{\n  \"a\": 1\n}" {
		t.Errorf("unexpected pretty output %s", pretty)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := WithLogger(NewLogger(&buf), "job", "abc")
	SetLogLevel(logger, log.WarnLevel)

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if bytes.Contains(buf.Bytes(), []byte("hidden")) {
		t.Errorf("info should be filtered at warn level: %s", out)
	}
	if !bytes.Contains(buf.Bytes(), []byte("shown")) || !bytes.Contains(buf.Bytes(), []byte("job=abc")) {
		t.Errorf("expected warn entry with job field, got %s", out)
	}
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{Field: "link", Message: "must be a Google Drive URL", Err: ErrInvalidLink}

	if err.Error() != "link: must be a Google Drive URL" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, ErrInvalidLink) {
		t.Error("expected errors.Is ErrInvalidLink")
	}

	bare := &ValidationError{Field: "link", Message: "required"}
	if !errors.Is(bare, ErrInvalidInput) {
		t.Error("expected bare validation error to unwrap to ErrInvalidInput")
	}
}

func TestBrowserCommand(t *testing.T) {
	for _, platform := range []string{"darwin", "linux", "windows"} {
		cmd, err := browserCommand(platform, "https://accounts.google.com")
		if err != nil {
			t.Errorf("%s: unexpected error %v", platform, err)
			continue
		}
		if cmd.Args[len(cmd.Args)-1] != "https://accounts.google.com" {
			t.Errorf("%s: url should be last arg, got %v", platform, cmd.Args)
		}
	}

	if _, err := browserCommand("plan9", "https://x"); err == nil {
		t.Error("expected unsupported platform error")
	}
}
