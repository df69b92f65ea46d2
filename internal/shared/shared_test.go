package shared

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestIsTestEnvironment(t *testing.T) {
	tc := []struct {
		name string
		env  map[string]string
		want bool
	}{
		{name: "unset", env: map[string]string{}, want: false},
		{name: "DISCX_TESTING", env: map[string]string{"DISCX_TESTING": "1"}, want: true},
		{name: "TESTING true", env: map[string]string{"TESTING": "True"}, want: true},
		{name: "TESTING zero", env: map[string]string{"TESTING": "0"}, want: false},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := IsTestEnvironment(func(k string) string { return tt.env[k] })
			if got != tt.want {
				t.Errorf("IsTestEnvironment() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRedact(t *testing.T) {
	tc := []struct {
		in, want string
	}{
		{in: "", want: ""},
		{in: "abc", want: "***"},
		{in: "abcdefgh", want: "abcd****"},
	}

	for _, tt := range tc {
		if got := Redact(tt.in); got != tt.want {
			t.Errorf("Redact(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLogger(t *testing.T) {
	t.Run("ApplyLogLevel", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf)

		if err := ApplyLogLevel(logger, "warn"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if logger.GetLevel() != log.WarnLevel {
			t.Errorf("expected warn level, got %v", logger.GetLevel())
		}

		logger.Info("hidden")
		if strings.Contains(buf.String(), "hidden") {
			t.Error("info should be filtered at warn level")
		}

		if err := ApplyLogLevel(logger, "loud"); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}

		if err := ApplyLogLevel(logger, ""); err != nil {
			t.Errorf("empty level should be ignored, got %v", err)
		}
	})

	t.Run("WithLogger", func(t *testing.T) {
		var buf bytes.Buffer
		child := WithLogger(NewLogger(&buf), "component", "test")
		child.Info("hello")
		if !strings.Contains(buf.String(), "component=test") {
			t.Errorf("expected key-value pair in output, got %q", buf.String())
		}
	})

	t.Run("NewFileLogger", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "tui.log")
		logger, err := NewFileLogger(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		logger.Info("written to file")

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read log: %v", err)
		}
		if !strings.Contains(string(data), "written to file") {
			t.Errorf("expected message in log file, got %q", data)
		}
	})
}

func TestBrowserCommand(t *testing.T) {
	for _, goos := range []string{"darwin", "linux", "windows"} {
		cmd, err := browserCommand(goos, "https://www.discogs.com")
		if err != nil {
			t.Errorf("%s: unexpected error %v", goos, err)
			continue
		}
		if cmd.Args[len(cmd.Args)-1] != "https://www.discogs.com" {
			t.Errorf("%s: url should be the last argument, got %v", goos, cmd.Args)
		}
	}

	if _, err := browserCommand("plan9", "https://www.discogs.com"); err == nil {
		t.Error("expected error for unsupported platform")
	}

	orig := getRuntime
	t.Cleanup(func() { getRuntime = orig })
	getRuntime = func() string { return "plan9" }
	if err := OpenBrowser("https://www.discogs.com"); err == nil {
		t.Error("OpenBrowser should fail on unsupported platform")
	}
}
