package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name    string
		level   log.Level
		logFunc func(*log.Logger)
		wantLog bool
	}{
		{"info at info level", log.InfoLevel, func(l *log.Logger) { l.Info("test") }, true},
		{"debug at info level", log.InfoLevel, func(l *log.Logger) { l.Debug("test") }, false},
		{"debug at debug level", log.DebugLevel, func(l *log.Logger) { l.Debug("test") }, true},
		{"info at warn level", log.WarnLevel, func(l *log.Logger) { l.Info("test") }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := newLogger(&buf, tt.level)
			tt.logFunc(logger)

			gotLog := buf.Len() > 0
			if gotLog != tt.wantLog {
				t.Errorf("got log output = %v, want %v", gotLog, tt.wantLog)
			}
		})
	}
}

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	prog := newProgress(newLogger(&buf, log.InfoLevel))

	time.Sleep(10 * time.Millisecond)
	prog.done("detected communities", "communities", 3)

	out := buf.String()
	if !strings.Contains(out, "detected communities") {
		t.Errorf("output should contain message: %q", out)
	}
	if !strings.Contains(out, "communities=3") || !strings.Contains(out, "elapsed=") {
		t.Errorf("output should contain key/values: %q", out)
	}
}

func TestLoadConfigSeverities(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recipegraph.toml")
	body := "[log]\nseverities = [\"warning\", \"error\"]\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	c := New(&buf, LogInfo)
	c.configPath = path
	if err := c.LoadConfig(false); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	defer c.Close()

	c.Logger.Info("hidden")
	c.Logger.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("threshold not applied: %q", buf.String())
	}

	buf.Reset()
	if err := c.LoadConfig(true); err != nil {
		t.Fatalf("LoadConfig verbose: %v", err)
	}
	c.Logger.Debug("debugging")
	if !strings.Contains(buf.String(), "debugging") {
		t.Error("verbose should enable debug output")
	}
}

func TestLoadConfigLogFile(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "run.log")
	path := filepath.Join(dir, "recipegraph.toml")
	body := "[log]\nfile = \"" + filepath.ToSlash(logPath) + "\"\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	c := New(&buf, LogInfo)
	c.configPath = path
	if err := c.LoadConfig(false); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	c.Logger.Info("to file")
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "to file") {
		t.Errorf("log file = %q", data)
	}
	if buf.Len() != 0 {
		t.Errorf("stderr writer should be unused, got %q", buf.String())
	}
}

func TestLoadConfigMissingExplicit(t *testing.T) {
	c := New(&bytes.Buffer{}, LogInfo)
	c.configPath = filepath.Join(t.TempDir(), "missing.toml")
	if err := c.LoadConfig(false); err == nil {
		t.Error("an explicit missing config should fail")
	}
}

func TestLoadConfigNonContiguousSeverities(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recipegraph.toml")
	body := "[log]\nseverities = [\"trace\", \"error\"]\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	c := New(&buf, LogInfo)
	c.configPath = path
	if err := c.LoadConfig(false); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	defer c.Close()
	buf.Reset()

	c.Logger.Debug("debug entry")
	c.Logger.Info("info entry")
	c.Logger.Warn("warn entry")
	c.Logger.Error("error entry")

	out := buf.String()
	for _, want := range []string{"debug entry", "error entry"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
	for _, unwanted := range []string{"info entry", "warn entry"} {
		if strings.Contains(out, unwanted) {
			t.Errorf("%q should be filtered: %q", unwanted, out)
		}
	}
}

func TestSeverityFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(newSeverityFilter(&buf, map[log.Level]bool{log.WarnLevel: true}), log.DebugLevel)

	logger.Info("WARN is only a word here")
	logger.Warn("kept", "note", "INFO in a value")
	logger.Debug("dropped")

	out := buf.String()
	if strings.Contains(out, "only a word") || strings.Contains(out, "dropped") {
		t.Errorf("entries leaked through the filter: %q", out)
	}
	if !strings.Contains(out, "kept") {
		t.Errorf("warn entry missing: %q", out)
	}
}
