// Package cli implements the recipegraph command-line interface.
//
// The commands follow the data flow of the tool: raw export lines are
// normalized with transform, turned into a graph with build, partitioned
// with communities or common, and drawn with render. browse opens an
// interactive community table and serve exposes the same analysis over
// HTTP. import and export move records between files and MongoDB.
//
// # Logging
//
// The logger lives on the [CLI] struct. The [log] severities in
// recipegraph.toml set its threshold and, through a filtering writer, drop
// levels between enabled ones ("debug" and "error" without "info").
// --verbose (-v) forces debug and disables the filter.
package cli

import (
	"bytes"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a new logger with timestamp formatting.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg with the elapsed time, rounded to the millisecond.
// Example output: "Detected 12 communities (1.234s)"
func (p *progress) done(msg string, keyvals ...any) {
	p.logger.Info(msg, append(keyvals, "elapsed", time.Since(p.start).Round(time.Millisecond))...)
}

// severityFilter drops log entries whose level is not enabled. The logger
// hands each formatted entry to its writer in one Write call, and the entry
// starts with the timestamp and the four-letter level tag.
type severityFilter struct {
	w     io.Writer
	allow map[log.Level]bool
}

var levelTags = func() map[log.Level][]byte {
	tags := make(map[log.Level][]byte)
	for _, lvl := range []log.Level{log.DebugLevel, log.InfoLevel, log.WarnLevel, log.ErrorLevel, log.FatalLevel} {
		tags[lvl] = []byte(strings.ToUpper(lvl.String())[:4])
	}
	return tags
}()

func newSeverityFilter(w io.Writer, allow map[log.Level]bool) io.Writer {
	return &severityFilter{w: w, allow: allow}
}

func (f *severityFilter) Write(p []byte) (int, error) {
	if lvl, ok := entryLevel(p); ok && !f.allow[lvl] {
		return len(p), nil
	}
	return f.w.Write(p)
}

// entryLevel returns the level whose tag appears first in the entry.
func entryLevel(p []byte) (log.Level, bool) {
	best, found := -1, log.Level(0)
	for lvl, tag := range levelTags {
		if i := bytes.Index(p, tag); i >= 0 && (best < 0 || i < best) {
			best, found = i, lvl
		}
	}
	return found, best >= 0
}
