// Package testutils has helpers shared by the tests of the typed memory
// packages and the CLI.
package testutils

import (
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// SimpleLogrusHook records the entries logged at HookedLevels so tests can
// assert on them.
type SimpleLogrusHook struct {
	HookedLevels []logrus.Level
	mutex        sync.Mutex
	entries      []logrus.Entry
}

var _ logrus.Hook = &SimpleLogrusHook{}

// NewLogHook returns a hook for levels, or for every level if none is given.
func NewLogHook(levels ...logrus.Level) *SimpleLogrusHook {
	if len(levels) == 0 {
		levels = logrus.AllLevels
	}
	return &SimpleLogrusHook{HookedLevels: levels}
}

// Levels implements logrus.Hook.
func (h *SimpleLogrusHook) Levels() []logrus.Level {
	return h.HookedLevels
}

// Fire implements logrus.Hook.
func (h *SimpleLogrusHook) Fire(e *logrus.Entry) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.entries = append(h.entries, *e)
	return nil
}

// Drain returns the recorded entries and forgets them.
func (h *SimpleLogrusHook) Drain() []logrus.Entry {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	res := h.entries
	h.entries = nil
	return res
}

// Lines drains the hook and returns only the messages.
func (h *SimpleLogrusHook) Lines() []string {
	entries := h.Drain()
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.Message
	}
	return lines
}

// LogContains reports whether some entry has the level and a message
// containing contents.
func LogContains(entries []logrus.Entry, level logrus.Level, contents string) bool {
	return len(FilterEntries(entries, level, contents)) > 0
}

// FilterEntries returns the entries with the level whose message contains
// contents.
func FilterEntries(entries []logrus.Entry, level logrus.Level, contents string) []logrus.Entry {
	var filtered []logrus.Entry
	for _, e := range entries {
		if e.Level == level && strings.Contains(e.Message, contents) {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

// WithField returns the entries carrying key=value.
func WithField(entries []logrus.Entry, key string, value interface{}) []logrus.Entry {
	var filtered []logrus.Entry
	for _, e := range entries {
		if v, ok := e.Data[key]; ok && v == value {
			filtered = append(filtered, e)
		}
	}
	return filtered
}
