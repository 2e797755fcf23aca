// Package log holds the logrus plumbing of the typedmem command: level
// parsing and the asynchronous file hook.
package log

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
)

// ParseLevel parses a level name, rejecting unknown names with an error
// that lists the accepted ones.
func ParseLevel(level string) (logrus.Level, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return 0, fmt.Errorf("unknown log level %q, use one of %v", level, logrus.AllLevels) // specifically use a custom error
	}
	return lvl, nil
}

// parseLevels returns level and every level more severe than it.
func parseLevels(level string) ([]logrus.Level, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	index := sort.Search(len(logrus.AllLevels), func(i int) bool {
		return logrus.AllLevels[i] > lvl
	})

	return logrus.AllLevels[:index], nil
}
