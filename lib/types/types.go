// Package types contains the configuration value types that have no
// counterpart in gopkg.in/guregu/null.v3. They decode from YAML and from
// environment variable text alike.
package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that decodes from strings with units, days
// included, or from a bare number of milliseconds.
type Duration time.Duration

func (d Duration) String() string {
	return time.Duration(d).String()
}

// ParseExtendedDuration parses time.ParseDuration strings that may start
// with a number of days, like "1d12h". Unitless numbers are milliseconds.
func ParseExtendedDuration(data string) (time.Duration, error) {
	if ms, err := strconv.ParseFloat(data, 64); err == nil {
		return time.Duration(ms * float64(time.Millisecond)), nil
	}

	days, rest, found := strings.Cut(data, "d")
	if !found {
		return time.ParseDuration(data)
	}
	n, err := strconv.ParseInt(days, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number of days in %q: %w", data, err)
	}

	var hours time.Duration
	if rest != "" {
		if hours, err = time.ParseDuration(rest); err != nil {
			return 0, err
		}
		if hours < 0 {
			return 0, fmt.Errorf("invalid time format '%s'", rest)
		}
	}
	if strings.HasPrefix(days, "-") {
		hours = -hours
	}
	return time.Duration(n)*24*time.Hour + hours, nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(data []byte) error {
	v, err := ParseExtendedDuration(string(data))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// NullDuration is a Duration that is only applied when Valid, in the same
// vein as the nullable types of gopkg.in/guregu/null.v3.
type NullDuration struct {
	Duration
	Valid bool
}

// NullDurationFrom returns a valid NullDuration of d.
func NullDurationFrom(d time.Duration) NullDuration {
	return NullDuration{Duration(d), true}
}

// TimeDuration returns the value as a time.Duration.
func (d NullDuration) TimeDuration() time.Duration {
	return time.Duration(d.Duration)
}

// UnmarshalText implements encoding.TextUnmarshaler; empty text is null.
func (d *NullDuration) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*d = NullDuration{}
		return nil
	}
	if err := d.Duration.UnmarshalText(data); err != nil {
		return err
	}
	d.Valid = true
	return nil
}

// UnmarshalYAML accepts the same values as GetDurationValue. An explicit
// null leaves d invalid.
func (d *NullDuration) UnmarshalYAML(value *yaml.Node) error {
	if value.Tag == "!!null" {
		*d = NullDuration{}
		return nil
	}
	var raw interface{}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	v, err := GetDurationValue(raw)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = NullDurationFrom(v)
	return nil
}

// GetDurationValue converts the duration forms a decoded config file holds:
// strings with units, bare millisecond numbers and time.Duration values.
func GetDurationValue(v interface{}) (time.Duration, error) {
	switch d := v.(type) {
	case time.Duration:
		return d, nil
	case string:
		return ParseExtendedDuration(d)
	case int:
		return time.Duration(d) * time.Millisecond, nil
	case int64:
		return time.Duration(d) * time.Millisecond, nil
	case uint64:
		return time.Duration(d) * time.Millisecond, nil
	case float64:
		return time.Duration(d * float64(time.Millisecond)), nil
	default:
		return 0, fmt.Errorf("unable to use type %T as a duration value", v)
	}
}
