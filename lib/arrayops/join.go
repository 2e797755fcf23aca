package arrayops

import (
	"strings"

	"go.k6.io/typedmem/lib/host"
)

// Join converts every element to a string and concatenates them with sep,
// "," by default. undefined and null become empty strings.
func Join(h host.Host, s Sequence, sep ...host.Value) (string, error) {
	length, err := s.Len()
	if err != nil {
		return "", err
	}
	separator := ","
	if v, ok := optional(sep); ok && !host.IsUndefined(v) {
		if separator, err = h.ToString(v); err != nil {
			return "", err
		}
	}
	var b strings.Builder
	for k := int64(0); k < length; k++ {
		if k > 0 {
			b.WriteString(separator)
		}
		v, err := s.Get(k)
		if err != nil {
			return "", err
		}
		if v == nil || host.IsUndefined(v) {
			continue
		}
		str, err := h.ToString(v)
		if err != nil {
			return "", err
		}
		b.WriteString(str)
	}
	return b.String(), nil
}
