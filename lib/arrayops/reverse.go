package arrayops

import "go.k6.io/typedmem/lib/host"

// Reverse reverses s in place. Holes move to the mirrored index.
func Reverse(s Sequence) error {
	length, err := s.Len()
	if err != nil {
		return err
	}
	for lower, middle := int64(0), length/2; lower != middle; lower++ {
		upper := length - lower - 1
		lowerExists, err := present(s, lower)
		if err != nil {
			return err
		}
		var lowerValue, upperValue host.Value
		if lowerExists {
			if lowerValue, err = s.Get(lower); err != nil {
				return err
			}
		}
		upperExists, err := present(s, upper)
		if err != nil {
			return err
		}
		if upperExists {
			if upperValue, err = s.Get(upper); err != nil {
				return err
			}
		}
		switch {
		case lowerExists && upperExists:
			if err = s.Set(lower, upperValue); err == nil {
				err = s.Set(upper, lowerValue)
			}
		case upperExists:
			if err = s.Set(lower, upperValue); err == nil {
				err = s.Delete(upper)
			}
		case lowerExists:
			if err = s.Delete(lower); err == nil {
				err = s.Set(upper, lowerValue)
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}
