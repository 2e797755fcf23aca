package errext

import "errors"

// Format renders err as a message and a map of log fields. Script exceptions
// use their stack trace as the message; hints and typed error codes become
// fields.
func Format(err error) (string, map[string]interface{}) {
	if err == nil {
		return "", nil
	}

	errText := err.Error()
	var xerr Exception
	if errors.As(err, &xerr) {
		errText = xerr.StackTrace()
	}

	fields := make(map[string]interface{})
	var herr HasHint
	if errors.As(err, &herr) {
		fields["hint"] = herr.Hint()
	}
	var terr *Error
	if errors.As(err, &terr) {
		fields["code"] = string(terr.Code)
	}

	return errText, fields
}
