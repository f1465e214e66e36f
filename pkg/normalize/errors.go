package normalize

import "errors"

var (
	// ErrForceSchemeExclusive is returned when ForceHTTP and ForceHTTPS are both set.
	ErrForceSchemeExclusive = errors.New("the ForceHTTP and ForceHTTPS options cannot be used together")

	// ErrParse covers inputs that cannot be parsed as an absolute URL and
	// failures of the pattern engine while processing one.
	ErrParse = errors.New("unexpected error")

	// ErrSchemeRewrite is returned when the parsed URL refuses a scheme change.
	ErrSchemeRewrite = errors.New("unexpected error returned by the url parser")
)
