package surface

import "errors"

var (
	// ErrInvalidPolicy is returned for an unknown zoom controls policy.
	ErrInvalidPolicy = errors.New("invalid zoom controls policy")
	// ErrInvalidSettings is returned by Settings.Validate.
	ErrInvalidSettings = errors.New("invalid surface settings")
)
