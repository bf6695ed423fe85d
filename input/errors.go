package input

import "errors"

var (
	// ErrUnknownKey implies a key name or character has no virtual key.
	ErrUnknownKey = errors.New("unknown key")

	// ErrInjectFailed implies the OS rejected a synthetic event, for example
	// when it is blocked by UIPI.
	ErrInjectFailed = errors.New("key injection failed")

	// ErrUnsupportedPlatform implies no injection backend was built in.
	ErrUnsupportedPlatform = errors.New("keyboard injection not supported on this platform")
)
