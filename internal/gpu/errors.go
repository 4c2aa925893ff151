package gpu

import "errors"

// ErrNoDevice is returned when no adapter can be opened.
var ErrNoDevice = errors.New("gpu: no device available")
