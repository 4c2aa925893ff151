package flame

import (
	"errors"

	"github.com/gogpu/flame/ifs"
)

var (
	// ErrDeviceUnavailable is returned by NewRenderer when the GPU
	// backend was requested and no device could be acquired. The cause is
	// wrapped.
	ErrDeviceUnavailable = errors.New("flame: graphics device unavailable")

	// ErrClosed is returned by Renderer methods after Close.
	ErrClosed = errors.New("flame: renderer closed")

	// ErrConfiguration is matched by every ConfigurationError.
	ErrConfiguration = ifs.ErrConfiguration
)

// ConfigurationError reports an invalid function list or setting. It is
// returned before any work reaches a device.
type ConfigurationError = ifs.ConfigurationError
