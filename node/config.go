package node

import (
	"time"

	"github.com/papercomputeco/lmnode/pkg/imageprep"
)

// DefaultTimeout bounds a whole invocation when Config.Timeout is unset.
const DefaultTimeout = 120 * time.Second

// Config is the node configuration. Per-call values (server address, model)
// come from the request; this only sets capabilities and limits.
type Config struct {
	// SDKEnabled reports whether the SDK transport may be used at all.
	SDKEnabled bool

	// ClientIdentifier sent during the SDK handshake (random when empty).
	ClientIdentifier string

	// HTTPPath is the chat completions path of the HTTP transport.
	HTTPPath string

	// HTTPTimeout is the HTTP client timeout. Defaults to Timeout.
	HTTPTimeout time.Duration

	// Timeout bounds a whole invocation, fallback included.
	Timeout time.Duration

	// Image controls how images are prepared for upload.
	Image imageprep.Options

	// StrictImages turns a dropped image into an error instead of a
	// text-only request.
	StrictImages bool
}

// DefaultConfig enables the SDK transport with default limits.
func DefaultConfig() Config {
	return Config{
		SDKEnabled: true,
		Timeout:    DefaultTimeout,
		Image:      imageprep.Options{Quality: imageprep.DefaultQuality},
	}
}
