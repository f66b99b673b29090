// Package transport defines how the node reaches an LM Studio server and the
// error taxonomy shared by every transport.
package transport

import (
	"context"

	"github.com/papercomputeco/lmnode/pkg/llm"
)

// Capabilities describes what a transport can do.
type Capabilities struct {
	// Images is true when image attachments reach the model.
	Images bool

	// RequiresInstall is true when the transport is only usable after being
	// enabled for the node (the SDK), as opposed to the always available HTTP API.
	RequiresInstall bool
}

// Transport sends one request to an LM Studio server and returns the raw completion.
// Implementations hold no per-call state and open their own connections.
type Transport interface {
	Name() string
	Capabilities() Capabilities
	Complete(ctx context.Context, req *llm.Request) (*llm.Completion, error)
}
