package node

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/papercomputeco/lmnode/pkg/llm"
	"github.com/papercomputeco/lmnode/pkg/transport"
)

func failure(outcome llm.Outcome, transportName, text string) llm.Response {
	return llm.Response{
		Text:      text,
		Stats:     llm.UnavailableStats,
		Transport: transportName,
		Outcome:   outcome,
	}
}

// renderError maps a transport error onto the text shown in the editor.
func (n *Node) renderError(ctx context.Context, req *llm.Request, transportName string, err error) llm.Response {
	deadline := errors.Is(ctx.Err(), context.DeadlineExceeded)

	switch {
	case deadline || errors.Is(err, transport.ErrTimeout):
		limit := n.config.Timeout
		if !deadline && n.config.HTTPTimeout < limit {
			limit = n.config.HTTPTimeout
		}
		return failure(llm.OutcomeTimeout, transportName, renderTimeout(limit))

	case errors.Is(err, transport.ErrModelNotFound):
		return failure(llm.OutcomeModelNotFound, transportName,
			fmt.Sprintf("Model not found: %q is not available on %s", req.ModelID, req.BaseURL()))

	case errors.Is(err, transport.ErrConnection):
		return failure(llm.OutcomeConnection, transportName,
			fmt.Sprintf("Connection error - is LM Studio running at %s?", req.BaseURL()))

	case errors.Is(err, transport.ErrImageUnsupported):
		return failure(llm.OutcomeImageUnsupported, transportName, renderImageUnsupported(transportName))

	default:
		return failure(llm.OutcomeError, transportName, "Error: "+err.Error())
	}
}

func renderTimeout(d time.Duration) string {
	return fmt.Sprintf("Request timed out after %s - try increasing the timeout", d)
}

func renderImageUnsupported(transportName string) string {
	return fmt.Sprintf("Image input requires the SDK transport (selected: %s) - enable use_sdk or remove the image", transportName)
}
