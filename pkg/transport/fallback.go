package transport

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/papercomputeco/lmnode/pkg/llm"
	"github.com/papercomputeco/lmnode/pkg/logger"
)

var _ Transport = (*Fallback)(nil)

// Fallback tries Primary first; if it fails and ShouldFallback allows it,
// Secondary is tried with the same request.
// It reports the primary's name and capabilities since that is the path selected.
// Errors from Secondary are returned as *TransportError.
type Fallback struct {
	Primary   Transport
	Secondary Transport

	// ShouldFallback decides whether a primary failure is worth a second attempt.
	// Nil means always.
	ShouldFallback func(error) bool

	// RequireImages refuses a Secondary that would drop the request's image.
	RequireImages bool
}

func (f *Fallback) Name() string { return f.Primary.Name() }

func (f *Fallback) Capabilities() Capabilities { return f.Primary.Capabilities() }

// Complete calls Primary.Complete; on an eligible error, calls Secondary.Complete.
func (f *Fallback) Complete(ctx context.Context, req *llm.Request) (*llm.Completion, error) {
	c, err := f.Primary.Complete(ctx, req)
	if err == nil || f.Secondary == nil || ctx.Err() != nil {
		return c, err
	}
	if f.ShouldFallback != nil && !f.ShouldFallback(err) {
		return nil, err
	}

	log := logger.FromContext(ctx)
	log.Info("primary transport failed, falling back",
		zap.String("primary", f.Primary.Name()),
		zap.String("secondary", f.Secondary.Name()),
		zap.Error(err),
	)
	if req.HasImage() && !f.Secondary.Capabilities().Images {
		if f.RequireImages {
			return nil, &TransportError{
				Transport: f.Secondary.Name(),
				Err:       fmt.Errorf("%w: %s after %s failed: %v", ErrImageUnsupported, f.Secondary.Name(), f.Primary.Name(), err),
			}
		}
		log.Info("image input is dropped by the fallback transport",
			zap.String("transport", f.Secondary.Name()),
		)
	}

	c, err = f.Secondary.Complete(ctx, req)
	if err != nil {
		return nil, &TransportError{Transport: f.Secondary.Name(), Err: err}
	}
	return c, nil
}

// Recoverable reports whether a primary failure may be retried on the secondary
// transport. Unknown models, timeouts and cancellation are final.
func Recoverable(err error) bool {
	return !errors.Is(err, ErrModelNotFound) &&
		!errors.Is(err, ErrTimeout) &&
		!errors.Is(err, context.Canceled)
}
