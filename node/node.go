// Package node implements the LM Studio chat node: it turns the values of the
// node's input sockets into a chat request, runs it over the SDK or HTTP
// transport and renders the outcome as the node's two output strings.
package node

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/lmnode/pkg/llm"
	"github.com/papercomputeco/lmnode/pkg/logger"
	"github.com/papercomputeco/lmnode/pkg/transport"
	"github.com/papercomputeco/lmnode/pkg/transport/httpapi"
	"github.com/papercomputeco/lmnode/pkg/transport/sdk"
)

// Node is the request adapter. It is safe for concurrent use.
type Node struct {
	config Config
	logger *zap.Logger

	http transport.Transport
	sdk  transport.Transport // nil when the SDK capability is disabled
}

// New creates a Node. The SDK capability is resolved here, once.
func New(config Config, logger *zap.Logger) *Node {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.HTTPTimeout <= 0 {
		config.HTTPTimeout = config.Timeout
	}

	n := &Node{
		config: config,
		logger: logger,
		http: httpapi.New(httpapi.Config{
			Path:    config.HTTPPath,
			Timeout: config.HTTPTimeout,
		}),
	}

	if config.SDKEnabled {
		n.sdk = &transport.Fallback{
			Primary: sdk.New(sdk.Config{
				ClientIdentifier: config.ClientIdentifier,
				Image:            config.Image,
			}),
			Secondary:      n.http,
			ShouldFallback: transport.Recoverable,
			RequireImages:  config.StrictImages,
		}
	}

	logger.Info("lm studio node ready",
		zap.Bool("sdk_available", n.SDKAvailable()),
		zap.Duration("timeout", config.Timeout),
		zap.Bool("strict_images", config.StrictImages),
	)

	return n
}

// SDKAvailable reports whether requests with use_sdk set go over the SDK
// transport.
func (n *Node) SDKAvailable() bool {
	return n.sdk != nil
}

// transportFor selects the transport for req.
func (n *Node) transportFor(req *llm.Request) transport.Transport {
	if req.UseSDK && n.sdk != nil {
		return n.sdk
	}
	return n.http
}

// debugLogger returns the sink for the request's debug output.
func (n *Node) debugLogger(req *llm.Request) *zap.Logger {
	if !req.Debug {
		return zap.NewNop()
	}
	return n.logger.Named("debug")
}

// Generate runs a single request. It never returns an error: every failure is
// rendered into the response text, with all stats unavailable.
func (n *Node) Generate(ctx context.Context, req llm.Request) (resp llm.Response) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("recovered from panic during generation", zap.Any("panic", r))
			resp = failure(llm.OutcomeError, "", fmt.Sprintf("Error: %v", r))
		}
	}()

	log := n.debugLogger(&req)
	ctx = logger.WithContext(ctx, log)

	if err := req.Validate(); err != nil {
		log.Info("invalid request", zap.Error(err))
		return failure(llm.OutcomeInvalidRequest, "", "Error: "+err.Error())
	}

	t := n.transportFor(&req)
	log.Info("generating response",
		zap.String("model", req.ModelID),
		zap.String("server", req.BaseURL()),
		zap.String("transport", t.Name()),
		zap.Bool("use_sdk", req.UseSDK),
		zap.Bool("sdk_available", n.SDKAvailable()),
		zap.Bool("image", req.HasImage()),
		zap.Int("image_bytes", len(req.Image)),
		zap.Float64("temperature", req.Temperature),
		zap.Int("max_tokens", req.MaxTokens),
		zap.Bool("include_thinking", req.IncludeThinking),
	)

	if req.HasImage() && !t.Capabilities().Images && n.config.StrictImages {
		return failure(llm.OutcomeImageUnsupported, t.Name(), renderImageUnsupported(t.Name()))
	}

	ctx, cancel := context.WithTimeout(ctx, n.config.Timeout)
	defer cancel()

	start := time.Now()
	c, err := t.Complete(ctx, &req)
	if err != nil {
		log.Info("generation failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)),
		)
		return n.renderError(ctx, &req, transport.FailedTransport(err, t.Name()), err)
	}

	text := c.Text
	thinking := llm.HasThinking(text)
	if !req.IncludeThinking {
		text = llm.StripThinking(text)
	}

	log.Info("generation finished",
		zap.String("transport", c.Transport),
		zap.Bool("image_sent", c.ImageSent),
		zap.Int("fragments", c.Fragments),
		zap.Bool("thinking", thinking),
		zap.Duration("duration", time.Since(start)),
		zap.String("content_preview", logger.Preview(text, 100)),
	)

	return llm.Response{
		Text:      text,
		Stats:     c.Stats.String(),
		Transport: c.Transport,
		Outcome:   llm.OutcomeOK,
	}
}
