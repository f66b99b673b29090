// Package httpapi implements the HTTP transport: a single JSON POST to LM
// Studio's chat completions endpoint. Images are not forwarded.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/papercomputeco/lmnode/pkg/llm"
	"github.com/papercomputeco/lmnode/pkg/logger"
	"github.com/papercomputeco/lmnode/pkg/transport"
)

const (
	// Name identifies the transport in logs and responses.
	Name = "http"

	// DefaultPath is LM Studio's REST chat completions endpoint, which reports
	// generation stats next to the OpenAI usage block.
	DefaultPath = "/api/v0/chat/completions"

	// DefaultTimeout bounds a whole round trip.
	DefaultTimeout = 120 * time.Second
)

var _ transport.Transport = (*Transport)(nil)

// Config is the HTTP transport configuration.
type Config struct {
	// Path appended to the server address (e.g. "/v1/chat/completions").
	Path string

	// Timeout of the underlying HTTP client.
	Timeout time.Duration
}

// Transport posts chat completion requests over plain HTTP.
type Transport struct {
	config     Config
	httpClient *http.Client
}

// New creates a Transport, filling unset config values with defaults.
func New(config Config) *Transport {
	if config.Path == "" {
		config.Path = DefaultPath
	}
	if !strings.HasPrefix(config.Path, "/") {
		config.Path = "/" + config.Path
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}

	return &Transport{
		config: config,
		httpClient: &http.Client{
			// LLM requests can be slow, especially with thinking blocks
			Timeout: config.Timeout,
		},
	}
}

func (t *Transport) Name() string { return Name }

func (t *Transport) Capabilities() transport.Capabilities {
	return transport.Capabilities{}
}

// Complete sends the system and user messages and returns the assistant reply.
// An attached image is dropped.
func (t *Transport) Complete(ctx context.Context, req *llm.Request) (*llm.Completion, error) {
	log := logger.FromContext(ctx)

	if req.HasImage() {
		log.Info("image input is not supported with API mode, sending text only",
			zap.Int("image_bytes", len(req.Image)),
		)
	}

	opts := req.Options()
	reqBody, err := json.Marshal(llm.ChatRequest{
		Model:       req.ModelID,
		Messages:    req.Messages(),
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Stream:      false,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := req.BaseURL() + t.config.Path
	log.Info("posting chat completion",
		zap.String("transport", Name),
		zap.String("url", url),
		zap.Int("body_size", len(reqBody)),
	)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	httpResp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, transport.Classify(fmt.Errorf("do request: %w", err))
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, transport.Classify(fmt.Errorf("read response: %w", err))
	}

	log.Info("received response",
		zap.Int("status", httpResp.StatusCode),
		zap.Int("body_size", len(body)),
		zap.Duration("duration", time.Since(start)),
	)

	if httpResp.StatusCode != http.StatusOK {
		return nil, upstreamError(httpResp.StatusCode, body)
	}

	var resp llm.ChatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: unmarshal response: %w", transport.ErrProtocol, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty choices in response", transport.ErrProtocol)
	}

	if len(resp.ModelInfo) > 0 {
		log.Info("model info", zap.Any("model_info", resp.ModelInfo))
	}

	return &llm.Completion{
		Text:      resp.Choices[0].Message.Content,
		Stats:     statsFrom(&resp),
		Transport: Name,
		Model:     resp.Model,
		ModelInfo: resp.ModelInfo,
	}, nil
}

func statsFrom(resp *llm.ChatResponse) llm.Stats {
	var s llm.Stats
	if resp.Usage != nil {
		s.InputTokens = resp.Usage.PromptTokens
		s.OutputTokens = resp.Usage.CompletionTokens
	}
	if resp.Stats != nil {
		s.TokensPerSecond = resp.Stats.TokensPerSecond
		s.GenerationSeconds = resp.Stats.GenerationTime
		s.TimeToFirstToken = resp.Stats.TimeToFirstToken
		s.StopReason = resp.Stats.StopReason
	}
	return s
}

// upstreamError turns a non-200 answer into an error, recognizing unknown models.
func upstreamError(status int, body []byte) error {
	msg := errorMessage(body)
	if msg == "" {
		msg = http.StatusText(status)
	}

	if modelNotFoundCode(body) || transport.LooksLikeModelNotFound(msg) {
		return fmt.Errorf("%w: %s", transport.ErrModelNotFound, msg)
	}
	return fmt.Errorf("upstream returned %d: %s", status, msg)
}

// modelNotFoundCode reports whether the body carries the OpenAI-style
// model_not_found error code.
func modelNotFoundCode(body []byte) bool {
	if !gjson.ValidBytes(body) {
		return false
	}
	return gjson.GetBytes(body, "error.code").String() == "model_not_found"
}

// errorMessage extracts the message from the error body shapes LM Studio and
// OpenAI-compatible servers use.
func errorMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return logger.Preview(strings.TrimSpace(string(body)), 200)
	}

	for _, path := range []string{"error.message", "error", "message", "detail"} {
		if r := gjson.GetBytes(body, path); r.Exists() && r.Type == gjson.String {
			return r.String()
		}
	}
	return ""
}
