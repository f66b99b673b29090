package llm

import (
	"net/url"
	"strings"
)

// Request is a single invocation of the node, one field per input socket.
type Request struct {
	SystemPrompt    string
	UserMessage     string
	Image           []byte // Optional encoded image (PNG, JPEG, WebP, ...)
	ModelID         string
	ServerAddress   string // e.g. "http://127.0.0.1:1234"
	Temperature     float64
	MaxTokens       int
	IncludeThinking bool
	UseSDK          bool
	Debug           bool
}

// HasImage reports whether an image is attached to the request.
func (r *Request) HasImage() bool {
	return len(r.Image) > 0
}

// Messages returns the system and user messages of the request.
// An empty system prompt is left out.
func (r *Request) Messages() []Message {
	msgs := make([]Message, 0, 2)
	if r.SystemPrompt != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: r.SystemPrompt})
	}
	return append(msgs, Message{Role: RoleUser, Content: r.UserMessage})
}

// Options returns the generation parameters of the request.
func (r *Request) Options() Options {
	return Options{Temperature: r.Temperature, MaxTokens: r.MaxTokens}
}

// BaseURL returns the server address without trailing slashes.
func (r *Request) BaseURL() string {
	return strings.TrimRight(strings.TrimSpace(r.ServerAddress), "/")
}

// Validate checks the inputs the node cannot work without.
func (r *Request) Validate() error {
	if strings.TrimSpace(r.ModelID) == "" {
		return &ValidationError{Field: "model_id", Reason: "is required"}
	}
	if strings.TrimSpace(r.ServerAddress) == "" {
		return &ValidationError{Field: "server_address", Reason: "is required"}
	}

	u, err := url.Parse(r.BaseURL())
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return &ValidationError{Field: "server_address", Reason: "must be an http(s) URL such as http://127.0.0.1:1234"}
	}

	return nil
}

// ChatRequest represents a chat completions request body (OpenAI-compatible).
type ChatRequest struct {
	Model       string    `json:"model"`                // Model identifier as known to LM Studio
	Messages    []Message `json:"messages"`             // System + user messages
	Temperature float64   `json:"temperature"`          // Sent even when zero
	MaxTokens   int       `json:"max_tokens,omitempty"` // Max tokens to generate
	Stream      bool      `json:"stream"`               // Always false for the node
}
