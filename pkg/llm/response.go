package llm

// ChatResponse represents a chat completions response body. LM Studio's REST API
// adds a stats block and model info next to the OpenAI usage counters.
type ChatResponse struct {
	ID        string         `json:"id,omitempty"`
	Model     string         `json:"model"`
	Choices   []Choice       `json:"choices"`
	Usage     *Usage         `json:"usage,omitempty"`
	Stats     *RESTStats     `json:"stats,omitempty"`
	ModelInfo map[string]any `json:"model_info,omitempty"`
}

// Choice is a single generated alternative.
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason,omitempty"`
}

// Usage holds OpenAI-style token counters. Pointers distinguish a missing
// counter from a zero one.
type Usage struct {
	PromptTokens     *int `json:"prompt_tokens,omitempty"`
	CompletionTokens *int `json:"completion_tokens,omitempty"`
	TotalTokens      *int `json:"total_tokens,omitempty"`
}

// RESTStats is LM Studio's performance block.
type RESTStats struct {
	TokensPerSecond  *float64 `json:"tokens_per_second,omitempty"`
	TimeToFirstToken *float64 `json:"time_to_first_token,omitempty"` // seconds
	GenerationTime   *float64 `json:"generation_time,omitempty"`     // seconds
	StopReason       string   `json:"stop_reason,omitempty"`
}

// Outcome labels the result of a node invocation.
type Outcome string

const (
	OutcomeOK               Outcome = "ok"
	OutcomeConnection       Outcome = "connection_error"
	OutcomeTimeout          Outcome = "timeout"
	OutcomeModelNotFound    Outcome = "model_not_found"
	OutcomeImageUnsupported Outcome = "image_unsupported"
	OutcomeInvalidRequest   Outcome = "invalid_request"
	OutcomeError            Outcome = "error"
)

// Response is the node output: the two strings shown by the host editor.
// Transport and Outcome are bookkeeping for the serving layer and are never
// part of the output sockets.
type Response struct {
	Text      string  `json:"response"`
	Stats     string  `json:"stats"`
	Transport string  `json:"-"`
	Outcome   Outcome `json:"-"`
}

// Completion is the raw result of one transport round trip, before thinking
// segments are stripped and stats are formatted.
type Completion struct {
	Text      string
	Stats     Stats
	Transport string // name of the transport that produced the text
	Model     string
	ImageSent bool
	Fragments int // streamed fragments received, zero for non-streaming transports
	ModelInfo map[string]any
}
