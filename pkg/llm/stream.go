package llm

// Fragment is a single piece of streamed prediction content.
type Fragment struct {
	Content       string `json:"content"`
	TokensCount   int    `json:"tokensCount,omitempty"`
	ReasoningType string `json:"reasoningType,omitempty"` // "none", "reasoning", ...
}
