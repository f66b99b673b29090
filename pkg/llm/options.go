package llm

// Options contains model inference parameters.
// Both are forwarded as given; the server is the one to reject bad values.
type Options struct {
	Temperature float64 // Creativity (0.0-1.0 in the node UI)
	MaxTokens   int     // Max tokens to generate
}
