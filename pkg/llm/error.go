// Package llm provides the internal representations of LM Studio chat requests,
// responses and statistics which are then further mutated and handled by the
// node and its transports.
package llm

import "fmt"

// ErrorResponse represents an error returned by the node's HTTP surface.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ValidationError is returned when a Request is missing a required input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}
