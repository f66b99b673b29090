package llm

import (
	"fmt"
	"strconv"
)

// Unavailable is printed for a statistic the transport did not report.
const Unavailable = "unavailable"

// Stats holds the performance figures of a single generation.
// A nil field means the transport did not provide it.
type Stats struct {
	TokensPerSecond   *float64
	InputTokens       *int
	OutputTokens      *int
	GenerationSeconds *float64
	TimeToFirstToken  *float64
	StopReason        string
}

// Rate returns tokens per second. When the server did not report it, it is
// derived from the output token count and generation time.
func (s Stats) Rate() (float64, bool) {
	if s.TokensPerSecond != nil {
		return *s.TokensPerSecond, true
	}
	if s.OutputTokens != nil && s.GenerationSeconds != nil && *s.GenerationSeconds > 0 {
		return float64(*s.OutputTokens) / *s.GenerationSeconds, true
	}
	return 0, false
}

// String formats the stats the way the node's stats output shows them.
func (s Stats) String() string {
	rate := Unavailable
	if r, ok := s.Rate(); ok {
		rate = strconv.FormatFloat(r, 'f', 2, 64)
	}

	return fmt.Sprintf("Tokens per Second: %s\nInput Tokens: %s\nOutput Tokens: %s",
		rate, formatCount(s.InputTokens), formatCount(s.OutputTokens))
}

func formatCount(v *int) string {
	if v == nil {
		return Unavailable
	}
	return strconv.Itoa(*v)
}

// UnavailableStats is the stats output of a failed invocation.
var UnavailableStats = Stats{}.String()

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }
