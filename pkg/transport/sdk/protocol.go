package sdk

import (
	"encoding/json"
	"strings"

	"github.com/papercomputeco/lmnode/pkg/llm"
)

// Namespaces served by LM Studio's websocket API.
const (
	namespaceLLM   = "/llm"
	namespaceFiles = "/files"
)

// Packet types.
const (
	typeRPCCall       = "rpcCall"
	typeRPCResult     = "rpcResult"
	typeRPCError      = "rpcError"
	typeChannelCreate = "channelCreate"
	typeChannelSend   = "channelSend"
	typeChannelError  = "channelError"
	typeChannelClose  = "channelClose"
)

// Channel message types of the predict endpoint.
const (
	msgFragment = "fragment"
	msgSuccess  = "success"
)

type authPacket struct {
	AuthVersion      int    `json:"authVersion"`
	ClientIdentifier string `json:"clientIdentifier"`
	ClientPasskey    string `json:"clientPasskey"`
}

type authResult struct {
	Success bool         `json:"success"`
	Error   *serverError `json:"error,omitempty"`
}

// serverError is the error body LM Studio attaches to failed calls and channels.
type serverError struct {
	Title      string `json:"title"`
	Cause      string `json:"cause,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
	RootTitle  string `json:"rootTitle,omitempty"`
}

func (e *serverError) Error() string {
	parts := []string{e.Title}
	if e.Cause != "" {
		parts = append(parts, e.Cause)
	}
	if e.Suggestion != "" {
		parts = append(parts, e.Suggestion)
	}
	return strings.Join(parts, ": ")
}

type rpcCall struct {
	Type      string `json:"type"`
	Endpoint  string `json:"endpoint"`
	CallID    int    `json:"callId"`
	Parameter any    `json:"parameter"`
}

type channelCreate struct {
	Type              string `json:"type"`
	Endpoint          string `json:"endpoint"`
	ChannelID         int    `json:"channelId"`
	CreationParameter any    `json:"creationParameter"`
}

// packet is any server to client packet.
type packet struct {
	Type      string          `json:"type"`
	CallID    int             `json:"callId"`
	ChannelID int             `json:"channelId"`
	Result    json.RawMessage `json:"result,omitempty"`
	Message   json.RawMessage `json:"message,omitempty"`
	Error     *serverError    `json:"error,omitempty"`
}

type channelMessage struct {
	Type      string           `json:"type"`
	Fragment  *llm.Fragment    `json:"fragment,omitempty"`
	Stats     *predictionStats `json:"stats,omitempty"`
	ModelInfo map[string]any   `json:"modelInfo,omitempty"`
}

type predictionStats struct {
	StopReason           string   `json:"stopReason,omitempty"`
	TokensPerSecond      *float64 `json:"tokensPerSecond,omitempty"`
	TimeToFirstTokenSec  *float64 `json:"timeToFirstTokenSec,omitempty"`
	TotalTimeSec         *float64 `json:"totalTimeSec,omitempty"`
	PromptTokensCount    *int     `json:"promptTokensCount,omitempty"`
	PredictedTokensCount *int     `json:"predictedTokensCount,omitempty"`
	TotalTokensCount     *int     `json:"totalTokensCount,omitempty"`
}

func (s *predictionStats) stats() llm.Stats {
	if s == nil {
		return llm.Stats{}
	}
	return llm.Stats{
		TokensPerSecond:   s.TokensPerSecond,
		InputTokens:       s.PromptTokensCount,
		OutputTokens:      s.PredictedTokensCount,
		GenerationSeconds: s.TotalTimeSec,
		TimeToFirstToken:  s.TimeToFirstTokenSec,
		StopReason:        s.StopReason,
	}
}

type uploadParameter struct {
	Name          string `json:"name"`
	ContentBase64 string `json:"contentBase64"`
}

// fileHandle references a file uploaded to the server.
type fileHandle struct {
	Identifier string `json:"identifier"`
	FileType   string `json:"fileType"`
	SizeBytes  int    `json:"sizeBytes"`
}

type contentPart struct {
	Type       string `json:"type"`
	Text       string `json:"text,omitempty"`
	Name       string `json:"name,omitempty"`
	Identifier string `json:"identifier,omitempty"`
	SizeBytes  int    `json:"sizeBytes,omitempty"`
	FileType   string `json:"fileType,omitempty"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type modelQuery struct {
	Identifier string `json:"identifier"`
}

type modelSpecifier struct {
	Type  string     `json:"type"`
	Query modelQuery `json:"query"`
}

type history struct {
	Messages []chatMessage `json:"messages"`
}

type configField struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

type checkedValue struct {
	Checked bool `json:"checked"`
	Value   int  `json:"value"`
}

type configLayer struct {
	LayerName string `json:"layerName"`
	Config    struct {
		Fields []configField `json:"fields"`
	} `json:"config"`
}

type configStack struct {
	Layers []configLayer `json:"layers"`
}

type predictParameter struct {
	ModelSpecifier            modelSpecifier `json:"modelSpecifier"`
	History                   history        `json:"history"`
	PredictionConfigStack     configStack    `json:"predictionConfigStack"`
	IgnoreServerSessionConfig bool           `json:"ignoreServerSessionConfig"`
}

// newPredictParameter builds the predict channel parameter for req. When file
// is set it is attached to the user message after the text.
func newPredictParameter(req *llm.Request, file *fileHandle, name string) predictParameter {
	msgs := make([]chatMessage, 0, 2)
	for _, m := range req.Messages() {
		msg := chatMessage{
			Role:    m.Role,
			Content: []contentPart{{Type: "text", Text: m.Content}},
		}
		if m.Role == llm.RoleUser && file != nil {
			msg.Content = append(msg.Content, contentPart{
				Type:       "file",
				Name:       name,
				Identifier: file.Identifier,
				SizeBytes:  file.SizeBytes,
				FileType:   file.FileType,
			})
		}
		msgs = append(msgs, msg)
	}

	opts := req.Options()
	layer := configLayer{LayerName: "apiOverride"}
	layer.Config.Fields = []configField{{Key: "llm.prediction.temperature", Value: opts.Temperature}}
	if opts.MaxTokens > 0 {
		layer.Config.Fields = append(layer.Config.Fields, configField{
			Key:   "llm.prediction.maxPredictedTokens",
			Value: checkedValue{Checked: true, Value: opts.MaxTokens},
		})
	}

	return predictParameter{
		ModelSpecifier: modelSpecifier{
			Type:  "query",
			Query: modelQuery{Identifier: req.ModelID},
		},
		History:                   history{Messages: msgs},
		PredictionConfigStack:     configStack{Layers: []configLayer{layer}},
		IgnoreServerSessionConfig: true,
	}
}
