package node

import (
	"fmt"

	"github.com/papercomputeco/lmnode/pkg/llm"
)

// Registration metadata of the node in the host editor.
const (
	ClassName   = "LMStudioNode"
	DisplayName = "LM Studio Chat Interface"
	Category    = "LM Studio"
	Function    = "get_response"
)

// Socket types understood by the host editor.
const (
	TypeString  = "STRING"
	TypeImage   = "IMAGE"
	TypeFloat   = "FLOAT"
	TypeInt     = "INT"
	TypeBoolean = "BOOLEAN"
)

// Defaults are the initial values of the input sockets.
type Defaults struct {
	SystemPrompt   string  `toml:"system_prompt" json:"system_prompt"`
	UserMessage    string  `toml:"user_message" json:"user_message"`
	ModelID        string  `toml:"model_id" json:"model_id"`
	ServerAddress  string  `toml:"server_address" json:"server_address"`
	Temperature    float64 `toml:"temperature" json:"temperature"`
	MaxTokens      int     `toml:"max_tokens" json:"max_tokens"`
	ThinkingTokens bool    `toml:"thinking_tokens" json:"thinking_tokens"`
	UseSDK         bool    `toml:"use_sdk" json:"use_sdk"`
	Debug          bool    `toml:"debug" json:"debug"`
}

// DefaultValues returns the built-in socket defaults.
func DefaultValues() Defaults {
	return Defaults{
		SystemPrompt:   "You are a helpful assistant.",
		UserMessage:    "Explain quantum computing in simple terms",
		ModelID:        "TheBloke/Mistral-7B-Instruct-v0.2-GGUF",
		ServerAddress:  "http://127.0.0.1:1234",
		Temperature:    0.7,
		MaxTokens:      1000,
		ThinkingTokens: true,
		UseSDK:         true,
	}
}

// Socket describes one input or output of the node.
type Socket struct {
	Name      string   `json:"name"`
	Type      string   `json:"type"`
	Optional  bool     `json:"optional,omitempty"`
	Default   any      `json:"default"`
	Multiline bool     `json:"multiline,omitempty"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	Step      *float64 `json:"step,omitempty"`
	Label     string   `json:"label,omitempty"`
}

// Definition is what the host editor needs to register and draw the node.
type Definition struct {
	ClassName   string   `json:"class_name"`
	DisplayName string   `json:"display_name"`
	Category    string   `json:"category"`
	Function    string   `json:"function"`
	Inputs      []Socket `json:"inputs"`
	Outputs     []Socket `json:"outputs"`
}

// Input returns the input socket called name.
func (d Definition) Input(name string) (Socket, bool) {
	for _, s := range d.Inputs {
		if s.Name == name {
			return s, true
		}
	}
	return Socket{}, false
}

func bound(v float64) *float64 { return &v }

// Describe returns the node definition with the given socket defaults.
func Describe(d Defaults) Definition {
	return Definition{
		ClassName:   ClassName,
		DisplayName: DisplayName,
		Category:    Category,
		Function:    Function,
		Inputs: []Socket{
			{Name: "system_prompt", Type: TypeString, Default: d.SystemPrompt, Multiline: true},
			{Name: "user_message", Type: TypeString, Default: d.UserMessage, Multiline: true},
			{Name: "image", Type: TypeImage, Optional: true},
			{Name: "model_id", Type: TypeString, Default: d.ModelID},
			{Name: "server_address", Type: TypeString, Default: d.ServerAddress},
			{Name: "temperature", Type: TypeFloat, Default: d.Temperature, Min: bound(0), Max: bound(1), Step: bound(0.01)},
			{Name: "max_tokens", Type: TypeInt, Default: d.MaxTokens, Min: bound(1), Max: bound(4096)},
			{Name: "thinking_tokens", Type: TypeBoolean, Default: d.ThinkingTokens, Label: "Include thinking tokens"},
			{Name: "use_sdk", Type: TypeBoolean, Default: d.UseSDK, Label: "Use SDK (if available)"},
			{Name: "debug", Type: TypeBoolean, Optional: true, Default: d.Debug, Label: "Debug mode"},
		},
		Outputs: []Socket{
			{Name: "response", Type: TypeString},
			{Name: "stats", Type: TypeString},
		},
	}
}

// UnknownNodeError is returned when a node class name is not registered.
type UnknownNodeError struct {
	Name string
}

func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("unknown node %q", e.Name)
}

// Lookup returns the definition registered under name.
func Lookup(name string, d Defaults) (Definition, error) {
	if name != ClassName {
		return Definition{}, &UnknownNodeError{Name: name}
	}
	return Describe(d), nil
}

// Inputs are socket values as sent by a host. Unset sockets take their
// default. Image is base64 encoded in JSON.
type Inputs struct {
	SystemPrompt   *string  `json:"system_prompt,omitempty"`
	UserMessage    *string  `json:"user_message,omitempty"`
	Image          []byte   `json:"image,omitempty"`
	ModelID        *string  `json:"model_id,omitempty"`
	ServerAddress  *string  `json:"server_address,omitempty"`
	Temperature    *float64 `json:"temperature,omitempty"`
	MaxTokens      *int     `json:"max_tokens,omitempty"`
	ThinkingTokens *bool    `json:"thinking_tokens,omitempty"`
	UseSDK         *bool    `json:"use_sdk,omitempty"`
	Debug          *bool    `json:"debug,omitempty"`
}

func or[T any](v *T, def T) T {
	if v == nil {
		return def
	}
	return *v
}

// Request builds the request for these inputs, filling unset sockets from d.
func (in Inputs) Request(d Defaults) llm.Request {
	return llm.Request{
		SystemPrompt:    or(in.SystemPrompt, d.SystemPrompt),
		UserMessage:     or(in.UserMessage, d.UserMessage),
		Image:           in.Image,
		ModelID:         or(in.ModelID, d.ModelID),
		ServerAddress:   or(in.ServerAddress, d.ServerAddress),
		Temperature:     or(in.Temperature, d.Temperature),
		MaxTokens:       or(in.MaxTokens, d.MaxTokens),
		IncludeThinking: or(in.ThinkingTokens, d.ThinkingTokens),
		UseSDK:          or(in.UseSDK, d.UseSDK),
		Debug:           or(in.Debug, d.Debug),
	}
}
