// Package lmstudiotest provides a fake LM Studio server for tests. It speaks
// the REST chat completions API and the websocket SDK protocol and records
// every request it receives.
package lmstudiotest

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// ChatPath is the REST endpoint served by the fake.
const ChatPath = "/api/v0/chat/completions"

// Config controls how the fake answers. It is fixed once the server starts.
type Config struct {
	Models           []string // model identifiers the server knows
	Reply            string   // assistant content returned for every request
	PromptTokens     int
	CompletionTokens int
	TokensPerSecond  float64
	GenerationTime   float64 // seconds
	OmitStats        bool    // leave usage and stats out of the answers
	DisableSDK       bool    // answer 404 on the websocket endpoints
	CodedErrors      bool    // report unknown models with error.code instead of a "not found" message
	Delay            time.Duration
}

// DefaultConfig knows "test-model" and reports fixed statistics.
func DefaultConfig() Config {
	return Config{
		Models:           []string{"test-model"},
		Reply:            "Hello from LM Studio",
		PromptTokens:     12,
		CompletionTokens: 34,
		TokensPerSecond:  56.78,
		GenerationTime:   0.6,
	}
}

// Upload is an image received on the files namespace.
type Upload struct {
	Name string
	Data []byte
}

// Server is a running fake LM Studio server.
type Server struct {
	URL string

	config Config
	srv    *httptest.Server

	mu           sync.Mutex
	chatRequests []map[string]any
	predictions  []map[string]any
	uploads      []Upload
	handshakes   int
}

// NewServer starts a fake server with the given configuration.
func NewServer(config Config) *Server {
	s := &Server{config: config}

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+ChatPath, s.handleChat)
	mux.HandleFunc("/llm", s.handleLLM)
	mux.HandleFunc("/files", s.handleFiles)

	s.srv = httptest.NewServer(mux)
	s.URL = s.srv.URL
	return s
}

// Close shuts the server down.
func (s *Server) Close() {
	s.srv.CloseClientConnections()
	s.srv.Close()
}

// ChatRequests returns the decoded REST request bodies, oldest first.
func (s *Server) ChatRequests() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.chatRequests)
}

// Predictions returns the creation parameters of every predict channel.
func (s *Server) Predictions() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.predictions)
}

// Uploads returns the images uploaded over the files namespace.
func (s *Server) Uploads() []Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.uploads)
}

// Handshakes returns the number of successful websocket authentications.
func (s *Server) Handshakes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handshakes
}

func (s *Server) knows(model string) bool {
	return slices.Contains(s.config.Models, model)
}

func (s *Server) wait(ctx context.Context) {
	if s.config.Delay <= 0 {
		return
	}
	select {
	case <-time.After(s.config.Delay):
	case <-ctx.Done():
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return
	}

	s.mu.Lock()
	s.chatRequests = append(s.chatRequests, body)
	s.mu.Unlock()

	s.wait(r.Context())

	model, _ := body["model"].(string)
	if !s.knows(model) && s.config.CodedErrors {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error": map[string]any{
				"message": fmt.Sprintf("Invalid model identifier %q. Please specify a valid downloaded model.", model),
				"type":    "invalid_request_error",
				"param":   "model",
				"code":    "model_not_found",
			},
		})
		return
	}
	if !s.knows(model) {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error": map[string]any{
				"message": fmt.Sprintf("Model %q not found", model),
				"type":    "invalid_request_error",
			},
		})
		return
	}

	resp := map[string]any{
		"id":     "chatcmpl-test",
		"object": "chat.completion",
		"model":  model,
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": s.config.Reply},
			"finish_reason": "stop",
		}},
		"model_info": map[string]any{"arch": "llama", "quant": "Q4_K_M"},
	}
	if !s.config.OmitStats {
		resp["usage"] = map[string]any{
			"prompt_tokens":     s.config.PromptTokens,
			"completion_tokens": s.config.CompletionTokens,
			"total_tokens":      s.config.PromptTokens + s.config.CompletionTokens,
		}
		resp["stats"] = map[string]any{
			"tokens_per_second":   s.config.TokensPerSecond,
			"time_to_first_token": 0.1,
			"generation_time":     s.config.GenerationTime,
			"stop_reason":         "eosFound",
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// accept upgrades the request and performs the SDK authentication handshake.
func (s *Server) accept(w http.ResponseWriter, r *http.Request) (*websocket.Conn, bool) {
	if s.config.DisableSDK {
		http.NotFound(w, r)
		return nil, false
	}

	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		return nil, false
	}
	c.SetReadLimit(64 << 20)

	var auth map[string]any
	if err := wsjson.Read(r.Context(), c, &auth); err != nil {
		c.CloseNow()
		return nil, false
	}
	if auth["clientIdentifier"] == nil || auth["clientPasskey"] == nil {
		_ = wsjson.Write(r.Context(), c, map[string]any{
			"success": false,
			"error":   map[string]any{"title": "Invalid authentication packet"},
		})
		c.CloseNow()
		return nil, false
	}
	if err := wsjson.Write(r.Context(), c, map[string]any{"success": true}); err != nil {
		c.CloseNow()
		return nil, false
	}

	s.mu.Lock()
	s.handshakes++
	s.mu.Unlock()

	return c, true
}

func (s *Server) handleLLM(w http.ResponseWriter, r *http.Request) {
	c, ok := s.accept(w, r)
	if !ok {
		return
	}
	defer c.CloseNow()

	ctx := r.Context()
	for {
		var packet struct {
			Type              string         `json:"type"`
			Endpoint          string         `json:"endpoint"`
			ChannelID         int            `json:"channelId"`
			CreationParameter map[string]any `json:"creationParameter"`
		}
		if err := wsjson.Read(ctx, c, &packet); err != nil {
			return
		}
		if packet.Type != "channelCreate" || packet.Endpoint != "predict" {
			continue
		}

		s.mu.Lock()
		s.predictions = append(s.predictions, packet.CreationParameter)
		s.mu.Unlock()

		s.wait(ctx)

		if err := s.predict(ctx, c, packet.ChannelID, packet.CreationParameter); err != nil {
			return
		}
	}
}

func (s *Server) predict(ctx context.Context, c *websocket.Conn, channelID int, param map[string]any) error {
	model := queriedModel(param)
	if !s.knows(model) {
		return wsjson.Write(ctx, c, map[string]any{
			"type":      "channelError",
			"channelId": channelID,
			"error": map[string]any{
				"title": "No model found that fits the query",
				"cause": fmt.Sprintf("identifier %q", model),
			},
		})
	}

	send := func(message map[string]any) error {
		return wsjson.Write(ctx, c, map[string]any{
			"type":      "channelSend",
			"channelId": channelID,
			"message":   message,
		})
	}

	if err := send(map[string]any{"type": "promptProcessingProgress", "progress": 1}); err != nil {
		return err
	}

	half := len(s.config.Reply) / 2
	for _, part := range []string{s.config.Reply[:half], s.config.Reply[half:]} {
		if err := send(map[string]any{
			"type":     "fragment",
			"fragment": map[string]any{"content": part, "tokensCount": 1},
		}); err != nil {
			return err
		}
	}

	success := map[string]any{
		"type":      "success",
		"modelInfo": map[string]any{"identifier": model, "architecture": "llama"},
	}
	if !s.config.OmitStats {
		success["stats"] = map[string]any{
			"stopReason":           "eosFound",
			"tokensPerSecond":      s.config.TokensPerSecond,
			"timeToFirstTokenSec":  0.1,
			"totalTimeSec":         s.config.GenerationTime,
			"promptTokensCount":    s.config.PromptTokens,
			"predictedTokensCount": s.config.CompletionTokens,
			"totalTokensCount":     s.config.PromptTokens + s.config.CompletionTokens,
		}
	}
	return send(success)
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	c, ok := s.accept(w, r)
	if !ok {
		return
	}
	defer c.CloseNow()

	ctx := r.Context()
	for {
		var call struct {
			Type      string `json:"type"`
			Endpoint  string `json:"endpoint"`
			CallID    int    `json:"callId"`
			Parameter struct {
				Name          string `json:"name"`
				ContentBase64 string `json:"contentBase64"`
			} `json:"parameter"`
		}
		if err := wsjson.Read(ctx, c, &call); err != nil {
			return
		}
		if call.Type != "rpcCall" {
			continue
		}
		if call.Endpoint != "uploadFileBase64" {
			_ = wsjson.Write(ctx, c, map[string]any{
				"type":   "rpcError",
				"callId": call.CallID,
				"error":  map[string]any{"title": "Unknown endpoint " + call.Endpoint},
			})
			continue
		}

		data, err := base64.StdEncoding.DecodeString(call.Parameter.ContentBase64)
		if err != nil {
			_ = wsjson.Write(ctx, c, map[string]any{
				"type":   "rpcError",
				"callId": call.CallID,
				"error":  map[string]any{"title": "Invalid base64 content"},
			})
			continue
		}

		s.mu.Lock()
		s.uploads = append(s.uploads, Upload{Name: call.Parameter.Name, Data: data})
		id := len(s.uploads)
		s.mu.Unlock()

		if err := wsjson.Write(ctx, c, map[string]any{
			"type":   "rpcResult",
			"callId": call.CallID,
			"result": map[string]any{
				"identifier": fmt.Sprintf("file-%d", id),
				"fileType":   "image",
				"sizeBytes":  len(data),
			},
		}); err != nil {
			return
		}
	}
}

func queriedModel(param map[string]any) string {
	specifier, _ := param["modelSpecifier"].(map[string]any)
	query, _ := specifier["query"].(map[string]any)
	id, _ := query["identifier"].(string)
	return id
}
