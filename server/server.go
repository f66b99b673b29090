// Package server exposes the LM Studio node to hosts over HTTP: node
// definitions, a run endpoint, Prometheus metrics and an MCP endpoint.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/papercomputeco/lmnode/node"
	"github.com/papercomputeco/lmnode/pkg/llm"
	"github.com/papercomputeco/lmnode/pkg/logger"
)

// Server serves one Node. Socket defaults can be swapped while running.
type Server struct {
	config   Config
	node     *node.Node
	defaults atomic.Pointer[node.Defaults]
	logger   *zap.Logger
	metrics  *metrics
	server   *fiber.App
}

// New creates a Server with all routes registered.
func New(config Config, n *node.Node, defaults node.Defaults, logger *zap.Logger) (*Server, error) {
	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
		// Base64 images make for large bodies
		BodyLimit: 64 << 20,
	})

	s := &Server{
		config:  config,
		node:    n,
		logger:  logger,
		metrics: newMetrics(),
		server:  app,
	}
	s.SetDefaults(defaults)

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(map[string]string{"status": "ok"})
	})

	// Node registry
	app.Get("/nodes", s.handleListNodes)
	app.Get("/nodes/:name", s.handleGetNode)
	app.Post("/nodes/:name/run", s.handleRun)

	app.Get("/metrics", adaptor.HTTPHandler(s.metrics.handler()))

	mcpServer, err := NewMCPServer(n, s.Defaults, config.Version)
	if err != nil {
		return nil, err
	}
	app.All("/mcp", adaptor.HTTPHandler(mcp.NewStreamableHTTPHandler(
		func(*http.Request) *mcp.Server { return mcpServer },
		&mcp.StreamableHTTPOptions{Stateless: true, JSONResponse: true},
	)))

	return s, nil
}

// SetDefaults replaces the socket defaults used for unset inputs.
func (s *Server) SetDefaults(d node.Defaults) {
	s.defaults.Store(&d)
}

// Defaults returns the current socket defaults.
func (s *Server) Defaults() node.Defaults {
	return *s.defaults.Load()
}

// Run starts the server on the configured listening address.
func (s *Server) Run() error {
	s.logger.Info("starting node server",
		zap.String("listen", s.config.ListenAddr),
		zap.Bool("sdk_available", s.node.SDKAvailable()),
	)

	return s.server.Listen(s.config.ListenAddr)
}

// RunWithListener starts the server on an existing listener.
func (s *Server) RunWithListener(ln net.Listener) error {
	s.logger.Info("starting node server", zap.String("listen", ln.Addr().String()))

	return s.server.Listener(ln)
}

// Shutdown stops the server, waiting for running requests until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.ShutdownWithContext(ctx)
}

func (s *Server) handleListNodes(c *fiber.Ctx) error {
	def := node.Describe(s.Defaults())
	return c.JSON(map[string]node.Definition{def.ClassName: def})
}

func (s *Server) handleGetNode(c *fiber.Ctx) error {
	def, err := node.Lookup(c.Params("name"), s.Defaults())
	if err != nil {
		return s.lookupError(c, err)
	}
	return c.JSON(def)
}

// handleRun runs the node with the socket values in the request body. Node
// failures are part of the response text, so a parsed request always gets 200.
func (s *Server) handleRun(c *fiber.Ctx) error {
	if _, err := node.Lookup(c.Params("name"), s.Defaults()); err != nil {
		return s.lookupError(c, err)
	}

	var in node.Inputs
	if len(c.Body()) > 0 {
		if err := json.Unmarshal(c.Body(), &in); err != nil {
			s.logger.Warn("failed to parse run request", zap.Error(err))
			return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
		}
	}

	req := in.Request(s.Defaults())
	s.logger.Debug("running node",
		zap.String("model", req.ModelID),
		zap.String("server", req.ServerAddress),
		zap.Bool("use_sdk", req.UseSDK),
		zap.Bool("image", req.HasImage()),
	)

	start := time.Now()
	// fasthttp does not report client disconnects; the node timeout bounds the call.
	resp := s.metrics.track(func() llm.Response {
		return s.node.Generate(c.UserContext(), req)
	})

	s.logger.Info("node finished",
		zap.String("transport", resp.Transport),
		zap.String("outcome", string(resp.Outcome)),
		zap.Duration("duration", time.Since(start)),
		zap.String("response_preview", logger.Preview(resp.Text, 100)),
	)

	return c.JSON(resp)
}

func (s *Server) lookupError(c *fiber.Ctx, err error) error {
	var unknown *node.UnknownNodeError
	if errors.As(err, &unknown) {
		return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: err.Error()})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "internal error"})
}
