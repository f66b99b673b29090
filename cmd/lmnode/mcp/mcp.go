package mcpcmder

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/lmnode/cmd/lmnode/cmdutil"
	"github.com/papercomputeco/lmnode/node"
	"github.com/papercomputeco/lmnode/server"
)

const mcpLongDesc string = `Run the node as an MCP server on stdin/stdout.

The server offers a single tool, lmstudio_generate, taking the node's
input sockets as arguments. Logs go to stderr.

Examples:
  lmnode mcp
  lmnode mcp --config ./lmnode.toml`

const mcpShortDesc string = "Run an MCP server on stdio"

type mcpCommander struct {
	globals *cmdutil.Globals
}

func NewMCPCmd(globals *cmdutil.Globals) *cobra.Command {
	cmder := &mcpCommander{globals: globals}

	return &cobra.Command{
		Use:   "mcp",
		Short: mcpShortDesc,
		Long:  mcpLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context())
		},
	}
}

func (c *mcpCommander) run(ctx context.Context) error {
	cfg, _, err := c.globals.Load()
	if err != nil {
		return err
	}

	logger := c.globals.StderrLogger()
	defer logger.Sync()

	n := node.New(cfg.NodeConfig(), logger)
	defaults := cfg.NodeDefaults()
	srv, err := server.NewMCPServer(n, func() node.Defaults { return defaults }, cmdutil.Version)
	if err != nil {
		return err
	}

	if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp server failed: %w", err)
	}
	return nil
}
