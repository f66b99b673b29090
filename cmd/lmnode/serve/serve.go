package servecmder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/lmnode/cmd/lmnode/cmdutil"
	"github.com/papercomputeco/lmnode/node"
	"github.com/papercomputeco/lmnode/pkg/config"
	"github.com/papercomputeco/lmnode/server"
)

const serveLongDesc string = `Serve the LM Studio node to a workflow editor over HTTP.

The server exposes the node definition, a run endpoint, Prometheus
metrics and an MCP endpoint. When a config file is in use, changes to
its [defaults] section are applied without a restart.

Examples:
  lmnode serve
  lmnode serve --listen 127.0.0.1:8188 --config ./lmnode.toml`

const serveShortDesc string = "Serve the node over HTTP"

const shutdownTimeout = 10 * time.Second

type serveCommander struct {
	globals *cmdutil.Globals
	listen  string
}

func NewServeCmd(globals *cmdutil.Globals) *cobra.Command {
	cmder := &serveCommander{globals: globals}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.listen, "listen", "l", "", "Address to listen on (overrides server.listen)")

	return cmd
}

func (c *serveCommander) run(ctx context.Context, cmd *cobra.Command) error {
	cfg, path, err := c.globals.Load()
	if err != nil {
		return err
	}
	if c.listen != "" {
		cfg.Server.Listen = c.listen
	}

	logger := c.globals.Logger()
	defer logger.Sync()

	logger.Info("lmnode starting",
		zap.String("version", cmdutil.Version),
		zap.String("config", path),
		zap.String("listen", cfg.Server.Listen),
		zap.Bool("debug", c.globals.Debug),
	)

	n := node.New(cfg.NodeConfig(), logger)
	srv, err := server.New(server.Config{
		ListenAddr: cfg.Server.Listen,
		Version:    cmdutil.Version,
	}, n, cfg.NodeDefaults(), logger)
	if err != nil {
		return err
	}

	if path != "" {
		go func() {
			err := config.Watch(ctx, path, logger, func(updated *config.Config) {
				srv.SetDefaults(updated.NodeDefaults())
			})
			if err != nil {
				logger.Warn("config hot reload disabled", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("could not shut down server: %w", err)
	}
	return nil
}
