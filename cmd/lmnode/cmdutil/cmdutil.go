// Package cmdutil holds the state shared by the lmnode subcommands.
package cmdutil

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/papercomputeco/lmnode/pkg/config"
	"github.com/papercomputeco/lmnode/pkg/logger"
)

// Version is set at build time with -ldflags.
var Version = "dev"

// Globals are the persistent flags of the root command.
type Globals struct {
	ConfigPath string
	EnvFile    string
	Debug      bool
}

// AddFlags registers the persistent flags on cmd.
func (g *Globals) AddFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&g.ConfigPath, "config", "c", "", "Path to the config file (default $"+config.EnvFile+" or ./"+config.DefaultFile+")")
	cmd.PersistentFlags().StringVar(&g.EnvFile, "env-file", ".env", "Path to a .env file loaded before reading the config")
	cmd.PersistentFlags().BoolVar(&g.Debug, "debug", false, "Enable debug logging")
}

// Load reads the .env file and the configuration. The returned path is empty
// when only built-in defaults are in use.
func (g *Globals) Load() (*config.Config, string, error) {
	if err := config.LoadDotEnv(g.EnvFile); err != nil {
		return nil, "", fmt.Errorf("could not load env file %s: %w", g.EnvFile, err)
	}

	path := config.ResolvePath(g.ConfigPath)
	c, err := config.Load(path)
	if err != nil {
		return nil, "", fmt.Errorf("could not load config: %w", err)
	}
	return c, path, nil
}

// Logger returns the process logger writing to stdout.
func (g *Globals) Logger() *zap.Logger {
	return logger.NewLogger(g.Debug)
}

// StderrLogger returns a logger that leaves stdout to command output.
func (g *Globals) StderrLogger() *zap.Logger {
	return logger.New(zapcore.Lock(os.Stderr), g.Debug)
}
