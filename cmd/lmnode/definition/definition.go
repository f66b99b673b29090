package definitioncmder

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/lmnode/cmd/lmnode/cmdutil"
	"github.com/papercomputeco/lmnode/node"
)

const definitionLongDesc string = `Print the node definition as JSON.

The definition lists the node's input and output sockets with the
defaults from the current configuration.`

const definitionShortDesc string = "Print the node definition"

type definitionCommander struct {
	globals *cmdutil.Globals
}

func NewDefinitionCmd(globals *cmdutil.Globals) *cobra.Command {
	cmder := &definitionCommander{globals: globals}

	return &cobra.Command{
		Use:   "definition",
		Short: definitionShortDesc,
		Long:  definitionLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}
}

func (c *definitionCommander) run(cmd *cobra.Command) error {
	cfg, _, err := c.globals.Load()
	if err != nil {
		return err
	}

	b, err := json.MarshalIndent(node.Describe(cfg.NodeDefaults()), "", "  ")
	if err != nil {
		return fmt.Errorf("could not marshal definition: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return nil
}
