package main

import (
	"github.com/spf13/cobra"

	"github.com/papercomputeco/lmnode/cmd/lmnode/cmdutil"
	definitioncmder "github.com/papercomputeco/lmnode/cmd/lmnode/definition"
	generatecmder "github.com/papercomputeco/lmnode/cmd/lmnode/generate"
	mcpcmder "github.com/papercomputeco/lmnode/cmd/lmnode/mcp"
	servecmder "github.com/papercomputeco/lmnode/cmd/lmnode/serve"
)

const rootLongDesc string = `lmnode runs the LM Studio chat node outside of a workflow editor.

It forwards chat requests, optionally with an image, to a local LM
Studio server over the SDK websocket API or the HTTP chat completions
API, and reports the response with token statistics.`

const rootShortDesc string = "LM Studio chat node"

func newRootCmd() *cobra.Command {
	globals := &cmdutil.Globals{}

	cmd := &cobra.Command{
		Use:          "lmnode",
		Short:        rootShortDesc,
		Long:         rootLongDesc,
		Version:      cmdutil.Version,
		SilenceUsage: true,
	}
	globals.AddFlags(cmd)

	cmd.AddCommand(
		servecmder.NewServeCmd(globals),
		generatecmder.NewGenerateCmd(globals),
		mcpcmder.NewMCPCmd(globals),
		definitioncmder.NewDefinitionCmd(globals),
	)

	return cmd
}
