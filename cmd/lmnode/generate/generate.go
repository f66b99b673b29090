package generatecmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/lmnode/cmd/lmnode/cmdutil"
	"github.com/papercomputeco/lmnode/node"
	"github.com/papercomputeco/lmnode/pkg/llm"
)

const generateLongDesc string = `Run the node once and print its response and stats.

Unset flags take the node defaults from the configuration. The message
may also be given as arguments, or piped on stdin with "-".

On a terminal the response is rendered as markdown while a spinner shows
progress; use --plain for raw text, or --json for the node outputs as JSON.

Examples:
  lmnode generate "Explain quantum computing in simple terms"
  lmnode generate --model qwen/qwen2.5-vl-7b --image cat.png "What is this?"
  echo "Summarize this" | lmnode generate --no-sdk -`

const generateShortDesc string = "Run the node once"

type generateCommander struct {
	globals *cmdutil.Globals

	systemPrompt  string
	model         string
	serverAddress string
	temperature   float64
	maxTokens     int
	imagePath     string
	thinking      bool
	noThinking    bool
	noSDK         bool
	plain         bool
	jsonOutput    bool
}

func NewGenerateCmd(globals *cmdutil.Globals) *cobra.Command {
	cmder := &generateCommander{globals: globals}

	cmd := &cobra.Command{
		Use:   "generate [message...]",
		Short: generateShortDesc,
		Long:  generateLongDesc,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd, args)
		},
	}

	cmd.Flags().StringVarP(&cmder.systemPrompt, "system", "s", "", "System prompt")
	cmd.Flags().StringVarP(&cmder.model, "model", "m", "", "Model identifier as known to LM Studio")
	cmd.Flags().StringVar(&cmder.serverAddress, "server", "", "LM Studio server address")
	cmd.Flags().Float64VarP(&cmder.temperature, "temperature", "t", 0, "Sampling temperature (0-1)")
	cmd.Flags().IntVar(&cmder.maxTokens, "max-tokens", 0, "Maximum tokens to generate")
	cmd.Flags().StringVarP(&cmder.imagePath, "image", "i", "", "Path to an image to attach (SDK transport only)")
	cmd.Flags().BoolVar(&cmder.thinking, "thinking", false, "Keep <think> segments in the response")
	cmd.Flags().BoolVar(&cmder.noThinking, "no-thinking", false, "Strip <think> segments from the response")
	cmd.Flags().BoolVar(&cmder.noSDK, "no-sdk", false, "Use the HTTP transport even when the SDK is available")
	cmd.Flags().BoolVar(&cmder.plain, "plain", false, "Print raw text without spinner or markdown rendering")
	cmd.Flags().BoolVar(&cmder.jsonOutput, "json", false, "Print the node outputs as JSON")
	cmd.MarkFlagsMutuallyExclusive("thinking", "no-thinking")
	cmd.MarkFlagsMutuallyExclusive("plain", "json")

	return cmd
}

func (c *generateCommander) run(ctx context.Context, cmd *cobra.Command, args []string) error {
	cfg, _, err := c.globals.Load()
	if err != nil {
		return err
	}

	logger := c.globals.StderrLogger()
	defer logger.Sync()

	req, err := c.request(cmd, cfg.NodeDefaults(), args)
	if err != nil {
		return err
	}

	n := node.New(cfg.NodeConfig(), logger)
	generate := func() llm.Response {
		return n.Generate(ctx, req)
	}

	out := cmd.OutOrStdout()
	switch {
	case c.jsonOutput:
		b, err := json.MarshalIndent(generate(), "", "  ")
		if err != nil {
			return fmt.Errorf("could not marshal response: %w", err)
		}
		fmt.Fprintln(out, string(b))
		return nil

	case c.plain || !isTerminal(out):
		printPlain(out, generate())
		return nil
	}

	resp, err := withSpinner(ctx, spinnerLabel(req), generate)
	if err != nil {
		return err
	}
	printStyled(out, resp, terminalWidth(out))
	return nil
}

// request builds the node request from the defaults and the changed flags.
func (c *generateCommander) request(cmd *cobra.Command, defaults node.Defaults, args []string) (llm.Request, error) {
	var in node.Inputs
	flags := cmd.Flags()

	if flags.Changed("system") {
		in.SystemPrompt = &c.systemPrompt
	}
	if flags.Changed("model") {
		in.ModelID = &c.model
	}
	if flags.Changed("server") {
		in.ServerAddress = &c.serverAddress
	}
	if flags.Changed("temperature") {
		in.Temperature = &c.temperature
	}
	if flags.Changed("max-tokens") {
		in.MaxTokens = &c.maxTokens
	}
	if flags.Changed("thinking") || flags.Changed("no-thinking") {
		keep := c.thinking && !c.noThinking
		in.ThinkingTokens = &keep
	}
	if c.noSDK {
		useSDK := false
		in.UseSDK = &useSDK
	}
	if c.globals.Debug {
		in.Debug = &c.globals.Debug
	}

	msg, err := message(cmd.InOrStdin(), args)
	if err != nil {
		return llm.Request{}, err
	}
	if msg != "" {
		in.UserMessage = &msg
	}

	if c.imagePath != "" {
		img, err := os.ReadFile(c.imagePath)
		if err != nil {
			return llm.Request{}, fmt.Errorf("could not read image: %w", err)
		}
		in.Image = img
	}

	return in.Request(defaults), nil
}

// message joins the positional arguments. A single "-" reads stdin.
func message(stdin io.Reader, args []string) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("could not read stdin: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	return strings.Join(args, " "), nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func terminalWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			return width
		}
	}
	return 80
}

func spinnerLabel(req llm.Request) string {
	return fmt.Sprintf("Asking %s...", req.ModelID)
}
