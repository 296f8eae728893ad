package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	llmreplay "github.com/manishiitg/llm-replay-go"
	"github.com/manishiitg/llm-replay-go/interfaces"
)

var CallCmd = &cobra.Command{
	Use:   "call <suite> <test>",
	Short: "Run one intercepted call in the configured mode",
	Long: `Run a single call through the interceptor. In record mode the provider is
called and the result saved; in playback mode the answer comes from the
recording; in verify mode both are compared.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runCall,
}

type callFlags struct {
	provider    string
	model       string
	caller      string
	kind        string
	prompt      string
	system      string
	temperature float64
	jsonOutput  bool
	timeout     time.Duration
}

var callOpts callFlags

func init() {
	f := CallCmd.Flags()
	f.StringVar(&callOpts.provider, "provider", "openai", "LLM provider (openai, anthropic, bedrock, vertex, openrouter)")
	f.StringVar(&callOpts.model, "model", "", "Model ID (defaults to the provider's primary model)")
	f.StringVar(&callOpts.caller, "caller", "cli", "Caller identity")
	f.StringVar(&callOpts.kind, "kind", "generate", "Call kind")
	f.StringVar(&callOpts.prompt, "prompt", "", "Prompt text")
	f.StringVar(&callOpts.system, "system", "", "System prompt / context")
	f.Float64Var(&callOpts.temperature, "temperature", 0, "Sampling temperature")
	f.BoolVar(&callOpts.jsonOutput, "json", false, "Ask for a structured JSON answer")
	f.DurationVar(&callOpts.timeout, "timeout", 2*time.Minute, "Timeout for the call")
	_ = CallCmd.MarkFlagRequired("prompt")
}

func runCall(cmd *cobra.Command, args []string) error {
	suite, test, err := splitTestID(args)
	if err != nil {
		return err
	}
	logger := newLogger()

	config, err := llmreplay.LoadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	config.Logger = logger

	interceptor, err := llmreplay.NewInterceptor(config)
	if err != nil {
		return err
	}
	interceptor.SetTestContext(suite, test)

	ctx, cancel := context.WithTimeout(context.Background(), callOpts.timeout)
	defer cancel()

	live, err := liveCall(ctx, config.Mode, logger)
	if err != nil {
		return err
	}
	call, uninstall := interceptor.Wrap(callOpts.caller, live)
	defer uninstall()

	options := map[string]any{"temperature": callOpts.temperature}
	if callOpts.jsonOutput {
		options["response_format"] = "json"
	}
	response, err := call(ctx, callOpts.kind, llmreplay.Payload{
		Prompt:  callOpts.prompt,
		Context: callOpts.system,
		Options: options,
	})
	if err != nil {
		return err
	}

	if err := printResponse(response); err != nil {
		return err
	}
	stats := interceptor.GetResponseStats()
	logger.Infof("calls=%d responses=%d", stats.TotalCalls, stats.TotalResponses)
	return interceptor.SaveRecordings()
}

// liveCall builds the provider call. Playback never reaches the provider, so
// no credentials are required in that mode.
func liveCall(ctx context.Context, mode llmreplay.Mode, logger interfaces.Logger) (llmreplay.LiveCallFunc, error) {
	if mode == llmreplay.ModePlayback {
		return func(context.Context, string, llmreplay.Payload) (any, error) {
			return nil, errors.New("live calls are disabled in playback mode")
		}, nil
	}
	provider, err := llmreplay.ValidateProvider(callOpts.provider)
	if err != nil {
		return nil, err
	}
	return llmreplay.InitializeLiveCall(llmreplay.ProviderConfig{
		Provider: provider,
		ModelID:  callOpts.model,
		Logger:   logger,
		Context:  ctx,
	})
}

func printResponse(response any) error {
	if text, ok := response.(string); ok {
		fmt.Println(text)
		return nil
	}
	data, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format response: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
