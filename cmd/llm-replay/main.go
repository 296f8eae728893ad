package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	llmreplay "github.com/manishiitg/llm-replay-go"
	"github.com/manishiitg/llm-replay-go/interfaces"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "llm-replay",
		Short: "Record and replay LLM calls for deterministic tests",
		Long:  "Inspect, migrate and exercise the recording files used to replay LLM calls in tests",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load(".env")
			_ = godotenv.Load("../.env")
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("log-file", "", "Write logs to this file instead of stdout")
	flags.String("log-level", "info", "Log level (info or debug)")
	flags.String(llmreplay.KeyRecordingsDir, llmreplay.DefaultRecordingsDir, "Directory holding recording files")
	flags.String(llmreplay.KeyMode, "playback", "Replay mode (record, playback or verify)")
	for _, name := range []string{"log-file", "log-level", llmreplay.KeyRecordingsDir, llmreplay.KeyMode} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
	_ = viper.BindEnv("log-file", "LOG_FILE")
	_ = viper.BindEnv("log-level", "LOG_LEVEL")

	rootCmd.AddCommand(InspectCmd)
	rootCmd.AddCommand(MigrateCmd)
	rootCmd.AddCommand(CallCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() interfaces.Logger {
	logger, err := llmreplay.NewDefaultLogger(viper.GetString("log-file"), viper.GetString("log-level"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return logger
}

func newStore(logger interfaces.Logger) (*llmreplay.Store, error) {
	return llmreplay.NewStore(viper.GetString(llmreplay.KeyRecordingsDir), logger)
}

// splitTestID accepts "suite/test" as a single argument or two arguments
func splitTestID(args []string) (string, string, error) {
	switch len(args) {
	case 1:
		suite, test, ok := strings.Cut(args[0], "/")
		if !ok {
			return "", "", fmt.Errorf("expected <suite>/<test>, got %q", args[0])
		}
		return suite, test, nil
	case 2:
		return args[0], args[1], nil
	default:
		return "", "", fmt.Errorf("expected <suite> <test> or <suite>/<test>")
	}
}
