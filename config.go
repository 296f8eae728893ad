package llmreplay

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/manishiitg/llm-replay-go/internal/recorder"
)

// EnvPrefix is prepended to every configuration key read from the environment
const EnvPrefix = "LLM_REPLAY"

// Configuration keys understood by LoadConfig
const (
	KeyMode              = "mode"
	KeyRecordingsDir     = "recordings-dir"
	KeyRecordAllowList   = "record-allowlist"
	KeyVerifyTemperature = "verify-temperature"
	KeySettleWindow      = "settle-window"
)

// Config holds the interceptor configuration
type Config = recorder.RecordingConfig

// LoadConfig builds a Config from v. Keys may also come from the environment
// as LLM_REPLAY_MODE, LLM_REPLAY_RECORDINGS_DIR and so on. Logger and
// EventEmitter are left for the caller to set.
func LoadConfig(v *viper.Viper) (Config, error) {
	if v == nil {
		v = viper.New()
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyMode, string(ModePlayback))
	v.SetDefault(KeyRecordingsDir, recorder.DefaultBaseDir)
	v.SetDefault(KeyVerifyTemperature, 0.0)
	v.SetDefault(KeySettleWindow, recorder.DefaultSettleWindow)

	mode, err := recorder.ParseMode(v.GetString(KeyMode))
	if err != nil {
		return Config{}, err
	}

	settle := v.GetDuration(KeySettleWindow)
	if settle < 0 {
		return Config{}, fmt.Errorf("%s must not be negative, got %s", KeySettleWindow, settle)
	}

	return Config{
		Mode:              mode,
		BaseDir:           v.GetString(KeyRecordingsDir),
		RecordAllowList:   splitList(v.Get(KeyRecordAllowList)),
		VerifyTemperature: v.GetFloat64(KeyVerifyTemperature),
		SettleWindow:      settle,
	}, nil
}

// splitList accepts both real slices and a single comma-separated env value.
// Test names may contain spaces so only commas separate entries.
func splitList(raw any) []string {
	var values []string
	switch v := raw.(type) {
	case string:
		values = []string{v}
	case []string:
		values = v
	case []any:
		for _, item := range v {
			values = append(values, fmt.Sprint(item))
		}
	}

	var result []string
	for _, value := range values {
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				result = append(result, item)
			}
		}
	}
	return result
}
