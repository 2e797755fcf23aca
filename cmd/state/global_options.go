package state

import (
	"path/filepath"
	"strconv"
)

const defaultConfigFileName = "config.yaml"

// GlobalFlags contains global config values that apply for all typedmem
// sub-commands.
type GlobalFlags struct {
	ConfigFilePath string
	NoColor        bool
	LogOutput      string
	LogFormat      string
	LogLevel       string
	Verbose        bool
}

// GetDefaultFlags returns the default global flags.
func GetDefaultFlags(homeDir string) GlobalFlags {
	return GlobalFlags{
		ConfigFilePath: filepath.Join(homeDir, "typedmem", defaultConfigFileName),
		LogOutput:      "stderr",
		LogLevel:       "info",
	}
}

func getFlags(defaultFlags GlobalFlags, env map[string]string) GlobalFlags {
	result := defaultFlags

	if val, ok := env["TYPEDMEM_CONFIG"]; ok {
		result.ConfigFilePath = val
	}
	if val, ok := env["TYPEDMEM_LOG_OUTPUT"]; ok {
		result.LogOutput = val
	}
	if val, ok := env["TYPEDMEM_LOG_FORMAT"]; ok {
		result.LogFormat = val
	}
	if val, ok := env["TYPEDMEM_LOG_LEVEL"]; ok {
		result.LogLevel = val
	}
	if val, err := strconv.ParseBool(env["TYPEDMEM_VERBOSE"]); err == nil {
		result.Verbose = val
	}
	if env["TYPEDMEM_NO_COLOR"] != "" {
		result.NoColor = true
	}
	// Support https://no-color.org/, even an empty value should disable the
	// color output.
	if _, ok := env["NO_COLOR"]; ok {
		result.NoColor = true
	}
	return result
}
