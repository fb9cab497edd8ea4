package gittest

import (
	"fmt"
	"os/exec"
	"strconv"
)

// DefaultConfig is the default Git configuration
// for all test repositories.
func DefaultConfig() Config {
	return Config{
		"init.defaultBranch": "main",
		"alias.graph":        "log --graph --decorate --oneline",
		"core.autocrlf":      "false",
	}
}

// Config is a set of Git configuration values.
type Config map[string]string

// EnvMap returns the configuration as environment variables
// understood by Git directly, using the GIT_CONFIG_COUNT/KEY_n/VALUE_n
// convention. This avoids needing a config file on disk.
func (cfg Config) EnvMap() map[string]string {
	env := make(map[string]string, 2*len(cfg)+1)
	env["GIT_CONFIG_COUNT"] = strconv.Itoa(len(cfg))

	i := 0
	for k, v := range cfg {
		env[fmt.Sprintf("GIT_CONFIG_KEY_%d", i)] = k
		env[fmt.Sprintf("GIT_CONFIG_VALUE_%d", i)] = v
		i++
	}
	return env
}

// WriteTo writes the Git configuration to the given file,
// creating it if it does not exist.
func (cfg Config) WriteTo(path string) error {
	args := []string{"config", "--file", path}
	for k, v := range cfg {
		cmd := exec.Command("git", append(args, k, v)...)
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("set %s: %w", k, err)
		}
	}
	return nil
}
