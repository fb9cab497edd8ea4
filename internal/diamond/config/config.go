// Package config loads repository-local configuration for the stack
// engine: the remote to push to, how generated branch names are
// formed, and a prefix applied to them.
//
// Configuration lives in a YAML file inside the repository's Git
// directory rather than in Git config, so it can be edited directly
// and diffed without relying on `git config`'s line-oriented format.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

const _fileName = "diamond" + string(filepath.Separator) + "config.yml"

// Config holds the settings a CLI invocation layers on top of its
// flags: anything a flag doesn't override falls back to this value.
type Config struct {
	// Remote is the name of a remote. No command reads this field:
	// `sync` fetches from the remote recorded in the stack's ref store
	// at init time.
	Remote string `yaml:"remote,omitempty"`

	// BranchTemplate is a text/template string used to derive a
	// branch name from a commit subject when none is given
	// explicitly. It is executed with a struct exposing the
	// subject as {{.Subject}}.
	BranchTemplate string `yaml:"branchTemplate,omitempty"`

	// BranchPrefix is prepended to every generated branch name,
	// after the template has run.
	BranchPrefix string `yaml:"branchPrefix,omitempty"`
}

// DefaultBranchTemplate is used when no template is configured.
const DefaultBranchTemplate = "{{.Subject}}"

// Load reads the configuration file from the repository's Git
// directory. A missing file is not an error: it returns a zero-value
// Config, so every field falls back to its built-in default.
func Load(gitDir string) (*Config, error) {
	data, err := os.ReadFile(filepath.Join(gitDir, _fileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// Save writes cfg to the repository's Git directory, creating the
// containing directory if necessary.
func Save(gitDir string, cfg *Config) error {
	dir := filepath.Join(gitDir, "diamond")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(filepath.Join(gitDir, _fileName), data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// branchNameData is the value exposed to a branch-name template.
type branchNameData struct {
	Subject string
}

// FormatBranchName renders the configured branch-name template
// against an already-slugified subject (see diamond.GenerateBranchName)
// and applies the configured prefix.
func (c *Config) FormatBranchName(slug string) (string, error) {
	tmplText := c.BranchTemplate
	if tmplText == "" {
		tmplText = DefaultBranchTemplate
	}

	tmpl, err := template.New("branch").Parse(tmplText)
	if err != nil {
		return "", fmt.Errorf("parse branch template: %w", err)
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, branchNameData{Subject: slug}); err != nil {
		return "", fmt.Errorf("render branch template: %w", err)
	}

	return c.BranchPrefix + buf.String(), nil
}
