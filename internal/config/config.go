package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Dir is the per-project tool directory, relative to the project root.
const Dir = ".directive-cli"

// FileName is the config file inside Dir.
const FileName = "config.yaml"

type ContextBundle struct {
	Out      string   `yaml:"out"`
	Meta     string   `yaml:"meta"`
	Sources  []string `yaml:"sources"`
	RuleDirs []string `yaml:"rule-dirs"`
}

type Config struct {
	DirectivesRoot       string        `yaml:"directives-root"`
	BaseBranch           string        `yaml:"base-branch"`
	RequiredReading      string        `yaml:"required-reading"`
	StartupContextDir    string        `yaml:"startup-context-dir"`
	AllowedDirtyPrefixes []string      `yaml:"allowed-dirty-prefixes"`
	ContextBundle        ContextBundle `yaml:"context-bundle"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{
		DirectivesRoot:    "apps/web/.local/directives",
		BaseBranch:        "dev",
		RequiredReading:   "apps/web/docs/guides/component-paradigm.md",
		StartupContextDir: ".codex/context",
		AllowedDirtyPrefixes: []string{
			".codex/context/",
			".directive-cli/state/",
		},
		ContextBundle: ContextBundle{
			Out:  ".codex/context/compiled.md",
			Meta: ".codex/context/compiled.meta.json",
			Sources: []string{
				"AGENTS.md",
				"apps/web/docs/guides/component-paradigm.md",
			},
			RuleDirs: []string{
				"docs/agent-rules/shared",
				"docs/agent-rules/architect",
				"docs/agent-rules/executor",
				"docs/agent-rules/pair",
				"docs/agent-rules/auditor",
			},
		},
	}
}

// Path returns the config file location for a project root.
func Path(projectRoot string) string {
	return filepath.Join(projectRoot, Dir, FileName)
}

// Load reads the project's config file and returns a validated Config.
// A missing file yields the defaults. Keys absent from the file keep their
// default values.
func Load(projectRoot string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(Path(projectRoot))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DirectivesRootAbs returns the absolute directive root under projectRoot.
func (c *Config) DirectivesRootAbs(projectRoot string) string {
	return filepath.Join(projectRoot, filepath.FromSlash(c.DirectivesRoot))
}

// StartupContextDirAbs returns the absolute startup-context directory.
func (c *Config) StartupContextDirAbs(projectRoot string) string {
	return filepath.Join(projectRoot, filepath.FromSlash(c.StartupContextDir))
}

// FindProjectRoot walks up from dir to the first directory holding either
// the tool directory or a .git entry.
func FindProjectRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		if info, err := os.Stat(filepath.Join(dir, Dir)); err == nil && info.IsDir() {
			return dir, nil
		}
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s/ or .git found (searched from cwd to root)", Dir)
		}
		dir = parent
	}
}
