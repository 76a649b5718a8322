package config

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

var branchRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._/-]*$`)

// Validate checks the config for errors and fills blank values with defaults.
func Validate(cfg *Config) error {
	def := Default()
	if cfg.DirectivesRoot == "" {
		cfg.DirectivesRoot = def.DirectivesRoot
	}
	if cfg.StartupContextDir == "" {
		cfg.StartupContextDir = def.StartupContextDir
	}
	if cfg.ContextBundle.Out == "" {
		cfg.ContextBundle.Out = def.ContextBundle.Out
	}
	if cfg.ContextBundle.Meta == "" {
		cfg.ContextBundle.Meta = def.ContextBundle.Meta
	}

	if strings.TrimSpace(cfg.BaseBranch) == "" {
		return fmt.Errorf("config: 'base-branch' is required")
	}
	if !branchRe.MatchString(cfg.BaseBranch) || strings.Contains(cfg.BaseBranch, "..") {
		return fmt.Errorf("config: 'base-branch' %q is not a valid branch name", cfg.BaseBranch)
	}

	single := map[string]string{
		"directives-root":     cfg.DirectivesRoot,
		"startup-context-dir": cfg.StartupContextDir,
		"context-bundle.out":  cfg.ContextBundle.Out,
		"context-bundle.meta": cfg.ContextBundle.Meta,
	}
	for _, key := range []string{"directives-root", "startup-context-dir", "context-bundle.out", "context-bundle.meta"} {
		if err := checkRelative(key, single[key]); err != nil {
			return err
		}
	}
	if cfg.RequiredReading != "" {
		if err := checkRelative("required-reading", cfg.RequiredReading); err != nil {
			return err
		}
	}
	if cfg.ContextBundle.Out == cfg.ContextBundle.Meta {
		return fmt.Errorf("config: context-bundle.out and context-bundle.meta must differ")
	}

	for _, p := range cfg.AllowedDirtyPrefixes {
		if err := checkRelative("allowed-dirty-prefixes", p); err != nil {
			return err
		}
	}
	for _, p := range cfg.ContextBundle.Sources {
		if err := checkRelative("context-bundle.sources", p); err != nil {
			return err
		}
	}
	for _, p := range cfg.ContextBundle.RuleDirs {
		if err := checkRelative("context-bundle.rule-dirs", p); err != nil {
			return err
		}
	}
	return nil
}

// checkRelative requires a non-empty, slash-separated relative path with no
// parent segments.
func checkRelative(key, p string) error {
	if strings.TrimSpace(p) == "" {
		return fmt.Errorf("config: %s: entries must be non-empty", key)
	}
	if strings.HasPrefix(p, "/") || strings.Contains(p, "\\") || (len(p) > 1 && p[1] == ':') {
		return fmt.Errorf("config: %s: %q must be a relative slash-separated path", key, p)
	}
	for _, seg := range strings.Split(path.Clean(p), "/") {
		if seg == ".." {
			return fmt.Errorf("config: %s: %q must not contain '..'", key, p)
		}
	}
	return nil
}
