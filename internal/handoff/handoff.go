// Package handoff builds and persists role-transition records.
package handoff

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jorge-barreto/dc/internal/errs"
	"github.com/jorge-barreto/dc/internal/session"
	"github.com/jorge-barreto/dc/internal/store"
)

// Defaults are ambient values used when a request leaves a field empty.
type Defaults struct {
	Role     string
	Session  string
	TaskSlug string
}

// DefaultsProvider supplies Defaults. preferredSession is the session the
// caller already knows about, if any.
type DefaultsProvider interface {
	Defaults(preferredSession string) Defaults
}

// NoDefaults provides nothing.
type NoDefaults struct{}

func (NoDefaults) Defaults(string) Defaults { return Defaults{} }

// Request holds operator inputs. Empty strings mean "use the default".
// TaskFile distinguishes unset (nil) from an explicit "null".
type Request struct {
	Session         string
	FromRole        string
	ToRole          string
	Trigger         string
	Objective       string
	BlockingRule    string
	TaskFile        *string
	DirectiveBranch string
	RequiredReading string
	WorktreeMode    string
	AllowlistPaths  []string

	taskFromDefault bool
}

// Plan is a fully built handoff ready to persist.
type Plan struct {
	SessionDir string
	Path       string
	Doc        *store.HandoffDoc
}

// Engine builds handoffs against a directive root.
type Engine struct {
	Root            *session.Root
	Defaults        DefaultsProvider
	ProjectRoot     string
	RequiredReading string
}

// ApplyDefaults fills empty request fields from the defaults provider and
// the role-specific canned text. Explicit values are never replaced.
func (e *Engine) ApplyDefaults(req *Request) {
	provider := e.Defaults
	if provider == nil {
		provider = NoDefaults{}
	}
	d := provider.Defaults(strings.TrimSpace(req.Session))

	if strings.TrimSpace(req.Session) == "" {
		req.Session = d.Session
	}
	if strings.TrimSpace(req.FromRole) == "" {
		req.FromRole = string(Architect)
		if r, err := ParseRole(d.Role); err == nil {
			req.FromRole = string(r)
		}
	}
	from, fromErr := ParseRole(req.FromRole)
	if strings.TrimSpace(req.ToRole) == "" && fromErr == nil {
		req.ToRole = string(from.Counterpart())
	}
	to, toErr := ParseRole(req.ToRole)
	if fromErr != nil || toErr != nil {
		return
	}
	if strings.TrimSpace(req.Trigger) == "" {
		req.Trigger = fmt.Sprintf("%s_to_%s_handoff", from, to)
	}
	if strings.TrimSpace(req.Objective) == "" {
		req.Objective = DefaultObjective(to)
	}
	if strings.TrimSpace(req.BlockingRule) == "" {
		req.BlockingRule = DefaultBlockingRule(from, to)
	}
	if req.TaskFile == nil && d.TaskSlug != "" {
		tf := store.TaskFileName(d.TaskSlug)
		req.TaskFile = &tf
		req.taskFromDefault = true
	}
	if strings.TrimSpace(req.WorktreeMode) == "" {
		req.WorktreeMode = string(CleanRequired)
	}
}

// Build validates req and resolves the owning session. It fails on the first
// violated rule and touches nothing on disk.
func (e *Engine) Build(req Request) (*Plan, error) {
	if strings.TrimSpace(req.Session) == "" {
		return nil, errs.Validationf("missing --session")
	}
	from, err := ParseRole(req.FromRole)
	if err != nil {
		return nil, fmt.Errorf("--from-role: %w", err)
	}
	to, err := ParseRole(req.ToRole)
	if err != nil {
		return nil, fmt.Errorf("--to-role: %w", err)
	}
	trigger := strings.TrimSpace(req.Trigger)
	if trigger == "" {
		return nil, errs.Validationf("missing --trigger")
	}
	objective := strings.TrimSpace(req.Objective)
	if objective == "" {
		return nil, errs.Validationf("missing --objective")
	}
	blocking := strings.TrimSpace(req.BlockingRule)
	if blocking == "" {
		return nil, errs.Validationf("missing --blocking-rule")
	}
	mode, err := ParseWorktreeMode(req.WorktreeMode)
	if err != nil {
		return nil, err
	}
	allowlist, err := Allowlist(mode, req.AllowlistPaths)
	if err != nil {
		return nil, err
	}

	info, meta, err := e.Root.Load(req.Session)
	if err != nil {
		return nil, err
	}
	branch := strings.TrimSpace(req.DirectiveBranch)
	if branch == "" {
		branch = strings.TrimSpace(meta.Meta.DirectiveBranch)
	}
	if branch == "" {
		return nil, errs.Preconditionf("missing directive branch: provide --directive-branch or set meta.directive_branch in %s", filepath.Base(info.MetaPath))
	}

	reading, err := e.requiredReading(req.RequiredReading)
	if err != nil {
		return nil, err
	}
	taskFile, err := resolveTaskFile(info.Dir, req)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(info.Dir, store.HandoffFileName(meta.Meta.DirectiveSlug))
	if err := session.AssertInside(info.Dir, path); err != nil {
		return nil, err
	}
	return &Plan{
		SessionDir: info.Dir,
		Path:       path,
		Doc: &store.HandoffDoc{Handoff: store.HandoffRecord{
			FromRole:               string(from),
			ToRole:                 string(to),
			Trigger:                trigger,
			SessionID:              meta.Meta.ID,
			TaskFile:               taskFile,
			DirectiveBranch:        branch,
			RequiredReading:        reading,
			Objective:              objective,
			BlockingRule:           blocking,
			WorktreeMode:           string(mode),
			WorktreeAllowlistPaths: allowlist,
		}},
	}, nil
}

// Allowlist returns the allowlist to serialize for mode. clean_required
// always yields an empty list.
func Allowlist(mode WorktreeMode, paths []string) ([]string, error) {
	switch mode {
	case CleanRequired:
		return []string{}, nil
	case KnownDirtyAllowlist:
		var out []string
		for _, p := range paths {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			if !IsSafeRelative(p) {
				return nil, errs.Validationf("allowlist paths must be relative and must not include '..': %s", p)
			}
			out = append(out, p)
		}
		if len(out) == 0 {
			return nil, errs.Validationf("known_dirty_allowlist requires at least one --allowlist-path")
		}
		return out, nil
	}
	return nil, errs.Validationf("invalid worktree mode %q", mode)
}

// IsSafeRelative reports whether p is relative and has no parent segment.
func IsSafeRelative(p string) bool {
	if filepath.IsAbs(p) || strings.HasPrefix(p, "/") || strings.HasPrefix(p, `\`) || (len(p) > 1 && p[1] == ':') {
		return false
	}
	for _, seg := range strings.FieldsFunc(p, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			return false
		}
	}
	return true
}

func (e *Engine) requiredReading(explicit string) (string, error) {
	reading := strings.TrimSpace(explicit)
	if reading == "" {
		reading = e.RequiredReading
	}
	if reading == "" {
		return "", nil
	}
	if !IsSafeRelative(reading) {
		return "", errs.Validationf("required reading must be a relative path without '..': %s", reading)
	}
	if e.ProjectRoot != "" {
		if _, err := os.Stat(filepath.Join(e.ProjectRoot, filepath.FromSlash(reading))); err != nil {
			return "", errs.Preconditionf("required reading not found: %s", reading)
		}
	}
	return reading, nil
}

func resolveTaskFile(sessionDir string, req Request) (*string, error) {
	if req.TaskFile == nil {
		return nil, nil
	}
	ref := strings.TrimSpace(*req.TaskFile)
	if ref == "" || strings.EqualFold(ref, "null") {
		return nil, nil
	}
	path, err := session.ResolveTaskFile(sessionDir, ref)
	if err != nil {
		if req.taskFromDefault {
			return nil, nil
		}
		return nil, err
	}
	name := filepath.Base(path)
	return &name, nil
}

// Persist writes the plan, or with dryRun prints exactly what would be
// written to w.
func (p *Plan) Persist(w io.Writer, dryRun bool) error {
	if dryRun {
		data, err := p.Doc.Encode()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "[dry-run] target: %s\n\n%s", p.Path, data)
		return nil
	}
	return store.WriteHandoff(p.Path, p.Doc)
}
