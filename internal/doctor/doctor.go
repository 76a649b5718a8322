// Package doctor diagnoses a project: tooling, config, the directive tree,
// the context bundle and the git working tree.
package doctor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jorge-barreto/dc/internal/bundle"
	"github.com/jorge-barreto/dc/internal/config"
	"github.com/jorge-barreto/dc/internal/git"
	"github.com/jorge-barreto/dc/internal/session"
	"github.com/jorge-barreto/dc/internal/validate"
	"github.com/jorge-barreto/dc/internal/ux"
)

// maxListed caps the problems echoed per check.
const maxListed = 5

// Level grades a check.
type Level int

const (
	Pass Level = iota
	Warn
	Fail
)

func (l Level) String() string {
	switch l {
	case Pass:
		return "PASS"
	case Warn:
		return "WARN"
	default:
		return "FAIL"
	}
}

// Check is one diagnosis line with optional detail lines.
type Check struct {
	Name    string
	Level   Level
	Summary string
	Details []string
}

// Report is the outcome of Run.
type Report struct {
	Checks []Check
}

// OK reports whether no check failed. Warnings do not fail the report.
func (r *Report) OK() bool {
	for _, c := range r.Checks {
		if c.Level == Fail {
			return false
		}
	}
	return true
}

// Doctor runs the checks for one project.
type Doctor struct {
	ProjectRoot string
	Config      *config.Config
	Git         *git.Repo
	// Preflight checks for the git binary. Defaults to git.Preflight.
	Preflight func() error
}

// Run performs every check. It never modifies the project.
func (d *Doctor) Run(ctx context.Context) *Report {
	r := &Report{}
	add := func(c Check) { r.Checks = append(r.Checks, c) }

	add(d.configCheck())
	gitOK := d.gitBinaryCheck(add)
	add(d.rootCheck())
	add(d.validateCheck())
	add(d.readingCheck())
	add(d.bundleCheck())
	if gitOK {
		add(d.worktreeCheck(ctx))
	}
	return r
}

func (d *Doctor) configCheck() Check {
	c := Check{Name: "config", Level: Pass}
	if _, err := os.Stat(config.Path(d.ProjectRoot)); err != nil {
		c.Level = Warn
		c.Summary = "no " + config.Dir + "/" + config.FileName + "; using defaults (run 'dc init')"
		return c
	}
	c.Summary = config.Dir + "/" + config.FileName + " loaded"
	return c
}

func (d *Doctor) gitBinaryCheck(add func(Check)) bool {
	preflight := d.Preflight
	if preflight == nil {
		preflight = git.Preflight
	}
	if err := preflight(); err != nil {
		add(Check{Name: "git", Level: Fail, Summary: err.Error()})
		return false
	}
	add(Check{Name: "git", Level: Pass, Summary: "git found on PATH"})
	return true
}

func (d *Doctor) rootCheck() Check {
	root := d.Config.DirectivesRootAbs(d.ProjectRoot)
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return Check{Name: "directive root", Level: Warn, Summary: d.Config.DirectivesRoot + " does not exist yet"}
	}
	sessions, err := session.NewRoot(root).List()
	if err != nil {
		return Check{Name: "directive root", Level: Fail, Summary: err.Error()}
	}
	return Check{Name: "directive root", Level: Pass, Summary: fmt.Sprintf("%s (%d session(s))", d.Config.DirectivesRoot, len(sessions))}
}

func (d *Doctor) validateCheck() Check {
	v := &validate.Validator{Root: session.NewRoot(d.Config.DirectivesRootAbs(d.ProjectRoot)), Base: d.ProjectRoot}
	report, err := v.Run(nil)
	if err != nil {
		return Check{Name: "validate", Level: Fail, Summary: err.Error()}
	}
	if report.OK() {
		return Check{Name: "validate", Level: Pass, Summary: fmt.Sprintf("%d session(s) valid", len(report.Sessions))}
	}
	return Check{
		Name:    "validate",
		Level:   Fail,
		Summary: fmt.Sprintf("%d error(s); run 'dc validate --verbose'", len(report.Errors)),
		Details: truncate(report.Errors),
	}
}

func (d *Doctor) readingCheck() Check {
	rr := d.Config.RequiredReading
	if rr == "" {
		return Check{Name: "required reading", Level: Pass, Summary: "none configured"}
	}
	if _, err := os.Stat(filepath.Join(d.ProjectRoot, filepath.FromSlash(rr))); err != nil {
		return Check{Name: "required reading", Level: Warn, Summary: rr + " not found; handoffs will fail without --required-reading"}
	}
	return Check{Name: "required reading", Level: Pass, Summary: rr}
}

func (d *Doctor) bundleCheck() Check {
	res, err := bundle.New(d.ProjectRoot, d.Config.ContextBundle).Check()
	if err != nil {
		return Check{Name: "context bundle", Level: Fail, Summary: err.Error()}
	}
	switch res.Status {
	case bundle.StatusOK:
		return Check{Name: "context bundle", Level: Pass, Summary: res.Message}
	case bundle.StatusMissing:
		return Check{Name: "context bundle", Level: Warn, Summary: res.Message + "; run 'dc context build'"}
	}
	return Check{Name: "context bundle", Level: Fail, Summary: res.Message + "; run 'dc context build'"}
}

func (d *Doctor) worktreeCheck(ctx context.Context) Check {
	c := Check{Name: "worktree"}
	branch, err := d.Git.CurrentBranch(ctx)
	if err != nil {
		c.Level = Warn
		c.Summary = "not a git work tree: " + err.Error()
		return c
	}
	dirty, err := d.Git.DirtyFiles(ctx)
	if err != nil {
		c.Level = Warn
		c.Summary = err.Error()
		return c
	}
	outside := git.DirtyOutside(dirty, d.Config.AllowedDirtyPrefixes)
	if len(outside) > 0 {
		c.Level = Warn
		c.Summary = fmt.Sprintf("on %s with %d uncommitted change(s); archive and cleanup will refuse", branch, len(outside))
		c.Details = truncate(outside)
		return c
	}
	c.Level = Pass
	c.Summary = "clean, on " + branch
	return c
}

func truncate(items []string) []string {
	if len(items) <= maxListed {
		return items
	}
	out := append([]string{}, items[:maxListed]...)
	return append(out, fmt.Sprintf("... and %d more", len(items)-maxListed))
}

func badge(l Level) string {
	s := "[" + l.String() + "]"
	switch l {
	case Pass:
		return ux.Green(s)
	case Warn:
		return ux.Yellow(s)
	}
	return ux.Red(s)
}

// Print writes one line per check followed by a summary.
func (r *Report) Print(w io.Writer) {
	width := 0
	for _, c := range r.Checks {
		if len(c.Name) > width {
			width = len(c.Name)
		}
	}
	for _, c := range r.Checks {
		fmt.Fprintf(w, "%s %-*s  %s\n", badge(c.Level), width, c.Name, c.Summary)
		for _, d := range c.Details {
			fmt.Fprintf(w, "       %s\n", ux.Dim(d))
		}
	}
	var warns, fails int
	for _, c := range r.Checks {
		switch c.Level {
		case Warn:
			warns++
		case Fail:
			fails++
		}
	}
	summary := fmt.Sprintf("%d check(s), %d warning(s), %d failure(s)", len(r.Checks), warns, fails)
	if fails > 0 {
		fmt.Fprintln(w, ux.Red(summary))
		return
	}
	fmt.Fprintln(w, ux.Green(summary))
}
