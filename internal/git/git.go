// Package git reads working-tree and branch state through the git binary.
// Nothing here changes repository state.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/jorge-barreto/dc/internal/errs"
)

// Result is the outcome of one git invocation.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner executes git with args in dir. A non-zero exit is reported in the
// Result, not as an error.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) (*Result, error)
}

// ExecRunner runs the git binary on PATH.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, dir string, args ...string) (*Result, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	code, err := exitCode(cmd.Run())
	if err != nil {
		return nil, fmt.Errorf("running git %s: %w", strings.Join(args, " "), err)
	}
	return &Result{ExitCode: code, Stdout: stdout.String(), Stderr: stderr.String()}, nil
}

// exitCode extracts an exit code from a command error.
// Returns (code, nil) for ExitError, (0, err) for other errors, (0, nil) for nil.
func exitCode(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return 0, err
}

// Preflight checks that git is available on PATH.
func Preflight() error {
	if _, err := exec.LookPath("git"); err != nil {
		return fmt.Errorf("required binaries not found in PATH: git")
	}
	return nil
}

// Repo is a working tree at Dir.
type Repo struct {
	Dir    string
	Runner Runner
}

func NewRepo(dir string) *Repo {
	return &Repo{Dir: dir, Runner: ExecRunner{}}
}

func (r *Repo) run(ctx context.Context, args ...string) (*Result, error) {
	return r.Runner.Run(ctx, r.Dir, args...)
}

func (r *Repo) mustRun(ctx context.Context, args ...string) (string, error) {
	res, err := r.run(ctx, args...)
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return "", fmt.Errorf("git %s failed (exit %d): %s", strings.Join(args, " "), res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return res.Stdout, nil
}

// TopLevel returns the absolute path of the working tree root.
func (r *Repo) TopLevel(ctx context.Context) (string, error) {
	out, err := r.mustRun(ctx, "rev-parse", "--show-toplevel")
	return strings.TrimSpace(out), err
}

// CurrentBranch returns the checked-out branch, or "HEAD" when detached.
func (r *Repo) CurrentBranch(ctx context.Context) (string, error) {
	out, err := r.mustRun(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	return strings.TrimSpace(out), err
}

// DirtyFiles returns every path git status reports as modified, staged, or
// untracked, relative to the working tree root. Both sides of a rename are
// included.
func (r *Repo) DirtyFiles(ctx context.Context) ([]string, error) {
	out, err := r.mustRun(ctx, "status", "--porcelain=v1", "-z", "--untracked-files=all")
	if err != nil {
		return nil, err
	}
	return parsePorcelainZ(out), nil
}

func parsePorcelainZ(out string) []string {
	var paths []string
	entries := strings.Split(out, "\x00")
	for i := 0; i < len(entries); i++ {
		e := entries[i]
		if len(e) < 4 {
			continue
		}
		paths = append(paths, e[3:])
		if e[0] == 'R' || e[0] == 'C' {
			if i+1 < len(entries) && entries[i+1] != "" {
				paths = append(paths, entries[i+1])
			}
			i++
		}
	}
	return paths
}

// BranchExists reports whether refs/heads/<branch> exists.
func (r *Repo) BranchExists(ctx context.Context, branch string) (bool, error) {
	if err := checkBranchArg(branch); err != nil {
		return false, err
	}
	res, err := r.run(ctx, "show-ref", "--verify", "--quiet", "refs/heads/"+branch)
	if err != nil {
		return false, err
	}
	switch res.ExitCode {
	case 0:
		return true, nil
	case 1:
		return false, nil
	default:
		return false, fmt.Errorf("git show-ref failed for %s (exit %d): %s", branch, res.ExitCode, strings.TrimSpace(res.Stderr))
	}
}

// IsAncestor reports whether ancestor is reachable from descendant.
func (r *Repo) IsAncestor(ctx context.Context, ancestor, descendant string) (bool, error) {
	for _, b := range []string{ancestor, descendant} {
		if err := checkBranchArg(b); err != nil {
			return false, err
		}
	}
	res, err := r.run(ctx, "merge-base", "--is-ancestor", ancestor, descendant)
	if err != nil {
		return false, err
	}
	switch res.ExitCode {
	case 0:
		return true, nil
	case 1:
		return false, nil
	default:
		return false, fmt.Errorf("git merge-base --is-ancestor %s %s failed (exit %d): %s",
			ancestor, descendant, res.ExitCode, strings.TrimSpace(res.Stderr))
	}
}

// checkBranchArg keeps branch names from being read as git options.
func checkBranchArg(branch string) error {
	if strings.TrimSpace(branch) == "" {
		return errs.Validationf("branch name is empty")
	}
	if strings.HasPrefix(branch, "-") || strings.ContainsAny(branch, " \t\n\x00") || strings.Contains(branch, "..") {
		return errs.Validationf("invalid branch name: %q", branch)
	}
	return nil
}

// DirtyOutside returns the paths not covered by any of the allowed prefixes.
func DirtyOutside(paths, allowedPrefixes []string) []string {
	var out []string
	for _, p := range paths {
		allowed := false
		for _, prefix := range allowedPrefixes {
			if p == strings.TrimSuffix(prefix, "/") || strings.HasPrefix(p, prefix) {
				allowed = true
				break
			}
		}
		if !allowed {
			out = append(out, p)
		}
	}
	return out
}
