// Package lifecycle archives directives and advises on branch cleanup. It
// reads git state but never changes it.
package lifecycle

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/jorge-barreto/dc/internal/errs"
	"github.com/jorge-barreto/dc/internal/git"
	"github.com/jorge-barreto/dc/internal/session"
	"github.com/jorge-barreto/dc/internal/store"
)

// Controller runs archive and cleanup checks for sessions under Root.
type Controller struct {
	Root         *session.Root
	Git          *git.Repo
	ProjectRoot  string
	BaseBranch   string
	AllowedDirty []string
	Now          func() time.Time
}

func (c *Controller) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// ArchivePlan is a checked archive transition ready to persist.
type ArchivePlan struct {
	Session  string
	MetaPath string
	Doc      *store.DirectiveDoc
}

// PlanArchive checks that the session can be archived and returns the
// updated metadata. Nothing is written.
func (c *Controller) PlanArchive(ctx context.Context, token string) (*ArchivePlan, error) {
	info, doc, err := c.Root.Load(token)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(strings.TrimSpace(doc.Meta.Status), store.StatusArchived) {
		return nil, errs.Preconditionf("directive is already archived: %s", info.Name)
	}
	if err := c.requireClean(ctx, info.Dir); err != nil {
		return nil, err
	}

	doc.Meta.Status = store.StatusArchived
	doc.Meta.Bucket = store.BucketArchived
	doc.Meta.Updated = store.Timestamp(c.now())
	return &ArchivePlan{Session: info.Name, MetaPath: info.MetaPath, Doc: doc}, nil
}

// Persist writes status, bucket and updated in one atomic replacement of the
// metadata document. With dryRun it prints the document instead.
func (p *ArchivePlan) Persist(w io.Writer, dryRun bool) error {
	if dryRun {
		data, err := p.Doc.Encode()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "[dry-run] target: %s\n\n%s", p.MetaPath, data)
		return nil
	}
	return store.WriteDirective(p.MetaPath, p.Doc)
}

// requireClean fails when the working tree has changes outside the allowed
// prefixes and the session's own directory.
func (c *Controller) requireClean(ctx context.Context, sessionDir string) error {
	dirty, err := c.Git.DirtyFiles(ctx)
	if err != nil {
		return err
	}
	allowed := append([]string(nil), c.AllowedDirty...)
	if sessionDir != "" && c.ProjectRoot != "" {
		if rel, err := filepath.Rel(c.ProjectRoot, sessionDir); err == nil && !strings.HasPrefix(rel, "..") {
			allowed = append(allowed, filepath.ToSlash(rel)+"/")
		}
	}
	if outside := git.DirtyOutside(dirty, allowed); len(outside) > 0 {
		return errs.Preconditionf("working tree has uncommitted changes outside the allowed paths:\n  %s\ncommit or stash them first",
			strings.Join(outside, "\n  "))
	}
	return nil
}

// CleanupStatus is the outcome of a cleanup check.
type CleanupStatus int

const (
	NothingToDo CleanupStatus = iota
	SafeToDelete
)

func (s CleanupStatus) String() string {
	switch s {
	case NothingToDo:
		return "nothing-to-do"
	case SafeToDelete:
		return "safe-to-delete"
	}
	return "unknown"
}

// Advice is the result of a successful cleanup check. Command is the manual
// git command the operator should run, if any.
type Advice struct {
	Session string
	Branch  string
	Base    string
	Status  CleanupStatus
	Command string
}

func (a *Advice) Message() string {
	switch a.Status {
	case NothingToDo:
		return fmt.Sprintf("Local branch '%s' does not exist. Nothing to cleanup.", a.Branch)
	case SafeToDelete:
		return fmt.Sprintf("Branch '%s' is merged into '%s' and safe to delete.", a.Branch, a.Base)
	}
	return ""
}

// Cleanup checks whether the session's directive branch can be deleted. It
// never deletes anything. branch overrides the branch in metadata. Unlike
// archive, no dirty path is allowed.
func (c *Controller) Cleanup(ctx context.Context, token, branch string) (*Advice, error) {
	info, doc, err := c.Root.Load(token)
	if err != nil {
		return nil, err
	}
	branch = strings.TrimSpace(branch)
	if branch == "" {
		branch = strings.TrimSpace(doc.Meta.DirectiveBranch)
	}
	if branch == "" {
		return nil, errs.Preconditionf("directive metadata missing directive_branch: %s", filepath.Base(info.MetaPath))
	}
	base := c.BaseBranch
	if branch == base {
		return nil, errs.GitSafetyf("refusing cleanup for protected branch '%s'", base)
	}

	dirty, err := c.Git.DirtyFiles(ctx)
	if err != nil {
		return nil, err
	}
	if len(dirty) > 0 {
		return nil, errs.Preconditionf("working tree is not clean:\n  %s\ncommit or stash before cleanup", strings.Join(dirty, "\n  "))
	}
	current, err := c.Git.CurrentBranch(ctx)
	if err != nil {
		return nil, err
	}
	if current != base {
		return nil, errs.Preconditionf("current branch '%s' is not '%s'; manual git required: git checkout %s", current, base, base)
	}

	advice := &Advice{Session: info.Name, Branch: branch, Base: base}
	exists, err := c.Git.BranchExists(ctx, branch)
	if err != nil {
		return nil, err
	}
	if !exists {
		advice.Status = NothingToDo
		return advice, nil
	}
	merged, err := c.Git.IsAncestor(ctx, branch, base)
	if err != nil {
		return nil, err
	}
	if !merged {
		return nil, errs.GitSafetyf("branch '%s' is not merged into '%s'; manual git required before cleanup: git merge --no-ff %s", branch, base, branch)
	}
	advice.Status = SafeToDelete
	advice.Command = "git branch -d " + branch
	return advice, nil
}
