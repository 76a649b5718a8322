// Package directive creates sessions and task documents and builds directive
// listings.
package directive

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jorge-barreto/dc/internal/errs"
	"github.com/jorge-barreto/dc/internal/session"
	"github.com/jorge-barreto/dc/internal/store"
)

// Defaults for a new directive.
const (
	DefaultTitle        = "new directive"
	DefaultSummary      = "Define and execute the next verified directive scope."
	DefaultOwner        = "operator"
	DefaultPriority     = "medium"
	DefaultEffort       = "medium"
	DefaultScope        = "directives"
	DefaultSource       = "architect"
	DefaultCommitPolicy = "end_of_directive"
	DefaultBranchType   = "feature"
)

var (
	BranchTypes    = []string{"feature", "chore", "hotfix", "fix", "release"}
	CommitPolicies = []string{"per_task", "per_collection", "end_of_directive"}
)

// NormalizeBranchType lowercases t and maps the feat shorthand to feature.
func NormalizeBranchType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	if t == "feat" {
		return "feature"
	}
	return t
}

func oneOf(v string, set []string) bool {
	for _, s := range set {
		if v == s {
			return true
		}
	}
	return false
}

func or(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}

// Creator writes new sessions and tasks under Root.
type Creator struct {
	Root       *session.Root
	BaseBranch string
	Now        func() time.Time
}

func (c *Creator) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// SessionRequest holds the inputs for a new directive session. Blank fields
// take their defaults.
type SessionRequest struct {
	Session         string
	ID              string
	Slug            string
	Title           string
	Summary         string
	Goals           []string
	BranchType      string
	DirectiveBranch string
	BaseBranch      string
	Owner           string
	Assignee        string
	Priority        string
	SessionPriority string
	Effort          string
	CommitPolicy    string
	Source          string
	Scope           string
}

// SessionPlan is a validated session ready to be written.
type SessionPlan struct {
	Name     string
	Dir      string
	MetaPath string
	Doc      *store.DirectiveDoc
}

// PlanSession validates req and builds the metadata document. Nothing is
// written; every check that can fail runs here.
func (c *Creator) PlanSession(req SessionRequest) (*SessionPlan, error) {
	title := or(req.Title, DefaultTitle)
	summary := or(req.Summary, DefaultSummary)

	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = store.NewID()
	} else if !store.IsUUID(id) {
		return nil, errs.Validationf("invalid --id value (expected UUID): %s", id)
	}

	name := strings.TrimSpace(req.Session)
	if name == "" {
		name = c.Root.NextAvailableName(session.GenerateDirName(title, c.now()))
	}
	if !session.ValidSessionName(name) {
		return nil, errs.Validationf("invalid --session value: %s", name)
	}

	slug := strings.TrimSpace(req.Slug)
	if slug == "" {
		slug = session.Slugify(title)
		if slug == "" {
			slug = "directive"
		}
	}
	if !store.IsSlug(slug) {
		return nil, errs.Validationf("invalid --directive-slug value: %s", slug)
	}

	branchType := NormalizeBranchType(or(req.BranchType, DefaultBranchType))
	if !oneOf(branchType, BranchTypes) {
		return nil, errs.Validationf("invalid --branch-type value: %s (expected one of %s)", branchType, strings.Join(BranchTypes, ", "))
	}
	policy := or(req.CommitPolicy, DefaultCommitPolicy)
	if !oneOf(policy, CommitPolicies) {
		return nil, errs.Validationf("invalid --commit-policy value: %s (expected one of %s)", policy, strings.Join(CommitPolicies, ", "))
	}

	dir := filepath.Join(c.Root.Dir, name)
	metaPath := filepath.Join(dir, store.MetaFileName(slug))
	if err := session.AssertInside(c.Root.Dir, dir); err != nil {
		return nil, err
	}
	if err := session.AssertInside(dir, metaPath); err != nil {
		return nil, err
	}
	if err := c.Root.CheckUnique(id, title); err != nil {
		return nil, err
	}

	var assignee *string
	if a := strings.TrimSpace(req.Assignee); a != "" {
		assignee = &a
	}
	goals := req.Goals
	if goals == nil {
		goals = []string{}
	}
	now := store.Timestamp(c.now())
	doc := &store.DirectiveDoc{
		Kind:          store.KindDirective,
		SchemaVersion: store.SchemaVersion,
		Meta: store.DirectiveMeta{
			ID:                   id,
			DirectiveSlug:        slug,
			Status:               store.StatusTodo,
			Owner:                or(req.Owner, DefaultOwner),
			Assignee:             assignee,
			Priority:             or(req.Priority, DefaultPriority),
			SessionPriority:      or(req.SessionPriority, DefaultPriority),
			AutoRun:              false,
			Tags:                 []string{"needs-triage"},
			Created:              now,
			Updated:              now,
			Bucket:               store.BucketActive,
			Scope:                or(req.Scope, DefaultScope),
			Source:               or(req.Source, DefaultSource),
			Effort:               or(req.Effort, DefaultEffort),
			DependsOn:            []string{},
			BlockedBy:            []string{},
			Related:              []string{},
			Title:                title,
			Summary:              summary,
			Goals:                goals,
			DirectiveBranch:      or(req.DirectiveBranch, branchType+"/"+slug),
			DirectiveBaseBranch:  or(req.BaseBranch, or(c.BaseBranch, "dev")),
			DirectiveMergeStatus: "open",
			CommitPolicy:         policy,
		},
	}
	if _, err := doc.Encode(); err != nil {
		return nil, err
	}
	return &SessionPlan{Name: name, Dir: dir, MetaPath: metaPath, Doc: doc}, nil
}

// Persist creates the session directory and its metadata document. The
// directory must not exist yet; it is removed again if the document cannot
// be written. With dryRun the plan is printed instead.
func (p *SessionPlan) Persist(w io.Writer, dryRun bool) error {
	if dryRun {
		data, err := p.Doc.Encode()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "[dry-run] session: %s\n[dry-run] metadata: %s\n\n%s", p.Name, p.MetaPath, data)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(p.Dir), 0755); err != nil {
		return fmt.Errorf("creating directive root: %w", err)
	}
	if err := os.Mkdir(p.Dir, 0755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return errs.Preconditionf("session directory already exists: %s", p.Dir)
		}
		return fmt.Errorf("creating session directory: %w", err)
	}
	if err := store.CreateDirective(p.MetaPath, p.Doc); err != nil {
		os.Remove(p.Dir)
		return err
	}
	fmt.Fprintf(w, "Created %s\n", p.MetaPath)
	return nil
}
