package directive

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/jorge-barreto/dc/internal/errs"
	"github.com/jorge-barreto/dc/internal/handoff"
	"github.com/jorge-barreto/dc/internal/session"
	"github.com/jorge-barreto/dc/internal/store"
)

// Task template values.
const (
	DefaultTaskTitle      = "new task"
	DefaultTaskSummary    = "Define and execute the next verified task scope."
	DefaultTaskAssignee   = "executor"
	DefaultTaskBucket     = "todo"
	DefaultExecutionModel = "gpt-5.2-codex"
	DefaultThinkingLevel  = "high"
	DefaultArtifact       = "Concrete output produced and verifiable."
)

var FileAccessModes = []string{"read", "edit", "create", "delete"}

// TaskRequest holds the inputs for a new task. Blank values take template
// defaults; non-empty list fields replace the template's.
type TaskRequest struct {
	Session         string
	Slug            string
	Title           string
	Summary         string
	Priority        string
	SessionPriority string
	Owner           string
	Assignee        string
	Effort          string
	ExecutionModel  string
	ThinkingLevel   string

	Objective      string
	Constraints    []string
	AllowedFiles   []string // path[:access]
	Steps          []string
	ValidateCmds   []string
	ExpectedOutput []string
	StopConditions []string
}

// TaskPlan is a validated task document ready to be written.
type TaskPlan struct {
	Session string
	Path    string
	Doc     *store.TaskDoc
}

func taskTemplate() store.TaskSpec {
	return store.TaskSpec{
		Objective:   "Define the concrete outcome this task must produce.",
		Constraints: []string{"Keep scope deterministic and drift resistant."},
		AllowedFiles: []store.AllowedFile{{
			Path:   "apps/web/...",
			Access: "edit",
			Note:   "Replace with exact allowed paths before execution.",
		}},
		Steps: []store.Step{{
			ID:          "step_1",
			Instruction: "Define exact file-level actions with completion artifacts.",
			Files:       []string{"apps/web/..."},
			Artifact:    DefaultArtifact,
		}},
		Validation:     store.Validation{Commands: []string{"# Add exact validation commands here"}},
		ExpectedOutput: []string{"State measurable completion evidence."},
		StopConditions: []string{"Stop and ask operator when blocked by missing scope or failing unrelated validations."},
		Notes:          []string{},
	}
}

// ParseAllowedFile reads "path" or "path:access". Access defaults to edit.
func ParseAllowedFile(s string) (store.AllowedFile, error) {
	p, access := strings.TrimSpace(s), "edit"
	if i := strings.LastIndex(p, ":"); i > 0 {
		p, access = p[:i], strings.ToLower(p[i+1:])
	}
	if p == "" || !handoff.IsSafeRelative(p) {
		return store.AllowedFile{}, errs.Validationf("allowed file must be relative and must not include '..': %s", p)
	}
	if !oneOf(access, FileAccessModes) {
		return store.AllowedFile{}, errs.Validationf("invalid access %q for %s (expected one of %s)", access, p, strings.Join(FileAccessModes, ", "))
	}
	return store.AllowedFile{Path: p, Access: access}, nil
}

// PlanTask resolves the session and builds the task document.
func (c *Creator) PlanTask(req TaskRequest) (*TaskPlan, error) {
	if strings.TrimSpace(req.Session) == "" {
		return nil, errs.Validationf("missing required --session")
	}
	title := or(req.Title, DefaultTaskTitle)
	slug := strings.TrimSpace(req.Slug)
	if slug == "" {
		slug = or(session.Slugify(title), "new-task")
	}
	if !store.IsSlug(slug) {
		return nil, errs.Validationf("invalid task slug '%s'. Use lowercase letters, numbers, and single hyphens only", slug)
	}

	dir, err := c.Root.Resolve(req.Session)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, store.TaskFileName(slug))
	if err := session.AssertInside(c.Root.Dir, dir); err != nil {
		return nil, err
	}
	if err := session.AssertInside(dir, path); err != nil {
		return nil, err
	}

	spec := taskTemplate()
	if o := strings.TrimSpace(req.Objective); o != "" {
		spec.Objective = o
	}
	if len(req.Constraints) > 0 {
		spec.Constraints = req.Constraints
	}
	if len(req.AllowedFiles) > 0 {
		spec.AllowedFiles = nil
		for _, raw := range req.AllowedFiles {
			af, err := ParseAllowedFile(raw)
			if err != nil {
				return nil, err
			}
			spec.AllowedFiles = append(spec.AllowedFiles, af)
		}
		spec.Steps[0].Files = filePaths(spec.AllowedFiles)
	}
	if len(req.Steps) > 0 {
		files := filePaths(spec.AllowedFiles)
		spec.Steps = nil
		for i, s := range req.Steps {
			spec.Steps = append(spec.Steps, store.Step{
				ID:          fmt.Sprintf("step_%d", i+1),
				Instruction: s,
				Files:       files,
				Artifact:    DefaultArtifact,
			})
		}
	}
	if len(req.ValidateCmds) > 0 {
		spec.Validation.Commands = req.ValidateCmds
	}
	if len(req.ExpectedOutput) > 0 {
		spec.ExpectedOutput = req.ExpectedOutput
	}
	if len(req.StopConditions) > 0 {
		spec.StopConditions = req.StopConditions
	}

	now := store.Timestamp(c.now())
	doc := &store.TaskDoc{
		Kind:          store.KindTask,
		SchemaVersion: store.SchemaVersion,
		Meta: store.TaskMeta{
			ID:              store.NewID(),
			Title:           title,
			Status:          store.StatusTodo,
			Priority:        or(req.Priority, DefaultPriority),
			SessionPriority: or(req.SessionPriority, DefaultPriority),
			Owner:           or(req.Owner, DefaultOwner),
			Assignee:        or(req.Assignee, DefaultTaskAssignee),
			Bucket:          DefaultTaskBucket,
			Created:         now,
			Updated:         now,
			Tags:            []string{},
			Effort:          or(req.Effort, DefaultEffort),
			DependsOn:       []string{},
			BlockedBy:       []string{},
			Related:         []string{},
			Summary:         or(req.Summary, DefaultTaskSummary),
			ExecutionModel:  or(req.ExecutionModel, DefaultExecutionModel),
			ThinkingLevel:   or(req.ThinkingLevel, DefaultThinkingLevel),
		},
		Task: spec,
	}
	if _, err := doc.Encode(); err != nil {
		return nil, err
	}
	return &TaskPlan{Session: filepath.Base(dir), Path: path, Doc: doc}, nil
}

func filePaths(files []store.AllowedFile) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Path)
	}
	return out
}

// Persist writes the task document, refusing to overwrite an existing one.
func (p *TaskPlan) Persist(w io.Writer, dryRun bool) error {
	if dryRun {
		data, err := p.Doc.Encode()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "[dry-run] task: %s\n\n%s", p.Path, data)
		return nil
	}
	if err := store.CreateTask(p.Path, p.Doc); err != nil {
		return err
	}
	fmt.Fprintf(w, "Created %s\n", p.Path)
	return nil
}
