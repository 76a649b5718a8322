package handoff

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/jorge-barreto/dc/internal/errs"
	"github.com/jorge-barreto/dc/internal/session"
	"github.com/jorge-barreto/dc/internal/store"
)

type fixedDefaults Defaults

func (f fixedDefaults) Defaults(string) Defaults { return Defaults(f) }

func setup(t *testing.T, branch string) (*Engine, string) {
	t.Helper()
	root := session.NewRoot(t.TempDir())
	id := store.NewID()
	dir := filepath.Join(root.Dir, "26-01-02_add-retry-budget")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	doc := &store.DirectiveDoc{
		Kind: store.KindDirective, SchemaVersion: store.SchemaVersion,
		Meta: store.DirectiveMeta{
			ID: id, DirectiveSlug: "add-retry-budget", Status: "todo", Priority: "medium",
			SessionPriority: "medium", Title: "Add retry budget", Summary: "s",
			DirectiveBranch: branch, DirectiveBaseBranch: "dev", DirectiveMergeStatus: "open",
			CommitPolicy: "end_of_directive",
		},
	}
	if err := store.CreateDirective(filepath.Join(dir, "add-retry-budget.meta.json"), doc); err != nil {
		t.Fatal(err)
	}
	return &Engine{Root: root}, id
}

func build(t *testing.T, e *Engine, req Request) *Plan {
	t.Helper()
	plan, err := e.Build(req)
	if err != nil {
		t.Fatal(err)
	}
	return plan
}

func wantKind(t *testing.T, err, kind error, msg string) {
	t.Helper()
	if !errors.Is(err, kind) {
		t.Fatalf("got %v, want %v", err, kind)
	}
	if msg != "" && !strings.Contains(err.Error(), msg) {
		t.Fatalf("error %q does not mention %q", err, msg)
	}
}

func TestApplyDefaults_ArchitectToExecutor(t *testing.T) {
	e, id := setup(t, "feature/add-retry-budget")
	req := Request{Session: id, FromRole: "architect"}
	e.ApplyDefaults(&req)

	if req.ToRole != "executor" || req.Trigger != "architect_to_executor_handoff" {
		t.Fatalf("to=%q trigger=%q", req.ToRole, req.Trigger)
	}
	if !strings.Contains(req.Objective, "lifecycle tooling") {
		t.Fatalf("objective = %q", req.Objective)
	}
	if req.WorktreeMode != string(CleanRequired) {
		t.Fatalf("worktree mode = %q", req.WorktreeMode)
	}

	plan := build(t, e, req)
	h := plan.Doc.Handoff
	if h.ToRole != "executor" || h.SessionID != id || h.DirectiveBranch != "feature/add-retry-budget" {
		t.Fatalf("handoff = %+v", h)
	}
	if h.TaskFile != nil {
		t.Fatalf("task file = %q, want null", *h.TaskFile)
	}
	if want := filepath.Join(plan.SessionDir, "add-retry-budget.handoff.json"); plan.Path != want {
		t.Fatalf("path = %q, want %q", plan.Path, want)
	}
}

func TestApplyDefaults_FromProvider(t *testing.T) {
	e, id := setup(t, "feature/x")
	e.Defaults = fixedDefaults{Role: "executor", Session: id}
	req := Request{}
	e.ApplyDefaults(&req)

	if req.Session != id || req.FromRole != "executor" || req.ToRole != "architect" {
		t.Fatalf("req = %+v", req)
	}
	if want := "Sender role 'executor' must stop until role 'architect' takes control."; req.BlockingRule != want {
		t.Fatalf("blocking rule = %q", req.BlockingRule)
	}
}

func TestApplyDefaults_InvalidProviderRole(t *testing.T) {
	e, _ := setup(t, "feature/x")
	e.Defaults = fixedDefaults{Role: "manager"}
	req := Request{}
	e.ApplyDefaults(&req)
	if req.FromRole != "architect" {
		t.Fatalf("from role = %q", req.FromRole)
	}
}

func TestApplyDefaults_ExplicitValuesKept(t *testing.T) {
	e, id := setup(t, "feature/x")
	req := Request{Session: id, FromRole: "pair", ToRole: "auditor", Trigger: "t", Objective: "o", BlockingRule: "b"}
	e.ApplyDefaults(&req)
	want := Request{Session: id, FromRole: "pair", ToRole: "auditor", Trigger: "t", Objective: "o", BlockingRule: "b", WorktreeMode: "clean_required"}
	if !reflect.DeepEqual(req, want) {
		t.Fatalf("got %+v\nwant %+v", req, want)
	}
}

func TestBuild_MissingSession(t *testing.T) {
	e, _ := setup(t, "feature/x")
	req := Request{}
	e.ApplyDefaults(&req)
	_, err := e.Build(req)
	wantKind(t, err, errs.ErrValidation, "missing --session")
}

func TestBuild_AllowlistRules(t *testing.T) {
	e, id := setup(t, "feature/x")
	base := Request{Session: id, FromRole: "architect"}
	e.ApplyDefaults(&base)

	req := base
	req.WorktreeMode = string(KnownDirtyAllowlist)
	_, err := e.Build(req)
	wantKind(t, err, errs.ErrValidation, "requires at least one --allowlist-path")

	req.AllowlistPaths = []string{"  "}
	_, err = e.Build(req)
	wantKind(t, err, errs.ErrValidation, "")

	for _, bad := range []string{"../x", "a/../../b", "/etc/passwd", `..\x`} {
		req.AllowlistPaths = []string{bad}
		if _, err := e.Build(req); !errors.Is(err, errs.ErrValidation) {
			t.Errorf("allowlist %q: got %v", bad, err)
		}
	}

	req.AllowlistPaths = []string{"apps/web/tmp/", "..foo/bar"}
	plan := build(t, e, req)
	if got := plan.Doc.Handoff.WorktreeAllowlistPaths; !reflect.DeepEqual(got, []string{"apps/web/tmp/", "..foo/bar"}) {
		t.Fatalf("allowlist = %q", got)
	}

	req = base
	req.WorktreeMode = string(CleanRequired)
	req.AllowlistPaths = []string{"../ignored"}
	plan = build(t, e, req)
	if got := plan.Doc.Handoff.WorktreeAllowlistPaths; got == nil || len(got) != 0 {
		t.Fatalf("clean_required allowlist = %#v, want empty", got)
	}
}

func TestBuild_InvalidRoleAndMode(t *testing.T) {
	e, id := setup(t, "feature/x")
	_, err := e.Build(Request{Session: id, FromRole: "boss", ToRole: "executor", Trigger: "t", Objective: "o", BlockingRule: "b", WorktreeMode: "clean_required"})
	wantKind(t, err, errs.ErrValidation, "--from-role")

	_, err = e.Build(Request{Session: id, FromRole: "architect", ToRole: "executor", Trigger: "t", Objective: "o", BlockingRule: "b", WorktreeMode: "sometimes"})
	wantKind(t, err, errs.ErrValidation, "")
}

func TestBuild_MissingBranchIsPrecondition(t *testing.T) {
	e, id := setup(t, "")
	req := Request{Session: id}
	e.ApplyDefaults(&req)
	_, err := e.Build(req)
	wantKind(t, err, errs.ErrPrecondition, "missing directive branch")

	req.DirectiveBranch = "feature/override"
	if plan := build(t, e, req); plan.Doc.Handoff.DirectiveBranch != "feature/override" {
		t.Fatalf("branch = %q", plan.Doc.Handoff.DirectiveBranch)
	}
}

func TestBuild_UnknownSessionIsNotFound(t *testing.T) {
	e, _ := setup(t, "feature/x")
	req := Request{Session: store.NewID()}
	e.ApplyDefaults(&req)
	_, err := e.Build(req)
	wantKind(t, err, errs.ErrNotFound, "")
}

func TestBuild_TaskFileResolution(t *testing.T) {
	e, id := setup(t, "feature/x")
	sessionDir, err := e.Root.Resolve(id)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sessionDir, "wire-budget.task.json"), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	explicit := "wire-budget"
	req := Request{Session: id, TaskFile: &explicit}
	e.ApplyDefaults(&req)
	plan := build(t, e, req)
	if tf := plan.Doc.Handoff.TaskFile; tf == nil || *tf != "wire-budget.task.json" {
		t.Fatalf("task file = %v", tf)
	}

	missing := "nope"
	req.TaskFile = &missing
	_, err = e.Build(req)
	wantKind(t, err, errs.ErrNotFound, "")

	none := "null"
	req.TaskFile = &none
	if plan := build(t, e, req); plan.Doc.Handoff.TaskFile != nil {
		t.Fatalf("null task file = %q", *plan.Doc.Handoff.TaskFile)
	}

	e.Defaults = fixedDefaults{TaskSlug: "stale-task"}
	req = Request{Session: id}
	e.ApplyDefaults(&req)
	if plan := build(t, e, req); plan.Doc.Handoff.TaskFile != nil {
		t.Fatalf("stale default task file kept: %q", *plan.Doc.Handoff.TaskFile)
	}
}

func TestBuild_RequiredReading(t *testing.T) {
	e, id := setup(t, "feature/x")
	project := t.TempDir()
	e.ProjectRoot = project
	e.RequiredReading = "docs/guide.md"
	req := Request{Session: id}
	e.ApplyDefaults(&req)

	_, err := e.Build(req)
	wantKind(t, err, errs.ErrPrecondition, "")

	if err := os.MkdirAll(filepath.Join(project, "docs"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(project, "docs", "guide.md"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if plan := build(t, e, req); plan.Doc.Handoff.RequiredReading != "docs/guide.md" {
		t.Fatalf("required reading = %q", plan.Doc.Handoff.RequiredReading)
	}
}

func TestPersist_DryRunAndOverwrite(t *testing.T) {
	e, id := setup(t, "feature/x")
	req := Request{Session: id}
	e.ApplyDefaults(&req)
	plan := build(t, e, req)

	var out bytes.Buffer
	if err := plan.Persist(&out, true); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), "[dry-run] target: "+plan.Path) || !strings.Contains(out.String(), `"to_role": "executor"`) {
		t.Fatalf("dry run output:\n%s", out.String())
	}
	if _, err := os.Stat(plan.Path); !os.IsNotExist(err) {
		t.Fatal("dry run wrote the handoff")
	}

	if err := plan.Persist(&out, false); err != nil {
		t.Fatal(err)
	}
	plan.Doc.Handoff.Objective = "second"
	if err := plan.Persist(&out, false); err != nil {
		t.Fatal(err)
	}
	got, err := store.ReadHandoff(plan.Path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Handoff.Objective != "second" {
		t.Fatalf("objective = %q", got.Handoff.Objective)
	}

	rendered, err := plan.Doc.Encode()
	if err != nil {
		t.Fatal(err)
	}
	onDisk, err := os.ReadFile(plan.Path)
	if err != nil {
		t.Fatal(err)
	}
	if string(rendered) != string(onDisk) {
		t.Fatal("dry run rendering differs from the written document")
	}
}

func TestParse(t *testing.T) {
	r, err := ParseRole(" Executor ")
	if err != nil || r != Executor {
		t.Fatalf("ParseRole = %q, %v", r, err)
	}
	for _, role := range Roles {
		if DefaultObjective(role) == "" || DefaultBlockingRule(Architect, role) == "" {
			t.Errorf("no canned text for %s", role)
		}
	}
	if _, err := ParseWorktreeMode("CLEAN_REQUIRED"); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("got %v", err)
	}
}
