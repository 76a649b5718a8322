package validate

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/jorge-barreto/dc/internal/session"
	"github.com/jorge-barreto/dc/internal/store"
)

func init() {
	color.NoColor = true
}

func meta(id, slug, title string) *store.DirectiveDoc {
	return &store.DirectiveDoc{
		Kind: store.KindDirective, SchemaVersion: store.SchemaVersion,
		Meta: store.DirectiveMeta{
			ID: id, DirectiveSlug: slug, Status: "todo", Priority: "medium", SessionPriority: "medium",
			Title: title, Summary: "s", DirectiveBranch: "feature/" + slug, DirectiveBaseBranch: "dev",
			DirectiveMergeStatus: "open", CommitPolicy: "end_of_directive",
		},
	}
}

func task() *store.TaskDoc {
	return &store.TaskDoc{
		Kind: store.KindTask, SchemaVersion: store.SchemaVersion,
		Meta: store.TaskMeta{
			ID: store.NewID(), Title: "t", Status: "todo", Priority: "medium", SessionPriority: "medium",
			Summary: "s", ExecutionModel: "m", ThinkingLevel: "high",
		},
		Task: store.TaskSpec{
			Objective: "o", Constraints: []string{"c"},
			AllowedFiles:   []store.AllowedFile{{Path: "a", Access: "edit"}},
			Steps:          []store.Step{{ID: "step_1", Instruction: "i"}},
			Validation:     store.Validation{Commands: []string{"make test"}},
			ExpectedOutput: []string{"e"}, StopConditions: []string{"s"},
		},
	}
}

func handoffDoc(sessionID string) *store.HandoffDoc {
	return &store.HandoffDoc{Handoff: store.HandoffRecord{
		FromRole: "architect", ToRole: "executor", Trigger: "architect_to_executor_handoff",
		SessionID: sessionID, DirectiveBranch: "feature/x", Objective: "o", BlockingRule: "b",
		WorktreeMode: "clean_required",
	}}
}

func check(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func newSession(t *testing.T, root, name, slug, title string) (string, string) {
	t.Helper()
	dir := filepath.Join(root, name)
	check(t, os.MkdirAll(dir, 0755))
	id := store.NewID()
	check(t, store.CreateDirective(filepath.Join(dir, store.MetaFileName(slug)), meta(id, slug, title)))
	return dir, id
}

func run(t *testing.T, root string, files ...string) *Report {
	t.Helper()
	v := &Validator{Root: session.NewRoot(root), Base: root}
	report, err := v.Run(files)
	check(t, err)
	return report
}

func wantErrors(t *testing.T, report *Report, wants ...string) {
	t.Helper()
	joined := strings.Join(report.Errors, "\n")
	for _, want := range wants {
		if !strings.Contains(joined, want) {
			t.Errorf("errors missing %q:\n%s", want, joined)
		}
	}
}

func TestValidSessionPasses(t *testing.T) {
	root := t.TempDir()
	dir, id := newSession(t, root, "S", "retry", "Retry")
	check(t, store.CreateTask(filepath.Join(dir, "wire.task.json"), task()))
	check(t, store.WriteHandoff(filepath.Join(dir, "retry.handoff.json"), handoffDoc(id)))

	report := run(t, root)
	if !report.OK() {
		t.Fatalf("errors: %q", report.Errors)
	}
	if len(report.Sessions) != 1 || len(report.Sessions[0].Files) != 3 {
		t.Fatalf("sessions = %+v", report.Sessions)
	}
}

func TestTwoMetadataDocumentsIsOneError(t *testing.T) {
	root := t.TempDir()
	dir, _ := newSession(t, root, "S", "alpha", "Alpha")
	check(t, store.CreateDirective(filepath.Join(dir, "beta.meta.json"), meta(store.NewID(), "beta", "Beta")))

	report := run(t, root)
	if len(report.Errors) != 1 {
		t.Fatalf("got %d errors: %q", len(report.Errors), report.Errors)
	}
	if e := report.Errors[0]; !strings.HasPrefix(e, "S:") || !strings.Contains(e, "expected exactly one metadata document") {
		t.Fatalf("error = %q", e)
	}
}

func TestAggregatesAcrossSessions(t *testing.T) {
	root := t.TempDir()
	dirA, _ := newSession(t, root, "A", "a", "A")
	dirB, _ := newSession(t, root, "B", "b", "B")
	check(t, os.WriteFile(filepath.Join(dirA, "README.md"), []byte("x"), 0644))
	bad := task()
	bad.Task.Steps = nil
	bad.Task.Validation.Commands = nil
	check(t, os.WriteFile(filepath.Join(dirB, "broken.task.json"), mustEncodeLoose(t, bad), 0644))
	check(t, os.MkdirAll(filepath.Join(root, "empty"), 0755))

	report := run(t, root)
	if report.OK() {
		t.Fatal("report should fail")
	}
	wantErrors(t, report,
		"A/README.md: legacy file naming not allowed",
		"B/broken.task.json: task.steps must be a non-empty array",
		"B/broken.task.json: task.validation.commands must be a non-empty array",
		"empty: expected exactly one metadata document, found 0",
	)
	if len(report.Sessions) != 3 {
		t.Fatalf("got %d sessions", len(report.Sessions))
	}
}

// mustEncodeLoose renders a task without the schema check so tests can
// write invalid documents.
func mustEncodeLoose(t *testing.T, doc *store.TaskDoc) []byte {
	t.Helper()
	data, err := json.MarshalIndent(doc, "", "  ")
	check(t, err)
	return data
}

func TestHandoffConsistency(t *testing.T) {
	root := t.TempDir()
	dir, _ := newSession(t, root, "S", "retry", "Retry")
	h := handoffDoc(store.NewID())
	h.Handoff.WorktreeAllowlistPaths = []string{"tmp/"}
	missing := "gone.task.json"
	h.Handoff.TaskFile = &missing
	check(t, store.WriteHandoff(filepath.Join(dir, "other.handoff.json"), h))

	wantErrors(t, run(t, root),
		"does not match meta.id",
		"must be empty for clean_required",
		`file name does not match meta.directive_slug "retry"`,
		"handoff.task_file",
	)
}

func TestHandoffRolesAndAllowlist(t *testing.T) {
	root := t.TempDir()
	dir, id := newSession(t, root, "S", "retry", "Retry")
	h := handoffDoc(id)
	h.Handoff.ToRole = "manager"
	h.Handoff.WorktreeMode = "known_dirty_allowlist"
	h.Handoff.WorktreeAllowlistPaths = []string{"../escape"}
	check(t, store.WriteHandoff(filepath.Join(dir, "retry.handoff.json"), h))

	wantErrors(t, run(t, root), "handoff.to_role", "must be relative")
}

func TestMultipleHandoffs(t *testing.T) {
	root := t.TempDir()
	dir, id := newSession(t, root, "S", "retry", "Retry")
	check(t, store.WriteHandoff(filepath.Join(dir, "retry.handoff.json"), handoffDoc(id)))
	check(t, store.WriteHandoff(filepath.Join(dir, "second.handoff.json"), handoffDoc(id)))

	wantErrors(t, run(t, root), "expected at most one handoff document, found 2")
}

func TestDuplicateIDsAndTitles(t *testing.T) {
	root := t.TempDir()
	_, id := newSession(t, root, "A", "retry", "Add retry budget")
	dirB := filepath.Join(root, "B")
	check(t, os.MkdirAll(dirB, 0755))
	check(t, store.CreateDirective(filepath.Join(dirB, "retry-two.meta.json"), meta(id, "retry-two", "add RETRY budget!!")))

	report := run(t, root)
	wantErrors(t, report, "B: meta.id "+id+" duplicates session A")
	if len(report.Errors) != 2 {
		t.Fatalf("got %d errors: %q", len(report.Errors), report.Errors)
	}
}

func TestExplicitFiles(t *testing.T) {
	root := t.TempDir()
	newSession(t, root, "A", "a", "A")
	dirB, _ := newSession(t, root, "B", "b", "B")
	check(t, os.WriteFile(filepath.Join(dirB, "HANDOFF.json"), []byte("{}"), 0644))

	report := run(t, root, "A/a.meta.json")
	if !report.OK() || len(report.Sessions) != 1 {
		t.Fatalf("A only: ok=%v sessions=%d errors=%q", report.OK(), len(report.Sessions), report.Errors)
	}

	report = run(t, root, filepath.Join(root, "B", "b.meta.json"), "B/HANDOFF.json")
	if report.OK() || len(report.Sessions) != 1 {
		t.Fatalf("B only: ok=%v sessions=%d", report.OK(), len(report.Sessions))
	}

	report = run(t, root, "../elsewhere.json", "loose.json")
	if len(report.Errors) != 2 || len(report.Sessions) != 0 {
		t.Fatalf("outside files: errors=%q sessions=%d", report.Errors, len(report.Sessions))
	}
}

func TestPrintVerboseUsesShortNames(t *testing.T) {
	root := t.TempDir()
	newSession(t, root, "S", "retry", "Retry")
	report := run(t, root)

	var out, errOut bytes.Buffer
	report.Print(&out, &errOut, true)
	if want := "[PASS] session S\n  [PASS] retry.meta.json\nValidation passed: 1 session(s)\n"; out.String() != want {
		t.Fatalf("stdout = %q, want %q", out.String(), want)
	}
	if errOut.Len() != 0 {
		t.Fatalf("stderr = %q", errOut.String())
	}
}

func TestPrintFailure(t *testing.T) {
	root := t.TempDir()
	check(t, os.MkdirAll(filepath.Join(root, "S"), 0755))
	report := run(t, root)

	var out, errOut bytes.Buffer
	report.Print(&out, &errOut, true)
	if out.String() != "[FAIL] session S\n" {
		t.Fatalf("stdout = %q", out.String())
	}
	if want := "S: expected exactly one metadata document, found 0\nValidation failed: 1 error(s)\n"; errOut.String() != want {
		t.Fatalf("stderr = %q, want %q", errOut.String(), want)
	}
}
