package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/jorge-barreto/dc/internal/errs"
)

const testID = "1b4e28ba-2fa1-41d2-883f-0016d3cca427"

func sampleDirective() *DirectiveDoc {
	return &DirectiveDoc{
		Kind:          KindDirective,
		SchemaVersion: SchemaVersion,
		Meta: DirectiveMeta{
			ID:                   testID,
			DirectiveSlug:        "add-retry-budget",
			Status:               StatusTodo,
			Owner:                "operator",
			Priority:             "medium",
			SessionPriority:      "medium",
			Tags:                 []string{"needs-triage"},
			Created:              "2026-01-02T03:04:05Z",
			Updated:              "2026-01-02T03:04:05Z",
			Bucket:               BucketActive,
			Title:                "Add retry budget",
			Summary:              "Cap retries <per> request & log.",
			Goals:                []string{},
			DirectiveBranch:      "feature/add-retry-budget",
			DirectiveBaseBranch:  "dev",
			DirectiveMergeStatus: "open",
			CommitPolicy:         "end_of_directive",
		},
	}
}

func sampleTask() *TaskDoc {
	return &TaskDoc{
		Kind:          KindTask,
		SchemaVersion: SchemaVersion,
		Meta: TaskMeta{
			ID: testID, Title: "wire budget", Status: "todo", Priority: "medium",
			SessionPriority: "medium", Summary: "s", ExecutionModel: "m", ThinkingLevel: "high",
		},
		Task: TaskSpec{
			Objective:      "Wire the budget.",
			Constraints:    []string{"c"},
			AllowedFiles:   []AllowedFile{{Path: "a.go", Access: "edit"}},
			Steps:          []Step{{ID: "step_1", Instruction: "do", Files: []string{"a.go"}, Artifact: "x"}},
			Validation:     Validation{Commands: []string{"go test ./..."}},
			ExpectedOutput: []string{"e"},
			StopConditions: []string{"s"},
			Notes:          []string{},
		},
	}
}

func readString(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestDirective_RoundTripKeepsUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, MetaFileName("add-retry-budget"))

	doc := sampleDirective()
	doc.Meta.Extra = map[string]json.RawMessage{"reviewer": json.RawMessage(`"sam"`)}
	if err := CreateDirective(path, doc); err != nil {
		t.Fatal(err)
	}

	got, err := ReadDirective(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Meta.Title != "Add retry budget" {
		t.Fatalf("title = %q", got.Meta.Title)
	}
	if string(got.Meta.Extra["reviewer"]) != `"sam"` {
		t.Fatalf("extra reviewer = %s", got.Meta.Extra["reviewer"])
	}

	got.Meta.Status = StatusArchived
	if err := WriteDirective(path, got); err != nil {
		t.Fatal(err)
	}

	data := readString(t, path)
	if !strings.HasSuffix(data, "}\n") {
		t.Fatal("document should end with a newline")
	}
	for _, want := range []string{
		`"reviewer": "sam"`,
		`"status": "archived"`,
		"Cap retries <per> request & log.",
		"\n  \"meta\": {\n    \"id\": ",
	} {
		if !strings.Contains(data, want) {
			t.Errorf("document missing %q:\n%s", want, data)
		}
	}
}

func TestCreateDirective_RefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), MetaFileName("x"))
	if err := os.WriteFile(path, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := CreateDirective(path, sampleDirective()); !errors.Is(err, errs.ErrPrecondition) {
		t.Fatalf("got %v", err)
	}
	if got := readString(t, path); got != "{}" {
		t.Fatalf("existing file changed: %q", got)
	}
}

func TestWriteDirective_RejectsInvalidBeforeWriting(t *testing.T) {
	path := filepath.Join(t.TempDir(), MetaFileName("x"))
	doc := sampleDirective()
	doc.Meta.ID = "not-a-uuid"

	if err := WriteDirective(path, doc); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("invalid document was written")
	}
}

func TestReadDirective_SchemaProblems(t *testing.T) {
	path := filepath.Join(t.TempDir(), MetaFileName("x"))
	body := `{"meta":{"id":"` + testID + `","directive_slug":"x","title":{"nested":true}}}`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := ReadDirective(path)
	if !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("got %v", err)
	}
	for _, want := range []string{"meta.title must be scalar", "missing meta.summary"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q: %v", want, err)
		}
	}
}

func TestRead_MissingIsNotFound(t *testing.T) {
	if _, err := ReadDirective(filepath.Join(t.TempDir(), "nope.meta.json")); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("got %v", err)
	}
}

func TestCheckTask(t *testing.T) {
	data, err := sampleTask().Encode()
	if err != nil {
		t.Fatal(err)
	}
	obj, err := decodeObject(data)
	if err != nil {
		t.Fatal(err)
	}
	if problems := CheckTask(obj); len(problems) != 0 {
		t.Fatalf("valid task reported %q", problems)
	}

	task := obj["task"].(map[string]any)
	task["steps"] = []any{}
	task["objective"] = "   "
	task["validation"] = map[string]any{"commands": []any{}}
	problems := CheckTask(obj)
	for _, want := range []string{
		"task.steps must be a non-empty array",
		"task.objective must be non-empty text",
		"task.validation.commands must be a non-empty array",
	} {
		if !slices.Contains(problems, want) {
			t.Errorf("problems missing %q: %q", want, problems)
		}
	}
}

func TestCreateTask_RefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), TaskFileName("wire-budget"))
	if err := CreateTask(path, sampleTask()); err != nil {
		t.Fatal(err)
	}
	if err := CreateTask(path, sampleTask()); !errors.Is(err, errs.ErrPrecondition) {
		t.Fatalf("second create: %v", err)
	}

	got, err := ReadTask(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Task.AllowedFiles[0].Access != "edit" {
		t.Fatalf("access = %q", got.Task.AllowedFiles[0].Access)
	}
}

func TestHandoff_EncodeEmptyAllowlist(t *testing.T) {
	doc := &HandoffDoc{Handoff: HandoffRecord{
		FromRole: "architect", ToRole: "executor", Trigger: "architect_to_executor_handoff",
		SessionID: testID, DirectiveBranch: "feature/x", Objective: "o",
		BlockingRule: "b", WorktreeMode: "clean_required",
	}}
	data, err := doc.Encode()
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"worktree_allowlist_paths": []`, `"task_file": null`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("encoded handoff missing %q:\n%s", want, data)
		}
	}

	path := filepath.Join(t.TempDir(), HandoffFileName("x"))
	if err := WriteHandoff(path, doc); err != nil {
		t.Fatal(err)
	}
	doc.Handoff.Objective = "second"
	if err := WriteHandoff(path, doc); err != nil {
		t.Fatal(err)
	}
	got, err := ReadHandoff(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Handoff.Objective != "second" {
		t.Fatalf("objective = %q, want overwrite", got.Handoff.Objective)
	}
}

func TestFindMetaFile(t *testing.T) {
	dir := t.TempDir()
	if _, err := FindMetaFile(dir); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("empty dir: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "a.meta.json"), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := FindMetaFile(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join(dir, "a.meta.json") {
		t.Fatalf("got %q", got)
	}

	if err := os.WriteFile(filepath.Join(dir, "b.meta.json"), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err = FindMetaFile(dir)
	if !errors.Is(err, errs.ErrValidation) || !strings.Contains(err.Error(), "expected exactly one metadata document") {
		t.Fatalf("two metas: %v", err)
	}
}

func TestNames(t *testing.T) {
	checks := []struct {
		name string
		got  bool
		want bool
	}{
		{"IsSlug(add-retry-budget)", IsSlug("add-retry-budget"), true},
		{"IsSlug(Add-Retry)", IsSlug("Add-Retry"), false},
		{"IsSlug(a--b)", IsSlug("a--b"), false},
		{"IsSlug(-a)", IsSlug("-a"), false},
		{"IsMetaFile(a-b.meta.json)", IsMetaFile("a-b.meta.json"), true},
		{"IsMetaFile(A.meta.json)", IsMetaFile("A.meta.json"), false},
		{"IsTaskFile", IsTaskFile("x1.task.json"), true},
		{"IsHandoffFile", IsHandoffFile("x1.handoff.json"), true},
		{"IsLegacyName(TASK_01.md)", IsLegacyName("TASK_01.md"), true},
		{"IsLegacyName(TASK_x.meta.json)", IsLegacyName("TASK_x.meta.json"), true},
		{"IsLegacyName(HANDOFF.json)", IsLegacyName("HANDOFF.json"), true},
		{"IsLegacyName(notes.md)", IsLegacyName("notes.md"), false},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
	if got := SlugFromFile("wire-budget.task.json"); got != "wire-budget" {
		t.Errorf("SlugFromFile = %q", got)
	}
}

func TestIDs(t *testing.T) {
	for id, want := range map[string]bool{
		NewID():                                true,
		testID:                                 true,
		strings.ToUpper(testID):                true,
		"{" + testID + "}":                     false,
		"00000000-0000-0000-0000-000000000000": false,
		"1b4e28ba-2fa1-41d2-c83f-0016d3cca427": false,
	} {
		if IsUUID(id) != want {
			t.Errorf("IsUUID(%q) != %v", id, want)
		}
	}
}

func TestTimestamp(t *testing.T) {
	ts := time.Date(2026, 3, 4, 5, 6, 7, 999, time.FixedZone("x", 3600))
	if got := Timestamp(ts); got != "2026-03-04T04:06:07Z" {
		t.Fatalf("got %q", got)
	}
}
