package bundle

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jorge-barreto/dc/internal/config"
	"github.com/jorge-barreto/dc/internal/errs"
)

func write(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func newCompiler(t *testing.T) (*Compiler, string) {
	t.Helper()
	root := t.TempDir()
	write(t, root, "AGENTS.md", "# Agents\r\nrules\r\n")
	write(t, root, "docs/agent-rules/shared/b.md", "b")
	write(t, root, "docs/agent-rules/shared/a.md", "a")
	write(t, root, "docs/agent-rules/shared/notes.txt", "skip")
	write(t, root, "docs/agent-rules/executor/x.md", "x")
	c := New(root, config.Default().ContextBundle)
	c.Now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return c, root
}

func TestCollect_Order(t *testing.T) {
	c, root := newCompiler(t)
	write(t, root, "extra/one.md", "1")

	got, err := c.Collect([]string{"extra/one.md", "AGENTS.md"})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"AGENTS.md",
		"docs/agent-rules/shared/a.md",
		"docs/agent-rules/shared/b.md",
		"docs/agent-rules/executor/x.md",
		"extra/one.md",
	}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestCollect_RejectsIncludes(t *testing.T) {
	c, _ := newCompiler(t)
	if _, err := c.Collect([]string{"../outside.md"}); !errors.Is(err, errs.ErrPathEscape) {
		t.Fatalf("expected path escape, got %v", err)
	}
	if _, err := c.Collect([]string{"missing.md"}); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCompile_NormalizesLineEndings(t *testing.T) {
	c, root := newCompiler(t)
	text, digest, err := c.Compile([]string{"AGENTS.md"}, "now")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(text, "\r") {
		t.Fatal("compiled text should not contain CR")
	}
	if !strings.HasPrefix(text, "# Codex Context Bundle\n\nGenerated at: now\n\n## Source: AGENTS.md\n\n```markdown\n") {
		t.Fatalf("unexpected header:\n%s", text)
	}

	write(t, root, "AGENTS.md", "# Agents\nrules\n")
	_, again, err := c.Compile([]string{"AGENTS.md"}, "later")
	if err != nil {
		t.Fatal(err)
	}
	if digest != again {
		t.Fatal("digest should ignore CRLF and the generation time")
	}
}

func TestCheck_AfterBuildIsOK(t *testing.T) {
	c, root := newCompiler(t)
	res, err := c.Build(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Sources) != 4 {
		t.Fatalf("sources = %v", res.Sources)
	}
	if _, err := os.Stat(filepath.Join(root, ".codex", "context", "compiled.meta.json")); err != nil {
		t.Fatalf("manifest not written: %v", err)
	}

	check, err := c.Check()
	if err != nil {
		t.Fatal(err)
	}
	if !check.OK() || check.Message != "Context bundle is up to date" {
		t.Fatalf("got %+v", check)
	}
	if check.Hash != res.Hash {
		t.Fatalf("hash %s, want %s", check.Hash, res.Hash)
	}
}

func TestCheck_MutatedSourceIsStale(t *testing.T) {
	c, root := newCompiler(t)
	if _, err := c.Build(nil); err != nil {
		t.Fatal(err)
	}
	write(t, root, "docs/agent-rules/shared/a.md", "changed")

	check, err := c.Check()
	if err != nil {
		t.Fatal(err)
	}
	if check.Status != StatusStale || check.Message != "Context bundle is stale" {
		t.Fatalf("got %+v", check)
	}
}

func TestCheck_DeletedSourceIsStale(t *testing.T) {
	c, root := newCompiler(t)
	if _, err := c.Build(nil); err != nil {
		t.Fatal(err)
	}
	os.Remove(filepath.Join(root, "docs", "agent-rules", "executor", "x.md"))

	check, err := c.Check()
	if err != nil {
		t.Fatal(err)
	}
	if check.Status != StatusStale {
		t.Fatalf("status = %s", check.Status)
	}
	if check.Message != "Context bundle stale: missing source docs/agent-rules/executor/x.md" {
		t.Fatalf("message = %q", check.Message)
	}
}

func TestCheck_Missing(t *testing.T) {
	c, root := newCompiler(t)
	check, err := c.Check()
	if err != nil {
		t.Fatal(err)
	}
	if check.Status != StatusMissing {
		t.Fatalf("status = %s", check.Status)
	}

	if _, err := c.Build(nil); err != nil {
		t.Fatal(err)
	}
	write(t, root, ".codex/context/compiled.meta.json", `{"hash": "x"}`)
	check, err = c.Check()
	if err != nil {
		t.Fatal(err)
	}
	if check.Status != StatusMissing {
		t.Fatalf("manifest without sources: status = %s", check.Status)
	}
}

func TestCheck_DoesNotWrite(t *testing.T) {
	c, root := newCompiler(t)
	if _, err := c.Build(nil); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(root, ".codex", "context", "compiled.md")
	before, _ := os.ReadFile(out)
	write(t, root, "AGENTS.md", "new")
	if _, err := c.Check(); err != nil {
		t.Fatal(err)
	}
	after, _ := os.ReadFile(out)
	if string(before) != string(after) {
		t.Fatal("check rewrote the bundle")
	}
}

func TestShow(t *testing.T) {
	c, _ := newCompiler(t)
	if _, err := c.Show(); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := c.Build(nil); err != nil {
		t.Fatal(err)
	}
	res, err := c.Show()
	if err != nil {
		t.Fatal(err)
	}
	if res.SourceCount == nil || *res.SourceCount != 4 {
		t.Fatalf("source count = %v", res.SourceCount)
	}
	data, err := c.Content()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "## Source: docs/agent-rules/shared/a.md") {
		t.Fatal("content missing section")
	}
}
