// Package bundle compiles the agent rule documents into one markdown context
// bundle with a manifest, and checks whether a compiled bundle is current.
package bundle

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jorge-barreto/dc/internal/config"
	"github.com/jorge-barreto/dc/internal/errs"
	"github.com/jorge-barreto/dc/internal/store"
)

const (
	Kind          = "codex_context_bundle"
	SchemaVersion = "1.0"
)

// Check outcomes.
const (
	StatusOK      = "ok"
	StatusStale   = "stale"
	StatusMissing = "missing"
)

// Manifest is written next to the compiled bundle.
type Manifest struct {
	BundleKind    string   `json:"bundle_kind"`
	SchemaVersion string   `json:"schema_version"`
	GeneratedAt   string   `json:"generated_at"`
	OutFile       string   `json:"out_file"`
	Hash          string   `json:"hash"`
	Sources       []string `json:"sources"`
}

// Result summarises a build, check or show.
type Result struct {
	Message     string   `json:"message"`
	Status      string   `json:"status,omitempty"`
	OutFile     string   `json:"out_file"`
	MetaFile    string   `json:"meta_file"`
	Hash        string   `json:"hash,omitempty"`
	Sources     []string `json:"sources,omitempty"`
	SourceCount *int     `json:"source_count,omitempty"`
}

// OK reports whether a check found the bundle current.
func (r *Result) OK() bool { return r.Status == StatusOK }

// Compiler builds and checks the bundle for one project.
type Compiler struct {
	Root     string
	Out      string
	Meta     string
	Sources  []string
	RuleDirs []string
	Now      func() time.Time
}

// New returns a Compiler for projectRoot using the configured bundle layout.
func New(projectRoot string, cfg config.ContextBundle) *Compiler {
	return &Compiler{
		Root:     projectRoot,
		Out:      cfg.Out,
		Meta:     cfg.Meta,
		Sources:  cfg.Sources,
		RuleDirs: cfg.RuleDirs,
		Now:      time.Now,
	}
}

func (c *Compiler) abs(rel string) string {
	return filepath.Join(c.Root, filepath.FromSlash(rel))
}

// Collect returns the bundle sources as slash-separated project-relative
// paths: configured documents that exist, then the markdown files of each
// rule directory in name order, then includes. Later duplicates are dropped.
// Includes must exist and stay inside the project root.
func (c *Compiler) Collect(includes []string) ([]string, error) {
	var out []string
	seen := map[string]bool{}
	add := func(rel string) {
		if !seen[rel] {
			seen[rel] = true
			out = append(out, rel)
		}
	}

	for _, src := range c.Sources {
		rel := cleanRel(src)
		if isFile(c.abs(rel)) {
			add(rel)
		}
	}
	for _, dir := range c.RuleDirs {
		names, err := markdownFiles(c.abs(dir))
		if err != nil {
			return nil, err
		}
		for _, n := range names {
			add(cleanRel(dir) + "/" + n)
		}
	}
	for _, inc := range includes {
		rel, err := c.relInside(inc)
		if err != nil {
			return nil, err
		}
		if !isFile(c.abs(rel)) {
			return nil, errs.NotFoundf("included file not found: %s", inc)
		}
		add(rel)
	}
	return out, nil
}

// relInside maps p, absolute or project-relative, to a project-relative
// slash path, refusing anything outside the project root.
func (c *Compiler) relInside(p string) (string, error) {
	abs := p
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(c.Root, p)
	}
	rel, err := filepath.Rel(c.Root, filepath.Clean(abs))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errs.PathEscapef("path escapes project root: %s", p)
	}
	return filepath.ToSlash(rel), nil
}

// Compile renders the bundle text and its digest. The digest covers each
// source's path and content with CRLF line endings normalized.
func (c *Compiler) Compile(sources []string, generatedAt string) (string, string, error) {
	h := sha256.New()
	var buf strings.Builder
	buf.WriteString("# Codex Context Bundle\n\n")
	fmt.Fprintf(&buf, "Generated at: %s\n\n", generatedAt)
	for _, rel := range sources {
		data, err := os.ReadFile(c.abs(rel))
		if err != nil {
			return "", "", fmt.Errorf("reading bundle source %s: %w", rel, err)
		}
		content := strings.ReplaceAll(string(data), "\r\n", "\n")
		h.Write([]byte(rel + "\n" + content + "\n"))
		fmt.Fprintf(&buf, "## Source: %s\n\n```markdown\n%s\n```\n\n", rel, content)
	}
	return buf.String(), hex.EncodeToString(h.Sum(nil)), nil
}

// Build compiles the bundle and writes it with its manifest.
func (c *Compiler) Build(includes []string) (*Result, error) {
	sources, err := c.Collect(includes)
	if err != nil {
		return nil, err
	}
	now := store.Timestamp(c.Now())
	text, digest, err := c.Compile(sources, now)
	if err != nil {
		return nil, err
	}
	manifest := Manifest{
		BundleKind:    Kind,
		SchemaVersion: SchemaVersion,
		GeneratedAt:   now,
		OutFile:       cleanRel(c.Out),
		Hash:          digest,
		Sources:       sources,
	}
	if manifest.Sources == nil {
		manifest.Sources = []string{}
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, err
	}

	for _, p := range []string{c.abs(c.Out), c.abs(c.Meta)} {
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			return nil, fmt.Errorf("creating bundle directory: %w", err)
		}
	}
	if err := store.WriteFileAtomic(c.abs(c.Out), []byte(text), 0644); err != nil {
		return nil, fmt.Errorf("writing bundle: %w", err)
	}
	if err := store.WriteFileAtomic(c.abs(c.Meta), append(data, '\n'), 0644); err != nil {
		return nil, fmt.Errorf("writing bundle manifest: %w", err)
	}
	return &Result{
		Message:  "Built context bundle: " + c.Out,
		OutFile:  c.Out,
		MetaFile: c.Meta,
		Hash:     digest,
		Sources:  manifest.Sources,
	}, nil
}

// ReadManifest returns the manifest, or nil when it is absent or malformed.
func (c *Compiler) ReadManifest() *Manifest {
	data, err := os.ReadFile(c.abs(c.Meta))
	if err != nil {
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return nil
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	if _, ok := raw["sources"]; !ok || m.Sources == nil {
		return nil
	}
	return &m
}

// Check compares the recorded digest with one recomputed from the sources
// listed in the manifest. It never writes.
func (c *Compiler) Check() (*Result, error) {
	res := &Result{OutFile: c.Out, MetaFile: c.Meta}
	m := c.ReadManifest()
	if !isFile(c.abs(c.Out)) || m == nil {
		res.Status = StatusMissing
		res.Message = "Context bundle is missing or metadata invalid"
		return res, nil
	}
	for _, src := range m.Sources {
		rel, err := c.relInside(src)
		if err != nil || !isFile(c.abs(rel)) {
			res.Status = StatusStale
			res.Message = "Context bundle stale: missing source " + src
			return res, nil
		}
	}
	_, digest, err := c.Compile(m.Sources, m.GeneratedAt)
	if err != nil {
		return nil, err
	}
	res.Hash = digest
	if digest == m.Hash {
		res.Status = StatusOK
		res.Message = "Context bundle is up to date"
	} else {
		res.Status = StatusStale
		res.Message = "Context bundle is stale"
	}
	return res, nil
}

// Show summarises the compiled bundle.
func (c *Compiler) Show() (*Result, error) {
	if !isFile(c.abs(c.Out)) {
		return nil, errs.NotFoundf("context bundle not found: %s", c.Out)
	}
	res := &Result{Message: "Context bundle: " + c.Out, OutFile: c.Out, MetaFile: c.Meta}
	if m := c.ReadManifest(); m != nil {
		n := len(m.Sources)
		res.Hash = m.Hash
		res.SourceCount = &n
	}
	return res, nil
}

// Content returns the compiled bundle text.
func (c *Compiler) Content() ([]byte, error) {
	data, err := os.ReadFile(c.abs(c.Out))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errs.NotFoundf("context bundle not found: %s", c.Out)
	}
	return data, err
}

func markdownFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), ".md") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func cleanRel(p string) string {
	return strings.TrimPrefix(filepath.ToSlash(filepath.Clean(filepath.FromSlash(p))), "./")
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}
