// Package session resolves session tokens to directories under the directive
// root and guards the root against duplicate sessions.
package session

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jorge-barreto/dc/internal/errs"
	"github.com/jorge-barreto/dc/internal/store"
)

// Root is the directive root holding one directory per session.
type Root struct {
	Dir string
}

func NewRoot(dir string) *Root {
	return &Root{Dir: filepath.Clean(dir)}
}

// Info describes one session directory. Meta is nil when the directory has
// no single readable metadata document; MetaErr says why.
type Info struct {
	Name     string
	Dir      string
	MetaPath string
	Meta     *store.DirectiveMeta
	MetaErr  error
}

// List returns every top-level session directory, sorted by name. A missing
// root has no sessions.
func (r *Root) List() ([]Info, error) {
	entries, err := os.ReadDir(r.Dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var out []Info
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info := Info{Name: e.Name(), Dir: filepath.Join(r.Dir, e.Name())}
		info.MetaPath, info.MetaErr = store.FindMetaFile(info.Dir)
		if info.MetaErr == nil {
			info.Meta, info.MetaErr = store.PeekDirective(info.MetaPath)
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Resolve maps a session token, either a directory name or a session UUID,
// to the session's directory.
func (r *Root) Resolve(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errs.Validationf("missing session identifier: pass --session (directory name or session UUID)")
	}
	if err := checkToken(token); err != nil {
		return "", err
	}

	exact := filepath.Join(r.Dir, token)
	if err := AssertInside(r.Dir, exact); err != nil {
		return "", err
	}
	if info, err := os.Stat(exact); err == nil && info.IsDir() {
		if err := assertRealInside(r.Dir, exact); err != nil {
			return "", err
		}
		return exact, nil
	}

	sessions, err := r.List()
	if err != nil {
		return "", err
	}
	var matches []string
	for _, s := range sessions {
		if s.Meta != nil && strings.EqualFold(s.Meta.ID, token) {
			matches = append(matches, s.Dir)
		}
	}
	switch len(matches) {
	case 0:
		return "", errs.NotFoundf("session not found: %s", token)
	case 1:
		if err := AssertInside(r.Dir, matches[0]); err != nil {
			return "", err
		}
		return matches[0], nil
	default:
		names := make([]string, len(matches))
		for i, m := range matches {
			names[i] = filepath.Base(m)
		}
		return "", errs.Ambiguousf("session id %s is ambiguous across directories: %s", token, strings.Join(names, ", "))
	}
}

// Load resolves token and reads the session's metadata document.
func (r *Root) Load(token string) (*Info, *store.DirectiveDoc, error) {
	dir, err := r.Resolve(token)
	if err != nil {
		return nil, nil, err
	}
	metaPath, err := store.FindMetaFile(dir)
	if err != nil {
		return nil, nil, err
	}
	if err := AssertInside(dir, metaPath); err != nil {
		return nil, nil, err
	}
	doc, err := store.ReadDirective(metaPath)
	if err != nil {
		return nil, nil, err
	}
	return &Info{Name: filepath.Base(dir), Dir: dir, MetaPath: metaPath, Meta: &doc.Meta}, doc, nil
}

// CheckUnique fails when an existing session already uses id or a title that
// normalizes to the same slug.
func (r *Root) CheckUnique(id, title string) error {
	sessions, err := r.List()
	if err != nil {
		return err
	}
	norm := NormalizeTitle(title)
	for _, s := range sessions {
		if s.Meta == nil {
			continue
		}
		if id != "" && strings.EqualFold(s.Meta.ID, id) {
			return errs.Validationf("directive UUID already exists in another session directory: %s", s.Name)
		}
		if norm != "" && NormalizeTitle(s.Meta.Title) == norm {
			return errs.Validationf("directive title already exists: %q (session: %s)", s.Meta.Title, s.Name)
		}
	}
	return nil
}

func checkToken(token string) error {
	if filepath.IsAbs(token) || strings.ContainsAny(token, `/\`) || strings.Contains(token, "..") || token == "." {
		return errs.PathEscapef("invalid session identifier %q: must be a directory name or UUID", token)
	}
	return nil
}

// AssertInside fails unless target is base or a descendant of it.
func AssertInside(base, target string) error {
	b, err := filepath.Abs(base)
	if err != nil {
		return err
	}
	t, err := filepath.Abs(target)
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(b, t)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return errs.PathEscapef("resolved path escapes %s: %s", base, target)
	}
	return nil
}

// assertRealInside is AssertInside after following symlinks on both sides.
func assertRealInside(base, target string) error {
	b, err := filepath.EvalSymlinks(base)
	if err != nil {
		return err
	}
	t, err := filepath.EvalSymlinks(target)
	if err != nil {
		return err
	}
	if err := AssertInside(b, t); err != nil {
		return errs.PathEscapef("session directory %s resolves outside %s", target, base)
	}
	return nil
}

// ResolveTaskFile maps a task reference, a slug or a full task file name, to
// an existing task document in sessionDir.
func ResolveTaskFile(sessionDir, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	name := ref
	if !strings.HasSuffix(name, store.TaskSuffix) {
		name = store.TaskFileName(name)
	}
	if !store.IsTaskFile(name) {
		return "", errs.Validationf("invalid task reference %q: expected <slug> or <slug>%s", ref, store.TaskSuffix)
	}
	path := filepath.Join(sessionDir, name)
	if err := AssertInside(sessionDir, path); err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err != nil {
		return "", errs.NotFoundf("task file not found in session %s: %s", filepath.Base(sessionDir), name)
	}
	return path, nil
}
