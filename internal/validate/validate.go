// Package validate checks session directories and their documents, and
// aggregates every problem into one report.
package validate

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jorge-barreto/dc/internal/handoff"
	"github.com/jorge-barreto/dc/internal/session"
	"github.com/jorge-barreto/dc/internal/store"
	"github.com/jorge-barreto/dc/internal/ux"
)

// FileResult is the outcome for one document.
type FileResult struct {
	Name   string
	OK     bool
	Errors []string
}

// SessionResult is the outcome for one session directory. Errors holds
// every problem in the session, including those of its files.
type SessionResult struct {
	Name   string
	Dir    string
	Files  []FileResult
	Errors []string

	id    string
	title string
}

func (s *SessionResult) OK() bool { return len(s.Errors) == 0 }

// Report aggregates all sessions. Errors is the global list: session-level
// and file-level problems plus problems that belong to no session.
type Report struct {
	Sessions []SessionResult
	Errors   []string
}

func (r *Report) OK() bool { return len(r.Errors) == 0 }

// Validator checks sessions under Root.
type Validator struct {
	Root *session.Root
	// Base resolves relative paths given to Run. Defaults to the working
	// directory.
	Base string
}

// Run validates the sessions owning files, or every session when files is
// empty.
func (v *Validator) Run(files []string) (*Report, error) {
	report := &Report{}
	var dirs []string
	if len(files) == 0 {
		sessions, err := v.Root.List()
		if err != nil {
			return nil, err
		}
		for _, s := range sessions {
			dirs = append(dirs, s.Dir)
		}
	} else {
		seen := map[string]bool{}
		for _, f := range files {
			dir, err := v.sessionOf(f)
			if err != nil {
				report.Errors = append(report.Errors, err.Error())
				continue
			}
			if !seen[dir] {
				seen[dir] = true
				dirs = append(dirs, dir)
			}
		}
		sort.Strings(dirs)
	}

	results := make([]*SessionResult, 0, len(dirs))
	for _, dir := range dirs {
		res, err := checkSession(dir)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	checkDuplicates(results)
	for _, res := range results {
		report.Sessions = append(report.Sessions, *res)
		report.Errors = append(report.Errors, res.Errors...)
	}
	return report, nil
}

// checkDuplicates flags sessions reusing an id or normalized title already
// taken by an earlier session in the set.
func checkDuplicates(results []*SessionResult) {
	ids := map[string]string{}
	titles := map[string]string{}
	for _, res := range results {
		if res.id != "" {
			key := strings.ToLower(res.id)
			if first, ok := ids[key]; ok {
				res.Errors = append(res.Errors, fmt.Sprintf("%s: meta.id %s duplicates session %s", res.Name, res.id, first))
			} else {
				ids[key] = res.Name
			}
		}
		if norm := session.NormalizeTitle(res.title); norm != "" {
			if first, ok := titles[norm]; ok {
				res.Errors = append(res.Errors, fmt.Sprintf("%s: meta.title %q duplicates session %s", res.Name, res.title, first))
			} else {
				titles[norm] = res.Name
			}
		}
	}
}

// sessionOf maps a file path to the session directory that holds it.
func (v *Validator) sessionOf(file string) (string, error) {
	abs := file
	if !filepath.IsAbs(abs) {
		base := v.Base
		if base == "" {
			base, _ = os.Getwd()
		}
		abs = filepath.Join(base, file)
	}
	rootAbs, err := filepath.Abs(v.Root.Dir)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(rootAbs, filepath.Clean(abs))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: not inside the directive root", file)
	}
	parts := strings.Split(rel, string(filepath.Separator))
	if len(parts) < 2 {
		return "", fmt.Errorf("%s: not inside a session directory", file)
	}
	dir := filepath.Join(rootAbs, parts[0])
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return "", fmt.Errorf("%s: session directory %s does not exist", file, parts[0])
	}
	return dir, nil
}

func checkSession(dir string) (*SessionResult, error) {
	name := filepath.Base(dir)
	res := &SessionResult{Name: name, Dir: dir}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var metas, tasks, handoffs []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		n := e.Name()
		switch {
		case store.IsLegacyName(n):
			res.Errors = append(res.Errors, fmt.Sprintf("%s/%s: legacy file naming not allowed", name, n))
		case store.IsMetaFile(n):
			metas = append(metas, n)
		case store.IsTaskFile(n):
			tasks = append(tasks, n)
		case store.IsHandoffFile(n):
			handoffs = append(handoffs, n)
		}
	}
	if len(metas) != 1 {
		res.Errors = append(res.Errors, fmt.Sprintf("%s: expected exactly one metadata document, found %d", name, len(metas)))
	}
	if len(handoffs) > 1 {
		res.Errors = append(res.Errors, fmt.Sprintf("%s: expected at most one handoff document, found %d", name, len(handoffs)))
	}

	var owner *store.DirectiveDoc
	for _, n := range metas {
		problems := store.CheckFile(filepath.Join(dir, n), store.CheckDirective)
		if len(problems) == 0 {
			doc, err := store.ReadDirective(filepath.Join(dir, n))
			if err != nil {
				problems = append(problems, err.Error())
			} else {
				if doc.Meta.DirectiveSlug != store.SlugFromFile(n) {
					problems = append(problems, fmt.Sprintf("file name does not match meta.directive_slug %q", doc.Meta.DirectiveSlug))
				}
				if len(metas) == 1 {
					owner = doc
					res.id, res.title = doc.Meta.ID, doc.Meta.Title
				}
			}
		}
		res.addFile(n, problems)
	}
	for _, n := range tasks {
		res.addFile(n, store.CheckFile(filepath.Join(dir, n), store.CheckTask))
	}
	for _, n := range handoffs {
		res.addFile(n, checkHandoff(dir, n, owner))
	}
	return res, nil
}

func checkHandoff(dir, name string, owner *store.DirectiveDoc) []string {
	path := filepath.Join(dir, name)
	problems := store.CheckFile(path, store.CheckHandoff)
	if len(problems) > 0 {
		return problems
	}
	doc, err := store.ReadHandoff(path)
	if err != nil {
		return []string{err.Error()}
	}
	h := doc.Handoff
	if _, err := handoff.ParseRole(h.FromRole); err != nil {
		problems = append(problems, "handoff.from_role: "+err.Error())
	}
	if _, err := handoff.ParseRole(h.ToRole); err != nil {
		problems = append(problems, "handoff.to_role: "+err.Error())
	}
	mode, err := handoff.ParseWorktreeMode(h.WorktreeMode)
	switch {
	case err != nil:
		problems = append(problems, "handoff.worktree_mode: "+err.Error())
	case mode == handoff.CleanRequired && len(h.WorktreeAllowlistPaths) > 0:
		problems = append(problems, "handoff.worktree_allowlist_paths must be empty for clean_required")
	case mode == handoff.KnownDirtyAllowlist:
		if _, err := handoff.Allowlist(mode, h.WorktreeAllowlistPaths); err != nil {
			problems = append(problems, "handoff.worktree_allowlist_paths: "+err.Error())
		}
	}
	if owner != nil {
		if !strings.EqualFold(h.SessionID, owner.Meta.ID) {
			problems = append(problems, fmt.Sprintf("handoff.session_id %s does not match meta.id %s", h.SessionID, owner.Meta.ID))
		}
		if store.SlugFromFile(name) != owner.Meta.DirectiveSlug {
			problems = append(problems, fmt.Sprintf("file name does not match meta.directive_slug %q", owner.Meta.DirectiveSlug))
		}
	}
	if h.TaskFile != nil {
		if _, err := session.ResolveTaskFile(dir, *h.TaskFile); err != nil {
			problems = append(problems, "handoff.task_file: "+err.Error())
		}
	}
	return problems
}

func (s *SessionResult) addFile(name string, problems []string) {
	s.Files = append(s.Files, FileResult{Name: name, OK: len(problems) == 0, Errors: problems})
	for _, p := range problems {
		s.Errors = append(s.Errors, fmt.Sprintf("%s/%s: %s", s.Name, name, p))
	}
}

// Print writes the report. Verbose adds one line per session and per file,
// named by short names only. Errors and the failure summary go to errOut.
func (r *Report) Print(out, errOut io.Writer, verbose bool) {
	if verbose {
		for _, s := range r.Sessions {
			fmt.Fprintf(out, "%s session %s\n", ux.PassFail(s.OK()), s.Name)
			for _, f := range s.Files {
				fmt.Fprintf(out, "  %s %s\n", ux.PassFail(f.OK), f.Name)
			}
		}
	}
	if !r.OK() {
		for _, e := range r.Errors {
			fmt.Fprintln(errOut, e)
		}
		fmt.Fprintf(errOut, "%s %d error(s)\n", ux.Red("Validation failed:"), len(r.Errors))
		return
	}
	fmt.Fprintf(out, "%s %d session(s)\n", ux.Green("Validation passed:"), len(r.Sessions))
}
