// Package startup reads the startup-context records written when an agent
// session starts, and turns them into handoff defaults.
package startup

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jorge-barreto/dc/internal/handoff"
)

const (
	Kind   = "dc_startup_context"
	Suffix = ".startup.json"
)

// Context is the subset of a startup record used for defaulting.
type Context struct {
	Kind      string     `json:"kind"`
	Role      string     `json:"role"`
	Directive *Directive `json:"directive"`
	Task      *Task      `json:"task"`

	Path string `json:"-"`
}

type Directive struct {
	Session string `json:"session"`
	Slug    string `json:"slug"`
}

type Task struct {
	Slug string `json:"slug"`
	File string `json:"file"`
}

func (c *Context) session() string {
	if c == nil || c.Directive == nil {
		return ""
	}
	return strings.TrimSpace(c.Directive.Session)
}

// Latest returns the most recently modified startup record in dir,
// preferring one whose directive session equals preferredSession. Unreadable
// files and other kinds are skipped. It returns nil when there is none.
func Latest(dir, preferredSession string) *Context {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	type candidate struct {
		ctx   *Context
		mtime int64
	}
	var found []candidate
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.HasSuffix(e.Name(), Suffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var c Context
		if json.Unmarshal(data, &c) != nil || c.Kind != Kind {
			continue
		}
		c.Path = path
		found = append(found, candidate{ctx: &c, mtime: info.ModTime().UnixNano()})
	}
	if len(found) == 0 {
		return nil
	}
	sort.SliceStable(found, func(i, j int) bool {
		if found[i].mtime != found[j].mtime {
			return found[i].mtime > found[j].mtime
		}
		return found[i].ctx.Path < found[j].ctx.Path
	})

	preferredSession = strings.TrimSpace(preferredSession)
	if preferredSession != "" {
		for _, c := range found {
			if c.ctx.session() == preferredSession {
				return c.ctx
			}
		}
	}
	return found[0].ctx
}

// Provider implements handoff.DefaultsProvider from a startup-context
// directory plus the DC_ROLE and DC_DIRECTIVE_SESSION signals, passed in by
// the caller.
type Provider struct {
	Dir        string
	EnvRole    string
	EnvSession string
}

func (p Provider) Defaults(preferredSession string) handoff.Defaults {
	if preferredSession == "" {
		preferredSession = strings.TrimSpace(p.EnvSession)
	}
	ctx := Latest(p.Dir, preferredSession)

	var d handoff.Defaults
	if ctx != nil {
		if _, err := handoff.ParseRole(ctx.Role); err == nil {
			d.Role = ctx.Role
		}
		if ctx.Task != nil {
			d.TaskSlug = strings.TrimSpace(ctx.Task.Slug)
		}
	}
	if d.Role == "" {
		if _, err := handoff.ParseRole(p.EnvRole); err == nil {
			d.Role = p.EnvRole
		}
	}
	d.Session = strings.TrimSpace(p.EnvSession)
	if d.Session == "" {
		d.Session = ctx.session()
	}
	return d
}
