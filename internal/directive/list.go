package directive

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jorge-barreto/dc/internal/errs"
	"github.com/jorge-barreto/dc/internal/session"
	"github.com/jorge-barreto/dc/internal/store"
	"github.com/jorge-barreto/dc/internal/ux"
)

// ListOptions selects the columns and sessions of a listing.
type ListOptions struct {
	Mode            string
	Fields          []string
	IncludeArchived bool
}

// Listing is the result of List, also emitted as JSON.
type Listing struct {
	DirectivesRoot string   `json:"directives_root"`
	Count          int      `json:"count"`
	Mode           string   `json:"mode"`
	Fields         []string `json:"fields"`
	Rows           []ux.Row `json:"rows"`
}

var ultraColumns = []string{
	"priority", "session_priority", "owner", "assignee", "bucket",
	"directive_branch", "directive_base_branch", "commit_policy",
}

// ParseMode accepts compact, detailed and detailed-ultra. Blank means compact.
func ParseMode(m string) (string, error) {
	switch m = strings.ToLower(strings.TrimSpace(m)); m {
	case "":
		return ux.ModeCompact, nil
	case ux.ModeCompact, ux.ModeDetailed, ux.ModeDetailedUltra:
		return m, nil
	}
	return "", errs.Validationf("invalid list mode %q (expected compact, detailed or detailed-ultra)", m)
}

// List returns one row per session holding a metadata document. Sessions
// with an archived status are skipped unless opts.IncludeArchived.
func List(root *session.Root, opts ListOptions) (*Listing, error) {
	mode, err := ParseMode(opts.Mode)
	if err != nil {
		return nil, err
	}
	sessions, err := root.List()
	if err != nil {
		return nil, err
	}
	listing := &Listing{
		DirectivesRoot: filepath.ToSlash(root.Dir),
		Mode:           mode,
		Fields:         nonEmpty(opts.Fields),
		Rows:           []ux.Row{},
	}
	for _, s := range sessions {
		if s.MetaPath == "" {
			continue
		}
		meta := metaMap(s.Meta)
		status := field(meta, "status", "open")
		if !opts.IncludeArchived && store.IsArchived(status) {
			continue
		}
		listing.Rows = append(listing.Rows, row(s, meta, status, mode, listing.Fields))
	}
	listing.Count = len(listing.Rows)
	return listing, nil
}

func row(s session.Info, meta map[string]any, status, mode string, fields []string) ux.Row {
	r := ux.Row{Values: map[string]string{}}
	add := func(col, val string) {
		if _, ok := r.Values[col]; !ok {
			r.Columns = append(r.Columns, col)
		}
		r.Values[col] = val
	}
	title := field(meta, "title", "")
	if title == "" {
		title = or(humanize(store.SlugFromFile(filepath.Base(s.MetaPath))), humanize(s.Name))
	}
	add("session", s.Name)
	add("status", status)
	add("title", title)
	if mode == ux.ModeDetailed || mode == ux.ModeDetailedUltra {
		add("created", field(meta, "created", "-"))
		add("updated", field(meta, "updated", "-"))
	}
	if mode == ux.ModeDetailedUltra {
		for _, c := range ultraColumns {
			add(c, FieldValue(meta, c))
		}
	}
	for _, f := range fields {
		add(f, FieldValue(meta, f))
	}
	return r
}

// metaMap flattens meta to its JSON object form so any key, including
// unknown ones, can be looked up.
func metaMap(meta *store.DirectiveMeta) map[string]any {
	if meta == nil {
		return nil
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil
	}
	return m
}

func field(meta map[string]any, key, def string) string {
	if v := FieldValue(meta, key); v != "-" {
		return v
	}
	return def
}

// FieldValue formats a metadata value for display: "-" when missing, null
// or empty, arrays joined by commas.
func FieldValue(meta map[string]any, key string) string {
	v, ok := meta[key]
	if !ok || v == nil {
		return "-"
	}
	switch t := v.(type) {
	case string:
		if t == "" {
			return "-"
		}
		return t
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = fmt.Sprint(e)
		}
		return strings.Join(parts, ",")
	case map[string]any:
		data, _ := json.Marshal(t)
		return string(data)
	}
	return fmt.Sprint(v)
}

func humanize(s string) string {
	s = strings.NewReplacer("-", " ", "_", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

func nonEmpty(in []string) []string {
	out := []string{}
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
