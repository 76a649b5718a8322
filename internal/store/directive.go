package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"

	"github.com/jorge-barreto/dc/internal/errs"
)

const KindDirective = "directive_session_meta"

const (
	StatusTodo     = "todo"
	StatusArchived = "archived"
	BucketActive   = "active"
	BucketArchived = "archived"
)

// DirectiveDoc is the <slug>.meta.json document of a session.
type DirectiveDoc struct {
	Kind          string        `json:"kind"`
	SchemaVersion string        `json:"schema_version"`
	Meta          DirectiveMeta `json:"meta"`
}

// DirectiveMeta holds a directive's metadata. Keys this type does not know
// about are kept in Extra and written back unchanged.
type DirectiveMeta struct {
	ID                   string   `json:"id"`
	DirectiveSlug        string   `json:"directive_slug"`
	Status               string   `json:"status"`
	Owner                string   `json:"owner"`
	Assignee             *string  `json:"assignee"`
	Priority             string   `json:"priority"`
	SessionPriority      string   `json:"session_priority"`
	AutoRun              bool     `json:"auto_run"`
	Tags                 []string `json:"tags"`
	Created              string   `json:"created"`
	Updated              string   `json:"updated"`
	Bucket               string   `json:"bucket"`
	Scope                string   `json:"scope"`
	Source               string   `json:"source"`
	Effort               string   `json:"effort"`
	DependsOn            []string `json:"depends_on"`
	BlockedBy            []string `json:"blocked_by"`
	Related              []string `json:"related"`
	Title                string   `json:"title"`
	Summary              string   `json:"summary"`
	Goals                []string `json:"goals"`
	DirectiveBranch      string   `json:"directive_branch"`
	DirectiveBaseBranch  string   `json:"directive_base_branch"`
	DirectiveMergeStatus string   `json:"directive_merge_status"`
	CommitPolicy         string   `json:"commit_policy"`

	Extra map[string]json.RawMessage `json:"-"`
}

var directiveMetaKeys = jsonKeys(reflect.TypeOf(DirectiveMeta{}))

func (m *DirectiveMeta) UnmarshalJSON(data []byte) error {
	type plain DirectiveMeta
	if err := json.Unmarshal(data, (*plain)(m)); err != nil {
		return err
	}
	extra, err := splitExtra(data, directiveMetaKeys)
	if err != nil {
		return err
	}
	m.Extra = extra
	return nil
}

func (m DirectiveMeta) MarshalJSON() ([]byte, error) {
	type plain DirectiveMeta
	return marshalWithExtra(plain(m), m.Extra)
}

// IsArchived reports statuses that hide a directive from default listings.
func IsArchived(status string) bool {
	switch status {
	case StatusArchived, "done", "completed", "cancelled":
		return true
	}
	return false
}

// Encode renders the document as it would be written.
func (d *DirectiveDoc) Encode() ([]byte, error) {
	return encode(d, CheckDirective)
}

// ReadDirective loads and schema-checks a metadata document.
func ReadDirective(path string) (*DirectiveDoc, error) {
	var doc DirectiveDoc
	if err := read(path, CheckDirective, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// WriteDirective replaces path with doc in one atomic step.
func WriteDirective(path string, doc *DirectiveDoc) error {
	data, err := doc.Encode()
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data, 0644)
}

// CreateDirective writes doc to path, failing if path exists.
func CreateDirective(path string, doc *DirectiveDoc) error {
	data, err := doc.Encode()
	if err != nil {
		return err
	}
	return writeNew(path, data)
}

// PeekDirective decodes the meta object of a metadata document without the
// schema check. Listings and scans use it so one malformed session does not
// hide the rest.
func PeekDirective(path string) (*DirectiveMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc struct {
		Meta *DirectiveMeta `json:"meta"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Meta == nil {
		return nil, errs.Validationf("%s: missing top-level meta object", filepath.Base(path))
	}
	return doc.Meta, nil
}
