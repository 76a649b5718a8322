package store

// HandoffDoc is a session's <slug>.handoff.json document.
type HandoffDoc struct {
	Handoff HandoffRecord `json:"handoff"`
}

type HandoffRecord struct {
	FromRole               string   `json:"from_role"`
	ToRole                 string   `json:"to_role"`
	Trigger                string   `json:"trigger"`
	SessionID              string   `json:"session_id"`
	TaskFile               *string  `json:"task_file"`
	DirectiveBranch        string   `json:"directive_branch"`
	RequiredReading        string   `json:"required_reading"`
	Objective              string   `json:"objective"`
	BlockingRule           string   `json:"blocking_rule"`
	WorktreeMode           string   `json:"worktree_mode"`
	WorktreeAllowlistPaths []string `json:"worktree_allowlist_paths"`
}

func (d *HandoffDoc) Encode() ([]byte, error) {
	if d.Handoff.WorktreeAllowlistPaths == nil {
		d.Handoff.WorktreeAllowlistPaths = []string{}
	}
	return encode(d, CheckHandoff)
}

func ReadHandoff(path string) (*HandoffDoc, error) {
	var doc HandoffDoc
	if err := read(path, CheckHandoff, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// WriteHandoff writes doc to path, replacing any earlier record.
func WriteHandoff(path string, doc *HandoffDoc) error {
	data, err := doc.Encode()
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data, 0644)
}
