package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Required scalar keys per document kind.
var (
	DirectiveRequired = []string{
		"id", "directive_slug", "title", "summary", "status", "priority", "session_priority",
		"directive_branch", "directive_base_branch", "directive_merge_status", "commit_policy",
	}
	TaskMetaRequired = []string{
		"id", "title", "status", "priority", "session_priority", "summary",
		"execution_model", "thinking_level",
	}
	TaskListFields  = []string{"constraints", "allowed_files", "steps", "expected_output", "stop_conditions"}
	HandoffRequired = []string{
		"from_role", "to_role", "trigger", "session_id", "directive_branch",
		"objective", "blocking_rule", "worktree_mode",
	}
)

// decodeObject parses data as a JSON object, keeping numbers as json.Number.
func decodeObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("invalid JSON: trailing data after document")
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("JSON root must be an object")
	}
	return obj, nil
}

func isScalar(v any) bool {
	switch v.(type) {
	case nil, string, bool, json.Number, float64:
		return true
	}
	return false
}

func object(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func checkScalars(section string, obj map[string]any, required []string) []string {
	var problems []string
	for _, key := range required {
		v, ok := obj[key]
		switch {
		case !ok:
			problems = append(problems, fmt.Sprintf("missing %s.%s", section, key))
		case !isScalar(v):
			problems = append(problems, fmt.Sprintf("%s.%s must be scalar", section, key))
		}
	}
	return problems
}

// CheckDirective returns every schema problem in a decoded metadata document.
func CheckDirective(doc map[string]any) []string {
	meta, ok := object(doc["meta"])
	if !ok {
		return []string{"missing top-level meta object"}
	}
	problems := checkScalars("meta", meta, DirectiveRequired)
	if id, _ := meta["id"].(string); !IsUUID(id) {
		problems = append(problems, "meta.id must be a UUID")
	}
	if slug, _ := meta["directive_slug"].(string); !IsSlug(slug) {
		problems = append(problems, "meta.directive_slug must be a lowercase hyphenated slug")
	}
	return problems
}

// CheckTask returns every schema problem in a decoded task document.
func CheckTask(doc map[string]any) []string {
	var problems []string
	meta, metaOK := object(doc["meta"])
	if !metaOK {
		problems = append(problems, "missing top-level meta object")
	}
	task, taskOK := object(doc["task"])
	if !taskOK {
		problems = append(problems, "missing top-level task object")
	}
	if len(problems) > 0 {
		return problems
	}

	problems = checkScalars("meta", meta, TaskMetaRequired)
	if id, _ := meta["id"].(string); !IsUUID(id) {
		problems = append(problems, "meta.id must be a UUID")
	}
	if obj, _ := task["objective"].(string); strings.TrimSpace(obj) == "" {
		problems = append(problems, "task.objective must be non-empty text")
	}
	for _, key := range TaskListFields {
		if list, ok := task[key].([]any); !ok || len(list) == 0 {
			problems = append(problems, fmt.Sprintf("task.%s must be a non-empty array", key))
		}
	}
	validation, ok := object(task["validation"])
	if !ok {
		problems = append(problems, "task.validation must be an object")
	} else if cmds, ok := validation["commands"].([]any); !ok || len(cmds) == 0 {
		problems = append(problems, "task.validation.commands must be a non-empty array")
	}
	return problems
}

// CheckHandoff returns every schema problem in a decoded handoff document.
// Role and mode values are checked by the handoff package.
func CheckHandoff(doc map[string]any) []string {
	h, ok := object(doc["handoff"])
	if !ok {
		return []string{"missing top-level handoff object"}
	}
	var problems []string
	for _, key := range HandoffRequired {
		if s, ok := h[key].(string); !ok || strings.TrimSpace(s) == "" {
			problems = append(problems, fmt.Sprintf("handoff.%s must be a non-empty string", key))
		}
	}
	if _, ok := h["worktree_allowlist_paths"].([]any); !ok {
		problems = append(problems, "handoff.worktree_allowlist_paths must be an array")
	}
	if tf, ok := h["task_file"]; ok && tf != nil {
		if _, isStr := tf.(string); !isStr {
			problems = append(problems, "handoff.task_file must be a string or null")
		}
	}
	return problems
}
