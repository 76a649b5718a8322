package handoff

import (
	"strings"

	"github.com/jorge-barreto/dc/internal/errs"
)

// Role is the acting party for a workflow step.
type Role string

const (
	Architect Role = "architect"
	Executor  Role = "executor"
	Pair      Role = "pair"
	Auditor   Role = "auditor"
)

// Roles lists every role in display order.
var Roles = []Role{Architect, Executor, Pair, Auditor}

// ParseRole accepts a role name in any case.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case Architect, Executor, Pair, Auditor:
		return r, nil
	}
	return "", errs.Validationf("invalid role %q: expected one of architect, executor, pair, auditor", s)
}

// Counterpart is the default receiver of a handoff sent by r.
func (r Role) Counterpart() Role {
	if r == Architect {
		return Executor
	}
	return Architect
}

// WorktreeMode declares what working-tree state the receiver may start from.
type WorktreeMode string

const (
	CleanRequired       WorktreeMode = "clean_required"
	KnownDirtyAllowlist WorktreeMode = "known_dirty_allowlist"
)

var WorktreeModes = []WorktreeMode{CleanRequired, KnownDirtyAllowlist}

func ParseWorktreeMode(s string) (WorktreeMode, error) {
	switch m := WorktreeMode(strings.TrimSpace(s)); m {
	case CleanRequired, KnownDirtyAllowlist:
		return m, nil
	}
	return "", errs.Validationf("invalid worktree mode %q: expected clean_required or known_dirty_allowlist", s)
}

// DefaultObjective is the canned objective for a handoff to to.
func DefaultObjective(to Role) string {
	switch to {
	case Executor:
		return "Execute approved directive tasks strictly via dc lifecycle tooling, not ad hoc edits."
	case Architect:
		return "Review the handed-back work and plan the next directive scope under role 'architect'."
	case Pair:
		return "Continue directive lifecycle under role 'pair'."
	case Auditor:
		return "Audit completed directive work against its task contracts under role 'auditor'."
	}
	return ""
}

// DefaultBlockingRule is the canned rule that stops the sender.
func DefaultBlockingRule(from, to Role) string {
	switch to {
	case Executor:
		return "Role '" + string(from) + "' must stop implementation and transfer control to executor."
	case Architect, Pair, Auditor:
		return "Sender role '" + string(from) + "' must stop until role '" + string(to) + "' takes control."
	}
	return ""
}
