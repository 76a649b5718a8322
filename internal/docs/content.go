package docs

var topics = []Topic{
	{
		Name:    "quickstart",
		Title:   "Quick Start",
		Summary: "Getting started with dc",
		Content: topicQuickstart,
	},
	{
		Name:    "layout",
		Title:   "Session Layout",
		Summary: "Directive root, session directories, and document files",
		Content: topicLayout,
	},
	{
		Name:    "config",
		Title:   "Configuration Reference",
		Summary: "Config file keys and defaults",
		Content: topicConfig,
	},
	{
		Name:    "handoff",
		Title:   "Role Handoffs",
		Summary: "Transferring control between architect, executor, pair, and auditor",
		Content: topicHandoff,
	},
	{
		Name:    "lifecycle",
		Title:   "Archive and Cleanup",
		Summary: "Archiving directives and the advisory branch cleanup",
		Content: topicLifecycle,
	},
	{
		Name:    "validate",
		Title:   "Validation Rules",
		Summary: "What dc validate checks",
		Content: topicValidate,
	},
	{
		Name:    "context",
		Title:   "Context Bundle",
		Summary: "Compiling agent rules into one bundle and checking freshness",
		Content: topicContext,
	},
}

const topicQuickstart = "# Quick Start\n\n" +
	"1. Initialize the project:\n\n" +
	"       dc init\n\n" +
	"   This writes `.directive-cli/config.yaml` and creates the directive root.\n\n" +
	"2. Create a directive session:\n\n" +
	"       dc directive new --title \"Add retry budget\" --summary \"Bound client retries\"\n\n" +
	"   The session directory is named `YY-MM-DD_<slug>` and holds `<slug>.meta.json`.\n\n" +
	"3. Add a task:\n\n" +
	"       dc task new --session <session-or-uuid> --title \"Wire retry budget\"\n\n" +
	"4. Hand control to the executor:\n\n" +
	"       dc handoff --session <session-or-uuid>\n\n" +
	"5. Check the tree:\n\n" +
	"       dc validate --verbose\n\n" +
	"Every write command accepts `--dry-run`, which prints the document instead of writing it.\n" +
	"dc never runs git commands that change state. Commits, merges, and branch deletion stay with the operator.\n"

const topicLayout = "# Session Layout\n\n" +
	"All state lives in files under the directive root (`directives-root` in the config).\n\n" +
	"```\n" +
	"<directives-root>/\n" +
	"  26-03-04_add-retry-budget/\n" +
	"    add-retry-budget.meta.json      directive metadata (exactly one)\n" +
	"    wire-retry.task.json            task documents (any number)\n" +
	"    add-retry-budget.handoff.json   latest handoff (at most one)\n" +
	"```\n\n" +
	"A session is addressed by its directory name or by `meta.id`. Tokens containing path\n" +
	"separators or `..` are rejected.\n\n" +
	"Legacy names (`SESSION.md`, `HANDOFF.json`, `README.md`, `TASK_*.md`, ...) fail validation.\n\n" +
	"Metadata keys dc does not know are preserved when dc rewrites a document.\n"

const topicConfig = "# Configuration Reference\n\n" +
	"`.directive-cli/config.yaml`; a missing file means defaults.\n\n" +
	"```yaml\n" +
	"directives-root: apps/web/.local/directives\n" +
	"base-branch: dev\n" +
	"required-reading: apps/web/docs/guides/component-paradigm.md\n" +
	"startup-context-dir: .codex/context\n" +
	"allowed-dirty-prefixes:\n" +
	"  - .codex/context/\n" +
	"  - .directive-cli/state/\n" +
	"context-bundle:\n" +
	"  out: .codex/context/compiled.md\n" +
	"  meta: .codex/context/compiled.meta.json\n" +
	"  sources: [AGENTS.md, apps/web/docs/guides/component-paradigm.md]\n" +
	"  rule-dirs: [docs/agent-rules/shared, docs/agent-rules/architect]\n" +
	"```\n\n" +
	"Every path is relative to the project root and may not contain `..`.\n\n" +
	"Environment: `DC_ROLE` supplies the sender role and `DC_DIRECTIVE_SESSION` the session\n" +
	"for `dc handoff` when flags are absent.\n"

const topicHandoff = "# Role Handoffs\n\n" +
	"Roles: `architect`, `executor`, `pair`, `auditor`.\n\n" +
	"`dc handoff` writes `<directive_slug>.handoff.json` in the session, replacing any earlier record.\n\n" +
	"Defaults:\n\n" +
	"- from-role: the latest startup context, then `DC_ROLE`, then `architect`\n" +
	"- to-role: `executor` from an architect, otherwise `architect`\n" +
	"- trigger: `<from>_to_<to>_handoff`\n" +
	"- task file: the startup context task, if it exists in the session\n\n" +
	"Worktree modes:\n\n" +
	"- `clean_required`: the receiver expects a clean tree; the allowlist is always empty\n" +
	"- `known_dirty_allowlist`: requires one or more `--allowlist-path` entries\n\n" +
	"The directive branch comes from `--directive-branch` or `meta.directive_branch`.\n\n" +
	"With no session from `--session`, `DC_DIRECTIVE_SESSION`, or the startup context, an\n" +
	"interactive terminal offers a session picker. `--no-prompt` turns the picker off.\n"

const topicLifecycle = "# Archive and Cleanup\n\n" +
	"`dc directive archive --session S` sets status and bucket to `archived` in one atomic write.\n" +
	"It refuses an already archived directive and a dirty working tree. Changes under\n" +
	"`allowed-dirty-prefixes` and inside the session itself are tolerated by archive only.\n\n" +
	"`dc directive cleanup --session S` is advisory. It checks that:\n\n" +
	"1. the directive branch is not the base branch\n" +
	"2. the working tree is fully clean, allowed prefixes included, and the base branch is checked out\n" +
	"3. the branch is merged into the base branch\n\n" +
	"and then prints the `git branch -d` command to run. dc never deletes branches.\n"

const topicValidate = "# Validation Rules\n\n" +
	"`dc validate` checks every session, or the sessions owning `--file` arguments.\n\n" +
	"- exactly one `*.meta.json` and at most one `*.handoff.json` per session\n" +
	"- no legacy file names\n" +
	"- metadata: required scalar fields, UUID id, slug matching the file name\n" +
	"- tasks: required metadata, non-empty objective, lists, and `validation.commands`\n" +
	"- handoff: known roles and mode, allowlist rules, `session_id` equal to `meta.id`\n" +
	"- no two sessions share an id or a normalized title\n\n" +
	"All problems are reported together; the exit status is non-zero if there is any.\n"

const topicContext = "# Context Bundle\n\n" +
	"`dc context build` concatenates the configured sources, then the `*.md` files of each\n" +
	"rule directory in name order, then `--include` files, into `context-bundle.out`. A manifest\n" +
	"with the SHA-256 digest of the sources is written to `context-bundle.meta`.\n\n" +
	"`dc context check` recomputes the digest and reports `ok`, `stale`, or `missing`. It never writes.\n\n" +
	"`dc context show` summarises the manifest; `--print` writes the compiled bundle.\n"
