package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	cli "github.com/urfave/cli/v3"

	"github.com/jorge-barreto/dc/internal/directive"
	"github.com/jorge-barreto/dc/internal/errs"
	"github.com/jorge-barreto/dc/internal/lifecycle"
	"github.com/jorge-barreto/dc/internal/prompt"
	"github.com/jorge-barreto/dc/internal/ux"
)

func directiveCmd() *cli.Command {
	return &cli.Command{
		Name:  "directive",
		Usage: "Create, list, archive, and clean up directive sessions",
		Commands: []*cli.Command{
			directiveNewCmd(),
			directiveListCmd(),
			directiveArchiveCmd(),
			directiveCleanupCmd(),
		},
	}
}

func directiveNewCmd() *cli.Command {
	return &cli.Command{
		Name:  "new",
		Usage: "Create a directive session and its metadata document",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "session", Usage: "Explicit session directory name (default: YY-MM-DD_<slug>)"},
			&cli.StringFlag{Name: "id", Aliases: []string{"guid"}, Usage: "Directive UUID (default: generated)"},
			&cli.StringFlag{Name: "directive-slug", Usage: "Slug for <slug>.meta.json (default: from title)"},
			&cli.StringFlag{Name: "title", Usage: "Directive title"},
			&cli.StringFlag{Name: "summary", Usage: "One-line summary"},
			&cli.StringSliceFlag{Name: "goal", Usage: "Directive goal (repeatable)"},
			&cli.StringFlag{Name: "branch-type", Usage: "feature|chore|hotfix|fix|release"},
			&cli.StringFlag{Name: "directive-branch", Usage: "Branch name (default: <branch-type>/<slug>)"},
			&cli.StringFlag{Name: "directive-base-branch", Usage: "Base branch (default: config base-branch)"},
			&cli.StringFlag{Name: "owner", Usage: "Owner (default: operator)"},
			&cli.StringFlag{Name: "assignee", Usage: "Assignee (default: none)"},
			&cli.StringFlag{Name: "priority", Usage: "urgent|high|medium|low (default: medium)"},
			&cli.StringFlag{Name: "session-priority", Usage: "urgent|high|medium|low (default: medium)"},
			&cli.StringFlag{Name: "effort", Usage: "small|medium|large (default: medium)"},
			&cli.StringFlag{Name: "commit-policy", Usage: "per_task|per_collection|end_of_directive"},
			&cli.StringFlag{Name: "source", Usage: "Metadata source (default: architect)"},
			&cli.StringFlag{Name: "scope", Usage: "Metadata scope (default: directives)"},
			noPromptFlag(),
			dryRunFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			p, err := loadProject()
			if err != nil {
				return err
			}
			req := directive.SessionRequest{
				Session:         cmd.String("session"),
				ID:              cmd.String("id"),
				Slug:            cmd.String("directive-slug"),
				Title:           cmd.String("title"),
				Summary:         cmd.String("summary"),
				Goals:           cmd.StringSlice("goal"),
				BranchType:      cmd.String("branch-type"),
				DirectiveBranch: cmd.String("directive-branch"),
				BaseBranch:      cmd.String("directive-base-branch"),
				Owner:           cmd.String("owner"),
				Assignee:        cmd.String("assignee"),
				Priority:        cmd.String("priority"),
				SessionPriority: cmd.String("session-priority"),
				Effort:          cmd.String("effort"),
				CommitPolicy:    cmd.String("commit-policy"),
				Source:          cmd.String("source"),
				Scope:           cmd.String("scope"),
			}
			if err := promptSession(prompt.New(cmd.Bool("no-prompt")), &req); err != nil {
				return err
			}
			c := &directive.Creator{Root: p.sessions(), BaseBranch: p.Config.BaseBranch}
			plan, err := c.PlanSession(req)
			if err != nil {
				return err
			}
			return plan.Persist(os.Stdout, cmd.Bool("dry-run"))
		},
	}
}

// promptSession asks for the values an operator usually types by hand.
func promptSession(pr prompt.Prompter, req *directive.SessionRequest) error {
	if !pr.Interactive() {
		return nil
	}
	var err error
	if req.Title == "" {
		if req.Title, err = pr.Input("Directive title", ""); err != nil {
			return err
		}
	}
	if req.Summary == "" {
		if req.Summary, err = pr.Input("Directive summary (one line)", ""); err != nil {
			return err
		}
	}
	if req.BranchType == "" && req.DirectiveBranch == "" {
		opts := make([]prompt.Option, 0, len(directive.BranchTypes))
		for _, t := range directive.BranchTypes {
			opts = append(opts, prompt.Option{Label: t, Value: t})
		}
		if req.BranchType, err = pr.Select("Branch type", opts, directive.DefaultBranchType); err != nil {
			return err
		}
	}
	if len(req.Goals) == 0 {
		if req.Goals, err = pr.Lines("Directive goals", nil); err != nil {
			return err
		}
	}
	return nil
}

func directiveListCmd() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List directive sessions",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mode", Usage: "compact|detailed|detailed-ultra"},
			&cli.BoolFlag{Name: "detailed", Usage: "Add created and updated columns"},
			&cli.BoolFlag{Name: "detailed-ultra", Usage: "Add priority, ownership, and branch columns"},
			&cli.StringSliceFlag{Name: "field", Usage: "Extra metadata key to show (repeatable)"},
			&cli.BoolFlag{Name: "include-archived", Usage: "Include archived, done, completed, and cancelled directives"},
			jsonFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			p, err := loadProject()
			if err != nil {
				return err
			}
			mode, err := directive.ParseMode(cmd.String("mode"))
			if err != nil {
				return err
			}
			switch {
			case cmd.Bool("detailed-ultra"):
				mode = ux.ModeDetailedUltra
			case cmd.Bool("detailed"):
				mode = ux.ModeDetailed
			}
			listing, err := directive.List(p.sessions(), directive.ListOptions{
				Mode:            mode,
				Fields:          cmd.StringSlice("field"),
				IncludeArchived: cmd.Bool("include-archived"),
			})
			if err != nil {
				return err
			}
			if cmd.Bool("json") {
				return printJSON(listing)
			}
			ux.RenderList(os.Stdout, listing.Mode, listing.Rows)
			return nil
		},
	}
}

func directiveArchiveCmd() *cli.Command {
	return &cli.Command{
		Name:  "archive",
		Usage: "Mark directives archived (repeatable --session, processed in order)",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "session", Aliases: []string{"guid"}, Usage: "Session name or UUID (repeatable, comma separated)"},
			noPromptFlag(),
			dryRunFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			p, err := loadProject()
			if err != nil {
				return err
			}
			pr := prompt.New(cmd.Bool("no-prompt"))
			dryRun := cmd.Bool("dry-run")

			tokens := splitValues(cmd.StringSlice("session"))
			if len(tokens) == 0 {
				token, err := selectSession(p, pr)
				if err != nil {
					return err
				}
				tokens = []string{token}
			}

			ctl := &lifecycle.Controller{
				Root:         p.sessions(),
				Git:          p.repo(),
				ProjectRoot:  p.Root,
				BaseBranch:   p.Config.BaseBranch,
				AllowedDirty: p.Config.AllowedDirtyPrefixes,
			}
			// Check every session before writing any, so one archive does not
			// dirty the tree for the next.
			plans := make([]*lifecycle.ArchivePlan, 0, len(tokens))
			for _, token := range tokens {
				ux.Log(os.Stdout, "DIR", "Directive archive: %s", token)
				plan, err := ctl.PlanArchive(ctx, token)
				if err != nil {
					return err
				}
				plans = append(plans, plan)
			}
			for _, plan := range plans {
				ux.Alert(os.Stdout, ux.LevelWarning, fmt.Sprintf("You are about to archive directive '%s'.", plan.Session))
				if !dryRun && pr.Interactive() {
					answer, err := pr.Input("Type 'archive' to confirm", "")
					if err != nil {
						return err
					}
					if strings.ToLower(strings.TrimSpace(answer)) != "archive" {
						return errs.Preconditionf("archive aborted by operator")
					}
				}
				if err := plan.Persist(os.Stdout, dryRun); err != nil {
					return err
				}
				if !dryRun {
					ux.Log(os.Stdout, "DIR", "Archived metadata in %s", plan.MetaPath)
				}
			}
			ux.Log(os.Stdout, "GIT", "No git actions executed by dc. Operator must commit/push/merge manually.")
			return nil
		},
	}
}

// selectSession asks the operator to pick a non-archived session.
func selectSession(p *project, pr prompt.Prompter) (string, error) {
	if !pr.Interactive() {
		return "", errs.Validationf("missing required --session")
	}
	listing, err := directive.List(p.sessions(), directive.ListOptions{})
	if err != nil {
		return "", err
	}
	if listing.Count == 0 {
		return "", errs.NotFoundf("no available non-archived directives found")
	}
	opts := make([]prompt.Option, 0, listing.Count)
	for _, r := range listing.Rows {
		label := fmt.Sprintf("%s  [%s]  %s", r.Values["session"], r.Values["status"], r.Values["title"])
		opts = append(opts, prompt.Option{Label: label, Value: r.Values["session"]})
	}
	return pr.Select("Select directive", opts, listing.Rows[0].Values["session"])
}

func directiveCleanupCmd() *cli.Command {
	return &cli.Command{
		Name:  "cleanup",
		Usage: "Check whether a directive branch is merged and safe to delete (never deletes)",
		Flags: []cli.Flag{
			sessionFlag(),
			&cli.StringFlag{Name: "branch", Usage: "Branch to check (default: meta.directive_branch)"},
			noPromptFlag(),
			jsonFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			p, err := loadProject()
			if err != nil {
				return err
			}
			token := cmd.String("session")
			if token == "" {
				if token, err = selectSession(p, prompt.New(cmd.Bool("no-prompt"))); err != nil {
					return err
				}
			}
			ctl := &lifecycle.Controller{
				Root:         p.sessions(),
				Git:          p.repo(),
				ProjectRoot:  p.Root,
				BaseBranch:   p.Config.BaseBranch,
				AllowedDirty: p.Config.AllowedDirtyPrefixes,
			}
			if !cmd.Bool("json") {
				ux.Log(os.Stdout, "DIR", "Directive cleanup: %s", token)
				ux.Log(os.Stdout, "GIT", "Checking clean working tree")
			}
			advice, err := ctl.Cleanup(ctx, token, cmd.String("branch"))
			if err != nil {
				return err
			}
			if cmd.Bool("json") {
				return printJSON(map[string]string{
					"session": advice.Session,
					"branch":  advice.Branch,
					"base":    advice.Base,
					"status":  advice.Status.String(),
					"command": advice.Command,
				})
			}
			ux.Log(os.Stdout, "GIT", "%s", advice.Message())
			if advice.Command != "" {
				ux.Log(os.Stdout, "GIT", "Run manually: %s", ux.Bold(advice.Command))
			}
			ux.Log(os.Stdout, "GIT", "No git actions executed by dc.")
			return nil
		},
	}
}

func taskCmd() *cli.Command {
	return &cli.Command{
		Name:  "task",
		Usage: "Manage task documents",
		Commands: []*cli.Command{{
			Name:  "new",
			Usage: "Create a task document from the template",
			Flags: []cli.Flag{
				sessionFlag(),
				&cli.StringFlag{Name: "slug", Usage: "Task slug for <slug>.task.json (default: from title)"},
				&cli.StringFlag{Name: "title", Usage: "Task title"},
				&cli.StringFlag{Name: "summary", Usage: "One-line summary"},
				&cli.StringFlag{Name: "priority", Usage: "urgent|high|medium|low (default: medium)"},
				&cli.StringFlag{Name: "session-priority", Usage: "urgent|high|medium|low (default: medium)"},
				&cli.StringFlag{Name: "owner", Usage: "Owner (default: operator)"},
				&cli.StringFlag{Name: "assignee", Usage: "Assignee (default: executor)"},
				&cli.StringFlag{Name: "effort", Usage: "small|medium|large (default: medium)"},
				&cli.StringFlag{Name: "execution-model", Usage: "Execution model (default: " + directive.DefaultExecutionModel + ")"},
				&cli.StringFlag{Name: "thinking-level", Usage: "Thinking level (default: high)"},
				&cli.StringFlag{Name: "objective", Usage: "Task objective"},
				&cli.StringSliceFlag{Name: "constraint", Usage: "Constraint (repeatable)"},
				&cli.StringSliceFlag{Name: "allowed-file", Usage: "Allowed file as path[:access] (repeatable)"},
				&cli.StringSliceFlag{Name: "step", Usage: "Step instruction (repeatable, in order)"},
				&cli.StringSliceFlag{Name: "validate-cmd", Usage: "Validation command (repeatable)"},
				&cli.StringSliceFlag{Name: "expected-output", Usage: "Completion evidence (repeatable)"},
				&cli.StringSliceFlag{Name: "stop-condition", Usage: "Stop condition (repeatable)"},
				noPromptFlag(),
				dryRunFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				p, err := loadProject()
				if err != nil {
					return err
				}
				req := directive.TaskRequest{
					Session:         cmd.String("session"),
					Slug:            cmd.String("slug"),
					Title:           cmd.String("title"),
					Summary:         cmd.String("summary"),
					Priority:        cmd.String("priority"),
					SessionPriority: cmd.String("session-priority"),
					Owner:           cmd.String("owner"),
					Assignee:        cmd.String("assignee"),
					Effort:          cmd.String("effort"),
					ExecutionModel:  cmd.String("execution-model"),
					ThinkingLevel:   cmd.String("thinking-level"),
					Objective:       cmd.String("objective"),
					Constraints:     cmd.StringSlice("constraint"),
					AllowedFiles:    cmd.StringSlice("allowed-file"),
					Steps:           cmd.StringSlice("step"),
					ValidateCmds:    cmd.StringSlice("validate-cmd"),
					ExpectedOutput:  cmd.StringSlice("expected-output"),
					StopConditions:  cmd.StringSlice("stop-condition"),
				}
				pr := prompt.New(cmd.Bool("no-prompt"))
				if req.Session == "" && pr.Interactive() {
					if req.Session, err = selectSession(p, pr); err != nil {
						return err
					}
				}
				if pr.Interactive() {
					if req.Title == "" {
						if req.Title, err = pr.Input("Task title", ""); err != nil {
							return err
						}
					}
					if req.Summary == "" {
						if req.Summary, err = pr.Input("Task summary (one line)", ""); err != nil {
							return err
						}
					}
				}
				c := &directive.Creator{Root: p.sessions(), BaseBranch: p.Config.BaseBranch}
				plan, err := c.PlanTask(req)
				if err != nil {
					return err
				}
				return plan.Persist(os.Stdout, cmd.Bool("dry-run"))
			},
		}},
	}
}
