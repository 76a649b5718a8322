package main

import (
	"context"
	"os"
	"strings"

	cli "github.com/urfave/cli/v3"

	"github.com/jorge-barreto/dc/internal/handoff"
	"github.com/jorge-barreto/dc/internal/prompt"
	"github.com/jorge-barreto/dc/internal/startup"
	"github.com/jorge-barreto/dc/internal/ux"
)

func handoffCmd() *cli.Command {
	return &cli.Command{
		Name:  "handoff",
		Usage: "Write the role-transition record for a session",
		Flags: []cli.Flag{
			sessionFlag(),
			&cli.StringFlag{Name: "from-role", Usage: "architect|executor|pair|auditor (default: startup context, then DC_ROLE, then architect)"},
			&cli.StringFlag{Name: "to-role", Usage: "architect|executor|pair|auditor (default: executor from architect, else architect)"},
			&cli.StringFlag{Name: "role", Usage: "Current agent role", Sources: cli.EnvVars("DC_ROLE")},
			&cli.StringFlag{Name: "trigger", Usage: "Trigger name (default: <from>_to_<to>_handoff)"},
			&cli.StringFlag{Name: "objective", Usage: "Objective for the receiving role"},
			&cli.StringFlag{Name: "blocking-rule", Usage: "Rule the receiving role must follow"},
			&cli.StringFlag{Name: "task-file", Usage: "Task document in the session, or 'null'"},
			&cli.StringFlag{Name: "directive-branch", Usage: "Branch (default: meta.directive_branch)"},
			&cli.StringFlag{Name: "required-reading", Usage: "Required reading path (default: config required-reading)"},
			&cli.StringFlag{Name: "worktree-mode", Usage: "clean_required|known_dirty_allowlist (default: clean_required)"},
			&cli.StringSliceFlag{Name: "allowlist-path", Usage: "Allowed dirty path for known_dirty_allowlist (repeatable)"},
			noPromptFlag(),
			dryRunFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			p, err := loadProject()
			if err != nil {
				return err
			}
			req := handoff.Request{
				Session:         cmd.String("session"),
				FromRole:        cmd.String("from-role"),
				ToRole:          cmd.String("to-role"),
				Trigger:         cmd.String("trigger"),
				Objective:       cmd.String("objective"),
				BlockingRule:    cmd.String("blocking-rule"),
				DirectiveBranch: cmd.String("directive-branch"),
				RequiredReading: cmd.String("required-reading"),
				WorktreeMode:    cmd.String("worktree-mode"),
				AllowlistPaths:  splitValues(cmd.StringSlice("allowlist-path")),
			}
			if cmd.IsSet("task-file") {
				tf := cmd.String("task-file")
				req.TaskFile = &tf
			}

			defaults := startup.Provider{
				Dir:        p.Config.StartupContextDirAbs(p.Root),
				EnvRole:    cmd.String("role"),
				EnvSession: os.Getenv("DC_DIRECTIVE_SESSION"),
			}
			if err := promptHandoffSession(p, prompt.New(cmd.Bool("no-prompt")), defaults, &req); err != nil {
				return err
			}
			e := &handoff.Engine{
				Root:            p.sessions(),
				Defaults:        defaults,
				ProjectRoot:     p.Root,
				RequiredReading: p.Config.RequiredReading,
			}
			e.ApplyDefaults(&req)
			plan, err := e.Build(req)
			if err != nil {
				return err
			}
			dryRun := cmd.Bool("dry-run")
			if err := plan.Persist(os.Stdout, dryRun); err != nil {
				return err
			}
			if !dryRun {
				ux.Log(os.Stdout, "DIR", "Wrote handoff %s -> %s: %s", req.FromRole, req.ToRole, plan.Path)
			}
			return nil
		},
	}
}

// promptHandoffSession asks for the session when neither the flags nor the
// ambient defaults name one. Without a terminal it leaves req alone and the
// engine reports the missing session.
func promptHandoffSession(p *project, pr prompt.Prompter, defaults handoff.DefaultsProvider, req *handoff.Request) error {
	if strings.TrimSpace(req.Session) != "" || !pr.Interactive() {
		return nil
	}
	if defaults.Defaults("").Session != "" {
		return nil
	}
	token, err := selectSession(p, pr)
	if err != nil {
		return err
	}
	req.Session = token
	return nil
}
