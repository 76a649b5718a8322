package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	cli "github.com/urfave/cli/v3"

	"github.com/jorge-barreto/dc/internal/config"
	"github.com/jorge-barreto/dc/internal/docs"
	"github.com/jorge-barreto/dc/internal/doctor"
	"github.com/jorge-barreto/dc/internal/git"
	"github.com/jorge-barreto/dc/internal/prompt"
	"github.com/jorge-barreto/dc/internal/scaffold"
	"github.com/jorge-barreto/dc/internal/session"
	"github.com/jorge-barreto/dc/internal/ux"
	"github.com/jorge-barreto/dc/internal/validate"
)

func main() {
	app := &cli.Command{
		Name:                      "dc",
		Usage:                     "Directive session lifecycle manager",
		Description:               "Run 'dc docs' for documentation on sessions, handoffs, validation, and more.",
		DisableSliceFlagSeparator: true,
		Commands: []*cli.Command{
			initCmd(),
			directiveCmd(),
			taskCmd(),
			handoffCmd(),
			validateCmd(),
			contextCmd(),
			doctorCmd(),
			docsCmd(),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		ux.Error(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// project is the loaded project root and its configuration.
type project struct {
	Root   string
	Config *config.Config
}

func loadProject() (*project, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	root, err := config.FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &project{Root: root, Config: cfg}, nil
}

func (p *project) sessions() *session.Root {
	return session.NewRoot(p.Config.DirectivesRootAbs(p.Root))
}

func (p *project) repo() *git.Repo {
	return git.NewRepo(p.Root)
}

// Shared flags.
func dryRunFlag() cli.Flag {
	return &cli.BoolFlag{Name: "dry-run", Usage: "Print what would be written without writing"}
}

func noPromptFlag() cli.Flag {
	return &cli.BoolFlag{Name: "no-prompt", Usage: "Never prompt for missing values"}
}

func sessionFlag() cli.Flag {
	return &cli.StringFlag{Name: "session", Aliases: []string{"guid"}, Usage: "Session directory name or directive UUID (meta.id)"}
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{Name: "json", Usage: "Emit JSON"}
}

// splitValues flattens repeatable flag values that may also be comma
// separated.
func splitValues(values []string) []string {
	var out []string
	for _, v := range values {
		out = append(out, prompt.SplitList(v)...)
	}
	return out
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func initCmd() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Initialize .directive-cli/config.yaml and the directive root",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir, err := os.Getwd()
			if err != nil {
				return err
			}
			return scaffold.Init(dir, os.Stdout)
		},
	}
}

func validateCmd() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Validate session directories and their documents",
		ArgsUsage: "[file...]",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "file", Usage: "Validate only the session owning this file (repeatable)"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "Print one line per session and file"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			p, err := loadProject()
			if err != nil {
				return err
			}
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			files := append(cmd.StringSlice("file"), cmd.Args().Slice()...)
			v := &validate.Validator{Root: p.sessions(), Base: wd}
			report, err := v.Run(files)
			if err != nil {
				return err
			}
			report.Print(os.Stdout, os.Stderr, cmd.Bool("verbose"))
			if !report.OK() {
				return fmt.Errorf("validation failed")
			}
			return nil
		},
	}
}

func doctorCmd() *cli.Command {
	return &cli.Command{
		Name:  "doctor",
		Usage: "Diagnose tooling, config, directive tree, context bundle, and worktree",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			p, err := loadProject()
			if err != nil {
				return err
			}
			d := &doctor.Doctor{ProjectRoot: p.Root, Config: p.Config, Git: p.repo()}
			report := d.Run(ctx)
			report.Print(os.Stdout)
			if !report.OK() {
				return fmt.Errorf("doctor found problems")
			}
			return nil
		},
	}
}

func docsCmd() *cli.Command {
	return &cli.Command{
		Name:      "docs",
		Usage:     "Show documentation",
		ArgsUsage: "[topic]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			name := cmd.Args().First()
			if name == "" {
				fmt.Print("\nAvailable topics:\n\n")
				for _, t := range docs.All() {
					fmt.Printf("  %-12s %s\n", t.Name, t.Summary)
				}
				fmt.Println("\nRun 'dc docs <topic>' to read a topic.")
				return nil
			}
			t, err := docs.Get(strings.ToLower(name))
			if err != nil {
				return err
			}
			fmt.Print(docs.Render(t.Content))
			return nil
		},
	}
}
