package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/jorge-barreto/dc/internal/bundle"
	"github.com/jorge-barreto/dc/internal/ux"
)

func contextCmd() *cli.Command {
	return &cli.Command{
		Name:  "context",
		Usage: "Build, check, and show the compiled context bundle",
		Commands: []*cli.Command{
			{
				Name:  "build",
				Usage: "Compile configured sources and rule files into the bundle",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "include", Usage: "Extra file to append (repeatable)"},
					jsonFlag(),
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					c, err := loadCompiler()
					if err != nil {
						return err
					}
					res, err := c.Build(splitValues(cmd.StringSlice("include")))
					if err != nil {
						return err
					}
					return reportBundle(cmd, res)
				},
			},
			{
				Name:  "check",
				Usage: "Fail when the bundle is missing or stale",
				Flags: []cli.Flag{jsonFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					c, err := loadCompiler()
					if err != nil {
						return err
					}
					res, err := c.Check()
					if err != nil {
						return err
					}
					if cmd.Bool("json") {
						if err := printJSON(res); err != nil {
							return err
						}
					}
					if !res.OK() {
						if cmd.Bool("json") {
							return errors.New("context bundle " + res.Status)
						}
						return errors.New(res.Message)
					}
					if !cmd.Bool("json") {
						ux.Log(os.Stdout, "OK", "%s", res.Message)
					}
					return nil
				},
			},
			{
				Name:  "show",
				Usage: "Show bundle metadata, or the bundle itself with --print",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "print", Usage: "Print the bundle contents"},
					jsonFlag(),
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					c, err := loadCompiler()
					if err != nil {
						return err
					}
					if cmd.Bool("print") {
						data, err := c.Content()
						if err != nil {
							return err
						}
						_, err = os.Stdout.Write(data)
						return err
					}
					res, err := c.Show()
					if err != nil {
						return err
					}
					return reportBundle(cmd, res)
				},
			},
		},
	}
}

func loadCompiler() (*bundle.Compiler, error) {
	p, err := loadProject()
	if err != nil {
		return nil, err
	}
	return bundle.New(p.Root, p.Config.ContextBundle), nil
}

func reportBundle(cmd *cli.Command, res *bundle.Result) error {
	if cmd.Bool("json") {
		return printJSON(res)
	}
	fmt.Println(res.Message)
	fmt.Printf("  out:     %s\n", res.OutFile)
	fmt.Printf("  meta:    %s\n", res.MetaFile)
	if res.Hash != "" {
		fmt.Printf("  hash:    %s\n", res.Hash)
	}
	if res.SourceCount != nil {
		fmt.Printf("  sources: %d\n", *res.SourceCount)
	} else if len(res.Sources) > 0 {
		fmt.Printf("  sources: %d\n", len(res.Sources))
	}
	return nil
}
