package main

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"
)

func tokenizeCmd() *cli.Command {
	var (
		prompt string
		asJSON bool
	)

	return &cli.Command{
		Name:      "tokenize",
		Usage:     "Print the framed prompt token ids without generating",
		ArgsUsage: "[text]",
		Flags: concat(modelFlags(), []cli.Flag{
			&cli.StringFlag{
				Name:        "prompt",
				Aliases:     []string{"p"},
				Usage:       "text to frame (- reads stdin)",
				Destination: &prompt,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print a JSON array",
				Destination: &asJSON,
			},
		}),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := resolveConfig(ctx, cmd)
			if err != nil {
				return err
			}
			text, err := resolvePrompt(prompt, cmd.Args().Slice(), os.Stdin)
			if err != nil {
				return err
			}
			gen, m, err := openGenerator(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = m.Close() }()

			ids, err := gen.BuildPrompt(ctx, text)
			if err != nil {
				return err
			}
			if asJSON {
				return json.NewEncoder(os.Stdout).Encode(ids)
			}
			for _, id := range ids {
				fmt.Println(id)
			}
			return nil
		},
	}
}
