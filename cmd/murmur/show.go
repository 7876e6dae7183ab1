package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/murmur/internal/store"
)

func showCmd() *cli.Command {
	var asJSON bool

	return &cli.Command{
		Name:      "show",
		Aliases:   []string{"ls"},
		Usage:     "List stored generations, or print one by id",
		ArgsUsage: "[id]",
		Flags: concat(storeFlags(), []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print JSON",
				Destination: &asJSON,
			},
		}),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := configFromContext(ctx)
			applyStoreFlags(cmd, &cfg)
			persistStore(cmd, &cfg)
			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			if id := cmd.Args().First(); id != "" {
				rec, err := st.Get(ctx, id)
				if err != nil {
					return fmt.Errorf("%s: %w", id, err)
				}
				if asJSON {
					return printJSON(rec)
				}
				printRecord(rec)
				return nil
			}

			recs, err := st.List(ctx)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(recs)
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "ID\tSTARTED\tTOKENS\tEND OF SPEECH\tPROMPT")
			for _, rec := range recs {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%t\t%s\n",
					rec.ID, rec.StartedAt.Local().Format(time.DateTime), len(rec.Tokens), rec.StoppedOnEndOfAI, truncate(rec.Prompt, 40))
			}
			return tw.Flush()
		},
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printRecord(rec store.Record) {
	fmt.Printf("id:            %s\n", rec.ID)
	fmt.Printf("model:         %s\n", rec.Model)
	fmt.Printf("prompt:        %s\n", rec.Prompt)
	fmt.Printf("started:       %s\n", rec.StartedAt.Local().Format(time.RFC3339))
	fmt.Printf("elapsed:       %dms\n", rec.ElapsedMS)
	fmt.Printf("prompt tokens: %d\n", rec.PromptTokens)
	fmt.Printf("tokens:        %d\n", len(rec.Tokens))
	fmt.Printf("end of speech: %t\n", rec.StoppedOnEndOfAI)
	fmt.Printf("ids:           %v\n", rec.Tokens)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
