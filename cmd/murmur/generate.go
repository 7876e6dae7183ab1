package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/murmur/internal/logger"
	"github.com/samcharles93/murmur/internal/sink"
	"github.com/samcharles93/murmur/internal/speech"
	"github.com/samcharles93/murmur/internal/store"
)

func generateCmd() *cli.Command {
	var (
		prompt  string
		wsTee   string
		quiet   bool
		showIDs bool
	)

	return &cli.Command{
		Name:      "generate",
		Aliases:   []string{"gen"},
		Usage:     "Generate speech tokens for a prompt",
		ArgsUsage: "[text]",
		Flags: concat(modelFlags(), samplingFlags(), storeFlags(), sinkFlags(), []cli.Flag{
			&cli.StringFlag{
				Name:        "prompt",
				Aliases:     []string{"p"},
				Usage:       "text to speak (- reads stdin)",
				Destination: &prompt,
			},
			&cli.StringFlag{
				Name:        "ws",
				Usage:       "also stream tokens to this ws:// decoder url",
				Destination: &wsTee,
			},
			&cli.BoolFlag{
				Name:        "quiet",
				Aliases:     []string{"q"},
				Usage:       "suppress the summary on stderr",
				Destination: &quiet,
			},
			&cli.BoolFlag{
				Name:        "show-tokens",
				Usage:       "print the generated token ids on stderr",
				Destination: &showIDs,
			},
		}),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			cfg, err := resolveConfig(ctx, cmd)
			if err != nil {
				return err
			}
			persistStore(cmd, &cfg)
			text, err := resolvePrompt(prompt, cmd.Args().Slice(), os.Stdin)
			if err != nil {
				return err
			}

			gen, m, err := openGenerator(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = m.Close() }()

			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			w, err := sink.Open(ctx, cfg.Sink.Kind, cfg.Sink.Target)
			if err != nil {
				return err
			}
			if wsTee != "" {
				ws, err := sink.DialWebSocket(ctx, wsTee, nil)
				if err != nil {
					_ = w.Close()
					return err
				}
				w = sink.Multi(w, ws)
			}

			id := "gen_" + uuid.NewString()
			res, err := gen.Generate(ctx, text, w)
			if err != nil {
				_ = sink.Abort(w)
				return err
			}
			if err := w.Close(); err != nil {
				return fmt.Errorf("close sink: %w", err)
			}

			rec := store.NewRecord(id, cfg.Model, text, res)
			if err := st.Put(ctx, rec); err != nil {
				log.Warn("failed to persist generation", "id", id, "error", err)
			}

			if showIDs {
				_, _ = fmt.Fprintf(os.Stderr, "tokens: %v\n", res.Tokens)
			}
			if !quiet {
				printSummary(os.Stderr, id, res)
			}
			return nil
		},
	}
}

// resolvePrompt picks the prompt from the flag, then the positional args.
// "-" reads all of stdin.
func resolvePrompt(flag string, args []string, stdin io.Reader) (string, error) {
	text := flag
	if text == "" {
		text = strings.Join(args, " ")
	}
	if text == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read prompt: %w", err)
		}
		text = string(data)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("a prompt is required (--prompt, argument, or - for stdin)")
	}
	return text, nil
}

func printSummary(w io.Writer, id string, res *speech.Result) {
	rate := 0.0
	if secs := res.Elapsed.Seconds(); secs > 0 {
		rate = float64(len(res.Tokens)) / secs
	}
	stop := "budget"
	if res.StoppedOnEndOfAI {
		stop = "end of speech"
	}
	_, _ = fmt.Fprintf(w, "\nid:            %s\n", id)
	_, _ = fmt.Fprintf(w, "prompt tokens: %d\n", res.PromptTokens)
	_, _ = fmt.Fprintf(w, "tokens:        %d (%.2f tok/s)\n", len(res.Tokens), rate)
	_, _ = fmt.Fprintf(w, "elapsed:       %s\n", res.Elapsed.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "stopped on:    %s\n", stop)
}
