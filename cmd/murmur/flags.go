package main

import (
	"time"

	"github.com/urfave/cli/v3"
)

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "path to config.yaml (default $MURMUR_CONFIG or ~/.config/murmur/config.yaml)",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "log level (debug, info, warn, error)",
		},
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "log format (auto, pretty, json, text)",
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "enable debug logging (shorthand for --log-level=debug)",
		},
	}
}

func modelFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "backend",
			Usage: "inference backend (llamacpp, toy)",
		},
		&cli.StringFlag{
			Name:    "model",
			Aliases: []string{"m"},
			Usage:   "model id sent to the inference server",
		},
		&cli.StringFlag{
			Name:    "server-url",
			Aliases: []string{"server"},
			Usage:   "llama.cpp server base url",
		},
		&cli.DurationFlag{
			Name:  "http-timeout",
			Usage: "overall timeout for inference requests (0 = none)",
		},
		&cli.StringFlag{
			Name:  "tokenizer-json",
			Usage: "encode prompts locally with this tokenizer.json",
		},
		&cli.StringFlag{
			Name:  "tokenizer-config",
			Usage: "override path to tokenizer_config.json",
		},
	}
}

func samplingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Float64Flag{
			Name:    "temp",
			Aliases: []string{"temperature", "t"},
			Usage:   "sampling temperature",
		},
		&cli.Float64Flag{
			Name:    "top-p",
			Aliases: []string{"top_p", "topp"},
			Usage:   "top_p sampling parameter",
		},
		&cli.Float64Flag{
			Name:    "repeat-penalty",
			Aliases: []string{"repeat_penalty"},
			Usage:   "repetition penalty (1.0 = disabled)",
		},
		&cli.IntFlag{
			Name:    "repeat-last-n",
			Aliases: []string{"repeat_last_n"},
			Usage:   "last n tokens to penalize",
		},
		&cli.Int64Flag{
			Name:  "seed",
			Usage: "sampling seed (-1 for a fresh seed per generation)",
		},
		&cli.IntFlag{
			Name:    "max-tokens",
			Aliases: []string{"n"},
			Usage:   "maximum number of tokens to generate",
		},
	}
}

func storeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "store",
			Usage: "generation store (memory, badger)",
		},
		&cli.StringFlag{
			Name:  "store-dir",
			Usage: "directory for the badger store",
		},
	}
}

func sinkFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "sink",
			Usage: "token sink (jsonl, ws, none)",
		},
		&cli.StringFlag{
			Name:    "out",
			Aliases: []string{"o"},
			Usage:   "sink target: file path or - for jsonl, ws:// url for ws",
		},
	}
}

func serveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "addr",
			Usage: "listen address",
		},
		&cli.DurationFlag{
			Name:  "read-timeout",
			Usage: "read header timeout",
			Value: 30 * time.Second,
		},
	}
}

func concat(groups ...[]cli.Flag) []cli.Flag {
	var out []cli.Flag
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
