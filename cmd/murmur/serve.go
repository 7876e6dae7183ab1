package main

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/murmur/internal/api"
	"github.com/samcharles93/murmur/internal/logger"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the speech generation REST API",
		Flags: concat(modelFlags(), samplingFlags(), storeFlags(), serveFlags()),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			cfg, err := resolveConfig(ctx, cmd)
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

			service := api.NewSpeechService(gen, cfg.Model, st, log)
			server := api.NewServer(service)
			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)

			readTimeout := cmd.Duration("read-timeout")
			log.Info("starting server", "address", cfg.ListenAddress, "backend", cfg.Backend, "store", cfg.Store.Kind)
			sc := echo.StartConfig{
				Address: cfg.ListenAddress,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
