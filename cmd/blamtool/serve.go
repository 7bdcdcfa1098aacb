package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/EchoTools/blamFileTools/internal/api"
	"github.com/EchoTools/blamFileTools/internal/logger"
)

func serveCmd() *cli.Command {
	var (
		addr        string
		readTimeout time.Duration
	)

	return &cli.Command{
		Name:      "serve",
		Usage:     "Serve a read-only JSON API for a cache file",
		ArgsUsage: "<cache>",
		Flags: append(cacheFlags(),
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			if config.ServerAddress != "" && !cmd.IsSet("addr") {
				addr = config.ServerAddress
			}
			path, err := cacheArg(cmd)
			if err != nil {
				return err
			}
			f, err := openCache(ctx, path)
			if err != nil {
				return err
			}
			defer f.Close()

			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			api.NewServer(f).Register(e)
			log.Info("starting server", "address", addr, "cache", f.FileName, "type", f.CacheType.String())
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
