// Command blamtool inspects and packs Halo cache files.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/EchoTools/blamFileTools/internal/logger"
	"github.com/EchoTools/blamFileTools/pkg/cache"
)

var config Config

func main() {
	app := &cli.Command{
		Name:   "blamtool",
		Usage:  "Halo cache file inspector",
		Flags:  globalFlags(),
		Before: setup,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			infoCmd(),
			tagsCmd(),
			stringsCmd(),
			localeCmd(),
			packCmd(),
			unpackCmd(),
			serveCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the config file and stores the logger in ctx.
func setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	config = LoadConfig()
	applyGlobalConfig(cmd, config)

	log, err := logger.Setup(os.Stderr, logger.Format(logFormat), logLevel)
	if err != nil {
		return ctx, err
	}
	return logger.WithContext(ctx, log), nil
}

// openCache opens path with the global resource and cache type settings.
func openCache(ctx context.Context, path string) (*cache.File, error) {
	opts := []cache.Option{cache.WithLogger(logger.FromContext(ctx))}

	if resourcesDir != "" {
		res, err := cache.LoadResources(os.DirFS(resourcesDir))
		if err != nil {
			return nil, fmt.Errorf("load resources: %w", err)
		}
		opts = append(opts, cache.WithResources(res))
	}
	if cacheType != "" {
		c, err := cache.ParseCacheType(cacheType)
		if err != nil {
			return nil, err
		}
		opts = append(opts, cache.WithCacheType(c))
	}

	return cache.Open(path, opts...)
}

func cacheArg(cmd *cli.Command) (string, error) {
	if cmd.Args().Len() < 1 {
		return "", fmt.Errorf("cache file path is required")
	}
	return cmd.Args().First(), nil
}
