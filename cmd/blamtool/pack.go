package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/EchoTools/blamFileTools/internal/logger"
	"github.com/EchoTools/blamFileTools/pkg/archive"
	"github.com/EchoTools/blamFileTools/pkg/cache"
)

func packCmd() *cli.Command {
	var (
		level int64
		force bool
	)

	return &cli.Command{
		Name:      "pack",
		Usage:     "Compress a cache file into a packed cache",
		ArgsUsage: "<cache> <output>",
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:        "level",
				Usage:       "zstd compression level",
				Value:       archive.DefaultCompressionLevel,
				Destination: &level,
			},
			&cli.BoolFlag{Name: "force", Usage: "overwrite the output file", Destination: &force},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			if cmd.Args().Len() != 2 {
				return fmt.Errorf("pack requires <cache> and <output>")
			}
			src, dst := cmd.Args().Get(0), cmd.Args().Get(1)

			in, err := os.Open(src)
			if err != nil {
				return fmt.Errorf("open cache: %w", err)
			}
			defer in.Close()

			stat, err := in.Stat()
			if err != nil {
				return fmt.Errorf("stat cache: %w", err)
			}
			d, err := cache.Detect(in, stat.Size(), nil)
			if err != nil {
				return err
			}

			out, err := createOutput(dst, force)
			if err != nil {
				return err
			}
			defer out.Close()

			h, err := archive.Pack(out, in, d.BuildString, archive.WithCompressionLevel(int(level)))
			if err != nil {
				return fmt.Errorf("pack: %w", err)
			}
			log.Info("packed cache", "build", d.BuildString, "size", h.Length, "compressed", h.CompressedLength)
			return out.Close()
		},
	}
}

func unpackCmd() *cli.Command {
	var force bool

	return &cli.Command{
		Name:      "unpack",
		Usage:     "Restore a cache file from a packed cache",
		ArgsUsage: "<packed> <output>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "force", Usage: "overwrite the output file", Destination: &force},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			if cmd.Args().Len() != 2 {
				return fmt.Errorf("unpack requires <packed> and <output>")
			}
			src, dst := cmd.Args().Get(0), cmd.Args().Get(1)

			in, err := os.Open(src)
			if err != nil {
				return fmt.Errorf("open packed cache: %w", err)
			}
			defer in.Close()

			out, err := createOutput(dst, force)
			if err != nil {
				return err
			}
			defer out.Close()

			h, err := archive.Unpack(out, in)
			if err != nil {
				return fmt.Errorf("unpack: %w", err)
			}
			log.Info("unpacked cache", "build", h.BuildString(), "size", h.Length)
			return out.Close()
		},
	}
}

func createOutput(path string, force bool) (*os.File, error) {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("output %s exists (use --force to override)", path)
		}
		return nil, fmt.Errorf("create output: %w", err)
	}
	return f, nil
}
