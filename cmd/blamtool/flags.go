package main

import "github.com/urfave/cli/v3"

var (
	logLevel     string
	logFormat    string
	resourcesDir string
	cacheType    string
)

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.StringFlag{
			Name:        "resources",
			Usage:       "directory with builds.yaml, strings.yaml and keys.yaml overriding the embedded tables",
			Destination: &resourcesDir,
		},
	}
}

// cacheFlags are shared by the commands that open a cache file.
func cacheFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "cache-type",
			Aliases:     []string{"type"},
			Usage:       "read the file as this cache type instead of detecting it",
			Destination: &cacheType,
		},
	}
}
