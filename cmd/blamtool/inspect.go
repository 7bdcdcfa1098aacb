package main

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/EchoTools/blamFileTools/internal/api"
	"github.com/EchoTools/blamFileTools/internal/logger"
	"github.com/EchoTools/blamFileTools/pkg/cache"
)

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func infoCmd() *cli.Command {
	var asJSON bool

	return &cli.Command{
		Name:      "info",
		Usage:     "Show the header and index summary of a cache file",
		ArgsUsage: "<cache>",
		Flags: append(cacheFlags(),
			&cli.BoolFlag{Name: "json", Usage: "print JSON", Destination: &asJSON},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path, err := cacheArg(cmd)
			if err != nil {
				return err
			}
			f, err := openCache(ctx, path)
			if err != nil {
				return err
			}
			defer f.Close()

			info := api.NewFileInfo(f)
			if asJSON {
				return writeJSON(info)
			}
			fmt.Printf("File:       %s\n", info.File)
			fmt.Printf("Build:      %s\n", info.Build)
			fmt.Printf("Cache type: %s (%s, %s)\n", info.CacheType, info.Game, info.Platform)
			if info.Flags != "" {
				fmt.Printf("Flags:      %s\n", info.Flags)
			}
			fmt.Printf("Byte order: %s\n", info.ByteOrder)
			if info.Scenario != "" {
				fmt.Printf("Scenario:   %s\n", info.Scenario)
			}
			fmt.Printf("Tags:       %d in %d classes\n", info.Tags, info.Classes)
			fmt.Printf("Strings:    %d\n", info.Strings)
			if info.Languages > 0 {
				fmt.Printf("Languages:  %d\n", info.Languages)
			}
			if err := printStructureBsps(f); err != nil {
				logger.FromContext(ctx).Warn("scenario unavailable", "error", err)
			}
			return nil
		},
	}
}

// printStructureBsps lists the BSPs referenced by the scenario, if any.
func printStructureBsps(f *cache.File) error {
	scnr, err := f.GetTagByClass("scnr")
	if err != nil {
		return nil
	}
	s, err := cache.ReadMetadata[cache.Scenario](scnr)
	if err != nil {
		return fmt.Errorf("read scenario: %w", err)
	}
	bsps, err := s.StructureBsps.Items()
	if err != nil {
		return fmt.Errorf("read structure bsps: %w", err)
	}
	if len(bsps) == 0 {
		return nil
	}
	fmt.Printf("BSPs:       %d\n", len(bsps))
	for _, b := range bsps {
		if b.BspReference.IsNull() {
			fmt.Println("  (null)")
			continue
		}
		name := fmt.Sprintf("tag %d", b.BspReference.TagID)
		if t, err := b.BspReference.Tag(); err == nil {
			name = t.FullPath
		}
		fmt.Printf("  %s\n", name)
	}
	return nil
}

func tagsCmd() *cli.Command {
	var (
		class  string
		filter string
		asJSON bool
	)

	return &cli.Command{
		Name:      "tags",
		Usage:     "List the tag index",
		ArgsUsage: "<cache>",
		Flags: append(cacheFlags(),
			&cli.StringFlag{Name: "class", Aliases: []string{"c"}, Usage: "only list tags of this class", Destination: &class},
			&cli.StringFlag{Name: "filter", Aliases: []string{"f"}, Usage: "only list paths containing this text", Destination: &filter},
			&cli.BoolFlag{Name: "json", Usage: "print JSON", Destination: &asJSON},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path, err := cacheArg(cmd)
			if err != nil {
				return err
			}
			f, err := openCache(ctx, path)
			if err != nil {
				return err
			}
			defer f.Close()

			var out []api.TagInfo
			for _, t := range f.Tags() {
				if class != "" && t.ClassCode != class {
					continue
				}
				if filter != "" && !strings.Contains(strings.ToLower(t.FullPath), strings.ToLower(filter)) {
					continue
				}
				out = append(out, api.NewTagInfo(t))
			}
			if asJSON {
				return writeJSON(out)
			}
			for _, t := range out {
				fmt.Printf("%6d  %s  0x%08X  %s\n", t.ID, t.Class, t.MetaAddress, t.Path)
			}
			return nil
		},
	}
}

func stringsCmd() *cli.Command {
	var find string

	return &cli.Command{
		Name:      "strings",
		Usage:     "Resolve string ids, or list the string table",
		ArgsUsage: "<cache> [id...]",
		Flags: append(cacheFlags(),
			&cli.StringFlag{Name: "find", Usage: "print the string id of this value", Destination: &find},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path, err := cacheArg(cmd)
			if err != nil {
				return err
			}
			f, err := openCache(ctx, path)
			if err != nil {
				return err
			}
			defer f.Close()

			if find != "" {
				id, ok := f.StringID(find)
				if !ok {
					return fmt.Errorf("%w: string %q", cache.ErrNotFound, find)
				}
				fmt.Printf("0x%08X  %s\n", uint32(id), find)
				return nil
			}

			ids := cmd.Args().Tail()
			if len(ids) > 0 {
				for _, arg := range ids {
					id, err := parseID(arg)
					if err != nil {
						return err
					}
					v, ok := f.GetString(id)
					if !ok {
						fmt.Printf("0x%08X  <not found>\n", uint32(id))
						continue
					}
					fmt.Printf("0x%08X  %s\n", uint32(id), v)
				}
				return nil
			}

			idx := f.StringIndex()
			tr := idx.Translator()
			for i := range idx.Count() {
				if v, ok := idx.Slot(i); ok {
					fmt.Printf("0x%08X  %s\n", uint32(tr.StringID(i)), v)
				}
			}
			return nil
		},
	}
}

func localeCmd() *cli.Command {
	var lang string

	return &cli.Command{
		Name:      "locale",
		Usage:     "Print the localized strings of one language",
		ArgsUsage: "<cache> [id...]",
		Flags: append(cacheFlags(),
			&cli.StringFlag{
				Name:        "lang",
				Aliases:     []string{"l"},
				Usage:       "language name or BCP 47 tag",
				Value:       "english",
				Destination: &lang,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if config.Language != "" && !cmd.IsSet("lang") {
				lang = config.Language
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

			li, err := f.Locale()
			if err != nil {
				return fmt.Errorf("locale: %w", err)
			}
			l, err := cache.MatchLanguage(lang, li.Languages())
			if err != nil {
				return err
			}
			table, err := li.Table(l)
			if err != nil {
				return err
			}

			ids := table.IDs()
			if args := cmd.Args().Tail(); len(args) > 0 {
				ids = ids[:0]
				for _, arg := range args {
					id, err := parseID(arg)
					if err != nil {
						return err
					}
					ids = append(ids, id)
				}
			} else {
				slices.Sort(ids)
			}
			for _, id := range ids {
				for _, v := range table.Values(id) {
					fmt.Printf("0x%08X  %s\n", uint32(id), v)
				}
			}
			return nil
		},
	}
}

func parseID(s string) (int32, error) {
	v, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return int32(v), nil
}
