package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nutsandbolts/modcore/automod/similarity"
	"github.com/nutsandbolts/modcore/automod/tags"

	cli "github.com/urfave/cli/v2"
)

var resolveCmd = &cli.Command{
	Name:      "resolve",
	Usage:     "look up a tag by name or alias, printing its content or suggestions",
	ArgsUsage: `<name>`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "tags-file",
			Usage:    "JSON file with a list of tags ({scope, owner, names, content})",
			Required: true,
			EnvVars:  []string{"MODCORE_TAGS_FILE"},
		},
		&cli.StringFlag{
			Name:  "scope",
			Usage: "scope (guild or channel ID) to look in",
		},
		&cli.Float64Flag{
			Name:  "threshold",
			Usage: "similarity threshold for suggestions, compared against integer percentage scores",
			Value: similarity.DefaultThreshold,
		},
	},
	Action: func(cctx *cli.Context) error {
		ctx := cctx.Context
		query := strings.Join(cctx.Args().Slice(), " ")
		if query == "" {
			return fmt.Errorf("need a tag name to look up")
		}

		reg := tags.NewRegistry(nil, slog.Default())
		reg.Resolver.Scorer = &similarity.Scorer{Threshold: cctx.Float64("threshold")}

		f, err := os.Open(cctx.String("tags-file"))
		if err != nil {
			return err
		}
		defer f.Close()
		n, err := loadTags(ctx, reg, f)
		if err != nil {
			return err
		}
		slog.Debug("loaded tags", "count", n)

		return printLookup(ctx, reg, cctx.String("scope"), query, os.Stdout)
	},
}

type tagFileEntry struct {
	Scope string `json:"scope"`
	Owner string `json:"owner"`
	// first name is the tag name, the rest are aliases
	Names   []string `json:"names"`
	Content string   `json:"content"`
}

// loadTags creates every tag in the JSON list read from r, returning how many were created.
func loadTags(ctx context.Context, reg *tags.Registry, r io.Reader) (int, error) {
	var entries []tagFileEntry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return 0, fmt.Errorf("parsing tags file: %w", err)
	}
	for i, e := range entries {
		if len(e.Names) == 0 {
			return i, fmt.Errorf("tag %d: no names", i)
		}
		if err := reg.Create(ctx, e.Scope, e.Owner, e.Names[0], e.Content); err != nil {
			return i, fmt.Errorf("tag %d: %w", i, err)
		}
		for _, alias := range e.Names[1:] {
			if err := reg.Alias(ctx, e.Scope, e.Names[0], alias); err != nil {
				return i, fmt.Errorf("tag %d: %w", i, err)
			}
		}
	}
	return len(entries), nil
}

func printLookup(ctx context.Context, reg *tags.Registry, scope, query string, out io.Writer) error {
	tag, err := reg.Lookup(ctx, scope, query)
	var nf *tags.NotFoundError
	if errors.As(err, &nf) {
		fmt.Fprintf(out, "tag %q not found\n", query)
		if len(nf.Suggestions) > 0 {
			fmt.Fprintf(out, "did you mean:\n")
			for _, s := range nf.Suggestions {
				fmt.Fprintf(out, "  %s\n", s)
			}
		}
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(out, tag.Content)
	return nil
}

var similarCmd = &cli.Command{
	Name:      "similar",
	Usage:     "print similarity scores for two strings",
	ArgsUsage: `<a> <b>`,
	Flags: []cli.Flag{
		&cli.Float64Flag{
			Name:  "threshold",
			Usage: "similarity threshold, compared against integer percentage scores",
			Value: similarity.DefaultThreshold,
		},
	},
	Action: func(cctx *cli.Context) error {
		if cctx.Args().Len() != 2 {
			return fmt.Errorf("need exactly two strings to compare")
		}
		scorer := similarity.Scorer{Threshold: cctx.Float64("threshold")}
		printScores(scorer, cctx.Args().Get(0), cctx.Args().Get(1), os.Stdout)
		return nil
	},
}

func printScores(scorer similarity.Scorer, a, b string, out io.Writer) {
	scores := []struct {
		name  string
		score int
	}{
		{"ratio", similarity.Ratio(a, b)},
		{"quick_ratio", similarity.QuickRatio(a, b)},
		{"partial_ratio", similarity.PartialRatio(a, b)},
		{"token_sort_ratio", similarity.TokenSortRatio(a, b)},
		{"quick_token_sort_ratio", similarity.QuickTokenSortRatio(a, b)},
		{"partial_token_sort_ratio", similarity.PartialTokenSortRatio(a, b)},
	}
	for _, s := range scores {
		fmt.Fprintf(out, "%-26s %3d\n", s.name, s.score)
	}
	fmt.Fprintf(out, "similar (> %g): %v\n", scorer.Threshold, scorer.IsSimilar(a, b))
}
