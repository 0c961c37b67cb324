package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cloudseek/cloudseek/internal/parser"
)

func newParseCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "parse <name>...",
		Short: "Show how release names are parsed",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed := make([]*parser.ParsedTitle, 0, len(args))
			for _, name := range args {
				parsed = append(parsed, parser.Parse(name))
			}
			if asJSON {
				return writeJSON(cmd, parsed)
			}

			rows := make([][]string, 0, len(args))
			for i, p := range parsed {
				rows = append(rows, []string{
					args[i],
					p.Title,
					optional(p.Season),
					episodeRange(p),
					optional(p.AbsoluteEpisode),
					yearLabel(p.Year),
					strings.Join(nonEmpty(p.Resolution, p.Source, p.Codec), " "),
					p.ReleaseGroup,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Name", "Title", "Season", "Episode", "Absolute", "Year", "Quality", "Group"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the parse as JSON")
	return cmd
}

func optional(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func episodeRange(p *parser.ParsedTitle) string {
	ep := optional(p.Episode)
	if p.EndEpisode != nil && ep != "" {
		ep += "-" + strconv.Itoa(*p.EndEpisode)
	}
	return ep
}

func yearLabel(year int) string {
	if year == 0 {
		return ""
	}
	return strconv.Itoa(year)
}

func nonEmpty(values ...string) []string {
	out := values[:0]
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
