package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/checker/terminology"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/rules"
)

func newRulesCmd(g *globalOptions) *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Validate a rule file and optionally list its rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if g.rulesPath == "" {
				return fmt.Errorf("--rules is required")
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			overrides, err := prefilterOverride(g.prefilter)
			if err != nil {
				return err
			}
			defs, err := rules.Loader(g.rulesPath, overrides...)(ctx)
			if err != nil {
				return err
			}
			rs, err := terminology.Compile(defs)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if list {
				if err := writeRuleTable(w, defs); err != nil {
					return err
				}
			}
			fmt.Fprintf(w, "%s: %s rules, %s pattern groups, prefilter %s, version %s\n",
				g.rulesPath,
				humanize.Comma(int64(rs.Rules())),
				humanize.Comma(int64(rs.Groups())),
				onOff(rs.HasPrefilter()),
				rs.Version(),
			)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&list, "list", "l", false, "print every rule as a table")
	return cmd
}

func writeRuleTable(w io.Writer, defs terminology.Definitions) error {
	rows := make([][]string, 0, len(defs.Rules))
	for i, r := range defs.Rules {
		accept := r.Accept
		if accept == "" {
			accept = "(remove)"
		}
		var groups []string
		contexts := 0
		for _, gd := range r.Groups {
			var words []string
			for _, p := range gd.Patterns {
				if p.Text == "" {
					break
				}
				words = append(words, p.Text)
			}
			groups = append(groups, strings.Join(words, " "))
			contexts += len(gd.Contexts)
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			accept,
			r.AcceptContext,
			strings.Join(groups, " | "),
			strconv.Itoa(contexts),
		})
	}
	table := tablewriter.NewWriter(w)
	table.Header("#", "Accept", "Context", "Patterns", "Contexts")
	if err := table.Bulk(rows); err != nil {
		return fmt.Errorf("building rule table: %w", err)
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("rendering rule table: %w", err)
	}
	return nil
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
