package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/checker"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/checker/terminology"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/report"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/rules"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/source"
)

type checkOptions struct {
	format       string
	errorsOnly   bool
	output       string
	title        string
	matchTimeout time.Duration
}

func newCheckCmd(g *globalOptions) *cobra.Command {
	var opts checkOptions
	cmd := &cobra.Command{
		Use:   "check [flags] FILE...",
		Short: "Check files and write a report",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, g, &opts, args)
		},
	}
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "report format (text|json|xml)")
	cmd.Flags().BoolVar(&opts.errorsOnly, "errors", false, "report errors only")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the report to this file instead of stdout")
	cmd.Flags().StringVar(&opts.title, "title", "", "report title (defaults to the input names)")
	cmd.Flags().DurationVar(&opts.matchTimeout, "match-timeout", 0, "abort a single pattern match after this long (0 disables)")
	return cmd
}

func runCheck(cmd *cobra.Command, g *globalOptions, opts *checkOptions, inputs []string) error {
	format, err := report.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	engine, err := newEngine(ctx, g, terminology.WithMatchTimeout(opts.matchTimeout))
	if err != nil {
		return err
	}

	var units []checker.Unit
	for _, in := range inputs {
		var us []checker.Unit
		if in == "-" {
			us, err = source.Text(cmd.InOrStdin(), "")
		} else {
			us, err = source.LoadFile(in)
		}
		if err != nil {
			return err
		}
		units = append(units, us...)
	}

	results, err := engine.CheckAll(ctx, units)
	if err != nil {
		return err
	}
	version := ""
	if rs := engine.RuleSet(); rs != nil {
		version = rs.Version()
	}
	title := opts.title
	if title == "" {
		title = titleOf(inputs)
	}
	rep := report.Build(title, results, report.Options{
		ErrorsOnly:     opts.errorsOnly,
		RuleSetVersion: version,
	})

	var w io.Writer = cmd.OutOrStdout()
	if opts.output != "" {
		f, err := os.Create(opts.output)
		if err != nil {
			return fmt.Errorf("creating report file: %w", err)
		}
		defer f.Close()
		w = f
	}
	if err := rep.Write(w, format, useColor(g.color, w)); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	if rep.Summary.Errors > 0 {
		return errFindings
	}
	return nil
}

// newEngine builds an engine with the rules named by the global flags, or
// without terminology rules when none are given.
func newEngine(ctx context.Context, g *globalOptions, compileOpts ...terminology.Option) (*checker.Engine, error) {
	engine := checker.New(nil, checker.WithCompileOptions(compileOpts...))
	if g.rulesPath == "" {
		return engine, nil
	}
	overrides, err := prefilterOverride(g.prefilter)
	if err != nil {
		return nil, err
	}
	if _, err := engine.Reload(ctx, rules.Loader(g.rulesPath, overrides...)); err != nil {
		return nil, err
	}
	return engine, nil
}

func prefilterOverride(v string) ([]rules.Override, error) {
	switch strings.ToLower(v) {
	case "":
		return nil, nil
	case "on", "true", "yes":
		return []rules.Override{rules.WithPrefilter(true)}, nil
	case "off", "false", "no":
		return []rules.Override{rules.WithPrefilter(false)}, nil
	default:
		return nil, fmt.Errorf("invalid --prefilter value %q (want on or off)", v)
	}
}

func titleOf(inputs []string) string {
	names := make([]string, len(inputs))
	for i, in := range inputs {
		if in == "-" {
			names[i] = "stdin"
			continue
		}
		names[i] = filepath.Base(in)
	}
	return strings.Join(names, ", ")
}

// useColor resolves the --color flag. In auto mode color is used only when
// w is a terminal and NO_COLOR is unset.
func useColor(mode string, w io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if color.NoColor {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
