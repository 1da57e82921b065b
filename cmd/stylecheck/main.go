// Command stylecheck checks documentation files against terminology rules
// and the built-in duplicate-word and sentence-length checks.
//
//	stylecheck --rules terms.xml guide.xml
//	stylecheck rules --rules terms.yaml
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/pkg/logger"
)

// errFindings makes the process exit with status 1 after a report with
// errors has been written.
var errFindings = errors.New("style errors found")

type globalOptions struct {
	rulesPath string
	prefilter string
	logLevel  string
	color     string
}

func newRootCmd() *cobra.Command {
	var opts globalOptions
	root := &cobra.Command{
		Use:   "stylecheck [flags] FILE...",
		Short: "Check documentation for terminology and style problems",
		Long: `stylecheck splits its inputs into sentences and reports terminology
violations, doubled words and overlong sentences.

Inputs ending in .xml are read as documents, .yaml/.yml/.json as unit
lists and anything else as plain text. Use - to read text from stdin.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.SetupWriter(cmd.ErrOrStderr(), opts.logLevel, "text")
		},
	}
	root.PersistentFlags().StringVar(&opts.rulesPath, "rules", "", "terminology rule file or http(s) URL (yaml, toml, json or xml)")
	root.PersistentFlags().StringVar(&opts.prefilter, "prefilter", "", "force the rule pre-filter on or off (on|off)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug|info|warn|error)")
	root.PersistentFlags().StringVar(&opts.color, "color", "auto", "colorize output (auto|always|never)")

	check := newCheckCmd(&opts)
	root.Args = check.Args
	root.RunE = check.RunE
	root.Flags().AddFlagSet(check.Flags())

	root.AddCommand(check)
	root.AddCommand(newRulesCmd(&opts))
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errFindings) {
			fmt.Fprintln(os.Stderr, "stylecheck:", err)
		}
		os.Exit(1)
	}
}
