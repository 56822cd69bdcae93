// SceneSplit - offline scene splitting for story text
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Corphon/SceneSplitter/internal/splitter"
	"github.com/Corphon/SceneSplitter/internal/utils"
)

// Version is set at build time
var Version = "dev"

// globalFlags are shared by every subcommand
type globalFlags struct {
	lexiconFile string
	output      string
	verbose     bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "scenesplit",
		Short: "Split story text into video scenes",
		Long: `scenesplit splits narrative text into an ordered list of video scenes
using rule-based breakpoints, then rebalances scene durations.

It runs entirely offline. Use the HTTP server for AI-assisted splitting
and persisted scenarios.

Examples:
  # Split a story file into five scenes
  scenesplit split story.txt --target 5

  # Read from stdin and print YAML
  cat story.txt | scenesplit split -o yaml

  # Suggest a strategy for a 10 minute video
  scenesplit analyze story.txt --target-duration 600

  # Re-split a saved scenario into three scenes
  scenesplit resplit scenario.json --target 3`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger := utils.GetLogger()
			logger.Enable(flags.verbose)
			if flags.verbose {
				logger.SetLogLevel(utils.DEBUG)
			}
		},
	}

	root.PersistentFlags().StringVar(&flags.lexiconFile, "lexicon", "", "YAML keyword lexicon (default: built-in Korean/English)")
	root.PersistentFlags().StringVarP(&flags.output, "output", "o", "text", "Output format: text, json or yaml")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Verbose logging")

	root.AddCommand(newSplitCmd(flags))
	root.AddCommand(newAnalyzeCmd(flags))
	root.AddCommand(newResplitCmd(flags))
	return root
}

// newEngine builds a rule-based engine with the configured lexicon
func newEngine(flags *globalFlags) (*splitter.Engine, error) {
	if flags.lexiconFile == "" {
		return splitter.NewEngine(), nil
	}
	lex, err := splitter.LoadLexicon(flags.lexiconFile)
	if err != nil {
		return nil, fmt.Errorf("load lexicon: %w", err)
	}
	return splitter.NewEngine(splitter.WithLexicon(lex)), nil
}
