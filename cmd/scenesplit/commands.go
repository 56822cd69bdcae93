package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Corphon/SceneSplitter/internal/models"
	"github.com/Corphon/SceneSplitter/internal/splitter"
)

// splitFlags are the scene constraints shared by split and resplit
type splitFlags struct {
	strategy         string
	target           int
	minDuration      float64
	maxDuration      float64
	preserveDialogue bool
	scenario         bool
	title            string
}

func (f *splitFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.strategy, "strategy", "s", string(models.StrategyHybrid),
		"Split strategy: natural_breaks, duration_based, content_based, hybrid")
	cmd.Flags().IntVarP(&f.target, "target", "n", models.DefaultTargetSceneCount, "Target scene count")
	cmd.Flags().Float64Var(&f.minDuration, "min", models.DefaultMinSceneDuration, "Minimum scene duration in seconds")
	cmd.Flags().Float64Var(&f.maxDuration, "max", models.DefaultMaxSceneDuration, "Maximum scene duration in seconds")
	cmd.Flags().BoolVar(&f.preserveDialogue, "preserve-dialogue", false, "Never split inside a dialogue run")
}

func (f *splitFlags) options() models.SceneSplitOptions {
	return models.SceneSplitOptions{
		Strategy:         models.SplitStrategy(f.strategy),
		UseAI:            models.Bool(false),
		PreserveDialogue: f.preserveDialogue,
		MinSceneDuration: f.minDuration,
		MaxSceneDuration: f.maxDuration,
		TargetSceneCount: f.target,
	}
}

func newSplitCmd(global *globalFlags) *cobra.Command {
	flags := &splitFlags{}
	cmd := &cobra.Command{
		Use:   "split [file]",
		Short: "Split story text into scenes",
		Long: `Split story text into scenes. Reads the file argument, or stdin when the
argument is omitted or "-".

Examples:
  scenesplit split story.txt
  scenesplit split story.txt --strategy duration_based --target 8
  scenesplit split story.txt --scenario --title "Busan" -o json > scenario.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			engine, err := newEngine(global)
			if err != nil {
				return err
			}

			result := engine.SplitStory(cmd.Context(), text, flags.options())
			printWarnings(cmd, result.Warnings)
			if !result.Success {
				return fmt.Errorf("split failed: %s", result.Error)
			}

			if flags.scenario {
				now := time.Now()
				return render(cmd.OutOrStdout(), global.output, &models.Scenario{
					ID:            uuid.NewString(),
					Title:         flags.title,
					Scenes:        result.Scenes,
					SourceText:    text,
					SplitStrategy: result.SplitStrategy,
					CreatedAt:     now,
					UpdatedAt:     now,
				})
			}
			return render(cmd.OutOrStdout(), global.output, result)
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&flags.scenario, "scenario", false, "Emit a scenario document instead of the raw result")
	cmd.Flags().StringVar(&flags.title, "title", "", "Scenario title (with --scenario)")
	return cmd
}

func newAnalyzeCmd(global *globalFlags) *cobra.Command {
	var targetDuration float64
	cmd := &cobra.Command{
		Use:   "analyze [file]",
		Short: "Show text statistics and a suggested strategy",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			analysis := splitter.Analyze(text)
			report := analyzeReport{
				Analysis:          analysis,
				SuggestedStrategy: splitter.SuggestStrategy(analysis, targetDuration),
			}
			return render(cmd.OutOrStdout(), global.output, report)
		},
	}
	cmd.Flags().Float64Var(&targetDuration, "target-duration", 0, "Desired total video length in seconds")
	return cmd
}

func newResplitCmd(global *globalFlags) *cobra.Command {
	flags := &splitFlags{}
	cmd := &cobra.Command{
		Use:   "resplit <scenario.json>",
		Short: "Re-split a saved scenario into a new scene count",
		Long: `Re-split a scenario document (as written by "split --scenario" or the
server) into --target scenes. On failure the original scenes are kept and
the command exits non-zero.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			var scenario models.Scenario
			if err := json.Unmarshal([]byte(data), &scenario); err != nil {
				return fmt.Errorf("parse scenario: %w", err)
			}
			engine, err := newEngine(global)
			if err != nil {
				return err
			}

			result := engine.ResplitScenario(cmd.Context(), &scenario, flags.target, flags.options())
			printWarnings(cmd, result.Warnings)
			if !result.Success {
				return fmt.Errorf("resplit failed: %s", result.Error)
			}

			scenario.Scenes = result.Scenes
			scenario.SplitStrategy = result.SplitStrategy
			scenario.UpdatedAt = time.Now()
			return render(cmd.OutOrStdout(), global.output, &scenario)
		},
	}
	flags.register(cmd)
	return cmd
}

// analyzeReport is the output of the analyze command
type analyzeReport struct {
	Analysis          models.TextAnalysis  `json:"analysis"`
	SuggestedStrategy models.SplitStrategy `json:"suggested_strategy"`
}

// readInput reads the file named by args[0], or stdin
func readInput(cmd *cobra.Command, args []string) (string, error) {
	var (
		data []byte
		err  error
	)
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return string(data), nil
}

func printWarnings(cmd *cobra.Command, warnings []string) {
	for _, w := range warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
	}
}

// truncate shortens s to n runes for the text view
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
