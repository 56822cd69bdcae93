package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Corphon/SceneSplitter/internal/models"
)

// render writes v in the requested format
func render(w io.Writer, format string, v interface{}) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(v)
	case "yaml", "yml":
		return renderYAML(w, v)
	case "text", "":
		return renderText(w, v)
	default:
		return fmt.Errorf("unknown output format %q (want text, json or yaml)", format)
	}
}

// renderYAML goes through JSON so YAML keys match the json tags
func renderYAML(w io.Writer, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic interface{}
	if err := json.Unmarshal(data, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}

func renderText(w io.Writer, v interface{}) error {
	switch x := v.(type) {
	case *models.SceneSplitResult:
		fmt.Fprintf(w, "strategy: %s  method: %s  scenes: %d  total: %.1fs\n",
			x.SplitStrategy, x.Metadata.SplitMethod, len(x.Scenes), x.Metadata.TotalDuration)
		writeScenes(w, x.Scenes)
	case *models.Scenario:
		fmt.Fprintf(w, "scenario %s %q  scenes: %d\n", x.ID, x.Title, len(x.Scenes))
		writeScenes(w, x.Scenes)
	case analyzeReport:
		a := x.Analysis
		fmt.Fprintf(w, "paragraphs:          %d\n", a.ParagraphCount)
		fmt.Fprintf(w, "sentences:           %d\n", a.SentenceCount)
		fmt.Fprintf(w, "words:               %d\n", a.WordCount)
		fmt.Fprintf(w, "words per sentence:  %.1f\n", a.AverageWordsPerSentence)
		fmt.Fprintf(w, "complexity:          %.2f\n", a.ComplexityScore)
		fmt.Fprintf(w, "recommended scenes:  %d\n", a.RecommendedSceneCount)
		fmt.Fprintf(w, "suggested strategy:  %s\n", x.SuggestedStrategy)
	default:
		return render(w, "json", v)
	}
	return nil
}

func writeScenes(w io.Writer, scenes []models.Scene) {
	for _, s := range scenes {
		fmt.Fprintf(w, "\n#%d [%s] %s (%.1fs)\n", s.Order, s.Type, s.Title, s.Duration)
		if s.Location != "" {
			fmt.Fprintf(w, "   location: %s\n", s.Location)
		}
		if len(s.Characters) > 0 {
			fmt.Fprintf(w, "   characters: %s\n", strings.Join(s.Characters, ", "))
		}
		fmt.Fprintf(w, "   %s\n", truncate(s.Description, 120))
	}
}
