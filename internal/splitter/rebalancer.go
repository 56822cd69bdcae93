// internal/splitter/rebalancer.go
package splitter

import (
	"fmt"
	"math"
	"strings"

	"github.com/Corphon/SceneSplitter/internal/models"
)

// RebalanceOptions bounds the rebalanced scene list.
type RebalanceOptions struct {
	MinDuration float64
	MaxDuration float64
	TargetCount int
}

// excessFactor is how far above the target count a list may grow before
// merge-excess kicks in.
const excessFactor = 1.5

// maxSplitParts bounds the part count of a single split-long pass.
const maxSplitParts = 1 << 20

// Rebalance runs merge-short, split-long and merge-excess in that order and
// renumbers the result 1..N. The input slice is not modified.
func Rebalance(scenes []models.Scene, opts RebalanceOptions) ([]models.Scene, models.RebalanceStats) {
	var stats models.RebalanceStats

	out := cloneScenes(scenes)
	out, stats.ShortMerges = mergeShort(out, opts.MinDuration)
	out, stats.LongSplits = splitLong(out, opts.MaxDuration)
	out, stats.ExcessMerges = mergeExcess(out, opts.TargetCount, opts.MaxDuration)
	renumber(out)

	return out, stats
}

// mergeGroup accumulates consecutive scenes that collapse into one.
type mergeGroup struct {
	scene     models.Scene
	baseNotes string
	count     int
}

func newMergeGroup(s models.Scene) *mergeGroup {
	return &mergeGroup{scene: s, baseNotes: s.Notes, count: 1}
}

func (g *mergeGroup) absorb(next models.Scene) {
	g.scene = mergeScenes(g.scene, next)
	g.count++
}

func (g *mergeGroup) emit() models.Scene {
	s := g.scene
	if g.count > 1 {
		s.Notes = appendNote(g.baseNotes, fmt.Sprintf("병합된 씬 (%d개 씬)", g.count))
	}
	return s
}

// mergeShort folds every scene shorter than min into the accumulator before it.
// A short leading accumulator also absorbs its successor, so only a scene
// that is short and alone can stay below min.
func mergeShort(scenes []models.Scene, min float64) ([]models.Scene, int) {
	if len(scenes) < 2 {
		return scenes, 0
	}

	merges := 0
	out := make([]models.Scene, 0, len(scenes))
	acc := newMergeGroup(scenes[0])
	for _, s := range scenes[1:] {
		if s.Duration < min || acc.scene.Duration < min {
			acc.absorb(s)
			merges++
			continue
		}
		out = append(out, acc.emit())
		acc = newMergeGroup(s)
	}
	return append(out, acc.emit()), merges
}

// splitLong partitions every scene longer than max into ceil(d/max) parts.
func splitLong(scenes []models.Scene, max float64) ([]models.Scene, int) {
	if max <= 0 {
		return scenes, 0
	}

	splits := 0
	out := make([]models.Scene, 0, len(scenes))
	for _, s := range scenes {
		if s.Duration <= max {
			out = append(out, s)
			continue
		}
		parts := splitScene(s, partCount(s.Duration, max))
		if len(parts) > 1 {
			splits++
		}
		out = append(out, parts...)
	}
	return out, splits
}

// partCount is ceil(d/max) clamped to what an int can hold. splitScene caps
// it again at the number of text units.
func partCount(d, max float64) int {
	parts := math.Ceil(d / max)
	if math.IsNaN(parts) || parts >= maxSplitParts {
		return maxSplitParts
	}
	if parts < 1 {
		return 1
	}
	return int(parts)
}

// splitScene divides s into at most k parts along paragraph boundaries, or
// sentence boundaries when there are fewer paragraphs than parts. A scene with
// a single indivisible unit is returned unchanged.
func splitScene(s models.Scene, k int) []models.Scene {
	units := SplitParagraphs(s.Description)
	sep := "\n\n"
	if len(units) < k {
		if sentences := splitSentences(s.Description); len(sentences) > len(units) {
			units, sep = sentences, " "
		}
	}
	if len(units) < 2 {
		return []models.Scene{s}
	}
	if k > len(units) {
		k = len(units)
	}

	groups := distribute(units, k)
	dialogue := strings.Split(s.Dialogue, "\n")
	parts := make([]models.Scene, len(groups))
	for i, g := range groups {
		p := s.Clone()
		p.ID = fmt.Sprintf("%s_split_%d", s.ID, i)
		p.Title = fmt.Sprintf("%s (파트 %d)", s.Title, i+1)
		p.Description = strings.Join(g, sep)
		p.Duration = s.Duration / float64(len(groups))
		p.Dialogue = linesWithin(dialogue, p.Description)
		p.Notes = appendNote(s.Notes, fmt.Sprintf("분할된 씬 (%d/%d)", i+1, len(groups)))
		parts[i] = p
	}
	return parts
}

// distribute deals units into k contiguous groups whose sizes differ by at
// most one, so no group exceeds ceil(n/k).
func distribute(units []string, k int) [][]string {
	n := len(units)
	base, rem := n/k, n%k
	groups := make([][]string, 0, k)
	start := 0
	for i := 0; i < k; i++ {
		size := base
		if i < rem {
			size++
		}
		groups = append(groups, units[start:start+size])
		start += size
	}
	return groups
}

func linesWithin(lines []string, text string) string {
	var kept []string
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" && strings.Contains(text, l) {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}

// mergeExcess consolidates the list into target buckets when it has grown past
// target*1.5. Within a bucket scenes merge left to right while the merged
// duration stays within max.
func mergeExcess(scenes []models.Scene, target int, max float64) ([]models.Scene, int) {
	if target <= 0 || float64(len(scenes)) <= float64(target)*excessFactor {
		return scenes, 0
	}

	merges := 0
	ratio := float64(len(scenes)) / float64(target)
	out := make([]models.Scene, 0, target)
	for i := 0; i < target; i++ {
		start := int(math.Floor(float64(i) * ratio))
		end := int(math.Floor(float64(i+1) * ratio))
		if i == target-1 {
			end = len(scenes)
		}
		bucket := scenes[start:end]
		if len(bucket) == 0 {
			continue
		}

		acc := newMergeGroup(bucket[0])
		for _, s := range bucket[1:] {
			if max > 0 && acc.scene.Duration+s.Duration > max {
				out = append(out, acc.emit())
				acc = newMergeGroup(s)
				continue
			}
			acc.absorb(s)
			merges++
		}
		out = append(out, acc.emit())
	}
	return out, merges
}

// mergeScenes combines b into a. Identity and type come from a.
func mergeScenes(a, b models.Scene) models.Scene {
	out := a.Clone()
	out.Description = joinNonEmpty("\n\n", a.Description, b.Description)
	out.Duration = a.Duration + b.Duration
	out.Title = joinNonEmpty(" & ", a.Title, b.Title)
	out.Dialogue = joinNonEmpty("\n", a.Dialogue, b.Dialogue)
	out.ActionDescription = joinNonEmpty("\n", a.ActionDescription, b.ActionDescription)
	out.Characters = unionStrings(a.Characters, b.Characters)
	out.VisualElements = unionStrings(a.VisualElements, b.VisualElements)
	if out.Location == "" {
		out.Location = b.Location
	}
	return out
}

func renumber(scenes []models.Scene) {
	for i := range scenes {
		scenes[i].Order = i + 1
	}
}

func cloneScenes(scenes []models.Scene) []models.Scene {
	out := make([]models.Scene, len(scenes))
	for i, s := range scenes {
		out[i] = s.Clone()
	}
	return out
}
