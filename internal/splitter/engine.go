// internal/splitter/engine.go
package splitter

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/Corphon/SceneSplitter/internal/errors"
	"github.com/Corphon/SceneSplitter/internal/models"
	"github.com/Corphon/SceneSplitter/internal/utils"
)

// Stage names reported through ProgressFunc.
type Stage string

const (
	StageAnalyzed   Stage = "analyzed"
	StageAIAttempt  Stage = "ai_attempt"
	StageAIFallback Stage = "ai_fallback"
	StageSegmented  Stage = "segmented"
	StageRebalanced Stage = "rebalanced"
	StageCompleted  Stage = "completed"
	StageFailed     Stage = "failed"
)

// ProgressFunc receives pipeline progress. percent is in [0, 100].
type ProgressFunc func(stage Stage, percent int, message string)

const (
	warnAIFallback      = "AI 분할에 실패하여 규칙 기반 분할을 사용하였습니다"
	warnAIUnavailable   = "AI 분할기가 설정되지 않아 규칙 기반 분할을 사용하였습니다"
	warnResplitKept     = "재분할에 실패하여 기존 씬을 유지합니다"
	errMsgPipelinePanic = "씬 분할 중 내부 오류가 발생했습니다"
)

// Engine splits story text into rebalanced scenes. It keeps no per-call
// state and is safe for concurrent use.
type Engine struct {
	lexicon Lexicon
	ai      AISplitter
	ids     IDGenerator
	logger  *utils.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLexicon replaces the keyword sets.
func WithLexicon(lex Lexicon) Option {
	return func(e *Engine) {
		e.lexicon = lex.withDefaults().normalized()
	}
}

// WithAISplitter enables the AI path.
func WithAISplitter(ai AISplitter) Option {
	return func(e *Engine) {
		e.ai = ai
	}
}

// WithIDGenerator replaces the scene id source.
func WithIDGenerator(ids IDGenerator) Option {
	return func(e *Engine) {
		if ids != nil {
			e.ids = ids
		}
	}
}

// NewEngine creates an engine with the default lexicon and UUID ids.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		lexicon: DefaultLexicon().normalized(),
		ids:     NewUUIDGenerator(),
		logger:  utils.GetLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Lexicon returns the keyword sets in use.
func (e *Engine) Lexicon() Lexicon {
	return e.lexicon
}

// HasAISplitter reports whether an AI backend is configured.
func (e *Engine) HasAISplitter() bool {
	return e.ai != nil
}

// SplitStory splits text into scenes. It never panics and never returns nil;
// failures come back as a result with Success=false and Err set.
func (e *Engine) SplitStory(ctx context.Context, text string, opts models.SceneSplitOptions) *models.SceneSplitResult {
	return e.SplitStoryWithProgress(ctx, text, opts, nil)
}

// SplitStoryWithProgress is SplitStory with stage callbacks.
func (e *Engine) SplitStoryWithProgress(ctx context.Context, text string, opts models.SceneSplitOptions, progress ProgressFunc) (result *models.SceneSplitResult) {
	opts = opts.WithDefaults()
	run := &splitRun{engine: e, text: text, opts: opts, progress: progress}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("scene split panicked", map[string]interface{}{
				"panic":    fmt.Sprint(r),
				"strategy": string(opts.Strategy),
			})
			result = run.fail(apperrors.NewPipelineError(errMsgPipelinePanic, fmt.Errorf("%v", r)))
		}
	}()

	if ctx == nil {
		ctx = context.Background()
	}
	return run.execute(ctx)
}

// ResplitScenario re-splits the text of an existing scenario into
// newTargetCount scenes. On failure the original scenes are returned
// unchanged alongside the error.
func (e *Engine) ResplitScenario(ctx context.Context, scenario *models.Scenario, newTargetCount int, opts models.SceneSplitOptions) (result *models.SceneSplitResult) {
	if scenario == nil {
		run := &splitRun{engine: e, opts: opts.WithDefaults()}
		return run.fail(apperrors.NewValidationError("재분할할 시나리오가 없습니다", nil))
	}

	original := cloneScenes(scenario.Scenes)
	keepOriginal := func(res *models.SceneSplitResult) *models.SceneSplitResult {
		res.Scenes = original
		res.Warnings = append(res.Warnings, warnResplitKept)
		return res
	}

	defer func() {
		if r := recover(); r != nil {
			run := &splitRun{engine: e, opts: opts.WithDefaults()}
			result = keepOriginal(run.fail(apperrors.NewPipelineError(errMsgPipelinePanic, fmt.Errorf("%v", r))))
		}
	}()

	opts.TargetSceneCount = newTargetCount
	if newTargetCount <= 0 {
		run := &splitRun{engine: e, opts: opts.WithDefaults()}
		return keepOriginal(run.fail(apperrors.NewInvalidOptionsError(
			fmt.Sprintf("목표 씬 수는 0보다 커야 합니다: %d", newTargetCount))))
	}

	res := e.SplitStory(ctx, ScenarioText(scenario), opts)
	if !res.Success {
		return keepOriginal(res)
	}
	return res
}

// ScenarioText flattens scenes back into story text: fields of one scene are
// joined by newlines, scenes by blank lines.
func ScenarioText(scenario *models.Scenario) string {
	if scenario == nil {
		return ""
	}
	blocks := make([]string, 0, len(scenario.Scenes))
	for _, s := range scenario.Scenes {
		fields := make([]string, 0, 4)
		for _, f := range []string{s.Title, s.Description, s.Dialogue, s.ActionDescription} {
			f = strings.TrimSpace(f)
			// dialogue lines are usually already part of the description
			if f == "" || (len(fields) > 0 && strings.Contains(fields[len(fields)-1], f)) {
				continue
			}
			fields = append(fields, f)
		}
		if len(fields) > 0 {
			blocks = append(blocks, strings.Join(fields, "\n"))
		}
	}
	return strings.Join(blocks, "\n\n")
}

// ValidateOptions rejects constraint sets no scene list can satisfy.
// Zero values are treated as unset and replaced by defaults first.
func ValidateOptions(opts models.SceneSplitOptions) error {
	opts = opts.WithDefaults()
	switch {
	case !opts.Strategy.Valid():
		return apperrors.NewInvalidOptionsError(fmt.Sprintf("알 수 없는 분할 전략: %s", opts.Strategy))
	case opts.MinSceneDuration <= 0:
		return apperrors.NewInvalidOptionsError("최소 씬 길이는 0보다 커야 합니다")
	case opts.MaxSceneDuration <= 0:
		return apperrors.NewInvalidOptionsError("최대 씬 길이는 0보다 커야 합니다")
	case opts.MinSceneDuration > opts.MaxSceneDuration:
		return apperrors.NewInvalidOptionsError(fmt.Sprintf(
			"최소 씬 길이(%.1f)가 최대 씬 길이(%.1f)보다 큽니다", opts.MinSceneDuration, opts.MaxSceneDuration))
	case opts.TargetSceneCount <= 0:
		return apperrors.NewInvalidOptionsError("목표 씬 수는 0보다 커야 합니다")
	case opts.TargetDuration < 0:
		return apperrors.NewInvalidOptionsError("목표 길이는 음수일 수 없습니다")
	}
	return nil
}

// splitRun carries the state of one SplitStory call.
type splitRun struct {
	engine   *Engine
	text     string
	opts     models.SceneSplitOptions
	progress ProgressFunc
	warnings []string
	analysis *models.TextAnalysis
}

// report forwards to the progress callback; a panicking callback is logged and ignored.
func (r *splitRun) report(stage Stage, percent int, message string) {
	if r.progress == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.engine.logger.Warn("progress callback panicked", map[string]interface{}{
				"stage": string(stage),
				"panic": fmt.Sprint(rec),
			})
		}
	}()
	r.progress(stage, percent, message)
}

func (r *splitRun) warn(msg string) {
	r.warnings = append(r.warnings, msg)
}

func (r *splitRun) execute(ctx context.Context) *models.SceneSplitResult {
	e := r.engine
	if err := ValidateOptions(r.opts); err != nil {
		return r.fail(err)
	}

	text := normalizeText(r.text)
	analysis := Analyze(text)
	r.analysis = &analysis
	suggested := SuggestStrategy(analysis, r.opts.TargetDuration)
	r.report(StageAnalyzed, 10, fmt.Sprintf("%d paragraphs, %d words", analysis.ParagraphCount, analysis.WordCount))

	var scenes []models.Scene
	method := models.SplitMethodRuleBased

	if r.opts.AIEnabled() && strings.TrimSpace(text) != "" {
		if e.ai == nil {
			r.warn(warnAIUnavailable)
		} else {
			r.report(StageAIAttempt, 20, "requesting AI split")
			aiScenes, err := r.tryAI(ctx, text)
			switch {
			case err == nil:
				scenes = aiScenes
				method = models.SplitMethodAI
			case r.opts.FallbackEnabled():
				e.logger.Warn("AI split failed, falling back to rules", map[string]interface{}{
					"err":      err,
					"strategy": string(r.opts.Strategy),
				})
				r.warn(warnAIFallback)
				r.report(StageAIFallback, 30, warnAIFallback)
				method = models.SplitMethodHybrid
			default:
				return r.fail(apperrors.NewAIFailureError("AI 분할에 실패했습니다", err))
			}
		}
	}

	materializer := NewMaterializer(e.lexicon, e.ids, r.opts.MinSceneDuration, r.opts.MaxSceneDuration)
	if method != models.SplitMethodAI {
		paragraphs := SplitParagraphs(text)
		bounds := FindBreakpoints(r.opts.Strategy, paragraphs, r.opts.TargetSceneCount, e.lexicon)
		if r.opts.PreserveDialogue {
			bounds = preserveDialogueRuns(bounds, paragraphs, e.lexicon)
		}
		scenes = materializer.MaterializeAll(segmentsOf(paragraphs, bounds))
	}
	r.report(StageSegmented, 50, fmt.Sprintf("%d segments", len(scenes)))

	var stats models.RebalanceStats
	if len(scenes) == 0 {
		scenes = []models.Scene{materializer.DefaultScene(text)}
	} else {
		scenes, stats = Rebalance(scenes, RebalanceOptions{
			MinDuration: r.opts.MinSceneDuration,
			MaxDuration: r.opts.MaxSceneDuration,
			TargetCount: r.opts.TargetSceneCount,
		})
	}
	r.report(StageRebalanced, 90, fmt.Sprintf("%d scenes", len(scenes)))

	result := r.succeed(scenes, method, suggested, stats)
	r.report(StageCompleted, 100, "done")
	return result
}

// tryAI makes the single AI attempt. A panicking adapter counts as a failure.
func (r *splitRun) tryAI(ctx context.Context, text string) (scenes []models.Scene, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			scenes, err = nil, fmt.Errorf("AI splitter panicked: %v", rec)
		}
	}()

	raw, err := r.engine.ai.SplitScenes(ctx, AISplitRequest{
		StoryText:        text,
		TargetSceneCount: r.opts.TargetSceneCount,
		MaxSceneDuration: r.opts.MaxSceneDuration,
	})
	if err != nil {
		return nil, err
	}
	return r.engine.normalizeAIScenes(raw, r.opts)
}

func (r *splitRun) succeed(scenes []models.Scene, method models.SplitMethod, suggested models.SplitStrategy, stats models.RebalanceStats) *models.SceneSplitResult {
	total := 0.0
	for _, s := range scenes {
		total += s.Duration
	}
	return &models.SceneSplitResult{
		Success:       true,
		Scenes:        scenes,
		SplitStrategy: r.opts.Strategy,
		Metadata: models.SplitMetadata{
			OriginalText:      r.text,
			TargetSceneCount:  r.opts.TargetSceneCount,
			ActualSceneCount:  len(scenes),
			AverageDuration:   total / float64(len(scenes)),
			TotalDuration:     total,
			SplitMethod:       method,
			SuggestedStrategy: suggested,
			Analysis:          r.analysis,
			Stats:             stats,
		},
		Warnings: r.collectedWarnings(),
	}
}

func (r *splitRun) fail(err error) *models.SceneSplitResult {
	r.report(StageFailed, 100, err.Error())
	return &models.SceneSplitResult{
		Success:       false,
		Scenes:        []models.Scene{},
		SplitStrategy: r.opts.Strategy,
		Metadata: models.SplitMetadata{
			OriginalText:     r.text,
			TargetSceneCount: r.opts.TargetSceneCount,
			Analysis:         r.analysis,
		},
		Warnings: r.collectedWarnings(),
		Error:    err.Error(),
		Err:      err,
	}
}

func (r *splitRun) collectedWarnings() []string {
	if r.warnings == nil {
		return []string{}
	}
	return append([]string(nil), r.warnings...)
}
