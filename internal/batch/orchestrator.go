// Package batch drives the synthesize, submit and poll cycle for every scene
// of a run. Per-scene failures are recorded in the result; nothing short of
// batch cancellation stops the remaining scenes.
package batch

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/cinegen/cinegen/internal/domain"
	"github.com/cinegen/cinegen/internal/leonardo"
	"github.com/cinegen/cinegen/internal/prompt"
)

// MaxScenes caps how many scenes a single batch may attempt.
const MaxScenes = 252

// Generator is the remote-service surface the orchestrator drives.
type Generator interface {
	CreateGeneration(ctx context.Context, req leonardo.GenerationRequest) (string, error)
	WaitForGeneration(ctx context.Context, generationID string) (string, error)
}

// Options configure one batch run.
type Options struct {
	Model leonardo.Model
	// Concurrency bounds how many scenes are in flight at once. Zero or
	// negative means sequential, which keeps wall-clock time within
	// scene count times submission latency plus the poll budget.
	Concurrency int
	// OnProgress, when set, is invoked after each scene finishes (success or
	// failure) with the number completed so far and the total.
	OnProgress func(completed, total int)
	Logger     zerolog.Logger
}

type Orchestrator struct {
	generator Generator
	opts      Options
}

func NewOrchestrator(generator Generator, opts Options) *Orchestrator {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Orchestrator{generator: generator, opts: opts}
}

// Run generates one image per scene and returns one outcome per scene,
// ordered by ordinal regardless of completion order. Cancelling ctx stops new
// submissions; scenes already polling finish or time out on their own.
func (o *Orchestrator) Run(ctx context.Context, scenes []domain.Scene, references []domain.ReferenceImage) domain.BatchResult {
	outcomes := make([]domain.SceneOutcome, len(scenes))
	referenceIDs := make([]string, 0, len(references))
	for _, ref := range references {
		referenceIDs = append(referenceIDs, ref.RemoteID)
	}

	var (
		mu        sync.Mutex
		completed int
	)
	g := new(errgroup.Group)
	g.SetLimit(o.opts.Concurrency)
	for i, scene := range scenes {
		i, scene := i, scene
		g.Go(func() error {
			outcomes[i] = o.processScene(ctx, scene, references, referenceIDs)

			mu.Lock()
			completed++
			done := completed
			mu.Unlock()
			if o.opts.OnProgress != nil {
				o.opts.OnProgress(done, len(scenes))
			}
			return nil
		})
	}
	_ = g.Wait()
	return domain.BatchResult{Outcomes: outcomes}
}

func (o *Orchestrator) processScene(ctx context.Context, scene domain.Scene, references []domain.ReferenceImage, referenceIDs []string) domain.SceneOutcome {
	text := prompt.Synthesize(scene, references)
	outcome := domain.SceneOutcome{SceneOrdinal: scene.Ordinal, Prompt: text}

	if err := ctx.Err(); err != nil {
		outcome.State = domain.JobFailed
		outcome.Err = err
		return outcome
	}

	job := domain.GenerationJob{
		SceneOrdinal: scene.Ordinal,
		Prompt:       text,
		ModelID:      o.opts.Model.ID,
		ReferenceIDs: referenceIDs,
		State:        domain.JobSubmitted,
	}
	generationID, err := o.generator.CreateGeneration(ctx, leonardo.GenerationRequest{
		Prompt:       text,
		Model:        o.opts.Model,
		ReferenceIDs: referenceIDs,
	})
	if err != nil {
		job.State = domain.JobFailed
		o.opts.Logger.Error().Err(err).Int("scene", scene.Ordinal).Msg("scene submission failed")
		outcome.State = job.State
		outcome.Err = err
		return outcome
	}

	job.State = domain.JobPolling
	url, err := o.generator.WaitForGeneration(ctx, generationID)
	if err != nil {
		job.State = domain.JobFailed
		var timeout *domain.TimeoutError
		if errors.As(err, &timeout) {
			job.State = domain.JobTimedOut
		}
		o.opts.Logger.Error().Err(err).Int("scene", scene.Ordinal).Str("generation_id", generationID).Msg("scene generation failed")
		outcome.State = job.State
		outcome.Err = err
		return outcome
	}

	job.State = domain.JobComplete
	outcome.State = job.State
	outcome.Image = &domain.GeneratedImage{SceneOrdinal: scene.Ordinal, URL: url, Prompt: text}
	o.opts.Logger.Info().Int("scene", scene.Ordinal).Str("generation_id", generationID).Msg("scene complete")
	return outcome
}

// ClampCount bounds a requested image count to 1..min(sceneCount, MaxScenes).
func ClampCount(requested, sceneCount int) int {
	limit := sceneCount
	if limit > MaxScenes {
		limit = MaxScenes
	}
	if requested < 1 {
		return 1
	}
	if requested > limit {
		return limit
	}
	return requested
}
