package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/cinegen/cinegen/internal/domain"
	"github.com/cinegen/cinegen/internal/leonardo"
)

type fakeGenerator struct {
	mu          sync.Mutex
	submitted   []string
	failSubmit  string // prompts containing this fail submission
	failPoll    string // generation ids containing this fail polling
	timeoutPoll string // generation ids containing this time out
	pollDelay   time.Duration
}

func (f *fakeGenerator) CreateGeneration(ctx context.Context, req leonardo.GenerationRequest) (string, error) {
	if f.failSubmit != "" && strings.Contains(req.Prompt, f.failSubmit) {
		return "", &domain.SubmissionError{StatusCode: 500, Body: "boom"}
	}
	f.mu.Lock()
	f.submitted = append(f.submitted, req.Prompt)
	n := len(f.submitted)
	f.mu.Unlock()
	return fmt.Sprintf("gen-%d-%s", n, scenePart(req.Prompt)), nil
}

func (f *fakeGenerator) WaitForGeneration(ctx context.Context, generationID string) (string, error) {
	if f.pollDelay > 0 {
		time.Sleep(f.pollDelay)
	}
	if f.failPoll != "" && strings.Contains(generationID, f.failPoll) {
		return "", &domain.GenerationError{Reason: "render failed"}
	}
	if f.timeoutPoll != "" && strings.Contains(generationID, f.timeoutPoll) {
		return "", &domain.TimeoutError{Attempts: 30, Delay: 2 * time.Second}
	}
	return "https://cdn.example.com/" + generationID + ".png", nil
}

// scenePart extracts "sceneN" from a prompt like "Scene N: ...".
func scenePart(prompt string) string {
	rest := strings.TrimPrefix(prompt, "Scene ")
	if idx := strings.Index(rest, ":"); idx > 0 {
		return "scene" + rest[:idx]
	}
	return "scene?"
}

func makeScenes(n int) []domain.Scene {
	scenes := make([]domain.Scene, n)
	for i := range scenes {
		scenes[i] = domain.Scene{Ordinal: i + 1, ScriptLine: fmt.Sprintf("line %d", i+1)}
	}
	return scenes
}

func testModel() leonardo.Model {
	m, _ := leonardo.LookupModel("creative")
	return m
}

func TestRunPartialFailureKeepsOrdinals(t *testing.T) {
	gen := &fakeGenerator{failSubmit: "Scene 3:"}
	orch := NewOrchestrator(gen, Options{Model: testModel(), Logger: zerolog.Nop()})

	result := orch.Run(context.Background(), makeScenes(5), nil)
	if len(result.Outcomes) != 5 {
		t.Fatalf("outcome count: got %d want 5", len(result.Outcomes))
	}
	for i, outcome := range result.Outcomes {
		if outcome.SceneOrdinal != i+1 {
			t.Fatalf("outcome %d ordinal: got %d want %d", i, outcome.SceneOrdinal, i+1)
		}
	}
	for _, i := range []int{0, 1, 3, 4} {
		outcome := result.Outcomes[i]
		if outcome.Failed() || outcome.State != domain.JobComplete {
			t.Fatalf("scene %d should have succeeded: %+v", i+1, outcome)
		}
		if outcome.Image.SceneOrdinal != i+1 {
			t.Fatalf("scene %d image ordinal: got %d", i+1, outcome.Image.SceneOrdinal)
		}
	}
	failed := result.Outcomes[2]
	if !failed.Failed() || failed.State != domain.JobFailed {
		t.Fatalf("scene 3 should have failed: %+v", failed)
	}
	var submission *domain.SubmissionError
	if !errors.As(failed.Err, &submission) {
		t.Fatalf("scene 3 error: got %v want SubmissionError", failed.Err)
	}
}

func TestRunTerminalStateExclusivity(t *testing.T) {
	gen := &fakeGenerator{failPoll: "scene2", timeoutPoll: "scene3"}
	orch := NewOrchestrator(gen, Options{Model: testModel(), Logger: zerolog.Nop()})

	result := orch.Run(context.Background(), makeScenes(3), nil)
	wantStates := []domain.JobState{domain.JobComplete, domain.JobFailed, domain.JobTimedOut}
	for i, outcome := range result.Outcomes {
		if outcome.State != wantStates[i] {
			t.Fatalf("scene %d state: got %s want %s", i+1, outcome.State, wantStates[i])
		}
		if !outcome.State.Terminal() {
			t.Fatalf("scene %d state %s is not terminal", i+1, outcome.State)
		}
		if (outcome.Image != nil) == (outcome.Err != nil) {
			t.Fatalf("scene %d must carry exactly one of image or error: %+v", i+1, outcome)
		}
	}
}

func TestRunReportsProgressPerScene(t *testing.T) {
	gen := &fakeGenerator{}
	var mu sync.Mutex
	var progress [][2]int
	orch := NewOrchestrator(gen, Options{
		Model:  testModel(),
		Logger: zerolog.Nop(),
		OnProgress: func(completed, total int) {
			mu.Lock()
			progress = append(progress, [2]int{completed, total})
			mu.Unlock()
		},
	})

	orch.Run(context.Background(), makeScenes(4), nil)
	if len(progress) != 4 {
		t.Fatalf("progress calls: got %d want 4", len(progress))
	}
	last := progress[len(progress)-1]
	if last != [2]int{4, 4} {
		t.Fatalf("final progress: got %v want [4 4]", last)
	}
	for i, p := range progress {
		if p[0] != i+1 || p[1] != 4 {
			t.Fatalf("progress %d: got %v", i, p)
		}
	}
}

func TestRunConcurrentResultsStayOrdinalSorted(t *testing.T) {
	gen := &fakeGenerator{pollDelay: 5 * time.Millisecond}
	orch := NewOrchestrator(gen, Options{Model: testModel(), Concurrency: 4, Logger: zerolog.Nop()})

	result := orch.Run(context.Background(), makeScenes(8), nil)
	if len(result.Outcomes) != 8 {
		t.Fatalf("outcome count: got %d want 8", len(result.Outcomes))
	}
	for i, outcome := range result.Outcomes {
		if outcome.SceneOrdinal != i+1 {
			t.Fatalf("outcome %d ordinal: got %d want %d", i, outcome.SceneOrdinal, i+1)
		}
	}
}

func TestRunPassesReferenceIDs(t *testing.T) {
	var captured leonardo.GenerationRequest
	gen := &capturingGenerator{captured: &captured}
	orch := NewOrchestrator(gen, Options{Model: testModel(), Logger: zerolog.Nop()})

	refs := []domain.ReferenceImage{
		{Tag: domain.TagStyle, Description: "noir", RemoteID: "init-1"},
		{Tag: domain.TagCharacter, Description: "hero", RemoteID: "init-2"},
	}
	orch.Run(context.Background(), makeScenes(1), refs)
	if len(captured.ReferenceIDs) != 2 || captured.ReferenceIDs[0] != "init-1" || captured.ReferenceIDs[1] != "init-2" {
		t.Fatalf("reference ids: got %v", captured.ReferenceIDs)
	}
	if !strings.Contains(captured.Prompt, "noir") || !strings.Contains(captured.Prompt, "hero") {
		t.Fatalf("reference clauses missing from prompt: %q", captured.Prompt)
	}
}

type capturingGenerator struct {
	captured *leonardo.GenerationRequest
}

func (c *capturingGenerator) CreateGeneration(ctx context.Context, req leonardo.GenerationRequest) (string, error) {
	*c.captured = req
	return "gen-1", nil
}

func (c *capturingGenerator) WaitForGeneration(ctx context.Context, generationID string) (string, error) {
	return "https://cdn.example.com/out.png", nil
}

func TestRunCancelledContextFailsRemainingScenes(t *testing.T) {
	gen := &fakeGenerator{}
	orch := NewOrchestrator(gen, Options{Model: testModel(), Logger: zerolog.Nop()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := orch.Run(ctx, makeScenes(3), nil)
	for i, outcome := range result.Outcomes {
		if !outcome.Failed() {
			t.Fatalf("scene %d should have failed after cancellation", i+1)
		}
		if !errors.Is(outcome.Err, context.Canceled) {
			t.Fatalf("scene %d error: got %v want context.Canceled", i+1, outcome.Err)
		}
	}
	if len(gen.submitted) != 0 {
		t.Fatalf("no submissions expected after cancellation, got %d", len(gen.submitted))
	}
}

func TestClampCount(t *testing.T) {
	cases := []struct {
		requested, scenes, want int
	}{
		{0, 10, 1},
		{-3, 10, 1},
		{5, 10, 5},
		{10, 10, 10},
		{15, 10, 10},
		{300, 400, MaxScenes},
	}
	for _, tc := range cases {
		if got := ClampCount(tc.requested, tc.scenes); got != tc.want {
			t.Fatalf("ClampCount(%d, %d): got %d want %d", tc.requested, tc.scenes, got, tc.want)
		}
	}
}
