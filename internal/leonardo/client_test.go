package leonardo

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cinegen/cinegen/internal/domain"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(Options{
		APIKey:          "test-key",
		BaseURL:         baseURL,
		MaxPollAttempts: 3,
		PollDelay:       time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	return client
}

func TestNewClientRequiresCredential(t *testing.T) {
	if _, err := NewClient(Options{APIKey: "  "}); !errors.Is(err, domain.ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
}

func TestCreateGenerationPayload(t *testing.T) {
	var captured map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Fatalf("unexpected auth header: %s", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"sdGenerationJob": map[string]string{"generationId": "gen-1"},
		})
	}))
	defer ts.Close()

	client := newTestClient(t, ts.URL)
	model, _ := LookupModel("creative")
	id, err := client.CreateGeneration(context.Background(), GenerationRequest{
		Prompt:       "Scene 1: A.",
		Model:        model,
		ReferenceIDs: []string{"ref-1", "ref-2"},
	})
	if err != nil {
		t.Fatalf("CreateGeneration error: %v", err)
	}
	if id != "gen-1" {
		t.Fatalf("generation id: got %q want %q", id, "gen-1")
	}
	if captured["modelId"] != "ac614f96-1082-45bf-be9d-757f2d31c174" {
		t.Fatalf("modelId mismatch: %v", captured["modelId"])
	}
	if captured["width"] != float64(1024) || captured["height"] != float64(576) {
		t.Fatalf("dimensions mismatch: %v x %v", captured["width"], captured["height"])
	}
	if captured["num_images"] != float64(1) {
		t.Fatalf("num_images mismatch: %v", captured["num_images"])
	}
	if captured["negative_prompt"] != NegativePrompt {
		t.Fatalf("negative prompt mismatch: %v", captured["negative_prompt"])
	}
	ids, ok := captured["init_image_ids"].([]any)
	if !ok || len(ids) != 2 || ids[0] != "ref-1" {
		t.Fatalf("init_image_ids mismatch: %v", captured["init_image_ids"])
	}
}

func TestCreateGenerationFlagExclusivity(t *testing.T) {
	var captured map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		captured = payload
		_ = json.NewEncoder(w).Encode(map[string]any{
			"sdGenerationJob": map[string]string{"generationId": "gen-1"},
		})
	}))
	defer ts.Close()
	client := newTestClient(t, ts.URL)

	model, _ := LookupModel("creative")
	if _, err := client.CreateGeneration(context.Background(), GenerationRequest{Prompt: "p", Model: model}); err != nil {
		t.Fatalf("CreateGeneration error: %v", err)
	}
	if captured["alchemy"] != true || captured["promptMagic"] != true {
		t.Fatalf("default model must carry alchemy and promptMagic: %v", captured)
	}
	if _, ok := captured["photoReal"]; ok {
		t.Fatalf("default model must not carry photoReal: %v", captured)
	}

	model, _ = LookupModel("photoreal")
	if _, err := client.CreateGeneration(context.Background(), GenerationRequest{Prompt: "p", Model: model}); err != nil {
		t.Fatalf("CreateGeneration error: %v", err)
	}
	if captured["photoReal"] != true {
		t.Fatalf("photoreal model must carry photoReal: %v", captured)
	}
	if _, ok := captured["alchemy"]; ok {
		t.Fatalf("photoreal model must not carry alchemy: %v", captured)
	}
	if _, ok := captured["promptMagic"]; ok {
		t.Fatalf("photoreal model must not carry promptMagic: %v", captured)
	}
}

func TestCreateGenerationRejection(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("quota exceeded"))
	}))
	defer ts.Close()
	client := newTestClient(t, ts.URL)

	model, _ := LookupModel("creative")
	_, err := client.CreateGeneration(context.Background(), GenerationRequest{Prompt: "p", Model: model})
	var submission *domain.SubmissionError
	if !errors.As(err, &submission) {
		t.Fatalf("expected SubmissionError, got %v", err)
	}
	if submission.StatusCode != http.StatusForbidden || submission.Body != "quota exceeded" {
		t.Fatalf("unexpected submission error: %+v", submission)
	}
}

func TestWaitForGenerationCompletes(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		status := "PENDING"
		images := []map[string]string{}
		if calls >= 2 {
			status = "COMPLETE"
			images = append(images, map[string]string{"url": "https://cdn.example.com/out.png"})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"generations_by_pk": map[string]any{"status": status, "generated_images": images},
		})
	}))
	defer ts.Close()
	client := newTestClient(t, ts.URL)

	url, err := client.WaitForGeneration(context.Background(), "gen-1")
	if err != nil {
		t.Fatalf("WaitForGeneration error: %v", err)
	}
	if url != "https://cdn.example.com/out.png" {
		t.Fatalf("unexpected url: %s", url)
	}
	if calls != 2 {
		t.Fatalf("status queries: got %d want 2", calls)
	}
}

func TestWaitForGenerationReportsFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"generations_by_pk": map[string]any{"status": "FAILED", "error": "nsfw content detected"},
		})
	}))
	defer ts.Close()
	client := newTestClient(t, ts.URL)

	_, err := client.WaitForGeneration(context.Background(), "gen-1")
	var genErr *domain.GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
	if genErr.Reason != "nsfw content detected" {
		t.Fatalf("unexpected reason: %q", genErr.Reason)
	}
}

func TestWaitForGenerationTimesOutAfterBudget(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode(map[string]any{
			"generations_by_pk": map[string]any{"status": "PENDING"},
		})
	}))
	defer ts.Close()
	client := newTestClient(t, ts.URL)

	_, err := client.WaitForGeneration(context.Background(), "gen-1")
	var timeout *domain.TimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("expected TimeoutError, got %v", err)
	}
	if timeout.Attempts != 3 {
		t.Fatalf("timeout attempts: got %d want 3", timeout.Attempts)
	}
	if calls != 3 {
		t.Fatalf("status queries: got %d want 3", calls)
	}
	var genErr *domain.GenerationError
	if errors.As(err, &genErr) {
		t.Fatalf("timeout must not be a GenerationError")
	}
}

func TestWaitForGenerationStatusQueryFailureStopsImmediately(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()
	client := newTestClient(t, ts.URL)

	_, err := client.WaitForGeneration(context.Background(), "gen-1")
	var genErr *domain.GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("status queries: got %d want 1", calls)
	}
}

func TestWaitForGenerationHonorsCancellation(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"generations_by_pk": map[string]any{"status": "PENDING"},
		})
	}))
	defer ts.Close()

	client, err := NewClient(Options{
		APIKey:          "test-key",
		BaseURL:         ts.URL,
		MaxPollAttempts: 100,
		PollDelay:       time.Hour,
	})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	if _, err := client.WaitForGeneration(ctx, "gen-1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
