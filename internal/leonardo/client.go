// Package leonardo is the HTTP client for the remote generation service:
// creating generation jobs, polling them to a terminal status, and uploading
// init images used as reference conditioning.
package leonardo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cinegen/cinegen/internal/domain"
)

const defaultBaseURL = "https://cloud.leonardo.ai/api/rest/v1"

type Options struct {
	APIKey          string
	BaseURL         string
	HTTPClient      *http.Client
	Timeout         time.Duration
	MaxPollAttempts int
	PollDelay       time.Duration
	Logger          *zerolog.Logger
}

type Client struct {
	httpClient      *http.Client
	baseURL         string
	token           string
	maxPollAttempts int
	pollDelay       time.Duration
	logger          zerolog.Logger
}

// NewClient validates the credential up front so a missing key fails before
// any network call is made.
func NewClient(opts Options) (*Client, error) {
	token := strings.TrimSpace(opts.APIKey)
	if token == "" {
		return nil, domain.ErrMissingCredential
	}
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	attempts := opts.MaxPollAttempts
	if attempts <= 0 {
		attempts = 30
	}
	delay := opts.PollDelay
	if delay <= 0 {
		delay = 2 * time.Second
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Client{
		httpClient:      client,
		baseURL:         base,
		token:           token,
		maxPollAttempts: attempts,
		pollDelay:       delay,
		logger:          logger,
	}, nil
}

// GenerationRequest carries the per-scene inputs of one generation job. The
// fixed output dimensions, image count and negative prompt are attached by
// the client.
type GenerationRequest struct {
	Prompt       string
	Model        Model
	ReferenceIDs []string
}

// CreateGeneration submits one asynchronous generation job and returns its
// opaque id. A rejected submission is returned as *domain.SubmissionError and
// must not be retried: each scene gets exactly one attempt.
func (c *Client) CreateGeneration(ctx context.Context, req GenerationRequest) (string, error) {
	payload := generationRequest{
		Prompt:         req.Prompt,
		ModelID:        req.Model.ID,
		Width:          imageWidth,
		Height:         imageHeight,
		NumImages:      imagesPerScene,
		NegativePrompt: NegativePrompt,
	}
	if req.Model.PhotoReal {
		payload.PhotoReal = true
	} else {
		payload.Alchemy = true
		payload.PromptMagic = true
	}
	if len(req.ReferenceIDs) > 0 {
		payload.InitImageIDs = req.ReferenceIDs
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generations", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	c.setHeaders(httpReq, true)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("leonardo: create generation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &domain.SubmissionError{StatusCode: resp.StatusCode, Body: readBody(resp.Body)}
	}
	var out generationCreateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("leonardo: decode generation response: %w", err)
	}
	id := out.SDGenerationJob.GenerationID
	if id == "" {
		return "", &domain.SubmissionError{StatusCode: resp.StatusCode, Body: "response carried no generation id"}
	}
	c.logger.Debug().Str("generation_id", id).Msg("leonardo: generation created")
	return id, nil
}

// WaitForGeneration polls the job until it reaches a terminal status and
// returns the first produced image's URL. A status query that errors at the
// transport or HTTP level fails the job immediately rather than being retried
// as transient. Exhausting the poll budget yields *domain.TimeoutError,
// distinct from *domain.GenerationError.
func (c *Client) WaitForGeneration(ctx context.Context, generationID string) (string, error) {
	for attempt := 0; attempt < c.maxPollAttempts; attempt++ {
		status, err := c.getGeneration(ctx, generationID)
		if err != nil {
			return "", err
		}
		if status.GenerationsByPK != nil {
			gen := status.GenerationsByPK
			switch gen.Status {
			case "COMPLETE":
				if len(gen.GeneratedImages) > 0 {
					return gen.GeneratedImages[0].URL, nil
				}
				// Complete with no images yet: keep polling.
			case "FAILED":
				reason := gen.Error
				if reason == "" {
					reason = "unknown error"
				}
				return "", &domain.GenerationError{Reason: reason}
			}
		}
		select {
		case <-time.After(c.pollDelay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", &domain.TimeoutError{Attempts: c.maxPollAttempts, Delay: c.pollDelay}
}

func (c *Client) getGeneration(ctx context.Context, generationID string) (*generationStatusResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/generations/"+generationID, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(httpReq, false)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &domain.GenerationError{Reason: fmt.Sprintf("status query: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.GenerationError{Reason: fmt.Sprintf("status query: http %d: %s", resp.StatusCode, readBody(resp.Body))}
	}
	var out generationStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &domain.GenerationError{Reason: fmt.Sprintf("decode status response: %v", err)}
	}
	return &out, nil
}

func (c *Client) setHeaders(req *http.Request, withBody bool) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	if withBody {
		req.Header.Set("Content-Type", "application/json")
	}
}

func readBody(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
