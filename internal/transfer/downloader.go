// Package transfer fetches finished images from their result URLs so they
// can be stored and archived locally.
package transfer

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/cinegen/cinegen/internal/domain"
)

type Downloader struct {
	httpClient *http.Client
}

// NewDownloader wraps the given client, or a 60s-timeout default when nil.
func NewDownloader(client *http.Client) *Downloader {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &Downloader{httpClient: client}
}

// Fetch downloads one generated image. Failures are *domain.TransferError,
// scoped to the scene whose URL this is.
func (d *Downloader) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &domain.TransferError{URL: url, Err: err}
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, &domain.TransferError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.TransferError{URL: url, StatusCode: resp.StatusCode}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.TransferError{URL: url, Err: err}
	}
	return data, nil
}
