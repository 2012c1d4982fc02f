package leonardo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/cinegen/cinegen/internal/domain"
)

// uploadTarget is where the raw image bytes get transferred: a pre-signed
// object-storage POST with its one-time form fields.
type uploadTarget struct {
	id     string
	url    string
	fields map[string]string
}

// CreateInitImage registers one reference image with the service and returns
// its remote id. Three phases: request an upload target, transfer the bytes
// to that target, confirm the init-image record exists. Each phase failure is
// reported as *domain.UploadError tagged with the phase; a failed upload only
// drops this image from conditioning, it never aborts the batch.
func (c *Client) CreateInitImage(ctx context.Context, data []byte) (string, error) {
	target, err := c.requestUploadTarget(ctx, imageExtension(data))
	if err != nil {
		return "", &domain.UploadError{Phase: domain.PhaseRequestTarget, Err: err}
	}
	if err := c.transferToTarget(ctx, target, data); err != nil {
		return "", &domain.UploadError{Phase: domain.PhaseTransfer, Err: err}
	}
	id, err := c.confirmInitImage(ctx, target.id)
	if err != nil {
		return "", &domain.UploadError{Phase: domain.PhaseConfirm, Err: err}
	}
	c.logger.Debug().Str("init_image_id", id).Msg("leonardo: init image registered")
	return id, nil
}

func (c *Client) requestUploadTarget(ctx context.Context, extension string) (*uploadTarget, error) {
	body, err := json.Marshal(map[string]string{"extension": extension})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/init-image", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.setHeaders(req, true)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, readBody(resp.Body))
	}
	var out initImageCreateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode upload target: %w", err)
	}
	if out.UploadInitImage.ID == "" || out.UploadInitImage.URL == "" {
		return nil, fmt.Errorf("upload target response incomplete")
	}
	fields := map[string]string{}
	if raw := out.UploadInitImage.Fields; raw != "" {
		if err := json.Unmarshal([]byte(raw), &fields); err != nil {
			return nil, fmt.Errorf("decode upload fields: %w", err)
		}
	}
	return &uploadTarget{id: out.UploadInitImage.ID, url: out.UploadInitImage.URL, fields: fields}, nil
}

func (c *Client) transferToTarget(ctx context.Context, target *uploadTarget, data []byte) error {
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for key, value := range target.fields {
		if err := mw.WriteField(key, value); err != nil {
			return err
		}
	}
	// The file part must come after the credential fields.
	fw, err := mw.CreateFormFile("file", "reference")
	if err != nil {
		return err
	}
	if _, err := fw.Write(data); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.url, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("http %d: %s", resp.StatusCode, readBody(resp.Body))
	}
	return nil
}

func (c *Client) confirmInitImage(ctx context.Context, id string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/init-image/"+id, nil)
	if err != nil {
		return "", err
	}
	c.setHeaders(req, false)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("http %d: %s", resp.StatusCode, readBody(resp.Body))
	}
	var out initImageConfirmResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode confirmation: %w", err)
	}
	if out.InitImagesByPK == nil || out.InitImagesByPK.ID == "" {
		return "", fmt.Errorf("init image record not found")
	}
	return out.InitImagesByPK.ID, nil
}

// imageExtension picks the upload extension from the image bytes, defaulting
// to png.
func imageExtension(data []byte) string {
	switch http.DetectContentType(data) {
	case "image/jpeg":
		return "jpg"
	case "image/webp":
		return "webp"
	default:
		return "png"
	}
}
