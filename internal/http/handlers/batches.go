package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/cinegen/cinegen/internal/batch"
	"github.com/cinegen/cinegen/internal/domain"
	"github.com/cinegen/cinegen/internal/leonardo"
	"github.com/cinegen/cinegen/internal/registry"
	"github.com/cinegen/cinegen/internal/script"
	"github.com/cinegen/cinegen/pkg/zip"
)

// Generator re-exports the orchestrator's remote-service surface so main can
// wire the client in without the handlers importing it twice.
type Generator = batch.Generator

const maxUploadBytes = 32 << 20

type outcomeResponse struct {
	SceneOrdinal int    `json:"scene_ordinal"`
	State        string `json:"state"`
	Prompt       string `json:"prompt"`
	URL          string `json:"url,omitempty"`
	Error        string `json:"error,omitempty"`
}

type batchResponse struct {
	BatchID   string            `json:"batch_id"`
	Total     int               `json:"total"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Outcomes  []outcomeResponse `json:"outcomes"`
}

// BatchGenerate runs one full batch from a multipart form and returns the
// per-scene outcomes as JSON. The request form carries:
//
//	script                - raw script text (required)
//	mode                  - single | paired (default single)
//	model                 - model name (default from config)
//	count                 - number of scenes to generate (default: all)
//	reference             - up to 5 reference image files, with parallel
//	reference_description - one description per file
//	reference_tag         - one tag per file (character/style/location/other)
func (a *App) BatchGenerate(w http.ResponseWriter, r *http.Request) {
	batchID, result, ok := a.runBatch(w, r)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, buildResponse(batchID, result))
}

// BatchArchive runs one full batch and streams a zip with one image per
// successful scene, named by ordinal. Scenes whose download fails are left
// out of the archive; the per-scene outcome detail is available through
// BatchGenerate.
func (a *App) BatchArchive(w http.ResponseWriter, r *http.Request) {
	batchID, result, ok := a.runBatch(w, r)
	if !ok {
		return
	}

	var entries []zip.Entry
	for _, image := range result.Images() {
		data, err := a.Downloader.Fetch(r.Context(), image.URL)
		if err != nil {
			a.Logger.Error().Err(err).Int("scene", image.SceneOrdinal).Msg("image download failed")
			continue
		}
		entries = append(entries, zip.Entry{Name: domain.SceneFilename(image.SceneOrdinal), Data: data})
	}
	if len(entries) == 0 {
		a.error(w, http.StatusBadGateway, "generation_failed", "no scene produced a downloadable image")
		return
	}
	archive, err := zip.Archive(entries)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to build archive")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=batch-%s.zip", batchID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

func (a *App) runBatch(w http.ResponseWriter, r *http.Request) (string, domain.BatchResult, bool) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart payload")
		return "", domain.BatchResult{}, false
	}

	mode, err := script.ParseMode(r.FormValue("mode"))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return "", domain.BatchResult{}, false
	}
	scenes := script.Parse(r.FormValue("script"), mode)
	if len(scenes) == 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "script contains no scenes")
		return "", domain.BatchResult{}, false
	}

	modelName := strings.TrimSpace(r.FormValue("model"))
	if modelName == "" {
		modelName = a.Config.GenerationModel
	}
	model, ok := leonardo.LookupModel(modelName)
	if !ok {
		a.error(w, http.StatusBadRequest, "bad_request",
			fmt.Sprintf("unsupported model %q, expected one of %s", modelName, strings.Join(leonardo.ModelNames(), ", ")))
		return "", domain.BatchResult{}, false
	}

	count := len(scenes)
	if raw := strings.TrimSpace(r.FormValue("count")); raw != "" {
		count, err = strconv.Atoi(raw)
		if err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "count must be an integer")
			return "", domain.BatchResult{}, false
		}
	}
	count = batch.ClampCount(count, len(scenes))

	references, err := a.collectReferences(r)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return "", domain.BatchResult{}, false
	}
	registered := a.Registrar.RegisterAll(r.Context(), references)

	batchID := uuid.NewString()
	logger := a.Logger.With().Str("batch_id", batchID).Logger()
	orchestrator := batch.NewOrchestrator(a.Generator, batch.Options{
		Model:       model,
		Concurrency: a.Config.BatchConcurrency,
		Logger:      logger,
		OnProgress: func(completed, total int) {
			logger.Info().Msgf("batch progress %d/%d", completed, total)
		},
	})
	result := orchestrator.Run(r.Context(), scenes[:count], registered)
	return batchID, result, true
}

func (a *App) collectReferences(r *http.Request) ([]domain.ReferenceImage, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	files := r.MultipartForm.File["reference"]
	if len(files) == 0 {
		return nil, nil
	}
	if len(files) > registry.MaxReferences {
		return nil, fmt.Errorf("at most %d reference images are allowed", registry.MaxReferences)
	}
	descriptions := r.MultipartForm.Value["reference_description"]
	tags := r.MultipartForm.Value["reference_tag"]

	references := make([]domain.ReferenceImage, 0, len(files))
	for i, header := range files {
		f, err := header.Open()
		if err != nil {
			return nil, fmt.Errorf("reference %d: %w", i+1, err)
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("reference %d: %w", i+1, err)
		}
		if len(data) == 0 {
			return nil, fmt.Errorf("reference %d is empty", i+1)
		}
		ref := domain.ReferenceImage{Data: data, Tag: domain.TagOther}
		if i < len(descriptions) {
			ref.Description = strings.TrimSpace(descriptions[i])
		}
		if i < len(tags) {
			ref.Tag = domain.ParseReferenceTag(tags[i])
		}
		references = append(references, ref)
	}
	return references, nil
}

func buildResponse(batchID string, result domain.BatchResult) batchResponse {
	resp := batchResponse{
		BatchID:  batchID,
		Total:    len(result.Outcomes),
		Failed:   result.FailedCount(),
		Outcomes: make([]outcomeResponse, 0, len(result.Outcomes)),
	}
	resp.Succeeded = resp.Total - resp.Failed
	for _, outcome := range result.Outcomes {
		entry := outcomeResponse{
			SceneOrdinal: outcome.SceneOrdinal,
			State:        string(outcome.State),
			Prompt:       outcome.Prompt,
		}
		if outcome.Image != nil {
			entry.URL = outcome.Image.URL
		}
		if outcome.Err != nil {
			entry.Error = outcome.Err.Error()
		}
		resp.Outcomes = append(resp.Outcomes, entry)
	}
	return resp
}
