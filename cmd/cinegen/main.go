// Command cinegen runs one generation batch end to end: parse the script,
// register reference images, generate one image per scene, download the
// results and write them plus a zip archive into the output directory.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/cinegen/cinegen/internal/batch"
	"github.com/cinegen/cinegen/internal/domain"
	"github.com/cinegen/cinegen/internal/infra"
	"github.com/cinegen/cinegen/internal/leonardo"
	"github.com/cinegen/cinegen/internal/manifest"
	"github.com/cinegen/cinegen/internal/registry"
	"github.com/cinegen/cinegen/internal/script"
	"github.com/cinegen/cinegen/internal/storage"
	"github.com/cinegen/cinegen/internal/transfer"
	"github.com/cinegen/cinegen/pkg/zip"
)

func main() {
	_ = godotenv.Load()

	var (
		manifestFlag    string
		scriptFlag      string
		modeFlag        string
		modelFlag       string
		countFlag       int
		concurrencyFlag int
		outFlag         string
	)
	flag.StringVar(&manifestFlag, "manifest", "", "path to a YAML run manifest (overrides the other flags)")
	flag.StringVar(&scriptFlag, "script", "", "path to the script file, one scene per line")
	flag.StringVar(&modeFlag, "mode", "single", "script mode: single or paired")
	flag.StringVar(&modelFlag, "model", "", "generation model: "+strings.Join(leonardo.ModelNames(), ", "))
	flag.IntVar(&countFlag, "count", 0, "number of scenes to generate (0 = all)")
	flag.IntVar(&concurrencyFlag, "concurrency", 0, "scenes in flight at once (0 = config default)")
	flag.StringVar(&outFlag, "out", "", "output directory for images and the zip archive")
	flag.Parse()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run := runSpec{
		scriptFile:  scriptFlag,
		mode:        modeFlag,
		model:       cfg.GenerationModel,
		count:       countFlag,
		concurrency: cfg.BatchConcurrency,
		outputDir:   cfg.OutputDir,
	}
	if modelFlag != "" {
		run.model = modelFlag
	}
	if concurrencyFlag > 0 {
		run.concurrency = concurrencyFlag
	}
	if outFlag != "" {
		run.outputDir = outFlag
	}
	if manifestFlag != "" {
		m, err := manifest.Load(manifestFlag)
		if err != nil {
			logger.Fatal().Err(err).Msg("cinegen: invalid manifest")
		}
		run.applyManifest(m)
	}
	if run.scriptFile == "" {
		logger.Fatal().Msg("cinegen: -script or -manifest is required")
	}

	mode, err := script.ParseMode(run.mode)
	if err != nil {
		logger.Fatal().Err(err).Msg("cinegen: invalid mode")
	}
	model, ok := leonardo.LookupModel(run.model)
	if !ok {
		logger.Fatal().Str("model", run.model).Msgf("cinegen: unsupported model, expected one of %s", strings.Join(leonardo.ModelNames(), ", "))
	}

	raw, err := os.ReadFile(run.scriptFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("cinegen: failed to read script")
	}
	scenes := script.Parse(string(raw), mode)
	if len(scenes) == 0 {
		logger.Fatal().Msg("cinegen: script contains no scenes")
	}
	count := run.count
	if count == 0 {
		count = len(scenes)
	}
	count = batch.ClampCount(count, len(scenes))
	scenes = scenes[:count]
	logger.Info().Int("scenes", count).Str("model", model.Name).Msg("cinegen: starting batch")

	client, err := leonardo.NewClient(leonardo.Options{
		APIKey:          cfg.LeonardoAPIKey,
		BaseURL:         cfg.LeonardoBaseURL,
		MaxPollAttempts: cfg.PollMaxAttempts,
		PollDelay:       cfg.PollDelay,
		Logger:          &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("cinegen: failed to configure client")
	}

	references := loadReferences(logger, run.references)
	registrar := registry.New(client, logger)
	registered := registrar.RegisterAll(ctx, references)
	if len(references) > 0 {
		logger.Info().Int("requested", len(references)).Int("registered", len(registered)).Msg("cinegen: references registered")
	}

	orchestrator := batch.NewOrchestrator(client, batch.Options{
		Model:       model,
		Concurrency: run.concurrency,
		Logger:      logger,
		OnProgress: func(completed, total int) {
			logger.Info().Msgf("cinegen: progress %d/%d", completed, total)
		},
	})
	result := orchestrator.Run(ctx, scenes, registered)

	for _, outcome := range result.Outcomes {
		if outcome.Failed() {
			logger.Error().Err(outcome.Err).
				Int("scene", outcome.SceneOrdinal).
				Str("state", string(outcome.State)).
				Msg("cinegen: scene failed")
		}
	}

	dir, err := storage.NewDir(run.outputDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("cinegen: failed to prepare output directory")
	}
	downloader := transfer.NewDownloader(nil)

	var entries []zip.Entry
	for _, image := range result.Images() {
		data, err := downloader.Fetch(ctx, image.URL)
		if err != nil {
			logger.Error().Err(err).Int("scene", image.SceneOrdinal).Msg("cinegen: image download failed")
			continue
		}
		if _, err := dir.WriteScene(image.SceneOrdinal, data); err != nil {
			logger.Error().Err(err).Int("scene", image.SceneOrdinal).Msg("cinegen: image write failed")
			continue
		}
		entries = append(entries, zip.Entry{Name: domain.SceneFilename(image.SceneOrdinal), Data: data})
	}

	if len(entries) > 0 {
		archive, err := zip.Archive(entries)
		if err != nil {
			logger.Fatal().Err(err).Msg("cinegen: failed to build archive")
		}
		archivePath := filepath.Join(dir.BasePath(), "generated_images.zip")
		if err := os.WriteFile(archivePath, archive, 0o644); err != nil {
			logger.Fatal().Err(err).Msg("cinegen: failed to write archive")
		}
		logger.Info().Str("path", archivePath).Int("images", len(entries)).Msg("cinegen: archive written")
	}

	succeeded := len(result.Outcomes) - result.FailedCount()
	logger.Info().Int("succeeded", succeeded).Int("failed", result.FailedCount()).Msg("cinegen: batch finished")
	if succeeded == 0 {
		os.Exit(1)
	}
}

type runSpec struct {
	scriptFile  string
	mode        string
	model       string
	count       int
	concurrency int
	outputDir   string
	references  []manifest.Reference
}

func (r *runSpec) applyManifest(m *manifest.Manifest) {
	r.scriptFile = m.ScriptFile
	if m.Mode != "" {
		r.mode = m.Mode
	}
	if m.Model != "" {
		r.model = m.Model
	}
	if m.Count > 0 {
		r.count = m.Count
	}
	if m.Concurrency > 0 {
		r.concurrency = m.Concurrency
	}
	if m.OutputDir != "" {
		r.outputDir = m.OutputDir
	}
	r.references = m.References
}

func loadReferences(logger infra.Logger, refs []manifest.Reference) []domain.ReferenceImage {
	if len(refs) > registry.MaxReferences {
		logger.Warn().Int("given", len(refs)).Msgf("cinegen: keeping only the first %d references", registry.MaxReferences)
		refs = refs[:registry.MaxReferences]
	}
	images := make([]domain.ReferenceImage, 0, len(refs))
	for _, ref := range refs {
		data, err := os.ReadFile(ref.Path)
		if err != nil {
			logger.Warn().Err(err).Str("path", ref.Path).Msg("cinegen: skipping unreadable reference")
			continue
		}
		images = append(images, domain.ReferenceImage{
			Tag:         domain.ParseReferenceTag(ref.Tag),
			Description: ref.Description,
			Data:        data,
		})
	}
	return images
}
