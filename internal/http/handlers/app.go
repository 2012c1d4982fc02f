package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/cinegen/cinegen/internal/infra"
	"github.com/cinegen/cinegen/internal/registry"
	"github.com/cinegen/cinegen/internal/transfer"
)

// App bundles the dependencies the HTTP handlers need.
type App struct {
	Config     *infra.Config
	Logger     infra.Logger
	Generator  Generator
	Registrar  *registry.Registrar
	Downloader *transfer.Downloader
}

func NewApp(cfg *infra.Config, logger infra.Logger, generator Generator, registrar *registry.Registrar, downloader *transfer.Downloader) *App {
	return &App{
		Config:     cfg,
		Logger:     logger,
		Generator:  generator,
		Registrar:  registrar,
		Downloader: downloader,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}
