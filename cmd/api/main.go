// Command api serves the batch generation pipeline over HTTP, as the
// boundary for form-style clients: multipart batch requests in, per-scene
// outcomes or a zip archive out.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/cinegen/cinegen/internal/http/handlers"
	"github.com/cinegen/cinegen/internal/http/httpapi"
	"github.com/cinegen/cinegen/internal/infra"
	"github.com/cinegen/cinegen/internal/leonardo"
	"github.com/cinegen/cinegen/internal/registry"
	"github.com/cinegen/cinegen/internal/transfer"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	client, err := leonardo.NewClient(leonardo.Options{
		APIKey:          cfg.LeonardoAPIKey,
		BaseURL:         cfg.LeonardoBaseURL,
		MaxPollAttempts: cfg.PollMaxAttempts,
		PollDelay:       cfg.PollDelay,
		Logger:          &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to configure generation client")
	}

	app := handlers.NewApp(cfg, logger, client, registry.New(client, logger), transfer.NewDownloader(nil))
	router := httpapi.NewRouter(app, logger)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("api: listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("api: http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api: failed to shutdown server")
	}
	logger.Info().Msg("api: server stopped")
}
