package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	slogchi "github.com/samber/slog-chi"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ogero/filmoteca/internal"
	"github.com/ogero/filmoteca/internal/common"
	"github.com/ogero/filmoteca/internal/config"
	"github.com/ogero/filmoteca/internal/store"
	"github.com/ogero/filmoteca/pkg/catalog"
	"github.com/ogero/filmoteca/pkg/omdb"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the catalog HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to config.Load: %w", err)
	}

	logShutdown, err := common.InitLogger(serviceName, serviceVersion, cfg.ServiceEnvironment, cfg.OTELExporterEndpoint)
	if err != nil {
		return fmt.Errorf("failed to common.InitLogger: %w", err)
	}

	instrumentationShutdown, err := common.InitInstrumentation(serviceName, serviceVersion, cfg.ServiceEnvironment, cfg.OTELExporterEndpoint)
	if err != nil {
		return fmt.Errorf("failed to common.InitInstrumentation: %w", err)
	}

	st, err := store.Open(cfg.DataPath)
	if err != nil {
		return fmt.Errorf("failed to store.Open: %w", err)
	}

	// The provider capability is resolved once here; a disabled provider
	// makes every online lookup fail uniformly.
	var provider omdb.Provider
	switch cfg.MetadataProvider {
	case "omdb":
		provider = omdb.NewClient(cfg.OMDBHost, st.APIKey)
	case "imdb":
		provider = omdb.NewStalkrProvider()
	case "none":
	default:
		return fmt.Errorf("unknown metadata provider: %s", cfg.MetadataProvider)
	}

	svc := internal.NewCatalogService(st, provider)

	broadcaster, err := internal.NewStatsBroadcaster(cfg.StatsWebsocketChannel, func() *catalog.Stats {
		return svc.Stats(context.Background())
	})
	if err != nil {
		return fmt.Errorf("failed to internal.NewStatsBroadcaster: %w", err)
	}

	app, err := internal.NewApp(svc, st, broadcaster)
	if err != nil {
		return fmt.Errorf("failed to internal.NewApp: %w", err)
	}

	r := chi.NewRouter()
	r.Use(slogchi.New(common.Log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowedHeaders: []string{
			"Content-Type",
			"X-Requested-With",
			"Accept",
			"Accept-Language",
			"Accept-Encoding",
			"Content-Language",
			"Origin",
		},
		MaxAge: 300,
	}))

	r.Get("/api/movies", app.ListMoviesHandler)
	r.Post("/api/movies", app.AddMovieHandler)
	r.Post("/api/movies/import", app.ImportMovieHandler)
	r.Get("/api/movies/random", app.RandomMovieHandler)
	r.Get("/api/movies/search", app.SearchMoviesHandler)
	r.Get("/api/movies/filter", app.FilterMoviesHandler)
	r.Get("/api/movies/sorted", app.SortedMoviesHandler)
	r.Delete("/api/movies/{title}", app.DeleteMovieHandler)
	r.Patch("/api/movies/{title}", app.UpdateMovieHandler)
	r.Post("/api/movies/{title}/rename", app.RenameMovieHandler)
	r.Get("/api/stats", app.StatsHandler)
	r.Get("/api/lookup", app.LookupHandler)
	r.Get("/api/config/apikey", app.APIKeyStatusHandler)
	r.Put("/api/config/apikey", app.SaveAPIKeyHandler)
	r.Get("/api/backup", app.BackupHandler)
	r.Post("/api/restore", app.RestoreHandler)
	r.Get("/websocket", app.WebsocketHandler)

	srv := &http.Server{
		Addr:    cfg.ServerListenAddr,
		Handler: otelhttp.NewHandler(r, "server"),
	}
	go func() {
		common.Log.Info("Listening", "addr", cfg.ServerListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			common.Log.Error("Failed to http.Server.ListenAndServe", "err", err)
		}
	}()

	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		common.Log.Error("Failed to http.Server.Shutdown", "err", err)
	}

	if err := broadcaster.Shutdown(ctx); err != nil {
		common.Log.Error("Failed to StatsBroadcaster.Shutdown", "err", err)
	}

	if err := st.Close(); err != nil {
		common.Log.Error("Failed to store.Store.Close", "err", err)
	}

	instrumentationShutdown(ctx)
	if err := logShutdown(ctx); err != nil {
		common.Log.Error("Failed to logger shutdown", "err", err)
	}

	common.Log.Info("Bye!")
	return nil
}
