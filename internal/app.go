package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/ogero/filmoteca/internal/backup"
	"github.com/ogero/filmoteca/internal/common"
	"github.com/ogero/filmoteca/internal/store"
	"github.com/ogero/filmoteca/pkg/catalog"
	"github.com/ogero/filmoteca/pkg/transport"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const maxRestoreBytes = 10 * 1024 * 1024

// App wires the catalog service to its HTTP surface.
type App struct {
	CatalogService CatalogService
	Store          store.Store
	Broadcaster    *StatsBroadcaster
}

// NewApp creates a new instance of the App struct. The broadcaster may be
// nil, in which case mutations do not publish statistics.
func NewApp(catalogService CatalogService, st store.Store, broadcaster *StatsBroadcaster) (*App, error) {
	return &App{
		CatalogService: catalogService,
		Store:          st,
		Broadcaster:    broadcaster,
	}, nil
}

// errStatus maps service sentinel errors onto HTTP status codes.
func errStatus(err error) int {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, catalog.ErrDuplicateTitle):
		return http.StatusConflict
	case errors.Is(err, catalog.ErrBadQuery),
		errors.Is(err, catalog.ErrInvalidField),
		errors.Is(err, catalog.ErrInvalidValue):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrProviderUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, catalog.ErrBadProviderData):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	_ = writeJSON(w, errStatus(err), map[string]string{"error": err.Error()})
}

// titleParam extracts and unescapes the {title} URL parameter.
func titleParam(r *http.Request) (string, error) {

	title, err := url.PathUnescape(chi.URLParam(r, "title"))
	if err != nil {
		return "", fmt.Errorf("failed to url.PathUnescape: %w", err)
	}

	if err := common.ValidateTitle(title); err != nil {
		return "", err
	}

	return title, nil
}

// broadcastStats publishes the current statistics after a mutation.
func (a *App) broadcastStats(ctx context.Context) {
	if a.Broadcaster == nil {
		return
	}

	go func(ctx context.Context) {
		if err := a.Broadcaster.Publish(a.CatalogService.Stats(ctx)); err != nil {
			common.Log.Warn("Failed to StatsBroadcaster.Publish", "err", err)
		}
	}(context.WithoutCancel(ctx))
}

// ListMoviesHandler returns the whole collection.
func (a *App) ListMoviesHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	common.Log.DebugContext(ctx, "ListMoviesHandler")

	if err := writeJSON(w, http.StatusOK, a.CatalogService.All(ctx)); err != nil {
		common.Log.ErrorContext(ctx, "Failed to write response", "err", err)
	}
}

/*
AddMovieHandler inserts a manually entered record.

The body carries title, rating and year; rating and year are validated
against their domain ranges before the record is created.
*/
func (a *App) AddMovieHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	span := trace.SpanFromContext(ctx)

	common.Log.DebugContext(ctx, "AddMovieHandler")

	var body struct {
		Title  string  `json:"title"`
		Rating float64 `json:"rating"`
		Year   int     `json:"year"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		common.Log.WarnContext(ctx, "Failed to json.Decoder.Decode", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := common.ValidateTitle(body.Title); err != nil {
		common.Log.WarnContext(ctx, "Failed to common.ValidateTitle", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := common.ValidateRating(body.Rating); err != nil {
		common.Log.WarnContext(ctx, "Failed to common.ValidateRating", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := common.ValidateYear(body.Year); err != nil {
		common.Log.WarnContext(ctx, "Failed to common.ValidateYear", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	span.SetAttributes(attribute.String("movie.title", body.Title))

	if err := a.CatalogService.AddManual(ctx, body.Title, body.Rating, body.Year); err != nil {
		common.Log.WarnContext(ctx, "Failed to CatalogService.AddManual", "err", err)
		span.RecordError(err)
		writeError(w, err)
		return
	}
	a.broadcastStats(ctx)

	_ = writeJSON(w, http.StatusCreated, catalog.Entry{
		Title: body.Title,
		Movie: catalog.Movie{Rating: body.Rating, Year: body.Year},
	})
}

/*
ImportMovieHandler looks a title up on the metadata provider and inserts the
derived record.

The body carries the free-text query and an optional title override; without
an override the provider's own title keys the record.
*/
func (a *App) ImportMovieHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	span := trace.SpanFromContext(ctx)

	common.Log.DebugContext(ctx, "ImportMovieHandler")

	var body struct {
		Query string `json:"query"`
		Title string `json:"title,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		common.Log.WarnContext(ctx, "Failed to json.Decoder.Decode", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := common.ValidateTitle(body.Query); err != nil {
		common.Log.WarnContext(ctx, "Failed to common.ValidateTitle", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	payload, err := a.CatalogService.SearchOnline(ctx, body.Query)
	if err != nil {
		common.Log.WarnContext(ctx, "Failed to CatalogService.SearchOnline", "err", err)
		span.RecordError(err)
		writeError(w, err)
		return
	}

	title := body.Title
	if title == "" {
		title = payload.Title
	}
	if err := common.ValidateTitle(title); err != nil {
		common.Log.WarnContext(ctx, "Failed to common.ValidateTitle", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	span.SetAttributes(attribute.String("movie.title", title))

	if err := a.CatalogService.AddFromProvider(ctx, title, payload); err != nil {
		common.Log.WarnContext(ctx, "Failed to CatalogService.AddFromProvider", "err", err)
		span.RecordError(err)
		writeError(w, err)
		return
	}
	a.broadcastStats(ctx)

	w.WriteHeader(http.StatusCreated)
}

// DeleteMovieHandler removes a record.
func (a *App) DeleteMovieHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	span := trace.SpanFromContext(ctx)

	common.Log.DebugContext(ctx, "DeleteMovieHandler")

	title, err := titleParam(r)
	if err != nil {
		common.Log.WarnContext(ctx, "Invalid title parameter", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	span.SetAttributes(attribute.String("movie.title", title))

	if err := a.CatalogService.Delete(ctx, title); err != nil {
		common.Log.WarnContext(ctx, "Failed to CatalogService.Delete", "err", err)
		span.RecordError(err)
		writeError(w, err)
		return
	}
	a.broadcastStats(ctx)

	w.WriteHeader(http.StatusNoContent)
}

// RenameMovieHandler moves a record under a new title.
func (a *App) RenameMovieHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	span := trace.SpanFromContext(ctx)

	common.Log.DebugContext(ctx, "RenameMovieHandler")

	title, err := titleParam(r)
	if err != nil {
		common.Log.WarnContext(ctx, "Invalid title parameter", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var body struct {
		NewTitle string `json:"newTitle"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		common.Log.WarnContext(ctx, "Failed to json.Decoder.Decode", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := common.ValidateTitle(body.NewTitle); err != nil {
		common.Log.WarnContext(ctx, "Failed to common.ValidateTitle", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	span.SetAttributes(attribute.String("movie.title", title))
	span.SetAttributes(attribute.String("movie.new-title", body.NewTitle))

	if err := a.CatalogService.RenameTitle(ctx, title, body.NewTitle); err != nil {
		common.Log.WarnContext(ctx, "Failed to CatalogService.RenameTitle", "err", err)
		span.RecordError(err)
		writeError(w, err)
		return
	}
	a.broadcastStats(ctx)

	w.WriteHeader(http.StatusNoContent)
}

// UpdateMovieHandler sets a single field of an existing record.
func (a *App) UpdateMovieHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	span := trace.SpanFromContext(ctx)

	common.Log.DebugContext(ctx, "UpdateMovieHandler")

	title, err := titleParam(r)
	if err != nil {
		common.Log.WarnContext(ctx, "Invalid title parameter", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var body struct {
		Field string `json:"field"`
		Value any    `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		common.Log.WarnContext(ctx, "Failed to json.Decoder.Decode", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := common.ValidateUpdateField(body.Field); err != nil {
		common.Log.WarnContext(ctx, "Failed to common.ValidateUpdateField", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	span.SetAttributes(attribute.String("movie.title", title))
	span.SetAttributes(attribute.String("movie.field", body.Field))

	if err := a.CatalogService.UpdateField(ctx, title, body.Field, body.Value); err != nil {
		common.Log.WarnContext(ctx, "Failed to CatalogService.UpdateField", "err", err)
		span.RecordError(err)
		writeError(w, err)
		return
	}
	a.broadcastStats(ctx)

	w.WriteHeader(http.StatusNoContent)
}

// RandomMovieHandler returns a uniformly random record.
func (a *App) RandomMovieHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	common.Log.DebugContext(ctx, "RandomMovieHandler")

	entry, ok := a.CatalogService.Random(ctx)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if err := writeJSON(w, http.StatusOK, entry); err != nil {
		common.Log.ErrorContext(ctx, "Failed to write response", "err", err)
	}
}

/*
SearchMoviesHandler evaluates the q query parameter against the collection.

The query may use the bang syntax (a:, y:, r:) for targeted search by actor,
year or rating; anything else is a title substring match. A malformed bang
term yields 400 rather than an empty result.
*/
func (a *App) SearchMoviesHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	span := trace.SpanFromContext(ctx)

	common.Log.DebugContext(ctx, "SearchMoviesHandler")

	query := r.URL.Query().Get("q")
	span.SetAttributes(attribute.String("search.query", query))

	found, err := a.CatalogService.Search(ctx, query)
	if err != nil {
		common.Log.WarnContext(ctx, "Failed to CatalogService.Search", "err", err)
		span.RecordError(err)
		writeError(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, found); err != nil {
		common.Log.ErrorContext(ctx, "Failed to write response", "err", err)
	}
}

// FilterMoviesHandler returns the sub-collection matching the optional
// minRating, startYear and endYear query parameters (inclusive bounds).
func (a *App) FilterMoviesHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	span := trace.SpanFromContext(ctx)

	common.Log.DebugContext(ctx, "FilterMoviesHandler")

	minRating, err := floatQueryParam(r, "minRating")
	if err != nil {
		common.Log.WarnContext(ctx, "Invalid filter parameter", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	startYear, err := intQueryParam(r, "startYear")
	if err != nil {
		common.Log.WarnContext(ctx, "Invalid filter parameter", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	endYear, err := intQueryParam(r, "endYear")
	if err != nil {
		common.Log.WarnContext(ctx, "Invalid filter parameter", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	filtered := a.CatalogService.Filter(ctx, minRating, startYear, endYear)
	if err := writeJSON(w, http.StatusOK, filtered); err != nil {
		common.Log.ErrorContext(ctx, "Failed to write response", "err", err)
	}
}

// floatQueryParam parses an optional float query parameter; absent means nil.
func floatQueryParam(r *http.Request, name string) (*float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", name, err)
	}
	return &v, nil
}

// intQueryParam parses an optional integer query parameter; absent means nil.
func intQueryParam(r *http.Request, name string) (*int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", name, err)
	}
	return &v, nil
}

var errRestorePayloadTooLarge = errors.New("restore payload too large")

func readBounded(r io.Reader, max int64) ([]byte, error) {
	buf := new(bytes.Buffer)
	lr := transport.LimitReader(r, max, errRestorePayloadTooLarge)
	if _, err := io.Copy(buf, lr); err != nil {
		return nil, fmt.Errorf("failed to io.Copy with transport.LimitReader: %w", err)
	}
	return buf.Bytes(), nil
}

// SortedMoviesHandler returns entries sorted by the by query parameter
// (rating or year); order=desc reverses.
func (a *App) SortedMoviesHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	span := trace.SpanFromContext(ctx)

	common.Log.DebugContext(ctx, "SortedMoviesHandler")

	field := r.URL.Query().Get("by")
	if err := common.ValidateSortField(field); err != nil {
		common.Log.WarnContext(ctx, "Failed to common.ValidateSortField", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	descending := r.URL.Query().Get("order") == "desc"

	entries, err := a.CatalogService.SortBy(ctx, field, descending)
	if err != nil {
		common.Log.WarnContext(ctx, "Failed to CatalogService.SortBy", "err", err)
		span.RecordError(err)
		writeError(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, entries); err != nil {
		common.Log.ErrorContext(ctx, "Failed to write response", "err", err)
	}
}

// StatsHandler returns descriptive statistics; 204 when the collection is empty.
func (a *App) StatsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	common.Log.DebugContext(ctx, "StatsHandler")

	stats := a.CatalogService.Stats(ctx)
	if stats == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := writeJSON(w, http.StatusOK, stats); err != nil {
		common.Log.ErrorContext(ctx, "Failed to write response", "err", err)
	}
}

// LookupHandler searches the metadata provider without touching the catalog.
func (a *App) LookupHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	span := trace.SpanFromContext(ctx)

	common.Log.DebugContext(ctx, "LookupHandler")

	query := r.URL.Query().Get("t")
	if err := common.ValidateTitle(query); err != nil {
		common.Log.WarnContext(ctx, "Failed to common.ValidateTitle", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	span.SetAttributes(attribute.String("lookup.query", query))

	payload, err := a.CatalogService.SearchOnline(ctx, query)
	if err != nil {
		common.Log.WarnContext(ctx, "Failed to CatalogService.SearchOnline", "err", err)
		span.RecordError(err)
		writeError(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, payload); err != nil {
		common.Log.ErrorContext(ctx, "Failed to write response", "err", err)
	}
}

// APIKeyStatusHandler reports whether a provider API key is stored. The key
// itself is never echoed back.
func (a *App) APIKeyStatusHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	common.Log.DebugContext(ctx, "APIKeyStatusHandler")

	configured := a.Store.APIKey() != ""
	if err := writeJSON(w, http.StatusOK, map[string]bool{"configured": configured}); err != nil {
		common.Log.ErrorContext(ctx, "Failed to write response", "err", err)
	}
}

// SaveAPIKeyHandler stores the provider API key.
func (a *App) SaveAPIKeyHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	span := trace.SpanFromContext(ctx)

	common.Log.DebugContext(ctx, "SaveAPIKeyHandler")

	var body struct {
		APIKey string `json:"apiKey"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		common.Log.WarnContext(ctx, "Failed to json.Decoder.Decode", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if body.APIKey == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := a.Store.SaveAPIKey(body.APIKey); err != nil {
		common.Log.ErrorContext(ctx, "Failed to store.Store.SaveAPIKey", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// BackupHandler streams the collection as a downloadable JSON document.
func (a *App) BackupHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	span := trace.SpanFromContext(ctx)

	common.Log.DebugContext(ctx, "BackupHandler")

	data, err := backup.Encode(a.CatalogService.All(ctx))
	if err != nil {
		common.Log.ErrorContext(ctx, "Failed to backup.Encode", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="movies.json"`)
	if _, err := w.Write(data); err != nil {
		common.Log.ErrorContext(ctx, "Failed to write response", "err", err)
	}
}

/*
RestoreHandler replaces the whole collection from an uploaded backup.

The body may be the JSON document itself or a ZIP/RAR/7z archive containing
it; legacy ISO-8859-1 exports are normalized before parsing.
*/
func (a *App) RestoreHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	span := trace.SpanFromContext(ctx)

	common.Log.DebugContext(ctx, "RestoreHandler")

	data, err := readBounded(r.Body, maxRestoreBytes)
	if err != nil {
		common.Log.WarnContext(ctx, "Failed to read restore payload", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		return
	}

	movies, err := backup.Decode(data)
	if err != nil {
		common.Log.WarnContext(ctx, "Failed to backup.Decode", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	span.SetAttributes(attribute.Int("movies.count", len(movies)))

	if err := a.CatalogService.ReplaceAll(ctx, movies); err != nil {
		common.Log.ErrorContext(ctx, "Failed to CatalogService.ReplaceAll", "err", err)
		span.RecordError(err)
		writeError(w, err)
		return
	}
	a.broadcastStats(ctx)

	w.WriteHeader(http.StatusNoContent)
}

// WebsocketHandler handles stats websocket connections.
func (a *App) WebsocketHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	common.Log.DebugContext(ctx, "WebsocketHandler")

	if a.Broadcaster == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	a.Broadcaster.ServeHTTP(w, r)
}
