package internal

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/ogero/filmoteca/internal/common"
	"github.com/ogero/filmoteca/internal/store"
	"github.com/ogero/filmoteca/pkg/catalog"
	"github.com/ogero/filmoteca/pkg/omdb"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// CatalogService owns the in-memory movie collection and exposes every
// mutation and query over it. The collection is loaded once at construction
// and every successful mutation re-persists the whole collection through the
// store before returning.
type CatalogService interface {
	// All returns a copy of the current collection.
	All(ctx context.Context) catalog.Collection
	// AddManual inserts a record with only rating and year set.
	AddManual(ctx context.Context, title string, rating float64, year int) error
	// AddFromProvider derives a record from a provider payload and inserts it.
	AddFromProvider(ctx context.Context, title string, payload *omdb.Payload) error
	// Delete removes a record.
	Delete(ctx context.Context, title string) error
	// RenameTitle moves a record under a new title, keeping every other field.
	RenameTitle(ctx context.Context, oldTitle, newTitle string) error
	// UpdateField sets a single field of an existing record.
	UpdateField(ctx context.Context, title, field string, value any) error
	// Stats computes descriptive statistics, or nil for an empty collection.
	Stats(ctx context.Context) *catalog.Stats
	// Random returns a uniformly random entry, or false when empty.
	Random(ctx context.Context) (*catalog.Entry, bool)
	// Search evaluates a bang query (a:, y:, r:) or a title substring query.
	// Results are in ascending title order.
	Search(ctx context.Context, query string) ([]catalog.Entry, error)
	// Filter returns the sub-collection inside the given inclusive bounds.
	// A nil bound imposes no constraint.
	Filter(ctx context.Context, minRating *float64, startYear, endYear *int) catalog.Collection
	// SortBy returns entries stably sorted by rating or year. Ties keep
	// ascending title order in both directions.
	SortBy(ctx context.Context, field string, descending bool) ([]catalog.Entry, error)
	// SearchOnline looks the query up on the configured metadata provider.
	SearchOnline(ctx context.Context, query string) (*omdb.Payload, error)
	// ReplaceAll swaps in a whole new collection and persists it.
	ReplaceAll(ctx context.Context, movies catalog.Collection) error
}

type catalogService struct {
	store    store.Store
	provider omdb.Provider

	mu     sync.Mutex
	movies catalog.Collection
}

// NewCatalogService loads the persisted collection and wraps it in a service.
// A nil provider disables online lookups.
func NewCatalogService(st store.Store, provider omdb.Provider) CatalogService {
	return &catalogService{
		store:    st,
		provider: provider,
		movies:   st.LoadMovies(),
	}
}

func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, name)
}

// All returns a copy of the current collection.
func (s *catalogService) All(ctx context.Context) catalog.Collection {

	_, span := startSpan(ctx, "internal.CatalogService.All")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.movies.Clone()
}

// AddManual inserts a record with only rating and year set.
func (s *catalogService) AddManual(ctx context.Context, title string, rating float64, year int) error {

	ctx, span := startSpan(ctx, "internal.CatalogService.AddManual")
	defer span.End()
	span.SetAttributes(attribute.String("movie.title", title))

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.movies[title]; ok {
		common.CatalogMutationsTotalIncr(ctx, "add", "duplicate")
		return fmt.Errorf("movie %q: %w", title, catalog.ErrDuplicateTitle)
	}

	s.movies[title] = catalog.Movie{Rating: rating, Year: year}
	if err := s.store.SaveMovies(s.movies); err != nil {
		delete(s.movies, title)
		common.CatalogMutationsTotalIncr(ctx, "add", "error")
		return fmt.Errorf("failed to store.Store.SaveMovies: %w", err)
	}

	common.CatalogMutationsTotalIncr(ctx, "add", "ok")
	return nil
}

// AddFromProvider derives a record from a provider payload and inserts it.
// A malformed payload aborts the add and leaves the collection untouched.
func (s *catalogService) AddFromProvider(ctx context.Context, title string, payload *omdb.Payload) error {

	ctx, span := startSpan(ctx, "internal.CatalogService.AddFromProvider")
	defer span.End()
	span.SetAttributes(attribute.String("movie.title", title))

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.movies[title]; ok {
		common.CatalogMutationsTotalIncr(ctx, "import", "duplicate")
		return fmt.Errorf("movie %q: %w", title, catalog.ErrDuplicateTitle)
	}

	movie, err := movieFromPayload(payload)
	if err != nil {
		common.CatalogMutationsTotalIncr(ctx, "import", "unparseable")
		return err
	}

	s.movies[title] = *movie
	if err := s.store.SaveMovies(s.movies); err != nil {
		delete(s.movies, title)
		common.CatalogMutationsTotalIncr(ctx, "import", "error")
		return fmt.Errorf("failed to store.Store.SaveMovies: %w", err)
	}

	common.CatalogMutationsTotalIncr(ctx, "import", "ok")
	return nil
}

// movieFromPayload applies the provider parsing policy: a year that is not
// composed entirely of decimal digits degrades to 0, an absent or "N/A"
// rating degrades to 0.0, and any other malformed rating aborts the whole
// derivation. Actors are comma-split and trimmed; an empty source yields a
// single empty name, mirroring the persisted format of earlier exports.
func movieFromPayload(payload *omdb.Payload) (*catalog.Movie, error) {

	year := 0
	if isDigits(payload.Year) {
		if v, err := strconv.Atoi(payload.Year); err == nil {
			year = v
		}
	}

	rating := 0.0
	if payload.Rating != "" && payload.Rating != "N/A" {
		var err error
		rating, err = strconv.ParseFloat(payload.Rating, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: rating %q: %v", catalog.ErrBadProviderData, payload.Rating, err)
		}
	}

	actors := strings.Split(payload.Actors, ",")
	for i, actor := range actors {
		actors[i] = strings.TrimSpace(actor)
	}

	return &catalog.Movie{
		Rating:      rating,
		Year:        year,
		Description: payload.Plot,
		Actors:      actors,
	}, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Delete removes a record.
func (s *catalogService) Delete(ctx context.Context, title string) error {

	ctx, span := startSpan(ctx, "internal.CatalogService.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("movie.title", title))

	s.mu.Lock()
	defer s.mu.Unlock()

	movie, ok := s.movies[title]
	if !ok {
		common.CatalogMutationsTotalIncr(ctx, "delete", "missing")
		return fmt.Errorf("movie %q: %w", title, catalog.ErrNotFound)
	}

	delete(s.movies, title)
	if err := s.store.SaveMovies(s.movies); err != nil {
		s.movies[title] = movie
		common.CatalogMutationsTotalIncr(ctx, "delete", "error")
		return fmt.Errorf("failed to store.Store.SaveMovies: %w", err)
	}

	common.CatalogMutationsTotalIncr(ctx, "delete", "ok")
	return nil
}

// RenameTitle moves a record under a new title, keeping every other field.
// A new title that is already present is rejected, even when it equals the
// old one.
func (s *catalogService) RenameTitle(ctx context.Context, oldTitle, newTitle string) error {

	ctx, span := startSpan(ctx, "internal.CatalogService.RenameTitle")
	defer span.End()
	span.SetAttributes(attribute.String("movie.title", oldTitle))
	span.SetAttributes(attribute.String("movie.new-title", newTitle))

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.movies[newTitle]; ok {
		common.CatalogMutationsTotalIncr(ctx, "rename", "duplicate")
		return fmt.Errorf("movie %q: %w", newTitle, catalog.ErrDuplicateTitle)
	}

	movie, ok := s.movies[oldTitle]
	if !ok {
		common.CatalogMutationsTotalIncr(ctx, "rename", "missing")
		return fmt.Errorf("movie %q: %w", oldTitle, catalog.ErrNotFound)
	}

	s.movies[newTitle] = movie
	delete(s.movies, oldTitle)
	if err := s.store.SaveMovies(s.movies); err != nil {
		delete(s.movies, newTitle)
		s.movies[oldTitle] = movie
		common.CatalogMutationsTotalIncr(ctx, "rename", "error")
		return fmt.Errorf("failed to store.Store.SaveMovies: %w", err)
	}

	common.CatalogMutationsTotalIncr(ctx, "rename", "ok")
	return nil
}

// UpdateField sets a single field of an existing record.
func (s *catalogService) UpdateField(ctx context.Context, title, field string, value any) error {

	ctx, span := startSpan(ctx, "internal.CatalogService.UpdateField")
	defer span.End()
	span.SetAttributes(attribute.String("movie.title", title))
	span.SetAttributes(attribute.String("movie.field", field))

	s.mu.Lock()
	defer s.mu.Unlock()

	movie, ok := s.movies[title]
	if !ok {
		common.CatalogMutationsTotalIncr(ctx, "update", "missing")
		return fmt.Errorf("movie %q: %w", title, catalog.ErrNotFound)
	}
	previous := movie

	switch field {
	case "rating":
		rating, ok := toFloat(value)
		if !ok {
			return fmt.Errorf("field %q wants a number: %w", field, catalog.ErrInvalidValue)
		}
		movie.Rating = rating
	case "year":
		year, ok := toInt(value)
		if !ok {
			return fmt.Errorf("field %q wants an integer: %w", field, catalog.ErrInvalidValue)
		}
		movie.Year = year
	case "description":
		description, ok := value.(string)
		if !ok {
			return fmt.Errorf("field %q wants a string: %w", field, catalog.ErrInvalidValue)
		}
		movie.Description = description
	case "actors":
		actors, ok := toStringSlice(value)
		if !ok {
			return fmt.Errorf("field %q wants a string list: %w", field, catalog.ErrInvalidValue)
		}
		movie.Actors = actors
	default:
		return fmt.Errorf("field %q: %w", field, catalog.ErrInvalidField)
	}

	s.movies[title] = movie
	if err := s.store.SaveMovies(s.movies); err != nil {
		s.movies[title] = previous
		common.CatalogMutationsTotalIncr(ctx, "update", "error")
		return fmt.Errorf("failed to store.Store.SaveMovies: %w", err)
	}

	common.CatalogMutationsTotalIncr(ctx, "update", "ok")
	return nil
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}

func toInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		// JSON numbers decode as float64; accept only whole values.
		if v == math.Trunc(v) {
			return int(v), true
		}
	}
	return 0, false
}

func toStringSlice(value any) ([]string, bool) {
	switch v := value.(type) {
	case []string:
		return v, true
	case []any:
		actors := make([]string, 0, len(v))
		for _, item := range v {
			actor, ok := item.(string)
			if !ok {
				return nil, false
			}
			actors = append(actors, actor)
		}
		return actors, true
	}
	return nil, false
}

// Stats computes descriptive statistics, or nil for an empty collection.
func (s *catalogService) Stats(ctx context.Context) *catalog.Stats {

	_, span := startSpan(ctx, "internal.CatalogService.Stats")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.movies) == 0 {
		return nil
	}

	ratings := make([]float64, 0, len(s.movies))
	sum := 0.0
	for _, movie := range s.movies {
		ratings = append(ratings, movie.Rating)
		sum += movie.Rating
	}
	sort.Float64s(ratings)

	n := len(ratings)
	median := ratings[n/2]
	if n%2 == 0 {
		median = (ratings[n/2-1] + ratings[n/2]) / 2
	}

	worst, best := ratings[0], ratings[n-1]

	var bestTitles, worstTitles []string
	for title, movie := range s.movies {
		if movie.Rating == best {
			bestTitles = append(bestTitles, title)
		}
		if movie.Rating == worst {
			worstTitles = append(worstTitles, title)
		}
	}
	sort.Strings(bestTitles)
	sort.Strings(worstTitles)

	return &catalog.Stats{
		TotalMovies:  n,
		AvgRating:    sum / float64(n),
		MedianRating: median,
		BestRating:   best,
		BestTitles:   bestTitles,
		WorstRating:  worst,
		WorstTitles:  worstTitles,
	}
}

// Random returns a uniformly random entry, or false when empty.
func (s *catalogService) Random(ctx context.Context) (*catalog.Entry, bool) {

	_, span := startSpan(ctx, "internal.CatalogService.Random")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.movies) == 0 {
		return nil, false
	}

	titles := make([]string, 0, len(s.movies))
	for title := range s.movies {
		titles = append(titles, title)
	}
	title := titles[rand.IntN(len(titles))]

	return &catalog.Entry{Title: title, Movie: s.movies[title]}, true
}

// Search evaluates a bang query (a:, y:, r:) or a title substring query.
// A numeric bang term that does not parse signals a malformed query.
func (s *catalogService) Search(ctx context.Context, query string) ([]catalog.Entry, error) {

	_, span := startSpan(ctx, "internal.CatalogService.Search")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	queryLower := strings.ToLower(query)
	entries := s.entriesByTitle()
	found := make([]catalog.Entry, 0)

	switch {
	case strings.HasPrefix(queryLower, "a:"):
		term := strings.TrimSpace(queryLower[2:])
		for _, entry := range entries {
			for _, actor := range entry.Movie.Actors {
				if strings.Contains(strings.ToLower(actor), term) {
					found = append(found, entry)
					break
				}
			}
		}
	case strings.HasPrefix(queryLower, "y:"):
		year, err := strconv.Atoi(strings.TrimSpace(queryLower[2:]))
		if err != nil {
			return nil, fmt.Errorf("year term %q: %w", queryLower[2:], catalog.ErrBadQuery)
		}
		for _, entry := range entries {
			if entry.Movie.Year == year {
				found = append(found, entry)
			}
		}
	case strings.HasPrefix(queryLower, "r:"):
		rating, err := strconv.ParseFloat(strings.TrimSpace(queryLower[2:]), 64)
		if err != nil {
			return nil, fmt.Errorf("rating term %q: %w", queryLower[2:], catalog.ErrBadQuery)
		}
		for _, entry := range entries {
			if entry.Movie.Rating == rating {
				found = append(found, entry)
			}
		}
	default:
		for _, entry := range entries {
			if strings.Contains(strings.ToLower(entry.Title), queryLower) {
				found = append(found, entry)
			}
		}
	}

	return found, nil
}

// Filter returns the sub-collection inside the given inclusive bounds.
func (s *catalogService) Filter(ctx context.Context, minRating *float64, startYear, endYear *int) catalog.Collection {

	_, span := startSpan(ctx, "internal.CatalogService.Filter")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	filtered := catalog.Collection{}
	for title, movie := range s.movies {
		if minRating != nil && movie.Rating < *minRating {
			continue
		}
		if startYear != nil && movie.Year < *startYear {
			continue
		}
		if endYear != nil && movie.Year > *endYear {
			continue
		}
		filtered[title] = movie
	}

	return filtered
}

// SortBy returns entries stably sorted by rating or year.
func (s *catalogService) SortBy(ctx context.Context, field string, descending bool) ([]catalog.Entry, error) {

	_, span := startSpan(ctx, "internal.CatalogService.SortBy")
	defer span.End()

	if field != "rating" && field != "year" {
		return nil, fmt.Errorf("sort field %q: %w", field, catalog.ErrInvalidField)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.entriesByTitle()
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].Movie, entries[j].Movie
		if field == "year" {
			if descending {
				return a.Year > b.Year
			}
			return a.Year < b.Year
		}
		if descending {
			return a.Rating > b.Rating
		}
		return a.Rating < b.Rating
	})

	return entries, nil
}

// SearchOnline looks the query up on the configured metadata provider.
func (s *catalogService) SearchOnline(ctx context.Context, query string) (*omdb.Payload, error) {

	ctx, span := startSpan(ctx, "internal.CatalogService.SearchOnline")
	defer span.End()
	span.SetAttributes(attribute.String("lookup.query", query))

	if s.provider == nil {
		common.ProviderLookupsTotalIncr(ctx, "unavailable")
		return nil, fmt.Errorf("no metadata provider configured: %w", catalog.ErrProviderUnavailable)
	}

	payload, err := s.provider.Lookup(ctx, query)
	if err != nil {
		common.ProviderLookupsTotalIncr(ctx, "error")
		return nil, fmt.Errorf("failed to omdb.Provider.Lookup: %w", err)
	}

	common.ProviderLookupsTotalIncr(ctx, "ok")
	return payload, nil
}

// ReplaceAll swaps in a whole new collection and persists it.
func (s *catalogService) ReplaceAll(ctx context.Context, movies catalog.Collection) error {

	ctx, span := startSpan(ctx, "internal.CatalogService.ReplaceAll")
	defer span.End()
	span.SetAttributes(attribute.Int("movies.count", len(movies)))

	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.movies
	s.movies = movies.Clone()
	if err := s.store.SaveMovies(s.movies); err != nil {
		s.movies = previous
		common.CatalogMutationsTotalIncr(ctx, "restore", "error")
		return fmt.Errorf("failed to store.Store.SaveMovies: %w", err)
	}

	common.CatalogMutationsTotalIncr(ctx, "restore", "ok")
	return nil
}

// entriesByTitle materializes the collection in ascending title order so
// query results are deterministic. Callers must hold s.mu.
func (s *catalogService) entriesByTitle() []catalog.Entry {

	titles := make([]string, 0, len(s.movies))
	for title := range s.movies {
		titles = append(titles, title)
	}
	sort.Strings(titles)

	entries := make([]catalog.Entry, 0, len(titles))
	for _, title := range titles {
		entries = append(entries, catalog.Entry{Title: title, Movie: s.movies[title]})
	}

	return entries
}
