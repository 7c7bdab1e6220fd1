package omdb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/StalkR/imdb"
	"github.com/ogero/filmoteca/pkg/transport"
	"go.opentelemetry.io/otel/trace"
)

type stalkrProvider struct {
	httpClient  *http.Client
	searchTitle func(c *http.Client, query string) ([]imdb.Title, error)
	getTitle    func(c *http.Client, id string) (*imdb.Title, error)
}

// NewStalkrProvider creates an IMDb-backed Provider that needs no API key.
// The first search hit is fetched in full and mapped onto the OMDb payload
// shape, so both providers are interchangeable to the caller.
func NewStalkrProvider() Provider {

	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 100
	t.MaxConnsPerHost = 100
	t.MaxIdleConnsPerHost = 100

	rt := transport.NewModifyRequestRoundTripper(t,
		transport.WithAcceptLanguage("en"), // avoid IP-based language detection
		transport.WithUserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/107.0.0.0 Safari/537.36"),
	)

	return &stalkrProvider{
		httpClient: &http.Client{
			Timeout:   time.Second * 10,
			Transport: rt,
		},
		searchTitle: imdb.SearchTitle,
		getTitle:    imdb.NewTitle,
	}
}

// Lookup searches IMDb for a title and returns its metadata.
func (p *stalkrProvider) Lookup(ctx context.Context, query string) (*Payload, error) {

	_, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "omdb.Provider.Lookup")
	defer span.End()

	results, err := p.searchTitle(p.httpClient, query)
	if err != nil {
		return nil, fmt.Errorf("failed to imdb.SearchTitle: %w", err)
	}
	if len(results) == 0 {
		return nil, errors.New("movie not found")
	}

	title, err := p.getTitle(p.httpClient, results[0].ID)
	if err != nil {
		return nil, fmt.Errorf("failed to imdb.NewTitle: %w", err)
	}

	var year string
	if title.Year != 0 {
		year = strconv.Itoa(title.Year)
	}

	rating := title.Rating
	if rating == "" {
		rating = "N/A"
	}

	actors := make([]string, 0, len(title.Actors))
	for _, actor := range title.Actors {
		actors = append(actors, actor.FullName)
	}

	return &Payload{
		Response: "True",
		Title:    title.Name,
		Year:     year,
		Rating:   rating,
		Plot:     title.Description,
		Actors:   strings.Join(actors, ", "),
	}, nil
}
