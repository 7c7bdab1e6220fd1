package omdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ogero/filmoteca/pkg/catalog"
	"github.com/ogero/filmoteca/pkg/transport"
	"go.opentelemetry.io/otel/trace"
)

// ErrResponseTooLarge is returned when the provider response exceeds the
// bounded read limit.
var ErrResponseTooLarge = errors.New("provider response too large")

const maxResponseBytes = 1024 * 1024

// KeyFunc resolves the API key used to authenticate provider requests.
// An empty string means no key is configured.
type KeyFunc func() string

type client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     KeyFunc
}

// NewClient creates the OMDb implementation of the Provider. The API key is
// resolved through apiKey on every lookup, so key updates take effect without
// a restart.
func NewClient(baseURL string, apiKey KeyFunc) Provider {

	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 100
	t.MaxConnsPerHost = 100
	t.MaxIdleConnsPerHost = 100

	rt := transport.NewModifyRequestRoundTripper(t,
		transport.WithQueryParam("r", "json"),
		transport.WithQueryParam("plot", "full"),
	)

	return &client{
		httpClient: &http.Client{
			Timeout:   time.Second * 10,
			Transport: rt,
		},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// Lookup searches OMDb for a title and returns its metadata.
func (c *client) Lookup(ctx context.Context, query string) (*Payload, error) {

	ctx, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "omdb.Provider.Lookup")
	defer span.End()

	key := c.apiKey()
	if key == "" {
		return nil, fmt.Errorf("api key is not set: %w", catalog.ErrProviderUnavailable)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to http.NewRequestWithContext: %w", err)
	}

	q := req.URL.Query()
	q.Set("apikey", key)
	q.Set("t", query)
	req.URL.RawQuery = q.Encode()

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to http.Client.Do: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("invalid status code: %d", res.StatusCode)
	}

	payload := &Payload{}
	lr := transport.LimitReader(res.Body, maxResponseBytes, ErrResponseTooLarge)
	if err := json.NewDecoder(lr).Decode(payload); err != nil {
		return nil, fmt.Errorf("failed to json.NewDecoder.Decode: %w", err)
	}

	if payload.Response != "True" {
		if payload.Error != "" {
			return nil, errors.New(payload.Error)
		}
		return nil, errors.New("movie not found")
	}

	return payload, nil
}
