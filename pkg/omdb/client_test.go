package omdb_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ogero/filmoteca/pkg/catalog"
	"github.com/ogero/filmoteca/pkg/omdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticKey(key string) omdb.KeyFunc {
	return func() string { return key }
}

func TestClient_Lookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "abc123", q.Get("apikey"))
		assert.Equal(t, "Arrival", q.Get("t"))
		assert.Equal(t, "json", q.Get("r"))
		assert.Equal(t, "full", q.Get("plot"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"Response": "True",
			"Title": "Arrival",
			"Year": "2016",
			"imdbRating": "7.9",
			"Plot": "A linguist decodes an alien language.",
			"Actors": "Amy Adams, Jeremy Renner"
		}`))
	}))
	defer srv.Close()

	c := omdb.NewClient(srv.URL, staticKey("abc123"))

	payload, err := c.Lookup(context.Background(), "Arrival")
	require.NoError(t, err)
	assert.Equal(t, &omdb.Payload{
		Response: "True",
		Title:    "Arrival",
		Year:     "2016",
		Rating:   "7.9",
		Plot:     "A linguist decodes an alien language.",
		Actors:   "Amy Adams, Jeremy Renner",
	}, payload)
}

func TestClient_Lookup_NoAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected without an api key")
	}))
	defer srv.Close()

	c := omdb.NewClient(srv.URL, staticKey(""))

	_, err := c.Lookup(context.Background(), "Arrival")
	assert.ErrorIs(t, err, catalog.ErrProviderUnavailable)
}

func TestClient_Lookup_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Response": "False", "Error": "Movie not found!"}`))
	}))
	defer srv.Close()

	c := omdb.NewClient(srv.URL, staticKey("abc123"))

	_, err := c.Lookup(context.Background(), "No Such Movie")
	assert.ErrorContains(t, err, "Movie not found!")
}

func TestClient_Lookup_FalseResponseWithoutError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Response": "False"}`))
	}))
	defer srv.Close()

	c := omdb.NewClient(srv.URL, staticKey("abc123"))

	_, err := c.Lookup(context.Background(), "No Such Movie")
	assert.ErrorContains(t, err, "movie not found")
}

func TestClient_Lookup_InvalidStatusCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := omdb.NewClient(srv.URL, staticKey("abc123"))

	_, err := c.Lookup(context.Background(), "Arrival")
	assert.ErrorContains(t, err, "invalid status code: 401")
}

func TestClient_Lookup_InvalidBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := omdb.NewClient(srv.URL, staticKey("abc123"))

	_, err := c.Lookup(context.Background(), "Arrival")
	assert.ErrorContains(t, err, "failed to json.NewDecoder.Decode")
}
