package omdb

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/StalkR/imdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStalkrProvider_Lookup(t *testing.T) {
	p := &stalkrProvider{
		searchTitle: func(c *http.Client, query string) ([]imdb.Title, error) {
			assert.Equal(t, "Moon", query)
			return []imdb.Title{{ID: "tt1182345"}, {ID: "tt0000000"}}, nil
		},
		getTitle: func(c *http.Client, id string) (*imdb.Title, error) {
			assert.Equal(t, "tt1182345", id)
			return &imdb.Title{
				ID:          "tt1182345",
				Name:        "Moon",
				Year:        2009,
				Rating:      "7.8",
				Description: "A lunar miner nears the end of his contract.",
				Actors: []imdb.Name{
					{FullName: "Sam Rockwell"},
					{FullName: "Kevin Spacey"},
				},
			}, nil
		},
	}

	payload, err := p.Lookup(context.Background(), "Moon")
	require.NoError(t, err)
	assert.Equal(t, &Payload{
		Response: "True",
		Title:    "Moon",
		Year:     "2009",
		Rating:   "7.8",
		Plot:     "A lunar miner nears the end of his contract.",
		Actors:   "Sam Rockwell, Kevin Spacey",
	}, payload)
}

func TestStalkrProvider_Lookup_MissingFields(t *testing.T) {
	p := &stalkrProvider{
		searchTitle: func(c *http.Client, query string) ([]imdb.Title, error) {
			return []imdb.Title{{ID: "tt0000001"}}, nil
		},
		getTitle: func(c *http.Client, id string) (*imdb.Title, error) {
			return &imdb.Title{ID: "tt0000001", Name: "Obscurity"}, nil
		},
	}

	payload, err := p.Lookup(context.Background(), "Obscurity")
	require.NoError(t, err)
	assert.Equal(t, &Payload{
		Response: "True",
		Title:    "Obscurity",
		Year:     "",
		Rating:   "N/A",
		Plot:     "",
		Actors:   "",
	}, payload)
}

func TestStalkrProvider_Lookup_NoResults(t *testing.T) {
	p := &stalkrProvider{
		searchTitle: func(c *http.Client, query string) ([]imdb.Title, error) {
			return nil, nil
		},
	}

	_, err := p.Lookup(context.Background(), "No Such Movie")
	assert.ErrorContains(t, err, "movie not found")
}

func TestStalkrProvider_Lookup_SearchFailure(t *testing.T) {
	p := &stalkrProvider{
		searchTitle: func(c *http.Client, query string) ([]imdb.Title, error) {
			return nil, errors.New("rate limited")
		},
	}

	_, err := p.Lookup(context.Background(), "Moon")
	assert.ErrorContains(t, err, "failed to imdb.SearchTitle")
}

func TestStalkrProvider_Lookup_GetFailure(t *testing.T) {
	p := &stalkrProvider{
		searchTitle: func(c *http.Client, query string) ([]imdb.Title, error) {
			return []imdb.Title{{ID: "tt0000001"}}, nil
		},
		getTitle: func(c *http.Client, id string) (*imdb.Title, error) {
			return nil, errors.New("parse failure")
		},
	}

	_, err := p.Lookup(context.Background(), "Moon")
	assert.ErrorContains(t, err, "failed to imdb.NewTitle")
}
