package catalog_test

import (
	"encoding/json"
	"testing"

	"github.com/ogero/filmoteca/pkg/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollection_Clone(t *testing.T) {
	original := catalog.Collection{
		"Alien": {Rating: 8.5, Year: 1979},
	}

	clone := original.Clone()
	clone["Moon"] = catalog.Movie{Rating: 7.8, Year: 2009}
	clone["Alien"] = catalog.Movie{Rating: 1.0, Year: 1979}

	assert.Len(t, original, 1)
	assert.Equal(t, catalog.Movie{Rating: 8.5, Year: 1979}, original["Alien"])
}

func TestMovie_OptionalFieldsOmitted(t *testing.T) {
	data, err := json.Marshal(catalog.Movie{Rating: 8.5, Year: 1979})
	require.NoError(t, err)
	assert.JSONEq(t, `{"rating": 8.5, "year": 1979}`, string(data))

	data, err = json.Marshal(catalog.Movie{
		Rating: 7.8,
		Year:   2009,
		Actors: []string{""},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"rating": 7.8, "year": 2009, "actors": [""]}`, string(data))

	// Absent optional fields stay absent through a round trip.
	var movie catalog.Movie
	require.NoError(t, json.Unmarshal([]byte(`{"rating": 8.5, "year": 1979}`), &movie))
	assert.Empty(t, movie.Description)
	assert.Nil(t, movie.Actors)
}
