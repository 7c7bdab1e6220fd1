// Package omdb looks up movie metadata on external providers.
package omdb

import "context"

// Payload is the loosely-typed result of a metadata lookup, mirroring the
// OMDb API response shape. Year and Rating are strings as received from the
// wire; Rating may carry the literal "N/A" sentinel. Actors is a
// comma-joined name list.
type Payload struct {
	Response string `json:"Response"`
	Title    string `json:"Title"`
	Year     string `json:"Year"`
	Rating   string `json:"imdbRating"`
	Plot     string `json:"Plot"`
	Actors   string `json:"Actors"`
	Error    string `json:"Error,omitempty"`
}

// Provider defines the methods to look up movie metadata by a free-text
// title query.
type Provider interface {
	// Lookup searches the provider for a title and returns its metadata.
	Lookup(ctx context.Context, query string) (*Payload, error)
}
