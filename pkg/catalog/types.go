// Package catalog holds the domain types of the movie catalog: the persisted
// record shape, the collection keyed by title and the statistics computed
// over it.
package catalog

// Movie holds the stored attributes of a single catalog record. The title is
// the collection key and is not repeated here. Description and Actors are
// optional and their absence round-trips through persistence.
type Movie struct {
	Rating      float64  `json:"rating"`
	Year        int      `json:"year"`
	Description string   `json:"description,omitempty"`
	Actors      []string `json:"actors,omitempty"`
}

// Collection is the full set of records keyed by title, the unit of
// persistence. Titles are unique and case-sensitive.
type Collection map[string]Movie

// Clone returns a shallow copy of the collection so callers cannot alias the
// service's working set.
func (c Collection) Clone() Collection {
	clone := make(Collection, len(c))
	for title, movie := range c {
		clone[title] = movie
	}
	return clone
}

// Entry pairs a title with its record for ordered query results.
type Entry struct {
	Title string `json:"title"`
	Movie Movie  `json:"movie"`
}

// Stats carries descriptive statistics over the whole collection. Best and
// worst title sets are sorted lexicographically and every listed title's
// rating equals the reported extremum exactly.
type Stats struct {
	TotalMovies  int      `json:"totalMovies"`
	AvgRating    float64  `json:"avgRating"`
	MedianRating float64  `json:"medianRating"`
	BestRating   float64  `json:"bestRating"`
	BestTitles   []string `json:"bestTitles"`
	WorstRating  float64  `json:"worstRating"`
	WorstTitles  []string `json:"worstTitles"`
}
