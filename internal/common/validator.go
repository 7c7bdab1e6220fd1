package common

import (
	"errors"
	"math"
	"strings"
)

// ValidateTitle checks that a movie title is usable as a collection key.
// Titles are case-sensitive and must not be empty or whitespace only.
func ValidateTitle(title string) error {

	if strings.TrimSpace(title) == "" {
		return errors.New("title must not be empty")
	}

	return nil
}

// ValidateRating checks that a rating is inside the 0 to 10 domain range.
func ValidateRating(rating float64) error {
	if math.IsNaN(rating) || rating < 0 || rating > 10 {
		return errors.New("rating must be between 0 and 10")
	}

	return nil
}

// ValidateYear checks that a release year is positive.
func ValidateYear(year int) error {
	if year <= 0 {
		return errors.New("year must be positive")
	}

	return nil
}

// ValidateSortField checks that the field is sortable. It expects 'rating'
// and 'year' as valid fields.
func ValidateSortField(field string) error {
	if field != "rating" && field != "year" {
		return errors.New("invalid sort field, only rating and year are supported")
	}

	return nil
}

// ValidateUpdateField checks that the field is updatable on a record.
func ValidateUpdateField(field string) error {
	switch field {
	case "rating", "year", "description", "actors":
		return nil
	}

	return errors.New("invalid update field, only rating, year, description and actors are supported")
}
