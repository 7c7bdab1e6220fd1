package common_test

import (
	"math"
	"testing"

	"github.com/ogero/filmoteca/internal/common"
	"github.com/stretchr/testify/assert"
)

func TestValidateTitle(t *testing.T) {
	tests := []struct {
		title   string
		wantErr assert.ErrorAssertionFunc
	}{
		{"Alien", assert.NoError},
		{"夏目友人帳", assert.NoError},
		{"Moon (2009)", assert.NoError},
		{" padded ", assert.NoError},
		{"", assert.Error},
		{"   ", assert.Error},
		{"\t\n", assert.Error},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			err := common.ValidateTitle(tt.title)
			tt.wantErr(t, err)
		})
	}
}

func TestValidateRating(t *testing.T) {
	tests := []struct {
		name    string
		rating  float64
		wantErr assert.ErrorAssertionFunc
	}{
		{"zero", 0, assert.NoError},
		{"mid", 7.9, assert.NoError},
		{"max", 10, assert.NoError},
		{"negative", -0.1, assert.Error},
		{"above max", 10.1, assert.Error},
		{"NaN", math.NaN(), assert.Error},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := common.ValidateRating(tt.rating)
			tt.wantErr(t, err)
		})
	}
}

func TestValidateYear(t *testing.T) {
	tests := []struct {
		name    string
		year    int
		wantErr assert.ErrorAssertionFunc
	}{
		{"usual", 1979, assert.NoError},
		{"first", 1, assert.NoError},
		{"zero", 0, assert.Error},
		{"negative", -1979, assert.Error},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := common.ValidateYear(tt.year)
			tt.wantErr(t, err)
		})
	}
}

func TestValidateSortField(t *testing.T) {
	tests := []struct {
		field   string
		wantErr assert.ErrorAssertionFunc
	}{
		{"rating", assert.NoError},
		{"year", assert.NoError},
		{"title", assert.Error},
		{"Rating", assert.Error},
		{"", assert.Error},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			err := common.ValidateSortField(tt.field)
			tt.wantErr(t, err)
		})
	}
}

func TestValidateUpdateField(t *testing.T) {
	tests := []struct {
		field   string
		wantErr assert.ErrorAssertionFunc
	}{
		{"rating", assert.NoError},
		{"year", assert.NoError},
		{"description", assert.NoError},
		{"actors", assert.NoError},
		{"title", assert.Error},
		{"director", assert.Error},
		{"", assert.Error},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			err := common.ValidateUpdateField(tt.field)
			tt.wantErr(t, err)
		})
	}
}
