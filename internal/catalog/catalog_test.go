package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAll(t *testing.T) {
	all := All()
	require.Len(t, all, 12)
	assert.Equal(t, DefaultProcedure, all[0].Title)

	seen := map[string]bool{}
	for _, s := range all {
		assert.NotEmpty(t, s.Description, s.Title)
		assert.False(t, seen[s.Slug], "duplicate slug %s", s.Slug)
		seen[s.Slug] = true
	}

	all[0].Title = "mutated"
	assert.Equal(t, DefaultProcedure, All()[0].Title)
}

func TestLookup(t *testing.T) {
	tests := []struct {
		in    string
		want  string
		found bool
	}{
		{"Root Canal Therapy", "Root Canal Therapy", true},
		{"  teeth whitening ", "Teeth Whitening", true},
		{"deep-cleaning", "Deep Cleaning (Prophylaxis)", true},
		{"Veneers", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := Lookup(tt.in)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got.Title)
		})
	}
}
