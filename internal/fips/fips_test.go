package fips

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeState(t *testing.T) {
	assert.Equal(t, "06", NormalizeState("6"))
	assert.Equal(t, "06", NormalizeState("06"))
	assert.Equal(t, "24", NormalizeState(" 24 "))
	assert.Equal(t, "06", NormalizeState("6.0"))
	assert.Equal(t, "", NormalizeState(""))
}

func TestNormalizeCounty(t *testing.T) {
	assert.Equal(t, "001", NormalizeCounty("1"))
	assert.Equal(t, "037", NormalizeCounty("37"))
	assert.Equal(t, "037", NormalizeCounty("037"))
	assert.Equal(t, "", NormalizeCounty(""))
}

func TestNormalizePlaceAndSubdivision(t *testing.T) {
	assert.Equal(t, "00000", NormalizeSubdivision("0"))
	assert.Equal(t, "00000", NormalizeSubdivision("00000"))
	assert.Equal(t, "04000", NormalizePlace("4000"))
}

func TestCombine(t *testing.T) {
	tests := []struct {
		state, county, want string
	}{
		{"6", "37", "06037"},
		{"36", "061", "36061"},
		{"24", "3", "24003"},
		{"", "037", ""},
		{"06", "", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Combine(tt.state, tt.county), "state=%q county=%q", tt.state, tt.county)
	}
}

func TestCombinePlace(t *testing.T) {
	assert.Equal(t, "2404000", CombinePlace("24", "4000"))
	assert.Equal(t, "", CombinePlace("24", ""))
}

func TestPad_LeavesNonIntegerDecimals(t *testing.T) {
	// Only a trailing ".0" is treated as spreadsheet float rendering.
	assert.Equal(t, "1.5", NormalizeState("1.5"))
}

func TestLookup(t *testing.T) {
	src := map[string]string{"24003": "Anne Arundel County"}
	l := NewLookup(src)
	src["24005"] = "Baltimore County" // mutation after construction is not visible

	name, ok := l.Name("24003")
	assert.True(t, ok)
	assert.Equal(t, "Anne Arundel County", name)

	_, ok = l.Name("24005")
	assert.False(t, ok)
	assert.Equal(t, 1, l.Len())
}
