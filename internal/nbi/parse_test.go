package nbi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRating(t *testing.T) {
	tests := []struct {
		in   string
		want *int
	}{
		{"7", ip(7)},
		{" 3 ", ip(3)},
		{"'5'", ip(5)},
		{"6.0", ip(6)},
		{"4.7", ip(4)},
		{"", nil},
		{"N", nil},
		{"NaN", nil},
		{"abc", nil},
		{"0", ip(0)},
		{"9", ip(9)},
		{"9.9", ip(9)},
		{"10", nil},
		{"-1", nil},
		{"1e20", nil},
		{"-1e20", nil},
	}
	for _, tt := range tests {
		got := ParseRating(tt.in)
		if tt.want == nil {
			assert.Nil(t, got, "input %q", tt.in)
			continue
		}
		require.NotNil(t, got, "input %q", tt.in)
		assert.Equal(t, *tt.want, *got, "input %q", tt.in)
	}
}

func TestParseOptionalInt(t *testing.T) {
	v := parseOptionalInt("12000")
	require.NotNil(t, v)
	assert.Equal(t, int64(12000), *v)

	v = parseOptionalInt("1955.0")
	require.NotNil(t, v)
	assert.Equal(t, int64(1955), *v)

	assert.Nil(t, parseOptionalInt(""))
	assert.Nil(t, parseOptionalInt("n/a"))
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "OBRIEN CREEK", CleanText("'O'BRIEN CREEK'"))
	assert.Equal(t, "2.1 MI N OF US 50", CleanText("  '2.1 MI N OF US 50'  "))
	assert.Equal(t, "", CleanText("''"))
}

func TestSplitInspectionDate(t *testing.T) {
	tests := []struct {
		in, month, year string
	}{
		{"0317", "03", "17"},
		{"317", "03", "17"},
		{"1106", "11", "06"},
		{"1307", "13", "07"}, // not validated
		{"7", "00", "07"},
		{"317.0", "03", "17"},
		{"", "", ""},
	}
	for _, tt := range tests {
		m, y := SplitInspectionDate(tt.in)
		assert.Equal(t, tt.month, m, "input %q", tt.in)
		assert.Equal(t, tt.year, y, "input %q", tt.in)
	}
}

func TestParseLatitudeLongitude(t *testing.T) {
	lat := ParseLatitude("38583620")
	require.NotNil(t, lat)
	assert.InDelta(t, 38.976722, *lat, 1e-6)

	lon := ParseLongitude("076294510")
	require.NotNil(t, lon)
	assert.InDelta(t, -76.495861, *lon, 1e-6)

	// Leading zero lost by numeric sniffing upstream.
	lon = ParseLongitude("76294510")
	require.NotNil(t, lon)
	assert.InDelta(t, -76.495861, *lon, 1e-6)

	assert.Nil(t, ParseLatitude(""))
	assert.Nil(t, ParseLatitude("00000000"))
	assert.Nil(t, ParseLatitude("38753620"))  // 75 minutes
	assert.Nil(t, ParseLatitude("98000000"))  // beyond 90 degrees
	assert.Nil(t, ParseLatitude("123456789")) // too long
	assert.Nil(t, ParseLongitude("W76"))
}
