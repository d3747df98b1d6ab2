package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHHMM(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:00", 540, false},
		{"09:30", 570, false},
		{"23:59", 1439, false},
		{"24:00", 0, true},
		{"09:60", 0, true},
		{"-1:00", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}

	for _, tc := range cases {
		got, err := ParseHHMM(tc.in)
		if tc.wantErr {
			assert.Error(t, err, "input %q", tc.in)
			continue
		}
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestFormatHHMM(t *testing.T) {
	assert.Equal(t, "00:00", FormatHHMM(0))
	assert.Equal(t, "09:05", FormatHHMM(545))
	assert.Equal(t, "23:30", FormatHHMM(1410))
}

func TestFormatHHMM_RoundTrips(t *testing.T) {
	for _, min := range []int{0, 1, 60, 545, 719, 1439} {
		got, err := ParseHHMM(FormatHHMM(min))
		require.NoError(t, err)
		assert.Equal(t, min, got)
	}
}

func TestOverlaps(t *testing.T) {
	// half-open: a slot ending exactly when another starts is not a conflict
	assert.False(t, Overlaps(540, 570, 570, 600))
	assert.False(t, Overlaps(570, 600, 540, 570))

	assert.True(t, Overlaps(540, 570, 560, 590))
	assert.True(t, Overlaps(540, 600, 550, 560))
	assert.True(t, Overlaps(550, 560, 540, 600))
	assert.True(t, Overlaps(540, 570, 540, 570))
}
