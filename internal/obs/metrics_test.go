package obs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseBucketsCSV(t *testing.T) {
	require.Nil(t, ParseBucketsCSV(""))
	require.Nil(t, ParseBucketsCSV("   "))
	require.Equal(t, []float64{5, 50, 500}, ParseBucketsCSV("5,50,500"))
	// junk, blanks and non-positive entries are skipped
	require.Equal(t, []float64{10, 250}, ParseBucketsCSV(" 10, ,abc,-1,0,250 "))
}

func TestDurationMillis(t *testing.T) {
	require.Equal(t, 1500.0, DurationMillis(1500*time.Millisecond))
}
