package routing

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trunov/converthub/internal/entities"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"pdf":    "PDF",
		".PDF":   "PDF",
		" png ":  "PNG",
		"jpeg":   "JPG",
		".JPEG":  "JPG",
		"jpg":    "JPG",
		"Docx":   "DOCX",
		"":       "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), "Normalize(%q)", in)
	}
}

func TestStrategiesForKnownPair(t *testing.T) {
	table := NewTable()

	ids, err := table.StrategiesFor("pdf", "txt")
	require.NoError(t, err)
	assert.Equal(t, []StrategyID{StrategyPDFText, StrategyPdftotext}, ids)
}

func TestStrategiesForNormalizesInput(t *testing.T) {
	table := NewTable()

	upper, err := table.StrategiesFor("JPEG", "PNG")
	require.NoError(t, err)
	lower, err := table.StrategiesFor(".jpg", "png")
	require.NoError(t, err)
	assert.Equal(t, upper, lower)
}

func TestStrategiesForUnsupportedPair(t *testing.T) {
	table := NewTable()

	_, err := table.StrategiesFor("pdf", "mp3")
	require.Error(t, err)
	assert.ErrorIs(t, err, entities.ErrUnsupportedConversion)
	assert.Contains(t, err.Error(), "PDF")
	assert.Contains(t, err.Error(), "MP3")
}

func TestStrategiesForSameFormat(t *testing.T) {
	table := NewTable()

	_, err := table.StrategiesFor("png", "png")
	assert.ErrorIs(t, err, entities.ErrUnsupportedConversion)
}

func TestStrategiesForReturnsCopy(t *testing.T) {
	table := NewTable()

	ids, err := table.StrategiesFor("txt", "pdf")
	require.NoError(t, err)
	ids[0] = "tampered"

	again, err := table.StrategiesFor("txt", "pdf")
	require.NoError(t, err)
	assert.NotEqual(t, StrategyID("tampered"), again[0])
}

func TestEveryPairHasStrategies(t *testing.T) {
	table := NewTable()

	pairs := table.SupportedPairs()
	require.NotEmpty(t, pairs)
	for _, p := range pairs {
		ids, err := table.StrategiesFor(p.Source, p.Destination)
		require.NoError(t, err, "pair %s", p)
		assert.NotEmpty(t, ids, "pair %s", p)
		assert.NotEqual(t, p.Source, p.Destination, "pair %s", p)
	}
}

func TestSupportedPairsSorted(t *testing.T) {
	table := NewTable()

	pairs := table.SupportedPairs()
	sorted := sort.SliceIsSorted(pairs, func(i, j int) bool {
		if pairs[i].Source != pairs[j].Source {
			return pairs[i].Source < pairs[j].Source
		}
		return pairs[i].Destination < pairs[j].Destination
	})
	assert.True(t, sorted)
}

func TestRasterFamilyFilledIn(t *testing.T) {
	table := NewTable()

	for _, src := range rasterFormats {
		for _, dst := range rasterFormats {
			if src == dst {
				continue
			}
			ids, err := table.StrategiesFor(src, dst)
			require.NoError(t, err, "%s -> %s", src, dst)
			assert.Equal(t, StrategyImaging, ids[0])
		}
	}
}

func TestFormatsGrouping(t *testing.T) {
	table := NewTable()

	formats := table.Formats()
	require.NotEmpty(t, formats)

	var pdf *FormatSupport
	for i := range formats {
		if formats[i].Source == "PDF" {
			pdf = &formats[i]
			break
		}
	}
	require.NotNil(t, pdf)
	assert.Contains(t, pdf.Destinations, "TXT")
	assert.Contains(t, pdf.Destinations, "DOCX")
	assert.True(t, sort.StringsAreSorted(pdf.Destinations))

	// The listing is derived from the same table the dispatcher consults.
	total := 0
	for _, f := range formats {
		total += len(f.Destinations)
	}
	assert.Equal(t, len(table.SupportedPairs()), total)
}
