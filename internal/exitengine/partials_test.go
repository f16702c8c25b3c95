package exitengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scf-pipeline/internal/domain"
)

func TestParsePartials(t *testing.T) {
	t.Run("empty yields nil", func(t *testing.T) {
		levels, err := ParsePartials("")
		require.NoError(t, err)
		assert.Nil(t, levels)

		levels, err = ParsePartials("   ")
		require.NoError(t, err)
		assert.Nil(t, levels)
	})

	t.Run("sorted ascending by level", func(t *testing.T) {
		levels, err := ParsePartials("2.0:0.5, 1.5:0.25")
		require.NoError(t, err)
		require.Len(t, levels, 2)
		assert.Equal(t, PartialLevel{Level: 1.5, Ratio: 0.25}, levels[0])
		assert.Equal(t, PartialLevel{Level: 2.0, Ratio: 0.5}, levels[1])
	})

	t.Run("empty segments are skipped", func(t *testing.T) {
		levels, err := ParsePartials("1.5:0.25,,2.0:0.5,")
		require.NoError(t, err)
		assert.Len(t, levels, 2)
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		cases := []string{
			"1.5",         // no ratio
			"abc:0.5",     // bad level
			"1.5:xyz",     // bad ratio
			"0:0.5",       // level not positive
			"-1:0.5",      // level not positive
			"1.5:0",       // ratio out of range
			"1.5:1.01",    // ratio out of range
			"1.5:-0.5",    // ratio out of range
		}
		for _, c := range cases {
			_, err := ParsePartials(c)
			assert.Error(t, err, "input %q", c)
		}
	})

	t.Run("full ratio is allowed", func(t *testing.T) {
		levels, err := ParsePartials("3:1")
		require.NoError(t, err)
		require.Len(t, levels, 1)
		assert.InDelta(t, 1.0, levels[0].Ratio, 1e-9)
	})
}

func TestPartialLevelTag(t *testing.T) {
	tag := PartialLevel{Level: 1.5, Ratio: 0.25}.Tag(domain.PartialTP)
	assert.Equal(t, "partial_TP_1.5", tag.String())

	tag = PartialLevel{Level: 2, Ratio: 0.5}.Tag(domain.PartialSL)
	assert.Equal(t, "partial_SL_2.0", tag.String())
	assert.Equal(t, domain.ExitSLPartial, tag.ExitReason())
}
