package pdfdocx

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frag(text string, x0, y0, x1, y1 float64) TextFragment {
	return TextFragment{
		Text:     text,
		Box:      Rect{X0: x0, Y0: y0, X1: x1, Y1: y1},
		FontName: "Helvetica",
		FontSize: 12,
	}
}

func TestReflowPage_EmptyInput(t *testing.T) {
	page := ReflowPage(nil, DefaultReflowConfig())
	assert.Empty(t, page.Lines)
	assert.Empty(t, page.Warnings)
	assert.Equal(t, "", page.Text(1.0))

	page = ReflowPage([]TextFragment{}, DefaultReflowConfig())
	assert.Empty(t, page.Lines)
}

func TestReflowPage_ReadingOrder(t *testing.T) {
	// Given out of order: y grows downward, so "top" must come out first.
	fragments := []TextFragment{
		frag("bottom", 50, 300, 90, 310),
		frag("right", 200, 100, 240, 110),
		frag("left", 50, 100, 80, 110),
		frag("middle", 50, 200, 100, 210),
	}

	page := ReflowPage(fragments, DefaultReflowConfig())
	require.Len(t, page.Lines, 3)

	assert.Equal(t, "left right", page.Lines[0].Text(1.0))
	assert.Equal(t, "middle", page.Lines[1].Text(1.0))
	assert.Equal(t, "bottom", page.Lines[2].Text(1.0))
}

func TestReflowPage_SameLineOrderedByX(t *testing.T) {
	a := frag("first", 10, 100, 40, 110)
	b := frag("second", 60, 100.5, 100, 110.5)

	for _, fragments := range [][]TextFragment{{a, b}, {b, a}} {
		page := ReflowPage(fragments, DefaultReflowConfig())
		require.Len(t, page.Lines, 1)
		require.Len(t, page.Lines[0].Fragments, 2)
		assert.Equal(t, "first", page.Lines[0].Fragments[0].Text)
		assert.Equal(t, "second", page.Lines[0].Fragments[1].Text)
	}
}

func TestReflowPage_PermutationInvariance(t *testing.T) {
	fragments := []TextFragment{
		frag("The", 72, 90, 95, 102),
		frag("quick", 100, 90, 130, 102),
		frag("brown", 135, 90.8, 168, 102.8),
		frag("fox", 72, 108, 92, 120),
		frag("jumps", 97, 108, 130, 120),
		frag("over", 72, 126, 98, 138),
		frag("the", 103, 126.4, 122, 138.4),
		frag("dog", 127, 126, 150, 138),
	}

	reference := ReflowPage(fragments, DefaultReflowConfig()).Text(1.0)
	require.NotEmpty(t, reference)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 25; i++ {
		shuffled := make([]TextFragment, len(fragments))
		copy(shuffled, fragments)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})

		page := ReflowPage(shuffled, DefaultReflowConfig())
		assert.Equal(t, reference, page.Text(1.0), "permutation %d changed the output", i)
	}
}

func TestReflowPage_Idempotence(t *testing.T) {
	fragments := []TextFragment{
		frag("alpha", 10, 50, 40, 60),
		frag("beta", 46, 50, 70, 60),
		frag("gamma", 10, 70, 50, 80),
	}

	first := ReflowPage(fragments, DefaultReflowConfig())
	second := ReflowPage(fragments, DefaultReflowConfig())

	assert.Equal(t, first.Text(1.0), second.Text(1.0))
	assert.Equal(t, first, second)
}

func TestReflowPage_SpaceInsertedAboveThreshold(t *testing.T) {
	// 5pt gap between the fragments, well above the 1pt threshold.
	fragments := []TextFragment{
		frag("THE", 10, 100, 32, 112),
		frag("FIRST", 37, 100, 70, 112),
	}

	page := ReflowPage(fragments, DefaultReflowConfig())
	require.Len(t, page.Lines, 1)
	assert.Equal(t, "THE FIRST", page.Lines[0].Text(1.0))
}

func TestReflowPage_NoSpaceOnNegativeGap(t *testing.T) {
	// Sub-glyph split: "PARK" starts before "AVON" ends.
	fragments := []TextFragment{
		frag("AVON", 10, 100, 40, 112),
		frag("PARK", 39.6, 100, 70, 112),
	}

	page := ReflowPage(fragments, DefaultReflowConfig())
	require.Len(t, page.Lines, 1)
	assert.Equal(t, "AVONPARK", page.Lines[0].Text(1.0))
}

func TestReflowPage_NaNFragmentPlacedLast(t *testing.T) {
	broken := frag("lost", 0, 0, 0, 0)
	broken.Box.X0 = math.NaN()
	broken.Box.Y0 = math.NaN()

	fragments := []TextFragment{
		broken,
		frag("hello", 10, 100, 40, 110),
		frag("world", 46, 100, 80, 110),
	}

	page := ReflowPage(fragments, DefaultReflowConfig())
	require.Len(t, page.Lines, 2)
	assert.Equal(t, "hello world", page.Lines[0].Text(1.0))
	assert.Equal(t, "lost", page.Lines[1].Text(1.0))
	require.Len(t, page.Warnings, 1)
	assert.Contains(t, page.Warnings[0], "lost")
}

func TestReflowPage_DegenerateBoxWarnsButKeepsFragment(t *testing.T) {
	fragments := []TextFragment{
		frag("zero", 10, 100, 10, 100), // zero-size box
		frag("normal", 20, 100, 60, 110),
	}

	page := ReflowPage(fragments, DefaultReflowConfig())
	var all string
	for _, line := range page.Lines {
		all += line.Text(1.0) + "\n"
	}
	assert.Contains(t, all, "zero")
	assert.Contains(t, all, "normal")
	require.NotEmpty(t, page.Warnings)
	assert.Contains(t, page.Warnings[0], "zero")
}

func TestReflowPage_ToleranceIsAgainstLineReference(t *testing.T) {
	// y = 10, 12, 14 with tolerance 2.5: 12 joins the line anchored at 10,
	// but 14 is 4pt from the reference and starts a new line. Chaining off
	// the previous fragment instead of the line reference would merge all
	// three.
	cfg := ReflowConfig{LineTolerance: 2.5, SpaceGapThreshold: 1.0}
	fragments := []TextFragment{
		frag("a", 10, 10, 20, 20),
		frag("b", 30, 12, 40, 22),
		frag("c", 50, 14, 60, 24),
	}

	page := ReflowPage(fragments, cfg)
	require.Len(t, page.Lines, 2)
	assert.Equal(t, "a b", page.Lines[0].Text(1.0))
	assert.Equal(t, "c", page.Lines[1].Text(1.0))
}

func TestNeedsSpace(t *testing.T) {
	base := frag("foo", 10, 100, 40, 110)

	tests := []struct {
		name string
		next TextFragment
		want bool
	}{
		{"wide gap", frag("bar", 45, 100, 70, 110), true},
		{"small positive gap", frag("bar", 40.5, 100, 70, 110), true},
		{"touching", frag("bar", 40, 100, 70, 110), false},
		{"tiny kerning gap", frag("bar", 40.1, 100, 70, 110), false},
		{"overlap", frag("bar", 38, 100, 70, 110), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, needsSpace(base, tt.next, 1.0))
		})
	}
}

func TestNeedsSpace_ExistingWhitespaceWins(t *testing.T) {
	prev := frag("foo ", 10, 100, 40, 110)
	next := frag("bar", 40.5, 100, 70, 110)

	// The trailing space already separates the fragments.
	assert.False(t, needsSpace(prev, next, 1.0))

	prev = frag("foo", 10, 100, 40, 110)
	next = frag(" bar", 40.5, 100, 70, 110)
	assert.False(t, needsSpace(prev, next, 1.0))

	// But a gap above the threshold always gets a space.
	next = frag("bar", 45, 100, 70, 110)
	assert.True(t, needsSpace(prev, next, 1.0))
}

func TestDeriveLineTolerance(t *testing.T) {
	// 12pt-high fragments: a quarter of the median height.
	fragments := []TextFragment{
		frag("a", 0, 0, 10, 12),
		frag("b", 0, 20, 10, 32),
		frag("c", 0, 40, 10, 52),
	}
	assert.InDelta(t, 3.0, deriveLineTolerance(fragments), 0.001)

	// Tiny fragments clamp to the floor.
	small := []TextFragment{frag("a", 0, 0, 1, 1)}
	assert.Equal(t, 1.5, deriveLineTolerance(small))

	// Huge fragments clamp to the ceiling.
	big := []TextFragment{frag("a", 0, 0, 10, 100)}
	assert.Equal(t, 4.0, deriveLineTolerance(big))

	// No usable heights falls back to the default.
	assert.Equal(t, 2.5, deriveLineTolerance(nil))
}

func TestReflowedPage_Text(t *testing.T) {
	fragments := []TextFragment{
		frag("one", 10, 10, 30, 20),
		frag("two", 36, 10, 55, 20),
		frag("three", 10, 40, 45, 50),
	}

	page := ReflowPage(fragments, DefaultReflowConfig())
	assert.Equal(t, "one two\nthree", page.Text(1.0))
}
