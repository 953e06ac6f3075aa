package pdfdocx

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPage(fragments ...TextFragment) ConvertedPage {
	return ConvertedPage{
		Content: PageContent{
			Number:    1,
			Width:     612,
			Height:    792,
			Fragments: fragments,
		},
		Reflowed: ReflowPage(fragments, DefaultReflowConfig()),
	}
}

func TestAssembler_BuildAndReadBack(t *testing.T) {
	page := testPage(
		frag("Hello", 72, 90, 110, 102),
		frag("converted", 116, 90, 180, 102),
		frag("world", 72, 108, 110, 120),
	)

	assembler := NewAssembler(DefaultTemplate(), nil, 1.0, true)
	doc, err := assembler.Build([]ConvertedPage{page})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.docx")
	require.NoError(t, doc.SaveToFile(path))

	text, err := readDocxText(path)
	require.NoError(t, err)
	assert.Contains(t, text, "Hello converted")
	assert.Contains(t, text, "world")
}

func TestAssembler_EmptyPages(t *testing.T) {
	assembler := NewAssembler(DefaultTemplate(), nil, 1.0, true)
	doc, err := assembler.Build(nil)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "empty.docx")
	assert.NoError(t, doc.SaveToFile(path))
}

func TestAssembler_PlacesImages(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	page := testPage(frag("caption", 72, 90, 120, 102))
	page.Content.Images = []PageImage{
		{
			Name:   "image_1_0.png",
			Data:   buf.Bytes(),
			Box:    Rect{X0: 100, Y0: 200, X1: 300, Y1: 400},
			Width:  4,
			Height: 4,
		},
	}

	assembler := NewAssembler(DefaultTemplate(), nil, 1.0, true)
	doc, err := assembler.Build([]ConvertedPage{page})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "image.docx")
	assert.NoError(t, doc.SaveToFile(path))
}

func TestAssembler_FitImage(t *testing.T) {
	assembler := NewAssembler(DefaultTemplate(), nil, 1.0, true)
	assembler.pageWidthPt = 612  // 8.5in
	assembler.pageHeightPt = 792 // 11in

	// Small image keeps its natural size (72 dpi): 144px = 2in.
	w, h := assembler.fitImage(PageImage{Width: 144, Height: 144})
	assert.InDelta(t, 2.0, w, 0.001)
	assert.InDelta(t, 2.0, h, 0.001)

	// Oversized image scales down to the 6.5in printable width,
	// preserving aspect ratio.
	w, h = assembler.fitImage(PageImage{Width: 1440, Height: 720})
	assert.InDelta(t, 6.5, w, 0.001)
	assert.InDelta(t, 3.25, h, 0.001)

	// Degenerate dimensions fall back to a 1in square.
	w, h = assembler.fitImage(PageImage{})
	assert.Equal(t, 1.0, w)
	assert.Equal(t, 1.0, h)
}
