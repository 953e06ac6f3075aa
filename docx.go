package pdfdocx

import (
	"math"

	"github.com/pkg/errors"
	"github.com/unidoc/unioffice/common"
	"github.com/unidoc/unioffice/document"
	"github.com/unidoc/unioffice/measurement"
	"github.com/unidoc/unioffice/schema/soo/wml"
)

// ConvertedPage pairs a page's extracted content with its reflowed text.
type ConvertedPage struct {
	Content  PageContent
	Reflowed ReflowedPage
}

// Assembler builds DOCX documents from converted pages. It owns all
// document-format serialization; the reflow layer never touches DOCX.
type Assembler struct {
	template          Template
	fonts             []CustomFont
	gapThreshold      float64
	includePageBreaks bool

	// resolved page size in points, set by applyPageSetup
	pageWidthPt  float64
	pageHeightPt float64
}

// NewAssembler creates an assembler for the given template and font set.
func NewAssembler(template Template, fonts []CustomFont, gapThreshold float64, includePageBreaks bool) *Assembler {
	return &Assembler{
		template:          template,
		fonts:             fonts,
		gapThreshold:      gapThreshold,
		includePageBreaks: includePageBreaks,
	}
}

// Build assembles the DOCX document from the converted pages.
func (a *Assembler) Build(pages []ConvertedPage) (*document.Document, error) {
	doc := document.New()

	a.applyPageSetup(doc, pages)

	for i, page := range pages {
		if i > 0 && a.includePageBreaks {
			doc.AddParagraph().AddRun().AddPageBreak()
		}

		for _, line := range page.Reflowed.Lines {
			a.addLine(doc, line)
		}

		for _, img := range page.Content.Images {
			if err := a.addImage(doc, img); err != nil {
				return nil, errors.Wrapf(err, "failed to place %s", img.Name)
			}
		}
	}

	return doc, nil
}

// applyPageSetup sets page size, orientation, and margins from the template,
// falling back to the first PDF page's dimensions.
func (a *Assembler) applyPageSetup(doc *document.Document, pages []ConvertedPage) {
	widthPt := a.template.PageWidth
	heightPt := a.template.PageHeight
	if (widthPt <= 0 || heightPt <= 0) && len(pages) > 0 {
		widthPt = pages[0].Content.Width
		heightPt = pages[0].Content.Height
	}
	if widthPt <= 0 || heightPt <= 0 {
		// US Letter
		widthPt, heightPt = 612, 792
	}
	a.pageWidthPt = widthPt
	a.pageHeightPt = heightPt

	orientation := wml.ST_PageOrientationPortrait
	switch a.template.Orientation {
	case "landscape":
		orientation = wml.ST_PageOrientationLandscape
	case "portrait":
		orientation = wml.ST_PageOrientationPortrait
	default:
		if widthPt > heightPt {
			orientation = wml.ST_PageOrientationLandscape
		}
	}

	section := doc.BodySection()
	section.SetPageSizeAndOrientation(
		measurement.Distance(widthPt)*measurement.Point,
		measurement.Distance(heightPt)*measurement.Point,
		orientation,
	)
	section.SetPageMargins(
		measurement.Distance(a.template.MarginTop)*measurement.Inch,
		measurement.Distance(a.template.MarginRight)*measurement.Inch,
		measurement.Distance(a.template.MarginBottom)*measurement.Inch,
		measurement.Distance(a.template.MarginLeft)*measurement.Inch,
		0.5*measurement.Inch, // header
		0.5*measurement.Inch, // footer
		0,                    // gutter
	)
}

// addLine emits one reconstructed line as a paragraph, one run per fragment
// so each keeps its own font. Inserted spaces ride on the following run.
func (a *Assembler) addLine(doc *document.Document, line Line) {
	para := doc.AddParagraph()
	para.Properties().Spacing().SetAfter(6 * measurement.Point)

	for i, frag := range line.Fragments {
		text := frag.Text
		if i > 0 && needsSpace(line.Fragments[i-1], frag, a.gapThreshold) {
			text = " " + text
		}

		run := para.AddRun()
		run.AddText(text)
		a.applyRunFont(run, frag)
	}
}

// applyRunFont maps the fragment's extracted font onto the run.
func (a *Assembler) applyRunFont(run document.Run, frag TextFragment) {
	name := cleanFontName(frag.FontName, a.template.DefaultFont)
	if custom, ok := matchCustomFont(frag.FontName, a.fonts); ok {
		name = custom.Name
	}

	props := run.Properties()
	props.SetFontFamily(name)

	size := frag.FontSize
	if size <= 0 {
		size = 12
	}
	props.SetSize(measurement.Distance(clamp(size, 8, 72)) * measurement.Point)
}

// addImage places an extracted image on its own centered paragraph, scaled
// to fit within the margins. Images are never upscaled.
func (a *Assembler) addImage(doc *document.Document, img PageImage) error {
	image, err := common.ImageFromBytes(img.Data)
	if err != nil {
		return errors.Wrap(err, "failed to load image data")
	}

	ref, err := doc.AddImage(image)
	if err != nil {
		return errors.Wrap(err, "failed to register image")
	}

	widthIn, heightIn := a.fitImage(img)

	para := doc.AddParagraph()
	para.Properties().SetAlignment(wml.ST_JcCenter)

	inline, err := para.AddRun().AddDrawingInline(ref)
	if err != nil {
		return errors.Wrap(err, "failed to place inline image")
	}
	inline.SetSize(
		measurement.Distance(widthIn)*measurement.Inch,
		measurement.Distance(heightIn)*measurement.Inch,
	)

	return nil
}

// fitImage scales pixel dimensions (assumed 72dpi) into the printable area.
func (a *Assembler) fitImage(img PageImage) (widthIn, heightIn float64) {
	widthIn = float64(img.Width) / 72
	heightIn = float64(img.Height) / 72
	if widthIn <= 0 || heightIn <= 0 {
		return 1, 1
	}

	pageWidthIn := a.pageWidthPt / 72
	pageHeightIn := a.pageHeightPt / 72
	if pageWidthIn <= 0 {
		pageWidthIn = 8.5
	}
	if pageHeightIn <= 0 {
		pageHeightIn = 11
	}

	maxWidth := pageWidthIn - a.template.MarginLeft - a.template.MarginRight
	maxHeight := pageHeightIn - a.template.MarginTop - a.template.MarginBottom
	if maxWidth <= 0 || maxHeight <= 0 {
		return widthIn, heightIn
	}

	scale := clamp(math.Min(maxWidth/widthIn, maxHeight/heightIn), 0, 1)
	if scale == 0 {
		scale = 1
	}
	return widthIn * scale, heightIn * scale
}
