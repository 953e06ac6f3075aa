package pdfdocx

import (
	"math"
	"unicode"

	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/references"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/pkg/errors"
)

// pageChar is a single character as reported by pdfium, before grouping.
type pageChar struct {
	Text     rune
	Box      Rect
	FontName string
	FontSize float64
}

// ExtractPage extracts text fragments and embedded images from a PDF page.
// Coordinates are converted to a top-left origin with y increasing down the
// page; the reflow reconstructor depends on that orientation.
func ExtractPage(instance pdfium.Pdfium, page references.FPDF_PAGE, pageNumber int) (*PageContent, error) {
	pageWidth, err := instance.FPDF_GetPageWidthF(&requests.FPDF_GetPageWidthF{
		Page: requests.Page{
			ByReference: &page,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get page width")
	}

	pageHeight, err := instance.FPDF_GetPageHeightF(&requests.FPDF_GetPageHeightF{
		Page: requests.Page{
			ByReference: &page,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get page height")
	}

	content := &PageContent{
		Number: pageNumber,
		Width:  float64(pageWidth.PageWidth),
		Height: float64(pageHeight.PageHeight),
	}

	// Load text page
	textPage, err := instance.FPDFText_LoadPage(&requests.FPDFText_LoadPage{
		Page: requests.Page{
			ByReference: &page,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to load text page")
	}
	defer instance.FPDFText_ClosePage(&requests.FPDFText_ClosePage{
		TextPage: textPage.TextPage,
	})

	charCount, err := instance.FPDFText_CountChars(&requests.FPDFText_CountChars{
		TextPage: textPage.TextPage,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to count characters")
	}

	if charCount.Count > 0 {
		chars, err := extractChars(instance, textPage.TextPage, charCount.Count, content.Height)
		if err != nil {
			return nil, errors.Wrap(err, "failed to extract characters")
		}
		content.Fragments = groupCharsIntoFragments(chars)
	}

	// Embedded images are extracted best-effort; a page without readable
	// image objects still converts with its text.
	images, err := extractPageImages(instance, page, pageNumber, content.Height)
	if err == nil {
		content.Images = images
	}

	return content, nil
}

// extractChars extracts all characters with their box and font metadata.
func extractChars(instance pdfium.Pdfium, textPage references.FPDF_TEXTPAGE, count int, pageHeight float64) ([]pageChar, error) {
	chars := make([]pageChar, 0, count)

	for i := range count {
		unicodeRes, err := instance.FPDFText_GetUnicode(&requests.FPDFText_GetUnicode{
			TextPage: textPage,
			Index:    i,
		})
		if err != nil || unicodeRes.Unicode == 0 {
			continue
		}

		charBox, err := instance.FPDFText_GetCharBox(&requests.FPDFText_GetCharBox{
			TextPage: textPage,
			Index:    i,
		})
		if err != nil {
			continue
		}

		// Convert PDF coordinates (origin bottom-left) to top-left origin
		box := Rect{
			X0: charBox.Left,
			Y0: pageHeight - charBox.Top,
			X1: charBox.Right,
			Y1: pageHeight - charBox.Bottom,
		}

		fontSize, err := instance.FPDFText_GetFontSize(&requests.FPDFText_GetFontSize{
			TextPage: textPage,
			Index:    i,
		})
		fontSizeVal := 12.0 // Default
		if err == nil {
			fontSizeVal = fontSize.FontSize
		}

		fontInfo, err := instance.FPDFText_GetFontInfo(&requests.FPDFText_GetFontInfo{
			TextPage: textPage,
			Index:    i,
		})
		fontNameVal := ""
		if err == nil {
			fontNameVal = fontInfo.FontName
		}

		chars = append(chars, pageChar{
			Text:     rune(unicodeRes.Unicode),
			Box:      box,
			FontName: fontNameVal,
			FontSize: fontSizeVal,
		})
	}

	return chars, nil
}

// groupCharsIntoFragments groups characters into text fragments. A fragment
// ends at explicit whitespace, at a font name or size change, or at a
// horizontal gap large enough to indicate a dropped space or a column jump.
func groupCharsIntoFragments(chars []pageChar) []TextFragment {
	if len(chars) == 0 {
		return nil
	}

	var fragments []TextFragment
	var current []rune
	var box Rect
	var fontName string
	var fontSize float64

	flush := func() {
		if len(current) == 0 {
			return
		}
		fragments = append(fragments, TextFragment{
			Text:     string(current),
			Box:      box,
			FontName: fontName,
			FontSize: fontSize,
		})
		current = nil
	}

	for i, char := range chars {
		if unicode.IsSpace(char.Text) {
			flush()
			continue
		}

		if len(current) > 0 {
			prev := chars[i-1]
			gap := char.Box.X0 - prev.Box.X1
			sameLine := math.Abs(char.Box.Y1-prev.Box.Y1) < prev.Box.Height()
			fontChanged := char.FontName != fontName || char.FontSize != fontSize
			bigGap := sameLine && gap > fragmentGapLimit(fontSize)

			if fontChanged || bigGap || !sameLine {
				flush()
			}
		}

		if len(current) == 0 {
			box = char.Box
			fontName = char.FontName
			fontSize = char.FontSize
		} else {
			box.X0 = math.Min(box.X0, char.Box.X0)
			box.Y0 = math.Min(box.Y0, char.Box.Y0)
			box.X1 = math.Max(box.X1, char.Box.X1)
			box.Y1 = math.Max(box.Y1, char.Box.Y1)
		}
		current = append(current, char.Text)
	}
	flush()

	return fragments
}

// fragmentGapLimit is the intra-fragment gap limit for a given font size.
// Kerning gaps sit well below it; dropped inter-word spaces sit above.
func fragmentGapLimit(fontSize float64) float64 {
	if fontSize <= 0 {
		fontSize = 12.0
	}
	return math.Max(1.0, fontSize*0.25)
}
