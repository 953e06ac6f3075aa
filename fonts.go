package pdfdocx

import (
	"path/filepath"
	"regexp"
	"strings"
)

// CustomFont is a user-supplied font file. Its name (the file stem) overrides
// extracted font names that match it.
type CustomFont struct {
	Name string
	Path string
}

// RegisterFonts builds the custom font set from a list of font file paths.
func RegisterFonts(paths []string) []CustomFont {
	fonts := make([]CustomFont, 0, len(paths))
	for _, path := range paths {
		if path == "" {
			continue
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		fonts = append(fonts, CustomFont{Name: name, Path: path})
	}
	return fonts
}

// matchCustomFont finds a registered font whose name contains the extracted
// font name (or vice versa), case-insensitively.
func matchCustomFont(fontName string, fonts []CustomFont) (CustomFont, bool) {
	needle := strings.ToLower(fontName)
	if needle == "" {
		return CustomFont{}, false
	}
	for _, font := range fonts {
		candidate := strings.ToLower(font.Name)
		if strings.Contains(candidate, needle) || strings.Contains(needle, candidate) {
			return font, true
		}
	}
	return CustomFont{}, false
}

// subsetPrefix matches the random prefix PDF producers prepend to embedded
// subset fonts, e.g. "ABCDEF+Helvetica".
var subsetPrefix = regexp.MustCompile(`^[A-Z]+\+`)

// fontVariant matches style variant suffixes, e.g. "Arial-BoldMT" or
// "Times,Italic".
var fontVariant = regexp.MustCompile(`[,\-].*$`)

// coreFontMap maps the PDF core font families to their Word equivalents.
var coreFontMap = map[string]string{
	"times":        "Times New Roman",
	"helvetica":    "Arial",
	"courier":      "Courier New",
	"symbol":       "Symbol",
	"zapfdingbats": "Wingdings",
}

// cleanFontName normalizes an extracted PDF font name to something Word can
// resolve: the subset prefix and variant suffix are stripped, core PDF fonts
// map to their Word counterparts, and unknown names fall through unchanged.
func cleanFontName(fontName, fallback string) string {
	if fontName == "" || fontName == "Unknown" {
		return fallback
	}

	name := subsetPrefix.ReplaceAllString(fontName, "")
	name = fontVariant.ReplaceAllString(name, "")

	lower := strings.ToLower(name)
	for pdfFont, wordFont := range coreFontMap {
		if strings.Contains(lower, pdfFont) {
			return wordFont
		}
	}

	if name == "" {
		return fallback
	}
	return name
}
