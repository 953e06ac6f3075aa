package pdfdocx

import (
	"regexp"
	"sort"
	"strings"

	"github.com/klippa-app/go-pdfium/requests"
	"github.com/nguyenthenguyen/docx"
	"github.com/pkg/errors"
)

// ComparisonReport summarizes how much of the PDF's text survived into a
// produced DOCX. It is a reporting convenience; it never mutates either file.
type ComparisonReport struct {
	PDFWordCount   int
	DOCXWordCount  int
	CommonWords    int
	Similarity     float64 // 2*common/(pdf+docx), 1.0 = identical word content
	MissingSamples []string
}

// maxMissingSamples caps the missing-word list in a report.
const maxMissingSamples = 20

// ExtractText extracts and reflows the text of the selected pages, one page
// per block, without producing a DOCX.
func (c *Converter) ExtractText(pdfPath string) (string, error) {
	doc, err := c.openDocument(&requests.OpenDocument{
		FilePath: &pdfPath,
	})
	if err != nil {
		return "", err
	}
	defer c.instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{
		Document: doc,
	})

	pageCount, err := c.instance.FPDF_GetPageCount(&requests.FPDF_GetPageCount{
		Document: doc,
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to get page count")
	}

	indices, err := resolvePageIndices(pageCount.PageCount, c.opts)
	if err != nil {
		return "", err
	}

	threshold := gapThreshold(c.opts.Reflow)
	var blocks []string
	for _, idx := range indices {
		content, err := c.extractPage(doc, idx)
		if err != nil {
			continue
		}
		reflowed := ReflowPage(content.Fragments, c.opts.Reflow)
		blocks = append(blocks, reflowed.Text(threshold))
	}

	return strings.Join(blocks, "\n\n"), nil
}

// CompareFiles compares the text content of a source PDF and a DOCX,
// typically the converter's own output.
func (c *Converter) CompareFiles(pdfPath, docxPath string) (*ComparisonReport, error) {
	pdfText, err := c.ExtractText(pdfPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to extract PDF text")
	}

	docxText, err := readDocxText(docxPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to extract DOCX text")
	}

	return compareTexts(pdfText, docxText), nil
}

// readDocxText extracts plain text from a DOCX file.
func readDocxText(path string) (string, error) {
	doc, err := docx.ReadDocxFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to open %s", path)
	}
	defer doc.Close()

	// GetContent returns raw OOXML; strip the markup down to text.
	content := doc.Editable().GetContent()
	return stripXMLTags(content), nil
}

var xmlTag = regexp.MustCompile(`<[^>]*>`)

func stripXMLTags(content string) string {
	text := xmlTag.ReplaceAllString(content, " ")
	text = strings.ReplaceAll(text, "&amp;", "&")
	text = strings.ReplaceAll(text, "&lt;", "<")
	text = strings.ReplaceAll(text, "&gt;", ">")
	text = strings.ReplaceAll(text, "&quot;", `"`)
	text = strings.ReplaceAll(text, "&apos;", "'")
	return strings.Join(strings.Fields(text), " ")
}

// compareTexts computes a word-level similarity ratio between two texts.
func compareTexts(pdfText, docxText string) *ComparisonReport {
	pdfWords := tokenizeWords(pdfText)
	docxWords := tokenizeWords(docxText)

	docxCounts := make(map[string]int, len(docxWords))
	for _, word := range docxWords {
		docxCounts[word]++
	}

	var common int
	missing := make(map[string]bool)
	for _, word := range pdfWords {
		if docxCounts[word] > 0 {
			docxCounts[word]--
			common++
		} else {
			missing[word] = true
		}
	}

	report := &ComparisonReport{
		PDFWordCount:  len(pdfWords),
		DOCXWordCount: len(docxWords),
		CommonWords:   common,
	}

	if total := len(pdfWords) + len(docxWords); total > 0 {
		report.Similarity = 2 * float64(common) / float64(total)
	} else {
		report.Similarity = 1.0 // both empty
	}

	samples := make([]string, 0, len(missing))
	for word := range missing {
		samples = append(samples, word)
	}
	sort.Strings(samples)
	if len(samples) > maxMissingSamples {
		samples = samples[:maxMissingSamples]
	}
	report.MissingSamples = samples

	return report
}

// tokenizeWords lowercases and splits text into comparison tokens, dropping
// punctuation at token edges.
func tokenizeWords(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	words := make([]string, 0, len(fields))
	for _, field := range fields {
		word := strings.Trim(field, `.,;:!?()[]{}"'`)
		if word != "" {
			words = append(words, word)
		}
	}
	return words
}
