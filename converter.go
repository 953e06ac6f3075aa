package pdfdocx

import (
	"fmt"
	"io"
	"log"
	"time"

	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/references"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/pkg/errors"
)

// Options configures a conversion run. It is passed by value and never
// mutated by the converter.
type Options struct {
	// Password decrypts protected PDFs. Empty for unencrypted documents.
	Password string

	// StartPage and EndPage select an inclusive 0-indexed range. Negative
	// values mean "first" and "last" respectively.
	StartPage int
	EndPage   int

	// Pages selects explicit 0-indexed pages and takes precedence over the
	// range. Out-of-bounds entries are dropped.
	Pages []int

	// TemplatePath points at a YAML output template (page size, margins,
	// orientation, default font, font files).
	TemplatePath string

	// FontPaths registers custom font files in addition to the template's.
	FontPaths []string

	// IncludePageBreaks inserts a page break between source pages (default: true).
	IncludePageBreaks bool

	// Reflow configures reading-order reconstruction.
	Reflow ReflowConfig

	// EnableMetricsLogging enables processing time and statistics logging (default: false).
	EnableMetricsLogging bool
}

// DefaultOptions returns the default conversion options.
func DefaultOptions() Options {
	return Options{
		StartPage:         -1,
		EndPage:           -1,
		IncludePageBreaks: true,
		Reflow:            DefaultReflowConfig(),
	}
}

// PageError records a page that failed to convert. Failures are local to a
// page; the rest of the document still converts.
type PageError struct {
	Page int // 1-based
	Err  error
}

func (e PageError) Error() string {
	return fmt.Sprintf("page %d: %v", e.Page, e.Err)
}

// ConversionStats summarizes a conversion run.
type ConversionStats struct {
	PagesProcessed     int
	PagesFailed        int
	FragmentsExtracted int
	ImagesExtracted    int
	LinesReconstructed int
	SpacesInserted     int
}

// PageMetrics contains timing for a single page.
type PageMetrics struct {
	PageNumber int
	Duration   time.Duration
}

// Result describes a completed (possibly partial) conversion.
type Result struct {
	OutputPath  string
	Stats       ConversionStats
	PageErrors  []PageError
	Warnings    []string
	TotalTime   time.Duration
	PageTimings []PageMetrics
}

// Converter converts PDFs to DOCX using pdfium text extraction and the
// reflow reconstructor.
type Converter struct {
	instance pdfium.Pdfium
	opts     Options
}

// NewConverter creates a converter with default options.
func NewConverter(instance pdfium.Pdfium) *Converter {
	return &Converter{
		instance: instance,
		opts:     DefaultOptions(),
	}
}

// NewConverterWithOptions creates a converter with custom options.
func NewConverterWithOptions(instance pdfium.Pdfium, opts Options) *Converter {
	return &Converter{
		instance: instance,
		opts:     opts,
	}
}

// ConvertFile converts a PDF file to a DOCX file.
func (c *Converter) ConvertFile(pdfPath, outputPath string) (*Result, error) {
	doc, err := c.openDocument(&requests.OpenDocument{
		FilePath: &pdfPath,
	})
	if err != nil {
		return nil, err
	}
	defer c.instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{
		Document: doc,
	})

	return c.convertDocument(doc, outputPath)
}

// ConvertBytes converts PDF bytes to a DOCX file.
func (c *Converter) ConvertBytes(pdfBytes []byte, outputPath string) (*Result, error) {
	doc, err := c.openDocument(&requests.OpenDocument{
		File: &pdfBytes,
	})
	if err != nil {
		return nil, err
	}
	defer c.instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{
		Document: doc,
	})

	return c.convertDocument(doc, outputPath)
}

// ConvertReader converts a PDF from an io.ReadSeeker to a DOCX file.
func (c *Converter) ConvertReader(reader io.ReadSeeker, outputPath string) (*Result, error) {
	doc, err := c.openDocument(&requests.OpenDocument{
		FileReader: reader,
	})
	if err != nil {
		return nil, err
	}
	defer c.instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{
		Document: doc,
	})

	return c.convertDocument(doc, outputPath)
}

// openDocument opens a PDF, passing the configured password through.
func (c *Converter) openDocument(req *requests.OpenDocument) (references.FPDF_DOCUMENT, error) {
	if c.opts.Password != "" {
		req.Password = &c.opts.Password
	}

	doc, err := c.instance.OpenDocument(req)
	if err != nil {
		return "", errors.Wrap(err, "failed to open PDF document")
	}
	return doc.Document, nil
}

// convertDocument runs extraction, reflow, and assembly for the selected
// pages and writes the DOCX.
func (c *Converter) convertDocument(docRef references.FPDF_DOCUMENT, outputPath string) (*Result, error) {
	startTime := time.Now()

	pageCount, err := c.instance.FPDF_GetPageCount(&requests.FPDF_GetPageCount{
		Document: docRef,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get page count")
	}

	indices, err := resolvePageIndices(pageCount.PageCount, c.opts)
	if err != nil {
		return nil, err
	}

	template := DefaultTemplate()
	if c.opts.TemplatePath != "" {
		template, err = LoadTemplate(c.opts.TemplatePath)
		if err != nil {
			return nil, err
		}
	}
	fonts := RegisterFonts(append(append([]string{}, template.Fonts...), c.opts.FontPaths...))

	result := &Result{OutputPath: outputPath}
	pages := make([]ConvertedPage, 0, len(indices))

	for _, idx := range indices {
		pageStart := time.Now()
		content, err := c.extractPage(docRef, idx)
		if err != nil {
			// A bad page must not abort the rest of the document.
			result.PageErrors = append(result.PageErrors, PageError{Page: idx + 1, Err: err})
			result.Stats.PagesFailed++
			log.Printf("page %d failed, continuing: %v", idx+1, err)
			continue
		}

		reflowed := ReflowPage(content.Fragments, c.opts.Reflow)
		for _, warning := range reflowed.Warnings {
			result.Warnings = append(result.Warnings, fmt.Sprintf("page %d: %s", idx+1, warning))
		}

		pages = append(pages, ConvertedPage{Content: *content, Reflowed: reflowed})

		result.Stats.PagesProcessed++
		result.Stats.FragmentsExtracted += len(content.Fragments)
		result.Stats.ImagesExtracted += len(content.Images)
		result.Stats.LinesReconstructed += len(reflowed.Lines)
		result.Stats.SpacesInserted += countInsertedSpaces(reflowed, gapThreshold(c.opts.Reflow))

		duration := time.Since(pageStart)
		result.PageTimings = append(result.PageTimings, PageMetrics{
			PageNumber: idx + 1,
			Duration:   duration,
		})
		if c.opts.EnableMetricsLogging {
			log.Printf("Page %d/%d extracted in %v", idx+1, pageCount.PageCount, duration)
		}
	}

	if len(pages) == 0 && len(result.PageErrors) > 0 {
		return result, errors.New("all selected pages failed to convert")
	}

	assembler := NewAssembler(template, fonts, gapThreshold(c.opts.Reflow), c.opts.IncludePageBreaks)
	doc, err := assembler.Build(pages)
	if err != nil {
		return result, errors.Wrap(err, "failed to assemble document")
	}

	if err := doc.SaveToFile(outputPath); err != nil {
		return result, errors.Wrapf(err, "failed to save %s", outputPath)
	}

	result.TotalTime = time.Since(startTime)

	if c.opts.EnableMetricsLogging {
		logConversionMetrics(result)
	}

	return result, nil
}

// extractPage loads a single page and extracts its content.
func (c *Converter) extractPage(docRef references.FPDF_DOCUMENT, pageIndex int) (*PageContent, error) {
	pageResp, err := c.instance.FPDF_LoadPage(&requests.FPDF_LoadPage{
		Document: docRef,
		Index:    pageIndex,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to load page")
	}
	defer c.instance.FPDF_ClosePage(&requests.FPDF_ClosePage{
		Page: pageResp.Page,
	})

	content, err := ExtractPage(c.instance, pageResp.Page, pageIndex+1)
	if err != nil {
		return nil, errors.Wrap(err, "failed to extract page content")
	}

	return content, nil
}

// resolvePageIndices turns the options' page selection into a validated list
// of 0-indexed pages. An explicit page list wins over the range.
func resolvePageIndices(totalPages int, opts Options) ([]int, error) {
	if len(opts.Pages) > 0 {
		indices := make([]int, 0, len(opts.Pages))
		for _, page := range opts.Pages {
			if page >= 0 && page < totalPages {
				indices = append(indices, page)
			}
		}
		if len(indices) == 0 {
			return nil, errors.New("no requested page exists in the document")
		}
		return indices, nil
	}

	start := opts.StartPage
	if start < 0 {
		start = 0
	}
	end := opts.EndPage
	if end < 0 || end >= totalPages {
		end = totalPages - 1
	}
	if start > end {
		return nil, errors.New("invalid page range: start page must be <= end page")
	}

	indices := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		indices = append(indices, i)
	}
	return indices, nil
}

// gapThreshold resolves the configured space-gap threshold.
func gapThreshold(cfg ReflowConfig) float64 {
	if cfg.SpaceGapThreshold <= 0 {
		return DefaultReflowConfig().SpaceGapThreshold
	}
	return cfg.SpaceGapThreshold
}

// countInsertedSpaces counts the spaces the reflow heuristic restores on a
// page, mirroring the spacing-fix counter in the conversion stats.
func countInsertedSpaces(page ReflowedPage, threshold float64) int {
	var count int
	for _, line := range page.Lines {
		for i := 1; i < len(line.Fragments); i++ {
			if needsSpace(line.Fragments[i-1], line.Fragments[i], threshold) {
				count++
			}
		}
	}
	return count
}

// logConversionMetrics logs the processing metrics in a readable format
func logConversionMetrics(result *Result) {
	log.Println("┌─────────────────────────────────────────────┐")
	log.Println("│ PDF Conversion Metrics                      │")
	log.Println("├─────────────────────────────────────────────┤")
	log.Printf("│ Total Time: %-31v │\n", result.TotalTime.Round(time.Millisecond))
	log.Println("├─────────────────────────────────────────────┤")
	log.Printf("│   Pages:      %-29d │\n", result.Stats.PagesProcessed)
	log.Printf("│   Failed:     %-29d │\n", result.Stats.PagesFailed)
	log.Printf("│   Fragments:  %-29d │\n", result.Stats.FragmentsExtracted)
	log.Printf("│   Lines:      %-29d │\n", result.Stats.LinesReconstructed)
	log.Printf("│   Images:     %-29d │\n", result.Stats.ImagesExtracted)
	log.Printf("│   Spaces:     %-29d │\n", result.Stats.SpacesInserted)
	log.Println("├─────────────────────────────────────────────┤")

	for _, pm := range result.PageTimings {
		log.Printf("│   Page %2d: %-30v │\n", pm.PageNumber, pm.Duration.Round(time.Millisecond))
	}

	log.Println("└─────────────────────────────────────────────┘")
}

// GetDocumentInfo returns basic information about a PDF without converting it.
func (c *Converter) GetDocumentInfo(pdfPath string) (*DocumentInfo, error) {
	doc, err := c.openDocument(&requests.OpenDocument{
		FilePath: &pdfPath,
	})
	if err != nil {
		return nil, err
	}
	defer c.instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{
		Document: doc,
	})

	pageCount, err := c.instance.FPDF_GetPageCount(&requests.FPDF_GetPageCount{
		Document: doc,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get page count")
	}

	return &DocumentInfo{
		PageCount: pageCount.PageCount,
	}, nil
}

// DocumentInfo contains basic information about a PDF document.
type DocumentInfo struct {
	PageCount int
}
