package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/webassembly"
	"github.com/urfave/cli/v3"

	"github.com/docforge/pdfdocx"
)

func main() {
	cmd := &cli.Command{
		Name:  "pdfdocx",
		Usage: "Convert PDF files to DOCX",
		Commands: []*cli.Command{
			{
				Name:  "convert",
				Usage: "Convert a PDF to a DOCX document",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "input",
						Aliases:  []string{"i"},
						Usage:    "Input PDF file path",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "output",
						Aliases:  []string{"o"},
						Usage:    "Output DOCX file path",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "template",
						Usage: "YAML template file (page size, margins, fonts)",
					},
					&cli.StringSliceFlag{
						Name:  "font",
						Usage: "Custom font file (repeatable)",
					},
					&cli.StringFlag{
						Name:  "password",
						Usage: "Password for encrypted PDFs",
					},
					&cli.IntFlag{
						Name:  "start-page",
						Usage: "Start page number (0-indexed)",
						Value: -1,
					},
					&cli.IntFlag{
						Name:  "end-page",
						Usage: "End page number (0-indexed, inclusive)",
						Value: -1,
					},
					&cli.StringFlag{
						Name:  "pages",
						Usage: "Comma-separated list of 0-indexed pages, overrides the range",
					},
					&cli.BoolFlag{
						Name:  "no-page-breaks",
						Usage: "Do not insert page breaks between source pages",
					},
					&cli.BoolFlag{
						Name:    "verbose",
						Aliases: []string{"v"},
						Usage:   "Log per-page timing and statistics",
					},
				},
				Action: convertPDF,
			},
			{
				Name:  "compare",
				Usage: "Compare a PDF's text with a converted DOCX",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "pdf",
						Usage:    "Source PDF file path",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "docx",
						Usage:    "Converted DOCX file path",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "password",
						Usage: "Password for encrypted PDFs",
					},
				},
				Action: comparePDF,
			},
			{
				Name:  "info",
				Usage: "Show basic information about a PDF",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "input",
						Aliases:  []string{"i"},
						Usage:    "Input PDF file path",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "password",
						Usage: "Password for encrypted PDFs",
					},
				},
				Action: showInfo,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

// newInstance initialises a pdfium worker for the lifetime of one command.
func newInstance() (pdfium.Pdfium, func(), error) {
	pool, err := webassembly.Init(webassembly.Config{
		MinIdle:  1,
		MaxIdle:  1,
		MaxTotal: 1,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialise pdfium: %w", err)
	}

	instance, err := pool.GetInstance(time.Second * 30)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to get pdfium instance: %w", err)
	}

	return instance, func() { pool.Close() }, nil
}

func convertPDF(_ context.Context, cmd *cli.Command) error {
	instance, closePool, err := newInstance()
	if err != nil {
		return err
	}
	defer closePool()

	opts := pdfdocx.DefaultOptions()
	opts.Password = cmd.String("password")
	opts.StartPage = cmd.Int("start-page")
	opts.EndPage = cmd.Int("end-page")
	opts.TemplatePath = cmd.String("template")
	opts.FontPaths = cmd.StringSlice("font")
	opts.IncludePageBreaks = !cmd.Bool("no-page-breaks")
	opts.EnableMetricsLogging = cmd.Bool("verbose")

	if pages := cmd.String("pages"); pages != "" {
		opts.Pages, err = parsePageList(pages)
		if err != nil {
			return err
		}
	}

	converter := pdfdocx.NewConverterWithOptions(instance, opts)

	info, err := converter.GetDocumentInfo(cmd.String("input"))
	if err != nil {
		return fmt.Errorf("failed to get document info: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Processing PDF with %d pages...\n", info.PageCount)

	result, err := converter.ConvertFile(cmd.String("input"), cmd.String("output"))
	if err != nil {
		return fmt.Errorf("failed to convert PDF: %w", err)
	}

	fmt.Fprintf(os.Stderr, "DOCX written to %s\n", result.OutputPath)
	fmt.Fprintf(os.Stderr, "Pages converted: %d, fragments: %d, lines: %d, images: %d, spaces restored: %d\n",
		result.Stats.PagesProcessed, result.Stats.FragmentsExtracted,
		result.Stats.LinesReconstructed, result.Stats.ImagesExtracted,
		result.Stats.SpacesInserted)

	for _, warning := range result.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", warning)
	}
	for _, pageErr := range result.PageErrors {
		fmt.Fprintf(os.Stderr, "skipped %v\n", pageErr)
	}

	return nil
}

func comparePDF(_ context.Context, cmd *cli.Command) error {
	instance, closePool, err := newInstance()
	if err != nil {
		return err
	}
	defer closePool()

	opts := pdfdocx.DefaultOptions()
	opts.Password = cmd.String("password")
	converter := pdfdocx.NewConverterWithOptions(instance, opts)

	report, err := converter.CompareFiles(cmd.String("pdf"), cmd.String("docx"))
	if err != nil {
		return fmt.Errorf("failed to compare files: %w", err)
	}

	fmt.Printf("PDF words:   %d\n", report.PDFWordCount)
	fmt.Printf("DOCX words:  %d\n", report.DOCXWordCount)
	fmt.Printf("Common:      %d\n", report.CommonWords)
	fmt.Printf("Similarity:  %.1f%%\n", report.Similarity*100)
	if len(report.MissingSamples) > 0 {
		fmt.Printf("Missing (sample): %s\n", strings.Join(report.MissingSamples, ", "))
	}

	return nil
}

func showInfo(_ context.Context, cmd *cli.Command) error {
	instance, closePool, err := newInstance()
	if err != nil {
		return err
	}
	defer closePool()

	opts := pdfdocx.DefaultOptions()
	opts.Password = cmd.String("password")
	converter := pdfdocx.NewConverterWithOptions(instance, opts)

	info, err := converter.GetDocumentInfo(cmd.String("input"))
	if err != nil {
		return fmt.Errorf("failed to get document info: %w", err)
	}

	fmt.Printf("Pages: %d\n", info.PageCount)
	return nil
}

// parsePageList parses a comma-separated list of 0-indexed page numbers.
func parsePageList(list string) ([]int, error) {
	parts := strings.Split(list, ",")
	pages := make([]int, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		page, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid page number %q", part)
		}
		pages = append(pages, page)
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("empty page list")
	}
	return pages, nil
}
