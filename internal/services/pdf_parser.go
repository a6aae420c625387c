package services

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

var errNoPDFText = errors.New("no text content found in PDF")

type PDFParserService interface {
	ExtractText(filePath string) (*PDFContent, error)
}

type PDFContent struct {
	Text         string
	PageCount    int
	SkippedPages int
	FilePath     string
}

type pdfParserService struct{}

func NewPDFParserService() PDFParserService {
	return &pdfParserService{}
}

// ExtractText implements PDFParserService. Pages that fail to decode are
// skipped and counted.
func (p *pdfParserService) ExtractText(filePath string) (*PDFContent, error) {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("file does not exist: %s", filePath)
	}

	f, r, err := pdf.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	var textBuilder strings.Builder
	totalPage := r.NumPage()
	skipped := 0

	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			skipped++
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			skipped++
			continue
		}

		textBuilder.WriteString(text)
		textBuilder.WriteString("\n\n")
	}

	text := CleanText(textBuilder.String())
	if text == "" {
		return nil, errNoPDFText
	}

	return &PDFContent{
		Text:         text,
		PageCount:    totalPage,
		SkippedPages: skipped,
		FilePath:     filePath,
	}, nil
}

// CleanText trims every line and collapses runs of blank lines into one
// paragraph break.
func CleanText(text string) string {
	var paragraphs []string
	var current []string

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			if len(current) > 0 {
				paragraphs = append(paragraphs, strings.Join(current, "\n"))
				current = nil
			}
			continue
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		paragraphs = append(paragraphs, strings.Join(current, "\n"))
	}

	return strings.Join(paragraphs, "\n\n")
}
