package services

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFService extracts plain text from uploaded resume files
type PDFService struct{}

func NewPDFService() *PDFService {
	return &PDFService{}
}

// ExtractResumeText reads the stored resume file and returns its text,
// dispatching on extension
func (p *PDFService) ExtractResumeText(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return p.extractPDF(path)
	case ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read text file: %w", err)
		}
		return cleanText(string(data)), nil
	default:
		return "", ErrInvalidRequest("unsupported resume format")
	}
}

func (p *PDFService) extractPDF(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	content, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract pdf text: %w", err)
	}
	if _, err := buf.ReadFrom(content); err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}

	return cleanText(buf.String()), nil
}

// cleanText collapses whitespace runs left behind by PDF extraction
func cleanText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
