package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"alfredoptarigan/cv-analyzer/internal/models"
)

var errNoText = errors.New("no text content found in PDF")

type TextExtractor interface {
	Extract(ctx context.Context, doc models.EncodedDocument) (models.ExtractedText, error)
}

type pdfParserService struct{}

func NewPDFParserService() TextExtractor {
	return &pdfParserService{}
}

// Extract implements TextExtractor. Every failure is an ExtractionError for doc.Role.
func (p *pdfParserService) Extract(ctx context.Context, doc models.EncodedDocument) (models.ExtractedText, error) {
	if err := ctx.Err(); err != nil {
		return models.ExtractedText{}, err
	}

	raw, err := decodeBase64(doc.Data)
	if err != nil {
		return models.ExtractedText{}, extractionError(doc.Role, fmt.Errorf("invalid base64: %w", err))
	}

	type parsed struct {
		text string
		err  error
	}

	// The parser cannot be interrupted, so it is abandoned once ctx is done.
	done := make(chan parsed, 1)
	go func() {
		text, err := extractPDFText(raw)
		done <- parsed{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return models.ExtractedText{}, ctx.Err()
	case res := <-done:
		if res.err != nil {
			return models.ExtractedText{}, extractionError(doc.Role, res.err)
		}
		return models.ExtractedText{Role: doc.Role, Text: res.text}, nil
	}
}

var base64Encodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.RawStdEncoding,
	base64.URLEncoding,
	base64.RawURLEncoding,
}

// decodeBase64 accepts padded or unpadded input in either alphabet. Whitespace such as
// line wrapping is ignored.
func decodeBase64(data string) ([]byte, error) {
	data = strings.Join(strings.Fields(data), "")

	var firstErr error
	for _, enc := range base64Encodings {
		raw, err := enc.DecodeString(data)
		if err == nil {
			return raw, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}

func extractPDFText(data []byte) (text string, err error) {
	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	var textBuilder strings.Builder
	totalPage := r.NumPage()

	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to read page %d: %w", pageIndex, err)
		}

		textBuilder.WriteString(pageText)
		textBuilder.WriteString("\n\n")
	}

	text = textBuilder.String()
	if strings.TrimSpace(text) == "" {
		return "", errNoText
	}

	return text, nil
}
