// Package extraction turns uploaded file bytes into plain text for chunking.
//
// Extraction is a collaborator boundary: the document pipeline depends on the
// Extractor interface, and format support grows by adding implementations.
// The shipped TextExtractor covers plain-text formats (.txt, .md).
package extraction

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrExtractionFailed indicates the input could not be converted to text.
var ErrExtractionFailed = errors.New("extraction failed")

// Extractor converts raw upload bytes into plain text.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// TextExtractor extracts text from plain-text documents. It strips a UTF-8
// BOM, normalizes CRLF line endings, and rejects input that is empty or not
// valid UTF-8.
type TextExtractor struct{}

var _ Extractor = (*TextExtractor)(nil)

// NewTextExtractor creates a plain-text extractor.
func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

// Extract implements Extractor.
func (e *TextExtractor) Extract(_ context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty input", ErrExtractionFailed)
	}

	data = bytes.TrimPrefix(data, utf8BOM)

	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: input is not valid UTF-8", ErrExtractionFailed)
	}

	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: no extractable text", ErrExtractionFailed)
	}

	return text, nil
}
