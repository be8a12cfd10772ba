package documents

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// pdfText extracts the plain text layer of a PDF. Files without one, and
// files the reader cannot parse, are reported as ErrUnsupported.
func pdfText(data []byte) (text string, err error) {
	// The reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: pdf: %v", ErrUnsupported, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: pdf reader: %v", ErrUnsupported, err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: pdf plaintext: %v", ErrUnsupported, err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("%w: pdf read: %v", ErrUnsupported, err)
	}
	text = strings.TrimSpace(string(b))
	if text == "" {
		return "", fmt.Errorf("%w: pdf has no text layer", ErrUnsupported)
	}
	return text, nil
}
