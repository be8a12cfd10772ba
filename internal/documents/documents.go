// Package documents turns uploaded file bytes into plain text for the pair
// extractor.
package documents

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsupported is returned when a file cannot yield any text.
var ErrUnsupported = errors.New("unsupported document")

// Format identifies how a file is read. Its value is the file_type stored
// with every record.
type Format string

const (
	FormatText     Format = "txt"
	FormatMarkdown Format = "md"
	FormatCSV      Format = "csv"
	FormatDOCX     Format = "docx"
	FormatPDF      Format = "pdf"
	FormatJSON     Format = "json"
)

var extFormats = map[string]Format{
	".txt":      FormatText,
	".text":     FormatText,
	".log":      FormatText,
	".md":       FormatMarkdown,
	".markdown": FormatMarkdown,
	".csv":      FormatCSV,
	".tsv":      FormatCSV,
	".docx":     FormatDOCX,
	".pdf":      FormatPDF,
	".json":     FormatJSON,
}

// Detect picks the format of a file. Magic bytes win over the extension;
// unknown extensions are read as text.
func Detect(filename string, data []byte) (Format, error) {
	switch {
	case isPDF(data):
		return FormatPDF, nil
	case isZip(data):
		if hasZipEntry(data, "word/document.xml") {
			return FormatDOCX, nil
		}
		return "", fmt.Errorf("%w: zip archive %s is not a docx file", ErrUnsupported, filename)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	f, ok := extFormats[ext]
	if !ok {
		return FormatText, nil
	}
	switch f {
	case FormatPDF:
		return "", fmt.Errorf("%w: %s claims pdf but has no %%PDF header", ErrUnsupported, filename)
	case FormatDOCX:
		return "", fmt.Errorf("%w: %s claims docx but is not a zip container", ErrUnsupported, filename)
	}
	return f, nil
}

// Text returns the plain text of data read as format. JSON is returned
// decoded but otherwise untouched; callers parse it themselves.
func Text(format Format, data []byte) (string, error) {
	switch format {
	case FormatText, FormatMarkdown, FormatJSON:
		return Decode(data), nil
	case FormatCSV:
		return CSVText(Decode(data)), nil
	case FormatDOCX:
		return docxText(data)
	case FormatPDF:
		return pdfText(data)
	default:
		return "", fmt.Errorf("%w: format %q", ErrUnsupported, format)
	}
}

// Read detects the format of a named file and returns its text.
func Read(filename string, data []byte) (Format, string, error) {
	f, err := Detect(filename, data)
	if err != nil {
		return "", "", err
	}
	text, err := Text(f, data)
	if err != nil {
		return f, "", err
	}
	return f, text, nil
}

func isPDF(b []byte) bool {
	return bytes.HasPrefix(b, []byte("%PDF-"))
}

func isZip(b []byte) bool {
	return bytes.HasPrefix(b, []byte("PK\x03\x04"))
}

func hasZipEntry(data []byte, name string) bool {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return false
	}
	for _, f := range zr.File {
		if f.Name == name {
			return true
		}
	}
	return false
}
