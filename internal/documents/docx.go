package documents

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// docxText reads word/document.xml and returns one line per paragraph.
// Table rows become "cell | cell" lines so that two-column tables read as
// pipe rows.
func docxText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: docx: %v", ErrUnsupported, err)
	}
	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", fmt.Errorf("%w: docx: missing word/document.xml", ErrUnsupported)
	}
	rc, err := doc.Open()
	if err != nil {
		return "", fmt.Errorf("%w: docx: %v", ErrUnsupported, err)
	}
	defer rc.Close()

	text, err := wordprocessingText(rc)
	if err != nil {
		return "", fmt.Errorf("%w: docx: %v", ErrUnsupported, err)
	}
	return text, nil
}

func wordprocessingText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)

	var (
		out    strings.Builder
		para   strings.Builder
		cells  []string
		cell   []string
		inText bool
		depth  int // table nesting
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				para.WriteByte('\t')
			case "br", "cr":
				para.WriteByte('\n')
			case "tbl":
				depth++
			case "tr":
				if depth == 1 {
					cells = cells[:0]
				}
			case "tc":
				if depth == 1 {
					cell = cell[:0]
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				line := strings.TrimSpace(para.String())
				para.Reset()
				if line == "" {
					if depth == 0 {
						out.WriteByte('\n')
					}
					continue
				}
				if depth > 0 {
					cell = append(cell, strings.Join(strings.Fields(line), " "))
				} else {
					out.WriteString(line)
					out.WriteByte('\n')
				}
			case "tc":
				if depth == 1 {
					cells = append(cells, strings.Join(cell, " "))
				}
			case "tr":
				if depth == 1 {
					out.WriteString(strings.Join(cells, " | "))
					out.WriteByte('\n')
				}
			case "tbl":
				depth--
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		}
	}
	return strings.TrimSpace(out.String()), nil
}
