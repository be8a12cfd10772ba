package documents

import (
	"archive/zip"
	"bytes"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildDOCX(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body + `</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestDecode_Cascade(t *testing.T) {
	tests := []struct {
		name     string
		in       []byte
		want     string
		encoding string
	}{
		{"utf8", []byte("Miasto: Kraków"), "Miasto: Kraków", "utf-8"},
		{"utf8 bom", []byte("\xEF\xBB\xBFCity: Warsaw"), "City: Warsaw", "utf-8"},
		// "Город: Москва" in windows-1251
		{"cp1251", []byte{0xC3, 0xEE, 0xF0, 0xEE, 0xE4, ':', ' ', 0xCC, 0xEE, 0xF1, 0xEA, 0xE2, 0xE0}, "Город: Москва", "windows-1251"},
		{"utf16 le", []byte{0xFF, 0xFE, 'H', 0, 'i', 0}, "Hi", "utf-16"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, enc := DecodeWithName(tt.in)
			assert.Equal(t, tt.encoding, enc)
			if tt.want != "" {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestDecode_PrefersWindows1251(t *testing.T) {
	// "Łódź" in windows-1250 is also valid windows-1251, which is tried
	// first.
	got, enc := DecodeWithName([]byte{0xA3, 0xF3, 0x64, 0x9F})
	assert.Equal(t, "windows-1251", enc)
	assert.NotEmpty(t, got)
}

func TestDecode_AlwaysReturnsValidUTF8(t *testing.T) {
	for _, in := range [][]byte{
		{0xFF, 0x00, 0x81, 0x98, 0xC0},
		{0x98, 'x', 0x9C},
		{0xC3},
	} {
		got, enc := DecodeWithName(in)
		assert.True(t, utf8.ValidString(got), "input % x", in)
		assert.NotEqual(t, "utf-8", enc)
	}
}

func TestCSVText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "question answer columns by semicolon",
			in:   "id;Question;Answer\n1;What is the SLA?;24/7\n2;Hours?;9-17\n",
			want: "What is the SLA? | 24/7\nHours? | 9-17",
		},
		{
			name: "two columns by comma",
			in:   "City,Warsaw\nBudget,\"10,000 EUR\"\n",
			want: "City | Warsaw\nBudget | 10,000 EUR",
		},
		{
			name: "pipe wins over comma",
			in:   "City|Warsaw, Poland\n",
			want: "City | Warsaw, Poland",
		},
		{
			name: "tabs",
			in:   "Client\tACME\n",
			want: "Client | ACME",
		},
		{
			name: "wide table uses header per cell",
			in:   "Project,City,Budget\nApollo,Warsaw,5k\n",
			want: "Project | Apollo\nCity | Warsaw\nBudget | 5k",
		},
		{
			name: "single column is left alone",
			in:   "just one column\nanother line\n",
			want: "just one column\nanother line\n",
		},
		{
			name: "blank rows skipped",
			in:   "\n,\nCity,Warsaw\n",
			want: "City | Warsaw",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CSVText(tt.in))
		})
	}
}

func TestDetect(t *testing.T) {
	docx := buildDOCX(t, `<w:p><w:r><w:t>x</w:t></w:r></w:p>`)
	tests := []struct {
		name    string
		file    string
		data    []byte
		want    Format
		wantErr bool
	}{
		{"pdf magic beats extension", "notes.txt", []byte("%PDF-1.7 ..."), FormatPDF, false},
		{"docx magic", "upload.bin", docx, FormatDOCX, false},
		{"csv by extension", "faq.CSV", []byte("a,b"), FormatCSV, false},
		{"json", "cms.json", []byte("{}"), FormatJSON, false},
		{"markdown", "brief.md", []byte("# x"), FormatMarkdown, false},
		{"unknown extension reads as text", "brief.rtf2", []byte("City: X"), FormatText, false},
		{"fake pdf", "scan.pdf", []byte("hello"), "", true},
		{"fake docx", "brief.docx", []byte("hello"), "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Detect(tt.file, tt.data)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrUnsupported)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetect_PlainZipIsUnsupported(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, err := zw.Create("readme.txt")
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = Detect("archive.zip", buf.Bytes())
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestRead_DOCXParagraphsAndTables(t *testing.T) {
	body := `<w:p><w:r><w:t>Project Name: </w:t></w:r><w:r><w:t>Apollo</w:t></w:r></w:p>` +
		`<w:p></w:p>` +
		`<w:p><w:r><w:t>Overview</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>First line.</w:t><w:br/><w:t>Second line.</w:t></w:r></w:p>` +
		`<w:tbl>` +
		`<w:tr><w:tc><w:p><w:r><w:t>City</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>Warsaw</w:t></w:r></w:p></w:tc></w:tr>` +
		`<w:tr><w:tc><w:p><w:r><w:t>Budget</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>5k</w:t></w:r></w:p></w:tc></w:tr>` +
		`</w:tbl>`

	format, text, err := Read("brief.docx", buildDOCX(t, body))
	require.NoError(t, err)
	assert.Equal(t, FormatDOCX, format)
	assert.Equal(t, "Project Name: Apollo\n\nOverview\nFirst line.\nSecond line.\nCity | Warsaw\nBudget | 5k", text)
}

func TestRead_BrokenPDF(t *testing.T) {
	_, _, err := Read("scan.pdf", []byte("%PDF-1.4\nnot really a pdf"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestRead_CSVAndText(t *testing.T) {
	f, text, err := Read("faq.csv", []byte("question,answer\nWhere?,Warsaw\n"))
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)
	assert.Equal(t, "Where? | Warsaw", text)

	f, text, err = Read("notes.txt", []byte("City: Warsaw"))
	require.NoError(t, err)
	assert.Equal(t, FormatText, f)
	assert.Equal(t, "City: Warsaw", text)
}
