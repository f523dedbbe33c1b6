package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

const wordNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`

// docxWithBody returns .docx zip bytes whose word/document.xml body is the given XML.
func docxWithBody(body string) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, _ := w.Create("word/document.xml")
	_, _ = fw.Write([]byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?><w:document ` + wordNS + `><w:body>` + body + `</w:body></w:document>`))
	_ = w.Close()
	return buf.Bytes()
}

func paragraph(text string) string {
	return `<w:p w:rsidR="00A1"><w:r><w:t xml:space="preserve">` + text + `</w:t></w:r></w:p>`
}

func TestExtractBytes_docxParagraphs(t *testing.T) {
	e := NewExtractor()
	content := docxWithBody(paragraph("Emma: a software engineer based in Paris") + paragraph("Lucas: a baker from Lyon"))
	got, err := e.ExtractBytes(content, ".docx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	want := "Emma: a software engineer based in Paris\n\nLucas: a baker from Lyon"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExtractBytes_docxRunsBreaksTabs(t *testing.T) {
	e := NewExtractor()
	body := `<w:p><w:r><w:t>Emma:</w:t></w:r><w:r><w:t xml:space="preserve"> engineer</w:t></w:r>` +
		`<w:r><w:br/><w:t>Paris</w:t><w:tab/><w:t>France</w:t></w:r></w:p>`
	got, err := e.ExtractBytes(docxWithBody(body), ".docx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "Emma: engineer\nParis\tFrance" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_docxEntities(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractBytes(docxWithBody(paragraph("R&amp;D: research &lt;team&gt;")), ".docx")
	if err != nil {
		t.Fatal(err)
	}
	if got != "R&D: research <team>" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_docxNestedTextBox(t *testing.T) {
	e := NewExtractor()
	body := `<w:p><w:r><w:t>Outer start</w:t></w:r><w:r><w:txbxContent>` + paragraph("Inner") +
		`</w:txbxContent></w:r><w:r><w:t xml:space="preserve"> outer end</w:t></w:r></w:p>`
	got, err := e.ExtractBytes(docxWithBody(body), ".docx")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Outer start outer end\n\nInner" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_docxTextBoxKeepsReadingOrder(t *testing.T) {
	box := `<w:p><w:r><w:t>Emma: engineer</w:t></w:r><w:r><w:txbxContent>` +
		paragraph("Box one") + paragraph("Box two") +
		`</w:txbxContent></w:r></w:p>`
	body := paragraph("Before") + box + paragraph("After")
	got, err := NewExtractor().ExtractBytes(docxWithBody(body), ".docx")
	if err != nil {
		t.Fatal(err)
	}
	want := "Before\n\nEmma: engineer\n\nBox one\n\nBox two\n\nAfter"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExtractBytes_docxContentTypes(t *testing.T) {
	for _, tt := range []struct {
		name     string
		override string
	}{
		{"part name first", `<Override PartName="/word/document2.xml" ContentType="` + docxMainContentType + `"/>`},
		{"content type first", `<Override ContentType="` + docxMainContentType + `" PartName="/word/document2.xml"/>`},
	} {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			w := zip.NewWriter(&buf)
			ct, _ := w.Create("[Content_Types].xml")
			_, _ = ct.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` + tt.override + `</Types>`))
			fw, _ := w.Create("word/document2.xml")
			_, _ = fw.Write([]byte(`<w:document ` + wordNS + `><w:body>` + paragraph("Content from document2") + `</w:body></w:document>`))
			_ = w.Close()

			got, err := NewExtractor().ExtractBytes(buf.Bytes(), ".docx")
			if err != nil {
				t.Fatalf("ExtractBytes: %v", err)
			}
			if got != "Content from document2" {
				t.Errorf("got %q", got)
			}
		})
	}
}

func TestExtractBytes_docxInvalid(t *testing.T) {
	e := NewExtractor()
	if _, err := e.ExtractBytes([]byte("not a zip"), ".docx"); err == nil {
		t.Error("expected error for non-zip docx")
	}

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	_, _ = w.Create("other.xml")
	_ = w.Close()
	if _, err := e.ExtractBytes(buf.Bytes(), ".docx"); err == nil {
		t.Error("expected error when word/document.xml is missing")
	}

	if _, err := e.ExtractBytes(docxWithBody(`<w:p><w:r><w:t>unclosed`), ".docx"); err == nil {
		t.Error("expected error for malformed XML")
	}
}

func TestExtractBytes_plain(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractBytes([]byte("Hello world\r\nLine 2"), ".txt")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "Hello world\nLine 2" {
		t.Errorf("got %q", got)
	}

	got, _ = e.ExtractBytes([]byte("hello\x80world"), ".md")
	if got != "hello�world" {
		t.Errorf("invalid UTF-8: got %q", got)
	}
}

func TestExtractBytes_excel(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	f.SetCellValue("Sheet1", "A1", "Emma")
	f.SetCellValue("Sheet1", "B1", "software engineer")
	f.SetCellValue("Sheet1", "C1", "Paris")
	f.SetCellValue("Sheet1", "A2", "Notes")
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	got, err := NewExtractor().ExtractBytes(buf.Bytes(), ".xlsx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "Emma: software engineer\tParis\nNotes" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_rtf(t *testing.T) {
	content := []byte(`{\rtf1\ansi\deff0 {\fonttbl {\f0 Times;}}\f0 Emma is an engineer.\par}`)
	got, err := NewExtractor().ExtractBytes(content, ".rtf")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if !strings.Contains(got, "Emma is an engineer.") {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_pdfInvalid(t *testing.T) {
	if _, err := NewExtractor().ExtractBytes([]byte("%PDF-nonsense"), ".pdf"); err == nil {
		t.Error("expected error for corrupt PDF")
	}
}

func TestExtractBytes_unsupported(t *testing.T) {
	_, err := NewExtractor().ExtractBytes([]byte("raw"), ".xyz")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
	if err != nil && !strings.Contains(err.Error(), ".docx, .odt") {
		t.Errorf("error should list the supported extensions: %v", err)
	}
}

func TestExtractBytes_everySupportedExtensionIsHandled(t *testing.T) {
	for _, ext := range SupportedExtensions() {
		_, err := NewExtractor().ExtractBytes([]byte("Emma: engineer"), ext)
		if errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("%s is listed as supported but rejected", ext)
		}
	}
}

func TestExtract_file(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "documento.DOCX")
	if err := os.WriteFile(path, docxWithBody(paragraph("Emma: engineer")), 0600); err != nil {
		t.Fatal(err)
	}
	got, err := NewExtractor().Extract(path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "Emma: engineer" {
		t.Errorf("got %q", got)
	}
}

func TestExtract_nonexistent(t *testing.T) {
	if _, err := NewExtractor().Extract("/nonexistent/path/file.docx"); err == nil {
		t.Error("expected error for nonexistent file")
	}
}
