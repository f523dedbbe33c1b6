package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	docxDocumentXMLPath = "word/document.xml"
	contentTypesPath    = "[Content_Types].xml"
	docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
)

// extractDOCX returns the body text of a .docx. Paragraphs are separated by
// a blank line, <w:br/> and <w:cr/> become newlines and <w:tab/> a tab, so
// the splitter can break on paragraph and line boundaries.
//
// lu4p/cat is not used for .docx: its regex only matches <w:p> without
// attributes, so real documents (<w:p w:rsidR="...">) come out empty.
func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract DOCX: not a zip: %w", err)
	}

	docPath := findDocxMainDocumentPath(zr)
	if docPath == "" {
		docPath = docxDocumentXMLPath
	}
	f := findZipFile(zr, docPath)
	if f == nil {
		return "", fmt.Errorf("extract DOCX: %s not found", docPath)
	}
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("extract DOCX: open %s: %w", f.Name, err)
	}
	defer rc.Close()

	text, err := docxText(rc)
	if err != nil {
		return "", fmt.Errorf("extract DOCX: parse %s: %w", f.Name, err)
	}
	return text, nil
}

// openParagraph is a <w:p> still being read. slot is its index in the
// output, taken when it opens, so a text-box paragraph nested inside it
// lands after it even though it closes first.
type openParagraph struct {
	slot int
	text strings.Builder
}

func docxText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var paragraphs []string
	// text boxes nest paragraphs inside paragraphs
	var open []*openParagraph
	inText := false

	top := func() *strings.Builder {
		if len(open) == 0 {
			return nil
		}
		return &open[len(open)-1].text
	}

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
			case "p":
				open = append(open, &openParagraph{slot: len(paragraphs)})
				paragraphs = append(paragraphs, "")
			case "t":
				inText = true
			case "tab":
				if b := top(); b != nil {
					b.WriteByte('\t')
				}
			case "br", "cr":
				if b := top(); b != nil {
					b.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if len(open) > 0 {
					p := open[len(open)-1]
					paragraphs[p.slot] = strings.TrimRight(p.text.String(), " \t")
					open = open[:len(open)-1]
				}
			}
		case xml.CharData:
			if b := top(); inText && b != nil {
				b.Write(t)
			}
		}
	}
	return strings.TrimSpace(strings.Join(paragraphs, "\n\n")), nil
}

func findZipFile(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

type contentTypes struct {
	Overrides []struct {
		PartName    string `xml:"PartName,attr"`
		ContentType string `xml:"ContentType,attr"`
	} `xml:"Override"`
}

// findDocxMainDocumentPath reads the main document part name from
// [Content_Types].xml, without its leading slash. Empty if not declared.
func findDocxMainDocumentPath(zr *zip.Reader) string {
	f := findZipFile(zr, contentTypesPath)
	if f == nil {
		return ""
	}
	rc, err := f.Open()
	if err != nil {
		return ""
	}
	defer rc.Close()

	var ct contentTypes
	if err := xml.NewDecoder(rc).Decode(&ct); err != nil {
		return ""
	}
	for _, o := range ct.Overrides {
		if o.ContentType == docxMainContentType {
			return strings.TrimPrefix(o.PartName, "/")
		}
	}
	return ""
}
