package ingest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/encoding/simplifiedchinese"

	apperrors "github.com/yanqian/ai-helloworld/pkg/errors"
)

// Extracted is the result of the fetch-and-extract stage: raw text
// plus any page count the source format carries.
type Extracted struct {
	Text      string
	PageCount int
}

// Extract dispatches on file type and returns the raw (uncleaned)
// text plus page count when known.
func Extract(fileType string, data []byte) (Extracted, error) {
	switch normalizeFileType(fileType) {
	case "pdf":
		return extractPDF(data)
	case "txt":
		return Extracted{Text: decodeText(data)}, nil
	case "md":
		return Extracted{Text: decodeText(data)}, nil
	case "docx":
		return extractDOCX(data)
	default:
		return Extracted{}, apperrors.Wrap(apperrors.KindUnsupportedFileType, "unsupported file type: "+fileType, nil)
	}
}

func normalizeFileType(fileType string) string {
	ft := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(fileType), "."))
	return ft
}

func extractPDF(data []byte) (Extracted, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Extracted{}, apperrors.Wrap(apperrors.KindParseFailed, "open pdf", err)
	}
	pages := reader.NumPage()
	var parts []string
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		parts = append(parts, text)
	}
	return Extracted{Text: strings.Join(parts, "\n\n"), PageCount: pages}, nil
}

// decodeText handles UTF-8 with a GBK fallback for legacy Chinese
// plain-text and markdown sources.
func decodeText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	decoded, err := simplifiedchinese.GBK.NewDecoder().Bytes(data)
	if err != nil {
		return string(data)
	}
	return string(decoded)
}

type docxDocument struct {
	Body struct {
		Paragraphs []struct {
			Runs []struct {
				Text []string `xml:"t"`
			} `xml:"r"`
		} `xml:"p"`
	} `xml:"body"`
}

func extractDOCX(data []byte) (Extracted, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Extracted{}, apperrors.Wrap(apperrors.KindParseFailed, "open docx", err)
	}
	var docXML []byte
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			rc, err := f.Open()
			if err != nil {
				return Extracted{}, apperrors.Wrap(apperrors.KindParseFailed, "open document.xml", err)
			}
			docXML, err = io.ReadAll(rc)
			rc.Close()
			if err != nil {
				return Extracted{}, apperrors.Wrap(apperrors.KindParseFailed, "read document.xml", err)
			}
			break
		}
	}
	if docXML == nil {
		return Extracted{}, apperrors.Wrap(apperrors.KindParseFailed, "document.xml not found in docx", nil)
	}

	var doc docxDocument
	if err := xml.Unmarshal(docXML, &doc); err != nil {
		return Extracted{}, apperrors.Wrap(apperrors.KindParseFailed, "parse document.xml", err)
	}

	var paragraphs []string
	for _, p := range doc.Body.Paragraphs {
		var b strings.Builder
		for _, run := range p.Runs {
			for _, t := range run.Text {
				b.WriteString(t)
			}
		}
		text := strings.TrimSpace(b.String())
		if text != "" {
			paragraphs = append(paragraphs, text)
		}
	}
	return Extracted{Text: strings.Join(paragraphs, "\n\n")}, nil
}
