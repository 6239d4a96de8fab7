// Package docs extracts plain text from uploaded sample documents.
package docs

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"

	"github.com/Nephrolytics-ai/medscribe/pkg/utils"
)

// ErrUnsupportedFormat is returned for uploads that are not plain text, PDF,
// or DOCX.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// ExtractText sniffs the document's content type and returns its plain text.
func ExtractText(filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", utils.WrapIfNotNil(fmt.Errorf("document %q is empty", filename))
	}

	detected := mimetype.Detect(data)
	switch {
	case detected.Is("application/pdf"):
		return extractPDF(data)
	case detected.Is("application/vnd.openxmlformats-officedocument.wordprocessingml.document"):
		return extractDOCX(data)
	case strings.HasPrefix(detected.String(), "text/"):
		return string(data), nil
	default:
		return "", fmt.Errorf("%w: %s (%s)", ErrUnsupportedFormat, filename, detected.String())
	}
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", utils.WrapIfNotNil(err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", utils.WrapIfNotNil(err)
	}
	var b strings.Builder
	if _, err := io.Copy(&b, plain); err != nil {
		return "", utils.WrapIfNotNil(err)
	}
	return b.String(), nil
}

// extractDOCX pulls the character data out of word/document.xml. DOCX stores
// each run's text in <w:t> elements; a full OOXML parse is not needed to
// recover the document body.
func extractDOCX(data []byte) (string, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", utils.WrapIfNotNil(err)
	}

	document, err := archive.Open("word/document.xml")
	if err != nil {
		return "", utils.WrapIfNotNil(fmt.Errorf("document.xml missing from archive: %w", err))
	}
	defer document.Close()

	decoder := xml.NewDecoder(document)
	var b strings.Builder
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", utils.WrapIfNotNil(err)
		}
		switch t := token.(type) {
		case xml.CharData:
			b.Write(t)
		case xml.EndElement:
			// Paragraph boundaries become newlines so headings stay separated.
			if t.Name.Local == "p" {
				b.WriteString("\n")
			}
		}
	}
	return b.String(), nil
}
