package docs

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildDOCX(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)

	contentTypes, err := writer.Create("[Content_Types].xml")
	require.NoError(t, err)
	_, err = contentTypes.Write([]byte(`<?xml version="1.0"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/></Types>`))
	require.NoError(t, err)

	entry, err := writer.Create("word/document.xml")
	require.NoError(t, err)
	_, err = entry.Write([]byte(documentXML))
	require.NoError(t, err)

	require.NoError(t, writer.Close())
	return buf.Bytes()
}

func TestExtractTextPlainText(t *testing.T) {
	text, err := ExtractText("note.txt", []byte("CHIEF COMPLAINT: Chest pain\nPLAN: Stress test\n"))
	require.NoError(t, err)
	assert.Contains(t, text, "CHIEF COMPLAINT")
}

func TestExtractTextDOCX(t *testing.T) {
	docXML := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>CHIEF COMPLAINT: Chest pain</w:t></w:r></w:p>
    <w:p><w:r><w:t>PLAN: Stress test</w:t></w:r></w:p>
  </w:body>
</w:document>`
	data := buildDOCX(t, docXML)

	text, err := ExtractText("note.docx", data)
	require.NoError(t, err)
	assert.Contains(t, text, "CHIEF COMPLAINT: Chest pain")
	assert.Contains(t, text, "PLAN: Stress test")
}

func TestExtractTextRejectsEmptyUpload(t *testing.T) {
	_, err := ExtractText("note.txt", nil)
	assert.Error(t, err)
}

func TestExtractTextRejectsUnsupportedFormat(t *testing.T) {
	pngHeader := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}

	_, err := ExtractText("scan.png", pngHeader)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
