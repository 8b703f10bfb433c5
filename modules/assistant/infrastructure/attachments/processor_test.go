package attachments

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngHeader is enough of a PNG for content sniffing.
var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}

func newTestProcessor(t *testing.T) *Processor {
	t.Helper()
	return NewProcessor(t.TempDir(), 5000)
}

func TestProcessor_SaveImage(t *testing.T) {
	p := newTestProcessor(t)

	att, err := p.Save("photo.png", bytes.NewReader(pngHeader))
	require.NoError(t, err)

	assert.Equal(t, "photo.png", att.Name)
	assert.Equal(t, KindImage, att.Kind)
	assert.Equal(t, "image/png", att.MediaType)
	assert.True(t, strings.HasPrefix(att.URL, "/uploads/"))
	assert.True(t, strings.HasSuffix(att.URL, ".png"))
	assert.FileExists(t, att.Path)
}

func TestProcessor_SaveDocument(t *testing.T) {
	p := newTestProcessor(t)

	att, err := p.Save("notes.txt", strings.NewReader("meeting notes"))
	require.NoError(t, err)
	assert.Equal(t, KindDocument, att.Kind)
	assert.Equal(t, "text/plain", att.MediaType)
}

func TestProcessor_Resolve(t *testing.T) {
	p := newTestProcessor(t)

	att, err := p.Save("photo.png", bytes.NewReader(pngHeader))
	require.NoError(t, err)

	resolved, err := p.Resolve(att.URL)
	require.NoError(t, err)
	assert.Equal(t, att.Path, resolved.Path)
	assert.Equal(t, KindImage, resolved.Kind)

	_, err = p.Resolve("/uploads/missing.png")
	require.ErrorIs(t, err, ErrAttachmentNotFound)

	_, err = p.Resolve("/uploads/../escape.png")
	require.ErrorIs(t, err, ErrAttachmentNotFound)
}

func TestProcessor_ToBase64Image(t *testing.T) {
	p := newTestProcessor(t)

	att, err := p.Save("photo.png", bytes.NewReader(pngHeader))
	require.NoError(t, err)

	img, err := p.ToBase64Image(att)
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MediaType)

	decoded, err := base64.StdEncoding.DecodeString(img.Base64)
	require.NoError(t, err)
	assert.Equal(t, pngHeader, decoded)
}

func TestProcessor_ToBase64Image_RejectsDocuments(t *testing.T) {
	p := newTestProcessor(t)

	att, err := p.Save("notes.txt", strings.NewReader("hello"))
	require.NoError(t, err)

	_, err = p.ToBase64Image(att)
	require.Error(t, err)
}

func TestProcessor_ExtractText_Plain(t *testing.T) {
	p := newTestProcessor(t)

	att, err := p.Save("notes.txt", strings.NewReader("meeting notes"))
	require.NoError(t, err)

	doc, err := p.ExtractText(att)
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", doc.Name)
	assert.Equal(t, "meeting notes", doc.Text)
}

func TestProcessor_ExtractText_Truncates(t *testing.T) {
	p := NewProcessor(t.TempDir(), 10)

	att, err := p.Save("big.txt", strings.NewReader(strings.Repeat("a", 100)))
	require.NoError(t, err)

	doc, err := p.ExtractText(att)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("a", 10)+"\n[truncated]", doc.Text)
}

func TestProcessor_ExtractText_UnsupportedFormat(t *testing.T) {
	p := newTestProcessor(t)

	att, err := p.Save("archive.zip", bytes.NewReader([]byte{0x50, 0x4B, 0x03, 0x04, 0, 0, 0, 0}))
	require.NoError(t, err)

	doc, err := p.ExtractText(att)
	require.NoError(t, err)
	assert.Contains(t, doc.Text, "no text extractor")
}

func TestProcessor_ExtractText_BrokenPDF(t *testing.T) {
	p := newTestProcessor(t)

	att, err := p.Save("report.pdf", strings.NewReader("%PDF-1.4 truncated garbage"))
	require.NoError(t, err)

	doc, err := p.ExtractText(att)
	require.NoError(t, err)
	assert.Regexp(t, `could not be extracted: .+\]`, doc.Text)
}
