package attachments

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"

	"github.com/chatforge/chatforge/modules/assistant/infrastructure/llm"
	"github.com/chatforge/chatforge/pkg/serrors"
)

var ErrAttachmentNotFound = serrors.NewError(
	"ATTACHMENT_NOT_FOUND",
	"attachment does not exist",
	"",
)

type Kind string

const (
	KindImage    Kind = "image"
	KindDocument Kind = "document"
)

// Attachment is a stored upload. URL is the public path the stored file is
// served under; Path is its location on disk.
type Attachment struct {
	Name      string
	Path      string
	URL       string
	MediaType string
	Size      int64
	Kind      Kind
}

// Processor stores uploads and converts them into dispatch-ready payloads.
type Processor struct {
	uploadsPath string
	textLimit   int
}

func NewProcessor(uploadsPath string, textLimit int) *Processor {
	return &Processor{uploadsPath: uploadsPath, textLimit: textLimit}
}

// Save writes an upload under a fresh name, keeping the original extension.
// The content type is sniffed from the bytes, never trusted from the client.
func (p *Processor) Save(filename string, r io.Reader) (*Attachment, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading upload")
	}

	mime := mimetype.Detect(data)

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = mime.Extension()
	}
	stored := uuid.New().String() + ext

	if err := os.MkdirAll(p.uploadsPath, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating uploads dir")
	}
	path := filepath.Join(p.uploadsPath, stored)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, errors.Wrap(err, "storing upload")
	}

	kind := KindDocument
	if strings.HasPrefix(mime.String(), "image/") {
		kind = KindImage
	}

	return &Attachment{
		Name:      filepath.Base(filename),
		Path:      path,
		URL:       "/uploads/" + stored,
		MediaType: strings.Split(mime.String(), ";")[0],
		Size:      int64(len(data)),
		Kind:      kind,
	}, nil
}

// Resolve maps a stored attachment URL back to the file on disk.
func (p *Processor) Resolve(url string) (*Attachment, error) {
	stored := strings.TrimPrefix(url, "/uploads/")
	if stored == "" || stored == url || strings.Contains(stored, "/") {
		return nil, ErrAttachmentNotFound
	}

	path := filepath.Join(p.uploadsPath, stored)
	info, err := os.Stat(path)
	if err != nil {
		return nil, ErrAttachmentNotFound
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading attachment")
	}
	mime := mimetype.Detect(data)

	kind := KindDocument
	if strings.HasPrefix(mime.String(), "image/") {
		kind = KindImage
	}

	return &Attachment{
		Name:      stored,
		Path:      path,
		URL:       url,
		MediaType: strings.Split(mime.String(), ";")[0],
		Size:      info.Size(),
		Kind:      kind,
	}, nil
}

// ToBase64Image converts a stored image into the inline form vendors accept.
func (p *Processor) ToBase64Image(att *Attachment) (*llm.ImageData, error) {
	if att.Kind != KindImage {
		return nil, errors.Errorf("attachment %q is not an image", att.Name)
	}
	data, err := os.ReadFile(att.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrAttachmentNotFound
		}
		return nil, errors.Wrap(err, "reading image")
	}
	return &llm.ImageData{
		MediaType: att.MediaType,
		Base64:    base64.StdEncoding.EncodeToString(data),
	}, nil
}

// ExtractText pulls plain text out of a document attachment. Formats without
// an extractor, and documents that fail to parse, yield a placeholder so the
// model still learns what was attached.
func (p *Processor) ExtractText(att *Attachment) (*llm.Document, error) {
	doc := &llm.Document{Name: att.Name, MediaType: att.MediaType}

	switch {
	case strings.HasPrefix(att.MediaType, "text/"):
		data, err := os.ReadFile(att.Path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, ErrAttachmentNotFound
			}
			return nil, errors.Wrap(err, "reading document")
		}
		doc.Text = p.truncate(string(data))
	case att.MediaType == "application/pdf" || strings.EqualFold(filepath.Ext(att.Path), ".pdf"):
		text, err := extractPDFText(att.Path)
		if err != nil {
			doc.Text = fmt.Sprintf("[PDF document, %d bytes, text could not be extracted: %v]", att.Size, err)
		} else {
			doc.Text = p.truncate(text)
		}
	default:
		doc.Text = fmt.Sprintf("[%s document, %d bytes, no text extractor for this format]", att.MediaType, att.Size)
	}

	return doc, nil
}

func (p *Processor) truncate(text string) string {
	if p.textLimit > 0 && len(text) > p.textLimit {
		return text[:p.textLimit] + "\n[truncated]"
	}
	return text
}

func extractPDFText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = f.Close()
	}()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}
