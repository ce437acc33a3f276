package httpclient

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
)

// Multipart is a multipart/form-data payload. Fields are written before files, in order.
type Multipart struct {
	Fields []FormField
	Files  []FilePart
}

// FormField is a plain form value.
type FormField struct {
	Name  string
	Value string
}

// FilePart is a file attached under FieldName. ContentType is sniffed from the content when empty.
type FilePart struct {
	FieldName   string
	FileName    string
	ContentType string
	Content     io.Reader
}

// AddField appends a form value.
func (m *Multipart) AddField(name, value string) {
	m.Fields = append(m.Fields, FormField{Name: name, Value: value})
}

// AddFile appends a file part.
func (m *Multipart) AddFile(fieldName, fileName string, content io.Reader) {
	m.Files = append(m.Files, FilePart{FieldName: fieldName, FileName: fileName, Content: content})
}

const fallbackContentType = "application/octet-stream"

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// encode renders the payload and returns it with its boundary-bearing content type.
func (m *Multipart) encode() (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	for _, f := range m.Fields {
		if err := w.WriteField(f.Name, f.Value); err != nil {
			return nil, "", fmt.Errorf("writing field %s: %w", f.Name, err)
		}
	}

	for _, f := range m.Files {
		if f.Content == nil {
			return nil, "", fmt.Errorf("file %s has no content", f.FileName)
		}
		data, err := io.ReadAll(f.Content)
		if err != nil {
			return nil, "", fmt.Errorf("reading file %s: %w", f.FileName, err)
		}
		ct := f.ContentType
		if ct == "" {
			ct = DetectContentType(data)
		}

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(f.FieldName), quoteEscaper.Replace(filepath.Base(f.FileName))))
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("creating part for %s: %w", f.FileName, err)
		}
		if _, err := part.Write(data); err != nil {
			return nil, "", fmt.Errorf("writing file %s: %w", f.FileName, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart writer: %w", err)
	}
	return buf, w.FormDataContentType(), nil
}

// DetectContentType sniffs the MIME type of data, falling back to application/octet-stream.
func DetectContentType(data []byte) string {
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown || kind.MIME.Value == "" {
		return fallbackContentType
	}
	return kind.MIME.Value
}
