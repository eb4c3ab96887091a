// Package fileslot models a single-file acquisition widget: one selectable
// file, picked or dropped, with a drag-active indicator.
package fileslot

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"recruitment-backend/internal/shared/util"
)

// DefaultAccept is the advisory extension allow-list shown next to the slot.
var DefaultAccept = []string{".pdf", ".doc", ".docx", ".txt"}

const sniffLen = 3072

var ErrNoFile = errors.New("no file")

// SelectedFile describes a chosen file. Content is never retained.
type SelectedFile struct {
	Name        string `json:"name"`
	SizeBytes   int64  `json:"sizeBytes"`
	ContentType string `json:"contentType,omitempty"`
	Accepted    bool   `json:"accepted"`
}

// SizeMB renders the size in megabytes with two decimals.
func (f SelectedFile) SizeMB() string {
	return FormatMB(f.SizeBytes)
}

// FormatMB renders n bytes as "x.xx MB".
func FormatMB(n int64) string {
	return fmt.Sprintf("%.2f MB", float64(n)/(1024*1024))
}

// Accepts reports whether name carries one of the extensions in accept.
// Matching is case-insensitive.
func Accepts(name string, accept []string) bool {
	ext := strings.ToLower(path.Ext(name))
	if ext == "" {
		return false
	}
	for _, a := range accept {
		if strings.ToLower(strings.TrimSpace(a)) == ext {
			return true
		}
	}
	return false
}

// FromReader measures r: it counts every byte, sniffs the content type from
// the leading bytes and discards the rest.
func FromReader(name string, r io.Reader, accept []string) (SelectedFile, error) {
	clean, err := util.SanitizeFileName(name)
	if err != nil {
		return SelectedFile{}, err
	}
	if accept == nil {
		accept = DefaultAccept
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return SelectedFile{}, fmt.Errorf("read %s: %w", clean, err)
	}
	head = head[:n]

	rest, err := io.Copy(io.Discard, r)
	if err != nil {
		return SelectedFile{}, fmt.Errorf("read %s: %w", clean, err)
	}

	ct := ""
	if n > 0 {
		ct = mimetype.Detect(bytes.Clone(head)).String()
	}

	return SelectedFile{
		Name:        clean,
		SizeBytes:   int64(n) + rest,
		ContentType: ct,
		Accepted:    Accepts(clean, accept),
	}, nil
}

// FromMultipart measures an uploaded multipart part without persisting it.
func FromMultipart(fh *multipart.FileHeader, accept []string) (SelectedFile, error) {
	if fh == nil {
		return SelectedFile{}, ErrNoFile
	}
	f, err := fh.Open()
	if err != nil {
		return SelectedFile{}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	return FromReader(fh.Filename, f, accept)
}
