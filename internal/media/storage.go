package media

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store persists uploaded files and returns a public URL for them.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// Attachment is the stored value of a file field.
type Attachment struct {
	Key      string `json:"key"`
	URL      string `json:"url"`
	Filename string `json:"filename"`
	MIME     string `json:"mime"`
	Size     int64  `json:"size,omitempty"`
}

// ObjectKey builds a collision-free key for an uploaded file:
// items/<id>/<yyyy>/<mm>/<uuid><ext>.
func ObjectKey(itemID int64, filename string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) > 10 {
		ext = ""
	}
	return path.Join("items", fmt.Sprint(itemID), now.Format("2006"), now.Format("01"), uuid.NewString()+ext)
}

// ContentType guesses the MIME type of an upload, preferring the declared one.
func ContentType(filename, declared string) string {
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if t := mime.TypeByExtension(filepath.Ext(filename)); t != "" {
		return t
	}
	return "application/octet-stream"
}

// countingReader tracks how many bytes were read through it.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// Upload stores r under a fresh key for the item and describes the result.
func Upload(ctx context.Context, s Store, itemID int64, filename, declaredType string, r io.Reader) (*Attachment, error) {
	key := ObjectKey(itemID, filename, time.Now())
	contentType := ContentType(filename, declaredType)

	cr := &countingReader{r: r}
	url, err := s.Put(ctx, key, cr, contentType)
	if err != nil {
		return nil, fmt.Errorf("uploading %s: %w", filename, err)
	}

	return &Attachment{
		Key:      key,
		URL:      url,
		Filename: filepath.Base(filename),
		MIME:     contentType,
		Size:     cr.n,
	}, nil
}
