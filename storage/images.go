// Package storage uploads listing images to S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// MaxImageSize caps a single upload.
const MaxImageSize = 5 << 20

var (
	ErrNotImage      = errors.New("file is not a supported image")
	ErrImageTooLarge = errors.New("image exceeds 5 MiB")
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

type ImageStore interface {
	Upload(ctx context.Context, img Image) (string, error)
	Delete(ctx context.Context, url string) error
}

// Image is a sniffed upload ready to be stored.
type Image struct {
	ObjectName  string
	ContentType string
	Size        int64
	Body        io.Reader
}

// ReadImage reads at most MaxImageSize bytes from r, sniffs the content type
// and names the object with a fresh uuid and the detected extension.
func ReadImage(r io.Reader) (Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return Image{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) > MaxImageSize {
		return Image{}, ErrImageTooLarge
	}

	mt := mimetype.Detect(data)
	contentType := strings.SplitN(mt.String(), ";", 2)[0]
	if !allowedImageTypes[contentType] {
		return Image{}, ErrNotImage
	}

	return Image{
		ObjectName:  uuid.NewString() + mt.Extension(),
		ContentType: contentType,
		Size:        int64(len(data)),
		Body:        bytes.NewReader(data),
	}, nil
}

// objectNameFromURL returns the last path segment of an object URL.
func objectNameFromURL(url string) string {
	parts := strings.Split(url, "/")
	return parts[len(parts)-1]
}
