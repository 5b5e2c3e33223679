// Package media defines the contract of the external image store and the
// helpers shared by its implementations.
package media

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
)

// CarsFolder is the namespace every listing picture is uploaded under.
const CarsFolder = "cars"

var ErrInvalidImage = errors.New("invalid base64 image")

// Store uploads images and removes them again.
type Store interface {
	// Upload stores a base64 image (data URI or bare payload) under folder
	// and returns its durable URL.
	Upload(ctx context.Context, image, folder string) (string, error)
	// Destroy removes the object identified by publicID inside folder.
	Destroy(ctx context.Context, folder, publicID string) error
	// Owns reports whether rawURL points at an object held by this store.
	Owns(rawURL string) bool
}

// Image is a decoded upload.
type Image struct {
	Data        []byte
	ContentType string
	Ext         string
}

var extByType = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/heic": ".heic",
}

// DecodeImage accepts "data:<mime>;base64,<payload>" or a bare base64 payload.
func DecodeImage(s string) (*Image, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidImage
	}

	contentType := ""
	payload := s
	if strings.HasPrefix(s, "data:") {
		header, body, ok := strings.Cut(s[len("data:"):], ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return nil, fmt.Errorf("%w: malformed data URI", ErrInvalidImage)
		}
		contentType = strings.TrimSuffix(header, ";base64")
		payload = body
	}

	data, err := decodeBase64(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if len(data) == 0 {
		return nil, ErrInvalidImage
	}

	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return &Image{Data: data, ContentType: contentType, Ext: extension(contentType)}, nil
}

func decodeBase64(payload string) ([]byte, error) {
	payload = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, payload)
	if data, err := base64.StdEncoding.DecodeString(payload); err == nil {
		return data, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
}

func extension(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = contentType
	}
	if ext, ok := extByType[mediaType]; ok {
		return ext
	}
	if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}

// PublicID derives an object's public id from its URL: the trailing path
// segment with everything from the first "." removed.
func PublicID(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		p = u.Path
	}
	base := path.Base(p)
	if base == "." || base == "/" {
		return ""
	}
	id, _, _ := strings.Cut(base, ".")
	return id
}
