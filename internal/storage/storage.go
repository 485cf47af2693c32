// Package storage persists uploaded editor images on local disk. Images
// are normalized on the way in: decoded, downscaled to a maximum width and
// re-encoded as JPEG, so the store never serves oversized originals.
package storage

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go-wiki-cms/internal/config"
	"go-wiki-cms/internal/slug"

	"golang.org/x/image/draw"
)

const (
	maxImageWidth = 800
	jpegQuality   = 80

	// MaxUploadSize bounds the accepted request body for uploads.
	MaxUploadSize = 10 << 20
)

// Image describes a stored upload.
type Image struct {
	Filename   string
	URL        string
	Width      int
	Height     int
	Size       int
	UploadedAt time.Time
}

// Store writes normalized uploads under a directory and maps them to
// public URLs.
type Store struct {
	dir     string
	baseURL string
}

// New creates a Store rooted at the configured directory, creating it if
// needed.
func New(cfg config.StorageConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &Store{dir: cfg.Dir, baseURL: strings.TrimRight(cfg.BaseURL, "/")}, nil
}

// Dir returns the directory uploads are written to, for static serving.
func (s *Store) Dir() string { return s.dir }

// Upload decodes an image, downscales it to at most maxImageWidth wide
// (preserving aspect ratio), re-encodes it as JPEG and writes it under a
// slugged, timestamped, collision-free filename.
func (s *Store) Upload(src io.Reader, originalName string) (*Image, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > maxImageWidth {
		newH := h * maxImageWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
		w, h = maxImageWidth, newH
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}

	filename := s.uniqueFilename(originalName)
	if err := os.WriteFile(filepath.Join(s.dir, filename), buf.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write upload: %w", err)
	}

	return &Image{
		Filename:   filename,
		URL:        s.PublicURL(filename),
		Width:      w,
		Height:     h,
		Size:       buf.Len(),
		UploadedAt: time.Now().UTC(),
	}, nil
}

// PublicURL maps a stored filename to the URL it is served under.
func (s *Store) PublicURL(filename string) string {
	return s.baseURL + "/" + path.Clean(filename)
}

// uniqueFilename builds a slugged, timestamped name and appends a counter
// on the rare collision.
func (s *Store) uniqueFilename(originalName string) string {
	base := slug.Make(strings.TrimSuffix(originalName, filepath.Ext(originalName)))
	if base == "" {
		base = "upload"
	}
	base = fmt.Sprintf("%s-%d", base, time.Now().UTC().Unix())

	candidate := base + ".jpg"
	for counter := 2; ; counter++ {
		if _, err := os.Stat(filepath.Join(s.dir, candidate)); os.IsNotExist(err) {
			return candidate
		}
		candidate = fmt.Sprintf("%s-%d.jpg", base, counter)
	}
}
