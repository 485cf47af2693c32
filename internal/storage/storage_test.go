//go:build unit

package storage

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go-wiki-cms/internal/config"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(config.StorageConfig{Dir: t.TempDir(), BaseURL: "/uploads/"})
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	return s
}

func encodePNG(t *testing.T, w, h int) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("failed to encode fixture image: %v", err)
	}
	return &buf
}

func TestUploadDownscalesWideImages(t *testing.T) {
	s := newTestStore(t)

	img, err := s.Upload(encodePNG(t, 1600, 400), "Harita Görseli.png")
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if img.Width != 800 || img.Height != 200 {
		t.Errorf("dimensions = %dx%d, want 800x200", img.Width, img.Height)
	}
	if !strings.HasPrefix(img.Filename, "harita-gorseli-") || !strings.HasSuffix(img.Filename, ".jpg") {
		t.Errorf("filename = %q, want slugged jpg", img.Filename)
	}
	if !strings.HasPrefix(img.URL, "/uploads/") {
		t.Errorf("url = %q, want it under the base url", img.URL)
	}

	// The stored file must be a decodable JPEG of the final size.
	stored, err := os.ReadFile(filepath.Join(s.Dir(), img.Filename))
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := jpeg.Decode(bytes.NewReader(stored))
	if err != nil {
		t.Fatalf("stored file is not a jpeg: %v", err)
	}
	if decoded.Bounds().Dx() != 800 {
		t.Errorf("stored width = %d, want 800", decoded.Bounds().Dx())
	}
}

func TestUploadKeepsSmallImages(t *testing.T) {
	s := newTestStore(t)

	img, err := s.Upload(encodePNG(t, 300, 200), "icon.png")
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if img.Width != 300 || img.Height != 200 {
		t.Errorf("small image must not be resized, got %dx%d", img.Width, img.Height)
	}
}

func TestUploadCollisionsGetDistinctNames(t *testing.T) {
	s := newTestStore(t)

	first, err := s.Upload(encodePNG(t, 10, 10), "dup.png")
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Upload(encodePNG(t, 10, 10), "dup.png")
	if err != nil {
		t.Fatal(err)
	}
	if first.Filename == second.Filename {
		t.Errorf("same-second uploads must not collide, both got %q", first.Filename)
	}
}

func TestUploadRejectsNonImages(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Upload(strings.NewReader("not an image"), "evil.png"); err == nil {
		t.Error("non-image payload must be rejected")
	}
}
