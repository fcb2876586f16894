package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestImageDataURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cover.png")
	if err := os.WriteFile(path, []byte{0x89, 0x50, 0x4e, 0x47}, 0o600); err != nil {
		t.Fatalf("write test image: %v", err)
	}

	dataURL, err := imageDataURL(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.HasPrefix(dataURL, "data:image/png;base64,") {
		t.Fatalf("unexpected prefix: %q", dataURL)
	}
	if !strings.HasSuffix(dataURL, "iVBORw==") {
		t.Fatalf("unexpected payload: %q", dataURL)
	}
}

func TestImageDataURLMissingFile(t *testing.T) {
	if _, err := imageDataURL(filepath.Join(t.TempDir(), "absent.png")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
