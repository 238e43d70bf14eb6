package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/sandraschi/ocr-gateway/internal/errors"
)

type fixedFetcher struct {
	data []byte
	err  error
}

func (f *fixedFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	return f.data, f.err
}

func TestResolveLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.png")
	if err := os.WriteFile(path, []byte("raster bytes"), 0o600); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	r := NewResolver(&fixedFetcher{}, nil)
	data, err := r.Resolve(context.Background(), path)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if string(data) != "raster bytes" {
		t.Errorf("Unexpected content %q", data)
	}
}

func TestResolveLocalFile_Missing(t *testing.T) {
	r := NewResolver(&fixedFetcher{}, nil)

	_, err := r.Resolve(context.Background(), "/nonexistent/page.png")
	if err == nil {
		t.Fatal("Expected error for missing file")
	}
	if !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		t.Errorf("Expected not_found classification, got %v", err)
	}
}

func TestResolveHTTPRef(t *testing.T) {
	r := NewResolver(&fixedFetcher{data: []byte("downloaded")}, nil)

	data, err := r.Resolve(context.Background(), "https://example.com/page.png")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if string(data) != "downloaded" {
		t.Errorf("Unexpected content %q", data)
	}
}

func TestResolveBlobRef_Unconfigured(t *testing.T) {
	r := NewResolver(&fixedFetcher{}, nil)

	_, err := r.Resolve(context.Background(), "azblob://scans/page.png")
	if err == nil {
		t.Fatal("Expected error without blob fetcher")
	}
	if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Errorf("Expected validation classification, got %v", err)
	}
}

func TestResolveBlobRef(t *testing.T) {
	r := NewResolver(&fixedFetcher{}, &fixedFetcher{data: []byte("blob bytes")})

	data, err := r.Resolve(context.Background(), "azblob://scans/page.png")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if string(data) != "blob bytes" {
		t.Errorf("Unexpected content %q", data)
	}
}
