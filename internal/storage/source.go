// Package storage resolves image references into raw bytes. A reference is a
// local file path, an http(s) URL, or an azblob:// blob reference.
package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	apperrors "github.com/sandraschi/ocr-gateway/internal/errors"
)

// Fetcher retrieves the raw bytes behind a remote image reference.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// Resolver dispatches an image reference to the fetcher matching its scheme.
// Local paths are read directly from disk.
type Resolver struct {
	http Fetcher
	blob Fetcher
}

// NewResolver builds a resolver. blob may be nil when no Azure credentials
// are configured; azblob refs then resolve to a validation error.
func NewResolver(httpFetcher, blobFetcher Fetcher) *Resolver {
	return &Resolver{http: httpFetcher, blob: blobFetcher}
}

// Resolve returns the image bytes for ref.
func (r *Resolver) Resolve(ctx context.Context, ref string) ([]byte, error) {
	switch {
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		if _, err := url.Parse(ref); err != nil {
			return nil, apperrors.NewValidationError("invalid image URL", err)
		}
		data, err := r.http.Fetch(ctx, ref)
		if err != nil {
			return nil, apperrors.NewNetworkError("failed to fetch image", err)
		}
		return data, nil

	case strings.HasPrefix(ref, "azblob://"):
		if r.blob == nil {
			return nil, apperrors.NewValidationError("azure blob storage is not configured", nil)
		}
		data, err := r.blob.Fetch(ctx, ref)
		if err != nil {
			return nil, apperrors.NewNetworkError("failed to download blob", err)
		}
		return data, nil

	default:
		data, err := os.ReadFile(ref)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, apperrors.NewNotFoundError(fmt.Sprintf("image file %s not found", ref), err)
			}
			return nil, apperrors.NewInternalError("failed to read image file", err)
		}
		return data, nil
	}
}
