package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPFetcher downloads images over HTTP with a transport tuned for single
// image fetches and bounded retries on transient failures.
type HTTPFetcher struct {
	client  *http.Client
	maxSize int64
}

// NewHTTPFetcher creates an HTTP image fetcher. maxSize caps the downloaded
// payload in bytes; zero or negative means 32MB.
func NewHTTPFetcher(timeout time.Duration, maxSize int64) *HTTPFetcher {
	if maxSize <= 0 {
		maxSize = 32 * 1024 * 1024
	}
	transport := &http.Transport{
		// Connection pooling sized for occasional single-image downloads
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		MaxResponseHeaderBytes: 4096,
	}

	return &HTTPFetcher{
		maxSize: maxSize,
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
	}
}

// Fetch downloads ref. 5xx responses are retried up to three attempts with a
// linear backoff; 4xx responses fail immediately.
func (h *HTTPFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}

		data, retryable, err := h.fetchOnce(ctx, ref)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}

	return nil, fmt.Errorf("failed to fetch image after retries: %w", lastErr)
}

func (h *HTTPFetcher) fetchOnce(ctx context.Context, ref string) (data []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, false, fmt.Errorf("invalid URL: %w", err)
	}
	req.Header.Set("Accept", "image/jpeg, image/png, image/webp, image/tiff, */*")
	req.Header.Set("User-Agent", "ocr-gateway/1.0")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, h.maxSize+1))
		if err != nil {
			return nil, true, fmt.Errorf("read body: %w", err)
		}
		if int64(len(body)) > h.maxSize {
			return nil, false, fmt.Errorf("image exceeds %d byte limit", h.maxSize)
		}
		return body, false, nil
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("server error: status code %d", resp.StatusCode)
	default:
		return nil, false, fmt.Errorf("client error: status code %d", resp.StatusCode)
	}
}
