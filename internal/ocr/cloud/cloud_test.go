package cloud

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sandraschi/ocr-gateway/internal/config"
	apperrors "github.com/sandraschi/ocr-gateway/internal/errors"
	"github.com/sandraschi/ocr-gateway/internal/ocr"
	"github.com/sandraschi/ocr-gateway/internal/storage"
)

func testResolver() *storage.Resolver {
	return storage.NewResolver(storage.NewHTTPFetcher(5*time.Second, 1024*1024), nil)
}

func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "page.png")
	if err := os.WriteFile(path, []byte("fake raster"), 0o600); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return path
}

func testBackend(endpoint string) *Backend {
	return New(config.CloudConfig{
		Endpoint: endpoint,
		APIKey:   "test-key",
		Timeout:  5 * time.Second,
	}, testResolver())
}

func TestIsAvailable_MissingCredentials(t *testing.T) {
	b := New(config.CloudConfig{Timeout: time.Second}, testResolver())
	if b.IsAvailable(context.Background()) {
		t.Error("Expected unavailable without endpoint and key")
	}
}

func TestIsAvailable_HealthyEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Expected bearer auth on probe, got %q", got)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	if !testBackend(server.URL).IsAvailable(context.Background()) {
		t.Error("Expected available against healthy endpoint")
	}
}

func TestIsAvailable_UnhealthyEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	if testBackend(server.URL).IsAvailable(context.Background()) {
		t.Error("Expected unavailable against 500ing endpoint")
	}
}

func TestProcessImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req recognizeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if req.Image == "" || req.Mode != "text" {
			t.Errorf("Unexpected request payload: %+v", req)
		}
		json.NewEncoder(w).Encode(recognizeResponse{Text: "recognized text", Confidence: 0.93})
	}))
	defer server.Close()

	result := testBackend(server.URL).ProcessImage(context.Background(), writeFixture(t),
		ocr.ModeText, ocr.FormatText, ocr.Options{})

	if !result.Success {
		t.Fatalf("Expected success, got %q (%s)", result.Error, result.ErrorType)
	}
	if result.Text != "recognized text" || result.Confidence != 0.93 {
		t.Errorf("Unexpected result: %+v", result)
	}
	if result.Backend != "cloud" || result.Mode != ocr.ModeText {
		t.Errorf("Expected envelope fields filled, got %+v", result)
	}
	if result.ProcessingTimeSec <= 0 {
		t.Error("Expected processing time to be recorded")
	}
}

func TestProcessImage_DetailedMode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(recognizeResponse{
			Text: "hello",
			Words: []wireWord{
				{Text: "hello", Confidence: 0.9, X: 10, Y: 20, Width: 50, Height: 12},
			},
		})
	}))
	defer server.Close()

	result := testBackend(server.URL).ProcessImage(context.Background(), writeFixture(t),
		ocr.ModeDetailed, ocr.FormatJSON, ocr.Options{})

	if !result.Success {
		t.Fatalf("Expected success, got %q", result.Error)
	}
	if len(result.Words) != 1 || result.Words[0].Text != "hello" {
		t.Errorf("Expected word boxes in detailed mode, got %+v", result.Words)
	}
}

func TestProcessImage_UnsupportedMode(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer server.Close()

	result := testBackend(server.URL).ProcessImage(context.Background(), writeFixture(t),
		ocr.ModeText, ocr.FormatHOCR, ocr.Options{})

	if result.Success {
		t.Error("Expected failure for unsupported format")
	}
	if result.ErrorType != apperrors.ErrorTypeUnsupportedMode {
		t.Errorf("Expected unsupported_mode, got %q", result.ErrorType)
	}
	if hits != 0 {
		t.Errorf("Expected no network call for rejected request, got %d", hits)
	}
}

func TestProcessImage_MissingImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	result := testBackend(server.URL).ProcessImage(context.Background(), "/nonexistent/page.png",
		ocr.ModeText, ocr.FormatText, ocr.Options{})

	if result.Success {
		t.Error("Expected failure for missing image")
	}
	if result.ErrorType != apperrors.ErrorTypeNotFound {
		t.Errorf("Expected not_found, got %q", result.ErrorType)
	}
}

func TestProcessImage_ServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(recognizeResponse{Error: "unsupported image codec"})
	}))
	defer server.Close()

	result := testBackend(server.URL).ProcessImage(context.Background(), writeFixture(t),
		ocr.ModeText, ocr.FormatText, ocr.Options{})

	if result.Success {
		t.Error("Expected failure for service-reported error")
	}
	if result.ErrorType != apperrors.ErrorTypeProcessingFailure {
		t.Errorf("Expected processing_failure, got %q", result.ErrorType)
	}
}

func TestProcessImage_UnreachableService(t *testing.T) {
	result := testBackend("http://127.0.0.1:1").ProcessImage(context.Background(), writeFixture(t),
		ocr.ModeText, ocr.FormatText, ocr.Options{})

	if result.Success {
		t.Error("Expected failure for unreachable service")
	}
	if result.ErrorType != apperrors.ErrorTypeNetwork {
		t.Errorf("Expected network classification, got %q", result.ErrorType)
	}
}

func TestCapabilities_Deterministic(t *testing.T) {
	b := New(config.CloudConfig{}, testResolver())

	first := b.Capabilities()
	second := b.Capabilities()

	if len(first.Modes) != len(second.Modes) || len(first.Formats) != len(second.Formats) {
		t.Error("Expected identical descriptors across calls")
	}
	if !first.SupportsMode(ocr.ModeText) || first.SupportsMode(ocr.ModeTable) {
		t.Errorf("Unexpected mode support: %v", first.Modes)
	}
}
