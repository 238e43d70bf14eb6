// Package cloud implements the remote-API recognition backend against a
// JSON-over-HTTP OCR service authenticated by API key.
package cloud

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sandraschi/ocr-gateway/internal/accuracy"
	"github.com/sandraschi/ocr-gateway/internal/config"
	apperrors "github.com/sandraschi/ocr-gateway/internal/errors"
	"github.com/sandraschi/ocr-gateway/internal/ocr"
	"github.com/sandraschi/ocr-gateway/internal/storage"
)

const backendName = "cloud"

// wire types for the remote OCR service.
type recognizeRequest struct {
	Image    string `json:"image"`
	Mode     string `json:"mode"`
	Language string `json:"language,omitempty"`
}

type recognizeResponse struct {
	Text       string     `json:"text"`
	Confidence float64    `json:"confidence,omitempty"`
	Words      []wireWord `json:"words,omitempty"`
	Error      string     `json:"error,omitempty"`
}

type wireWord struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
}

// Backend posts base64-encoded images to the configured endpoint.
type Backend struct {
	cfg      config.CloudConfig
	client   *http.Client
	resolver *storage.Resolver
	cell     ocr.AvailabilityCell
}

// New constructs the cloud backend.
func New(cfg config.CloudConfig, resolver *storage.Resolver) *Backend {
	return &Backend{
		cfg:      cfg,
		resolver: resolver,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

func (b *Backend) Name() string { return backendName }

// Capabilities returns the static descriptor for the cloud variant.
func (b *Backend) Capabilities() ocr.Capabilities {
	return ocr.Capabilities{
		Modes:       []ocr.Mode{ocr.ModeText, ocr.ModeDetailed},
		Formats:     []ocr.Format{ocr.FormatText, ocr.FormatJSON},
		Languages:   []string{"auto"},
		GPU:         true,
		Features:    []string{"word_boxes", "handwriting"},
		Limitations: []string{"requires_network", "payload_size_limits"},
	}
}

// IsAvailable reports the memoized probe outcome. The probe checks credential
// presence and endpoint reachability; it never raises.
func (b *Backend) IsAvailable(ctx context.Context) bool {
	return b.cell.Resolve(ctx, backendName, b.probe)
}

func (b *Backend) probe(ctx context.Context) error {
	if b.cfg.Endpoint == "" || b.cfg.APIKey == "" {
		return fmt.Errorf("cloud OCR endpoint or API key not configured")
	}

	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, b.cfg.Endpoint, nil)
	if err != nil {
		return fmt.Errorf("invalid cloud OCR endpoint: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+b.cfg.APIKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("cloud OCR endpoint unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("cloud OCR endpoint unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// ProcessImage posts the image for remote recognition.
func (b *Backend) ProcessImage(ctx context.Context, ref string, mode ocr.Mode, format ocr.Format, opts ocr.Options) (res ocr.Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = ocr.Failure(backendName, apperrors.ErrorTypeProcessingFailure,
				fmt.Errorf("cloud engine panic: %v", r))
		}
		res.Mode = mode
		res.Format = format
		res.ProcessingTimeSec = time.Since(start).Seconds()
	}()

	if appErr := ocr.CheckRequest(backendName, b.Capabilities(), mode, format); appErr != nil {
		return ocr.Failure(backendName, appErr.Type, appErr)
	}

	data, err := b.resolver.Resolve(ctx, ref)
	if err != nil {
		return ocr.Failure(backendName, ocr.Classify(err), err)
	}

	payload, err := json.Marshal(recognizeRequest{
		Image:    base64.StdEncoding.EncodeToString(data),
		Mode:     string(mode),
		Language: opts.Language,
	})
	if err != nil {
		return ocr.Failure(backendName, apperrors.ErrorTypeProcessingFailure, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return ocr.Failure(backendName, apperrors.ErrorTypeProcessingFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.cfg.APIKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return ocr.Failure(backendName, apperrors.ErrorTypeNetwork, fmt.Errorf("cloud OCR request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16*1024*1024))
	if err != nil {
		return ocr.Failure(backendName, apperrors.ErrorTypeNetwork, fmt.Errorf("read cloud OCR response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return ocr.Failure(backendName, apperrors.ErrorTypeProcessingFailure,
			fmt.Errorf("cloud OCR returned status %d", resp.StatusCode))
	}

	var decoded recognizeResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return ocr.Failure(backendName, apperrors.ErrorTypeProcessingFailure, fmt.Errorf("decode cloud OCR response: %w", err))
	}
	if decoded.Error != "" {
		return ocr.Failure(backendName, apperrors.ErrorTypeProcessingFailure, fmt.Errorf("cloud OCR error: %s", decoded.Error))
	}

	res = ocr.Result{
		Success:    true,
		Backend:    backendName,
		Text:       decoded.Text,
		Confidence: decoded.Confidence,
	}
	if mode == ocr.ModeDetailed {
		for _, w := range decoded.Words {
			res.Words = append(res.Words, ocr.Word{
				Text:       w.Text,
				Confidence: w.Confidence,
				X:          w.X,
				Y:          w.Y,
				Width:      w.Width,
				Height:     w.Height,
			})
		}
	}
	if opts.ExpectedText != "" {
		res.Metadata = map[string]interface{}{
			"accuracy": accuracy.Score(opts.ExpectedText, decoded.Text),
		}
	}
	return res
}
