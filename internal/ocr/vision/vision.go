// Package vision implements the model-based recognition backend on top of an
// Ollama server running a vision-capable model.
package vision

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/sandraschi/ocr-gateway/internal/accuracy"
	"github.com/sandraschi/ocr-gateway/internal/config"
	apperrors "github.com/sandraschi/ocr-gateway/internal/errors"
	"github.com/sandraschi/ocr-gateway/internal/ocr"
	"github.com/sandraschi/ocr-gateway/internal/storage"
)

const backendName = "vision"

// Prompts per recognition mode. The model is instructed to return only the
// transcription so the response maps directly onto the result envelope.
const (
	promptText  = "Transcribe all text visible in this image. Return only the transcribed text, preserving line breaks. Do not describe the image."
	promptTable = "Extract the table in this image as rows of tab-separated values, one row per line. Return only the rows."
)

// Backend sends recognition requests to an Ollama chat endpoint.
type Backend struct {
	cfg    config.VisionConfig
	client *api.Client

	resolver *storage.Resolver
	cell     ocr.AvailabilityCell
}

// New constructs the vision backend. The host URL is validated here because
// a malformed host is a wiring error, not a runtime fault.
func New(cfg config.VisionConfig, resolver *storage.Resolver) (*Backend, error) {
	parsed, err := url.Parse(cfg.Host)
	if err != nil {
		return nil, fmt.Errorf("invalid vision host %q: %w", cfg.Host, err)
	}
	baseURL := &url.URL{Scheme: parsed.Scheme, Host: parsed.Host}

	return &Backend{
		cfg:      cfg,
		client:   api.NewClient(baseURL, http.DefaultClient),
		resolver: resolver,
	}, nil
}

func (b *Backend) Name() string { return backendName }

// Capabilities returns the static descriptor for the vision variant.
func (b *Backend) Capabilities() ocr.Capabilities {
	return ocr.Capabilities{
		Modes:       []ocr.Mode{ocr.ModeText, ocr.ModeTable},
		Formats:     []ocr.Format{ocr.FormatText, ocr.FormatJSON},
		Languages:   []string{"auto"},
		GPU:         true,
		Features:    []string{"handwriting", "layout_understanding"},
		Limitations: []string{"no_word_boxes", "nondeterministic_output"},
	}
}

// IsAvailable reports the memoized probe outcome.
func (b *Backend) IsAvailable(ctx context.Context) bool {
	return b.cell.Resolve(ctx, backendName, b.probe)
}

func (b *Backend) probe(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := b.client.Version(probeCtx); err != nil {
		return fmt.Errorf("ollama server unreachable at %s: %w", b.cfg.Host, err)
	}
	return nil
}

// ProcessImage sends the image to the vision model and returns its transcript.
func (b *Backend) ProcessImage(ctx context.Context, ref string, mode ocr.Mode, format ocr.Format, opts ocr.Options) (res ocr.Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = ocr.Failure(backendName, apperrors.ErrorTypeProcessingFailure,
				fmt.Errorf("vision engine panic: %v", r))
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

	if _, hasDeadline := ctx.Deadline(); !hasDeadline && b.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.Timeout)
		defer cancel()
	}

	prompt := promptText
	if mode == ocr.ModeTable {
		prompt = promptTable
	}
	if opts.Language != "" {
		prompt += " The text is in language: " + opts.Language + "."
	}

	streamFalse := false
	req := &api.ChatRequest{
		Model: b.cfg.Model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: prompt,
				Images:  []api.ImageData{api.ImageData(data)},
			},
		},
		Stream: &streamFalse,
	}

	var transcript string
	err = b.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		transcript = resp.Message.Content
		return nil
	})
	if err != nil {
		return ocr.Failure(backendName, apperrors.ErrorTypeProcessingFailure, fmt.Errorf("ollama chat error: %w", err))
	}

	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return ocr.Failure(backendName, apperrors.ErrorTypeProcessingFailure, fmt.Errorf("empty response from vision model"))
	}

	res = ocr.Result{
		Success: true,
		Backend: backendName,
		Text:    transcript,
		Metadata: map[string]interface{}{
			"model": b.cfg.Model,
		},
	}
	if opts.ExpectedText != "" {
		res.Metadata["accuracy"] = accuracy.Score(opts.ExpectedText, transcript)
	}
	return res
}
