// Package tesseract implements the locally-executed recognition backend on
// top of libtesseract via gosseract.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"time"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"

	"github.com/sandraschi/ocr-gateway/internal/accuracy"
	"github.com/sandraschi/ocr-gateway/internal/config"
	apperrors "github.com/sandraschi/ocr-gateway/internal/errors"
	"github.com/sandraschi/ocr-gateway/internal/ocr"
	"github.com/sandraschi/ocr-gateway/internal/storage"
)

const backendName = "tesseract"

// Backend runs recognition through a per-request gosseract client.
type Backend struct {
	cfg      config.TesseractConfig
	resolver *storage.Resolver
	cell     ocr.AvailabilityCell

	clientFactory func() *gosseract.Client
}

// New constructs the tesseract backend. Availability is not probed here;
// the first IsAvailable or dispatch pays that cost.
func New(cfg config.TesseractConfig, resolver *storage.Resolver) *Backend {
	return &Backend{
		cfg:           cfg,
		resolver:      resolver,
		clientFactory: gosseract.NewClient,
	}
}

func (b *Backend) Name() string { return backendName }

// Capabilities returns the static descriptor. It does not depend on whether
// libtesseract is actually present.
func (b *Backend) Capabilities() ocr.Capabilities {
	return ocr.Capabilities{
		Modes:       []ocr.Mode{ocr.ModeText, ocr.ModeDetailed, ocr.ModeTable},
		Formats:     []ocr.Format{ocr.FormatText, ocr.FormatJSON, ocr.FormatHOCR},
		Languages:   append([]string(nil), b.cfg.Languages...),
		GPU:         false,
		Features:    []string{"word_boxes", "hocr", "engine_variables"},
		Limitations: []string{"printed_text_only"},
	}
}

// IsAvailable reports the memoized probe outcome.
func (b *Backend) IsAvailable(ctx context.Context) bool {
	return b.cell.Resolve(ctx, backendName, b.probe)
}

func (b *Backend) probe(ctx context.Context) error {
	langs, err := gosseract.GetAvailableLanguages()
	if err != nil {
		return fmt.Errorf("tesseract language query failed: %w", err)
	}
	if len(langs) == 0 {
		return fmt.Errorf("tesseract reports no trained languages")
	}
	return nil
}

// ProcessImage runs recognition. Every internal fault is converted into a
// failed Result at this boundary.
func (b *Backend) ProcessImage(ctx context.Context, ref string, mode ocr.Mode, format ocr.Format, opts ocr.Options) (res ocr.Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = ocr.Failure(backendName, apperrors.ErrorTypeProcessingFailure,
				fmt.Errorf("tesseract engine panic: %v", r))
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

	if opts.Region != nil && !opts.Region.IsEmpty() {
		data, err = cropRegion(data, *opts.Region)
		if err != nil {
			return ocr.Failure(backendName, apperrors.ErrorTypeProcessingFailure, err)
		}
	}

	client := b.clientFactory()
	defer client.Close()

	if err := b.configureClient(client, mode, opts); err != nil {
		return ocr.Failure(backendName, apperrors.ErrorTypeProcessingFailure, err)
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return ocr.Failure(backendName, apperrors.ErrorTypeProcessingFailure, fmt.Errorf("set image: %w", err))
	}

	var text string
	if format == ocr.FormatHOCR {
		text, err = client.HOCRText()
	} else {
		text, err = client.Text()
	}
	if err != nil {
		return ocr.Failure(backendName, apperrors.ErrorTypeProcessingFailure, fmt.Errorf("recognize text: %w", err))
	}

	res = ocr.Result{
		Success: true,
		Backend: backendName,
		Text:    text,
	}

	words, avgConfidence := extractWords(client)
	res.Confidence = avgConfidence
	if mode == ocr.ModeDetailed {
		res.Words = words
	}

	if opts.ExpectedText != "" {
		res.Metadata = map[string]interface{}{
			"accuracy": accuracy.Score(opts.ExpectedText, text),
		}
	}
	return res
}

func (b *Backend) configureClient(client *gosseract.Client, mode ocr.Mode, opts ocr.Options) error {
	langs := b.cfg.Languages
	if opts.Language != "" {
		langs = []string{opts.Language}
	}
	if err := client.SetLanguage(langs...); err != nil {
		return fmt.Errorf("set languages: %w", err)
	}
	if b.cfg.DataPath != "" {
		if err := client.SetTessdataPrefix(b.cfg.DataPath); err != nil {
			return fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	if opts.DPI > 0 {
		if err := client.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprint(opts.DPI)); err != nil {
			return fmt.Errorf("set dpi: %w", err)
		}
	}
	if mode == ocr.ModeTable {
		// Single uniform block segmentation keeps rows together.
		if err := client.SetVariable(gosseract.SettableVariable("tessedit_pageseg_mode"), "6"); err != nil {
			return fmt.Errorf("set page segmentation: %w", err)
		}
	}
	for k, v := range opts.Variables {
		if err := client.SetVariable(gosseract.SettableVariable(k), v); err != nil {
			return fmt.Errorf("set variable %s: %w", k, err)
		}
	}
	return nil
}

func extractWords(client *gosseract.Client) ([]ocr.Word, float64) {
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return nil, 0
	}
	words := make([]ocr.Word, 0, len(boxes))
	var sum float64
	for _, box := range boxes {
		conf := box.Confidence / 100.0
		sum += conf
		words = append(words, ocr.Word{
			Text:       box.Word,
			Confidence: conf,
			X:          box.Box.Min.X,
			Y:          box.Box.Min.Y,
			Width:      box.Box.Dx(),
			Height:     box.Box.Dy(),
		})
	}
	return words, sum / float64(len(words))
}

func cropRegion(data []byte, region ocr.Region) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	rect := image.Rect(region.X, region.Y, region.X+region.Width, region.Y+region.Height)
	cropped := imaging.Crop(img, rect)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, cropped, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode cropped image: %w", err)
	}
	return buf.Bytes(), nil
}
