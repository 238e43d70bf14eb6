// Package ocr defines the recognition backend contract and the dispatch
// engine that routes requests to registered engine variants.
package ocr

import (
	"context"
	"net/http"

	apperrors "github.com/sandraschi/ocr-gateway/internal/errors"
)

// Mode selects the recognition mode of a request.
type Mode string

const (
	// ModeText extracts linearized plain text.
	ModeText Mode = "text"
	// ModeDetailed extracts text plus per-word boxes and confidences.
	ModeDetailed Mode = "detailed"
	// ModeTable extracts tabular content row by row.
	ModeTable Mode = "table"
)

// Format selects the output representation of a result.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatHOCR Format = "hocr"
)

// Region restricts recognition to a rectangular area in pixel coordinates
// with the origin in the upper-left corner of the image.
type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// IsEmpty reports whether the region has non-positive dimensions.
func (r Region) IsEmpty() bool { return r.Width <= 0 || r.Height <= 0 }

// Options carries per-request knobs. The zero value is a valid request.
type Options struct {
	// Language overrides the backend's default recognition language.
	Language string
	// Region restricts recognition to a subsection of the image. Nil means
	// the full image is processed.
	Region *Region
	// ExpectedText, when set, enables accuracy scoring against the
	// recognized text (match score, word and character error rates).
	ExpectedText string
	// DPI carries the effective dots-per-inch of the input; zero means unknown.
	DPI int
	// Variables passes through engine-specific knobs (e.g. "tessedit_pageseg_mode")
	// without hard-coding them into the API surface.
	Variables map[string]string
}

// Word is a single recognized token with its bounding box.
type Word struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
}

// Result is the uniform envelope every backend returns. It is immutable once
// returned and never carries a raised fault: internal failures are converted
// to Success=false with a classified error.
type Result struct {
	Success           bool                   `json:"success"`
	Text              string                 `json:"text,omitempty"`
	Confidence        float64                `json:"confidence,omitempty"`
	Backend           string                 `json:"backend"`
	Mode              Mode                   `json:"mode,omitempty"`
	Format            Format                 `json:"format,omitempty"`
	ProcessingTimeSec float64                `json:"processing_time_sec"`
	Words             []Word                 `json:"words,omitempty"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
	Error             string                 `json:"error,omitempty"`
	ErrorType         apperrors.ErrorType    `json:"error_type,omitempty"`
}

// Capabilities is a backend's static descriptor. It is pure and deterministic:
// it never depends on the backend's current availability.
type Capabilities struct {
	Modes       []Mode   `json:"modes"`
	Formats     []Format `json:"formats"`
	Languages   []string `json:"languages"`
	GPU         bool     `json:"gpu"`
	Features    []string `json:"features,omitempty"`
	Limitations []string `json:"limitations,omitempty"`
}

// SupportsMode reports whether the descriptor lists the given mode.
func (c Capabilities) SupportsMode(m Mode) bool {
	for _, candidate := range c.Modes {
		if candidate == m {
			return true
		}
	}
	return false
}

// SupportsFormat reports whether the descriptor lists the given format.
func (c Capabilities) SupportsFormat(f Format) bool {
	for _, candidate := range c.Formats {
		if candidate == f {
			return true
		}
	}
	return false
}

// Backend is the capability contract implemented by every engine variant.
type Backend interface {
	// Name returns the unique backend identifier.
	Name() string

	// IsAvailable probes whether the underlying engine is usable in the
	// current environment. The probe runs once per process lifetime and the
	// outcome is memoized; probe failures log their cause and yield false.
	IsAvailable(ctx context.Context) bool

	// ProcessImage runs recognition on the image named by ref (a local path,
	// http(s) URL or azblob reference). Every internal failure is converted
	// into a Success=false Result at this boundary.
	ProcessImage(ctx context.Context, ref string, mode Mode, format Format, opts Options) Result

	// Capabilities returns the backend's static capability descriptor.
	Capabilities() Capabilities
}

// Failure builds a failed result with a classified error.
func Failure(backend string, errType apperrors.ErrorType, err error) Result {
	return Result{
		Success:   false,
		Backend:   backend,
		Error:     err.Error(),
		ErrorType: errType,
	}
}

// Classify extracts the error classification from an AppError, defaulting to
// a processing failure for plain errors.
func Classify(err error) apperrors.ErrorType {
	if appErr, ok := err.(*apperrors.AppError); ok {
		return appErr.Type
	}
	return apperrors.ErrorTypeProcessingFailure
}

// CheckRequest validates mode and format against a backend's own descriptor.
// An unsupported combination is rejected up front so the engine never starts
// work it cannot finish.
func CheckRequest(backend string, caps Capabilities, mode Mode, format Format) *apperrors.AppError {
	if !caps.SupportsMode(mode) {
		return &apperrors.AppError{
			Type:       apperrors.ErrorTypeUnsupportedMode,
			Message:    "backend " + backend + " does not support mode " + string(mode),
			StatusCode: http.StatusBadRequest,
		}
	}
	if !caps.SupportsFormat(format) {
		return &apperrors.AppError{
			Type:       apperrors.ErrorTypeUnsupportedMode,
			Message:    "backend " + backend + " does not support output format " + string(format),
			StatusCode: http.StatusBadRequest,
		}
	}
	return nil
}
