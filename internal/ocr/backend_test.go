package ocr

import (
	"errors"
	"testing"

	apperrors "github.com/sandraschi/ocr-gateway/internal/errors"
)

func TestCheckRequest(t *testing.T) {
	caps := Capabilities{
		Modes:   []Mode{ModeText, ModeDetailed},
		Formats: []Format{FormatText, FormatHOCR},
	}

	tests := []struct {
		name    string
		mode    Mode
		format  Format
		wantErr bool
	}{
		{"Supported combination", ModeText, FormatText, false},
		{"Supported detailed hocr", ModeDetailed, FormatHOCR, false},
		{"Unsupported mode", ModeTable, FormatText, true},
		{"Unsupported format", ModeText, FormatJSON, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckRequest("tesseract", caps, tt.mode, tt.format)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected rejection, got nil")
				}
				if err.Type != apperrors.ErrorTypeUnsupportedMode {
					t.Errorf("Expected unsupported_mode, got %q", err.Type)
				}
				return
			}
			if err != nil {
				t.Errorf("CheckRequest() = %v, want nil", err)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	if got := Classify(apperrors.NewNotFoundError("image missing", nil)); got != apperrors.ErrorTypeNotFound {
		t.Errorf("Classify(AppError) = %q, want %q", got, apperrors.ErrorTypeNotFound)
	}
	if got := Classify(errors.New("segfault in engine")); got != apperrors.ErrorTypeProcessingFailure {
		t.Errorf("Classify(plain error) = %q, want %q", got, apperrors.ErrorTypeProcessingFailure)
	}
}

func TestFailure(t *testing.T) {
	result := Failure("tesseract", apperrors.ErrorTypeProcessingFailure, errors.New("engine crashed"))

	if result.Success {
		t.Error("Expected failed result")
	}
	if result.Backend != "tesseract" || result.Error != "engine crashed" {
		t.Errorf("Unexpected envelope: %+v", result)
	}
	if result.ErrorType != apperrors.ErrorTypeProcessingFailure {
		t.Errorf("Expected processing_failure, got %q", result.ErrorType)
	}
}

func TestRegionIsEmpty(t *testing.T) {
	tests := []struct {
		name   string
		region Region
		want   bool
	}{
		{"Zero value", Region{}, true},
		{"Valid region", Region{X: 10, Y: 10, Width: 100, Height: 50}, false},
		{"Zero width", Region{Width: 0, Height: 50}, true},
		{"Negative height", Region{Width: 100, Height: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.region.IsEmpty(); got != tt.want {
				t.Errorf("IsEmpty() = %v, want %v", got, tt.want)
			}
		})
	}
}
