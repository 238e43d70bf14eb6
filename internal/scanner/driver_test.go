package scanner

import (
	"testing"

	apperrors "github.com/sandraschi/ocr-gateway/internal/errors"
)

func TestSettingsFromMap(t *testing.T) {
	tests := []struct {
		name    string
		raw     map[string]interface{}
		want    ScanSettings
		wantErr bool
	}{
		{
			name: "Full settings",
			raw: map[string]interface{}{
				"dpi":        300,
				"color_mode": "gray",
				"paper_size": "a4",
				"brightness": 10,
				"contrast":   -5,
			},
			want: ScanSettings{Resolution: 300, ColorMode: "gray", PaperSize: "a4", Brightness: 10, Contrast: -5},
		},
		{
			name: "Empty map uses defaults",
			raw:  map[string]interface{}{},
			want: ScanSettings{},
		},
		{
			name: "Nil map uses defaults",
			raw:  nil,
			want: ScanSettings{},
		},
		{
			name:    "Unknown field rejected",
			raw:     map[string]interface{}{"dpii": 300},
			wantErr: true,
		},
		{
			name:    "Wrong type rejected",
			raw:     map[string]interface{}{"dpi": "three hundred"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SettingsFromMap(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error, got nil")
				}
				if !apperrors.IsType(err, apperrors.ErrorTypeInvalidSettings) {
					t.Errorf("Expected invalid_settings error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("SettingsFromMap() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("SettingsFromMap() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestScanSettingsValidate(t *testing.T) {
	props := &Properties{
		DeviceID:        "epson:001",
		ResolutionRange: Range{Min: 75, Max: 1200},
		ColorModes:      []string{"color", "gray", "lineart"},
		PaperSizes:      []string{"a4", "letter"},
		BrightnessRange: Range{Min: -100, Max: 100},
		ContrastRange:   Range{Min: -100, Max: 100},
	}

	tests := []struct {
		name     string
		settings ScanSettings
		wantErr  bool
	}{
		{
			name:     "In-range settings",
			settings: ScanSettings{Resolution: 300, ColorMode: "gray", PaperSize: "a4", Brightness: 50},
		},
		{
			name:     "Zero values skip validation",
			settings: ScanSettings{},
		},
		{
			name:     "Resolution above device maximum",
			settings: ScanSettings{Resolution: 99999},
			wantErr:  true,
		},
		{
			name:     "Resolution below device minimum",
			settings: ScanSettings{Resolution: 50},
			wantErr:  true,
		},
		{
			name:     "Unsupported color mode",
			settings: ScanSettings{ColorMode: "infrared"},
			wantErr:  true,
		},
		{
			name:     "Unsupported paper size",
			settings: ScanSettings{PaperSize: "a0"},
			wantErr:  true,
		},
		{
			name:     "Brightness out of range",
			settings: ScanSettings{Brightness: 250},
			wantErr:  true,
		},
		{
			name:     "Contrast out of range",
			settings: ScanSettings{Contrast: -250},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.settings.Validate(props)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected validation error, got nil")
				}
				if !apperrors.IsType(err, apperrors.ErrorTypeInvalidSettings) {
					t.Errorf("Expected invalid_settings error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() error = %v", err)
			}
		})
	}
}

func TestRangeContains(t *testing.T) {
	r := Range{Min: 75, Max: 1200}
	for _, v := range []int{75, 300, 1200} {
		if !r.Contains(v) {
			t.Errorf("Expected %d inside %d-%d", v, r.Min, r.Max)
		}
	}
	for _, v := range []int{74, 1201, -1} {
		if r.Contains(v) {
			t.Errorf("Expected %d outside %d-%d", v, r.Min, r.Max)
		}
	}
}
