// Package scanner exposes physical scan hardware behind a validated,
// per-device-serialized manager.
package scanner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"

	apperrors "github.com/sandraschi/ocr-gateway/internal/errors"
)

// ScannerInfo identifies one discovered scan device.
type ScannerInfo struct {
	DeviceID string `json:"device_id"`
	Name     string `json:"name"`
	Vendor   string `json:"vendor"`
	Status   string `json:"status"`
}

// Range is an inclusive numeric capability range.
type Range struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Contains reports whether v lies inside the range.
func (r Range) Contains(v int) bool { return v >= r.Min && v <= r.Max }

// Properties is a device's declared capability envelope. Scan settings are
// validated against it before any hardware transaction.
type Properties struct {
	DeviceID        string   `json:"device_id"`
	Name            string   `json:"name"`
	Vendor          string   `json:"vendor"`
	ResolutionRange Range    `json:"resolution_range"`
	ColorModes      []string `json:"color_modes"`
	PaperSizes      []string `json:"paper_sizes"`
	BrightnessRange Range    `json:"brightness_range"`
	ContrastRange   Range    `json:"contrast_range"`
}

// ScanSettings configures one scan transaction.
type ScanSettings struct {
	Resolution int    `json:"dpi"`
	ColorMode  string `json:"color_mode,omitempty"`
	PaperSize  string `json:"paper_size,omitempty"`
	Brightness int    `json:"brightness,omitempty"`
	Contrast   int    `json:"contrast,omitempty"`
}

// SettingsFromMap decodes a loose settings map from the wire. Unknown fields
// are rejected so a typo fails fast instead of being silently ignored.
func SettingsFromMap(raw map[string]interface{}) (ScanSettings, error) {
	var settings ScanSettings

	encoded, err := json.Marshal(raw)
	if err != nil {
		return settings, apperrors.NewInvalidSettingsError("settings are not encodable", err)
	}
	dec := json.NewDecoder(bytes.NewReader(encoded))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&settings); err != nil {
		return settings, apperrors.NewInvalidSettingsError("unrecognized or malformed scan setting", err)
	}
	return settings, nil
}

// Validate checks the settings against the device's capability envelope.
// Every out-of-range field fails fast, before any hardware call.
func (s ScanSettings) Validate(props *Properties) error {
	if s.Resolution != 0 && !props.ResolutionRange.Contains(s.Resolution) {
		return apperrors.NewInvalidSettingsError(
			fmt.Sprintf("resolution %d dpi outside device range %d-%d",
				s.Resolution, props.ResolutionRange.Min, props.ResolutionRange.Max), nil)
	}
	if s.ColorMode != "" && !containsString(props.ColorModes, s.ColorMode) {
		return apperrors.NewInvalidSettingsError(
			fmt.Sprintf("color mode %q not supported by device (supported: %v)", s.ColorMode, props.ColorModes), nil)
	}
	if s.PaperSize != "" && len(props.PaperSizes) > 0 && !containsString(props.PaperSizes, s.PaperSize) {
		return apperrors.NewInvalidSettingsError(
			fmt.Sprintf("paper size %q not supported by device (supported: %v)", s.PaperSize, props.PaperSizes), nil)
	}
	if s.Brightness != 0 && !props.BrightnessRange.Contains(s.Brightness) {
		return apperrors.NewInvalidSettingsError(
			fmt.Sprintf("brightness %d outside device range %d-%d",
				s.Brightness, props.BrightnessRange.Min, props.BrightnessRange.Max), nil)
	}
	if s.Contrast != 0 && !props.ContrastRange.Contains(s.Contrast) {
		return apperrors.NewInvalidSettingsError(
			fmt.Sprintf("contrast %d outside device range %d-%d",
				s.Contrast, props.ContrastRange.Min, props.ContrastRange.Max), nil)
	}
	return nil
}

// Driver abstracts the hardware subsystem. Every Scan call is a fresh
// connect, scan, disconnect cycle; drivers retain no session between calls.
type Driver interface {
	// Detect enumerates attached devices. An unusable hardware subsystem
	// returns an error; the manager degrades it to an empty cache.
	Detect(ctx context.Context) ([]ScannerInfo, error)

	// Properties queries one device's capability envelope.
	Properties(ctx context.Context, deviceID string) (*Properties, error)

	// Scan executes one transaction and returns the raster.
	Scan(ctx context.Context, deviceID string, settings ScanSettings) (image.Image, error)
}

func containsString(list []string, v string) bool {
	for _, candidate := range list {
		if candidate == v {
			return true
		}
	}
	return false
}
