package scanner

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/sandraschi/ocr-gateway/internal/config"
	"github.com/sandraschi/ocr-gateway/internal/logger"
	"github.com/sirupsen/logrus"
)

// SANEDriver shells out to scanimage for enumeration and scanning. Each call
// spawns a fresh subprocess, which gives the connect-scan-disconnect cycle
// for free and lets context cancellation kill an in-flight transaction.
type SANEDriver struct {
	binary      string
	scanTimeout time.Duration

	runner commandRunner
}

// commandRunner is swapped out in tests to avoid touching real hardware.
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// NewSANEDriver builds the scanimage-backed driver.
func NewSANEDriver(cfg config.ScannerConfig) *SANEDriver {
	return &SANEDriver{
		binary:      cfg.Binary,
		scanTimeout: cfg.Timeout,
		runner: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			var stdout, stderr bytes.Buffer
			cmd := exec.CommandContext(ctx, name, args...)
			cmd.Stdout = &stdout
			cmd.Stderr = &stderr
			if err := cmd.Run(); err != nil {
				return nil, fmt.Errorf("%s: %w (%s)", name, err, strings.TrimSpace(stderr.String()))
			}
			return stdout.Bytes(), nil
		},
	}
}

// Detect enumerates SANE devices via scanimage's formatted device list.
func (d *SANEDriver) Detect(ctx context.Context) ([]ScannerInfo, error) {
	if _, err := exec.LookPath(d.binary); err != nil {
		return nil, fmt.Errorf("scan subsystem unusable, %s not found: %w", d.binary, err)
	}

	out, err := d.runner(ctx, d.binary, "-f", "%d|%v|%m%n")
	if err != nil {
		return nil, fmt.Errorf("device enumeration failed: %w", err)
	}

	var devices []ScannerInfo
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "|", 3)
		info := ScannerInfo{DeviceID: parts[0], Status: "ready"}
		if len(parts) > 1 {
			info.Vendor = parts[1]
		}
		if len(parts) > 2 {
			info.Name = parts[2]
		}
		if info.Name == "" {
			info.Name = info.DeviceID
		}
		devices = append(devices, info)
	}
	return devices, nil
}

// Properties queries the device's option listing and parses its capability
// ranges. Options scanimage does not report fall back to conservative
// defaults rather than failing the query.
func (d *SANEDriver) Properties(ctx context.Context, deviceID string) (*Properties, error) {
	out, err := d.runner(ctx, d.binary, "--device-name", deviceID, "-A")
	if err != nil {
		return nil, fmt.Errorf("property query for %s failed: %w", deviceID, err)
	}

	props := &Properties{
		DeviceID:        deviceID,
		Name:            deviceID,
		ResolutionRange: Range{Min: 75, Max: 600},
		ColorModes:      []string{"color", "gray", "lineart"},
		PaperSizes:      []string{"a4", "letter", "legal"},
		BrightnessRange: Range{Min: -100, Max: 100},
		ContrastRange:   Range{Min: -100, Max: 100},
	}

	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "--resolution"):
			if r, ok := parseResolution(line); ok {
				props.ResolutionRange = r
			}
		case strings.HasPrefix(line, "--mode"):
			if modes := parseModes(line); len(modes) > 0 {
				props.ColorModes = modes
			}
		}
	}
	return props, nil
}

// Scan runs one scanimage transaction and decodes the PNG raster it emits.
func (d *SANEDriver) Scan(ctx context.Context, deviceID string, settings ScanSettings) (image.Image, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && d.scanTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.scanTimeout)
		defer cancel()
	}

	args := []string{"--device-name", deviceID, "--format=png"}
	if settings.Resolution > 0 {
		args = append(args, "--resolution", strconv.Itoa(settings.Resolution))
	}
	if settings.ColorMode != "" {
		args = append(args, "--mode", saneMode(settings.ColorMode))
	}

	logger.WithFields(logrus.Fields{
		"device": deviceID,
		"args":   strings.Join(args, " "),
	}).Debug("Starting scan transaction")

	out, err := d.runner(ctx, d.binary, args...)
	if err != nil {
		return nil, fmt.Errorf("scan transaction on %s failed: %w", deviceID, err)
	}

	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("decode scanned raster: %w", err)
	}
	return img, nil
}

// parseResolution handles "--resolution 75..1200dpi [300]" and discrete
// "--resolution 75|150|300|600dpi [300]" option listings.
func parseResolution(line string) (Range, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return Range{}, false
	}
	spec := strings.TrimSuffix(fields[1], "dpi")

	if strings.Contains(spec, "..") {
		bounds := strings.SplitN(spec, "..", 2)
		lo, err1 := strconv.Atoi(bounds[0])
		hi, err2 := strconv.Atoi(bounds[1])
		if err1 != nil || err2 != nil {
			return Range{}, false
		}
		return Range{Min: lo, Max: hi}, true
	}

	var values []int
	for _, v := range strings.Split(spec, "|") {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Range{}, false
		}
		values = append(values, n)
	}
	if len(values) == 0 {
		return Range{}, false
	}
	r := Range{Min: values[0], Max: values[0]}
	for _, v := range values[1:] {
		if v < r.Min {
			r.Min = v
		}
		if v > r.Max {
			r.Max = v
		}
	}
	return r, true
}

// parseModes handles "--mode Lineart|Gray|Color [Color]".
func parseModes(line string) []string {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return nil
	}
	var modes []string
	for _, m := range strings.Split(fields[1], "|") {
		if m == "" {
			continue
		}
		modes = append(modes, strings.ToLower(m))
	}
	return modes
}

func saneMode(colorMode string) string {
	switch strings.ToLower(colorMode) {
	case "gray":
		return "Gray"
	case "lineart":
		return "Lineart"
	default:
		return "Color"
	}
}
