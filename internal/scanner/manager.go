package scanner

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/singleflight"

	apperrors "github.com/sandraschi/ocr-gateway/internal/errors"
	"github.com/sandraschi/ocr-gateway/internal/logger"
	"github.com/sirupsen/logrus"
)

// Manager owns the discovered-device cache and enforces the one-transaction-
// per-device discipline. It is the single writer of the cache; concurrent
// discovery requests collapse onto one enumeration via singleflight.
type Manager struct {
	driver Driver

	discoverGroup singleflight.Group

	mu         sync.Mutex
	devices    []ScannerInfo
	discovered bool
	hardwareOK bool

	locksMu     sync.Mutex
	deviceLocks map[string]*sync.Mutex
}

// NewManager builds a scanner manager over the given driver.
func NewManager(driver Driver) *Manager {
	return &Manager{
		driver:      driver,
		deviceLocks: make(map[string]*sync.Mutex),
	}
}

// DiscoverScanners returns the cached device list, enumerating the hardware
// subsystem on first use or when forceRefresh is set. An unusable hardware
// layer degrades to an empty list and flips HardwareAvailable to false; it is
// never surfaced as a fault.
func (m *Manager) DiscoverScanners(ctx context.Context, forceRefresh bool) []ScannerInfo {
	m.mu.Lock()
	if m.discovered && !forceRefresh {
		cached := make([]ScannerInfo, len(m.devices))
		copy(cached, m.devices)
		m.mu.Unlock()
		return cached
	}
	m.mu.Unlock()

	result, _, _ := m.discoverGroup.Do("discover", func() (interface{}, error) {
		devices, err := m.driver.Detect(ctx)

		m.mu.Lock()
		defer m.mu.Unlock()
		m.discovered = true
		if err != nil {
			logger.WithError(err).Warn("Hardware layer unavailable, scanner discovery degraded")
			m.devices = nil
			m.hardwareOK = false
			return []ScannerInfo{}, nil
		}
		m.devices = devices
		m.hardwareOK = true

		logger.WithFields(logrus.Fields{
			"count": len(devices),
		}).Info("Scanner discovery completed")

		out := make([]ScannerInfo, len(devices))
		copy(out, devices)
		return out, nil
	})

	return result.([]ScannerInfo)
}

// HardwareAvailable reports whether the last enumeration reached the hardware
// subsystem. It triggers discovery on first use.
func (m *Manager) HardwareAvailable(ctx context.Context) bool {
	m.DiscoverScanners(ctx, false)

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hardwareOK
}

// GetScannerProperties returns a device's capability envelope, or nil when
// the device is absent from the last discovery or the hardware layer refuses
// the query.
func (m *Manager) GetScannerProperties(ctx context.Context, deviceID string) *Properties {
	if !m.knownDevice(ctx, deviceID) {
		return nil
	}

	props, err := m.driver.Properties(ctx, deviceID)
	if err != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"device": deviceID,
		}).Warn("Property query refused")
		return nil
	}
	return props
}

// ScanDocument validates settings against the device's capability envelope,
// then executes one scan transaction. Calls targeting the same device are
// serialized on a per-device lock; distinct devices proceed independently.
func (m *Manager) ScanDocument(ctx context.Context, deviceID string, settings ScanSettings) (image.Image, error) {
	props := m.GetScannerProperties(ctx, deviceID)
	if props == nil {
		return nil, apperrors.NewInternalError(fmt.Sprintf("device %s is not available", deviceID), nil)
	}

	if err := settings.Validate(props); err != nil {
		return nil, err
	}

	lock := m.lockFor(deviceID)
	lock.Lock()
	defer lock.Unlock()

	img, err := m.driver.Scan(ctx, deviceID, settings)
	if err != nil {
		// Busy and broken devices are indistinguishable at this boundary.
		logger.WithError(err).WithFields(logrus.Fields{
			"device": deviceID,
		}).Error("Scan transaction failed")
		return nil, apperrors.NewInternalError("scan failed", err)
	}

	return postProcess(img, settings), nil
}

// postProcess applies the raster adjustments the hardware did not: brightness
// and contrast offsets and color-mode reduction.
func postProcess(img image.Image, settings ScanSettings) image.Image {
	if settings.Brightness != 0 {
		img = imaging.AdjustBrightness(img, float64(settings.Brightness))
	}
	if settings.Contrast != 0 {
		img = imaging.AdjustContrast(img, float64(settings.Contrast))
	}
	switch settings.ColorMode {
	case "gray", "lineart":
		img = imaging.Grayscale(img)
	}
	return img
}

// lockFor returns the exclusivity token for a device, creating it on first
// reference. Lock cardinality is bounded by the number of physical devices.
func (m *Manager) lockFor(deviceID string) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()

	lock, ok := m.deviceLocks[deviceID]
	if !ok {
		lock = &sync.Mutex{}
		m.deviceLocks[deviceID] = lock
	}
	return lock
}

func (m *Manager) knownDevice(ctx context.Context, deviceID string) bool {
	for _, device := range m.DiscoverScanners(ctx, false) {
		if device.DeviceID == deviceID {
			return true
		}
	}
	return false
}
