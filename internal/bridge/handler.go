// Package bridge is the stateless HTTP façade over the scanner manager and
// the OCR dispatch engine. It holds no per-request session; per-device
// serialization lives in the scanner manager, not here.
package bridge

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sandraschi/ocr-gateway/internal/config"
	apperrors "github.com/sandraschi/ocr-gateway/internal/errors"
	"github.com/sandraschi/ocr-gateway/internal/logger"
	"github.com/sandraschi/ocr-gateway/internal/ocr"
	"github.com/sandraschi/ocr-gateway/internal/scanner"
)

// ScanRequest is the wire request for POST /scan.
type ScanRequest struct {
	DeviceID string                 `json:"deviceId" binding:"required"`
	Settings map[string]interface{} `json:"settings"`
}

// ScanResponse is the wire response for a successful scan.
type ScanResponse struct {
	Success   bool   `json:"success"`
	ImageData string `json:"imageData"`
	Format    string `json:"format"`
	Size      [2]int `json:"size"`
}

// OCRRequest is the wire request for POST /ocr.
type OCRRequest struct {
	Backend      string `json:"backend" binding:"required"`
	Image        string `json:"image" binding:"required"`
	Mode         string `json:"mode,omitempty"`
	Format       string `json:"format,omitempty"`
	Language     string `json:"language,omitempty"`
	ExpectedText string `json:"expected_text,omitempty"`
	DPI          int    `json:"dpi,omitempty"`
}

// ErrorResponse is the uniform failure envelope.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// NewHandler wires all routes onto a gin engine.
func NewHandler(backends *ocr.Manager, scanners *scanner.Manager, cfg *config.Config) http.Handler {
	r := gin.Default()

	r.Use(
		requestID(),
		requestSizeLimiter(cfg.MaxRequestBodySize),
	)

	r.GET("/", healthCheck(scanners))
	r.GET("/scanners", listScanners(scanners))
	r.GET("/scanners/:deviceId/properties", scannerProperties(scanners))
	r.POST("/scan", scanDocument(scanners))

	r.GET("/backends", backendStatus(backends))
	r.POST("/ocr", processImage(backends))

	return r
}

func healthCheck(scanners *scanner.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":           "ok",
			"backendAvailable": scanners.HardwareAvailable(c.Request.Context()),
			"time":             time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func listScanners(scanners *scanner.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		forceRefresh := c.Query("refresh") == "true"

		devices := scanners.DiscoverScanners(ctx, forceRefresh)
		if !scanners.HardwareAvailable(ctx) {
			respondError(c, http.StatusServiceUnavailable, "hardware layer unavailable", nil)
			return
		}
		c.JSON(http.StatusOK, devices)
	}
}

func scannerProperties(scanners *scanner.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		deviceID := c.Param("deviceId")

		props := scanners.GetScannerProperties(c.Request.Context(), deviceID)
		if props == nil {
			respondError(c, http.StatusNotFound,
				fmt.Sprintf("device %s not found or properties unavailable", deviceID), nil)
			return
		}
		c.JSON(http.StatusOK, props)
	}
}

func scanDocument(scanners *scanner.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var req ScanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}

		if !scanners.HardwareAvailable(ctx) {
			respondError(c, http.StatusServiceUnavailable, "scan backend unavailable", nil)
			return
		}

		settings, err := scanner.SettingsFromMap(req.Settings)
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "invalid scan settings", err)
			return
		}

		logger.WithFields(logrus.Fields{
			"request_id": c.GetString(requestIDKey),
			"device":     req.DeviceID,
			"dpi":        settings.Resolution,
		}).Info("Processing scan request")

		img, err := scanners.ScanDocument(ctx, req.DeviceID, settings)
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "scan failed", err)
			return
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			respondError(c, http.StatusInternalServerError, "failed to encode scanned image", err)
			return
		}

		bounds := img.Bounds()
		c.JSON(http.StatusOK, ScanResponse{
			Success:   true,
			ImageData: base64.StdEncoding.EncodeToString(buf.Bytes()),
			Format:    "png",
			Size:      [2]int{bounds.Dx(), bounds.Dy()},
		})
	}
}

func backendStatus(backends *ocr.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"registered": backends.RegisteredBackends(),
			"status":     backends.BackendStatus(c.Request.Context()),
		})
	}
}

func processImage(backends *ocr.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req OCRRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}

		mode := ocr.ModeText
		if req.Mode != "" {
			mode = ocr.Mode(req.Mode)
		}
		format := ocr.FormatText
		if req.Format != "" {
			format = ocr.Format(req.Format)
		}

		logger.WithFields(logrus.Fields{
			"request_id": c.GetString(requestIDKey),
			"backend":    req.Backend,
			"mode":       mode,
		}).Info("Processing recognition request")

		result := backends.ProcessWithBackend(c.Request.Context(), req.Backend, req.Image, mode, format, ocr.Options{
			Language:     req.Language,
			ExpectedText: req.ExpectedText,
			DPI:          req.DPI,
		})

		c.JSON(statusForResult(result), result)
	}
}

// statusForResult maps a result's error classification onto an HTTP status.
// The envelope itself is returned either way; no fault crosses this boundary
// unwrapped.
func statusForResult(result ocr.Result) int {
	if result.Success {
		return http.StatusOK
	}
	switch result.ErrorType {
	case apperrors.ErrorTypeBackendNotFound:
		return http.StatusNotFound
	case apperrors.ErrorTypeBackendUnavailable:
		return http.StatusServiceUnavailable
	case apperrors.ErrorTypeUnsupportedMode, apperrors.ErrorTypeInvalidSettings, apperrors.ErrorTypeValidation:
		return http.StatusBadRequest
	case apperrors.ErrorTypeNotFound:
		return http.StatusNotFound
	case apperrors.ErrorTypeNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Middleware and helper functions

const requestIDKey = "request_id"

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func respondError(c *gin.Context, code int, message string, err error) {
	logger.WithError(err).WithFields(logrus.Fields{
		"request_id":  c.GetString(requestIDKey),
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	detail := message
	if err != nil {
		detail = fmt.Sprintf("%s: %v", message, err)
	}
	c.AbortWithStatusJSON(code, ErrorResponse{
		Success: false,
		Error:   http.StatusText(code),
		Message: detail,
	})
}
