package container

import (
	"fmt"
	"net/http"

	"github.com/sandraschi/ocr-gateway/internal/bridge"
	"github.com/sandraschi/ocr-gateway/internal/config"
	"github.com/sandraschi/ocr-gateway/internal/logger"
	"github.com/sandraschi/ocr-gateway/internal/ocr"
	"github.com/sandraschi/ocr-gateway/internal/ocr/cloud"
	"github.com/sandraschi/ocr-gateway/internal/ocr/tesseract"
	"github.com/sandraschi/ocr-gateway/internal/ocr/vision"
	"github.com/sandraschi/ocr-gateway/internal/scanner"
	"github.com/sandraschi/ocr-gateway/internal/storage"
)

// Container holds all application dependencies
type Container struct {
	config         *config.Config
	resolver       *storage.Resolver
	backendManager *ocr.Manager
	scannerManager *scanner.Manager
	handler        http.Handler
}

// NewContainer wires the dependency graph. Backend availability is not
// probed here; construction stays cheap and the first dispatch or status
// query pays the probe cost.
func NewContainer(cfg *config.Config) (*Container, error) {
	resolver, err := buildResolver(cfg)
	if err != nil {
		return nil, err
	}

	visionBackend, err := vision.New(cfg.Vision, resolver)
	if err != nil {
		return nil, fmt.Errorf("failed to build vision backend: %w", err)
	}

	backendManager, err := ocr.NewManager(
		tesseract.New(cfg.Tesseract, resolver),
		visionBackend,
		cloud.New(cfg.Cloud, resolver),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build backend registry: %w", err)
	}

	scannerManager := scanner.NewManager(scanner.NewSANEDriver(cfg.Scanner))
	handler := bridge.NewHandler(backendManager, scannerManager, cfg)

	return &Container{
		config:         cfg,
		resolver:       resolver,
		backendManager: backendManager,
		scannerManager: scannerManager,
		handler:        handler,
	}, nil
}

func buildResolver(cfg *config.Config) (*storage.Resolver, error) {
	httpFetcher := storage.NewHTTPFetcher(cfg.RequestTimeout, cfg.MaxRequestBodySize)

	var blobFetcher storage.Fetcher
	if cfg.Azure.AccountName != "" && cfg.Azure.AccountKey != "" {
		azureFetcher, err := storage.NewAzureBlobFetcher(cfg.Azure.AccountName, cfg.Azure.AccountKey)
		if err != nil {
			return nil, fmt.Errorf("failed to build azure blob fetcher: %w", err)
		}
		blobFetcher = azureFetcher
	} else {
		logger.Info("Azure credentials not configured, azblob image refs disabled")
	}

	return storage.NewResolver(httpFetcher, blobFetcher), nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Backends returns the OCR dispatch engine
func (c *Container) Backends() *ocr.Manager {
	return c.backendManager
}

// Scanners returns the scanner manager
func (c *Container) Scanners() *scanner.Manager {
	return c.scannerManager
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}
