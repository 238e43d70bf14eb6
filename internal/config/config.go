package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the process-wide configuration. It is loaded once at startup
// and never mutated afterwards; components share it by reference.
type Config struct {
	Host               string `yaml:"host"`
	Port               string `yaml:"port"`
	RequestTimeout     time.Duration
	MaxRequestBodySize int64

	Tesseract TesseractConfig `yaml:"tesseract"`
	Vision    VisionConfig    `yaml:"vision"`
	Cloud     CloudConfig     `yaml:"cloud"`
	Scanner   ScannerConfig   `yaml:"scanner"`
	Azure     AzureConfig     `yaml:"azure"`
}

// TesseractConfig holds settings for the local tesseract backend.
type TesseractConfig struct {
	Languages []string `yaml:"languages"`
	DataPath  string   `yaml:"data_path"`
}

// VisionConfig holds settings for the Ollama vision-model backend.
type VisionConfig struct {
	Host    string `yaml:"host"`
	Model   string `yaml:"model"`
	Timeout time.Duration
}

// CloudConfig holds settings for the remote REST OCR backend.
type CloudConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
	Timeout  time.Duration
}

// ScannerConfig holds settings for the hardware scan layer.
type ScannerConfig struct {
	Binary  string `yaml:"binary"`
	Timeout time.Duration
}

// AzureConfig holds optional blob storage credentials for azblob:// image refs.
type AzureConfig struct {
	AccountName string `yaml:"account_name"`
	AccountKey  string `yaml:"account_key"`
}

func (c *Config) ServerAddress() string {
	// Trim any whitespace from host and port
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// Load builds the configuration from environment variables, then overlays the
// optional YAML file named by OCR_GATEWAY_CONFIG.
func Load() (*Config, error) {
	cfg := &Config{
		Host:               getEnvOrDefault("HOST", "0.0.0.0"),
		Port:               getEnvOrDefault("PORT", "8080"),
		RequestTimeout:     parseDurationOrDefault("REQUEST_TIMEOUT", 30*time.Second),
		MaxRequestBodySize: parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 10*1024*1024), // 10MB
		Tesseract: TesseractConfig{
			Languages: splitNonEmpty(getEnvOrDefault("TESSERACT_LANGUAGES", "eng")),
			DataPath:  os.Getenv("TESSERACT_DATA_PATH"),
		},
		Vision: VisionConfig{
			Host:    getEnvOrDefault("VISION_HOST", "http://127.0.0.1:11434"),
			Model:   getEnvOrDefault("VISION_MODEL", "llava"),
			Timeout: parseDurationOrDefault("VISION_TIMEOUT", 5*time.Minute),
		},
		Cloud: CloudConfig{
			Endpoint: os.Getenv("CLOUD_OCR_ENDPOINT"),
			APIKey:   os.Getenv("CLOUD_OCR_API_KEY"),
			Timeout:  parseDurationOrDefault("CLOUD_OCR_TIMEOUT", 60*time.Second),
		},
		Scanner: ScannerConfig{
			Binary:  getEnvOrDefault("SCANIMAGE_BINARY", "scanimage"),
			Timeout: parseDurationOrDefault("SCAN_TIMEOUT", 2*time.Minute),
		},
		Azure: AzureConfig{
			AccountName: os.Getenv("AZURE_STORAGE_ACCOUNT"),
			AccountKey:  os.Getenv("AZURE_STORAGE_KEY"),
		},
	}

	if path := os.Getenv("OCR_GATEWAY_CONFIG"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) validate() error {
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	if c.RequestTimeout <= 0 || c.Scanner.Timeout <= 0 {
		return fmt.Errorf("timeouts must be > 0 (got request=%s, scan=%s)",
			c.RequestTimeout, c.Scanner.Timeout)
	}
	if len(c.Tesseract.Languages) == 0 {
		return fmt.Errorf("TESSERACT_LANGUAGES must name at least one language")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func splitNonEmpty(csv string) []string {
	var out []string
	for _, part := range strings.Split(csv, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
