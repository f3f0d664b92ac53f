package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port string

	// Auth. Empty disables API-key checks (local use).
	PDFSiftAPIKey string

	// Gemini summarization
	GeminiAPIKey      string
	GeminiModel       string
	SummarizeMaxChars int

	// Work execution
	MaxConcurrentWork int
	WorkTimeout       time.Duration

	// Upload limits
	MaxUploadBytes int64

	// Artifact store
	ArtifactDir string
	ArtifactTTL time.Duration

	// Sentence segmentation
	ExtraAbbreviations []string

	// PDF
	PDFFallbackPdftotext bool
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		PDFSiftAPIKey: os.Getenv("PDFSIFT_API_KEY"),

		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiModel:       envOr("GEMINI_MODEL", "gemini-1.5-flash-latest"),
		SummarizeMaxChars: envInt("SUMMARIZE_MAX_CHARS", 15000),

		MaxConcurrentWork: envInt("MAX_CONCURRENT_WORK", 8),
		WorkTimeout:       envDuration("WORK_TIMEOUT", 60*time.Second),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		ArtifactDir: envOr("ARTIFACT_DIR", "artifacts"),
		ArtifactTTL: envDuration("ARTIFACT_TTL", 1*time.Hour),

		ExtraAbbreviations: envList("SENTENCE_ABBREVIATIONS"),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.MaxConcurrentWork <= 0 {
		cfg.MaxConcurrentWork = 8
	}
	if cfg.WorkTimeout <= 0 {
		cfg.WorkTimeout = 60 * time.Second
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.SummarizeMaxChars <= 0 {
		cfg.SummarizeMaxChars = 15000
	}
	if cfg.ArtifactTTL <= 0 {
		cfg.ArtifactTTL = 1 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	if c.ArtifactDir == "" {
		return fmt.Errorf("ARTIFACT_DIR must not be empty")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
