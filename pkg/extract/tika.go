package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// TikaConfig holds the Apache Tika server settings used for PDF extraction.
type TikaConfig struct {
	URL     string `toml:"url"`
	Timeout string `toml:"timeout"`
}

// Validate checks Tika configuration
func (c *TikaConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("url is required")
	}
	if c.Timeout != "" {
		if _, err := time.ParseDuration(c.Timeout); err != nil {
			return fmt.Errorf("timeout is invalid: %w", err)
		}
	}
	return nil
}

// PDFStrategy sends PDF documents to a Tika server, which runs text extraction and OCR
// for scanned pages in the requested language.
type PDFStrategy struct {
	url    string
	client *http.Client
}

// NewPDFStrategy creates a PDF strategy for the given Tika server.
func NewPDFStrategy(cfg TikaConfig) *PDFStrategy {
	timeout := 2 * time.Minute
	if d, err := time.ParseDuration(cfg.Timeout); err == nil && d > 0 {
		timeout = d
	}
	return &PDFStrategy{
		url:    strings.TrimSuffix(cfg.URL, "/"),
		client: &http.Client{Timeout: timeout},
	}
}

func (s *PDFStrategy) Extension() string {
	return ExtPDF
}

func (s *PDFStrategy) Extract(ctx context.Context, r io.Reader, lang Language) (Extraction, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Extraction{}, fmt.Errorf("read document: %w", err)
	}
	if mime := mimetype.Detect(data); !mime.Is(ContentTypePDF) {
		return Extraction{}, fmt.Errorf("not a PDF document, detected %s", mime.String())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.url+"/tika", bytes.NewReader(data))
	if err != nil {
		return Extraction{}, fmt.Errorf("create tika request: %w", err)
	}
	req.Header.Set("Content-Type", ContentTypePDF)
	req.Header.Set("Accept", "text/plain")
	req.Header.Set("X-Tika-OCRLanguage", lang.OCRCode())

	resp, err := s.client.Do(req)
	if err != nil {
		return Extraction{}, fmt.Errorf("tika request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Extraction{}, fmt.Errorf("read tika response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return Extraction{}, fmt.Errorf("tika returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return Extraction{Content: string(body), ContentType: ContentTypePDF}, nil
}
