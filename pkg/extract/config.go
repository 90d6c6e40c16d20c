package extract

import "fmt"

// Package-level singleton instance
var registryInstance *Registry

// Config holds extraction configuration
type Config struct {
	Tika            TikaConfig `toml:"tika"`
	DefaultLanguage string     `toml:"default_language"`
	MaxFileSizeMB   int        `toml:"max_file_size_mb"`
}

// Validate checks extraction configuration
func (c *Config) Validate() error {
	if err := c.Tika.Validate(); err != nil {
		return fmt.Errorf("tika: %w", err)
	}
	if c.DefaultLanguage != "" {
		if _, ok := ParseLanguage(c.DefaultLanguage); !ok {
			return fmt.Errorf("default_language %q is not supported", c.DefaultLanguage)
		}
	}
	if c.MaxFileSizeMB < 0 {
		return fmt.Errorf("max_file_size_mb must not be negative")
	}
	return nil
}

// Language returns the configured fallback language, English when unset.
func (c *Config) Language() Language {
	if lang, ok := ParseLanguage(c.DefaultLanguage); ok {
		return lang
	}
	return English
}

// MaxFileSize returns the per-file size cap in bytes.
func (c *Config) MaxFileSize() int64 {
	if c.MaxFileSizeMB <= 0 {
		return DefaultMaxFileSize
	}
	return int64(c.MaxFileSizeMB) << 20
}

// Init builds the registry singleton with the txt, docx and pdf strategies.
func Init(cfg Config) error {
	r, err := NewRegistry(NewTextStrategy(), NewDocxStrategy(), NewPDFStrategy(cfg.Tika))
	if err != nil {
		return err
	}
	registryInstance = r
	return nil
}

// NewExtractor returns the registry singleton.
func NewExtractor() *Registry {
	return registryInstance
}
