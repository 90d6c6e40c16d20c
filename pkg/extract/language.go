package extract

import (
	"errors"
	"sort"
	"strconv"
	"strings"
)

// Language is a content language tag understood by the extraction backends.
type Language string

const (
	English Language = "en-US"
	Polish  Language = "pl-PL"
)

// Languages lists the supported languages.
var Languages = []Language{English, Polish}

// ParseLanguage returns the supported language for tag.
func ParseLanguage(tag string) (Language, bool) {
	for _, l := range Languages {
		if strings.EqualFold(string(l), strings.TrimSpace(tag)) {
			return l, true
		}
	}
	return "", false
}

// OCRCode returns the Tesseract language code used for OCR.
func (l Language) OCRCode() string {
	switch l {
	case Polish:
		return "pol"
	default:
		return "eng"
	}
}

// AcceptLanguagePart is one entry of an Accept-Language header.
type AcceptLanguagePart struct {
	Tag    string
	Weight float64
}

// ErrEmptyAcceptLanguage is returned for a blank Accept-Language header.
var ErrEmptyAcceptLanguage = errors.New("accept-language header is empty")

// ParseAcceptLanguage splits a header such as "da, en-GB;q=0.8" into its parts, in
// header order. Entries without a weight get 1; unparsable weights become 0.
func ParseAcceptLanguage(header string) ([]AcceptLanguagePart, error) {
	if strings.TrimSpace(header) == "" {
		return nil, ErrEmptyAcceptLanguage
	}

	var parts []AcceptLanguagePart
	for _, item := range strings.Split(header, ",") {
		fields := strings.Split(strings.TrimSpace(item), ";")
		tag := strings.TrimSpace(fields[0])
		if tag == "" {
			continue
		}

		if len(fields) != 2 {
			parts = append(parts, AcceptLanguagePart{Tag: tag, Weight: 1})
			continue
		}

		q := fields[1]
		if i := strings.LastIndex(q, "="); i >= 0 {
			q = q[i+1:]
		}
		w, err := strconv.ParseFloat(strings.TrimSpace(q), 64)
		if err != nil {
			w = 0
		}
		parts = append(parts, AcceptLanguagePart{Tag: tag, Weight: w})
	}

	if len(parts) == 0 {
		return nil, ErrEmptyAcceptLanguage
	}
	return parts, nil
}

// ResolveLanguage picks the highest weighted supported language from an Accept-Language
// header, falling back to def when the header is absent, malformed or names nothing
// supported. Ties keep header order.
func ResolveLanguage(header string, def Language) Language {
	parts, err := ParseAcceptLanguage(header)
	if err != nil {
		return def
	}

	sort.SliceStable(parts, func(i, j int) bool {
		return parts[i].Weight > parts[j].Weight
	})

	for _, p := range parts {
		if l, ok := ParseLanguage(p.Tag); ok {
			return l
		}
	}
	return def
}
