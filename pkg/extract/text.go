package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// TextStrategy handles plain UTF-8 text files.
type TextStrategy struct{}

func NewTextStrategy() *TextStrategy {
	return &TextStrategy{}
}

func (s *TextStrategy) Extension() string {
	return ExtTxt
}

func (s *TextStrategy) Extract(ctx context.Context, r io.Reader, _ Language) (Extraction, error) {
	if err := ctx.Err(); err != nil {
		return Extraction{}, err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return Extraction{}, fmt.Errorf("read text: %w", err)
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return Extraction{}, fmt.Errorf("text is not valid UTF-8")
	}

	return Extraction{Content: string(data), ContentType: ContentTypeText}, nil
}
