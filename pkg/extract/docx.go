package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

const docxBodyPart = "word/document.xml"

// DocxStrategy reads the main document part of an Office Open XML package.
type DocxStrategy struct{}

func NewDocxStrategy() *DocxStrategy {
	return &DocxStrategy{}
}

func (s *DocxStrategy) Extension() string {
	return ExtDocx
}

func (s *DocxStrategy) Extract(ctx context.Context, r io.Reader, _ Language) (Extraction, error) {
	if err := ctx.Err(); err != nil {
		return Extraction{}, err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return Extraction{}, fmt.Errorf("read docx: %w", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Extraction{}, fmt.Errorf("open docx package: %w", err)
	}

	var body *zip.File
	for _, f := range zr.File {
		if f.Name == docxBodyPart {
			body = f
			break
		}
	}
	if body == nil {
		return Extraction{}, fmt.Errorf("docx package has no %s", docxBodyPart)
	}

	rc, err := body.Open()
	if err != nil {
		return Extraction{}, fmt.Errorf("open %s: %w", docxBodyPart, err)
	}
	defer rc.Close()

	text, err := docxText(rc)
	if err != nil {
		return Extraction{}, err
	}

	return Extraction{Content: text, ContentType: ContentTypeDocx}, nil
}

// docxText walks WordprocessingML and keeps run text, one line per paragraph.
func docxText(r io.Reader) (string, error) {
	var (
		sb     strings.Builder
		inText bool
	)

	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse %s: %w", docxBodyPart, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				sb.WriteByte('\t')
			case "br", "cr":
				sb.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}

	return strings.TrimRight(sb.String(), "\n"), nil
}
