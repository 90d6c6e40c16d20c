// Package extract turns raw document bytes into plain text by dispatching on the file
// extension to a registered Strategy.
package extract

import (
	"context"
	"io"
)

// Content types reported by the built-in strategies.
const (
	ContentTypeText = "text/plain"
	ContentTypeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	ContentTypePDF  = "application/pdf"
)

// Supported extensions of the built-in strategies.
const (
	ExtTxt  = ".txt"
	ExtDocx = ".docx"
	ExtPDF  = ".pdf"
)

// Extraction is the text extracted from a document.
type Extraction struct {
	Content     string
	ContentType string
}

// Strategy extracts text from one document format.
// Implementations may consume r completely; they must not expect to read it twice.
type Strategy interface {
	// Extension returns the lower-case file extension handled, including the dot.
	Extension() string

	// Extract reads the document and returns its text.
	Extract(ctx context.Context, r io.Reader, lang Language) (Extraction, error)
}
