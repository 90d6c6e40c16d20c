package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zereker/cvstore/pkg/result"
)

// stubStrategy 测试用 strategy
type stubStrategy struct {
	ext   string
	calls int
	fn    func(r io.Reader) (Extraction, error)
}

func (s *stubStrategy) Extension() string { return s.ext }

func (s *stubStrategy) Extract(_ context.Context, r io.Reader, _ Language) (Extraction, error) {
	s.calls++
	return s.fn(r)
}

func newTestRegistry(t *testing.T, strategies ...Strategy) *Registry {
	t.Helper()
	r, err := NewRegistry(strategies...)
	require.NoError(t, err)
	return r
}

func TestRegistryRegister(t *testing.T) {
	t.Run("duplicate extension", func(t *testing.T) {
		_, err := NewRegistry(NewTextStrategy(), &stubStrategy{ext: ".TXT"})
		assert.Error(t, err)
	})

	t.Run("invalid extension", func(t *testing.T) {
		_, err := NewRegistry(&stubStrategy{ext: "txt"})
		assert.Error(t, err)
	})

	t.Run("supported is sorted", func(t *testing.T) {
		r := newTestRegistry(t, NewTextStrategy(), NewDocxStrategy(), NewPDFStrategy(TikaConfig{URL: "http://tika"}))
		assert.Equal(t, []string{".docx", ".pdf", ".txt"}, r.Supported())
		assert.True(t, r.IsSupported("CV.PDF"))
		assert.False(t, r.IsSupported("cv.odt"))
	})
}

func TestRegistryExtract(t *testing.T) {
	ctx := context.Background()

	t.Run("plain text", func(t *testing.T) {
		r := newTestRegistry(t, NewTextStrategy())
		ext, err := r.Extract(ctx, "cv.txt", []byte("\xEF\xBB\xBFGo developer"), English)
		require.NoError(t, err)
		assert.Equal(t, "Go developer", ext.Content)
		assert.Equal(t, ContentTypeText, ext.ContentType)
	})

	t.Run("unsupported extension fails before any strategy", func(t *testing.T) {
		stub := &stubStrategy{ext: ".txt", fn: func(io.Reader) (Extraction, error) { return Extraction{}, nil }}
		r := newTestRegistry(t, stub)
		_, err := r.Extract(ctx, "cv.odt", []byte("x"), English)
		require.Error(t, err)
		assert.ErrorIs(t, err, result.ErrValidation)
		assert.Equal(t, 0, stub.calls)
	})

	t.Run("whitespace only text", func(t *testing.T) {
		r := newTestRegistry(t, NewTextStrategy())
		_, err := r.Extract(ctx, "empty.txt", []byte(" \n\t "), English)
		require.Error(t, err)
		assert.ErrorIs(t, err, result.ErrExtraction)
		assert.Contains(t, err.Error(), "extracted text is empty")
		assert.Contains(t, err.Error(), "empty.txt")
	})

	t.Run("strategy error keeps cause", func(t *testing.T) {
		cause := errors.New("corrupt file")
		r := newTestRegistry(t, &stubStrategy{ext: ".txt", fn: func(io.Reader) (Extraction, error) {
			return Extraction{}, cause
		}})
		_, err := r.Extract(ctx, "cv.txt", []byte("x"), English)
		assert.ErrorIs(t, err, result.ErrExtraction)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("strategy panic becomes failure", func(t *testing.T) {
		r := newTestRegistry(t, &stubStrategy{ext: ".txt", fn: func(io.Reader) (Extraction, error) {
			panic("parser crashed")
		}})
		_, err := r.Extract(ctx, "cv.txt", []byte("x"), English)
		assert.ErrorIs(t, err, result.ErrExtraction)
	})

	t.Run("strategy consuming the reader leaves data intact", func(t *testing.T) {
		data := []byte("Senior engineer")
		r := newTestRegistry(t, &stubStrategy{ext: ".txt", fn: func(rd io.Reader) (Extraction, error) {
			b, _ := io.ReadAll(rd)
			return Extraction{Content: string(b), ContentType: ContentTypeText}, nil
		}})
		_, err := r.Extract(ctx, "cv.txt", data, English)
		require.NoError(t, err)
		assert.Equal(t, "Senior engineer", string(data))
	})

	t.Run("invalid utf8", func(t *testing.T) {
		r := newTestRegistry(t, NewTextStrategy())
		_, err := r.Extract(ctx, "cv.txt", []byte{0xff, 0xfe, 0xfd}, English)
		assert.ErrorIs(t, err, result.ErrExtraction)
	})
}

func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(docxBodyPart)
	require.NoError(t, err)
	_, err = w.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestDocxStrategy(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>Jan Kowalski</w:t></w:r></w:p>
<w:p><w:r><w:t>Skills:</w:t></w:r><w:r><w:tab/><w:t xml:space="preserve">Go, Kafka</w:t></w:r></w:p>
</w:body>
</w:document>`

	r := newTestRegistry(t, NewDocxStrategy())
	ext, err := r.Extract(context.Background(), "cv.docx", buildDocx(t, doc), Polish)
	require.NoError(t, err)
	assert.Equal(t, "Jan Kowalski\nSkills:\tGo, Kafka", ext.Content)
	assert.Equal(t, ContentTypeDocx, ext.ContentType)

	_, err = r.Extract(context.Background(), "cv.docx", []byte("not a zip"), Polish)
	assert.ErrorIs(t, err, result.ErrExtraction)
}

func TestPDFStrategy(t *testing.T) {
	var gotLang, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLang = r.Header.Get("X-Tika-OCRLanguage")
		gotMethod = r.Method
		_, _ = w.Write([]byte("Anna Nowak\nData engineer"))
	}))
	defer srv.Close()

	r := newTestRegistry(t, NewPDFStrategy(TikaConfig{URL: srv.URL}))
	ext, err := r.Extract(context.Background(), "cv.pdf", []byte("%PDF-1.7"), Polish)
	require.NoError(t, err)
	assert.Equal(t, "pol", gotLang)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, ContentTypePDF, ext.ContentType)
	assert.Contains(t, ext.Content, "Data engineer")
}

func TestPDFStrategyServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unprocessable", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	r := newTestRegistry(t, NewPDFStrategy(TikaConfig{URL: srv.URL}))
	_, err := r.Extract(context.Background(), "cv.pdf", []byte("%PDF-1.4\n"), English)
	assert.ErrorIs(t, err, result.ErrExtraction)
}

func TestPDFStrategyRejectsNonPDF(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	r := newTestRegistry(t, NewPDFStrategy(TikaConfig{URL: srv.URL}))
	_, err := r.Extract(context.Background(), "cv.pdf", []byte("just text renamed to pdf"), English)
	assert.ErrorIs(t, err, result.ErrExtraction)
	assert.Contains(t, err.Error(), "cv.pdf")
	assert.False(t, called)
}

func TestValidateFiles(t *testing.T) {
	r := newTestRegistry(t, NewTextStrategy(), NewDocxStrategy())

	assert.ErrorIs(t, r.ValidateFiles(nil, 0), result.ErrValidation)
	assert.NoError(t, r.ValidateFiles([]FileInfo{{Name: "a.txt", Size: 10}, {Name: "b.DOCX", Size: 10}}, 0))

	err := r.ValidateFiles([]FileInfo{
		{Name: "big.txt", Size: DefaultMaxFileSize + 1},
		{Name: "photo.png", Size: 1},
	}, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, result.ErrValidation)
	assert.Contains(t, err.Error(), "big.txt")
	assert.Contains(t, err.Error(), "photo.png")
}
