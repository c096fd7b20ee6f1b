package ingestion

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"code.sajari.com/docconv"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/docuvec/docuvec/internal/apperr"
)

// Extractor turns raw file bytes into text segments, dispatching on the
// file extension. Plain formats yield a single segment; PDFs yield one
// segment per page so that page boundaries survive into chunking.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Supported reports whether the file's extension has an extractor. It
// is checked during admission, before any state is touched.
func (e *Extractor) Supported(fileName string) bool {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv", ".json", ".md", ".markdown", ".txt", ".pdf", ".docx":
		return true
	}
	return false
}

// Extract returns the text segments of a file. Blank segments (e.g.
// image-only PDF pages) are omitted; the caller decides what an empty
// result means.
func (e *Extractor) Extract(ctx context.Context, fileName string, data []byte) ([]string, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".csv", ".json", ".md", ".markdown", ".txt":
		// Text formats pass through whole: the chunker handles
		// structure, not the extractor.
		return []string{string(data)}, nil
	case ".pdf":
		return e.extractPDF(ctx, data)
	case ".docx":
		return e.extractDocx(data)
	}
	return nil, apperr.Newf(apperr.UnsupportedFormat, "unsupported file format %q", ext)
}

// extractPDF splits the document into single-page PDFs on disk and runs
// text extraction per page. Pages are never concatenated; each non-blank
// page becomes its own segment.
func (e *Extractor) extractPDF(ctx context.Context, data []byte) ([]string, error) {
	dir, err := os.MkdirTemp("", "docuvec-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("create pdf workdir: %w", err)
	}
	defer os.RemoveAll(dir)

	src := filepath.Join(dir, "source.pdf")
	if err := os.WriteFile(src, data, 0600); err != nil {
		return nil, fmt.Errorf("write pdf to workdir: %w", err)
	}

	pageCount, err := api.PageCountFile(src)
	if err != nil {
		return nil, apperr.Wrap(apperr.EmptyOrUnprocessable, "read pdf page count", err)
	}

	if err := api.SplitFile(src, dir, 1, nil); err != nil {
		return nil, apperr.Wrap(apperr.EmptyOrUnprocessable, "split pdf into pages", err)
	}

	segments := make([]string, 0, pageCount)
	for page := 1; page <= pageCount; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pagePath := filepath.Join(dir, fmt.Sprintf("source_%d.pdf", page))
		f, err := os.Open(pagePath)
		if err != nil {
			return nil, fmt.Errorf("open page %d: %w", page, err)
		}
		text, _, err := docconv.ConvertPDF(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("extract text from page %d: %w", page, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		segments = append(segments, text)
	}
	return segments, nil
}

// extractDocx delegates the binary format to docconv and treats the
// resulting plain text as one segment.
func (e *Extractor) extractDocx(data []byte) ([]string, error) {
	text, _, err := docconv.ConvertDocx(bytes.NewReader(data))
	if err != nil {
		return nil, apperr.Wrap(apperr.EmptyOrUnprocessable, "extract text from docx", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return []string{text}, nil
}
