package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xxxsen/common/logutil"
	appErr "github.com/xxxsen/docdigest/internal/pkg/errors"
	"go.uber.org/zap"
)

// PageBreak separates pages in extracted text.
const PageBreak = "\f"

// Extractor turns a raw document into plain text with pages separated by PageBreak.
type Extractor interface {
	Extract(ctx context.Context, name string, data []byte) (string, int, error)
}

type ExtractFunc func(ctx context.Context, data []byte) ([]string, error)

var registry = map[string]ExtractFunc{}

func Register(ext string, fn ExtractFunc) {
	key := normalizeExt(ext)
	if fn == nil {
		return
	}
	registry[key] = fn
}

type fileExtractor struct{}

func New() Extractor {
	return &fileExtractor{}
}

// Extract dispatches on the file extension. Files without an extension are read as plain text.
func (e *fileExtractor) Extract(ctx context.Context, name string, data []byte) (string, int, error) {
	ext := normalizeExt(filepath.Ext(name))
	fn, ok := registry[ext]
	if !ok {
		return "", 0, fmt.Errorf("%w: unsupported file type %q", appErr.ErrExtraction, ext)
	}
	pages, err := fn(ctx, data)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %s: %v", appErr.ErrExtraction, name, err)
	}
	text := strings.Join(pages, PageBreak)
	if strings.TrimSpace(strings.ReplaceAll(text, PageBreak, "")) == "" {
		return "", 0, fmt.Errorf("%w: %s: no text content", appErr.ErrExtraction, name)
	}
	logutil.GetLogger(ctx).Debug("text extracted",
		zap.String("name", name),
		zap.Int("pages", len(pages)),
		zap.Int("chars", len(text)),
	)
	return text, len(pages), nil
}

// ExtractFile reads path and extracts it. The raw bytes are returned for hashing.
func ExtractFile(ctx context.Context, e Extractor, path string) (string, int, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", 0, nil, fmt.Errorf("%w: read %s: %v", appErr.ErrExtraction, path, err)
	}
	text, pages, err := e.Extract(ctx, filepath.Base(path), data)
	if err != nil {
		return "", 0, nil, err
	}
	return text, pages, data, nil
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}
