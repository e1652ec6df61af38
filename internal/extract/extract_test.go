package extract

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	appErr "github.com/xxxsen/docdigest/internal/pkg/errors"
)

func TestPlainTextPages(t *testing.T) {
	text, pages, err := New().Extract(context.Background(), "notes.txt", []byte("page one\fpage two\fpage three"))
	require.NoError(t, err)
	require.Equal(t, 3, pages)
	require.Equal(t, "page one\fpage two\fpage three", text)
}

func TestPlainTextWithoutBreaksIsOnePage(t *testing.T) {
	_, pages, err := New().Extract(context.Background(), "README", []byte("just text"))
	require.NoError(t, err)
	require.Equal(t, 1, pages)
}

func TestMarkdownThematicBreakStartsPage(t *testing.T) {
	src := "# Title\n\nIntro paragraph\nsecond line.\n\n---\n\n## Part Two\n\n- item one\n- item two\n\n```go\nfmt.Println(1)\n```\n"
	text, pages, err := New().Extract(context.Background(), "doc.MD", []byte(src))
	require.NoError(t, err)
	require.Equal(t, 2, pages)
	require.Equal(t, "Title\n\nIntro paragraph\nsecond line.\fPart Two\n\nitem one\nitem two\n\nfmt.Println(1)", text)
}

func TestExtractionFailures(t *testing.T) {
	ctx := context.Background()
	_, _, err := New().Extract(ctx, "scan.pdf", []byte("%PDF"))
	require.True(t, appErr.IsExtraction(err))

	_, _, err = New().Extract(ctx, "empty.txt", []byte(" \n\f \n"))
	require.True(t, appErr.IsExtraction(err))

	_, _, err = New().Extract(ctx, "bad.txt", []byte{0xff, 0xfe, 0xfd})
	require.True(t, appErr.IsExtraction(err))
}

func TestExtractFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("alpha\fbeta"), 0o644))

	text, pages, raw, err := ExtractFile(context.Background(), New(), path)
	require.NoError(t, err)
	require.Equal(t, 2, pages)
	require.Equal(t, "alpha\fbeta", text)
	require.Equal(t, []byte("alpha\fbeta"), raw)

	_, _, _, err = ExtractFile(context.Background(), New(), filepath.Join(dir, "missing.txt"))
	require.True(t, appErr.IsExtraction(err))
}
