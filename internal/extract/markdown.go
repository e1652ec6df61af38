package extract

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xxxsen/common/logutil"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"go.uber.org/zap"
)

// extractMarkdown renders markdown to plain text. Thematic breaks (---) start a new page.
func extractMarkdown(ctx context.Context, data []byte) ([]string, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("content is not valid utf-8")
	}
	md := goldmark.New()
	reader := text.NewReader(data)
	doc := md.Parser().Parse(reader)
	source := reader.Source()

	var pages []string
	var blocks []string
	flush := func() {
		pages = append(pages, strings.Join(blocks, "\n\n"))
		blocks = nil
	}
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		switch n := node.(type) {
		case *ast.ThematicBreak:
			flush()
		case *ast.FencedCodeBlock:
			if code := blockLines(n, source); code != "" {
				blocks = append(blocks, code)
			}
		case *ast.CodeBlock:
			if code := blockLines(n, source); code != "" {
				blocks = append(blocks, code)
			}
		default:
			if txt := extractText(n, source); txt != "" {
				blocks = append(blocks, txt)
			}
		}
	}
	flush()
	logutil.GetLogger(ctx).Debug("markdown parsed", zap.Int("pages", len(pages)))
	return pages, nil
}

func blockLines(n ast.Node, source []byte) string {
	var sb strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		sb.Write(line.Value(source))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func extractText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node.Kind() {
		case ast.KindParagraph, ast.KindTextBlock:
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
		case ast.KindText:
			t := node.(*ast.Text)
			sb.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteString("\n")
			}
		case ast.KindString:
			sb.Write(node.(*ast.String).Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}

func init() {
	for _, ext := range []string{"md", "markdown"} {
		Register(ext, extractMarkdown)
	}
}
