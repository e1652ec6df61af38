package extract

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

func extractPlainText(_ context.Context, data []byte) ([]string, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("content is not valid utf-8")
	}
	return strings.Split(string(data), PageBreak), nil
}

func init() {
	for _, ext := range []string{"", "txt", "text", "log"} {
		Register(ext, extractPlainText)
	}
}
