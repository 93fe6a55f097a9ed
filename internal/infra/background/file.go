// Package background reads the candidate's fallback background file.
package background

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"unicode/utf8"

	"interview-bot/internal/domain"
)

type FileProvider struct {
	path string
}

func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path}
}

func (f *FileProvider) Path() string {
	return f.path
}

// Load re-reads the file on every call so edits show up without a restart.
// A file holding only whitespace is an error: answers need background text.
func (f *FileProvider) Load(_ context.Context) (domain.BackgroundContext, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.BackgroundContext{}, domain.Classify(
				domain.KindContextRead,
				"reading "+f.path,
				domain.ErrContextNotFound,
			)
		}
		return domain.BackgroundContext{}, domain.Classify(domain.KindContextRead, "reading "+f.path, err)
	}

	if !utf8.Valid(data) {
		return domain.BackgroundContext{}, domain.Classify(
			domain.KindContextRead,
			"reading "+f.path,
			fmt.Errorf("file is not valid UTF-8"),
		)
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return domain.BackgroundContext{}, domain.Classify(domain.KindContextRead, "reading "+f.path, domain.ErrContextEmpty)
	}

	return domain.BackgroundContext{Text: text, Source: domain.SourceFile}, nil
}
