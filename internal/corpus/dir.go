package corpus

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-qa/pkg/errors"
)

// DirSource reads every regular, non-hidden file in a directory. HTML files
// are reduced to their visible text.
type DirSource struct {
	dir string
}

func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

func (s *DirSource) Describe() string {
	return "dir:" + s.dir
}

func (s *DirSource) Load(ctx context.Context) ([]RawFile, error) {
	info, err := os.Stat(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.Wrapf(apperrors.ErrCorpusNotFound, "%s does not exist", s.dir)
		}
		return nil, fmt.Errorf("%w: stat %s: %w", apperrors.ErrCorpusUnreadable, s.dir, err)
	}
	if !info.IsDir() {
		return nil, apperrors.Wrapf(apperrors.ErrCorpusNotFound, "%s is not a directory", s.dir)
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: listing %s: %w", apperrors.ErrCorpusUnreadable, s.dir, err)
	}
	files := make([]RawFile, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") || !entry.Type().IsRegular() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %w", apperrors.ErrCorpusUnreadable, name, err)
		}
		text := string(data)
		if isHTML(name) {
			text, err = ExtractText(text)
			if err != nil {
				return nil, fmt.Errorf("%w: parsing %s: %w", apperrors.ErrCorpusUnreadable, name, err)
			}
		}
		files = append(files, RawFile{Name: name, Text: text})
	}
	return files, nil
}

func isHTML(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".htm":
		return true
	}
	return false
}
