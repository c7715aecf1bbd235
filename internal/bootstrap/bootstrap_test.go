package bootstrap

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/corpus-qa/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-qa/pkg/errors"
)

func TestOpenSourceDirOverride(t *testing.T) {
	cfg := config.Default()
	cfg.Corpus.Source = config.SourceSQLite
	dir := t.TempDir()
	src, err := OpenSource(context.Background(), cfg, dir)
	if err != nil {
		t.Fatalf("OpenSource: %v", err)
	}
	defer src.Close()
	if src.DB != nil {
		t.Error("directory override opened a database")
	}
	if got, want := src.Describe(), "dir:"+dir; got != want {
		t.Errorf("Describe = %q, want %q", got, want)
	}
}

func TestOpenSourceSQLite(t *testing.T) {
	cfg := config.Default()
	cfg.Corpus.Source = config.SourceSQLite
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "corpus.db")
	src, err := OpenSource(context.Background(), cfg, "")
	if err != nil {
		t.Fatalf("OpenSource: %v", err)
	}
	defer src.Close()
	if src.Driver != "sqlite" || src.DB == nil {
		t.Fatalf("source = %+v", src)
	}
	if _, err := src.DB.Exec(`CREATE TABLE documents (name TEXT PRIMARY KEY, body TEXT NOT NULL)`); err != nil {
		t.Fatal(err)
	}
	if _, err := src.DB.Exec(`INSERT INTO documents VALUES ('a.txt', 'Cats purr.')`); err != nil {
		t.Fatal(err)
	}
	prep, err := NewPipeline(cfg, nil).Load(context.Background(), src)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if prep.Files.Len() != 1 {
		t.Errorf("files = %d, want 1", prep.Files.Len())
	}
}

func TestOpenSourceRejectsBadTable(t *testing.T) {
	cfg := config.Default()
	cfg.Corpus.Source = config.SourceSQLite
	cfg.Corpus.Table = "documents; DROP TABLE x"
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "corpus.db")
	if _, err := OpenSource(context.Background(), cfg, ""); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestNewNormalizerHonoursConfig(t *testing.T) {
	n := NewNormalizer(config.NormalizerConfig{Stem: true, ExtraStopwords: []string{"python"}})
	got := n.Tokenize("Python running")
	if len(got) != 1 || got[0] != "run" {
		t.Errorf("Tokenize = %#v, want [run]", got)
	}
}
