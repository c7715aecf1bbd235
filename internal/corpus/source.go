package corpus

import (
	"context"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"
)

// RawFile is one loaded document before normalisation.
type RawFile struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// Source supplies raw documents. Implementations return files sorted by
// name so enumeration order is stable across runs.
type Source interface {
	Load(ctx context.Context) ([]RawFile, error)
	Describe() string
}

// Snapshot is an immutable view of a loaded source.
type Snapshot struct {
	Files       []RawFile
	Fingerprint uint64
	LoadedAt    time.Time
	byName      map[string]int
}

func NewSnapshot(files []RawFile) *Snapshot {
	sorted := make([]RawFile, len(files))
	copy(sorted, files)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})
	byName := make(map[string]int, len(sorted))
	h := xxhash.New()
	for i, f := range sorted {
		byName[f.Name] = i
		_, _ = h.WriteString(f.Name)
		_, _ = h.Write([]byte{0})
		_, _ = h.WriteString(f.Text)
		_, _ = h.Write([]byte{0})
	}
	return &Snapshot{
		Files:       sorted,
		Fingerprint: h.Sum64(),
		LoadedAt:    time.Now().UTC(),
		byName:      byName,
	}
}

// LoadSnapshot loads src and wraps the result.
func LoadSnapshot(ctx context.Context, src Source) (*Snapshot, error) {
	files, err := src.Load(ctx)
	if err != nil {
		return nil, err
	}
	return NewSnapshot(files), nil
}

func (s *Snapshot) Text(name string) (string, bool) {
	i, ok := s.byName[name]
	if !ok {
		return "", false
	}
	return s.Files[i].Text, true
}

func (s *Snapshot) Len() int {
	return len(s.Files)
}
