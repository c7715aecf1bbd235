package ranking

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/corpus-qa/internal/corpus"
	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-qa/pkg/errors"
)

const eps = 1e-12

func TestComputeIDFsUsesDocumentFrequency(t *testing.T) {
	c := buildCorpus(t,
		entry{"a", []string{"cat", "cat", "cat", "sat"}},
		entry{"b", []string{"dog", "sat"}},
		entry{"c", []string{"dog", "ran", "sat"}},
		entry{"d", []string{"sat"}},
	)
	idfs := mustIDFs(t, c)

	tests := map[string]float64{
		"cat": math.Log(4.0 / 1.0),
		"dog": math.Log(4.0 / 2.0),
		"ran": math.Log(4.0 / 1.0),
		"sat": 0,
	}
	for token, want := range tests {
		got, ok := idfs.Lookup(token)
		if !ok {
			t.Fatalf("token %q missing from table", token)
		}
		if math.Abs(got-want) > eps {
			t.Errorf("idf(%q) = %v, want %v", token, got, want)
		}
	}
	if idfs.Len() != 4 || idfs.Documents() != 4 {
		t.Errorf("Len() = %d, Documents() = %d", idfs.Len(), idfs.Documents())
	}
	if _, ok := idfs.Lookup("bird"); ok {
		t.Error("absent token present in table")
	}
}

func TestIDFMonotonicityAndRange(t *testing.T) {
	c := buildCorpus(t,
		entry{"1", []string{"rare", "common", "everywhere"}},
		entry{"2", []string{"common", "everywhere"}},
		entry{"3", []string{"common", "everywhere"}},
		entry{"4", []string{"everywhere"}},
	)
	idfs := mustIDFs(t, c)
	rare, _ := idfs.Lookup("rare")
	common, _ := idfs.Lookup("common")
	everywhere, _ := idfs.Lookup("everywhere")

	if !(rare > common && common > everywhere) {
		t.Errorf("idf not monotone in df: rare=%v common=%v everywhere=%v", rare, common, everywhere)
	}
	for _, v := range []float64{rare, common} {
		if v <= 0 {
			t.Errorf("idf of a term missing from some document should be > 0, got %v", v)
		}
	}
	if everywhere != 0 {
		t.Errorf("idf of a term in every document = %v, want 0", everywhere)
	}
}

func TestComputeIDFsOrderIndependent(t *testing.T) {
	forward := buildCorpus(t,
		entry{"a", []string{"x", "y"}},
		entry{"b", []string{"y", "z"}},
		entry{"c", []string{"z"}},
	)
	backward := buildCorpus(t,
		entry{"c", []string{"z"}},
		entry{"b", []string{"y", "z"}},
		entry{"a", []string{"x", "y"}},
	)
	f, b := mustIDFs(t, forward), mustIDFs(t, backward)
	if !reflect.DeepEqual(f.values, b.values) {
		t.Errorf("idf depends on insertion order:\n%v\n%v", f.values, b.values)
	}
}

func TestComputeIDFsEmptyCorpus(t *testing.T) {
	for name, c := range map[string]*corpus.Corpus{"nil": nil, "empty": corpus.New(0)} {
		t.Run(name, func(t *testing.T) {
			_, err := ComputeIDFs(c)
			if !errors.Is(err, apperrors.ErrEmptyCorpus) {
				t.Fatalf("ComputeIDFs error = %v, want ErrEmptyCorpus", err)
			}
		})
	}
}

func TestComputeIDFsDocumentWithoutTokens(t *testing.T) {
	c := buildCorpus(t, entry{"a", []string{"x"}}, entry{"b", nil})
	idfs := mustIDFs(t, c)
	if got, _ := idfs.Lookup("x"); math.Abs(got-math.Log(2)) > eps {
		t.Errorf("idf(x) = %v, want ln 2", got)
	}
}

func TestUnknown(t *testing.T) {
	idfs := mustIDFs(t, buildCorpus(t, entry{"a", []string{"cat"}}))
	got := idfs.Unknown(NewQuery([]string{"zebra", "cat", "aardvark"}))
	if want := []string{"aardvark", "zebra"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Unknown = %v, want %v", got, want)
	}
}
