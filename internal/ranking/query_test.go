package ranking

import (
	"reflect"
	"testing"
)

func TestNewQueryCollapsesDuplicates(t *testing.T) {
	q := NewQuery([]string{"sat", "cat", "sat", "", "cat"})
	if got, want := q.Terms(), []string{"cat", "sat"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Terms() = %v, want %v", got, want)
	}
	if q.Len() != 2 || q.Empty() || !q.Contains("sat") || q.Contains("") {
		t.Errorf("unexpected query state: %+v", q)
	}
	terms := q.Terms()
	terms[0] = "mutated"
	if q.Terms()[0] != "cat" {
		t.Error("Terms() exposed internal slice")
	}
}

func TestZeroQueryIsEmpty(t *testing.T) {
	var q Query
	if !q.Empty() || q.Contains("x") || len(q.Terms()) != 0 {
		t.Errorf("zero Query not empty: %+v", q)
	}
}
