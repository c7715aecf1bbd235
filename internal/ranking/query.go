package ranking

import "sort"

// Query is a set of normalised tokens. Duplicates collapse and order is
// irrelevant; Terms reports them sorted so that score sums are evaluated in
// a fixed order.
type Query struct {
	terms []string
	set   map[string]struct{}
}

func NewQuery(tokens []string) Query {
	set := make(map[string]struct{}, len(tokens))
	terms := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t == "" {
			continue
		}
		if _, seen := set[t]; seen {
			continue
		}
		set[t] = struct{}{}
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return Query{terms: terms, set: set}
}

func (q Query) Terms() []string {
	out := make([]string, len(q.terms))
	copy(out, q.terms)
	return out
}

func (q Query) Contains(token string) bool {
	_, ok := q.set[token]
	return ok
}

func (q Query) Len() int {
	return len(q.terms)
}

func (q Query) Empty() bool {
	return len(q.terms) == 0
}
