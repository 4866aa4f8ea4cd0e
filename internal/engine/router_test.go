package engine

import "testing"

func TestClassifyQuery(t *testing.T) {
	cases := []struct {
		query string
		want  QueryKind
	}{
		{"who is John Dolittle", KindFactual},
		{"who wrote this book", KindFactual},
		{"when did the voyage start", KindFactual},
		{"where is the animal clinic", KindFactual},
		{"how many chapters are there", KindFactual},
		{"define deep work", KindFactual},
		{"meaning of shallow work", KindFactual},
		{"how to build a focus habit", KindSemantic},
		{"why is attention residue harmful", KindSemantic},
		{"explain the craftsman mindset", KindSemantic},
		{"tell me about the author's routine", KindSemantic},
		{"what are the benefits of deep work", KindSemantic},
		{"difference between deep and shallow work", KindSemantic},
		{"deep work and productivity in knowledge work together", KindHybrid},
	}
	for _, tc := range cases {
		got, _ := classifyQuery(tc.query)
		if got != tc.want {
			t.Errorf("classifyQuery(%q) = %s, want %s", tc.query, got, tc.want)
		}
	}
}

func TestRetrievalLimitWidensForSemanticQueries(t *testing.T) {
	if got := KindFactual.retrievalLimit(5); got != 5 {
		t.Errorf("factual limit = %d, want 5", got)
	}
	if got := KindSemantic.retrievalLimit(5); got != 10 {
		t.Errorf("semantic limit = %d, want 10", got)
	}
	if got := KindHybrid.retrievalLimit(5); got != 10 {
		t.Errorf("hybrid limit = %d, want 10", got)
	}
}
