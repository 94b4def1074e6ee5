package questionbank

import (
	"testing"
)

func TestDefaultPoolIsValid(t *testing.T) {
	for _, e := range defaultEntries {
		if err := e.Question.Validate(); err != nil {
			t.Errorf("pool question %s invalid: %v", e.Question.ID, err)
		}
	}
}

func TestDraw(t *testing.T) {
	seed := int64(7)
	bank := New(defaultEntries, &seed)

	tests := []struct {
		name        string
		count       int
		subject     string
		wantSubject string
	}{
		{name: "subject filter", count: 3, subject: "science", wantSubject: "Science"},
		{name: "unknown subject uses whole pool", count: 4, subject: "Astrology"},
		{name: "more than the pool holds", count: len(defaultEntries) + 5},
		{name: "more than the subject holds", count: 5, subject: "History", wantSubject: "History"},
	}

	bySubject := map[string]string{}
	for _, e := range defaultEntries {
		bySubject[e.Question.ID] = e.Subject
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := bank.Draw(tt.count, tt.subject)
			if len(got) != tt.count {
				t.Fatalf("Draw() returned %d questions, want %d", len(got), tt.count)
			}
			ids := map[string]struct{}{}
			for _, q := range got {
				if _, dup := ids[q.ID]; dup {
					t.Fatalf("duplicate id %s", q.ID)
				}
				ids[q.ID] = struct{}{}
				if tt.wantSubject == "" {
					continue
				}
				base := q.ID
				if len(base) > 9 && base[len(base)-9] == '-' {
					base = base[:len(base)-9]
				}
				if bySubject[base] != tt.wantSubject {
					t.Fatalf("question %s from %q, want %q", q.ID, bySubject[base], tt.wantSubject)
				}
			}
		})
	}
}

func TestDrawDoesNotAliasPool(t *testing.T) {
	bank := New(defaultEntries[:1], nil)
	got := bank.Draw(1, "")
	got[0].Options[0] = "changed"
	*got[0].CorrectAnswerIndex = 0

	if defaultEntries[0].Question.Options[0] == "changed" || *defaultEntries[0].Question.CorrectAnswerIndex != 2 {
		t.Fatalf("drawn question aliases the pool")
	}
}

func TestDrawEmpty(t *testing.T) {
	if got := New(nil, nil).Draw(3, ""); len(got) != 0 {
		t.Fatalf("expected no questions from an empty bank, got %d", len(got))
	}
	if got := Default().Draw(0, ""); len(got) != 0 {
		t.Fatalf("expected no questions for zero count, got %d", len(got))
	}
}
