package keyword

import (
	"context"
	"errors"
	"testing"

	"github.com/hyperjump/kotae/internal/models"
)

// mockTermDictionary is a mock implementation of TermDictionary for testing.
type mockTermDictionary struct {
	terms map[string]int
	err   error
	calls int
}

func (m *mockTermDictionary) Terms() (map[string]int, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[string]int, len(m.terms))
	for k, v := range m.terms {
		out[k] = v
	}
	return out, nil
}

func TestSpellChecker_NewSpellChecker(t *testing.T) {
	dict := &mockTermDictionary{terms: map[string]int{"emma": 1}}

	sc := NewSpellChecker(dict)
	if sc.maxDistance != 2 || sc.minFreq != 1 || sc.maxSuggestions != 5 {
		t.Errorf("defaults = %d, %d, %d", sc.maxDistance, sc.minFreq, sc.maxSuggestions)
	}

	sc = NewSpellChecker(dict, WithMaxDistance(1), WithMinFrequency(3), WithMaxSuggestions(2))
	if sc.maxDistance != 1 || sc.minFreq != 3 || sc.maxSuggestions != 2 {
		t.Errorf("options = %d, %d, %d", sc.maxDistance, sc.minFreq, sc.maxSuggestions)
	}
}

func TestSpellChecker_Suggest(t *testing.T) {
	dict := &mockTermDictionary{terms: map[string]int{
		"engineer": 4,
		"software": 3,
		"baker":    2,
		"bakery":   1,
		"paris":    2,
		"lyon":     1,
	}}
	sc := NewSpellChecker(dict)

	tests := []struct {
		name      string
		word      string
		wantFirst string
		wantLen   int
	}{
		{"missing letter", "enginer", "engineer", 1},
		{"transposition", "sofwtare", "software", 1},
		{"uppercase input", "PARSI", "paris", 1},
		{"frequency breaks distance tie", "bakr", "baker", 2},
		{"known word", "lyon", "", 0},
		{"nothing close", "kyoto", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sc.Suggest(tt.word)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != tt.wantLen {
				t.Fatalf("Suggest(%q) = %+v, want %d suggestions", tt.word, got, tt.wantLen)
			}
			if tt.wantFirst != "" && got[0].Term != tt.wantFirst {
				t.Errorf("Suggest(%q)[0] = %q, want %q", tt.word, got[0].Term, tt.wantFirst)
			}
		})
	}
}

func TestSpellChecker_SuggestLimitsAndFrequency(t *testing.T) {
	dict := &mockTermDictionary{terms: map[string]int{
		"cat": 5, "car": 4, "cap": 3, "can": 2, "cab": 1,
	}}

	got, err := NewSpellChecker(dict, WithMaxSuggestions(2)).Suggest("caz")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Term != "cat" || got[1].Term != "car" {
		t.Errorf("limited suggestions = %+v", got)
	}

	got, err = NewSpellChecker(dict, WithMinFrequency(4)).Suggest("caz")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("frequency-filtered suggestions = %+v", got)
	}
}

func TestSpellChecker_Correct(t *testing.T) {
	dict := &mockTermDictionary{terms: map[string]int{
		"software": 3, "engineer": 3, "paris": 1,
	}}
	sc := NewSpellChecker(dict)

	tests := []struct {
		query string
		want  string
	}{
		{"sofware enginer", "software engineer"},
		{"Engineer in Pariss?", "engineer in paris"},
		{"software engineer", ""},
		{"kyoto", ""},
		{"", ""},
	}
	for _, tt := range tests {
		got, err := sc.Correct(tt.query)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("Correct(%q) = %q, want %q", tt.query, got, tt.want)
		}
	}
}

func TestSpellChecker_Invalidate(t *testing.T) {
	dict := &mockTermDictionary{terms: map[string]int{"emma": 1}}
	sc := NewSpellChecker(dict)

	for i := 0; i < 3; i++ {
		if _, err := sc.Suggest("ema"); err != nil {
			t.Fatal(err)
		}
	}
	if dict.calls != 1 {
		t.Errorf("dictionary read %d times, want 1", dict.calls)
	}

	dict.terms["lucas"] = 1
	sc.Invalidate()
	got, err := sc.Suggest("luca")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Term != "lucas" {
		t.Errorf("after Invalidate = %+v", got)
	}
}

func TestSpellChecker_DictionaryError(t *testing.T) {
	boom := errors.New("index closed")
	sc := NewSpellChecker(&mockTermDictionary{err: boom})
	if _, err := sc.Correct("emma"); !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}

func TestSpellChecker_BleveDictionary(t *testing.T) {
	idx := testIndex(t)
	ctx := context.Background()
	_ = idx.Index(ctx, &models.Chunk{ID: "c1", Text: "Emma: a software engineer based in Paris"})
	_ = idx.Index(ctx, &models.Chunk{ID: "c2", Text: "Lucas: a baker and a software tester"})

	terms, err := idx.Terms()
	if err != nil {
		t.Fatal(err)
	}
	if terms["software"] != 2 || terms["emma"] != 1 {
		t.Errorf("Terms() = %v", terms)
	}

	got, err := NewSpellChecker(idx).Correct("sotfware engneer")
	if err != nil {
		t.Fatal(err)
	}
	if got != "software engineer" {
		t.Errorf("Correct() = %q", got)
	}
}
